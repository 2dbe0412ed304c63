// Package hexutils contains helpers for the 0x-prefixed hex strings used for addresses, object IDs and key IDs.
package hexutils

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ObjectIDLength is the byte length of an on-chain object ID or address.
const ObjectIDLength = 32

// EncodeHex encodes b as a lower-case hex string with a 0x prefix.
func EncodeHex(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

// DecodeHex decodes a hex string with or without a 0x prefix.
func DecodeHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	if len(s)%2 == 1 {
		s = "0" + s
	}

	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.Wrapf(err, "无法解析十六进制字符串 '%v'", s)
	}

	return b, nil
}

// DecodeObjectID decodes an object ID. Short forms such as "0x6" are left-padded to 32 bytes.
func DecodeObjectID(id string) ([]byte, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("对象 ID 不可为空")
	}

	b, err := DecodeHex(id)
	if err != nil {
		return nil, err
	}
	if len(b) > ObjectIDLength {
		return nil, fmt.Errorf("对象 ID '%v' 长度超过 %v 字节", id, ObjectIDLength)
	}

	ret := make([]byte, ObjectIDLength)
	copy(ret[ObjectIDLength-len(b):], b)
	return ret, nil
}

// NormalizeObjectID returns the canonical 0x-prefixed 64-digit form of an object ID or address.
func NormalizeObjectID(id string) (string, error) {
	b, err := DecodeObjectID(id)
	if err != nil {
		return "", err
	}

	return EncodeHex(b), nil
}

// SameObjectID reports whether a and b denote the same object ID. Malformed IDs never match.
func SameObjectID(a, b string) bool {
	na, err := NormalizeObjectID(a)
	if err != nil {
		return false
	}
	nb, err := NormalizeObjectID(b)
	if err != nil {
		return false
	}

	return na == nb
}
