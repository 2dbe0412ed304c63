package seal

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/pkg/errors"

	"gitee.com/czyczk/datawave/internal/utils/cipherutils"
	"gitee.com/czyczk/datawave/internal/utils/hexutils"
)

const (
	envelopeMagic = "DWSE"
	// EnvelopeVersion is the only envelope version this package writes and reads.
	EnvelopeVersion byte = 0

	maxIDLength      = 1024
	maxPayloadLength = 64 << 20

	// commitmentSize is an uncompressed secp256k1 point without the prefix byte.
	commitmentSize = 2 * cipherutils.ScalarSize
)

// EncryptedObject is the parsed form of a sealed answer blob.
//
// Layout:
//
//	magic "DWSE" | version | package id (32) | uvarint len | id
//	| n | n * service object id (32) | threshold
//	| threshold * share commitment (64) | U (G2, compressed) | n * encrypted share (32)
//	| uvarint len | payload (AES-GCM nonce || ciphertext)
type EncryptedObject struct {
	Version         byte
	PackageID       []byte
	ID              []byte
	Services        []string
	Threshold       int
	Commitments     [][]byte
	U               []byte
	EncryptedShares [][]byte
	Payload         []byte
}

// FullID is the identity the key servers derive keys for: package id followed by the key id.
func (o *EncryptedObject) FullID() []byte {
	return fullID(o.PackageID, o.ID)
}

// IDHex returns the key id as a 0x-prefixed hex string.
func (o *EncryptedObject) IDHex() string {
	return hexutils.EncodeHex(o.ID)
}

// FullIdentity joins a package id and a key id into the identity keys are extracted for.
func FullIdentity(packageID, id []byte) []byte {
	return fullID(packageID, id)
}

func fullID(packageID, id []byte) []byte {
	ret := make([]byte, 0, len(packageID)+len(id))
	ret = append(ret, packageID...)
	return append(ret, id...)
}

// Marshal serializes the object into its binary envelope.
func (o *EncryptedObject) Marshal() ([]byte, error) {
	if err := o.validate(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(envelopeMagic)
	buf.WriteByte(o.Version)
	buf.Write(o.PackageID)
	buf.Write(binary.AppendUvarint(nil, uint64(len(o.ID))))
	buf.Write(o.ID)

	buf.WriteByte(byte(len(o.Services)))
	for _, service := range o.Services {
		objectID, err := hexutils.DecodeObjectID(service)
		if err != nil {
			return nil, err
		}
		buf.Write(objectID)
	}
	buf.WriteByte(byte(o.Threshold))
	for _, commitment := range o.Commitments {
		buf.Write(commitment)
	}

	buf.Write(o.U)
	for _, share := range o.EncryptedShares {
		buf.Write(share)
	}

	buf.Write(binary.AppendUvarint(nil, uint64(len(o.Payload))))
	buf.Write(o.Payload)

	return buf.Bytes(), nil
}

func (o *EncryptedObject) validate() error {
	if len(o.PackageID) != hexutils.ObjectIDLength {
		return fmt.Errorf("包 ID 长度应为 %v 字节", hexutils.ObjectIDLength)
	}
	if len(o.ID) == 0 || len(o.ID) > maxIDLength {
		return fmt.Errorf("密钥 ID 长度不合法：%v", len(o.ID))
	}
	if len(o.Services) == 0 || len(o.Services) > 255 {
		return fmt.Errorf("密钥服务器数量不合法：%v", len(o.Services))
	}
	if o.Threshold < 1 || o.Threshold > len(o.Services) {
		return fmt.Errorf("门限值 %v 不在 [1, %v] 范围内", o.Threshold, len(o.Services))
	}
	if len(o.Commitments) != o.Threshold {
		return fmt.Errorf("份额承诺数量 %v 与门限值 %v 不一致", len(o.Commitments), o.Threshold)
	}
	for _, commitment := range o.Commitments {
		if len(commitment) != commitmentSize {
			return fmt.Errorf("份额承诺长度应为 %v 字节", commitmentSize)
		}
	}
	if len(o.U) != bls12381.SizeOfG2AffineCompressed {
		return fmt.Errorf("U 的长度应为 %v 字节", bls12381.SizeOfG2AffineCompressed)
	}
	if len(o.EncryptedShares) != len(o.Services) {
		return fmt.Errorf("加密份额数量 %v 与密钥服务器数量 %v 不一致", len(o.EncryptedShares), len(o.Services))
	}
	for _, share := range o.EncryptedShares {
		if len(share) != cipherutils.ScalarSize {
			return fmt.Errorf("加密份额长度应为 %v 字节", cipherutils.ScalarSize)
		}
	}

	return nil
}

// ParseEncryptedObject parses a sealed blob. The key id is available from the header alone, without any key material.
func ParseEncryptedObject(b []byte) (*EncryptedObject, error) {
	r := bytes.NewReader(b)

	magic := make([]byte, len(envelopeMagic))
	if _, err := io.ReadFull(r, magic); err != nil || string(magic) != envelopeMagic {
		return nil, fmt.Errorf("不是有效的加密对象：魔数不匹配")
	}

	o := &EncryptedObject{}
	var err error
	if o.Version, err = r.ReadByte(); err != nil {
		return nil, errors.Wrap(err, "无法读取加密对象版本")
	}
	if o.Version != EnvelopeVersion {
		return nil, fmt.Errorf("不支持的加密对象版本 %v", o.Version)
	}

	if o.PackageID, err = readN(r, hexutils.ObjectIDLength); err != nil {
		return nil, errors.Wrap(err, "无法读取包 ID")
	}
	if o.ID, err = readLengthPrefixed(r, maxIDLength); err != nil {
		return nil, errors.Wrap(err, "无法读取密钥 ID")
	}

	numServices, err := r.ReadByte()
	if err != nil {
		return nil, errors.Wrap(err, "无法读取密钥服务器数量")
	}
	for i := 0; i < int(numServices); i++ {
		objectID, err := readN(r, hexutils.ObjectIDLength)
		if err != nil {
			return nil, errors.Wrap(err, "无法读取密钥服务器对象 ID")
		}
		o.Services = append(o.Services, hexutils.EncodeHex(objectID))
	}

	threshold, err := r.ReadByte()
	if err != nil {
		return nil, errors.Wrap(err, "无法读取门限值")
	}
	o.Threshold = int(threshold)
	if o.Threshold > int(numServices) {
		return nil, fmt.Errorf("门限值 %v 超过密钥服务器数量 %v", o.Threshold, numServices)
	}
	for i := 0; i < o.Threshold; i++ {
		commitment, err := readN(r, commitmentSize)
		if err != nil {
			return nil, errors.Wrap(err, "无法读取份额承诺")
		}
		o.Commitments = append(o.Commitments, commitment)
	}

	if o.U, err = readN(r, bls12381.SizeOfG2AffineCompressed); err != nil {
		return nil, errors.Wrap(err, "无法读取 U")
	}
	for i := 0; i < int(numServices); i++ {
		share, err := readN(r, cipherutils.ScalarSize)
		if err != nil {
			return nil, errors.Wrap(err, "无法读取加密份额")
		}
		o.EncryptedShares = append(o.EncryptedShares, share)
	}

	if o.Payload, err = readLengthPrefixed(r, maxPayloadLength); err != nil {
		return nil, errors.Wrap(err, "无法读取密文负载")
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("加密对象末尾有 %v 字节多余数据", r.Len())
	}

	if err = o.validate(); err != nil {
		return nil, err
	}

	return o, nil
}

func readN(r *bytes.Reader, n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}

	return b, nil
}

func readLengthPrefixed(r *bytes.Reader, limit int) ([]byte, error) {
	l, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, err
	}
	if l > uint64(limit) || l > uint64(r.Len()) {
		return nil, fmt.Errorf("长度前缀 %v 超出范围", l)
	}

	return readN(r, int(l))
}
