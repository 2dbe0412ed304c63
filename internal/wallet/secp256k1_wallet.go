package wallet

import (
	"crypto/ecdsa"
	"encoding/base64"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// Secp256k1Signer signs EIP-191 personal messages with a secp256k1 key.
type Secp256k1Signer struct {
	key     *ecdsa.PrivateKey
	address string
}

func NewSecp256k1Signer(key *ecdsa.PrivateKey) *Secp256k1Signer {
	return &Secp256k1Signer{
		key:     key,
		address: deriveAddress(FlagSecp256k1, crypto.CompressPubkey(&key.PublicKey)),
	}
}

// NewSecp256k1SignerFromHexFile loads a hex-encoded private key from path.
func NewSecp256k1SignerFromHexFile(path string) (*Secp256k1Signer, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "无法读取私钥文件 '%v'", path)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(string(b)), "0x"))
	if err != nil {
		return nil, errors.Wrap(err, "无法解析 secp256k1 私钥")
	}

	return NewSecp256k1Signer(key), nil
}

func (s *Secp256k1Signer) Address() string {
	return s.address
}

func (s *Secp256k1Signer) Sign(message []byte) (string, error) {
	sig, err := crypto.Sign(accounts.TextHash(message), s.key)
	if err != nil {
		return "", errors.Wrap(err, "secp256k1 签名失败")
	}
	sig[crypto.RecoveryIDOffset] += 27

	payload := append([]byte{FlagSecp256k1}, sig...)
	return base64.StdEncoding.EncodeToString(payload), nil
}
