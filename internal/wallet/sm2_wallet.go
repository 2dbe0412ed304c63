package wallet

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/pkg/errors"
	"github.com/tjfoc/gmsm/sm2"

	"gitee.com/czyczk/datawave/internal/utils/cipherutils"
	"gitee.com/czyczk/datawave/pkg/sm2keyutils"
)

// SM2Signer signs with an SM2 private key.
type SM2Signer struct {
	privKey *sm2.PrivateKey
	address string
}

func NewSM2Signer(privKey *sm2.PrivateKey) *SM2Signer {
	return &SM2Signer{
		privKey: privKey,
		address: deriveAddress(FlagSM2, cipherutils.SerializeSM2PublicKey(&privKey.PublicKey)),
	}
}

// NewSM2SignerFromPEMFile loads the private key written by the keygen tool.
func NewSM2SignerFromPEMFile(path string) (*SM2Signer, error) {
	privKey, err := sm2keyutils.LoadPrivateKeyFromPEMFile(path)
	if err != nil {
		return nil, err
	}

	return NewSM2Signer(privKey), nil
}

func (s *SM2Signer) Address() string {
	return s.address
}

func (s *SM2Signer) Sign(message []byte) (string, error) {
	der, err := s.privKey.Sign(rand.Reader, message, nil)
	if err != nil {
		return "", errors.Wrap(err, "SM2 签名失败")
	}

	payload := []byte{FlagSM2}
	payload = append(payload, cipherutils.SerializeSM2PublicKey(&s.privKey.PublicKey)...)
	payload = append(payload, der...)
	return base64.StdEncoding.EncodeToString(payload), nil
}
