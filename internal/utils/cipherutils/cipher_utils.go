// This package contains helper functions that can be used within the entire app.
// It includes the AES-GCM helpers used to seal answer payloads, fixed-width encodings for
// SM2 public keys and scalars, and the byte-level helpers shared by the threshold encryption code.
package cipherutils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"math/big"

	"github.com/tjfoc/gmsm/sm2"

	"gitee.com/czyczk/datawave/pkg/sm2keyutils"
)

// ScalarSize is the width of a serialized scalar of a 256-bit group.
const ScalarSize = 32

// SerializeSM2PublicKey 将一个 SM2 公钥序列化成一个长度为 64 的字节切片。
func SerializeSM2PublicKey(publicKey *sm2.PublicKey) []byte {
	pubKeyBytes := [64]byte{}
	publicKey.X.FillBytes(pubKeyBytes[:32])
	publicKey.Y.FillBytes(pubKeyBytes[32:])
	return pubKeyBytes[:]
}

// DeserializeSM2PublicKey 解析一个长度为 64 的字节切片，得到 *sm2.PublicKey。
func DeserializeSM2PublicKey(publicKeyBytes []byte) (*sm2.PublicKey, error) {
	if len(publicKeyBytes) != 64 {
		return nil, fmt.Errorf("公钥字节切片长度不正确")
	}

	publicKeyX, publicKeyY := big.Int{}, big.Int{}
	_ = publicKeyX.SetBytes(publicKeyBytes[:32])
	_ = publicKeyY.SetBytes(publicKeyBytes[32:])

	publicKey, err := sm2keyutils.ConvertBigIntegersToPublicKey(&publicKeyX, &publicKeyY)
	if err != nil {
		return nil, err
	}

	return publicKey, nil
}

// SerializeScalar encodes a non-negative integer below 2^256 as 32 big-endian bytes.
func SerializeScalar(x *big.Int) ([]byte, error) {
	if x.Sign() < 0 || x.BitLen() > ScalarSize*8 {
		return nil, fmt.Errorf("标量超出 256 位范围")
	}

	b := make([]byte, ScalarSize)
	x.FillBytes(b)
	return b, nil
}

// DeriveSymmetricKeyBytesFromScalar 从标量中导出 256 位信息，在应用内作为对称密钥。具体使用上可用于创建 AES256 block。
func DeriveSymmetricKeyBytesFromScalar(x *big.Int) ([]byte, error) {
	b, err := SerializeScalar(x)
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256(b)
	return sum[:], nil
}

// XORBytes returns a XOR b. The two slices must have the same length.
func XORBytes(a, b []byte) ([]byte, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("异或运算的两个字节切片长度不一致：%v 与 %v", len(a), len(b))
	}

	ret := make([]byte, len(a))
	for i := range a {
		ret[i] = a[i] ^ b[i]
	}

	return ret, nil
}

// EncryptBytesUsingAESKey 使用 AES 对称密钥加密数据
func EncryptBytesUsingAESKey(b []byte, key []byte) (encryptedBytes []byte, err error) {
	cipherBlock, err := aes.NewCipher(key)
	if err != nil {
		return
	}

	aesGCM, err := cipher.NewGCM(cipherBlock)
	if err != nil {
		return
	}

	nonce := make([]byte, aesGCM.NonceSize())
	if _, err = io.ReadFull(rand.Reader, nonce); err != nil {
		return
	}

	encryptedBytes = aesGCM.Seal(nonce, nonce, b, nil)
	return
}

// DecryptBytesUsingAESKey 使用 AES 对称密钥解密数据
func DecryptBytesUsingAESKey(b []byte, key []byte) (decryptedBytes []byte, err error) {
	cipherBlock, err := aes.NewCipher(key)
	if err != nil {
		return
	}

	aesGCM, err := cipher.NewGCM(cipherBlock)
	if err != nil {
		return
	}

	nonceSize := aesGCM.NonceSize()
	if len(b) < nonceSize {
		err = fmt.Errorf("密文长度太短")
		return
	}

	nonce, b := b[:nonceSize], b[nonceSize:]
	decryptedBytes, err = aesGCM.Open(nil, nonce, b, nil)
	if err != nil {
		return
	}

	return
}
