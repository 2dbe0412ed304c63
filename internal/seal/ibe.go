package seal

import (
	crand "crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"math/big"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/pkg/errors"
	"golang.org/x/crypto/hkdf"
)

var cryptoRandReader = crand.Reader

var hashToG1DST = []byte("DATAWAVE-SEAL-V0_BLS12381G1_XMD:SHA-256_SSWU_RO_")

// MasterKey is the secret held by a single key server.
type MasterKey struct {
	scalar *big.Int
}

// GenerateMasterKey draws a fresh non-zero master key from r, or crypto/rand when r is nil.
func GenerateMasterKey(r io.Reader) (*MasterKey, error) {
	s, err := randomScalar(r, fr.Modulus())
	if err != nil {
		return nil, errors.Wrap(err, "无法生成主密钥")
	}

	return &MasterKey{scalar: s}, nil
}

// MasterKeyFromBytes parses a 32-byte big-endian master key.
func MasterKeyFromBytes(b []byte) (*MasterKey, error) {
	if len(b) != fr.Bytes {
		return nil, fmt.Errorf("主密钥长度应为 %v 字节", fr.Bytes)
	}

	s := new(big.Int).SetBytes(b)
	if s.Sign() == 0 || s.Cmp(fr.Modulus()) >= 0 {
		return nil, fmt.Errorf("主密钥不在标量域内")
	}

	return &MasterKey{scalar: s}, nil
}

// Bytes returns the 32-byte big-endian encoding of the master key.
func (k *MasterKey) Bytes() []byte {
	b := make([]byte, fr.Bytes)
	k.scalar.FillBytes(b)
	return b
}

// PublicKey returns the compressed G2 public key msk * G2.
func (k *MasterKey) PublicKey() []byte {
	var pk bls12381.G2Affine
	pk.ScalarMultiplicationBase(k.scalar)
	b := pk.Bytes()
	return b[:]
}

// ExtractUserSecretKey derives the user secret key for the given full identity: msk * H(fid).
func (k *MasterKey) ExtractUserSecretKey(fid []byte) ([]byte, error) {
	q, err := hashIdentity(fid)
	if err != nil {
		return nil, err
	}

	var usk bls12381.G1Affine
	usk.ScalarMultiplication(&q, k.scalar)
	b := usk.Bytes()
	return b[:], nil
}

// VerifyUserSecretKey checks e(usk, G2) == e(H(fid), PK).
func VerifyUserSecretKey(usk []byte, fid []byte, publicKey []byte) error {
	uskPoint, err := parseG1(usk)
	if err != nil {
		return err
	}
	pk, err := parseG2(publicKey)
	if err != nil {
		return err
	}
	q, err := hashIdentity(fid)
	if err != nil {
		return err
	}

	_, _, _, g2 := bls12381.Generators()
	lhs, err := bls12381.Pair([]bls12381.G1Affine{uskPoint}, []bls12381.G2Affine{g2})
	if err != nil {
		return errors.Wrap(err, "无法计算配对")
	}
	rhs, err := bls12381.Pair([]bls12381.G1Affine{q}, []bls12381.G2Affine{pk})
	if err != nil {
		return errors.Wrap(err, "无法计算配对")
	}
	if !lhs.Equal(&rhs) {
		return fmt.Errorf("用户密钥与密钥服务器公钥不匹配")
	}

	return nil
}

func hashIdentity(fid []byte) (bls12381.G1Affine, error) {
	q, err := bls12381.HashToG1(fid, hashToG1DST)
	if err != nil {
		return q, errors.Wrap(err, "无法将身份映射到 G1")
	}

	return q, nil
}

func parseG1(b []byte) (bls12381.G1Affine, error) {
	var p bls12381.G1Affine
	if len(b) != bls12381.SizeOfG1AffineCompressed {
		return p, fmt.Errorf("G1 点长度应为 %v 字节", bls12381.SizeOfG1AffineCompressed)
	}
	if _, err := p.SetBytes(b); err != nil {
		return p, errors.Wrap(err, "无法解析 G1 点")
	}

	return p, nil
}

func parseG2(b []byte) (bls12381.G2Affine, error) {
	var p bls12381.G2Affine
	if len(b) != bls12381.SizeOfG2AffineCompressed {
		return p, fmt.Errorf("G2 点长度应为 %v 字节", bls12381.SizeOfG2AffineCompressed)
	}
	if _, err := p.SetBytes(b); err != nil {
		return p, errors.Wrap(err, "无法解析 G2 点")
	}

	return p, nil
}

// deriveShareMask expands a GT element into the 32-byte mask of the share sent to service `index`.
func deriveShareMask(gt *bls12381.GT, u []byte, fid []byte, index int) ([]byte, error) {
	gtBytes := gt.Bytes()
	info := make([]byte, 0, len(fid)+1)
	info = append(info, fid...)
	info = append(info, byte(index))

	mask := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, gtBytes[:], u, info), mask); err != nil {
		return nil, errors.Wrap(err, "无法派生份额掩码")
	}

	return mask, nil
}

// randomScalar returns a uniformly random integer in [1, n).
func randomScalar(r io.Reader, n *big.Int) (*big.Int, error) {
	if r == nil {
		r = crand.Reader
	}
	s, err := crand.Int(r, new(big.Int).Sub(n, big.NewInt(1)))
	if err != nil {
		return nil, err
	}

	return s.Add(s, big.NewInt(1)), nil
}
