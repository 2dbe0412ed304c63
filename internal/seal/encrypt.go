package seal

import (
	"fmt"
	"io"
	"math/big"

	tsscrypto "github.com/bnb-chain/tss-lib/v2/crypto"
	"github.com/bnb-chain/tss-lib/v2/crypto/vss"
	"github.com/bnb-chain/tss-lib/v2/tss"
	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/pkg/errors"

	"gitee.com/czyczk/datawave/internal/utils/cipherutils"
	"gitee.com/czyczk/datawave/internal/utils/hexutils"
)

// KeyServerInfo identifies a key server and the public key its shares are encrypted to.
type KeyServerInfo struct {
	ObjectID  string
	URL       string
	PublicKey []byte
}

// EncryptParams holds the inputs of Encrypt.
type EncryptParams struct {
	PackageID  string
	ID         []byte
	KeyServers []KeyServerInfo
	Threshold  int
	Data       []byte
	// Rand defaults to crypto/rand when nil.
	Rand io.Reader
}

// Encrypt seals data for the identity (PackageID, ID) so that any Threshold of the key servers can release it.
func Encrypt(p EncryptParams) ([]byte, error) {
	rnd := p.Rand
	if rnd == nil {
		rnd = cryptoRandReader
	}

	packageID, err := hexutils.DecodeObjectID(p.PackageID)
	if err != nil {
		return nil, errors.Wrap(err, "包 ID 不合法")
	}
	if p.Threshold < 1 || p.Threshold > len(p.KeyServers) || len(p.KeyServers) > 255 {
		return nil, fmt.Errorf("门限值 %v 与密钥服务器数量 %v 不匹配", p.Threshold, len(p.KeyServers))
	}

	curveOrder := tss.S256().Params().N
	secret, err := randomScalar(rnd, curveOrder)
	if err != nil {
		return nil, errors.Wrap(err, "无法生成数据密钥")
	}
	indexes := make([]*big.Int, 0, len(p.KeyServers))
	for i := range p.KeyServers {
		indexes = append(indexes, shareIndex(i))
	}
	commitments, shares, err := shareSecret(rnd, secret, p.Threshold, indexes)
	if err != nil {
		return nil, err
	}

	dek, err := cipherutils.DeriveSymmetricKeyBytesFromScalar(secret)
	if err != nil {
		return nil, err
	}
	payload, err := cipherutils.EncryptBytesUsingAESKey(p.Data, dek)
	if err != nil {
		return nil, errors.Wrap(err, "无法加密数据")
	}

	r, err := randomScalar(rnd, fr.Modulus())
	if err != nil {
		return nil, errors.Wrap(err, "无法生成随机数")
	}
	var uPoint bls12381.G2Affine
	uPoint.ScalarMultiplicationBase(r)
	uArr := uPoint.Bytes()
	u := uArr[:]

	fid := fullID(packageID, p.ID)
	q, err := hashIdentity(fid)
	if err != nil {
		return nil, err
	}

	obj := &EncryptedObject{
		Version:   EnvelopeVersion,
		PackageID: packageID,
		ID:        p.ID,
		Threshold: p.Threshold,
		U:         u,
	}
	for _, v := range commitments {
		commitment, err := marshalCommitment(v)
		if err != nil {
			return nil, err
		}
		obj.Commitments = append(obj.Commitments, commitment)
	}
	for i, server := range p.KeyServers {
		objectID, err := hexutils.NormalizeObjectID(server.ObjectID)
		if err != nil {
			return nil, errors.Wrapf(err, "密钥服务器 %v 的对象 ID 不合法", i)
		}
		pk, err := parseG2(server.PublicKey)
		if err != nil {
			return nil, errors.Wrapf(err, "密钥服务器 %v 的公钥不合法", objectID)
		}

		gt, err := bls12381.Pair([]bls12381.G1Affine{q}, []bls12381.G2Affine{pk})
		if err != nil {
			return nil, errors.Wrap(err, "无法计算配对")
		}
		var gtr bls12381.GT
		gtr.Exp(gt, r)

		mask, err := deriveShareMask(&gtr, u, fid, i)
		if err != nil {
			return nil, err
		}
		shareBytes, err := cipherutils.SerializeScalar(shares[i].Share)
		if err != nil {
			return nil, err
		}
		encryptedShare, err := cipherutils.XORBytes(shareBytes, mask)
		if err != nil {
			return nil, err
		}

		obj.Services = append(obj.Services, objectID)
		obj.EncryptedShares = append(obj.EncryptedShares, encryptedShare)
	}
	obj.Payload = payload

	return obj.Marshal()
}

// shareSecret splits secret into one Feldman share per index, any threshold of which recover it.
// A threshold of 1 is a constant polynomial: every share equals the secret.
func shareSecret(rnd io.Reader, secret *big.Int, threshold int, indexes []*big.Int) (vss.Vs, vss.Shares, error) {
	ec := tss.S256()
	if threshold == 1 {
		shares := make(vss.Shares, 0, len(indexes))
		for _, x := range indexes {
			shares = append(shares, &vss.Share{Threshold: 0, ID: x, Share: new(big.Int).Set(secret)})
		}
		return vss.Vs{tsscrypto.ScalarBaseMult(ec, secret)}, shares, nil
	}

	commitments, shares, err := vss.Create(ec, threshold-1, secret, indexes, rnd)
	if err != nil {
		return nil, nil, errors.Wrap(err, "无法拆分数据密钥")
	}

	return commitments, shares, nil
}

func marshalCommitment(v *tsscrypto.ECPoint) ([]byte, error) {
	x, err := cipherutils.SerializeScalar(v.X())
	if err != nil {
		return nil, err
	}
	y, err := cipherutils.SerializeScalar(v.Y())
	if err != nil {
		return nil, err
	}

	return append(x, y...), nil
}

func parseCommitments(commitments [][]byte) (vss.Vs, error) {
	vs := make(vss.Vs, 0, len(commitments))
	for _, b := range commitments {
		x := new(big.Int).SetBytes(b[:cipherutils.ScalarSize])
		y := new(big.Int).SetBytes(b[cipherutils.ScalarSize:])
		v, err := tsscrypto.NewECPoint(tss.S256(), x, y)
		if err != nil {
			return nil, errors.Wrap(err, "份额承诺不合法")
		}
		vs = append(vs, v)
	}

	return vs, nil
}

// shareIndex maps a position in the service list to the x coordinate of its share.
func shareIndex(position int) *big.Int {
	return big.NewInt(int64(position + 1))
}
