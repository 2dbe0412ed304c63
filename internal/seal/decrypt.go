package seal

import (
	"fmt"
	"math/big"

	tsscrypto "github.com/bnb-chain/tss-lib/v2/crypto"
	"github.com/bnb-chain/tss-lib/v2/crypto/vss"
	"github.com/bnb-chain/tss-lib/v2/tss"
	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"gitee.com/czyczk/datawave/internal/utils/cipherutils"
)

// DecryptWithKeys opens obj with user secret keys indexed by the object ID of the service that issued them.
// At least obj.Threshold of the services listed in obj must be present in keys.
func DecryptWithKeys(obj *EncryptedObject, keys map[string][]byte) ([]byte, error) {
	u, err := parseG2(obj.U)
	if err != nil {
		return nil, err
	}
	fid := obj.FullID()
	commitments, err := parseCommitments(obj.Commitments)
	if err != nil {
		return nil, err
	}
	ec := tss.S256()

	shares := make(vss.Shares, 0, obj.Threshold)
	for i, service := range obj.Services {
		if len(shares) == obj.Threshold {
			break
		}
		usk, ok := keys[service]
		if !ok {
			continue
		}
		uskPoint, err := parseG1(usk)
		if err != nil {
			return nil, errors.Wrapf(err, "密钥服务器 %v 的用户密钥不合法", service)
		}

		gt, err := bls12381.Pair([]bls12381.G1Affine{uskPoint}, []bls12381.G2Affine{u})
		if err != nil {
			return nil, errors.Wrap(err, "无法计算配对")
		}
		mask, err := deriveShareMask(&gt, obj.U, fid, i)
		if err != nil {
			return nil, err
		}
		shareBytes, err := cipherutils.XORBytes(obj.EncryptedShares[i], mask)
		if err != nil {
			return nil, err
		}

		share := &vss.Share{
			Threshold: obj.Threshold - 1,
			ID:        shareIndex(i),
			Share:     new(big.Int).Mod(new(big.Int).SetBytes(shareBytes), ec.Params().N),
		}
		// 零标量没有对应的曲线点
		if share.Share.Sign() == 0 || !share.Verify(ec, obj.Threshold-1, commitments) {
			log.Warnf("密钥服务器 %v 的份额与承诺不符，已忽略", service)
			continue
		}
		shares = append(shares, share)
	}
	if len(shares) < obj.Threshold {
		return nil, fmt.Errorf("可用的密钥份额不足：需要 %v 份，只有 %v 份", obj.Threshold, len(shares))
	}

	secret, err := shares.ReConstruct(ec)
	if err != nil {
		return nil, errors.Wrap(err, "无法恢复数据密钥")
	}
	if secret.Sign() == 0 || !tsscrypto.ScalarBaseMult(ec, secret).Equals(commitments[0]) {
		return nil, fmt.Errorf("恢复的数据密钥与承诺不符")
	}
	dek, err := cipherutils.DeriveSymmetricKeyBytesFromScalar(secret)
	if err != nil {
		return nil, err
	}

	plaintext, err := cipherutils.DecryptBytesUsingAESKey(obj.Payload, dek)
	if err != nil {
		return nil, errors.Wrap(err, "无法解密数据")
	}

	return plaintext, nil
}
