// Package wallet implements the wallets that sign session key challenges and transactions.
//
// A signature string is base64(flag || payload):
//
//	0x01 secp256k1: 65-byte recoverable signature over the EIP-191 text hash
//	0x02 SM2:       64-byte public key || DER signature
//
// An address is the 0x-prefixed hex of a 32-byte hash of flag || public key.
package wallet

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/tjfoc/gmsm/sm3"

	"gitee.com/czyczk/datawave/internal/blockchain/bcao"
	"gitee.com/czyczk/datawave/internal/utils/cipherutils"
	"gitee.com/czyczk/datawave/internal/utils/hexutils"
	"gitee.com/czyczk/datawave/pkg/models/authtx"
)

const (
	FlagSecp256k1 byte = 0x01
	FlagSM2       byte = 0x02
)

// Signer is the part of a wallet that depends on the key scheme.
type Signer interface {
	Address() string
	Sign(message []byte) (string, error)
}

// Wallet wraps a Signer with the chain it submits transactions to.
type Wallet struct {
	signer Signer
	chain  bcao.IChainBCAO
}

// New creates a wallet. chain may be nil for wallets that only sign.
func New(signer Signer, chain bcao.IChainBCAO) *Wallet {
	return &Wallet{signer: signer, chain: chain}
}

func (w *Wallet) GetCurrentAddress(ctx context.Context) (string, error) {
	if w == nil || w.signer == nil {
		return "", fmt.Errorf("未配置钱包")
	}

	return w.signer.Address(), nil
}

func (w *Wallet) SignPersonalMessage(ctx context.Context, message []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	return w.signer.Sign(message)
}

func (w *Wallet) SignAndExecuteTransaction(ctx context.Context, tx *authtx.Transaction) (*bcao.TransactionExecutionInfo, error) {
	if w.chain == nil {
		return nil, fmt.Errorf("钱包未连接链节点")
	}
	if tx.Sender == "" {
		tx.Sender = w.signer.Address()
	}

	txBytes, err := tx.Bytes()
	if err != nil {
		return nil, err
	}
	signature, err := w.signer.Sign(txBytes)
	if err != nil {
		return nil, errors.Wrap(err, "无法签名交易")
	}

	info, err := w.chain.ExecuteTransaction(ctx, txBytes, []string{signature})
	if err != nil {
		return nil, err
	}
	if !info.IsSuccess() {
		return info, fmt.Errorf("交易 %v 执行失败: %v", info.Digest, info.Error)
	}

	return info, nil
}

func deriveAddress(flag byte, publicKey []byte) string {
	data := append([]byte{flag}, publicKey...)
	switch flag {
	case FlagSM2:
		return hexutils.EncodeHex(sm3.Sm3Sum(data))
	default:
		return hexutils.EncodeHex(crypto.Keccak256(data))
	}
}

// VerifyPersonalMessage checks that signature was made over message by the holder of address.
func VerifyPersonalMessage(message []byte, signature string, address string) error {
	payload, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return errors.Wrap(err, "无法解析签名")
	}
	if len(payload) < 1 {
		return fmt.Errorf("签名为空")
	}

	var signer string
	switch payload[0] {
	case FlagSecp256k1:
		if len(payload) != 1+crypto.SignatureLength {
			return fmt.Errorf("secp256k1 签名长度不正确")
		}
		sig := append([]byte(nil), payload[1:]...)
		if sig[crypto.RecoveryIDOffset] >= 27 {
			sig[crypto.RecoveryIDOffset] -= 27
		}
		pub, err := crypto.SigToPub(accounts.TextHash(message), sig)
		if err != nil {
			return errors.Wrap(err, "无法从签名恢复公钥")
		}
		signer = deriveAddress(FlagSecp256k1, crypto.CompressPubkey(pub))
	case FlagSM2:
		if len(payload) <= 1+64 {
			return fmt.Errorf("SM2 签名长度不正确")
		}
		pub, err := cipherutils.DeserializeSM2PublicKey(payload[1:65])
		if err != nil {
			return err
		}
		if !pub.Verify(message, payload[65:]) {
			return fmt.Errorf("SM2 签名无效")
		}
		signer = deriveAddress(FlagSM2, payload[1:65])
	default:
		return fmt.Errorf("不支持的签名方案 0x%02x", payload[0])
	}

	if !hexutils.SameObjectID(signer, address) {
		return fmt.Errorf("签名者 %v 与地址 %v 不一致", signer, strings.ToLower(address))
	}

	return nil
}
