package wallet

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/tjfoc/gmsm/sm2"

	"gitee.com/czyczk/datawave/internal/blockchain/bcao"
	"gitee.com/czyczk/datawave/pkg/models/authtx"
)

func newSM2Signer(t *testing.T) *SM2Signer {
	privKey, err := sm2.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	return NewSM2Signer(privKey)
}

func newSecp256k1Signer(t *testing.T) *Secp256k1Signer {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	return NewSecp256k1Signer(key)
}

func TestPersonalMessageSignatures(t *testing.T) {
	message := []byte("Accessing keys of package 0xaa for 10 mins")

	for name, signer := range map[string]Signer{"sm2": newSM2Signer(t), "secp256k1": newSecp256k1Signer(t)} {
		t.Run(name, func(t *testing.T) {
			assert.Len(t, signer.Address(), 66)

			sig, err := signer.Sign(message)
			if isNoError := assert.NoError(t, err); !isNoError {
				t.FailNow()
			}
			assert.NoError(t, VerifyPersonalMessage(message, sig, signer.Address()))

			// 消息被篡改
			assert.Error(t, VerifyPersonalMessage(append(message, '!'), sig, signer.Address()))
			// 地址不一致
			assert.Error(t, VerifyPersonalMessage(message, sig, "0x01"))
		})
	}
}

func TestVerifyPersonalMessageRejectsMalformed(t *testing.T) {
	assert.Error(t, VerifyPersonalMessage([]byte("m"), "%%%", "0x01"))
	assert.Error(t, VerifyPersonalMessage([]byte("m"), base64.StdEncoding.EncodeToString([]byte{0x09, 1, 2}), "0x01"))
	assert.Error(t, VerifyPersonalMessage([]byte("m"), base64.StdEncoding.EncodeToString([]byte{FlagSecp256k1, 1}), "0x01"))
	assert.Error(t, VerifyPersonalMessage([]byte("m"), base64.StdEncoding.EncodeToString([]byte{FlagSM2, 1}), "0x01"))
}

type recordingChain struct {
	bcao.IChainBCAO
	txBytes    []byte
	signatures []string
}

func (c *recordingChain) ExecuteTransaction(ctx context.Context, txBytes []byte, signatures []string) (*bcao.TransactionExecutionInfo, error) {
	c.txBytes = txBytes
	c.signatures = signatures
	return &bcao.TransactionExecutionInfo{Digest: "dg", Status: "success"}, nil
}

func TestSignAndExecuteTransaction(t *testing.T) {
	signer := newSM2Signer(t)
	chain := &recordingChain{}
	w := New(signer, chain)

	tx := &authtx.Transaction{Kind: authtx.TransactionKindProgrammable}
	info, err := w.SignAndExecuteTransaction(context.Background(), tx)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.Equal(t, "dg", info.Digest)
	assert.Equal(t, signer.Address(), tx.Sender)
	if isEqual := assert.Len(t, chain.signatures, 1); !isEqual {
		t.FailNow()
	}
	assert.NoError(t, VerifyPersonalMessage(chain.txBytes, chain.signatures[0], signer.Address()))

	_, err = New(signer, nil).SignAndExecuteTransaction(context.Background(), tx)
	assert.Error(t, err)
}

func TestNilWalletHasNoAddress(t *testing.T) {
	var w *Wallet
	_, err := w.GetCurrentAddress(context.Background())
	assert.Error(t, err)
}
