package main

import (
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/big"
	"os"
	"path"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/tjfoc/gmsm/sm2"

	"gitee.com/czyczk/datawave/internal/seal"
	"gitee.com/czyczk/datawave/internal/wallet"
	"gitee.com/czyczk/datawave/pkg/sm2keyutils"
)

func generateKeys(dirKeys string, config *keyConfig) error {
	// Exit if the dir exists
	if _, err := os.Stat(dirKeys); err == nil {
		return fmt.Errorf("the keys are already generated. Delete the folder first before running again")
	}

	for _, entry := range config.Wallets {
		if err := generateWallet(path.Join(dirKeys, "wallets", entry.Name), entry); err != nil {
			return err
		}
	}

	for _, name := range config.KeyServers {
		if err := generateMasterKey(path.Join(dirKeys, "keyservers", name)); err != nil {
			return errors.Wrapf(err, "cannot generate the master key for '%v'", name)
		}
	}

	return nil
}

func generateWallet(dir string, entry walletEntry) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	var address string
	switch entry.Type {
	case "sm2":
		privKey, err := sm2PrivateKey(entry.Scalar)
		if err != nil {
			return errors.Wrapf(err, "cannot prepare a private key for '%v'", entry.Name)
		}
		privKeyPem, err := sm2keyutils.ConvertPrivateKeyToPEM(privKey)
		if err != nil {
			return errors.Wrapf(err, "cannot save the private key for '%v'", entry.Name)
		}
		if err = os.WriteFile(path.Join(dir, "sk"), privKeyPem, 0600); err != nil {
			return err
		}
		pubKeyPem, err := sm2keyutils.ConvertPublicKeyToPEM(&privKey.PublicKey)
		if err != nil {
			return errors.Wrapf(err, "cannot save the public key for '%v'", entry.Name)
		}
		if err = os.WriteFile(path.Join(dir, entry.Name+".pem"), pubKeyPem, 0644); err != nil {
			return err
		}
		address = wallet.NewSM2Signer(privKey).Address()
	case "secp256k1":
		privKey, err := secp256k1PrivateKey(entry.Scalar)
		if err != nil {
			return errors.Wrapf(err, "cannot prepare a private key for '%v'", entry.Name)
		}
		if err = os.WriteFile(path.Join(dir, "sk"), []byte(hex.EncodeToString(crypto.FromECDSA(privKey))), 0600); err != nil {
			return err
		}
		address = wallet.NewSecp256k1Signer(privKey).Address()
	default:
		return fmt.Errorf("unknown wallet type '%v' for '%v'", entry.Type, entry.Name)
	}

	log.Infof("Generated %v wallet '%v' with address %v", entry.Type, entry.Name, address)
	return os.WriteFile(path.Join(dir, "address"), []byte(address), 0644)
}

func sm2PrivateKey(scalar string) (*sm2.PrivateKey, error) {
	if scalar == "" {
		return sm2.GenerateKey(rand.Reader)
	}

	d, ok := new(big.Int).SetString(strings.TrimPrefix(scalar, "0x"), 16)
	if !ok || d.Sign() <= 0 || d.Cmp(sm2.P256Sm2().Params().N) >= 0 {
		return nil, fmt.Errorf("the scalar is not a valid SM2 private key")
	}

	return sm2keyutils.ConvertBigIntegerToPrivateKey(d), nil
}

func secp256k1PrivateKey(scalar string) (*ecdsa.PrivateKey, error) {
	if scalar == "" {
		return crypto.GenerateKey()
	}

	return crypto.HexToECDSA(strings.TrimPrefix(scalar, "0x"))
}

func generateMasterKey(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	msk, err := seal.GenerateMasterKey(rand.Reader)
	if err != nil {
		return err
	}

	// The master key is read back by the key server and the public key goes into network.yaml
	if err = os.WriteFile(path.Join(dir, "master.key"), []byte(hex.EncodeToString(msk.Bytes())), 0600); err != nil {
		return err
	}

	return os.WriteFile(path.Join(dir, "public.key"), []byte(base64.StdEncoding.EncodeToString(msk.PublicKey())), 0644)
}
