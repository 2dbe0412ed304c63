package sm2keyutils

import (
	"encoding/pem"
	"fmt"
	"math/big"
	"os"

	"github.com/pkg/errors"
	"github.com/tjfoc/gmsm/sm2"
	"github.com/tjfoc/gmsm/x509"
)

// ConvertPEMToPrivateKey converts a PEM formatted private key to an `sm2.PrivateKey` object.
func ConvertPEMToPrivateKey(pemBytes []byte) (*sm2.PrivateKey, error) {
	decodedPrivKeyBlock, _ := pem.Decode(pemBytes)
	if decodedPrivKeyBlock == nil {
		return nil, fmt.Errorf("cannot convert PEM to SM2 private key: no PEM block found")
	}

	parsedPrivKey, err := x509.ParsePKCS8UnecryptedPrivateKey(decodedPrivKeyBlock.Bytes)
	if err != nil {
		return nil, errors.Wrap(err, "cannot convert PEM to SM2 private key")
	}

	return parsedPrivKey, nil
}

// ConvertPrivateKeyToPEM converts an `sm2.PrivateKey` object to PEM formatted bytes.
func ConvertPrivateKeyToPEM(privKey *sm2.PrivateKey) ([]byte, error) {
	privKeyDer, err := x509.MarshalSm2UnecryptedPrivateKey(privKey)
	if err != nil {
		return nil, errors.Wrap(err, "cannot convert private key to PEM")
	}

	privKeyPemBlock := pem.Block{
		Type:  "PRIVATE KEY",
		Bytes: privKeyDer,
	}

	return pem.EncodeToMemory(&privKeyPemBlock), nil
}

// ConvertBigIntegerToPrivateKey converts a big integer to an `sm2.PrivateKey` object.
func ConvertBigIntegerToPrivateKey(d *big.Int) *sm2.PrivateKey {
	c := sm2.P256Sm2()

	priv := new(sm2.PrivateKey)
	priv.PublicKey.Curve = c
	priv.D = d
	priv.PublicKey.X, priv.PublicKey.Y = c.ScalarBaseMult(d.Bytes())

	return priv
}

// ConvertPEMToPublicKey converts a PEM formatted public key to an `sm2.PublicKey` object.
func ConvertPEMToPublicKey(pemBytes []byte) (*sm2.PublicKey, error) {
	decodedPubKeyBlock, _ := pem.Decode(pemBytes)
	if decodedPubKeyBlock == nil {
		return nil, fmt.Errorf("cannot convert PEM to SM2 public key: no PEM block found")
	}

	parsedPubKey, err := x509.ParseSm2PublicKey(decodedPubKeyBlock.Bytes)
	if err != nil {
		return nil, errors.Wrap(err, "cannot convert PEM to SM2 public key")
	}

	return parsedPubKey, nil
}

// ConvertPublicKeyToPEM converts an `sm2.PublicKey` object to PEM formatted bytes.
func ConvertPublicKeyToPEM(pubKey *sm2.PublicKey) ([]byte, error) {
	pubKeyDer, err := x509.MarshalSm2PublicKey(pubKey)
	if err != nil {
		return nil, errors.Wrap(err, "cannot convert public key to PEM")
	}

	pubKeyPemBlock := pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: pubKeyDer,
	}

	return pem.EncodeToMemory(&pubKeyPemBlock), nil
}

// ConvertBigIntegersToPublicKey converts two big integers (a point on curve P256Sm2) to an `sm2.PublicKey` object.
func ConvertBigIntegersToPublicKey(x *big.Int, y *big.Int) (*sm2.PublicKey, error) {
	c := sm2.P256Sm2()
	if isOnCurve := c.IsOnCurve(x, y); !isOnCurve {
		return nil, fmt.Errorf("cannot convert big integers to public key because the point is not on curve P256Sm2")
	}

	pub := new(sm2.PublicKey)
	pub.Curve = c
	pub.X = x
	pub.Y = y

	return pub, nil
}

// LoadPrivateKeyFromPEMFile reads a PEM file written by the keygen tool and parses the SM2 private key in it.
func LoadPrivateKeyFromPEMFile(path string) (*sm2.PrivateKey, error) {
	pemBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read private key file '%v'", path)
	}

	return ConvertPEMToPrivateKey(pemBytes)
}
