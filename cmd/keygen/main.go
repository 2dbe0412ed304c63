package main

import (
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

// keyConfig lists the keys to generate.
type keyConfig struct {
	Wallets    []walletEntry `yaml:"wallets"`
	KeyServers []string      `yaml:"keyServers"`
}

type walletEntry struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"` // "sm2" or "secp256k1"
	// Scalar imports an existing private key given as a hex integer instead of generating one
	Scalar string `yaml:"scalar"`
}

func main() {
	dirKeys := "keys"

	// Load the config, generate and save keys
	filePath := "cmd/keygen/keys.yaml"
	if len(os.Args) > 1 {
		filePath = os.Args[1]
	}
	config, err := loadConfig(filePath)
	if err != nil {
		log.Fatalln(err)
	}

	if err = generateKeys(dirKeys, config); err != nil {
		log.Fatalln(err)
	}
}

func loadConfig(filePath string) (*keyConfig, error) {
	fileBytes, err := os.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrap(err, "cannot read config file")
	}

	config := &keyConfig{}
	if err = yaml.Unmarshal(fileBytes, config); err != nil {
		return nil, errors.Wrap(err, "cannot load config file")
	}

	return config, nil
}
