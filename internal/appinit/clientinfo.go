package appinit

import (
	"fmt"
	"os"
	"strings"
	"time"

	errors "github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"
)

// ClientInfo is the Go struct for contents in client.yaml.
type ClientInfo struct {
	Wallet         *WalletInfo       `yaml:"wallet"`
	SessionStore   *SessionStoreInfo `yaml:"sessionStore"`
	Log            *LogInfo          `yaml:"log"`
	Port           int               `yaml:"port"`
	ShowTimingLogs bool              `yaml:"showTimingLogs"`
	Decrypt        *DecryptInfo      `yaml:"decrypt"`
}

// Wallet types.
const (
	WalletTypeNone      = "none"
	WalletTypeSM2       = "sm2"
	WalletTypeSecp256k1 = "secp256k1"
)

// WalletInfo records which signer the wallet uses and where its private key is.
type WalletInfo struct {
	Type       string `yaml:"type"`       // "sm2", "secp256k1" or "none"
	PrivateKey string `yaml:"privateKey"` // The path to the private key (PEM for SM2, hex for secp256k1)
}

// Session store types.
const (
	SessionStoreTypeBadger = "badger"
	SessionStoreTypeMySQL  = "mysql"
	SessionStoreTypeMemory = "memory"
)

// SessionStoreInfo records where the session key is persisted.
type SessionStoreInfo struct {
	Type string `yaml:"type"` // "badger", "mysql" or "memory"
	Path string `yaml:"path"` // The badger directory
	DSN  string `yaml:"dsn"`  // The MySQL DSN
}

// LogInfo configures the logrus standard logger.
type LogInfo struct {
	Level  string `yaml:"level"`  // trace, debug, info, warn, error or fatal
	Format string `yaml:"format"` // text or json
}

// DecryptInfo tunes the batch decrypt process. Zero values fall back to the service defaults.
type DecryptInfo struct {
	BatchSize        int    `yaml:"batchSize"`
	Concurrency      int    `yaml:"concurrency"`
	FetchTimeout     string `yaml:"fetchTimeout"` // A Go duration string
	FetchMaxAttempts int    `yaml:"fetchMaxAttempts"`
	FetchConcurrency int    `yaml:"fetchConcurrency"`
	CacheSize        int    `yaml:"cacheSize"` // The number of decrypted answers kept in memory. 0 means unlimited.
	SessionTTLMin    int    `yaml:"sessionTtlMin"`
}

// LoadClientInfo loads the client config file (in YAML) and fills in the defaults.
//
// Parameters:
//   the path to the config file
//
// Returns:
//   the `ClientInfo` struct containing the info needed to run the client
func LoadClientInfo(configFilePath string) (ret ClientInfo, err error) {
	yamlBytes, err := os.ReadFile(configFilePath)
	if err != nil {
		err = errors.Wrap(err, "读取客户端配置文件失败")
		return
	}

	err = yaml.Unmarshal(yamlBytes, &ret)
	if err != nil {
		err = errors.Wrap(err, "解析 YAML 文件时出现错误")
		return
	}

	ret.fillDefaults()
	err = ret.validate()
	return
}

func (info *ClientInfo) fillDefaults() {
	if info.Wallet == nil {
		info.Wallet = &WalletInfo{Type: WalletTypeNone}
	}
	if info.SessionStore == nil {
		info.SessionStore = &SessionStoreInfo{Type: SessionStoreTypeBadger, Path: "session-store"}
	}
	if info.Log == nil {
		info.Log = &LogInfo{}
	}
	if info.Port == 0 {
		info.Port = 8081
	}
	if info.Decrypt == nil {
		info.Decrypt = &DecryptInfo{}
	}
}

func (info *ClientInfo) validate() error {
	switch strings.ToLower(info.Wallet.Type) {
	case "", WalletTypeNone:
	case WalletTypeSM2, WalletTypeSecp256k1:
		if info.Wallet.PrivateKey == "" {
			return fmt.Errorf("未指定钱包私钥的路径")
		}
	default:
		return fmt.Errorf("未知的钱包类型 '%v'", info.Wallet.Type)
	}

	switch strings.ToLower(info.SessionStore.Type) {
	case "", SessionStoreTypeBadger, SessionStoreTypeMemory:
	case SessionStoreTypeMySQL:
		if info.SessionStore.DSN == "" {
			return fmt.Errorf("使用 MySQL 存储会话密钥时须指定 DSN")
		}
	default:
		return fmt.Errorf("未知的会话存储类型 '%v'", info.SessionStore.Type)
	}

	if info.Decrypt.SessionTTLMin < 0 || info.Decrypt.SessionTTLMin > 30 {
		return fmt.Errorf("会话有效期应在 1 至 30 分钟之间")
	}
	if _, err := info.Decrypt.fetchTimeout(); err != nil {
		return err
	}

	return nil
}

func (info *DecryptInfo) fetchTimeout() (time.Duration, error) {
	if info.FetchTimeout == "" {
		return 0, nil
	}

	timeout, err := time.ParseDuration(info.FetchTimeout)
	if err != nil {
		return 0, errors.Wrapf(err, "下载超时时间 '%v' 不合法", info.FetchTimeout)
	}

	return timeout, nil
}
