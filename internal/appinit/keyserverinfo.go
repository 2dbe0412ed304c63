package appinit

import (
	"fmt"
	"os"

	errors "github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"

	"gitee.com/czyczk/datawave/internal/seal"
	"gitee.com/czyczk/datawave/internal/utils/hexutils"
)

// KeyServerInfo is the Go struct for contents in keyserver.yaml.
type KeyServerInfo struct {
	ObjectID       string   `yaml:"objectId"`
	MasterKey      string   `yaml:"masterKey"` // The path to the hex encoded master key
	Addr           string   `yaml:"addr"`      // The listening address, e.g. ":2024"
	PolicyTimeout  string   `yaml:"policyTimeout"`
	Log            *LogInfo `yaml:"log"`
	ShowTimingLogs bool     `yaml:"showTimingLogs"`
}

// LoadKeyServerInfo loads the key server config file (in YAML).
//
// Parameters:
//   the path to the config file
//
// Returns:
//   the `KeyServerInfo` struct containing the info needed to start a key server
func LoadKeyServerInfo(configFilePath string) (ret KeyServerInfo, err error) {
	yamlBytes, err := os.ReadFile(configFilePath)
	if err != nil {
		err = errors.Wrap(err, "读取密钥服务器配置文件失败")
		return
	}

	err = yaml.Unmarshal(yamlBytes, &ret)
	if err != nil {
		err = errors.Wrap(err, "解析 YAML 文件时出现错误")
		return
	}

	if ret.ObjectID == "" || ret.MasterKey == "" {
		err = fmt.Errorf("密钥服务器配置中须指定对象 ID 和主密钥路径")
		return
	}
	if ret.Addr == "" {
		ret.Addr = ":2024"
	}
	if ret.Log == nil {
		ret.Log = &LogInfo{}
	}

	return
}

// LoadMasterKey reads a hex encoded master key written by the keygen command.
func LoadMasterKey(path string) (*seal.MasterKey, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "无法读取主密钥")
	}

	b, err := hexutils.DecodeHex(string(content))
	if err != nil {
		return nil, errors.Wrap(err, "无法解析主密钥")
	}

	return seal.MasterKeyFromBytes(b)
}
