package networkinfo

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"gitee.com/czyczk/datawave/internal/blockchain/chaincodectx"
	"gitee.com/czyczk/datawave/internal/seal"
	"gitee.com/czyczk/datawave/internal/utils/hexutils"
)

// LoadConfig creates a `Config` object from the specified network config file and validates it.
//
// Parameters:
//   the path to the config file
//
// Returns:
//   an object containing the network config info
func LoadConfig(configFilePath string) (*Config, error) {
	yamlBytes, err := os.ReadFile(configFilePath)
	if err != nil {
		return nil, errors.Wrap(err, "读取网络配置文件失败")
	}

	var config *Config
	if err = yaml.Unmarshal(yamlBytes, &config); err != nil {
		return nil, errors.Wrap(err, "解析 YAML 文件时出现错误")
	}
	if config == nil {
		return nil, fmt.Errorf("网络配置文件为空")
	}
	if err = config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the parts of the config every command needs.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Chain.PackageID) == "" {
		return fmt.Errorf("网络配置中未指定包 ID")
	}
	if _, err := hexutils.NormalizeObjectID(c.Chain.PackageID); err != nil {
		return errors.Wrap(err, "网络配置中的包 ID 不合法")
	}
	if _, err := c.ChainTimeout(); err != nil {
		return err
	}
	if len(c.KeyServers) > 0 && (c.Threshold < 1 || c.Threshold > len(c.KeyServers)) {
		return fmt.Errorf("门限值 %v 应在 1 至 %v 之间", c.Threshold, len(c.KeyServers))
	}
	for i, gateway := range c.Gateways {
		switch strings.ToLower(gateway.Type) {
		case GatewayTypeAggregator, GatewayTypeIPFS:
		default:
			return fmt.Errorf("第 %v 个存储网关的类型 '%v' 未知", i+1, gateway.Type)
		}
		if strings.TrimSpace(gateway.URL) == "" {
			return fmt.Errorf("第 %v 个存储网关未指定地址", i+1)
		}
	}

	return nil
}

// ChainTimeout parses the per-call timeout of the chain node. Zero means the default.
func (c *Config) ChainTimeout() (time.Duration, error) {
	if c.Chain.Timeout == "" {
		return 0, nil
	}

	timeout, err := time.ParseDuration(c.Chain.Timeout)
	if err != nil {
		return 0, errors.Wrapf(err, "链节点超时时间 '%v' 不合法", c.Chain.Timeout)
	}

	return timeout, nil
}

// ChainCtx returns the chain context used by the chain access object.
func (c *Config) ChainCtx() *chaincodectx.SuiChainCtx {
	packageID, _ := hexutils.NormalizeObjectID(c.Chain.PackageID)
	timeout, _ := c.ChainTimeout()

	return &chaincodectx.SuiChainCtx{
		RPCURL:    c.Chain.RPCURL,
		PackageID: packageID,
		Timeout:   timeout,
	}
}

// KeyServerInfos decodes the key server section into the form the key server client expects.
func (c *Config) KeyServerInfos() ([]seal.KeyServerInfo, error) {
	if len(c.KeyServers) == 0 {
		return nil, fmt.Errorf("网络配置中未指定密钥服务器")
	}

	infos := make([]seal.KeyServerInfo, 0, len(c.KeyServers))
	for _, server := range c.KeyServers {
		publicKey, err := base64.StdEncoding.DecodeString(server.PublicKey)
		if err != nil {
			return nil, errors.Wrapf(err, "无法解析密钥服务器 %v 的公钥", server.ObjectID)
		}
		infos = append(infos, seal.KeyServerInfo{
			ObjectID:  server.ObjectID,
			URL:       strings.TrimRight(server.URL, "/"),
			PublicKey: publicKey,
		})
	}

	return infos, nil
}
