package service

import (
	"context"

	"gitee.com/czyczk/datawave/internal/seal"
)

// DefaultSessionKeyTTLMin 为会话密钥的默认有效期（分钟）
const DefaultSessionKeyTTLMin = 10

// SessionKeyStoreKey 为会话密钥在本地键值存储中的键
const SessionKeyStoreKey = "sessionKey"

// SessionStore 为持久化会话密钥所用的键值存储。键不存在时 Get 返回 `errorcode.ErrorNotFound`。
type SessionStore interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
}

// WalletInterface 为会话密钥服务所需的钱包能力
type WalletInterface interface {
	GetCurrentAddress(ctx context.Context) (string, error)
	SignPersonalMessage(ctx context.Context, message []byte) (string, error)
}

// SessionKeyServiceInterface 定义了有关于会话密钥的服务的接口
type SessionKeyServiceInterface interface {
	// 获取钱包当前的账户地址。
	//
	// 返回：
	//   账户地址
	CurrentAddress(ctx context.Context) (string, error)

	// 确保存在一个有效的、与地址绑定的会话密钥。若本地已有可用的密钥则直接返回，否则创建新密钥并请求钱包签名。
	//
	// 参数：
	//   账户地址
	//   包 ID
	//   有效期（分钟）
	//
	// 返回：
	//   会话密钥
	EnsureSessionKey(ctx context.Context, address string, packageID string, ttlMin int) (*seal.SessionKey, error)
}
