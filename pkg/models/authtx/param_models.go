package authtx

import (
	"bytes"
	"crypto/rand"
	"io"

	"gitee.com/czyczk/datawave/internal/utils/hexutils"
)

// Mode 为授权模式
type Mode string

const (
	// ModeAllowlist 表示调用者须在问卷的允许列表中
	ModeAllowlist Mode = "allowlist"
	// ModeSubscription 表示调用者须持有问卷订阅服务的有效订阅
	ModeSubscription Mode = "subscription"
)

// AuthorizationContext 描述解密请求所依据的授权上下文
type AuthorizationContext struct {
	Mode           Mode   `json:"mode,omitempty"`           // 授权模式，为空时由是否提供订阅信息推断
	SurveyID       string `json:"surveyId"`                 // 问卷（资源）ID
	SubscriptionID string `json:"subscriptionId,omitempty"` // 订阅对象 ID（仅订阅模式）
	ServiceID      string `json:"serviceId,omitempty"`      // 订阅服务对象 ID（仅订阅模式）
}

// IsSubscription 判断该上下文是否为订阅模式。
func (c *AuthorizationContext) IsSubscription() bool {
	if c.Mode != "" {
		return c.Mode == ModeSubscription
	}

	return c.SubscriptionID != "" || c.ServiceID != ""
}

// HasNamespace 判断密钥 ID 是否以问卷 ID 的字节为前缀。
func HasNamespace(keyID []byte, surveyID string) bool {
	namespace, err := hexutils.DecodeObjectID(surveyID)
	if err != nil {
		return false
	}

	return bytes.HasPrefix(keyID, namespace) && len(keyID) > len(namespace)
}

// KeyIDNonceSize 为密钥 ID 中问卷 ID 之后随机部分的长度
const KeyIDNonceSize = 16

// NewKeyID 在问卷 ID 的命名空间下生成一个新的密钥 ID。rnd 为空时使用 crypto/rand。
func NewKeyID(surveyID string, rnd io.Reader) ([]byte, error) {
	namespace, err := hexutils.DecodeObjectID(surveyID)
	if err != nil {
		return nil, err
	}
	if rnd == nil {
		rnd = rand.Reader
	}

	nonce := make([]byte, KeyIDNonceSize)
	if _, err = io.ReadFull(rnd, nonce); err != nil {
		return nil, err
	}

	return append(namespace, nonce...), nil
}
