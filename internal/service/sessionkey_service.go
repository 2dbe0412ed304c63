package service

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"gitee.com/czyczk/datawave/internal/seal"
	"gitee.com/czyczk/datawave/internal/utils/hexutils"
	"gitee.com/czyczk/datawave/pkg/errorcode"
)

// SessionKeyService 实现了 `SessionKeyServiceInterface` 接口，提供有关于会话密钥的服务
type SessionKeyService struct {
	Store  SessionStore     // 本地键值存储，可为空
	Wallet WalletInterface  // 钱包，可为空
	Rand   io.Reader        // 生成会话密钥对所用的随机源，为空时使用 crypto/rand
	Now    func() time.Time // 当前时间，为空时使用 time.Now

	mu      sync.Mutex
	current *seal.SessionKey
}

// 获取钱包当前的账户地址。
//
// 返回：
//   账户地址
func (s *SessionKeyService) CurrentAddress(ctx context.Context) (string, error) {
	if s.Wallet == nil {
		return "", errors.Wrap(errorcode.ErrorNoWallet, "未配置钱包")
	}

	address, err := s.Wallet.GetCurrentAddress(ctx)
	if err != nil {
		return "", errors.Wrap(errorcode.ErrorNoWallet, err.Error())
	}
	if strings.TrimSpace(address) == "" {
		return "", errors.Wrap(errorcode.ErrorNoWallet, "钱包没有可用的账户")
	}

	return address, nil
}

// 确保存在一个有效的、与地址绑定的会话密钥。若本地已有可用的密钥则直接返回，否则创建新密钥并请求钱包签名。
//
// 参数：
//   账户地址
//   包 ID
//   有效期（分钟）
//
// 返回：
//   会话密钥
func (s *SessionKeyService) EnsureSessionKey(ctx context.Context, address string, packageID string, ttlMin int) (*seal.SessionKey, error) {
	if strings.TrimSpace(address) == "" {
		return nil, errors.Wrap(errorcode.ErrorNoWallet, "账户地址不能为空")
	}
	if ttlMin <= 0 {
		ttlMin = DefaultSessionKeyTTLMin
	}

	// 同一时间只允许一次签名请求
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.current != nil && s.current.IsUsableFor(address, packageID, now) {
		return s.current, nil
	}

	if stored := s.loadStored(); stored != nil && stored.IsUsableFor(address, packageID, now) {
		log.Debugf("使用本地保存的会话密钥，有效期至 %v", stored.ExpiresAt().Format(time.RFC3339))
		s.current = stored
		return stored, nil
	}

	// 钱包的当前账户须与请求的地址一致，否则签名无法通过验证
	walletAddress, err := s.CurrentAddress(ctx)
	if err != nil {
		return nil, err
	}
	if !hexutils.SameObjectID(walletAddress, address) {
		return nil, errors.Wrapf(errorcode.ErrorNoWallet, "钱包当前账户 %v 与 %v 不一致", walletAddress, address)
	}

	sessionKey, err := seal.NewSessionKey(address, packageID, ttlMin, s.Rand)
	if err != nil {
		return nil, err
	}

	signature, err := s.Wallet.SignPersonalMessage(ctx, sessionKey.PersonalMessage())
	if err != nil {
		return nil, errors.Wrap(errorcode.ErrorSignatureRejected, err.Error())
	}
	sessionKey.SetPersonalMessageSignature(signature)

	if err = s.persist(sessionKey); err != nil {
		log.Warnf("会话密钥仅在本次运行中有效: %v", err)
	}

	s.current = sessionKey
	log.Infof("已为 %v 创建会话密钥，有效期 %v 分钟", sessionKey.Address(), ttlMin)
	return sessionKey, nil
}

func (s *SessionKeyService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}

	return time.Now()
}

// loadStored 读取本地保存的会话密钥。读取或解析失败时视为不存在。
func (s *SessionKeyService) loadStored() *seal.SessionKey {
	if s.Store == nil {
		return nil
	}

	b, err := s.Store.Get(SessionKeyStoreKey)
	if err != nil {
		if errors.Cause(err) != errorcode.ErrorNotFound {
			log.Warnf("无法读取本地会话密钥: %v", err)
		}
		return nil
	}

	sessionKey, err := seal.ImportSessionKey(b)
	if err != nil {
		log.Warnf("本地会话密钥已损坏，将重新创建: %v", err)
		return nil
	}

	return sessionKey
}

func (s *SessionKeyService) persist(sessionKey *seal.SessionKey) error {
	if s.Store == nil {
		return nil
	}

	b, err := sessionKey.Export()
	if err != nil {
		return errors.Wrap(errorcode.ErrorPersistence, err.Error())
	}
	if err = s.Store.Set(SessionKeyStoreKey, b); err != nil {
		return errors.Wrap(errorcode.ErrorPersistence, err.Error())
	}

	return nil
}
