package seal

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"

	"gitee.com/czyczk/datawave/internal/utils/hexutils"
)

// Bounds of a session key lifetime in minutes.
const (
	MinSessionTTLMin = 1
	MaxSessionTTLMin = 30
)

// expiryLeeway is subtracted from the nominal lifetime so a key is not sent to a key server in its last seconds.
const expiryLeeway = 10 * time.Second

// SessionKey is a short-lived delegation from a wallet address to an ephemeral Ed25519 key.
// The wallet signs PersonalMessage once; afterwards every key request is signed by the session key only.
type SessionKey struct {
	address                  string
	packageID                string
	creationTimeMs           int64
	ttlMin                   int
	sessionKey               ed25519.PrivateKey
	personalMessageSignature string
}

// NewSessionKey creates an unsigned session key for address and packageID that lives ttlMin minutes from now.
func NewSessionKey(address, packageID string, ttlMin int, rnd io.Reader) (*SessionKey, error) {
	if ttlMin < MinSessionTTLMin || ttlMin > MaxSessionTTLMin {
		return nil, fmt.Errorf("会话密钥有效期应在 %v 至 %v 分钟之间，得到 %v", MinSessionTTLMin, MaxSessionTTLMin, ttlMin)
	}
	normalizedAddress, err := hexutils.NormalizeObjectID(address)
	if err != nil {
		return nil, errors.Wrap(err, "钱包地址不合法")
	}
	normalizedPackageID, err := hexutils.NormalizeObjectID(packageID)
	if err != nil {
		return nil, errors.Wrap(err, "包 ID 不合法")
	}
	if rnd == nil {
		rnd = cryptoRandReader
	}

	_, priv, err := ed25519.GenerateKey(rnd)
	if err != nil {
		return nil, errors.Wrap(err, "无法生成会话密钥对")
	}

	return &SessionKey{
		address:        normalizedAddress,
		packageID:      normalizedPackageID,
		creationTimeMs: time.Now().UnixMilli(),
		ttlMin:         ttlMin,
		sessionKey:     priv,
	}, nil
}

// Address is the wallet address the key is bound to.
func (k *SessionKey) Address() string { return k.address }

// PackageID is the package whose keys the session may request.
func (k *SessionKey) PackageID() string { return k.packageID }

// CreationTime returns when the key was created.
func (k *SessionKey) CreationTime() time.Time { return time.UnixMilli(k.creationTimeMs) }

// ExpiresAt returns the nominal end of the key's lifetime.
func (k *SessionKey) ExpiresAt() time.Time {
	return k.CreationTime().Add(time.Duration(k.ttlMin) * time.Minute)
}

// TTLMin returns the lifetime in minutes.
func (k *SessionKey) TTLMin() int { return k.ttlMin }

// IsExpired reports whether the key can no longer be used at the given instant.
func (k *SessionKey) IsExpired(now time.Time) bool {
	return !now.Before(k.ExpiresAt().Add(-expiryLeeway))
}

// IsUsableFor reports whether the key is unexpired and bound to address and packageID.
func (k *SessionKey) IsUsableFor(address, packageID string, now time.Time) bool {
	return !k.IsExpired(now) &&
		k.personalMessageSignature != "" &&
		hexutils.SameObjectID(k.address, address) &&
		hexutils.SameObjectID(k.packageID, packageID)
}

// VerificationKey returns the public half of the ephemeral session key.
func (k *SessionKey) VerificationKey() ed25519.PublicKey {
	return k.sessionKey.Public().(ed25519.PublicKey)
}

// PersonalMessage is the challenge the wallet signs to authorize this session key.
func (k *SessionKey) PersonalMessage() []byte {
	return PersonalMessageFor(k.packageID, k.ttlMin, k.creationTimeMs, k.VerificationKey())
}

// PersonalMessageFor rebuilds the challenge message from its parts. Key servers use it to check the wallet signature.
func PersonalMessageFor(packageID string, ttlMin int, creationTimeMs int64, vk ed25519.PublicKey) []byte {
	creation := time.UnixMilli(creationTimeMs).UTC().Format("2006-01-02 15:04:05")
	return []byte(fmt.Sprintf("Accessing keys of package %s for %d mins from %s UTC, session key %s",
		packageID, ttlMin, creation, base64.StdEncoding.EncodeToString(vk)))
}

// SetPersonalMessageSignature attaches the wallet's signature over PersonalMessage.
func (k *SessionKey) SetPersonalMessageSignature(signature string) {
	k.personalMessageSignature = signature
}

// PersonalMessageSignature returns the attached wallet signature, if any.
func (k *SessionKey) PersonalMessageSignature() string {
	return k.personalMessageSignature
}

// Certificate returns the delegation certificate sent along with key requests.
func (k *SessionKey) Certificate() (*Certificate, error) {
	if k.personalMessageSignature == "" {
		return nil, fmt.Errorf("会话密钥尚未被钱包签名")
	}

	return &Certificate{
		User:         k.address,
		SessionVK:    base64.StdEncoding.EncodeToString(k.VerificationKey()),
		CreationTime: k.creationTimeMs,
		TTLMin:       k.ttlMin,
		Signature:    k.personalMessageSignature,
	}, nil
}

// SignRequest signs the authorization transaction bytes of a key request with the session key.
func (k *SessionKey) SignRequest(txBytes []byte) string {
	return base64.StdEncoding.EncodeToString(ed25519.Sign(k.sessionKey, requestMessage(txBytes)))
}

func requestMessage(txBytes []byte) []byte {
	digest := sha256.Sum256(txBytes)
	return append([]byte("datawave-fetch-key:"), digest[:]...)
}

// ExportedSessionKey is the persisted form of a SessionKey.
type ExportedSessionKey struct {
	Address                  string `json:"address"`
	PackageID                string `json:"packageId"`
	CreationTimeMs           int64  `json:"creationTimeMs"`
	TTLMin                   int    `json:"ttlMin"`
	SessionKey               string `json:"sessionKey"`
	PersonalMessageSignature string `json:"personalMessageSignature,omitempty"`
}

// Export returns the persisted form of the key.
func (k *SessionKey) Export() ([]byte, error) {
	exported := ExportedSessionKey{
		Address:                  k.address,
		PackageID:                k.packageID,
		CreationTimeMs:           k.creationTimeMs,
		TTLMin:                   k.ttlMin,
		SessionKey:               base64.StdEncoding.EncodeToString(k.sessionKey.Seed()),
		PersonalMessageSignature: k.personalMessageSignature,
	}

	b, err := json.Marshal(exported)
	if err != nil {
		return nil, errors.Wrap(err, "无法序列化会话密钥")
	}

	return b, nil
}

// ImportSessionKey parses a key written by Export.
func ImportSessionKey(b []byte) (*SessionKey, error) {
	var exported ExportedSessionKey
	if err := json.Unmarshal(b, &exported); err != nil {
		return nil, errors.Wrap(err, "无法解析会话密钥")
	}

	seed, err := base64.StdEncoding.DecodeString(exported.SessionKey)
	if err != nil {
		return nil, errors.Wrap(err, "无法解析会话私钥")
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("会话私钥长度应为 %v 字节", ed25519.SeedSize)
	}

	return &SessionKey{
		address:                  exported.Address,
		packageID:                exported.PackageID,
		creationTimeMs:           exported.CreationTimeMs,
		ttlMin:                   exported.TTLMin,
		sessionKey:               ed25519.NewKeyFromSeed(seed),
		personalMessageSignature: exported.PersonalMessageSignature,
	}, nil
}

// Certificate binds a session verification key to a wallet address for a limited time.
type Certificate struct {
	User         string `json:"user"`
	SessionVK    string `json:"sessionVk"`
	CreationTime int64  `json:"creationTime"`
	TTLMin       int    `json:"ttlMin"`
	Signature    string `json:"signature"`
}

// VerificationKey decodes the session verification key.
func (c *Certificate) VerificationKey() (ed25519.PublicKey, error) {
	vk, err := base64.StdEncoding.DecodeString(c.SessionVK)
	if err != nil {
		return nil, errors.Wrap(err, "无法解析会话公钥")
	}
	if len(vk) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("会话公钥长度应为 %v 字节", ed25519.PublicKeySize)
	}

	return vk, nil
}

// IsExpired reports whether the certificate is outside its validity window at the given instant.
// Certificates claiming a creation time more than a minute in the future are treated as expired too.
func (c *Certificate) IsExpired(now time.Time) bool {
	creation := time.UnixMilli(c.CreationTime)
	if creation.After(now.Add(time.Minute)) {
		return true
	}

	return !now.Before(creation.Add(time.Duration(c.TTLMin) * time.Minute))
}

// PersonalMessage rebuilds the message the wallet signed for this certificate.
func (c *Certificate) PersonalMessage(packageID string) ([]byte, error) {
	vk, err := c.VerificationKey()
	if err != nil {
		return nil, err
	}

	return PersonalMessageFor(packageID, c.TTLMin, c.CreationTime, vk), nil
}

// VerifyRequestSignature checks a signature produced by SessionKey.SignRequest.
func (c *Certificate) VerifyRequestSignature(txBytes []byte, signature string) error {
	vk, err := c.VerificationKey()
	if err != nil {
		return err
	}
	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return errors.Wrap(err, "无法解析请求签名")
	}
	if !ed25519.Verify(vk, requestMessage(txBytes), sig) {
		return fmt.Errorf("请求签名无效")
	}

	return nil
}
