package seal

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bluele/gcache"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"gitee.com/czyczk/datawave/internal/utils/hexutils"
	"gitee.com/czyczk/datawave/pkg/errorcode"
)

// KeyServerClient requests user secret keys from a fixed set of key servers.
// Fetched keys are cached per (session key, identity, server) and expire with the session key.
type KeyServerClient struct {
	servers    []KeyServerInfo
	httpClient *http.Client
	keyCache   gcache.Cache
}

// NewKeyServerClient creates a client for servers. Object IDs are normalized; duplicates are rejected.
func NewKeyServerClient(servers []KeyServerInfo, httpClient *http.Client) (*KeyServerClient, error) {
	if len(servers) == 0 {
		return nil, fmt.Errorf("未配置密钥服务器")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	seen := map[string]bool{}
	normalized := make([]KeyServerInfo, 0, len(servers))
	for _, server := range servers {
		objectID, err := hexutils.NormalizeObjectID(server.ObjectID)
		if err != nil {
			return nil, errors.Wrap(err, "密钥服务器对象 ID 不合法")
		}
		if seen[objectID] {
			return nil, fmt.Errorf("密钥服务器 %v 重复配置", objectID)
		}
		if _, err := parseG2(server.PublicKey); err != nil {
			return nil, errors.Wrapf(err, "密钥服务器 %v 的公钥不合法", objectID)
		}
		seen[objectID] = true
		server.ObjectID = objectID
		normalized = append(normalized, server)
	}

	return &KeyServerClient{
		servers:    normalized,
		httpClient: httpClient,
		keyCache:   gcache.New(0).Build(),
	}, nil
}

// Servers returns the configured key servers.
func (c *KeyServerClient) Servers() []KeyServerInfo {
	return c.servers
}

// FetchKeysParams holds the inputs of FetchKeys.
type FetchKeysParams struct {
	IDs        [][]byte
	TxBytes    []byte
	SessionKey *SessionKey
	Threshold  int
}

type fetchResult struct {
	objectID string
	err      error
}

// FetchKeys makes sure that at least Threshold servers have released keys for every id in IDs.
// It contacts the servers concurrently and returns as soon as enough of them answered.
// If so many servers deny access that the threshold can no longer be met, the error wraps errorcode.ErrorNoAccess.
func (c *KeyServerClient) FetchKeys(ctx context.Context, p FetchKeysParams) error {
	if p.SessionKey == nil {
		return fmt.Errorf("会话密钥不可为空")
	}
	if len(p.IDs) == 0 {
		return nil
	}
	if p.Threshold < 1 || p.Threshold > len(c.servers) {
		return fmt.Errorf("门限值 %v 与密钥服务器数量 %v 不匹配", p.Threshold, len(c.servers))
	}
	packageID, err := hexutils.DecodeObjectID(p.SessionKey.PackageID())
	if err != nil {
		return err
	}

	fids := make([][]byte, 0, len(p.IDs))
	for _, id := range p.IDs {
		fids = append(fids, fullID(packageID, id))
	}

	complete := 0
	pending := []KeyServerInfo{}
	scope := cacheScope(p.SessionKey)
	for _, server := range c.servers {
		if c.hasAllKeys(scope, server.ObjectID, fids) {
			complete++
		} else {
			pending = append(pending, server)
		}
	}
	if complete >= p.Threshold {
		return nil
	}
	needed := p.Threshold - complete

	certificate, err := p.SessionKey.Certificate()
	if err != nil {
		return err
	}
	request := FetchKeyRequest{
		PTB:              base64.StdEncoding.EncodeToString(p.TxBytes),
		Certificate:      *certificate,
		RequestSignature: p.SessionKey.SignRequest(p.TxBytes),
		RequestID:        uuid.NewString(),
	}
	body, err := json.Marshal(request)
	if err != nil {
		return errors.Wrap(err, "无法序列化密钥请求")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan fetchResult, len(pending))
	for _, server := range pending {
		go func(server KeyServerInfo) {
			results <- fetchResult{objectID: server.ObjectID, err: c.fetchFromServer(ctx, server, p.SessionKey, body, p.IDs, fids)}
		}(server)
	}

	succeeded, denied := 0, 0
	var lastErr error
	for i := 0; i < len(pending); i++ {
		result := <-results
		if result.err == nil {
			succeeded++
			if succeeded >= needed {
				return nil
			}
			continue
		}

		log.Debugf("密钥服务器 %v 未返回密钥（请求 %v）：%v", result.objectID, request.RequestID, result.err)
		lastErr = result.err
		if errors.Cause(result.err) == errorcode.ErrorNoAccess {
			denied++
			if len(pending)-denied < needed {
				return errors.Wrapf(errorcode.ErrorNoAccess, "%v 个密钥服务器拒绝了访问", denied)
			}
		}
	}

	return errors.Wrapf(lastErr, "只从 %v 个密钥服务器获得了密钥，需要 %v 个", succeeded, needed)
}

func (c *KeyServerClient) fetchFromServer(ctx context.Context, server KeyServerInfo, sk *SessionKey, body []byte, ids, fids [][]byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, server.URL+FetchKeyPath, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "无法构造密钥请求")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "无法连接密钥服务器 %v", server.URL)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "无法读取密钥服务器响应")
	}
	if resp.StatusCode == http.StatusForbidden {
		return errors.Wrapf(errorcode.ErrorNoAccess, "密钥服务器 %v 拒绝访问：%v", server.ObjectID, string(respBody))
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("密钥服务器 %v 返回状态码 %v：%v", server.ObjectID, resp.StatusCode, string(respBody))
	}

	var fetched FetchKeyResponse
	if err = json.Unmarshal(respBody, &fetched); err != nil {
		return errors.Wrap(err, "无法解析密钥服务器响应")
	}
	keysByID := map[string]string{}
	for _, key := range fetched.DecryptionKeys {
		idBytes, err := hexutils.DecodeHex(key.ID)
		if err != nil {
			continue
		}
		keysByID[hex.EncodeToString(idBytes)] = key.Key
	}

	scope := cacheScope(sk)
	for i, id := range ids {
		encodedKey, ok := keysByID[hex.EncodeToString(id)]
		if !ok {
			return fmt.Errorf("密钥服务器 %v 未返回 ID %v 的密钥", server.ObjectID, hexutils.EncodeHex(id))
		}
		usk, err := base64.StdEncoding.DecodeString(encodedKey)
		if err != nil {
			return errors.Wrap(err, "无法解析用户密钥")
		}
		if err = VerifyUserSecretKey(usk, fids[i], server.PublicKey); err != nil {
			return errors.Wrapf(err, "密钥服务器 %v 返回的密钥未通过验证", server.ObjectID)
		}
		// 密钥只在会话密钥有效期内可复用
		if ttl := time.Until(sk.ExpiresAt()); ttl > 0 {
			_ = c.keyCache.SetWithExpire(keyCacheKey(scope, fids[i], server.ObjectID), usk, ttl)
		}
	}

	return nil
}

func (c *KeyServerClient) hasAllKeys(scope, objectID string, fids [][]byte) bool {
	for _, fid := range fids {
		if _, err := c.keyCache.Get(keyCacheKey(scope, fid, objectID)); err != nil {
			return false
		}
	}

	return true
}

func (c *KeyServerClient) cachedKeys(sk *SessionKey, obj *EncryptedObject) map[string][]byte {
	scope := cacheScope(sk)
	fid := obj.FullID()
	keys := map[string][]byte{}
	for _, service := range obj.Services {
		value, err := c.keyCache.Get(keyCacheKey(scope, fid, service))
		if err != nil {
			continue
		}
		keys[service] = value.([]byte)
	}

	return keys
}

// cacheScope identifies the session key that authorized a fetch.
func cacheScope(sk *SessionKey) string {
	return hex.EncodeToString(sk.VerificationKey())
}

func keyCacheKey(scope string, fid []byte, objectID string) string {
	return scope + "/" + hex.EncodeToString(fid) + "@" + objectID
}

// DecryptParams holds the inputs of Decrypt.
type DecryptParams struct {
	Data       []byte
	SessionKey *SessionKey
	// TxBytes authorizes the object's id alone. It is only sent when the keys are not cached yet.
	TxBytes []byte
}

// Decrypt opens a sealed blob, fetching the keys it still lacks first.
func (c *KeyServerClient) Decrypt(ctx context.Context, p DecryptParams) ([]byte, error) {
	obj, err := ParseEncryptedObject(p.Data)
	if err != nil {
		return nil, err
	}
	if p.SessionKey == nil {
		return nil, fmt.Errorf("会话密钥不可为空")
	}
	if !hexutils.SameObjectID(hexutils.EncodeHex(obj.PackageID), p.SessionKey.PackageID()) {
		return nil, fmt.Errorf("加密对象属于包 %v，与会话密钥的包不一致", hexutils.EncodeHex(obj.PackageID))
	}

	keys := c.cachedKeys(p.SessionKey, obj)
	if len(keys) < obj.Threshold {
		err = c.FetchKeys(ctx, FetchKeysParams{
			IDs:        [][]byte{obj.ID},
			TxBytes:    p.TxBytes,
			SessionKey: p.SessionKey,
			Threshold:  obj.Threshold,
		})
		if err != nil {
			return nil, err
		}
		keys = c.cachedKeys(p.SessionKey, obj)
	}

	return DecryptWithKeys(obj, keys)
}

// FetchServiceInfo asks a key server for its object ID and public key and compares them with the configuration.
func (c *KeyServerClient) FetchServiceInfo(ctx context.Context, server KeyServerInfo) (*ServiceInfoResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+ServicePath, nil)
	if err != nil {
		return nil, errors.Wrap(err, "无法构造请求")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "无法连接密钥服务器 %v", server.URL)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("密钥服务器 %v 返回状态码 %v", server.URL, resp.StatusCode)
	}

	var info ServiceInfoResponse
	if err = json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, errors.Wrap(err, "无法解析密钥服务器信息")
	}
	if !hexutils.SameObjectID(info.ObjectID, server.ObjectID) {
		return &info, fmt.Errorf("密钥服务器 %v 报告的对象 ID 为 %v", server.URL, info.ObjectID)
	}
	if info.PublicKey != base64.StdEncoding.EncodeToString(server.PublicKey) {
		return &info, fmt.Errorf("密钥服务器 %v 的公钥与配置不一致", server.URL)
	}

	return &info, nil
}
