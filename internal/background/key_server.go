package background

import (
	"context"
	"encoding/base64"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"gitee.com/czyczk/datawave/internal/seal"
	"gitee.com/czyczk/datawave/internal/utils/hexutils"
	"gitee.com/czyczk/datawave/internal/wallet"
	"gitee.com/czyczk/datawave/pkg/errorcode"
	"gitee.com/czyczk/datawave/pkg/models/authtx"
)

// DefaultPolicyTimeout bounds the chain reads made while checking a single key request.
const DefaultPolicyTimeout = 10 * time.Second

// AccessPolicy decides whether caller may receive the keys a transaction asks for.
// A rejection must wrap errorcode.ErrorNoAccess. Any other error is reported as the policy being unavailable.
type AccessPolicy interface {
	CheckAccess(ctx context.Context, caller string, tx *authtx.Transaction) error
}

// KeyServer releases user secret keys derived from its master key to callers the policy admits.
type KeyServer struct {
	ObjectID      string
	PackageID     string
	MasterKey     *seal.MasterKey
	Policy        AccessPolicy
	Addr          string           // Listening address used by Start.
	Now           func() time.Time // Defaults to time.Now.
	PolicyTimeout time.Duration

	packageIDBytes []byte
	engine         *gin.Engine
	httpServer     *http.Server
	listenAddr     net.Addr
	chanError      chan error
	serverStatus   *backgroundServerStatus
}

// NewKeyServer creates a key server. It does not listen until Start is called; Handler can be mounted elsewhere.
func NewKeyServer(objectID, packageID string, masterKey *seal.MasterKey, policy AccessPolicy, addr string) (*KeyServer, error) {
	normalizedObjectID, err := hexutils.NormalizeObjectID(objectID)
	if err != nil {
		return nil, errors.Wrap(err, "密钥服务器对象 ID 不合法")
	}
	normalizedPackageID, err := hexutils.NormalizeObjectID(packageID)
	if err != nil {
		return nil, errors.Wrap(err, "包 ID 不合法")
	}
	packageIDBytes, err := hexutils.DecodeObjectID(normalizedPackageID)
	if err != nil {
		return nil, err
	}
	if masterKey == nil {
		return nil, fmt.Errorf("主密钥不可为空")
	}
	if policy == nil {
		return nil, fmt.Errorf("访问策略不可为空")
	}

	s := &KeyServer{
		ObjectID:       normalizedObjectID,
		PackageID:      normalizedPackageID,
		MasterKey:      masterKey,
		Policy:         policy,
		Addr:           addr,
		PolicyTimeout:  DefaultPolicyTimeout,
		packageIDBytes: packageIDBytes,
		serverStatus:   newBackgroundServerStatus(),
	}

	s.engine = gin.New()
	s.engine.Use(gin.Recovery(), requestLogger())
	s.engine.POST(seal.FetchKeyPath, s.handleFetchKey)
	s.engine.GET(seal.ServicePath, s.handleServiceInfo)

	return s, nil
}

// Handler returns the HTTP handler serving the key server endpoints.
func (s *KeyServer) Handler() http.Handler {
	return s.engine
}

// ListenAddr returns the address the server is bound to after Start, or nil.
func (s *KeyServer) ListenAddr() net.Addr {
	return s.listenAddr
}

// Errors delivers the error that made the server stop serving unexpectedly.
func (s *KeyServer) Errors() <-chan error {
	return s.chanError
}

// Running reports whether the server is serving requests.
func (s *KeyServer) Running() bool {
	return s.serverStatus.current() == stateStarted
}

// Start binds Addr and serves requests in a new Go routine.
func (s *KeyServer) Start() error {
	log.Infoln("正在启动密钥服务器...")

	// Don't start the server again if it has been started.
	if state, ok := s.serverStatus.transit(stateStopped, stateStarting); !ok {
		return fmt.Errorf("密钥服务器%v", state)
	}

	listener, err := net.Listen("tcp", s.Addr)
	if err != nil {
		s.serverStatus.transit(stateStarting, stateStopped)
		return errors.Wrapf(err, "无法监听地址 '%v'", s.Addr)
	}

	s.listenAddr = listener.Addr()
	s.httpServer = &http.Server{Handler: s.engine}
	s.chanError = make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.chanError <- err
		}
	}()

	s.serverStatus.transit(stateStarting, stateStarted)
	log.Infof("密钥服务器 %v 已启动，监听于 %v。", s.ObjectID, s.listenAddr)

	return nil
}

// Stop gracefully shuts the server down, waiting at most 5 seconds for in-flight requests.
func (s *KeyServer) Stop() error {
	// Don't send stop signals again if the server has already been called to stop.
	if state, ok := s.serverStatus.transit(stateStarted, stateStopping); !ok {
		return fmt.Errorf("密钥服务器%v", state)
	}
	defer s.serverStatus.transit(stateStopping, stateStopped)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "无法正常关闭密钥服务器")
	}

	log.Infoln("密钥服务器已停止。")

	return nil
}

func (s *KeyServer) handleServiceInfo(c *gin.Context) {
	c.JSON(http.StatusOK, seal.ServiceInfoResponse{
		ObjectID:  s.ObjectID,
		PackageID: s.PackageID,
		PublicKey: base64.StdEncoding.EncodeToString(s.MasterKey.PublicKey()),
	})
}

func (s *KeyServer) handleFetchKey(c *gin.Context) {
	var req seal.FetchKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "InvalidRequest", "无法解析请求体")
		return
	}

	logger := log.WithField("request", req.RequestID)

	cert := &req.Certificate
	caller, err := hexutils.NormalizeObjectID(cert.User)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "InvalidCertificate", "证书中的用户地址不合法")
		return
	}
	if cert.TTLMin < seal.MinSessionTTLMin || cert.TTLMin > seal.MaxSessionTTLMin {
		abortWithError(c, http.StatusBadRequest, "InvalidCertificate", fmt.Sprintf("证书有效期 %v 分钟超出允许范围", cert.TTLMin))
		return
	}
	if cert.IsExpired(s.now()) {
		abortWithError(c, http.StatusUnauthorized, "InvalidCertificate", "证书已过期")
		return
	}
	message, err := cert.PersonalMessage(s.PackageID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "InvalidCertificate", err.Error())
		return
	}
	if err = wallet.VerifyPersonalMessage(message, cert.Signature, caller); err != nil {
		logger.Debugf("证书签名验证失败：%v", err)
		abortWithError(c, http.StatusUnauthorized, "InvalidCertificate", "证书签名无效")
		return
	}

	txBytes, err := base64.StdEncoding.DecodeString(req.PTB)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "InvalidPTB", "无法解析授权交易")
		return
	}
	if err = cert.VerifyRequestSignature(txBytes, req.RequestSignature); err != nil {
		abortWithError(c, http.StatusUnauthorized, "InvalidSignature", err.Error())
		return
	}
	tx, err := authtx.ParseTransaction(txBytes)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "InvalidPTB", err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.policyTimeout())
	defer cancel()
	if err = s.Policy.CheckAccess(ctx, caller, tx); err != nil {
		if errors.Cause(err) == errorcode.ErrorNoAccess {
			logger.Infof("拒绝 %v 的密钥请求：%v", caller, err)
			abortWithError(c, http.StatusForbidden, "NoAccess", err.Error())
			return
		}
		logger.Errorf("无法检查 %v 的访问权限：%v", caller, err)
		abortWithError(c, http.StatusServiceUnavailable, "Unavailable", "无法检查访问权限")
		return
	}

	resp := seal.FetchKeyResponse{RequestID: req.RequestID}
	seen := map[string]bool{}
	for i := range tx.Commands {
		id, err := tx.Commands[i].KeyID()
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "InvalidPTB", err.Error())
			return
		}
		idHex := hexutils.EncodeHex(id)
		if seen[idHex] {
			continue
		}
		seen[idHex] = true

		usk, err := s.MasterKey.ExtractUserSecretKey(seal.FullIdentity(s.packageIDBytes, id))
		if err != nil {
			logger.Errorf("无法为 ID %v 派生用户密钥：%v", idHex, err)
			abortWithError(c, http.StatusInternalServerError, "Internal", "无法派生用户密钥")
			return
		}
		resp.DecryptionKeys = append(resp.DecryptionKeys, seal.DecryptionKey{
			ID:  idHex,
			Key: base64.StdEncoding.EncodeToString(usk),
		})
	}

	logger.Debugf("已向 %v 发放 %v 个用户密钥。", caller, len(resp.DecryptionKeys))
	c.JSON(http.StatusOK, resp)
}

func (s *KeyServer) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}

	return time.Now()
}

func (s *KeyServer) policyTimeout() time.Duration {
	if s.PolicyTimeout > 0 {
		return s.PolicyTimeout
	}

	return DefaultPolicyTimeout
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, seal.ErrorResponse{Error: code, Message: message})
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start),
		}).Traceln("密钥服务器请求")
	}
}
