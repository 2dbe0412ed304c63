package appinit

import (
	"net/http"
	"strings"
	"time"

	errors "github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"gitee.com/czyczk/datawave/internal/blockchain/bcao"
	"gitee.com/czyczk/datawave/internal/blockchain/bcao/suibcao"
	"gitee.com/czyczk/datawave/internal/db"
	"gitee.com/czyczk/datawave/internal/kvstore"
	"gitee.com/czyczk/datawave/internal/networkinfo"
	"gitee.com/czyczk/datawave/internal/seal"
	"gitee.com/czyczk/datawave/internal/service"
	"gitee.com/czyczk/datawave/internal/storage"
	"gitee.com/czyczk/datawave/internal/utils/timingutils"
	"gitee.com/czyczk/datawave/internal/wallet"
)

// keyServerRequestTimeout bounds a single HTTP exchange with a key server.
const keyServerRequestTimeout = 30 * time.Second

// Client bundles the services a DataWave client is made of.
type Client struct {
	PackageID     string
	ChainBCAO     *suibcao.ChainBCAOSuiImpl
	Wallet        *wallet.Wallet // nil when no wallet is configured
	SurveySvc     *service.SurveyService
	SessionKeySvc *service.SessionKeyService
	DecryptSvc    *service.DecryptService
	BlobSvc       *service.BlobService
	UploadSvc     *service.UploadService
	Planner       *service.DecryptPlanner
	Cache         *service.AnswerCache

	closers []func() error
}

// NewClient instantiates every client component from the client config and the network config.
func NewClient(info *ClientInfo, network *networkinfo.Config) (*Client, error) {
	timingutils.SetShowTimingLogs(info.ShowTimingLogs)

	chainCtx := network.ChainCtx()
	chainBCAO, err := suibcao.NewChainBCAOSuiImpl(chainCtx)
	if err != nil {
		return nil, err
	}

	client := &Client{
		PackageID: chainCtx.PackageID,
		ChainBCAO: chainBCAO,
		closers:   []func() error{func() error { chainBCAO.Close(); return nil }},
	}

	client.Wallet, err = NewWallet(info.Wallet, chainBCAO)
	if err != nil {
		client.Close()
		return nil, err
	}

	store, closeStore, err := NewSessionStore(info.SessionStore)
	if err != nil {
		client.Close()
		return nil, err
	}
	client.closers = append(client.closers, closeStore)

	keyClient, err := NewKeyServerClient(network)
	if err != nil {
		client.Close()
		return nil, err
	}

	fetchTimeout, _ := info.Decrypt.fetchTimeout()
	blobSvc := service.NewBlobService(NewGateways(network.Gateways))
	if fetchTimeout > 0 {
		blobSvc.Timeout = fetchTimeout
	}
	if info.Decrypt.FetchMaxAttempts > 0 {
		blobSvc.MaxAttempts = info.Decrypt.FetchMaxAttempts
	}
	if info.Decrypt.FetchConcurrency > 0 {
		blobSvc.Concurrency = info.Decrypt.FetchConcurrency
	}

	serviceInfo := &service.Info{ChainCtx: chainCtx, ChainBCAO: chainBCAO}
	client.SurveySvc = &service.SurveyService{ServiceInfo: serviceInfo}
	client.SessionKeySvc = &service.SessionKeyService{Store: store}
	if client.Wallet != nil {
		client.SessionKeySvc.Wallet = client.Wallet
	}
	client.BlobSvc = blobSvc
	client.UploadSvc = &service.UploadService{
		PackageID:   chainCtx.PackageID,
		KeyServers:  keyClient.Servers(),
		Threshold:   network.Threshold,
		BlobService: blobSvc,
	}
	client.Cache = service.NewAnswerCache(info.Decrypt.CacheSize)
	client.Planner = &service.DecryptPlanner{SurveyService: client.SurveySvc}
	client.DecryptSvc = &service.DecryptService{
		SessionKeyService: client.SessionKeySvc,
		AuthTxService:     &service.AuthTxService{PackageID: chainCtx.PackageID},
		BlobService:       blobSvc,
		KeyClient:         keyClient,
		Cache:             client.Cache,
		PackageID:         chainCtx.PackageID,
		SessionTTLMin:     info.Decrypt.SessionTTLMin,
		BatchSize:         info.Decrypt.BatchSize,
		Threshold:         network.Threshold,
		Concurrency:       info.Decrypt.Concurrency,
	}

	return client, nil
}

// Close releases the chain connection and the session store.
func (c *Client) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			log.Warnf("关闭客户端组件时出现错误：%v", err)
		}
	}
	c.closers = nil
}

// NewWallet creates the wallet described by info. It returns nil when no wallet is configured.
func NewWallet(info *WalletInfo, chain bcao.IChainBCAO) (*wallet.Wallet, error) {
	if info == nil {
		return nil, nil
	}

	var signer wallet.Signer
	switch strings.ToLower(info.Type) {
	case "", WalletTypeNone:
		log.Infoln("未配置钱包。")
		return nil, nil
	case WalletTypeSM2:
		sm2Signer, err := wallet.NewSM2SignerFromPEMFile(info.PrivateKey)
		if err != nil {
			return nil, err
		}
		signer = sm2Signer
	case WalletTypeSecp256k1:
		secpSigner, err := wallet.NewSecp256k1SignerFromHexFile(info.PrivateKey)
		if err != nil {
			return nil, err
		}
		signer = secpSigner
	default:
		return nil, errors.Errorf("未知的钱包类型 '%v'", info.Type)
	}

	log.Infof("已加载钱包，地址为 %v。", signer.Address())
	return wallet.New(signer, chain), nil
}

// NewSessionStore opens the key-value store the session key is persisted in and returns a function closing it.
func NewSessionStore(info *SessionStoreInfo) (service.SessionStore, func() error, error) {
	if info == nil {
		store := kvstore.NewMemoryStore()
		return store, store.Close, nil
	}

	switch strings.ToLower(info.Type) {
	case "", SessionStoreTypeBadger:
		store, err := kvstore.NewBadgerStore(info.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case SessionStoreTypeMySQL:
		gormDB, err := db.OpenMySQL(info.DSN)
		if err != nil {
			return nil, nil, err
		}
		closeDB := func() error {
			sqlDB, err := gormDB.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		}
		return db.NewSessionStoreGormImpl(gormDB), closeDB, nil
	case SessionStoreTypeMemory:
		store := kvstore.NewMemoryStore()
		return store, store.Close, nil
	}

	return nil, nil, errors.Errorf("未知的会话存储类型 '%v'", info.Type)
}

// NewGateways creates the storage gateway pool in config order.
func NewGateways(gateways []networkinfo.Gateway) []storage.Gateway {
	httpClient := &http.Client{}
	pool := make([]storage.Gateway, 0, len(gateways))
	for _, gateway := range gateways {
		switch strings.ToLower(gateway.Type) {
		case networkinfo.GatewayTypeAggregator:
			pool = append(pool, storage.NewAggregatorGateway(gateway.URL, gateway.PublisherURL, httpClient))
		case networkinfo.GatewayTypeIPFS:
			pool = append(pool, storage.NewIPFSGateway(gateway.URL, httpClient))
		}
	}

	return pool
}

// NewKeyServerClient creates the key server client for the key servers in the network config.
func NewKeyServerClient(network *networkinfo.Config) (*seal.KeyServerClient, error) {
	infos, err := network.KeyServerInfos()
	if err != nil {
		return nil, err
	}

	return seal.NewKeyServerClient(infos, &http.Client{Timeout: keyServerRequestTimeout})
}
