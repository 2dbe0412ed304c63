package appinit

import (
	"time"

	errors "github.com/pkg/errors"

	"gitee.com/czyczk/datawave/internal/background"
	"gitee.com/czyczk/datawave/internal/blockchain/bcao/suibcao"
	"gitee.com/czyczk/datawave/internal/networkinfo"
	"gitee.com/czyczk/datawave/internal/service"
	"gitee.com/czyczk/datawave/internal/utils/timingutils"
)

// NewKeyServer creates a key server whose access policy reads the chain described by the network config.
// The returned function closes the chain connection.
func NewKeyServer(info *KeyServerInfo, network *networkinfo.Config) (*background.KeyServer, func(), error) {
	timingutils.SetShowTimingLogs(info.ShowTimingLogs)

	masterKey, err := LoadMasterKey(info.MasterKey)
	if err != nil {
		return nil, nil, err
	}

	chainCtx := network.ChainCtx()
	chainBCAO, err := suibcao.NewChainBCAOSuiImpl(chainCtx)
	if err != nil {
		return nil, nil, err
	}

	policy := &service.ChainAccessPolicy{
		SurveyService: &service.SurveyService{ServiceInfo: &service.Info{ChainCtx: chainCtx, ChainBCAO: chainBCAO}},
		PackageID:     chainCtx.PackageID,
	}

	ks, err := background.NewKeyServer(info.ObjectID, chainCtx.PackageID, masterKey, policy, info.Addr)
	if err != nil {
		chainBCAO.Close()
		return nil, nil, err
	}
	if info.PolicyTimeout != "" {
		timeout, err := time.ParseDuration(info.PolicyTimeout)
		if err != nil {
			chainBCAO.Close()
			return nil, nil, errors.Wrapf(err, "访问策略超时时间 '%v' 不合法", info.PolicyTimeout)
		}
		ks.PolicyTimeout = timeout
	}

	return ks, chainBCAO.Close, nil
}
