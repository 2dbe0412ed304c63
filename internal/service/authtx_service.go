package service

import (
	"strings"

	"github.com/pkg/errors"

	"gitee.com/czyczk/datawave/internal/utils/hexutils"
	"gitee.com/czyczk/datawave/pkg/errorcode"
	"gitee.com/czyczk/datawave/pkg/models/authtx"
)

const (
	surveyModuleName       = "survey"
	subscriptionModuleName = "subscription"
)

// AuthTxService 实现了 `AuthTxServiceInterface` 接口。它不持有可变状态，可以为每一批密钥 ID 重复构造交易。
type AuthTxService struct {
	PackageID string // 问卷合约的包 ID
}

// 检查授权上下文是否完整。
//
// 参数：
//   授权上下文
func (s *AuthTxService) ValidateContext(authCtx authtx.AuthorizationContext) error {
	if strings.TrimSpace(authCtx.SurveyID) == "" {
		return errors.Wrap(errorcode.ErrorMissingContext, "问卷 ID 不能为空")
	}
	if _, err := hexutils.DecodeObjectID(authCtx.SurveyID); err != nil {
		return errors.Wrapf(errorcode.ErrorMissingContext, "问卷 ID '%v' 不合法", authCtx.SurveyID)
	}

	if !authCtx.IsSubscription() {
		return nil
	}
	if strings.TrimSpace(authCtx.SubscriptionID) == "" {
		return errors.Wrap(errorcode.ErrorMissingContext, "订阅模式下订阅 ID 不能为空")
	}
	if strings.TrimSpace(authCtx.ServiceID) == "" {
		return errors.Wrap(errorcode.ErrorMissingContext, "订阅模式下订阅服务 ID 不能为空")
	}

	return nil
}

// 构造授权交易。每个密钥 ID 对应一条授权调用。
//
// 参数：
//   密钥 ID 列表
//   授权上下文
//
// 返回：
//   未签名的授权交易
func (s *AuthTxService) BuildAuthorization(ids [][]byte, authCtx authtx.AuthorizationContext) (*authtx.Transaction, error) {
	if len(ids) == 0 {
		return nil, errors.Wrap(errorcode.ErrorMissingContext, "密钥 ID 列表不能为空")
	}
	if err := s.ValidateContext(authCtx); err != nil {
		return nil, err
	}

	// 每个密钥 ID 都须以问卷 ID 为前缀，否则不得以该问卷的授权规则去请求密钥
	for _, id := range ids {
		if !authtx.HasNamespace(id, authCtx.SurveyID) {
			return nil, errors.Wrapf(errorcode.ErrorNamespaceMismatch, "密钥 ID %v 不属于问卷 %v", hexutils.EncodeHex(id), authCtx.SurveyID)
		}
	}

	surveyID, _ := hexutils.NormalizeObjectID(authCtx.SurveyID)
	tx := &authtx.Transaction{
		Kind:     authtx.TransactionKindProgrammable,
		Commands: make([]authtx.MoveCall, 0, len(ids)),
	}
	for _, id := range ids {
		var call authtx.MoveCall
		if authCtx.IsSubscription() {
			subscriptionID, err := hexutils.NormalizeObjectID(authCtx.SubscriptionID)
			if err != nil {
				return nil, errors.Wrap(errorcode.ErrorMissingContext, "订阅 ID 不合法")
			}
			serviceID, err := hexutils.NormalizeObjectID(authCtx.ServiceID)
			if err != nil {
				return nil, errors.Wrap(errorcode.ErrorMissingContext, "订阅服务 ID 不合法")
			}
			call = authtx.MoveCall{
				Package:  s.PackageID,
				Module:   subscriptionModuleName,
				Function: authtx.ApproveFunctionName,
				Arguments: []authtx.Argument{
					authtx.PureBytes(id),
					authtx.ObjectRef(subscriptionID),
					authtx.ObjectRef(serviceID),
					authtx.ObjectRef(authtx.ClockObjectID),
				},
			}
		} else {
			call = authtx.MoveCall{
				Package:  s.PackageID,
				Module:   surveyModuleName,
				Function: authtx.ApproveFunctionName,
				Arguments: []authtx.Argument{
					authtx.PureBytes(id),
					authtx.ObjectRef(surveyID),
				},
			}
		}
		tx.Commands = append(tx.Commands, call)
	}

	return tx, nil
}
