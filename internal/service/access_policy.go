package service

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"gitee.com/czyczk/datawave/internal/utils/hexutils"
	"gitee.com/czyczk/datawave/pkg/errorcode"
	"gitee.com/czyczk/datawave/pkg/models/authtx"
	"gitee.com/czyczk/datawave/pkg/models/survey"
)

// ChainAccessPolicy 依据链上状态判断授权交易中的每条调用能否通过。密钥服务器以它作为访问控制的唯一依据。
type ChainAccessPolicy struct {
	SurveyService SurveyServiceInterface
	PackageID     string           // 问卷合约的包 ID
	Now           func() time.Time // 当前时间，为空时使用 time.Now
}

// CheckAccess 检查 caller 是否可以获取交易中每条调用所请求的密钥。任一调用未通过时返回 `errorcode.ErrorNoAccess`。
func (p *ChainAccessPolicy) CheckAccess(ctx context.Context, caller string, tx *authtx.Transaction) error {
	if len(tx.Commands) == 0 {
		return errors.Wrap(errorcode.ErrorNoAccess, "授权交易不包含任何调用")
	}

	surveys := map[string]*survey.SurveyStored{}
	for i := range tx.Commands {
		call := &tx.Commands[i]
		if !hexutils.SameObjectID(call.Package, p.PackageID) || call.Function != authtx.ApproveFunctionName {
			return errors.Wrapf(errorcode.ErrorNoAccess, "不允许调用 %v", call.Target())
		}
		keyID, err := call.KeyID()
		if err != nil {
			return errors.Wrap(errorcode.ErrorNoAccess, err.Error())
		}

		switch call.Module {
		case surveyModuleName:
			err = p.checkAllowlist(ctx, caller, call, keyID, surveys)
		case subscriptionModuleName:
			err = p.checkSubscription(ctx, caller, call, keyID)
		default:
			err = errors.Wrapf(errorcode.ErrorNoAccess, "未知的授权模块 %v", call.Module)
		}
		if err != nil {
			return err
		}
	}

	return nil
}

func (p *ChainAccessPolicy) checkAllowlist(ctx context.Context, caller string, call *authtx.MoveCall, keyID []byte, surveys map[string]*survey.SurveyStored) error {
	surveyID, err := call.ObjectArgument(1)
	if err != nil {
		return errors.Wrap(errorcode.ErrorNoAccess, err.Error())
	}
	if !authtx.HasNamespace(keyID, surveyID) {
		return errors.Wrapf(errorcode.ErrorNoAccess, "密钥 ID %v 不属于问卷 %v", hexutils.EncodeHex(keyID), surveyID)
	}

	stored, ok := surveys[surveyID]
	if !ok {
		stored, err = p.SurveyService.GetSurvey(ctx, surveyID)
		if err != nil {
			return p.lookupError(err, "问卷", surveyID)
		}
		surveys[surveyID] = stored
	}
	if !isAllowlisted(stored, caller) {
		return errors.Wrapf(errorcode.ErrorNoAccess, "%v 不在问卷 %v 的允许列表中", caller, surveyID)
	}

	return nil
}

func (p *ChainAccessPolicy) checkSubscription(ctx context.Context, caller string, call *authtx.MoveCall, keyID []byte) error {
	subscriptionID, err := call.ObjectArgument(1)
	if err != nil {
		return errors.Wrap(errorcode.ErrorNoAccess, err.Error())
	}
	serviceID, err := call.ObjectArgument(2)
	if err != nil {
		return errors.Wrap(errorcode.ErrorNoAccess, err.Error())
	}
	clockID, err := call.ObjectArgument(3)
	if err != nil || !hexutils.SameObjectID(clockID, authtx.ClockObjectID) {
		return errors.Wrap(errorcode.ErrorNoAccess, "订阅授权须引用时钟对象")
	}

	service, err := p.SurveyService.GetService(ctx, serviceID)
	if err != nil {
		return p.lookupError(err, "订阅服务", serviceID)
	}
	if !authtx.HasNamespace(keyID, service.SurveyID) {
		return errors.Wrapf(errorcode.ErrorNoAccess, "密钥 ID %v 不属于订阅服务 %v 的问卷", hexutils.EncodeHex(keyID), serviceID)
	}

	subscription, err := p.SurveyService.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return p.lookupError(err, "订阅", subscriptionID)
	}
	if !hexutils.SameObjectID(subscription.Owner, caller) {
		return errors.Wrapf(errorcode.ErrorNoAccess, "订阅 %v 不属于 %v", subscriptionID, caller)
	}
	if !hexutils.SameObjectID(subscription.ServiceID, serviceID) {
		return errors.Wrapf(errorcode.ErrorNoAccess, "订阅 %v 不属于订阅服务 %v", subscriptionID, serviceID)
	}
	if !p.now().Before(subscription.ExpiresAt(service)) {
		return errors.Wrapf(errorcode.ErrorNoAccess, "订阅 %v 已于 %v 过期", subscriptionID, subscription.ExpiresAt(service).Format(time.RFC3339))
	}

	return nil
}

// lookupError 将不存在的对象视为无权访问，其他错误原样返回。
func (p *ChainAccessPolicy) lookupError(err error, kind, id string) error {
	if errors.Cause(err) == errorcode.ErrorNotFound {
		return errors.Wrapf(errorcode.ErrorNoAccess, "%v %v 不存在", kind, id)
	}

	return errors.Wrapf(err, "无法读取%v %v", kind, id)
}

func (p *ChainAccessPolicy) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}

	return time.Now()
}
