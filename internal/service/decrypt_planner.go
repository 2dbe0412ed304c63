package service

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"gitee.com/czyczk/datawave/pkg/errorcode"
	"gitee.com/czyczk/datawave/pkg/models/authtx"
)

// DecryptPlanner 依据链上数据补全解密请求：选择待解密的答卷，并在只给出订阅服务时查找调用者的订阅。
type DecryptPlanner struct {
	SurveyService SurveyServiceInterface
}

// Plan 构造针对问卷 surveyID 的解密请求。
//
// 参数：
//   调用者地址
//   问卷 ID
//   指定的 blob ID（为空时选择问卷下的全部答卷，订阅模式下只选择同意订阅者访问的答卷）
//   授权上下文（其中的问卷 ID 会被覆盖）
//
// 返回：
//   解密请求
func (p *DecryptPlanner) Plan(ctx context.Context, caller string, surveyID string, blobIDs []string, authCtx authtx.AuthorizationContext) (*DecryptRequest, error) {
	surveyID = strings.TrimSpace(surveyID)
	if surveyID == "" {
		return nil, errors.Wrap(errorcode.ErrorMissingContext, "问卷 ID 不能为空")
	}
	authCtx.SurveyID = surveyID

	if authCtx.IsSubscription() {
		authCtx.Mode = authtx.ModeSubscription
		if authCtx.SubscriptionID == "" {
			if authCtx.ServiceID == "" {
				return nil, errors.Wrap(errorcode.ErrorMissingContext, "订阅模式下须指定订阅服务")
			}
			subscription, err := p.SurveyService.FindSubscription(ctx, caller, authCtx.ServiceID)
			if err != nil {
				if errors.Cause(err) == errorcode.ErrorNotFound {
					return nil, errors.Wrapf(errorcode.ErrorMissingContext, "%v 未订阅服务 %v", caller, authCtx.ServiceID)
				}
				return nil, err
			}
			authCtx.SubscriptionID = subscription.ID
			log.Debugf("使用订阅 %v 解密问卷 %v 的答卷。", subscription.ID, surveyID)
		}
	} else {
		authCtx.Mode = authtx.ModeAllowlist
		// 仅作提示，最终由密钥服务器判断
		ok, err := p.SurveyService.IsAllowlisted(ctx, surveyID, caller)
		if err != nil {
			log.Debugf("无法预检 %v 是否在问卷 %v 的允许列表中：%v", caller, surveyID, err)
		} else if !ok {
			log.Warnf("%v 不在问卷 %v 的允许列表中，密钥服务器可能拒绝访问。", caller, surveyID)
		}
	}

	if len(blobIDs) == 0 {
		blobs, err := p.SurveyService.ListAnswerBlobs(ctx, surveyID, authCtx.IsSubscription())
		if err != nil {
			return nil, errors.Wrapf(err, "无法列出问卷 %v 的答卷", surveyID)
		}
		for _, blob := range blobs {
			blobIDs = append(blobIDs, blob.BlobID)
		}
		if len(blobIDs) == 0 {
			return nil, &ErrorBadRequest{errMsg: "问卷没有可解密的答卷"}
		}
	}

	return &DecryptRequest{BlobIDs: blobIDs, Context: authCtx}, nil
}
