package service

import (
	"context"
	"sort"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"gitee.com/czyczk/datawave/internal/blockchain/bcao"
	"gitee.com/czyczk/datawave/internal/utils/hexutils"
	"gitee.com/czyczk/datawave/internal/utils/timingutils"
	"gitee.com/czyczk/datawave/pkg/errorcode"
	"gitee.com/czyczk/datawave/pkg/models/survey"
)

const answerStructName = "::survey::Answer"

// SurveyService 实现了 `SurveyServiceInterface` 接口
type SurveyService struct {
	ServiceInfo *Info
}

// 获取问卷。
//
// 参数：
//   问卷 ID
//
// 返回：
//   问卷
func (s *SurveyService) GetSurvey(ctx context.Context, surveyID string) (*survey.SurveyStored, error) {
	obj, err := s.ServiceInfo.ChainBCAO.GetObject(ctx, surveyID)
	if err != nil {
		return nil, err
	}

	return bcao.ParseSurvey(obj)
}

// 列出问卷下的加密答卷。
//
// 参数：
//   问卷 ID
//   是否只列出同意订阅者访问的答卷
//
// 返回：
//   按提交时间排序的答卷列表
func (s *SurveyService) ListAnswerBlobs(ctx context.Context, surveyID string, consentOnly bool) ([]*survey.AnswerBlobStored, error) {
	defer timingutils.GetDeferrableTimingLogger("列出答卷")()

	fields, err := s.ServiceInfo.ChainBCAO.GetDynamicFields(ctx, surveyID)
	if err != nil {
		return nil, errors.Wrapf(err, "无法列出问卷 %v 的答卷", surveyID)
	}

	blobs := []*survey.AnswerBlobStored{}
	for _, field := range fields {
		if field.ObjectType != "" && !strings.Contains(field.ObjectType, answerStructName) {
			continue
		}

		obj, err := s.ServiceInfo.ChainBCAO.GetObject(ctx, field.ObjectID)
		if err != nil {
			return nil, errors.Wrapf(err, "无法读取答卷 %v", field.ObjectID)
		}
		blob, err := bcao.ParseAnswerBlob(obj)
		if err != nil {
			log.Warnf("跳过无法解析的答卷: %v", err)
			continue
		}
		if consentOnly && !blob.Consent {
			continue
		}
		blobs = append(blobs, blob)
	}

	sort.SliceStable(blobs, func(i, j int) bool {
		return blobs[i].SubmittedAt.Before(blobs[j].SubmittedAt)
	})

	return blobs, nil
}

// 检查地址是否可以在允许列表模式下解密问卷的答卷。问卷创建者总是可以。
//
// 参数：
//   问卷 ID
//   地址
//
// 返回：
//   是否在允许列表中
func (s *SurveyService) IsAllowlisted(ctx context.Context, surveyID string, address string) (bool, error) {
	stored, err := s.GetSurvey(ctx, surveyID)
	if err != nil {
		return false, err
	}

	return isAllowlisted(stored, address), nil
}

func isAllowlisted(stored *survey.SurveyStored, address string) bool {
	if hexutils.SameObjectID(stored.Creator, address) {
		return true
	}
	for _, allowed := range stored.Allowlist {
		if hexutils.SameObjectID(allowed, address) {
			return true
		}
	}

	return false
}

// 查找地址持有的某订阅服务的订阅。持有多个时返回最新的。
//
// 参数：
//   持有者地址
//   订阅服务 ID
//
// 返回：
//   订阅
func (s *SurveyService) FindSubscription(ctx context.Context, owner string, serviceID string) (*survey.SubscriptionStored, error) {
	structType := s.ServiceInfo.ChainCtx.SurveyType(subscriptionModuleName, "Subscription")
	objs, err := s.ServiceInfo.ChainBCAO.GetOwnedObjects(ctx, owner, structType)
	if err != nil {
		return nil, errors.Wrapf(err, "无法列出 %v 持有的订阅", owner)
	}

	var found *survey.SubscriptionStored
	for _, obj := range objs {
		subscription, err := bcao.ParseSubscription(obj)
		if err != nil {
			log.Warnf("跳过无法解析的订阅: %v", err)
			continue
		}
		if !hexutils.SameObjectID(subscription.ServiceID, serviceID) {
			continue
		}
		if found == nil || subscription.CreatedAt.After(found.CreatedAt) {
			found = subscription
		}
	}
	if found == nil {
		return nil, errorcode.ErrorNotFound
	}

	return found, nil
}

// 获取订阅。
//
// 参数：
//   订阅 ID
//
// 返回：
//   订阅
func (s *SurveyService) GetSubscription(ctx context.Context, subscriptionID string) (*survey.SubscriptionStored, error) {
	obj, err := s.ServiceInfo.ChainBCAO.GetObject(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}

	return bcao.ParseSubscription(obj)
}

// 获取订阅服务。
//
// 参数：
//   订阅服务 ID
//
// 返回：
//   订阅服务
func (s *SurveyService) GetService(ctx context.Context, serviceID string) (*survey.SubscriptionServiceStored, error) {
	obj, err := s.ServiceInfo.ChainBCAO.GetObject(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	return bcao.ParseSubscriptionService(obj)
}
