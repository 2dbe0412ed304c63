package service

import (
	"context"

	"gitee.com/czyczk/datawave/pkg/models/survey"
)

// SurveyServiceInterface 定义了读取链上问卷数据的服务的接口
type SurveyServiceInterface interface {
	// 获取问卷。
	//
	// 参数：
	//   问卷 ID
	//
	// 返回：
	//   问卷
	GetSurvey(ctx context.Context, surveyID string) (*survey.SurveyStored, error)

	// 列出问卷下的加密答卷。
	//
	// 参数：
	//   问卷 ID
	//   是否只列出同意订阅者访问的答卷
	//
	// 返回：
	//   按提交时间排序的答卷列表
	ListAnswerBlobs(ctx context.Context, surveyID string, consentOnly bool) ([]*survey.AnswerBlobStored, error)

	// 检查地址是否可以在允许列表模式下解密问卷的答卷。问卷创建者总是可以。
	//
	// 参数：
	//   问卷 ID
	//   地址
	//
	// 返回：
	//   是否在允许列表中
	IsAllowlisted(ctx context.Context, surveyID string, address string) (bool, error)

	// 查找地址持有的某订阅服务的订阅。持有多个时返回最新的。
	//
	// 参数：
	//   持有者地址
	//   订阅服务 ID
	//
	// 返回：
	//   订阅
	FindSubscription(ctx context.Context, owner string, serviceID string) (*survey.SubscriptionStored, error)

	// 获取订阅。
	//
	// 参数：
	//   订阅 ID
	//
	// 返回：
	//   订阅
	GetSubscription(ctx context.Context, subscriptionID string) (*survey.SubscriptionStored, error)

	// 获取订阅服务。
	//
	// 参数：
	//   订阅服务 ID
	//
	// 返回：
	//   订阅服务
	GetService(ctx context.Context, serviceID string) (*survey.SubscriptionServiceStored, error)
}
