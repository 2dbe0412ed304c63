package survey

import "time"

// SurveyStored 包含从链上读出的问卷对象
type SurveyStored struct {
	ID                string           `json:"id" mapstructure:"id"`                                 // 问卷对象 ID
	Creator           string           `json:"creator" mapstructure:"creator"`                       // 创建者地址
	Title             string           `json:"title" mapstructure:"title"`                           // 标题
	Description       string           `json:"description" mapstructure:"description"`               // 描述
	Questions         []QuestionStored `json:"questions" mapstructure:"questions"`                   // 问题列表
	Allowlist         []string         `json:"allowlist" mapstructure:"allowlist"`                   // 允许解密答案的地址列表
	RewardPerResponse uint64           `json:"rewardPerResponse" mapstructure:"reward_per_response"` // 每份答卷的奖励
	AnswerCount       uint64           `json:"answerCount" mapstructure:"answer_count"`              // 已收到的答卷数
	CreatedAt         time.Time        `json:"createdAt" mapstructure:"created_at"`                  // 创建时间
}

// QuestionStored 为问卷中的一个问题
type QuestionStored struct {
	Text         string   `json:"text" mapstructure:"question_text"`         // 问题文本
	QuestionType uint8    `json:"questionType" mapstructure:"question_type"` // 问题类型（0 单选，1 多选，2 文本）
	Options      []string `json:"options" mapstructure:"options"`            // 选项
}

// AnswerBlobStored 为链上记录的一份加密答卷的指针
type AnswerBlobStored struct {
	Respondent  string    `json:"respondent" mapstructure:"respondent"`            // 答卷人地址
	BlobID      string    `json:"blobId" mapstructure:"blob_id"`                   // 存储网关中的 blob ID
	KeyID       []byte    `json:"keyId" mapstructure:"seal_key_id"`                // 加密时使用的密钥 ID（以问卷 ID 为前缀）
	SubmittedAt time.Time `json:"submittedAt" mapstructure:"submitted_at"`         // 提交时间
	Consent     bool      `json:"consent" mapstructure:"consent_for_subscription"` // 是否同意订阅者访问
}

// SubscriptionServiceStored 为问卷的订阅服务对象
type SubscriptionServiceStored struct {
	ID       string `json:"id" mapstructure:"id"`              // 服务对象 ID
	SurveyID string `json:"surveyId" mapstructure:"survey_id"` // 所属问卷 ID
	Fee      uint64 `json:"fee" mapstructure:"price"`          // 订阅价格
	TTLMs    uint64 `json:"ttlMs" mapstructure:"duration_ms"`  // 订阅有效期（毫秒）
	Owner    string `json:"owner" mapstructure:"creator"`      // 服务创建者
}

// SubscriptionStored 为用户持有的订阅对象
type SubscriptionStored struct {
	ID        string    `json:"id" mapstructure:"id"`                // 订阅对象 ID
	ServiceID string    `json:"serviceId" mapstructure:"service_id"` // 订阅的服务对象 ID
	Owner     string    `json:"owner" mapstructure:"-"`              // 订阅的持有者，由对象所有权得出
	CreatedAt time.Time `json:"createdAt" mapstructure:"created_at"` // 订阅时间
}

// ExpiresAt 计算订阅在给定服务下的到期时间。
func (s *SubscriptionStored) ExpiresAt(service *SubscriptionServiceStored) time.Time {
	return s.CreatedAt.Add(time.Duration(service.TTLMs) * time.Millisecond)
}
