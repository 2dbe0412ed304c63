package survey

import "time"

// QuestionAnswer 为答卷中对单个问题的回答
type QuestionAnswer struct {
	QuestionIndex int    `json:"questionIndex"` // 问题序号
	QuestionText  string `json:"questionText"`  // 问题文本
	QuestionType  int    `json:"questionType"`  // 问题类型
	Answer        string `json:"answer"`        // 回答内容（多选时为逗号分隔）
}

// AnswerPayload 为加密前的答卷明文结构（UTF-8 JSON）
type AnswerPayload struct {
	SurveyID   string           `json:"surveyId"`   // 问卷 ID
	Respondent string           `json:"respondent"` // 答卷人地址
	Timestamp  int64            `json:"timestamp"`  // 提交时间（Unix 毫秒）
	Answers    []QuestionAnswer `json:"answers"`    // 回答列表
	Consent    bool             `json:"consent"`    // 是否同意订阅者访问
}

// DecryptedAnswer 为解密成功后的答卷记录
type DecryptedAnswer struct {
	BlobID     string           `json:"blobId"`     // 密文的 blob ID
	SurveyID   string           `json:"surveyId"`   // 问卷 ID
	Respondent string           `json:"respondent"` // 答卷人地址
	Timestamp  time.Time        `json:"timestamp"`  // 提交时间
	Answers    []QuestionAnswer `json:"answers"`    // 回答列表
	Consent    bool             `json:"consent"`    // 是否同意订阅者访问
}

// ToDecryptedAnswer 将明文结构附上 blob ID，得到解密记录。
func (p *AnswerPayload) ToDecryptedAnswer(blobID string) *DecryptedAnswer {
	return &DecryptedAnswer{
		BlobID:     blobID,
		SurveyID:   p.SurveyID,
		Respondent: p.Respondent,
		Timestamp:  time.UnixMilli(p.Timestamp),
		Answers:    p.Answers,
		Consent:    p.Consent,
	}
}
