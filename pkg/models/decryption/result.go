package decryption

import "gitee.com/czyczk/datawave/pkg/models/survey"

// Summary 为一次批量解密的统计
type Summary struct {
	Total         int `json:"total"`         // 请求的 blob 数
	Downloaded    int `json:"downloaded"`    // 成功下载的 blob 数
	Success       int `json:"success"`       // 成功解密的答卷数
	Failed        int `json:"failed"`        // 已下载但未能解密的答卷数
	NotDownloaded int `json:"notDownloaded"` // 未能下载的 blob 数
}

// ItemFailure 为单个 blob 的失败记录
type ItemFailure struct {
	BlobID string `json:"blobId"` // blob ID
	Reason string `json:"reason"` // 失败原因（错误码）
	Detail string `json:"detail"` // 详细信息
	err    error
}

// NewItemFailure 由错误构造失败记录。Reason 取自错误的根因。
func NewItemFailure(blobID string, reason error, err error) *ItemFailure {
	return &ItemFailure{
		BlobID: blobID,
		Reason: reason.Error(),
		Detail: err.Error(),
		err:    err,
	}
}

// Err 返回导致失败的原始错误。
func (f *ItemFailure) Err() error {
	return f.err
}

// Result 为一次批量解密的结果
type Result struct {
	RunID            string                    `json:"runId"`            // 本次运行的 ID
	Summary          Summary                   `json:"summary"`          // 统计
	Answers          []*survey.DecryptedAnswer `json:"answers"`          // 成功解密的答卷（按请求顺序）
	Failures         []*ItemFailure            `json:"failures"`         // 已下载但失败的条目（按请求顺序）
	NotDownloadedIDs []string                  `json:"notDownloadedIds"` // 未能下载的 blob ID
	NoAccessBatches  int                       `json:"noAccessBatches"`  // 因无权访问而被跳过的批次数
}
