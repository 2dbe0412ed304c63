package bcao

// TransactionExecutionInfo 包含交易执行（或模拟执行）后应该返回的信息
type TransactionExecutionInfo struct {
	Digest string                 `json:"digest"`            // 交易摘要
	Status string                 `json:"status"`            // 执行状态（success / failure）
	Error  string                 `json:"error,omitempty"`   // 执行失败时的错误信息
	Events []*EventData           `json:"events,omitempty"`  // 交易产生的事件
	Effect map[string]interface{} `json:"effects,omitempty"` // 原始的执行效果
}

// IsSuccess 判断交易是否执行成功。
func (i *TransactionExecutionInfo) IsSuccess() bool {
	return i.Status == "success"
}
