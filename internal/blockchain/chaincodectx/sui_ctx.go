package chaincodectx

import "time"

// SuiChainCtx 包含访问问卷合约所需的链上下文
type SuiChainCtx struct {
	RPCURL    string        // JSON-RPC 节点地址
	PackageID string        // 问卷合约的包 ID
	Timeout   time.Duration // 单次调用的超时时间
}

// SurveyType 返回问卷合约中某个结构体的完整类型名。
func (ctx *SuiChainCtx) SurveyType(module, name string) string {
	return ctx.PackageID + "::" + module + "::" + name
}
