package service

import "gitee.com/czyczk/datawave/pkg/models/authtx"

// AuthTxServiceInterface 定义了构造授权交易的服务的接口
type AuthTxServiceInterface interface {
	// 检查授权上下文是否完整。
	//
	// 参数：
	//   授权上下文
	ValidateContext(authCtx authtx.AuthorizationContext) error

	// 构造授权交易。每个密钥 ID 对应一条授权调用。
	//
	// 参数：
	//   密钥 ID 列表
	//   授权上下文
	//
	// 返回：
	//   未签名的授权交易
	BuildAuthorization(ids [][]byte, authCtx authtx.AuthorizationContext) (*authtx.Transaction, error)
}
