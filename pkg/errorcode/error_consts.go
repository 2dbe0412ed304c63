package errorcode

import "fmt"

const (
	// CodeNotFound 表示资源未找到。Service 层收到的错误中若是这样的错误信息则表示是资源未找到，而非链上查询出错。
	CodeNotFound = "~NOTFOUND~"
	// CodeForbidden 表示参数被理解，但无权进行操作。
	CodeForbidden = "~FORBIDDEN~"
	// CodeNotImplemented 表示暂时未实现的功能。
	CodeNotImplemented = "~NOTIMPLEMENTED~"
	// CodeGatewayTimeout 表示存储网关或密钥服务器在限定时间内没有响应。
	CodeGatewayTimeout = "~GATEWAYTIMEOUT~"
	// CodeNoWallet 表示当前没有可用的钱包或账户地址。
	CodeNoWallet = "~NOWALLET~"
	// CodeSignatureRejected 表示钱包拒绝了（或未能完成）个人消息签名。
	CodeSignatureRejected = "~SIGNATUREREJECTED~"
	// CodePersistence 表示会话密钥无法持久化。该错误仅被记录，不向调用方传播。
	CodePersistence = "~PERSISTENCE~"
	// CodeNoBlobsAvailable 表示所有密文均未能下载。
	CodeNoBlobsAvailable = "~NOBLOBSAVAILABLE~"
	// CodeNoAccess 表示密钥服务器拒绝授权。
	CodeNoAccess = "~NOACCESS~"
	// CodeDecrypt 表示单个密文解密或解析失败。
	CodeDecrypt = "~DECRYPT~"
	// CodeMissingContext 表示授权上下文不完整。
	CodeMissingContext = "~MISSINGCONTEXT~"
	// CodeNamespaceMismatch 表示密钥 ID 不以问卷 ID 为前缀。
	CodeNamespaceMismatch = "~NAMESPACEMISMATCH~"
)

// ErrorNotFound 为使用了 `CodeNotFound` 的 error 实例
var ErrorNotFound = fmt.Errorf(CodeNotFound)

// ErrorForbidden 为使用了 `CodeForbidden` 的 error 实例
var ErrorForbidden = fmt.Errorf(CodeForbidden)

// ErrorNotImplemented 为使用了 `CodeNotImplemented` 的 error 实例
var ErrorNotImplemented = fmt.Errorf(CodeNotImplemented)

// ErrorGatewayTimeout 为使用了 `CodeGatewayTimeout` 的 error 实例
var ErrorGatewayTimeout = fmt.Errorf(CodeGatewayTimeout)

// ErrorNoWallet 为使用了 `CodeNoWallet` 的 error 实例
var ErrorNoWallet = fmt.Errorf(CodeNoWallet)

// ErrorSignatureRejected 为使用了 `CodeSignatureRejected` 的 error 实例
var ErrorSignatureRejected = fmt.Errorf(CodeSignatureRejected)

// ErrorPersistence 为使用了 `CodePersistence` 的 error 实例
var ErrorPersistence = fmt.Errorf(CodePersistence)

// ErrorNoBlobsAvailable 为使用了 `CodeNoBlobsAvailable` 的 error 实例
var ErrorNoBlobsAvailable = fmt.Errorf(CodeNoBlobsAvailable)

// ErrorNoAccess 为使用了 `CodeNoAccess` 的 error 实例
var ErrorNoAccess = fmt.Errorf(CodeNoAccess)

// ErrorDecrypt 为使用了 `CodeDecrypt` 的 error 实例
var ErrorDecrypt = fmt.Errorf(CodeDecrypt)

// ErrorMissingContext 为使用了 `CodeMissingContext` 的 error 实例
var ErrorMissingContext = fmt.Errorf(CodeMissingContext)

// ErrorNamespaceMismatch 为使用了 `CodeNamespaceMismatch` 的 error 实例
var ErrorNamespaceMismatch = fmt.Errorf(CodeNamespaceMismatch)
