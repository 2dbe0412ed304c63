package service

import (
	"context"

	"gitee.com/czyczk/datawave/internal/seal"
	"gitee.com/czyczk/datawave/pkg/models/authtx"
	"gitee.com/czyczk/datawave/pkg/models/decryption"
)

// ThresholdDecrypter 为门限解密服务的客户端能力
type ThresholdDecrypter interface {
	FetchKeys(ctx context.Context, p seal.FetchKeysParams) error
	Decrypt(ctx context.Context, p seal.DecryptParams) ([]byte, error)
}

// DecryptRequest 为一次批量解密的请求
type DecryptRequest struct {
	BlobIDs    []string                    // 待解密的 blob ID
	Context    authtx.AuthorizationContext // 授权上下文
	OnProgress ProgressFunc                // 下载进度回调（可为空）
}

// DecryptServiceInterface 定义了批量解密答卷的服务的接口
type DecryptServiceInterface interface {
	// 下载、授权、获取密钥并解密一组答卷。单条答卷的失败记录在结果中，不会中断其他答卷的处理。
	//
	// 参数：
	//   解密请求
	//
	// 返回：
	//   解密结果
	DecryptAnswers(ctx context.Context, req DecryptRequest) (*decryption.Result, error)
}
