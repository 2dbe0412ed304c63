package service

import "context"

// FetchedBlob 为下载成功的一个 blob
type FetchedBlob struct {
	BlobID  string // blob ID
	Data    []byte // 密文
	Gateway string // 提供该 blob 的网关
}

// ProgressFunc 用于报告进度：已完成个数与总数。
type ProgressFunc func(completed, total int)

// BlobServiceInterface 定义了从存储网关下载密文的服务的接口
type BlobServiceInterface interface {
	// 并发下载全部 blob。单个 blob 的失败不会导致整体失败。
	//
	// 参数：
	//   blob ID 列表
	//   进度回调（可为空）
	//
	// 返回：
	//   与 blob ID 列表等长的结果列表，下载失败的位置为 nil
	FetchAll(ctx context.Context, blobIDs []string, onProgress ProgressFunc) []*FetchedBlob

	// 下载单个 blob，失败时换用未尝试过的网关重试。
	//
	// 参数：
	//   blob ID
	//
	// 返回：
	//   下载结果
	FetchOne(ctx context.Context, blobID string) (*FetchedBlob, error)
}
