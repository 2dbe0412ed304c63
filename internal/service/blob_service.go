package service

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"gitee.com/czyczk/datawave/internal/storage"
	"gitee.com/czyczk/datawave/internal/utils/timingutils"
)

const (
	DefaultFetchTimeout     = 10 * time.Second
	DefaultFetchMaxAttempts = 3
	defaultFetchConcurrency = 16
)

// BlobService 实现了 `BlobServiceInterface` 接口
type BlobService struct {
	Gateways      []storage.Gateway // 可互换的存储网关
	Timeout       time.Duration     // 单次请求的超时时间，默认 10 秒
	MaxAttempts   int               // 每个 blob 的最大尝试次数，默认 3 次
	RetryInterval time.Duration     // 两次尝试之间的间隔
	Concurrency   int               // 同时下载的 blob 数上限
}

// NewBlobService 使用默认参数创建一个 BlobService。
func NewBlobService(gateways []storage.Gateway) *BlobService {
	return &BlobService{
		Gateways:    gateways,
		Timeout:     DefaultFetchTimeout,
		MaxAttempts: DefaultFetchMaxAttempts,
		Concurrency: defaultFetchConcurrency,
	}
}

// 并发下载全部 blob。单个 blob 的失败不会导致整体失败。
//
// 参数：
//   blob ID 列表
//   进度回调（可为空）
//
// 返回：
//   与 blob ID 列表等长的结果列表，下载失败的位置为 nil
func (s *BlobService) FetchAll(ctx context.Context, blobIDs []string, onProgress ProgressFunc) []*FetchedBlob {
	defer timingutils.GetDeferrableTimingLogger(fmt.Sprintf("下载 %v 个 blob", len(blobIDs)))()

	results := make([]*FetchedBlob, len(blobIDs))
	total := len(blobIDs)

	var mu sync.Mutex
	completed := 0

	var g errgroup.Group
	concurrency := s.Concurrency
	if concurrency <= 0 {
		concurrency = defaultFetchConcurrency
	}
	g.SetLimit(concurrency)
	for i, blobID := range blobIDs {
		i, blobID := i, blobID
		g.Go(func() error {
			blob, err := s.FetchOne(ctx, blobID)
			if err != nil {
				log.Warnf("无法下载 blob %v: %v", blobID, err)
			} else {
				results[i] = blob
			}

			mu.Lock()
			completed++
			if onProgress != nil {
				onProgress(completed, total)
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// 下载单个 blob，失败时换用未尝试过的网关重试。
//
// 参数：
//   blob ID
//
// 返回：
//   下载结果
func (s *BlobService) FetchOne(ctx context.Context, blobID string) (*FetchedBlob, error) {
	if len(s.Gateways) == 0 {
		return nil, fmt.Errorf("未配置存储网关")
	}

	maxAttempts := s.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultFetchMaxAttempts
	}
	if maxAttempts > len(s.Gateways) {
		maxAttempts = len(s.Gateways)
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}

	tried := make([]bool, len(s.Gateways))
	var result *FetchedBlob
	operation := func() error {
		gateway := s.pickUntried(tried)
		if gateway == nil {
			return backoff.Permanent(fmt.Errorf("所有网关均已尝试"))
		}

		reqCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		data, err := gateway.Fetch(reqCtx, blobID)
		if err != nil {
			return errors.Wrapf(err, "网关 %v", gateway.Name())
		}
		result = &FetchedBlob{BlobID: blobID, Data: data, Gateway: gateway.Name()}
		return nil
	}
	notify := func(err error, wait time.Duration) {
		log.Debugf("下载 blob %v 失败，将换用其他网关重试: %v", blobID, err)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(s.RetryInterval), uint64(maxAttempts-1)), ctx)
	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return nil, errors.Wrapf(err, "尝试 %v 个网关后仍无法下载 blob %v", maxAttempts, blobID)
	}

	return result, nil
}

// 按配置顺序尝试各网关上传数据，返回第一个成功的网关给出的 blob ID。
//
// 参数：
//   数据
//   存储周期数
//
// 返回：
//   blob ID
//   接受上传的网关
func (s *BlobService) Store(ctx context.Context, data []byte, epochs int) (string, string, error) {
	if len(s.Gateways) == 0 {
		return "", "", fmt.Errorf("未配置存储网关")
	}

	var lastErr error
	for _, gateway := range s.Gateways {
		blobID, err := gateway.Store(ctx, data, epochs)
		if err == nil {
			log.Debugf("已通过网关 %v 上传 blob %v。", gateway.Name(), blobID)
			return blobID, gateway.Name(), nil
		}
		if ctx.Err() != nil {
			return "", "", ctx.Err()
		}

		log.Debugf("网关 %v 上传失败: %v", gateway.Name(), err)
		lastErr = errors.Wrapf(err, "网关 %v", gateway.Name())
	}

	return "", "", errors.Wrap(lastErr, "所有网关均无法上传")
}

// pickUntried 随机选择一个尚未尝试过的网关并将其标记为已尝试。全部尝试过时返回 nil。
func (s *BlobService) pickUntried(tried []bool) storage.Gateway {
	candidates := make([]int, 0, len(tried))
	for i, t := range tried {
		if !t {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	idx := candidates[rand.Intn(len(candidates))]
	tried[idx] = true
	return s.Gateways[idx]
}
