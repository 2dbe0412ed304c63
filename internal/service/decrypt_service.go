package service

import (
	"context"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"gitee.com/czyczk/datawave/internal/seal"
	"gitee.com/czyczk/datawave/internal/utils/idutils"
	"gitee.com/czyczk/datawave/internal/utils/timingutils"
	"gitee.com/czyczk/datawave/pkg/errorcode"
	"gitee.com/czyczk/datawave/pkg/models/authtx"
	"gitee.com/czyczk/datawave/pkg/models/decryption"
	"gitee.com/czyczk/datawave/pkg/models/survey"
)

const (
	DefaultBatchSize          = 10
	DefaultKeyThreshold       = 2
	defaultDecryptConcurrency = 4
)

// DecryptService 实现了 `DecryptServiceInterface` 接口
type DecryptService struct {
	SessionKeyService SessionKeyServiceInterface
	AuthTxService     AuthTxServiceInterface
	BlobService       BlobServiceInterface
	KeyClient         ThresholdDecrypter
	Cache             *AnswerCache
	PackageID         string // 问卷合约的包 ID
	SessionTTLMin     int    // 会话密钥有效期（分钟）
	BatchSize         int    // 每笔授权交易覆盖的密钥 ID 数
	Threshold         int    // 获取密钥时所需的密钥服务器数
	Concurrency       int    // 同一批次内并行解密的上限
}

// pendingItem 为已下载并解析出密钥 ID 的一条答卷
type pendingItem struct {
	index  int
	blobID string
	data   []byte
	obj    *seal.EncryptedObject
}

// 下载、授权、获取密钥并解密一组答卷。单条答卷的失败记录在结果中，不会中断其他答卷的处理。
//
// 参数：
//   解密请求
//
// 返回：
//   解密结果
func (s *DecryptService) DecryptAnswers(ctx context.Context, req DecryptRequest) (*decryption.Result, error) {
	if len(req.BlobIDs) == 0 {
		return nil, &ErrorBadRequest{errMsg: "blob ID 列表不能为空"}
	}
	if err := s.AuthTxService.ValidateContext(req.Context); err != nil {
		return nil, err
	}

	runID, err := idutils.GenerateSnowflakeId()
	if err != nil {
		return nil, err
	}
	logger := log.WithField("run", runID)
	defer timingutils.GetDeferrableTimingLogger(fmt.Sprintf("解密运行 %v", runID))()

	// 先确保会话密钥可用，签名被拒时不发起任何网络请求
	address, err := s.SessionKeyService.CurrentAddress(ctx)
	if err != nil {
		return nil, err
	}
	sessionKey, err := s.SessionKeyService.EnsureSessionKey(ctx, address, s.PackageID, s.SessionTTLMin)
	if err != nil {
		return nil, err
	}

	n := len(req.BlobIDs)
	answers := make([]*survey.DecryptedAnswer, n)
	failures := make([]*decryption.ItemFailure, n)
	result := &decryption.Result{RunID: runID}
	result.Summary.Total = n

	// 下载
	blobs := s.BlobService.FetchAll(ctx, req.BlobIDs, req.OnProgress)
	downloaded := make([]*FetchedBlob, n)
	for _, blob := range blobs {
		if blob == nil {
			continue
		}
		for i, blobID := range req.BlobIDs {
			if blobID == blob.BlobID && downloaded[i] == nil {
				downloaded[i] = blob
				break
			}
		}
	}
	for i, blob := range downloaded {
		if blob == nil {
			result.NotDownloadedIDs = append(result.NotDownloadedIDs, req.BlobIDs[i])
		} else {
			result.Summary.Downloaded++
		}
	}
	result.Summary.NotDownloaded = n - result.Summary.Downloaded
	if result.Summary.Downloaded == 0 {
		return nil, errors.Wrapf(errorcode.ErrorNoBlobsAvailable, "%v 个 blob 均无法从存储网关下载", n)
	}
	logger.Infof("已下载 %v/%v 个 blob", result.Summary.Downloaded, n)

	// 从密文头部解析密钥 ID
	items := make([]*pendingItem, 0, result.Summary.Downloaded)
	for i, blob := range downloaded {
		if blob == nil {
			continue
		}
		obj, err := seal.ParseEncryptedObject(blob.Data)
		if err != nil {
			failures[i] = decryption.NewItemFailure(blob.BlobID, errorcode.ErrorDecrypt, err)
			continue
		}
		if !authtx.HasNamespace(obj.ID, req.Context.SurveyID) {
			err = errors.Wrapf(errorcode.ErrorNamespaceMismatch, "密钥 ID %v 不属于问卷 %v", obj.IDHex(), req.Context.SurveyID)
			failures[i] = decryption.NewItemFailure(blob.BlobID, errorcode.ErrorNamespaceMismatch, err)
			continue
		}
		items = append(items, &pendingItem{index: i, blobID: blob.BlobID, data: blob.Data, obj: obj})
	}

	// 分批获取密钥并解密，批次之间顺序执行
	for _, batch := range partition(items, s.batchSize()) {
		if err := s.fetchBatchKeys(ctx, batch, req.Context, sessionKey); err != nil {
			reason := failureReason(err, errorcode.ErrorDecrypt)
			if reason == errorcode.ErrorNoAccess {
				result.NoAccessBatches++
			}
			logger.Warnf("无法获取 %v 个密钥 ID 的密钥: %v", len(batch), err)
			for _, item := range batch {
				failures[item.index] = decryption.NewItemFailure(item.blobID, reason, err)
			}
			continue
		}

		s.decryptBatch(ctx, batch, req.Context, sessionKey, answers, failures)
	}

	for i := range req.BlobIDs {
		if answers[i] != nil {
			if s.Cache != nil {
				s.Cache.Put(answers[i])
			}
			result.Answers = append(result.Answers, answers[i])
		} else if failures[i] != nil {
			result.Failures = append(result.Failures, failures[i])
		}
	}
	result.Summary.Success = len(result.Answers)
	result.Summary.Failed = result.Summary.Downloaded - result.Summary.Success

	logger.Infof("解密完成：共 %v，下载 %v，成功 %v，失败 %v，未下载 %v", result.Summary.Total, result.Summary.Downloaded,
		result.Summary.Success, result.Summary.Failed, result.Summary.NotDownloaded)
	return result, nil
}

func (s *DecryptService) fetchBatchKeys(ctx context.Context, batch []*pendingItem, authCtx authtx.AuthorizationContext, sessionKey *seal.SessionKey) error {
	ids := make([][]byte, 0, len(batch))
	for _, item := range batch {
		ids = append(ids, item.obj.ID)
	}

	txBytes, err := s.buildTxBytes(ids, authCtx)
	if err != nil {
		return err
	}

	return s.KeyClient.FetchKeys(ctx, seal.FetchKeysParams{
		IDs:        ids,
		TxBytes:    txBytes,
		SessionKey: sessionKey,
		Threshold:  s.threshold(),
	})
}

// decryptBatch 并行解密同一批次的答卷，结果按下标写入 answers 与 failures。
func (s *DecryptService) decryptBatch(ctx context.Context, batch []*pendingItem, authCtx authtx.AuthorizationContext, sessionKey *seal.SessionKey,
	answers []*survey.DecryptedAnswer, failures []*decryption.ItemFailure) {
	var g errgroup.Group
	g.SetLimit(s.concurrency())
	for _, item := range batch {
		item := item
		g.Go(func() error {
			answer, err := s.decryptOne(ctx, item, authCtx, sessionKey)
			if err != nil {
				log.Debugf("无法解密 blob %v: %v", item.blobID, err)
				failures[item.index] = decryption.NewItemFailure(item.blobID, failureReason(err, errorcode.ErrorDecrypt), err)
			} else {
				answers[item.index] = answer
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (s *DecryptService) decryptOne(ctx context.Context, item *pendingItem, authCtx authtx.AuthorizationContext, sessionKey *seal.SessionKey) (*survey.DecryptedAnswer, error) {
	txBytes, err := s.buildTxBytes([][]byte{item.obj.ID}, authCtx)
	if err != nil {
		return nil, err
	}

	plaintext, err := s.KeyClient.Decrypt(ctx, seal.DecryptParams{
		Data:       item.data,
		SessionKey: sessionKey,
		TxBytes:    txBytes,
	})
	if err != nil {
		if errors.Cause(err) == errorcode.ErrorNoAccess {
			return nil, err
		}
		return nil, errors.Wrap(errorcode.ErrorDecrypt, err.Error())
	}

	return parseAnswerPayload(item.blobID, plaintext)
}

func (s *DecryptService) buildTxBytes(ids [][]byte, authCtx authtx.AuthorizationContext) ([]byte, error) {
	tx, err := s.AuthTxService.BuildAuthorization(ids, authCtx)
	if err != nil {
		return nil, err
	}

	return tx.Bytes()
}

// parseAnswerPayload 将 UTF-8 JSON 明文解析为答卷。
func parseAnswerPayload(blobID string, plaintext []byte) (*survey.DecryptedAnswer, error) {
	if !utf8.Valid(plaintext) {
		return nil, errors.Wrap(errorcode.ErrorDecrypt, "明文不是合法的 UTF-8")
	}

	var payload survey.AnswerPayload
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		return nil, errors.Wrapf(errorcode.ErrorDecrypt, "无法解析答卷明文: %v", err)
	}
	if payload.SurveyID == "" {
		return nil, errors.Wrap(errorcode.ErrorDecrypt, "答卷明文缺少问卷 ID")
	}

	return payload.ToDecryptedAnswer(blobID), nil
}

// partition 按 size 将 items 顺序切分为若干批次。
func partition(items []*pendingItem, size int) [][]*pendingItem {
	batches := [][]*pendingItem{}
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		batches = append(batches, items[start:end])
	}

	return batches
}

func (s *DecryptService) batchSize() int {
	if s.BatchSize <= 0 {
		return DefaultBatchSize
	}
	return s.BatchSize
}

func (s *DecryptService) threshold() int {
	if s.Threshold <= 0 {
		return DefaultKeyThreshold
	}
	return s.Threshold
}

func (s *DecryptService) concurrency() int {
	if s.Concurrency <= 0 {
		return defaultDecryptConcurrency
	}
	return s.Concurrency
}
