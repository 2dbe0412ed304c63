package service

import (
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"gitee.com/czyczk/datawave/internal/seal"
	"gitee.com/czyczk/datawave/internal/utils/hexutils"
	"gitee.com/czyczk/datawave/pkg/models/authtx"
	"gitee.com/czyczk/datawave/pkg/models/survey"
)

// DefaultStoreEpochs 为上传 blob 时默认的存储周期数
const DefaultStoreEpochs = 5

// UploadedBlob 为一次上传的结果
type UploadedBlob struct {
	BlobID  string `json:"blobId"`  // blob ID
	KeyID   string `json:"keyId"`   // 加密所用的密钥 ID（十六进制）
	Gateway string `json:"gateway"` // 接受上传的网关
}

// UploadService 将答卷明文门限加密后上传到存储网关，用于准备测试数据。
type UploadService struct {
	PackageID   string
	KeyServers  []seal.KeyServerInfo
	Threshold   int
	BlobService *BlobService
	Rand        io.Reader // 为空时使用 crypto/rand
}

// 加密并上传一份答卷。
//
// 参数：
//   答卷明文（AnswerPayload 的 JSON）
//   存储周期数（不大于 0 时使用默认值）
//
// 返回：
//   上传结果
func (s *UploadService) SealAndUpload(ctx context.Context, plaintext []byte, epochs int) (*UploadedBlob, error) {
	payload := &survey.AnswerPayload{}
	if err := json.Unmarshal(plaintext, payload); err != nil {
		return nil, &ErrorBadRequest{errMsg: "答卷明文不是合法的 JSON：" + err.Error()}
	}
	if strings.TrimSpace(payload.SurveyID) == "" {
		return nil, &ErrorBadRequest{errMsg: "答卷明文中缺少问卷 ID"}
	}
	if epochs <= 0 {
		epochs = DefaultStoreEpochs
	}

	keyID, err := authtx.NewKeyID(payload.SurveyID, s.Rand)
	if err != nil {
		return nil, errors.Wrap(err, "无法生成密钥 ID")
	}

	ciphertext, err := seal.Encrypt(seal.EncryptParams{
		PackageID:  s.PackageID,
		ID:         keyID,
		KeyServers: s.KeyServers,
		Threshold:  s.Threshold,
		Data:       plaintext,
		Rand:       s.Rand,
	})
	if err != nil {
		return nil, errors.Wrap(err, "无法加密答卷")
	}

	blobID, gateway, err := s.BlobService.Store(ctx, ciphertext, epochs)
	if err != nil {
		return nil, err
	}

	log.Infof("已上传问卷 %v 的答卷，blob ID 为 %v。", payload.SurveyID, blobID)
	return &UploadedBlob{BlobID: blobID, KeyID: hexutils.EncodeHex(keyID), Gateway: gateway}, nil
}
