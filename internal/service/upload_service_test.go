package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"gitee.com/czyczk/datawave/internal/seal"
	"gitee.com/czyczk/datawave/internal/utils/hexutils"
	"gitee.com/czyczk/datawave/pkg/models/authtx"
)

func TestSealAndUpload(t *testing.T) {
	keyClient := newFakeKeyClient(t, 3)
	down := newFakeGateway("down")
	down.down = true
	up := newFakeGateway("up")
	blobSvc := NewBlobService(gatewaysOf(down, up))

	s := &UploadService{PackageID: testPackageID, KeyServers: keyClient.infos, Threshold: 2, BlobService: blobSvc}
	plaintext := answerPayload(testSurveyID, addressB, "weekly")

	uploaded, err := s.SealAndUpload(context.Background(), plaintext, 0)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.Equal(t, "up", uploaded.Gateway)

	keyID, err := hexutils.DecodeHex(uploaded.KeyID)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.True(t, authtx.HasNamespace(keyID, testSurveyID))
	assert.Len(t, keyID, 32+authtx.KeyIDNonceSize)

	// 上传的密文可以由密钥服务器解开
	blob, err := blobSvc.FetchOne(context.Background(), uploaded.BlobID)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	decrypted, err := keyClient.Decrypt(context.Background(), seal.DecryptParams{Data: blob.Data})
	assert.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestSealAndUploadRejectsBadPayload(t *testing.T) {
	keyClient := newFakeKeyClient(t, 1)
	s := &UploadService{PackageID: testPackageID, KeyServers: keyClient.infos, Threshold: 1, BlobService: NewBlobService(gatewaysOf(newFakeGateway("up")))}

	_, err := s.SealAndUpload(context.Background(), []byte("not json"), 1)
	_, isBadRequest := err.(*ErrorBadRequest)
	assert.True(t, isBadRequest)

	_, err = s.SealAndUpload(context.Background(), []byte(`{"answers":[]}`), 1)
	_, isBadRequest = err.(*ErrorBadRequest)
	assert.True(t, isBadRequest)

	// 门限大于密钥服务器数量
	s.Threshold = 2
	_, err = s.SealAndUpload(context.Background(), answerPayload(testSurveyID, addressB, "x"), 1)
	assert.Error(t, err)
}
