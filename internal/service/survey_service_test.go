package service

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"gitee.com/czyczk/datawave/pkg/errorcode"
)

func TestGetSurvey(t *testing.T) {
	s := &SurveyService{ServiceInfo: newSurveyServiceInfo(newSurveyChain(t, time.Now()))}

	stored, err := s.GetSurvey(context.Background(), testSurveyID)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.Equal(t, "Coffee habits", stored.Title)
	assert.Equal(t, addressA, stored.Creator)
	assert.Equal(t, []string{addressB}, stored.Allowlist)

	_, err = s.GetSurvey(context.Background(), otherSurveyID)
	assert.Equal(t, errorcode.ErrorNotFound, errors.Cause(err))
}

func TestListAnswerBlobs(t *testing.T) {
	s := &SurveyService{ServiceInfo: newSurveyServiceInfo(newSurveyChain(t, time.Now()))}

	blobs, err := s.ListAnswerBlobs(context.Background(), testSurveyID, false)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	if isEqual := assert.Len(t, blobs, 2); !isEqual {
		t.FailNow()
	}
	// 按提交时间排序
	assert.Equal(t, "blob-1", blobs[0].BlobID)
	assert.Equal(t, "blob-0", blobs[1].BlobID)
	assert.Equal(t, keyIDFor(testSurveyID, 0), blobs[1].KeyID)

	consenting, err := s.ListAnswerBlobs(context.Background(), testSurveyID, true)
	assert.NoError(t, err)
	assert.Len(t, consenting, 1)
	assert.Equal(t, "blob-0", consenting[0].BlobID)
}

func TestIsAllowlisted(t *testing.T) {
	s := &SurveyService{ServiceInfo: newSurveyServiceInfo(newSurveyChain(t, time.Now()))}

	for address, expected := range map[string]bool{addressA: true, addressB: true, objectID(0x99): false} {
		ok, err := s.IsAllowlisted(context.Background(), testSurveyID, address)
		assert.NoError(t, err)
		assert.Equal(t, expected, ok, address)
	}
}

func TestFindSubscription(t *testing.T) {
	subscribedAt := time.UnixMilli(time.Now().UnixMilli())
	s := &SurveyService{ServiceInfo: newSurveyServiceInfo(newSurveyChain(t, subscribedAt))}

	subscription, err := s.FindSubscription(context.Background(), addressB, objectID(0xc2))
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.Equal(t, objectID(0xc1), subscription.ID)
	assert.Equal(t, addressB, subscription.Owner)
	assert.Equal(t, subscribedAt, subscription.CreatedAt)

	_, err = s.FindSubscription(context.Background(), addressA, objectID(0xc2))
	assert.Equal(t, errorcode.ErrorNotFound, err)

	service, err := s.GetService(context.Background(), objectID(0xc2))
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.Equal(t, testSurveyID, service.SurveyID)
	assert.Equal(t, subscribedAt.Add(time.Hour), subscription.ExpiresAt(service))
}
