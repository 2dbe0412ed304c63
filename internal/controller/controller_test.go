package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"gitee.com/czyczk/datawave/internal/seal"
	"gitee.com/czyczk/datawave/internal/service"
	"gitee.com/czyczk/datawave/pkg/errorcode"
	"gitee.com/czyczk/datawave/pkg/models/decryption"
	"gitee.com/czyczk/datawave/pkg/models/survey"
)

var (
	testPackageID = objectID(0xaa)
	testSurveyID  = objectID(0x5a)
	testAddress   = objectID(0xa1)
)

func objectID(b byte) string {
	return fmt.Sprintf("0x%064x", b)
}

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeSessionKeyService struct {
	address string
	err     error
	ttls    []int
}

func (s *fakeSessionKeyService) CurrentAddress(ctx context.Context) (string, error) {
	if s.address == "" {
		return "", errors.Wrap(errorcode.ErrorNoWallet, "未连接钱包")
	}
	return s.address, nil
}

func (s *fakeSessionKeyService) EnsureSessionKey(ctx context.Context, address string, packageID string, ttlMin int) (*seal.SessionKey, error) {
	s.ttls = append(s.ttls, ttlMin)
	if s.err != nil {
		return nil, s.err
	}
	sk, err := seal.NewSessionKey(address, packageID, ttlMin, nil)
	if err != nil {
		return nil, err
	}
	sk.SetPersonalMessageSignature("signed")
	return sk, nil
}

type fakeSurveyService struct {
	blobs        []*survey.AnswerBlobStored
	subscription *survey.SubscriptionStored
}

func (s *fakeSurveyService) GetSurvey(ctx context.Context, surveyID string) (*survey.SurveyStored, error) {
	if surveyID != testSurveyID {
		return nil, errorcode.ErrorNotFound
	}
	return &survey.SurveyStored{ID: testSurveyID, Title: "Coffee habits", Creator: testAddress}, nil
}

func (s *fakeSurveyService) ListAnswerBlobs(ctx context.Context, surveyID string, consentOnly bool) ([]*survey.AnswerBlobStored, error) {
	ret := []*survey.AnswerBlobStored{}
	for _, blob := range s.blobs {
		if !consentOnly || blob.Consent {
			ret = append(ret, blob)
		}
	}
	return ret, nil
}

func (s *fakeSurveyService) IsAllowlisted(ctx context.Context, surveyID string, address string) (bool, error) {
	return address == testAddress, nil
}

func (s *fakeSurveyService) FindSubscription(ctx context.Context, owner string, serviceID string) (*survey.SubscriptionStored, error) {
	if s.subscription == nil {
		return nil, errorcode.ErrorNotFound
	}
	return s.subscription, nil
}

func (s *fakeSurveyService) GetSubscription(ctx context.Context, subscriptionID string) (*survey.SubscriptionStored, error) {
	return nil, errorcode.ErrorNotFound
}

func (s *fakeSurveyService) GetService(ctx context.Context, serviceID string) (*survey.SubscriptionServiceStored, error) {
	return nil, errorcode.ErrorNotFound
}

type fakeDecryptService struct {
	requests []service.DecryptRequest
	err      error
}

func (s *fakeDecryptService) DecryptAnswers(ctx context.Context, req service.DecryptRequest) (*decryption.Result, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	return &decryption.Result{
		RunID:   "run-1",
		Summary: decryption.Summary{Total: len(req.BlobIDs), Downloaded: len(req.BlobIDs), Success: len(req.BlobIDs)},
	}, nil
}

type testAPI struct {
	router   *gin.Engine
	sessions *fakeSessionKeyService
	surveys  *fakeSurveyService
	decrypts *fakeDecryptService
	cache    *service.AnswerCache
}

func newTestAPI(t *testing.T) *testAPI {
	api := &testAPI{
		router:   gin.New(),
		sessions: &fakeSessionKeyService{address: testAddress},
		surveys: &fakeSurveyService{blobs: []*survey.AnswerBlobStored{
			{BlobID: "blob-0", Consent: true},
			{BlobID: "blob-1", Consent: false},
		}},
		decrypts: &fakeDecryptService{},
		cache:    service.NewAnswerCache(0),
	}

	api.router.Use(CORSMiddleware())
	group := api.router.Group("/api/v1")
	err := RegisterAll(group,
		&PingPongController{},
		&SessionController{GroupName: "/session", SessionKeySvc: api.sessions, PackageID: testPackageID},
		&SurveyController{
			GroupName:     "/surveys",
			SurveySvc:     api.surveys,
			DecryptSvc:    api.decrypts,
			SessionKeySvc: api.sessions,
			Planner:       &service.DecryptPlanner{SurveyService: api.surveys},
		},
		&AnswerController{GroupName: "/answers", Cache: api.cache},
	)
	if err != nil {
		t.Fatal(err)
	}

	return api
}

func (api *testAPI) do(method, path string, form url.Values) *httptest.ResponseRecorder {
	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	r := httptest.NewRequest(method, path, body)
	if form != nil {
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, r)
	return w
}

func TestPing(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodGet, "/api/v1/ping", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodOptions, "/api/v1/ping", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestEnsureSession(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodPost, "/api/v1/session", url.Values{"ttlMin": {"15"}})
	if isEqual := assert.Equal(t, http.StatusOK, w.Code, w.Body.String()); !isEqual {
		t.FailNow()
	}
	var info SessionInfo
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, testAddress, info.Address)
	assert.Equal(t, testPackageID, info.PackageID)
	assert.Equal(t, 15, info.TTLMin)
	assert.Equal(t, 15*time.Minute, info.ExpiresAt.Sub(info.CreationTime))

	w = api.do(http.MethodPost, "/api/v1/session", url.Values{})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []int{15, service.DefaultSessionKeyTTLMin}, api.sessions.ttls)
}

func TestEnsureSessionErrors(t *testing.T) {
	api := newTestAPI(t)

	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, "/api/v1/session", url.Values{"ttlMin": {"abc"}}).Code)
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, "/api/v1/session", url.Values{"ttlMin": {"45"}}).Code)

	api.sessions.err = errors.Wrap(errorcode.ErrorSignatureRejected, "user rejected")
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodPost, "/api/v1/session", url.Values{}).Code)

	api.sessions.address = ""
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodPost, "/api/v1/session", url.Values{}).Code)
}

func TestGetSurvey(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodGet, "/api/v1/surveys/"+testSurveyID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Coffee habits")

	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/v1/surveys/"+objectID(0x5b), nil).Code)
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodGet, "/api/v1/surveys/not-an-id", nil).Code)
}

func TestListAnswerBlobs(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodGet, "/api/v1/surveys/"+testSurveyID+"/answers?consentOnly=true", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var blobs []*survey.AnswerBlobStored
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &blobs))
	assert.Len(t, blobs, 1)
}

func TestDecryptExplicitBlobs(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodPost, "/api/v1/surveys/"+testSurveyID+"/decrypt", url.Values{"blobIds": {"blob-7, blob-8,"}})
	if isEqual := assert.Equal(t, http.StatusOK, w.Code, w.Body.String()); !isEqual {
		t.FailNow()
	}

	var result decryption.Result
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "run-1", result.RunID)
	assert.Equal(t, 2, result.Summary.Success)

	if isEqual := assert.Len(t, api.decrypts.requests, 1); !isEqual {
		t.FailNow()
	}
	req := api.decrypts.requests[0]
	assert.Equal(t, []string{"blob-7", "blob-8"}, req.BlobIDs)
	assert.Equal(t, testSurveyID, req.Context.SurveyID)
	assert.False(t, req.Context.IsSubscription())
}

func TestDecryptSubscriptionDiscovery(t *testing.T) {
	api := newTestAPI(t)
	api.surveys.subscription = &survey.SubscriptionStored{ID: objectID(0xc1), ServiceID: objectID(0xc2)}

	w := api.do(http.MethodPost, "/api/v1/surveys/"+testSurveyID+"/decrypt", url.Values{"serviceId": {objectID(0xc2)}})
	if isEqual := assert.Equal(t, http.StatusOK, w.Code, w.Body.String()); !isEqual {
		t.FailNow()
	}

	req := api.decrypts.requests[0]
	assert.Equal(t, objectID(0xc1), req.Context.SubscriptionID)
	assert.Equal(t, []string{"blob-0"}, req.BlobIDs)
}

func TestDecryptErrors(t *testing.T) {
	api := newTestAPI(t)
	path := "/api/v1/surveys/" + testSurveyID + "/decrypt"

	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, path, url.Values{"mode": {"public"}}).Code)
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, path, url.Values{"serviceId": {objectID(0xc2)}}).Code)

	api.decrypts.err = errors.Wrap(errorcode.ErrorNoBlobsAvailable, "全部下载失败")
	assert.Equal(t, http.StatusServiceUnavailable, api.do(http.MethodPost, path, url.Values{}).Code)

	api.decrypts.err = errors.Wrap(errorcode.ErrorSignatureRejected, "user rejected")
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodPost, path, url.Values{}).Code)

	api.sessions.address = ""
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodPost, path, url.Values{}).Code)
}

func TestAnswerCacheEndpoints(t *testing.T) {
	api := newTestAPI(t)
	api.cache.Put(&survey.DecryptedAnswer{BlobID: "blob-0", SurveyID: testSurveyID, Timestamp: time.UnixMilli(2)})
	api.cache.Put(&survey.DecryptedAnswer{BlobID: "blob-1", SurveyID: testSurveyID, Timestamp: time.UnixMilli(1)})
	api.cache.Put(&survey.DecryptedAnswer{BlobID: "blob-9", SurveyID: objectID(0x5b), Timestamp: time.UnixMilli(3)})

	w := api.do(http.MethodGet, "/api/v1/answers?surveyId="+testSurveyID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Total   int                       `json:"total"`
		Answers []*survey.DecryptedAnswer `json:"answers"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 2, list.Total)
	if isEqual := assert.Len(t, list.Answers, 2); isEqual {
		assert.Equal(t, "blob-1", list.Answers[0].BlobID)
	}

	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/v1/answers/blob-9", nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/v1/answers/blob-404", nil).Code)
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodGet, "/api/v1/answers?surveyId=zz", nil).Code)

	assert.Equal(t, http.StatusOK, api.do(http.MethodDelete, "/api/v1/answers", nil).Code)
	assert.Equal(t, 0, api.cache.Len())
}

func TestStatusOf(t *testing.T) {
	cases := map[error]int{
		errorcode.ErrorMissingContext:    http.StatusBadRequest,
		errorcode.ErrorNamespaceMismatch: http.StatusBadRequest,
		errorcode.ErrorNoWallet:          http.StatusUnauthorized,
		errorcode.ErrorSignatureRejected: http.StatusUnauthorized,
		errorcode.ErrorNoAccess:          http.StatusForbidden,
		errorcode.ErrorNotFound:          http.StatusNotFound,
		errorcode.ErrorNotImplemented:    http.StatusNotImplemented,
		errorcode.ErrorNoBlobsAvailable:  http.StatusServiceUnavailable,
		errorcode.ErrorGatewayTimeout:    http.StatusGatewayTimeout,
		fmt.Errorf("unexpected"):         http.StatusInternalServerError,
		&service.ErrorBadRequest{}:       http.StatusBadRequest,
	}

	for err, expected := range cases {
		assert.Equal(t, expected, statusOf(errors.Wrap(err, "wrapped")), err.Error())
	}
}
