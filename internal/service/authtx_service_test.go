package service

import (
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"gitee.com/czyczk/datawave/internal/utils/hexutils"
	"gitee.com/czyczk/datawave/pkg/errorcode"
	"gitee.com/czyczk/datawave/pkg/models/authtx"
)

func TestBuildAuthorizationAllowlist(t *testing.T) {
	s := &AuthTxService{PackageID: testPackageID}
	ids := [][]byte{keyIDFor(testSurveyID, 1), keyIDFor(testSurveyID, 2)}

	tx, err := s.BuildAuthorization(ids, authtx.AuthorizationContext{SurveyID: testSurveyID})
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.Equal(t, authtx.TransactionKindProgrammable, tx.Kind)
	if isEqual := assert.Len(t, tx.Commands, 2); !isEqual {
		t.FailNow()
	}
	for i, call := range tx.Commands {
		assert.Equal(t, testPackageID+"::survey::seal_approve", call.Target())
		keyID, err := call.KeyID()
		assert.NoError(t, err)
		assert.Equal(t, ids[i], keyID)
		surveyArg, err := call.ObjectArgument(1)
		assert.NoError(t, err)
		assert.Equal(t, testSurveyID, surveyArg)
	}
}

func TestBuildAuthorizationSubscription(t *testing.T) {
	s := &AuthTxService{PackageID: testPackageID}
	authCtx := authtx.AuthorizationContext{
		SurveyID:       testSurveyID,
		SubscriptionID: objectID(0xc1),
		ServiceID:      objectID(0xc2),
	}

	tx, err := s.BuildAuthorization([][]byte{keyIDFor(testSurveyID, 7)}, authCtx)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	call := tx.Commands[0]
	assert.Equal(t, "subscription", call.Module)
	assert.Len(t, call.Arguments, 4)
	subscriptionArg, _ := call.ObjectArgument(1)
	serviceArg, _ := call.ObjectArgument(2)
	clockArg, _ := call.ObjectArgument(3)
	assert.Equal(t, objectID(0xc1), subscriptionArg)
	assert.Equal(t, objectID(0xc2), serviceArg)
	assert.Equal(t, authtx.ClockObjectID, clockArg)
}

func TestBuildAuthorizationIsDeterministic(t *testing.T) {
	s := &AuthTxService{PackageID: testPackageID}
	ids := [][]byte{keyIDFor(testSurveyID, 1), keyIDFor(testSurveyID, 2), keyIDFor(testSurveyID, 3)}
	authCtx := authtx.AuthorizationContext{SurveyID: testSurveyID}

	tx1, err := s.BuildAuthorization(ids, authCtx)
	assert.NoError(t, err)
	tx2, err := s.BuildAuthorization(ids, authCtx)
	assert.NoError(t, err)

	b1, err := tx1.Bytes()
	assert.NoError(t, err)
	b2, err := tx2.Bytes()
	assert.NoError(t, err)
	assert.Equal(t, b1, b2)

	parsed, err := authtx.ParseTransaction(b1)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.Equal(t, tx1, parsed)
}

func TestBuildAuthorizationMissingContext(t *testing.T) {
	s := &AuthTxService{PackageID: testPackageID}
	ids := [][]byte{keyIDFor(testSurveyID, 1)}

	cases := map[string]authtx.AuthorizationContext{
		"no survey":             {},
		"no service":            {SurveyID: testSurveyID, SubscriptionID: objectID(0xc1)},
		"no subscription":       {SurveyID: testSurveyID, ServiceID: objectID(0xc2)},
		"explicit subscription": {SurveyID: testSurveyID, Mode: authtx.ModeSubscription},
		"malformed survey":      {SurveyID: "not-hex"},
	}
	for name, authCtx := range cases {
		_, err := s.BuildAuthorization(ids, authCtx)
		assert.Equal(t, errorcode.ErrorMissingContext, errors.Cause(err), name)
	}

	_, err := s.BuildAuthorization(nil, authtx.AuthorizationContext{SurveyID: testSurveyID})
	assert.Equal(t, errorcode.ErrorMissingContext, errors.Cause(err))
}

func TestBuildAuthorizationNamespaceMismatch(t *testing.T) {
	s := &AuthTxService{PackageID: testPackageID}
	ids := [][]byte{keyIDFor(testSurveyID, 1), keyIDFor(otherSurveyID, 2)}

	_, err := s.BuildAuthorization(ids, authtx.AuthorizationContext{SurveyID: testSurveyID})
	assert.Equal(t, errorcode.ErrorNamespaceMismatch, errors.Cause(err))

	// 只有问卷 ID 本身而没有随机数的 ID 也不被接受
	namespace, _ := hexutils.DecodeObjectID(testSurveyID)
	_, err = s.BuildAuthorization([][]byte{namespace}, authtx.AuthorizationContext{SurveyID: testSurveyID})
	assert.Equal(t, errorcode.ErrorNamespaceMismatch, errors.Cause(err))
}

func TestKeyIDNamespaceRoundTrip(t *testing.T) {
	keyID := keyIDFor(testSurveyID, 42)

	encoded := hexutils.EncodeHex(keyID)
	assert.True(t, strings.HasPrefix(encoded, testSurveyID))
	assert.True(t, authtx.HasNamespace(keyID, testSurveyID))
	assert.False(t, authtx.HasNamespace(keyID, otherSurveyID))
}
