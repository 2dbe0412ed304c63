package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gitee.com/czyczk/datawave/internal/service"
	"gitee.com/czyczk/datawave/pkg/models/authtx"
)

// A SurveyController serves survey metadata and starts batch decryptions. It implements the interface `Controller`.
type SurveyController struct {
	GroupName     string
	SurveySvc     service.SurveyServiceInterface
	DecryptSvc    service.DecryptServiceInterface
	SessionKeySvc service.SessionKeyServiceInterface
	Planner       *service.DecryptPlanner
}

// GetGroupName returns the group name.
func (sc *SurveyController) GetGroupName() string {
	return sc.GroupName
}

// GetEndpointMap implements part of the interface `Controller`. It returns the API endpoints and handlers which are defined and managed by SurveyController.
func (sc *SurveyController) GetEndpointMap() EndpointMap {
	return EndpointMap{
		urlMethodPair{":id", "GET"}:          []gin.HandlerFunc{sc.handleGetSurvey},
		urlMethodPair{":id/answers", "GET"}:  []gin.HandlerFunc{sc.handleListAnswerBlobs},
		urlMethodPair{":id/decrypt", "POST"}: []gin.HandlerFunc{sc.handleDecrypt},
	}
}

func (sc *SurveyController) handleGetSurvey(c *gin.Context) {
	pel := &ParameterErrorList{}
	id := pel.AppendIfEmptyOrBlankSpaces(c.Param("id"), "问卷 ID 不能为空。")
	id = pel.AppendIfNotObjectID(id, "问卷 ID 不合法。")
	if len(*pel) != 0 {
		abortWithParameterErrors(c, pel)
		return
	}

	surveyStored, err := sc.SurveySvc.GetSurvey(c.Request.Context(), id)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, surveyStored)
}

func (sc *SurveyController) handleListAnswerBlobs(c *gin.Context) {
	pel := &ParameterErrorList{}
	id := pel.AppendIfEmptyOrBlankSpaces(c.Param("id"), "问卷 ID 不能为空。")
	id = pel.AppendIfNotObjectID(id, "问卷 ID 不合法。")
	consentOnly := c.Query("consentOnly") == "true"
	if len(*pel) != 0 {
		abortWithParameterErrors(c, pel)
		return
	}

	blobs, err := sc.SurveySvc.ListAnswerBlobs(c.Request.Context(), id, consentOnly)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, blobs)
}

func (sc *SurveyController) handleDecrypt(c *gin.Context) {
	// Validity check
	pel := &ParameterErrorList{}
	surveyID := pel.AppendIfEmptyOrBlankSpaces(c.Param("id"), "问卷 ID 不能为空。")
	surveyID = pel.AppendIfNotObjectID(surveyID, "问卷 ID 不合法。")
	mode := pel.AppendIfNotOneOf(c.PostForm("mode"), []string{string(authtx.ModeAllowlist), string(authtx.ModeSubscription)}, "授权模式应为 allowlist 或 subscription。")
	subscriptionID := pel.AppendIfNotObjectID(c.PostForm("subscriptionId"), "订阅 ID 不合法。")
	serviceID := pel.AppendIfNotObjectID(c.PostForm("serviceId"), "订阅服务 ID 不合法。")
	blobIDs := parseIDList(c.PostForm("blobIds"))

	// Early return if there's parameter error
	if len(*pel) != 0 {
		abortWithParameterErrors(c, pel)
		return
	}

	ctx := c.Request.Context()
	address, err := sc.SessionKeySvc.CurrentAddress(ctx)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	req, err := sc.Planner.Plan(ctx, address, surveyID, blobIDs, authtx.AuthorizationContext{
		Mode:           authtx.Mode(mode),
		SubscriptionID: subscriptionID,
		ServiceID:      serviceID,
	})
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	result, err := sc.DecryptSvc.DecryptAnswers(ctx, *req)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
