package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gitee.com/czyczk/datawave/internal/service"
)

// An AnswerController exposes the decrypted answers kept in the local cache. It implements the interface `Controller`.
type AnswerController struct {
	GroupName string
	Cache     *service.AnswerCache
}

// GetGroupName returns the group name.
func (ac *AnswerController) GetGroupName() string {
	return ac.GroupName
}

// GetEndpointMap implements part of the interface `Controller`. It returns the API endpoints and handlers which are defined and managed by AnswerController.
func (ac *AnswerController) GetEndpointMap() EndpointMap {
	return EndpointMap{
		urlMethodPair{"", "GET"}:        []gin.HandlerFunc{ac.handleListAnswers},
		urlMethodPair{"", "DELETE"}:     []gin.HandlerFunc{ac.handleClearAnswers},
		urlMethodPair{":blobId", "GET"}: []gin.HandlerFunc{ac.handleGetAnswer},
	}
}

func (ac *AnswerController) handleListAnswers(c *gin.Context) {
	pel := &ParameterErrorList{}
	surveyID := pel.AppendIfNotObjectID(c.Query("surveyId"), "问卷 ID 不合法。")
	if len(*pel) != 0 {
		abortWithParameterErrors(c, pel)
		return
	}

	answers := ac.Cache.List(surveyID)
	c.JSON(http.StatusOK, AnswerList{Total: len(answers), Answers: answers})
}

func (ac *AnswerController) handleGetAnswer(c *gin.Context) {
	pel := &ParameterErrorList{}
	blobID := pel.AppendIfEmptyOrBlankSpaces(c.Param("blobId"), "blob ID 不能为空。")
	if len(*pel) != 0 {
		abortWithParameterErrors(c, pel)
		return
	}

	answer, err := ac.Cache.Get(blobID)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, answer)
}

func (ac *AnswerController) handleClearAnswers(c *gin.Context) {
	ac.Cache.Clear()

	gr := &GeneralResponse{}
	gr.NewFromMsg("已清空解密结果。")
	c.JSON(http.StatusOK, gr.ToMap())
}
