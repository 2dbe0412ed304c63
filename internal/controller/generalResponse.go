package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GeneralResponse is the body of every non-success response of the client API.
type GeneralResponse struct {
	errors ParameterErrorList
	msg    string
}

// NewFromErrors fills a GeneralResponse with errors.
func (gr *GeneralResponse) NewFromErrors(errors *ParameterErrorList) {
	gr.errors = *errors
}

// NewFromMsg fills a GeneralResponse with a string message.
func (gr *GeneralResponse) NewFromMsg(msg string) {
	gr.msg = msg
}

// ToMap converts this struct to a map. Absent errors are rendered as an empty list.
func (gr *GeneralResponse) ToMap() map[string]interface{} {
	errs := gr.errors
	if errs == nil {
		errs = ParameterErrorList{}
	}

	return map[string]interface{}{
		"errors": errs,
		"msg":    gr.msg,
	}
}

// abortWithParameterErrors answers 400 with the collected parameter errors.
func abortWithParameterErrors(c *gin.Context, pel *ParameterErrorList) {
	gr := &GeneralResponse{}
	gr.NewFromErrors(pel)
	gr.NewFromMsg("参数错误。")
	c.AbortWithStatusJSON(http.StatusBadRequest, gr.ToMap())
}

// abortWithMessage answers status with a single message.
func abortWithMessage(c *gin.Context, status int, msg string) {
	gr := &GeneralResponse{}
	gr.NewFromMsg(msg)
	c.AbortWithStatusJSON(status, gr.ToMap())
}
