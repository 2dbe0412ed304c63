package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"gitee.com/czyczk/datawave/internal/service"
	"gitee.com/czyczk/datawave/pkg/errorcode"
)

// statusOf classifies a service error into an HTTP status code.
func statusOf(err error) int {
	cause := errors.Cause(err)
	if _, ok := cause.(*service.ErrorBadRequest); ok {
		return http.StatusBadRequest
	}

	switch cause {
	case errorcode.ErrorMissingContext, errorcode.ErrorNamespaceMismatch:
		return http.StatusBadRequest
	case errorcode.ErrorNoWallet, errorcode.ErrorSignatureRejected:
		return http.StatusUnauthorized
	case errorcode.ErrorNoAccess, errorcode.ErrorForbidden:
		return http.StatusForbidden
	case errorcode.ErrorNotFound:
		return http.StatusNotFound
	case errorcode.ErrorNotImplemented:
		return http.StatusNotImplemented
	case errorcode.ErrorNoBlobsAvailable:
		return http.StatusServiceUnavailable
	case errorcode.ErrorGatewayTimeout:
		return http.StatusGatewayTimeout
	}

	return http.StatusInternalServerError
}

// abortWithServiceError answers with the status matching err and its message.
func abortWithServiceError(c *gin.Context, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		log.Errorf("%v %v 处理失败：%v", c.Request.Method, c.Request.URL.Path, err)
	}

	abortWithMessage(c, status, err.Error())
}
