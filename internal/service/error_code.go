package service

import (
	"github.com/pkg/errors"

	"gitee.com/czyczk/datawave/pkg/errorcode"
)

// ErrorBadRequest 表示调用参数不合法。
type ErrorBadRequest struct {
	errMsg string
}

func (e *ErrorBadRequest) Error() string {
	return e.errMsg
}

// knownReasons 为可以直接作为单条失败原因的错误。
var knownReasons = []error{
	errorcode.ErrorNoAccess,
	errorcode.ErrorDecrypt,
	errorcode.ErrorNamespaceMismatch,
	errorcode.ErrorMissingContext,
	errorcode.ErrorGatewayTimeout,
	errorcode.ErrorNotFound,
}

// failureReason 返回 err 的根因（若为已知错误），否则返回 fallback。
func failureReason(err error, fallback error) error {
	cause := errors.Cause(err)
	for _, known := range knownReasons {
		if cause == known {
			return known
		}
	}

	return fallback
}
