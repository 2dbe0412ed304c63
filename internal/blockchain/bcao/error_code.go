package bcao

import (
	"strings"

	"github.com/pkg/errors"

	"gitee.com/czyczk/datawave/pkg/errorcode"
)

// GetClassifiedError is a general error handler that converts some errors returned from the chain node to the predefined errors.
func GetClassifiedError(method string, err error) error {
	if err == nil {
		return nil
	}

	msg := err.Error()
	switch {
	case strings.HasSuffix(msg, errorcode.CodeNotFound),
		strings.Contains(msg, "notExists"),
		strings.Contains(msg, "deleted"):
		return errorcode.ErrorNotFound
	case strings.HasSuffix(msg, errorcode.CodeForbidden):
		return errorcode.ErrorForbidden
	case strings.HasSuffix(msg, errorcode.CodeNotImplemented),
		strings.Contains(msg, "Method not found"):
		return errorcode.ErrorNotImplemented
	case errors.Cause(err) == errorcode.ErrorGatewayTimeout,
		strings.Contains(msg, "context deadline exceeded"):
		return errors.Wrapf(errorcode.ErrorGatewayTimeout, "调用链上方法 '%v' 超时", method)
	default:
		return errors.Wrapf(err, "无法调用链上方法 '%v'", method)
	}
}
