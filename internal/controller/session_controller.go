package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gitee.com/czyczk/datawave/internal/service"
)

// A SessionController contains a group name and a `SessionKeyService` instance. It also implements the interface `Controller`.
type SessionController struct {
	GroupName     string
	SessionKeySvc service.SessionKeyServiceInterface
	PackageID     string
	DefaultTTLMin int
}

// GetGroupName returns the group name.
func (sc *SessionController) GetGroupName() string {
	return sc.GroupName
}

// GetEndpointMap implements part of the interface `Controller`. It returns the API endpoints and handlers which are defined and managed by SessionController.
func (sc *SessionController) GetEndpointMap() EndpointMap {
	return EndpointMap{
		urlMethodPair{"", "POST"}: []gin.HandlerFunc{sc.handleEnsureSession},
	}
}

func (sc *SessionController) handleEnsureSession(c *gin.Context) {
	ttlMin := sc.DefaultTTLMin
	if ttlMin <= 0 {
		ttlMin = service.DefaultSessionKeyTTLMin
	}

	// Validity check
	pel := &ParameterErrorList{}
	if ttlMinStr := c.PostForm("ttlMin"); ttlMinStr != "" {
		ttlMin = pel.AppendIfNotPositiveInt(ttlMinStr, "会话有效期应为正整数（分钟）。")
		if ttlMin > 30 {
			*pel = append(*pel, "会话有效期不能超过 30 分钟。")
		}
	}

	// Early return if there's parameter error
	if len(*pel) != 0 {
		abortWithParameterErrors(c, pel)
		return
	}

	address, err := sc.SessionKeySvc.CurrentAddress(c.Request.Context())
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	sessionKey, err := sc.SessionKeySvc.EnsureSessionKey(c.Request.Context(), address, sc.PackageID, ttlMin)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SessionInfo{
		Address:      sessionKey.Address(),
		PackageID:    sessionKey.PackageID(),
		TTLMin:       sessionKey.TTLMin(),
		CreationTime: sessionKey.CreationTime(),
		ExpiresAt:    sessionKey.ExpiresAt(),
	})
}
