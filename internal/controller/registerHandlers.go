package controller

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type urlMethodPair struct {
	urlSuffix, method string
}

// EndpointMap is a map containing endpoints and the corresponding handlers that are defined and managed by a controller.
//
// Each entry in the map is organized in the following manner.
//   (urlSuffix, method): handler_function_list
// Thus it takes a URL suffix and an HTTP method as the key to perform a lookup.
type EndpointMap map[urlMethodPair][]gin.HandlerFunc

// A Controller must contain an endpoint map.
type Controller interface {
	GetGroupName() string
	GetEndpointMap() EndpointMap
}

// RegisterHandlers registers the endpoint handlers in the controller to the router group.
func RegisterHandlers(r *gin.RouterGroup, c Controller) error {
	group := r.Group(c.GetGroupName())

	for pair, handlers := range c.GetEndpointMap() {
		switch strings.ToUpper(pair.method) {
		case http.MethodGet:
			group.GET(pair.urlSuffix, handlers...)
		case http.MethodPost:
			group.POST(pair.urlSuffix, handlers...)
		case http.MethodPut:
			group.PUT(pair.urlSuffix, handlers...)
		case http.MethodDelete:
			group.DELETE(pair.urlSuffix, handlers...)
		case http.MethodPatch:
			group.PATCH(pair.urlSuffix, handlers...)
		case http.MethodHead:
			group.HEAD(pair.urlSuffix, handlers...)
		case http.MethodOptions:
			group.OPTIONS(pair.urlSuffix, handlers...)
		default:
			return fmt.Errorf("不支持的 HTTP 方法 '%v'（%v%v）", pair.method, c.GetGroupName(), pair.urlSuffix)
		}
	}

	return nil
}

// RegisterAll registers every controller under the router group, stopping at the first failure.
func RegisterAll(r *gin.RouterGroup, controllers ...Controller) error {
	for _, c := range controllers {
		if err := RegisterHandlers(r, c); err != nil {
			return err
		}
	}

	return nil
}
