package responses

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/srcbook/websearch-mcp/internal/domain/search"
	"github.com/srcbook/websearch-mcp/internal/interfaces/httpserver/middlewares"
)

type ErrorResponse struct {
	Code      string `json:"code"` // search error kind, or "bad_request"
	Error     string `json:"error"`
	Query     string `json:"query,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type GeneralResponse[T any] struct {
	Status string `json:"status"`
	Result T      `json:"result"`
}

// SearchErrorStatus maps a search failure to the HTTP status the gateway answers with.
func SearchErrorStatus(err *search.SearchError) int {
	switch err.Kind {
	case search.KindValidation:
		return http.StatusBadRequest
	case search.KindTimeout:
		return http.StatusGatewayTimeout
	case search.KindConnection:
		return http.StatusBadGateway
	case search.KindProtocol:
		if err.Code == search.CodeInvalidParams {
			return http.StatusBadRequest
		}
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// HandleError converts err into a JSON error response and aborts the request.
// Status code is determined from the search error kind.
func HandleError(reqCtx *gin.Context, err error) {
	reqCtx.Error(err)

	var searchErr *search.SearchError
	if errors.As(err, &searchErr) {
		reqCtx.AbortWithStatusJSON(SearchErrorStatus(searchErr), ErrorResponse{
			Code:      searchErr.Kind.String(),
			Error:     searchErr.Message,
			Query:     searchErr.Query,
			RequestID: middlewares.GetRequestID(reqCtx),
		})
		return
	}

	reqCtx.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
		Code:      search.KindSearch.String(),
		Error:     err.Error(),
		RequestID: middlewares.GetRequestID(reqCtx),
	})
}

// BadRequest rejects a malformed request before it reaches the search facade.
func BadRequest(reqCtx *gin.Context, message string) {
	reqCtx.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
		Code:      "bad_request",
		Error:     message,
		RequestID: middlewares.GetRequestID(reqCtx),
	})
}
