package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/greenvalley/society-portal/internal/infra/logger"
	"github.com/greenvalley/society-portal/internal/transport/http/middleware"
	"github.com/greenvalley/society-portal/internal/usecase"
)

const (
	internalErrorMessage = "something went wrong, please try again"
	maxPageSize          = 200
)

var kindStatus = map[usecase.ErrorKind]int{
	usecase.KindUnauthorized: http.StatusUnauthorized,
	usecase.KindValidation:   http.StatusBadRequest,
	usecase.KindNotFound:     http.StatusNotFound,
	usecase.KindConflict:     http.StatusConflict,
	usecase.KindDomainRule:   http.StatusUnprocessableEntity,
}

// StatusForError maps a workflow error onto an HTTP status code.
func StatusForError(err error) int {
	if status, ok := kindStatus[usecase.KindOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// respond writes a successful envelope.
func respond(c *gin.Context, status int, data any) {
	c.JSON(status, Envelope{Success: true, Data: data})
}

// respondError writes a failed envelope for err. Internal errors are logged and
// replaced with a generic message so persistence details never reach clients.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	kind := usecase.KindOf(err)
	status := StatusForError(err)
	body := &ErrorBody{
		Kind:    string(kind),
		Message: err.Error(),
		TraceID: middleware.GetTraceID(c),
	}

	var uErr *usecase.Error
	var vErr *usecase.ValidationError
	switch {
	case errors.As(err, &vErr):
		body.Message = "please correct the highlighted fields"
		body.Fields = vErr.Fields
	case errors.As(err, &uErr):
		body.Code = uErr.Code
		body.Message = uErr.Message
	default:
		body.Kind = string(usecase.KindInternal)
		body.Message = internalErrorMessage
		_ = c.Error(err)
		if log != nil {
			logger.Scoped(c.Request.Context(), log).Error("request failed",
				zap.String("path", c.FullPath()),
				zap.Error(err),
			)
		}
	}

	c.AbortWithStatusJSON(status, Envelope{Success: false, Error: body})
}

// respondInvalidBody reports an undecodable request body as a validation failure.
func respondInvalidBody(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusBadRequest, Envelope{Success: false, Error: &ErrorBody{
		Kind:    string(usecase.KindValidation),
		Message: "request body is not valid JSON for this endpoint",
		Fields:  map[string]string{"body": "malformed"},
		TraceID: middleware.GetTraceID(c),
	}})
}

// pageParams reads limit and offset query parameters, ignoring malformed values.
func pageParams(c *gin.Context) (int, int) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
