package handler

import (
	"net/http"

	"github.com/blues/liftoff/internal/liftoff"
	"github.com/blues/liftoff/internal/logger"
	"github.com/blues/liftoff/internal/observability"
	"github.com/gin-gonic/gin"
)

// SuccessResponse 成功响应
func SuccessResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ErrorResponse 错误响应
func ErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, Response{
		Success: false,
		Message: message,
		Data:    nil,
	})
}

// StatusOf 协议错误类别对应的 HTTP 状态码
func StatusOf(err error) int {
	switch liftoff.KindOf(err) {
	case liftoff.KindAuthorization:
		return http.StatusForbidden
	case liftoff.KindInvalidParameters:
		return http.StatusBadRequest
	case liftoff.KindState, liftoff.KindAlreadyDone:
		return http.StatusConflict
	case liftoff.KindInsufficientFunds:
		return http.StatusUnprocessableEntity
	case liftoff.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// rejecter 统一处理被协议拒绝的操作
type rejecter struct {
	metrics *observability.Metrics
}

func (r rejecter) reject(c *gin.Context, operation string, err error) {
	if r.metrics != nil {
		r.metrics.Rejected(operation, err)
	}
	status := StatusOf(err)
	if status == http.StatusInternalServerError {
		logger.Error("%s failed: %v", operation, err)
	} else {
		logger.Debug("%s rejected (%s): %v", operation, liftoff.KindOf(err), err)
	}
	ErrorResponse(c, status, err.Error())
}
