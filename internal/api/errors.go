package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AdrianSkaw/dynamic/internal/apperr"
)

// statusFor: внешний вид ошибки определяет HTTP-статус.
func statusFor(err error) int {
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	// ValidationError конвейера записи всегда 400, даже поверх StoreIOError
	switch apperr.KindOf(err) {
	case apperr.EntityNotFound, apperr.RecordNotFound:
		return http.StatusNotFound
	case apperr.EntityAlreadyExists:
		return http.StatusConflict
	case apperr.StoreIOError:
		return http.StatusInternalServerError
	case "":
		return http.StatusInternalServerError
	}
	return http.StatusBadRequest
}

// ErrorMiddleware превращает последнюю ошибку обработчика в ответ
// {"error": {"code", "message"}}.
func ErrorMiddleware(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err
		status := statusFor(err)
		code := string(apperr.KindOf(err))
		msg := err.Error()
		if status == http.StatusInternalServerError {
			log.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
			if code == "" {
				code, msg = "internal", "Internal server error"
			}
		} else {
			log.Debug("request rejected", "path", c.FullPath(), "status", status, "error", err)
		}
		if status == http.StatusGatewayTimeout {
			code = "timeout"
		}
		c.JSON(status, gin.H{
			"error": gin.H{
				"code":    code,
				"message": msg,
			},
		})
	}
}
