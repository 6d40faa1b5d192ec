package handlers

import (
	"errors"
	"net/http"

	"github.com/Conceptual-Machines/midigen-api/internal/apperr"
	"github.com/Conceptual-Machines/midigen-api/internal/logger"
	"github.com/gin-gonic/gin"
)

// respondError writes the structured failure body. The raw AI output is
// logged but never sent to the client.
func respondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)
	message := "Internal server error"

	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		message = appErr.Message
	}

	fields := logger.WithContext(c).With(logger.Fields{
		"kind":   string(kind),
		"status": status,
	})
	if appErr != nil && appErr.Raw != "" {
		fields["raw"] = appErr.Raw
	}
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", err, fields)
	} else {
		logger.Warn("Request rejected: "+err.Error(), fields)
	}

	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"kind":    kind,
			"message": message,
		},
		"request_id": c.GetString("request_id"),
	})
}

func respondBindError(c *gin.Context, err error) {
	respondError(c, apperr.Wrap(apperr.InvalidInput, "invalid request body: "+err.Error(), err))
}
