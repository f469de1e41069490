package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainagg "github.com/yungbote/coursetrack-backend/internal/domain/aggregates"
	"github.com/yungbote/coursetrack-backend/internal/platform/apierr"
	"github.com/yungbote/coursetrack-backend/internal/platform/vimeo"
)

// RespondServiceError maps a service error onto the error envelope. Internal
// failures are reported with fallbackCode and a generic message.
func RespondServiceError(c *gin.Context, fallbackCode string, err error) {
	status, code, msg := Classify(err)
	if status == http.StatusInternalServerError {
		RespondError(c, status, fallbackCode, errors.New("internal error"))
		return
	}
	RespondError(c, status, code, errors.New(msg))
}

// Classify returns the HTTP status, error code and client-safe message for err.
func Classify(err error) (int, string, string) {
	if err == nil {
		return http.StatusInternalServerError, "internal", "unknown error"
	}
	if ae, ok := apierr.As(err); ok {
		return ae.Status, ae.Code, ae.Error()
	}
	switch {
	case errors.Is(err, vimeo.ErrInvalidSignature):
		return http.StatusUnauthorized, "invalid_signature", "invalid webhook signature"
	case errors.Is(err, vimeo.ErrInvalidPayload):
		return http.StatusBadRequest, "invalid_payload", err.Error()
	}

	var de *domainagg.Error
	if !errors.As(err, &de) {
		return http.StatusInternalServerError, "internal", err.Error()
	}
	msg := de.Message
	if msg == "" {
		msg = string(de.Code)
	}
	switch de.Code {
	case domainagg.CodeValidation:
		return http.StatusBadRequest, "validation_error", msg
	case domainagg.CodeNotFound:
		return http.StatusNotFound, "not_found", msg
	case domainagg.CodeConflict, domainagg.CodeRetryable:
		return http.StatusConflict, "conflict", msg
	case domainagg.CodePreconditionFailed:
		return http.StatusUnprocessableEntity, "precondition_failed", msg
	case domainagg.CodeInvariantViolation:
		return http.StatusUnprocessableEntity, "invariant_violation", msg
	default:
		return http.StatusInternalServerError, "internal", msg
	}
}
