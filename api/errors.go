package api

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"freight-rating/internal/errors"
)

// statusFor maps an error type to its HTTP status.
func statusFor(t errors.Type) int {
	switch t {
	case errors.TypeInput, errors.TypeParsing:
		return http.StatusBadRequest
	case errors.TypeConfig:
		return http.StatusUnprocessableEntity
	case errors.TypeNotFound:
		return http.StatusNotFound
	case errors.TypeNotSupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as an ErrorResponse. Errors that are not typed are
// reported as internal and their text is not exposed.
func (s *Server) respondError(c *gin.Context, err error) {
	e, ok := errors.As(err)
	if !ok {
		e = errors.Internal("internal error", err)
	}

	code := string(e.Code)
	if code == "" {
		code = string(e.Type)
	}
	message := e.Message
	if e.Cause != nil && e.Type != errors.TypeInternal {
		message += ": " + e.Cause.Error()
	}

	status := statusFor(e.Type)
	fields := []zap.Field{
		zap.String("code", code),
		zap.Int("status", status),
		zap.String("path", c.Request.URL.Path),
		zap.String("request_id", c.GetString(ContextKeyRequestID)),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", fields...)
	} else {
		s.logger.Debug("request rejected", fields...)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{Error: ErrorBody{
		Code:      code,
		Type:      string(e.Type),
		Message:   message,
		Context:   e.Context,
		RequestID: c.GetString(ContextKeyRequestID),
	}})
}

// bindError converts a gin binding failure into an input error naming the
// offending fields.
func bindError(err error) *errors.Error {
	e := errors.Newf(errors.TypeInput, errors.CodeInvalidRequest, "invalid request body")

	var ve validator.ValidationErrors
	if !stderrors.As(err, &ve) {
		e.Cause = err
		return e
	}

	fields := make(map[string]string, len(ve))
	for _, fe := range ve {
		fields[fe.Field()] = describe(fe)
	}
	return e.WithContext("fields", fields)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "transport_mode":
		return "must be one of AERIAL, AERIAL_EXPRESS, MARITIME, MARITIME_EXPRESS"
	case "datetime":
		return "must be a date formatted as " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "failed " + fe.Tag() + " validation"
	}
}
