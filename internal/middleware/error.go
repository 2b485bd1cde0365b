package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

// ErrorHandler renders the last error a handler attached with c.Error as a
// JSON response, unless the handler already wrote one.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		status, body := Render(err)
		if status >= http.StatusInternalServerError {
			logrus.WithError(err).WithFields(logrus.Fields{
				"method": c.Request.Method,
				"path":   c.Request.URL.Path,
			}).Error("Request failed")
		}
		c.JSON(status, body)
	}
}

// Render maps err to a status code and response body.
func Render(err error) (int, interface{}) {
	var verr *service.ValidationError
	var fieldErrs validator.ValidationErrors
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var numErr *strconv.NumError

	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, types.ValidationErrorResponse{Error: "validation failed", Fields: verr.Fields}
	case errors.As(err, &fieldErrs):
		return http.StatusBadRequest, types.ValidationErrorResponse{Error: "validation failed", Fields: bindingFields(fieldErrs)}
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return http.StatusBadRequest, validationBody(service.NonFieldErrors, "malformed JSON")
	case errors.Is(err, io.EOF):
		return http.StatusBadRequest, validationBody(service.NonFieldErrors, "request body is empty")
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = service.NonFieldErrors
		}
		return http.StatusBadRequest, validationBody(field, fmt.Sprintf("expected %s", typeErr.Type.String()))
	case errors.As(err, &numErr):
		return http.StatusBadRequest, validationBody(service.NonFieldErrors, fmt.Sprintf("%q is not a valid number", numErr.Num))
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusBadRequest, types.ErrorResponse{Error: err.Error()}
	case IsAuthError(err):
		return http.StatusUnauthorized, types.ErrorResponse{Error: err.Error()}
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, types.ErrorResponse{Error: err.Error()}
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, types.ErrorResponse{Error: err.Error()}
	default:
		return http.StatusInternalServerError, types.ErrorResponse{Error: "internal server error"}
	}
}

func validationBody(field, message string) types.ValidationErrorResponse {
	return types.ValidationErrorResponse{
		Error:  "validation failed",
		Fields: map[string][]string{field: {message}},
	}
}

// bindingFields keys validator errors by their path below the request
// struct, e.g. "ingredients[0].amount".
func bindingFields(errs validator.ValidationErrors) map[string][]string {
	fields := make(map[string][]string, len(errs))
	for _, fe := range errs {
		key := fe.Field()
		if _, rest, ok := strings.Cut(fe.Namespace(), "."); ok {
			key = rest
		}
		fields[key] = append(fields[key], bindingMessage(fe))
	}
	return fields
}

func bindingMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "enter a valid email address"
	case "max":
		return fmt.Sprintf("ensure this field has no more than %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("ensure this field has at least %s characters", fe.Param())
	case "username":
		return "enter a valid username: letters, digits and @/./+/-/_ only"
	case "slug":
		return "enter a valid slug consisting of letters, numbers, underscores or hyphens"
	default:
		return fmt.Sprintf("failed on the %q rule", fe.Tag())
	}
}
