package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/quoteflow/internal/audit/domain"
	authdomain "github.com/smallbiznis/quoteflow/internal/auth/domain"
	"github.com/smallbiznis/quoteflow/internal/authorization"
	budgetdomain "github.com/smallbiznis/quoteflow/internal/budget/domain"
	clientdomain "github.com/smallbiznis/quoteflow/internal/client/domain"
	profiledomain "github.com/smallbiznis/quoteflow/internal/profile/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Code    string            `json:"code,omitempty"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrTooManyRequests    = errors.New("too_many_requests")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, validationPayload(vErr.Errors...)
	}

	var itemErr *budgetdomain.InvalidItemError
	if errors.As(err, &itemErr) {
		return http.StatusBadRequest, validationPayload(ValidationError{
			Field:   itemErr.Path(),
			Code:    itemErr.Reason,
			Message: itemErr.Error(),
		})
	}

	var fieldErr *budgetdomain.UnknownFieldError
	if errors.As(err, &fieldErr) {
		return http.StatusBadRequest, validationPayload(ValidationError{
			Field:   fieldErr.Field,
			Code:    "unknown_field",
			Message: "unknown field",
		})
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, validationPayload(ValidationError{
			Field:   validationErrorField(code),
			Code:    code,
			Message: validationErrorMessage(code),
		})
	}

	if code, ok := businessRuleCode(err); ok {
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "business_rule_violation",
			Message: businessRuleMessage(code),
			Code:    code,
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authdomain.ErrInvalidCredentials),
		errors.Is(err, authdomain.ErrInvalidSession),
		errors.Is(err, authdomain.ErrSessionNotFound),
		errors.Is(err, authdomain.ErrSessionExpired),
		errors.Is(err, authdomain.ErrSessionRevoked),
		errors.Is(err, authorization.ErrInvalidActor):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, ErrConflict),
		errors.Is(err, authdomain.ErrUserExists),
		errors.Is(err, clientdomain.ErrEmailTaken),
		errors.Is(err, clientdomain.ErrClientInUse):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
			Code:    conflictCode(err),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrTooManyRequests):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func validationPayload(errs ...ValidationError) errorPayload {
	return errorPayload{
		Type:    "validation_error",
		Message: "validation error",
		Errors:  errs,
	}
}

// classifyErrorForLog feeds the request logger the same type and code the client sees.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Code
	if code == "" && len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func businessRuleCode(err error) (string, bool) {
	switch {
	case errors.Is(err, budgetdomain.ErrDiscountExceedsSubtotal):
		return "discount_exceeds_subtotal", true
	case errors.Is(err, budgetdomain.ErrEmptyItemList):
		return "empty_item_list", true
	case errors.Is(err, budgetdomain.ErrClientNotOwned):
		return "client_not_owned", true
	default:
		return "", false
	}
}

func businessRuleMessage(code string) string {
	switch code {
	case "discount_exceeds_subtotal":
		return "discount cannot exceed the budget subtotal"
	case "empty_item_list":
		return "a budget needs at least one item"
	case "client_not_owned":
		return "client does not belong to the current user"
	default:
		return "business rule violation"
	}
}

func conflictCode(err error) string {
	switch {
	case errors.Is(err, authdomain.ErrUserExists):
		return "user_exists"
	case errors.Is(err, clientdomain.ErrEmailTaken):
		return "email_taken"
	case errors.Is(err, clientdomain.ErrClientInUse):
		return "client_in_use"
	default:
		return ""
	}
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return true
	case isAuthValidationError(err),
		isClientValidationError(err),
		isProfileValidationError(err),
		isBudgetValidationError(err),
		isAuditValidationError(err):
		return true
	default:
		return false
	}
}

func isAuthValidationError(err error) bool {
	switch {
	case errors.Is(err, authdomain.ErrInvalidName),
		errors.Is(err, authdomain.ErrInvalidEmail),
		errors.Is(err, authdomain.ErrInvalidPassword):
		return true
	default:
		return false
	}
}

func isClientValidationError(err error) bool {
	switch {
	case errors.Is(err, clientdomain.ErrInvalidName),
		errors.Is(err, clientdomain.ErrInvalidEmail),
		errors.Is(err, clientdomain.ErrInvalidWhatsapp),
		errors.Is(err, clientdomain.ErrInvalidPageToken):
		return true
	default:
		return false
	}
}

func isProfileValidationError(err error) bool {
	switch {
	case errors.Is(err, profiledomain.ErrInvalidDocumentType),
		errors.Is(err, profiledomain.ErrInvalidDocumentNumber),
		errors.Is(err, profiledomain.ErrInvalidCompanyName),
		errors.Is(err, profiledomain.ErrInvalidWhatsapp),
		errors.Is(err, profiledomain.ErrInvalidURL):
		return true
	default:
		return false
	}
}

func isBudgetValidationError(err error) bool {
	switch {
	case errors.Is(err, budgetdomain.ErrInvalidStatus),
		errors.Is(err, budgetdomain.ErrInvalidValidUntil),
		errors.Is(err, budgetdomain.ErrInvalidCurrency),
		errors.Is(err, budgetdomain.ErrInvalidTitle),
		errors.Is(err, budgetdomain.ErrInvalidDiscount),
		errors.Is(err, budgetdomain.ErrInvalidClientID),
		errors.Is(err, budgetdomain.ErrInvalidPageToken):
		return true
	default:
		return false
	}
}

func isAuditValidationError(err error) bool {
	switch {
	case errors.Is(err, auditdomain.ErrInvalidPageToken),
		errors.Is(err, auditdomain.ErrInvalidTimeRange),
		errors.Is(err, auditdomain.ErrInvalidAction):
		return true
	default:
		return false
	}
}

// Malformed ids are reported as missing rows.
func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, budgetdomain.ErrNotFound),
		errors.Is(err, budgetdomain.ErrItemNotFound),
		errors.Is(err, budgetdomain.ErrInvalidID),
		errors.Is(err, clientdomain.ErrNotFound),
		errors.Is(err, clientdomain.ErrInvalidID),
		errors.Is(err, profiledomain.ErrNotFound),
		errors.Is(err, authdomain.ErrUserNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	default:
		return err.Error()
	}
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	default:
		return "invalid value"
	}
}
