package server

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/quoteflow/internal/auth/domain"
	budgetdomain "github.com/smallbiznis/quoteflow/internal/budget/domain"
	clientdomain "github.com/smallbiznis/quoteflow/internal/client/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
		wantCode   string
	}{
		{"discount", fmt.Errorf("update: %w", budgetdomain.ErrDiscountExceedsSubtotal), http.StatusUnprocessableEntity, "business_rule_violation", "discount_exceeds_subtotal"},
		{"empty items", budgetdomain.ErrEmptyItemList, http.StatusUnprocessableEntity, "business_rule_violation", "empty_item_list"},
		{"client in use", clientdomain.ErrClientInUse, http.StatusConflict, "conflict", "client_in_use"},
		{"user exists", authdomain.ErrUserExists, http.StatusConflict, "conflict", "user_exists"},
		{"bad credentials", authdomain.ErrInvalidCredentials, http.StatusUnauthorized, "unauthorized", ""},
		{"malformed id", budgetdomain.ErrInvalidID, http.StatusNotFound, "not_found", ""},
		{"missing row", gorm.ErrRecordNotFound, http.StatusNotFound, "not_found", ""},
		{"throttled", ErrTooManyRequests, http.StatusTooManyRequests, "rate_limited", ""},
		{"unexpected", fmt.Errorf("boom"), http.StatusInternalServerError, "internal_error", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, payload := mapError(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantType, payload.Type)
			assert.Equal(t, tt.wantCode, payload.Code)
		})
	}
}

func TestMapErrorValidationFields(t *testing.T) {
	status, payload := mapError(&budgetdomain.InvalidItemError{Index: 2, Field: "unit_price", Reason: "must_not_be_negative"})
	require.Equal(t, http.StatusBadRequest, status)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "items[2].unit_price", payload.Errors[0].Field)
	assert.Equal(t, "must_not_be_negative", payload.Errors[0].Code)

	status, payload = mapError(clientdomain.ErrInvalidEmail)
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "email", payload.Errors[0].Field)
	assert.Equal(t, "invalid_email", payload.Errors[0].Code)
}

func TestClassifyErrorForLog(t *testing.T) {
	kind, code := classifyErrorForLog(budgetdomain.ErrClientNotOwned)
	assert.Equal(t, "business_rule_violation", kind)
	assert.Equal(t, "client_not_owned", code)

	kind, code = classifyErrorForLog(&budgetdomain.UnknownFieldError{Field: "total"})
	assert.Equal(t, "validation_error", kind)
	assert.Equal(t, "unknown_field", code)
}

func TestBindStrictJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)

	type payload struct {
		Title string `json:"title"`
	}

	bind := func(body string) (payload, error) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		var dst payload
		err := bindStrictJSON(c, &dst)
		return dst, err
	}

	got, err := bind(`{"title":"Website"}`)
	require.NoError(t, err)
	assert.Equal(t, "Website", got.Title)

	_, err = bind(`{"title":"Website","total":"1"}`)
	var fieldErr *budgetdomain.UnknownFieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "total", fieldErr.Field)

	for _, body := range []string{"", `{"title":`, `{"title":"a"} {"title":"b"}`, `{"title":1}`} {
		_, err = bind(body)
		status, _ := mapError(err)
		assert.Equal(t, http.StatusBadRequest, status, "body %q", body)
	}
}
