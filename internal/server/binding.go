package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	budgetdomain "github.com/smallbiznis/quoteflow/internal/budget/domain"
)

const maxBodyBytes = 1 << 20

// bindStrictJSON decodes the request body into dst and rejects fields dst does not declare.
func bindStrictJSON(c *gin.Context, dst any) error {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes+1))
	if err != nil || len(body) > maxBodyBytes {
		return invalidRequestError()
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return invalidRequestError()
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		if field, ok := unknownField(err); ok {
			return &budgetdomain.UnknownFieldError{Field: field}
		}
		return invalidRequestError()
	}
	if dec.More() {
		return invalidRequestError()
	}
	return nil
}

// unknownField extracts the name from encoding/json's `json: unknown field "x"` error.
func unknownField(err error) (string, bool) {
	if err == nil {
		return "", false
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return "", false
	}
	const prefix = "json: unknown field "
	msg := err.Error()
	if !strings.HasPrefix(msg, prefix) {
		return "", false
	}
	return strings.Trim(strings.TrimPrefix(msg, prefix), `"`), true
}
