// Package validate implements declarative request-body validation.  Each
// endpoint declares its field rules in the router, and the rules run as
// middleware after authorization and before the handler.  Any violation
// short-circuits the request with HTTP 400 and a list of per-field
// messages; the handler body never executes.
package validate

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/asaskevich/govalidator"
	"github.com/labstack/echo/v4"

	"github.com/recykl/fleet-registry/internal/utils"
)

// FieldError describes a single rule violation.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type checkKind int

const (
	checkRequired checkKind = iota
	checkNumeric
	checkOneOf
	checkEmail
	checkStrongPassword
)

// Rule binds one check to one body field.  Checks other than Required are
// skipped when the field is absent; combine with Required to force
// presence.
type Rule struct {
	Field   string
	kind    checkKind
	allowed []string
	Message string
}

// Required fails when the field is missing, null or a blank string.
func Required(field, message string) Rule {
	return Rule{Field: field, kind: checkRequired, Message: message}
}

// Numeric fails when a present field is neither a JSON number nor a
// numeric string.
func Numeric(field, message string) Rule {
	return Rule{Field: field, kind: checkNumeric, Message: message}
}

// OneOf fails when a present field is not one of the allowed values.
func OneOf(field string, allowed []string, message string) Rule {
	return Rule{Field: field, kind: checkOneOf, allowed: allowed, Message: message}
}

// Email fails when a present field is not a well-formed email address.
func Email(field, message string) Rule {
	return Rule{Field: field, kind: checkEmail, Message: message}
}

// StrongPassword fails when a present field does not satisfy the password
// policy (length, character classes, strength score).
func StrongPassword(field, message string) Rule {
	return Rule{Field: field, kind: checkStrongPassword, Message: message}
}

// Body returns middleware evaluating the given rules against the JSON
// request body.  The body is buffered and restored so handlers can bind
// it again.
func Body(rules ...Rule) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, err := io.ReadAll(c.Request().Body)
			if err != nil {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
			}
			// Restore the body for the handler's own Bind call.
			c.Request().Body = io.NopCloser(bytes.NewReader(raw))

			fields := map[string]any{}
			if len(bytes.TrimSpace(raw)) > 0 {
				if err := json.Unmarshal(raw, &fields); err != nil {
					return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
				}
			}

			var violations []FieldError
			for _, r := range rules {
				if msg := r.check(fields); msg != "" {
					violations = append(violations, FieldError{Field: r.Field, Message: msg})
				}
			}
			if len(violations) > 0 {
				return c.JSON(http.StatusBadRequest, echo.Map{"errors": violations})
			}
			return next(c)
		}
	}
}

// check returns the violation message, or "" when the rule passes.
func (r Rule) check(fields map[string]any) string {
	v, present := fields[r.Field]
	if v == nil {
		present = false
	}

	if r.kind == checkRequired {
		if !present || isBlank(v) {
			return r.Message
		}
		return ""
	}
	if !present {
		return ""
	}

	switch r.kind {
	case checkNumeric:
		switch t := v.(type) {
		case float64:
			return ""
		case string:
			if govalidator.IsFloat(t) || govalidator.IsNumeric(t) {
				return ""
			}
		}
		return r.Message
	case checkOneOf:
		s, ok := v.(string)
		if !ok {
			return r.Message
		}
		for _, a := range r.allowed {
			if s == a {
				return ""
			}
		}
		return r.Message
	case checkEmail:
		s, ok := v.(string)
		if !ok || !govalidator.IsEmail(s) {
			return r.Message
		}
		return ""
	case checkStrongPassword:
		s, ok := v.(string)
		if !ok || utils.CheckStrength(s) != nil {
			return r.Message
		}
		return ""
	}
	return ""
}

func isBlank(v any) bool {
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}
