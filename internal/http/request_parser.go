package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 64 << 10

type (
	signInRequest struct {
		UserID string `json:"userId" validate:"required,max=128"`
	}

	createLogRequest struct {
		Title string `json:"title" validate:"required,max=100"`
	}

	selectLogRequest struct {
		LogID string `json:"logId" validate:"required"`
	}

	// recordTransactionRequest accepts the amount as a JSON string or number.
	// Date defaults to today when omitted. Description and category rules are
	// enforced by the log itself.
	recordTransactionRequest struct {
		Amount      any    `json:"amount" validate:"required"`
		Description string `json:"description"`
		Category    string `json:"category"`
		Date        string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	}
)

// requestError is a malformed or structurally invalid request body.
type requestError struct {
	Field  string
	Reason string
}

func (e *requestError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// decodeJSON reads one JSON object into dst, sanitises its strings and runs
// the struct's validation tags.
func (s *Server) decodeJSON(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return &requestError{Reason: "cannot read request body"}
	}
	if len(body) > maxBodyBytes {
		return &requestError{Reason: "request body too large"}
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return &requestError{Reason: "request body is empty"}
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return &requestError{Field: typeErr.Field, Reason: "has the wrong type"}
		}
		return &requestError{Reason: "malformed JSON: " + err.Error()}
	}
	if dec.More() {
		return &requestError{Reason: "request body must hold a single JSON object"}
	}

	sanitizeStrings(dst)
	if err := s.validate.Struct(dst); err != nil {
		return validationRequestError(err)
	}
	return nil
}

func validationRequestError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &requestError{Reason: err.Error()}
	}
	fe := verrs[0]
	var reason string
	switch fe.Tag() {
	case "required":
		reason = "is required"
	case "max":
		reason = "must be at most " + fe.Param() + " characters"
	case "datetime":
		reason = "must be a date formatted as " + fe.Param()
	default:
		reason = "failed the " + fe.Tag() + " check"
	}
	return &requestError{Field: fe.Field(), Reason: reason}
}

// sanitizeStrings trims and strips control characters from the string fields
// of the request types.
func sanitizeStrings(dst any) {
	switch v := dst.(type) {
	case *signInRequest:
		v.UserID = sanitizeInput(v.UserID)
	case *createLogRequest:
		v.Title = sanitizeInput(v.Title)
	case *selectLogRequest:
		v.LogID = sanitizeInput(v.LogID)
	case *recordTransactionRequest:
		v.Description = sanitizeInput(v.Description)
		v.Category = sanitizeInput(v.Category)
		v.Date = sanitizeInput(v.Date)
		if str, ok := v.Amount.(string); ok {
			v.Amount = sanitizeInput(str)
		}
	}
}

// amountText renders a decoded amount as the text the log entity parses.
// Anything that is neither a string nor a number yields "" and is rejected
// downstream as unparseable.
func amountText(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	default:
		return ""
	}
}

// sanitizeInput removes control characters other than tab and newlines and
// trims whitespace.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s))
}
