package remote

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

// FallbackMessage is shown when a failure carries no usable text.
const FallbackMessage = "remote service unavailable"

const maxDetailBytes = 700

// Error is a classified backend failure. StatusCode is zero for transport
// failures, in which case Err holds the cause.
type Error struct {
	Op         string
	StatusCode int
	Detail     string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode == 0 {
		if e.Err != nil {
			return fmt.Sprintf("%s: %v", e.Op, e.Err)
		}
		return fmt.Sprintf("%s: %s", e.Op, FallbackMessage)
	}
	return fmt.Sprintf("%s status %d: %s", e.Op, e.StatusCode, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message extracts the operator-facing text of a failure: the backend
// detail when present. Transport failures never expose their cause, which
// names the backend address; callers log err itself for that.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var remoteErr *Error
	if errors.As(err, &remoteErr) {
		if detail := strings.TrimSpace(remoteErr.Detail); detail != "" && remoteErr.StatusCode != 0 {
			return detail
		}
		return FallbackMessage
	}
	if text := strings.TrimSpace(err.Error()); text != "" {
		return text
	}
	return FallbackMessage
}

func StatusCode(err error) int {
	var remoteErr *Error
	if errors.As(err, &remoteErr) {
		return remoteErr.StatusCode
	}
	return 0
}

func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// IsTransport reports whether the backend never answered.
func IsTransport(err error) bool {
	var remoteErr *Error
	return errors.As(err, &remoteErr) && remoteErr.StatusCode == 0
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	var remoteErr *Error
	if errors.As(err, &remoteErr) {
		if remoteErr.StatusCode == 0 {
			message := strings.ToLower(remoteErr.Error())
			return strings.Contains(message, "timeout") || strings.Contains(message, "tempor")
		}
		return remoteErr.StatusCode == http.StatusTooManyRequests || remoteErr.StatusCode >= 500
	}
	return false
}

// parseDetail reads the FastAPI error body. detail may be a string or a
// list of validation items carrying msg.
func parseDetail(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}

	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Detail) > 0 {
		var text string
		if err := json.Unmarshal(payload.Detail, &text); err == nil {
			return strings.TrimSpace(text)
		}
		var items []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(payload.Detail, &items); err == nil {
			messages := make([]string, 0, len(items))
			for _, item := range items {
				if msg := strings.TrimSpace(item.Msg); msg != "" {
					messages = append(messages, msg)
				}
			}
			if len(messages) > 0 {
				return strings.Join(messages, "; ")
			}
		}
	}

	return truncateRunes(trimmed, maxDetailBytes)
}

// truncateRunes cuts value to at most limit bytes without splitting a rune.
func truncateRunes(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(value[cut]) {
		cut--
	}
	return value[:cut]
}
