package gotrue

import (
	"encoding/json"
	"strings"

	authui "github.com/goliatone/go-authui"
)

func providerError(operation string, status int, code, message string, err error) *authui.ProviderError {
	return &authui.ProviderError{
		Operation: operation,
		Status:    status,
		Code:      code,
		Message:   message,
		Err:       err,
	}
}

// errorBody covers the error shapes returned by the auth and rest APIs.
type errorBody struct {
	Code             any    `json:"code"`
	ErrorCode        string `json:"error_code"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

// parseError extracts a code and a human message from an error response.
func parseError(body []byte) (code, message string) {
	var payload errorBody
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", strings.TrimSpace(string(body))
	}

	code = payload.ErrorCode
	if code == "" {
		if s, ok := payload.Code.(string); ok {
			code = s
		}
	}
	if code == "" {
		code = payload.Error
	}

	for _, m := range []string{payload.Msg, payload.Message, payload.ErrorDescription, payload.Error} {
		if m != "" {
			message = m
			break
		}
	}
	return code, message
}
