package authui

import (
	"fmt"
	"strings"
)

// Logger is satisfied by glog loggers.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config holds the options the auth pages need from the host application.
type Config interface {
	GetSiteURL() string
	GetLoginPath() string
	GetResetPasswordPath() string
	GetCallbackPath() string
	IsDevelopment() bool
	GetCookieSecure() bool
}

// Observer receives auth UI events for instrumentation.
type Observer interface {
	CallbackResolved(outcome CallbackOutcome)
	AlertAdded(alert Alert)
	ProviderFailed(operation string, kind ProviderErrorKind)
}

type noopObserver struct{}

func (noopObserver) CallbackResolved(CallbackOutcome) {}

func (noopObserver) AlertAdded(Alert) {}

func (noopObserver) ProviderFailed(string, ProviderErrorKind) {}

func normalizeObserver(o Observer) Observer {
	if o == nil {
		return noopObserver{}
	}
	return o
}

type defLogger struct{}

func (d defLogger) Error(msg string, args ...any) {
	fmt.Print("[ERR] AUTHUI " + format(msg, args...))
}

func (d defLogger) Warn(msg string, args ...any) {
	fmt.Print("[WRN] AUTHUI " + format(msg, args...))
}

func (d defLogger) Info(msg string, args ...any) {
	fmt.Print("[INF] AUTHUI " + format(msg, args...))
}

func (d defLogger) Debug(msg string, args ...any) {
	fmt.Print("[DBG] AUTHUI " + format(msg, args...))
}

// format renders key value pairs after the message.
func format(msg string, args ...any) string {
	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
		} else {
			fmt.Fprintf(&b, " %v", args[i])
		}
	}
	return newline(b.String())
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
