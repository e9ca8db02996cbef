package main

import (
	"os"

	"github.com/loykin/migscript/internal/common"
)

// ExitHandler lets tests intercept process termination.
type ExitHandler interface {
	Exit(code int)
	LogFatalError(err error, msg string, keyvals ...any)
}

type DefaultExitHandler struct{}

func (DefaultExitHandler) Exit(code int) {
	os.Exit(code)
}

// LogFatalError logs err with the current default logger and exits with status 1.
func (h DefaultExitHandler) LogFatalError(err error, msg string, keyvals ...any) {
	common.GetLogger().WithComponent("main").Error(msg, append([]any{"error", err}, keyvals...)...)
	h.Exit(1)
}

var exitHandler ExitHandler = DefaultExitHandler{}
