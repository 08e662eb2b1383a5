package core

import (
	"os"
	"syscall"
)

// Process exit codes. Signal exits use the shell convention of 128+signo.
const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
	ExitCodeUsage   = 2
	// ExitCodePartial is returned by batch runs where only some documents failed.
	ExitCodePartial = 3
	ExitCodeSIGINT  = 128 + 2
	ExitCodeSIGTERM = 128 + 15
)

var exitCodeNames = map[int]string{
	ExitCodeSuccess: "success",
	ExitCodeError:   "error",
	ExitCodeUsage:   "usage",
	ExitCodePartial: "partial failure",
	ExitCodeSIGINT:  "interrupted (SIGINT)",
	ExitCodeSIGTERM: "terminated (SIGTERM)",
}

// ExitCodeName returns a human-readable name for an exit code.
func ExitCodeName(code int) string {
	if name, ok := exitCodeNames[code]; ok {
		return name
	}
	return "unknown"
}

// SignalExitCode maps a shutdown signal to the exit code a shell expects.
// Signals other than SIGINT and SIGTERM map to ExitCodeError.
func SignalExitCode(sig os.Signal) int {
	switch sig {
	case os.Interrupt:
		return ExitCodeSIGINT
	case syscall.SIGTERM:
		return ExitCodeSIGTERM
	case nil:
		return ExitCodeSuccess
	default:
		return ExitCodeError
	}
}
