package core

import (
	"os"
	"syscall"
	"testing"
)

func TestExitCodes_ShellConvention(t *testing.T) {
	if ExitCodeSIGINT != 130 || ExitCodeSIGTERM != 143 {
		t.Errorf("signal exit codes = %d/%d, want 130/143", ExitCodeSIGINT, ExitCodeSIGTERM)
	}
	if ExitCodePartial == ExitCodeError || ExitCodePartial == ExitCodeUsage {
		t.Error("partial failure must be distinguishable from error and usage")
	}
}

func TestExitCodeName(t *testing.T) {
	for code, want := range map[int]string{
		ExitCodePartial: "partial failure",
		ExitCodeSIGTERM: "terminated (SIGTERM)",
		42:              "unknown",
	} {
		if got := ExitCodeName(code); got != want {
			t.Errorf("ExitCodeName(%d) = %q, want %q", code, got, want)
		}
	}
}

func TestSignalExitCode(t *testing.T) {
	tests := []struct {
		sig  os.Signal
		want int
	}{
		{nil, ExitCodeSuccess},
		{os.Interrupt, ExitCodeSIGINT},
		{syscall.SIGTERM, ExitCodeSIGTERM},
		{os.Kill, ExitCodeError},
	}
	for _, tt := range tests {
		if got := SignalExitCode(tt.sig); got != tt.want {
			t.Errorf("SignalExitCode(%v) = %d, want %d", tt.sig, got, tt.want)
		}
	}
}
