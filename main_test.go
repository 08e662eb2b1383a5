package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"

	"github.com/kardianos/service"

	"finparser/core"
	"finparser/logging"
	"finparser/pdfprocessor/pdftest"
)

const testCompanies = `
column_layouts:
  standard:
    label: 2
    "30.06.2025": 3
    "30.06.2024": 4
acme:
  name: ACME
  financial_data:
    - key: revenue_from_operations
      labels: ["Revenue from operations"]
      tr_number: 2
    - key: other_income
      labels: ["Other income"]
      tr_number: 3
    - key: total_expenses
      labels: ["Total expenses"]
`

// createTestLoggerMain creates a logger for testing that writes to a temp file.
func createTestLoggerMain(t *testing.T) *logging.Logger {
	t.Helper()
	logger, err := logging.NewLogger(true, filepath.Join(t.TempDir(), "main_test.log"))
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	return logger
}

func writeReport(t *testing.T, dir, name string) string {
	t.Helper()
	columns := []float64{40, 80, 400, 480}
	page := pdftest.Page{
		{X: 80, Y: 760, S: "Statement of Standalone Unaudited Financial Results for the quarter ended 30 June 2025"},
	}
	rows := [][]string{
		{"Sr", "Particulars", "30.06.2025", "30.06.2024"},
		{"1", "Revenue from operations", "4,622.19", "4,100.00"},
		{"2", "Other income", "12.00", "10.00"},
		{"3", "Total expenses", "(1,000.00)", "900.00"},
	}
	for i, r := range rows {
		page = append(page, pdftest.Row(700-float64(i)*14, columns, r...)...)
	}
	path := filepath.Join(dir, name)
	pdftest.Write(t, path, pdftest.Line("Outcome of Board Meeting"), page)
	return path
}

func testConfig(t *testing.T) *core.Config {
	t.Helper()
	dir := t.TempDir()
	companies := filepath.Join(dir, "companies.yaml")
	if err := os.WriteFile(companies, []byte(testCompanies), 0644); err != nil {
		t.Fatal(err)
	}
	return &core.Config{
		OutputDir:         filepath.Join(dir, "output"),
		CompanyConfigPath: companies,
		LLMProvider:       core.ProviderOpenAI,
	}
}

func exitCodeOf(err error) int {
	if err == nil {
		return core.ExitCodeSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return -1
}

func TestRun_Commands(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantOut  string
		wantErr  string
	}{
		{"version", []string{"version"}, core.ExitCodeSuccess, "finparser dev", ""},
		{"help", []string{"--help"}, core.ExitCodeSuccess, "parse", ""},
		{"unknown command", []string{"frobnicate"}, core.ExitCodeUsage, "", "unknown command"},
		{"parse without files", []string{"parse", "-c", "ACME"}, core.ExitCodeUsage, "", "requires at least 1 arg"},
		{"parse without company", []string{"parse", "a.pdf"}, core.ExitCodeUsage, "", "company"},
		{"parse bad method", []string{"parse", "-c", "ACME", "-m", "magic", "a.pdf"}, core.ExitCodeUsage, "", "invalid method"},
		{"parse bad format", []string{"parse", "-c", "ACME", "-f", "xml", "a.pdf"}, core.ExitCodeUsage, "", "invalid format"},
		{"service help", []string{"service", "--help"}, core.ExitCodeSuccess, "install", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := run(tt.args, &stdout, &stderr)
			if code != tt.wantCode {
				t.Errorf("exit code = %d, want %d (stderr: %s)", code, tt.wantCode, stderr.String())
			}
			if tt.wantOut != "" && !strings.Contains(stdout.String(), tt.wantOut) {
				t.Errorf("stdout = %q, want it to contain %q", stdout.String(), tt.wantOut)
			}
			if tt.wantErr != "" && !strings.Contains(stderr.String(), tt.wantErr) {
				t.Errorf("stderr = %q, want it to contain %q", stderr.String(), tt.wantErr)
			}
		})
	}
}

func TestParseOptions_Validate(t *testing.T) {
	opts := parseOptions{company: " acme ", method: "AI", format: "Excel"}
	if err := opts.validate(); err != nil {
		t.Fatalf("validate() error = %v", err)
	}
	if opts.company != "ACME" || opts.method != "ai" || opts.format != formatExcel {
		t.Errorf("normalized options = %+v", opts)
	}
}

func TestRunBatch(t *testing.T) {
	cfg := testConfig(t)
	in := t.TempDir()
	report := writeReport(t, in, "ACME Q1.pdf")

	tests := []struct {
		format   string
		wantFile string
	}{
		{formatJSON, "ACME Q1-financial-data.json"},
		{formatExcel, "ACME Q1.xlsx"},
		{formatCSV, "ACME Q1.csv"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var out bytes.Buffer
			opts := parseOptions{company: "ACME", method: "config", format: tt.format}
			err := runBatch(context.Background(), cfg, createTestLoggerMain(t), opts, []string{report}, &out)
			if err != nil {
				t.Fatalf("runBatch() error = %v\n%s", err, out.String())
			}

			want := filepath.Join(cfg.OutputDir, "ACME_ACME Q1", tt.wantFile)
			if _, err := os.Stat(want); err != nil {
				t.Errorf("expected output %s: %v", want, err)
			}
			if !strings.Contains(out.String(), "Processed 1/1 documents") {
				t.Errorf("output = %q", out.String())
			}
		})
	}
}

func TestRunBatch_PartialFailure(t *testing.T) {
	cfg := testConfig(t)
	in := t.TempDir()
	good := writeReport(t, in, "good.pdf")
	notPDF := filepath.Join(in, "notes.txt")
	os.WriteFile(notPDF, []byte("hello"), 0644)
	missing := filepath.Join(in, "missing.pdf")

	var out bytes.Buffer
	opts := parseOptions{company: "ACME", method: "config", format: formatJSON}
	err := runBatch(context.Background(), cfg, createTestLoggerMain(t), opts, []string{good, notPDF, missing}, &out)
	if code := exitCodeOf(err); code != core.ExitCodePartial {
		t.Fatalf("exit code = %d, want %d (err %v)", code, core.ExitCodePartial, err)
	}
	if !strings.Contains(out.String(), "Processed 1/3 documents") || !strings.Contains(out.String(), "not a PDF file") {
		t.Errorf("output = %q", out.String())
	}

	out.Reset()
	err = runBatch(context.Background(), cfg, createTestLoggerMain(t), opts, []string{missing}, &out)
	if code := exitCodeOf(err); code != core.ExitCodeError {
		t.Errorf("all failed: exit code = %d, want %d", code, core.ExitCodeError)
	}
}

func TestRunBatch_Rejections(t *testing.T) {
	cfg := testConfig(t)
	logger := createTestLoggerMain(t)
	var out bytes.Buffer

	err := runBatch(context.Background(), cfg, logger, parseOptions{company: "GLOBEX", method: "config"}, []string{"a.pdf"}, &out)
	if code := exitCodeOf(err); code != core.ExitCodeUsage || !strings.Contains(err.Error(), "Supported companies: ACME") {
		t.Errorf("unknown company: code %d, err %v", code, err)
	}

	err = runBatch(context.Background(), cfg, logger, parseOptions{company: "ACME", method: "ai"}, []string{"a.pdf"}, &out)
	if code := exitCodeOf(err); code != core.ExitCodeError {
		t.Errorf("ai without key: code %d, err %v", code, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = runBatch(ctx, cfg, logger, parseOptions{company: "ACME", method: "config"}, []string{"a.pdf"}, &out)
	if code := exitCodeOf(err); code != core.ExitCodeSIGINT {
		t.Errorf("cancelled: code %d, err %v", code, err)
	}
}

func TestRunBatch_SignalExitCodes(t *testing.T) {
	cfg := testConfig(t)
	logger := createTestLoggerMain(t)
	report := writeReport(t, t.TempDir(), "q1.pdf")

	tests := []struct {
		name string
		sig  os.Signal
		want int
	}{
		{"SIGINT", os.Interrupt, core.ExitCodeSIGINT},
		{"SIGTERM", syscall.SIGTERM, core.ExitCodeSIGTERM},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancelCause(context.Background())
			cancel(signalCause{sig: tt.sig})

			var out bytes.Buffer
			err := runBatch(ctx, cfg, logger, parseOptions{company: "ACME", method: "config"}, []string{report}, &out)
			if code := exitCodeOf(err); code != tt.want {
				t.Errorf("exit code = %d, want %d", code, tt.want)
			}
			if !strings.Contains(out.String(), "(interrupted)") {
				t.Errorf("output = %q", out.String())
			}
		})
	}
}

func TestNotifyContext_StopCancels(t *testing.T) {
	ctx, stop := notifyContext(context.Background(), syscall.SIGTERM)
	stop()
	<-ctx.Done()
	if code := interruptExitCode(ctx); code != core.ExitCodeSIGINT {
		t.Errorf("exit code after stop = %d, want %d", code, core.ExitCodeSIGINT)
	}
}

func TestServiceConfig(t *testing.T) {
	cfg := ServiceConfig()
	if cfg.Name != "finparser" {
		t.Errorf("Name = %q", cfg.Name)
	}
	if strings.Join(cfg.Arguments, " ") != "service run" {
		t.Errorf("Arguments = %v", cfg.Arguments)
	}
	if cfg.WorkingDirectory == "" {
		t.Error("WorkingDirectory is empty")
	}

	for status, want := range map[service.Status]string{
		service.StatusRunning: "running",
		service.StatusStopped: "stopped",
		service.StatusUnknown: "unknown",
	} {
		if got := statusText(status); !strings.Contains(got, want) {
			t.Errorf("statusText(%v) = %q", status, got)
		}
	}
}

func TestProgram_StopBeforeStart(t *testing.T) {
	if err := (&Program{}).Stop(nil); err != nil {
		t.Errorf("Stop() = %v", err)
	}
}

func TestSetupLogger(t *testing.T) {
	cfg := &core.Config{LogLevel: "warn", LogFile: filepath.Join(t.TempDir(), "logs", "app.log")}
	logger, err := setupLogger(cfg)
	if err != nil {
		t.Fatalf("setupLogger() error = %v", err)
	}
	if logger.LogFilePath() != cfg.LogFile {
		t.Errorf("LogFilePath() = %q", logger.LogFilePath())
	}
	if logger.Zap().Core().Enabled(-1) {
		t.Error("debug enabled at warn level")
	}
}

func TestRunStartupValidation(t *testing.T) {
	cfg := testConfig(t)
	dir := t.TempDir()
	cfg.UploadDir = filepath.Join(dir, "uploads")
	cfg.StorageDir = filepath.Join(dir, "storage")
	cfg.DatabasePath = filepath.Join(dir, "data", "test.db")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories() error = %v", err)
	}
	logger := createTestLoggerMain(t)

	var out bytes.Buffer
	if err := runStartupValidation(context.Background(), cfg, logger, &out); err != nil {
		t.Fatalf("runStartupValidation() error = %v", err)
	}
	if !strings.Contains(out.String(), "Company Configuration") {
		t.Errorf("progress output = %q", out.String())
	}

	if err := runStartupValidation(context.Background(), cfg, logger, nil); err != nil {
		t.Fatalf("runStartupValidation(nil) error = %v", err)
	}

	cfg.CompanyConfigPath = filepath.Join(dir, "missing.yaml")
	out.Reset()
	if err := runStartupValidation(context.Background(), cfg, logger, &out); err == nil {
		t.Error("missing company config accepted")
	}
}
