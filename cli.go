package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"finparser/core"
	"finparser/excelgen"
	"finparser/logging"
	"finparser/pipeline"
)

// Output formats accepted by `finparser parse`.
const (
	formatJSON  = "json"
	formatExcel = "excel"
	formatCSV   = "csv"
)

type parseOptions struct {
	company   string
	method    string
	format    string
	outputDir string
}

func newParseCmd() *cobra.Command {
	var opts parseOptions
	cmd := &cobra.Command{
		Use:   "parse --company NAME file.pdf...",
		Short: "Process PDF reports without starting the server",
		Long: `Runs each PDF through page detection, table extraction and mapping.
Results are written to OUTPUT_DIR/<COMPANY>_<document>/, the same layout the
server uses. Exit code 3 means some documents failed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.validate(); err != nil {
				return withExitCode(core.ExitCodeUsage, err)
			}
			cfg, logger, err := loadConfigAndLogger()
			if err != nil {
				return withExitCode(core.ExitCodeError, err)
			}
			defer logger.Sync()
			if opts.outputDir != "" {
				cfg.OutputDir = opts.outputDir
			}

			ctx, stop := notifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runBatch(ctx, cfg, logger, opts, args, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.company, "company", "c", "", "company name or key (required)")
	flags.StringVarP(&opts.method, "method", "m", pipeline.MethodConfig, "mapping method: config or ai")
	flags.StringVarP(&opts.format, "format", "f", formatJSON, "extra output: json, excel or csv")
	flags.StringVarP(&opts.outputDir, "output", "o", "", "output directory (default OUTPUT_DIR)")
	cmd.MarkFlagRequired("company")
	return cmd
}

func (o *parseOptions) validate() error {
	o.company = strings.ToUpper(strings.TrimSpace(o.company))
	if o.company == "" {
		return errors.New("--company is required")
	}
	o.method = strings.ToLower(o.method)
	if o.method != pipeline.MethodConfig && o.method != pipeline.MethodAI {
		return fmt.Errorf("invalid method %q, use 'config' or 'ai'", o.method)
	}
	o.format = strings.ToLower(o.format)
	switch o.format {
	case formatJSON, formatExcel, formatCSV:
	default:
		return fmt.Errorf("invalid format %q, use json, excel or csv", o.format)
	}
	return nil
}

// batchResult counts processed documents.
type batchResult struct {
	total     int
	succeeded int
	failed    int
}

// signalCause is the cancellation cause recorded by notifyContext.
type signalCause struct{ sig os.Signal }

func (c signalCause) Error() string { return "received " + c.sig.String() }

// notifyContext is signal.NotifyContext that remembers which signal arrived,
// so the exit code can tell SIGINT from SIGTERM.
func notifyContext(parent context.Context, sigs ...os.Signal) (context.Context, func()) {
	ctx, cancel := context.WithCancelCause(parent)
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)
	go func() {
		select {
		case sig := <-ch:
			cancel(signalCause{sig: sig})
		case <-ctx.Done():
		}
	}()
	return ctx, func() {
		signal.Stop(ch)
		cancel(context.Canceled)
	}
}

// interruptExitCode returns the exit code for a cancelled batch. Cancellation
// without a recorded signal counts as SIGINT.
func interruptExitCode(ctx context.Context) int {
	var sc signalCause
	if errors.As(context.Cause(ctx), &sc) {
		return core.SignalExitCode(sc.sig)
	}
	return core.ExitCodeSIGINT
}

// runBatch processes files one at a time and prints a status line for each.
func runBatch(ctx context.Context, cfg *core.Config, logger *logging.Logger, opts parseOptions, files []string, out io.Writer) error {
	processor, err := pipeline.Build(ctx, cfg, logger)
	if err != nil {
		return withExitCode(core.ExitCodeError, err)
	}
	if !processor.Config().IsSupported(opts.company) {
		return withExitCode(core.ExitCodeUsage, fmt.Errorf("unsupported company: %s. Supported companies: %s",
			opts.company, strings.Join(processor.Config().SupportedCompanies(), ", ")))
	}
	if opts.method == pipeline.MethodAI && !processor.HasAI() {
		return withExitCode(core.ExitCodeError, pipeline.ErrAIUnavailable)
	}

	results := pipeline.NewResults(cfg.OutputDir, processor.Config())
	generator := excelgen.NewGenerator(logger)

	ok := color.New(color.FgGreen)
	fail := color.New(color.FgRed)
	dim := color.New(color.FgHiBlack)

	batch := batchResult{total: len(files)}
	start := time.Now()
	for _, file := range files {
		if ctx.Err() != nil {
			break
		}
		stem := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		dir := results.DocumentDir(opts.company, stem)

		outPath, items, err := processOne(ctx, processor, generator, file, opts, dir, stem)
		if err != nil {
			batch.failed++
			fail.Fprintf(out, "✗ %s", file)
			dim.Fprintf(out, " - %v\n", err)
			logger.Error("Document failed", zap.String("file", file), zap.Error(err))
			continue
		}
		batch.succeeded++
		ok.Fprintf(out, "✓ %s", file)
		dim.Fprintf(out, " → %s (%d items)\n", outPath, items)
	}

	summary := fmt.Sprintf("Processed %d/%d documents in %v", batch.succeeded, batch.total,
		time.Since(start).Round(time.Millisecond))
	switch {
	case ctx.Err() != nil:
		fail.Fprintln(out, summary+" (interrupted)")
		return withExitCode(interruptExitCode(ctx), nil)
	case batch.failed == 0:
		ok.Fprintln(out, summary)
		return nil
	case batch.succeeded == 0:
		fail.Fprintln(out, summary)
		return withExitCode(core.ExitCodeError, nil)
	default:
		color.New(color.FgYellow).Fprintln(out, summary)
		return withExitCode(core.ExitCodePartial, nil)
	}
}

// processOne returns the path of the primary output and the number of items.
func processOne(ctx context.Context, p *pipeline.Processor, g *excelgen.Generator, file string, opts parseOptions, dir, stem string) (string, int, error) {
	if !strings.EqualFold(filepath.Ext(file), ".pdf") {
		return "", 0, errors.New("not a PDF file")
	}
	res, err := p.Process(ctx, file, opts.company, dir, pipeline.Options{Method: opts.method})
	if err != nil {
		return "", 0, err
	}
	stmt := res.Statement
	items := len(stmt.FinancialData)

	switch opts.format {
	case formatExcel:
		path := filepath.Join(dir, stem+".xlsx")
		return path, items, g.ExcelFile(stmt, path)
	case formatCSV:
		path := filepath.Join(dir, stem+".csv")
		return path, items, g.CSVFile(stmt, path)
	default:
		return res.OutputFiles["json"], items, nil
	}
}
