package validation

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"finparser/core"
	"finparser/mapping"
)

// MinFreeBytes is the free space below which the storage check warns.
const MinFreeBytes int64 = 512 * 1024 * 1024

// StartupSuite builds the checks run by `finparser serve`. Only a broken
// company configuration or unwritable directories fail; missing optional
// services produce warnings.
func StartupSuite(cfg *core.Config, client *http.Client) *Suite {
	if client == nil {
		client = core.GetHTTPClient(5 * time.Second)
	}

	return NewSuite("Financial PDF Parser Startup Checks").
		Add("Company Configuration", func(context.Context) Outcome {
			return checkCompanyConfig(cfg.CompanyConfigPath)
		}).
		Add("Directories", func(context.Context) Outcome {
			dirs := []struct{ env, path string }{
				{"UPLOAD_DIR", cfg.UploadDir},
				{"OUTPUT_DIR", cfg.OutputDir},
				{"STORAGE_DIR", cfg.StorageDir},
				{"DATABASE_PATH", cfg.DatabasePath},
			}
			for _, d := range dirs {
				if d.path == "" {
					return Fail("directory not configured", core.ErrMissingConfig(d.env))
				}
				dir := d.path
				if d.env == "DATABASE_PATH" {
					dir = filepath.Dir(dir)
				}
				if err := CheckWritableDir(dir); err != nil {
					return Fail("directory not writable", err)
				}
			}
			return Pass(fmt.Sprintf("%d directories writable", len(dirs)))
		}).
		Add("Disk Space", func(context.Context) Outcome {
			info, err := GetDiskSpace(cfg.StorageDir)
			if err != nil {
				return Warn("could not determine free space", err)
			}
			msg := fmt.Sprintf("%s free (%.0f%% used)", humanize.IBytes(uint64(info.Free)), info.UsedPercent())
			if info.Free < MinFreeBytes {
				return Warn(msg, &DiskSpaceError{Path: info.Path, Required: MinFreeBytes, Available: info.Free})
			}
			return Pass(msg)
		}).
		Add("LLM Provider", func(context.Context) Outcome {
			return checkLLM(cfg)
		}).
		Add("Table Conversion Service", func(ctx context.Context) Outcome {
			if !cfg.HasConverter() {
				return Skip("not configured, using local layout extraction")
			}
			ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			res := CheckReachable(ctx, client, cfg.ConverterURL)
			if !res.Reachable {
				return Warn("unreachable, conversions will fall back to layout extraction", res.Error)
			}
			return Pass(fmt.Sprintf("reachable (status %d, %v)", res.StatusCode, res.Latency.Round(time.Millisecond)))
		}).
		Add("OCR", func(context.Context) Outcome {
			if cfg.GoogleVisionKey == "" {
				return Skip("Google Vision key not set, scanned pages cannot be read")
			}
			return Pass("Google Vision enabled")
		}).
		Add("Web UI Authentication", func(context.Context) Outcome {
			if cfg.WebUIPassword == "" {
				return Warn("WEBUI_PASSWORD not set, API is open", nil)
			}
			return Pass("basic auth enabled")
		})
}

func checkCompanyConfig(path string) Outcome {
	if path != "" {
		if err := CheckFileExists(path); err != nil {
			return Fail("company configuration missing", err)
		}
	}
	companies, err := mapping.LoadConfig(path)
	if err != nil {
		return Fail("company configuration invalid", err)
	}
	source := path
	if source == "" {
		source = "built-in"
	}
	return Pass(fmt.Sprintf("%d companies (%s)", len(companies.Companies), source))
}

func checkLLM(cfg *core.Config) Outcome {
	if cfg.HasLLM() {
		model := cfg.OpenAIModel
		if cfg.LLMProvider == core.ProviderGemini {
			model = cfg.GeminiModel
		}
		return Pass(fmt.Sprintf("%s (%s)", cfg.LLMProvider, model))
	}
	return Warn("AI extraction disabled", core.ErrMissingAuth(cfg.LLMProvider))
}
