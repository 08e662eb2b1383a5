package webui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"finparser/db"
	"finparser/filestore"
	"finparser/metrics"
	"finparser/pipeline"
	"finparser/statement"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{
		"status":        "healthy",
		"service":       ServiceName,
		"config_loaded": s.deps.Processor.Config() != nil,
		"ai_enabled":    s.deps.Processor.HasAI(),
	}
	code := http.StatusOK
	if state, ok := s.deps.Runner.(runnerState); ok {
		body["active_operations"] = state.ActiveOperations()
		if state.IsShuttingDown() {
			body["status"] = "shutting_down"
			code = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, body)
}

func (s *Server) handleCompanies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"companies": s.deps.Processor.Config().SupportedCompanies(),
	})
}

// upload is a validated multipart upload saved to a private directory.
type upload struct {
	company string
	method  string
	path    string
	dir     string
}

func (u *upload) stem() string {
	base := filepath.Base(u.path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// receiveUpload validates the request and stores the PDF. It writes the
// error response itself and returns nil on failure.
func (s *Server) receiveUpload(w http.ResponseWriter, r *http.Request, method string) *upload {
	ip := clientIP(r)
	if ok, wait := s.limiter.Take(ip); !ok {
		w.Header().Set("Retry-After", strconv.Itoa(int(wait.Seconds())+1))
		writeError(w, http.StatusTooManyRequests, "Too many uploads, please retry later")
		return nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("File too large. Maximum size is %dMB", s.config.MaxUploadBytes>>20))
			return nil
		}
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return nil
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file provided")
		return nil
	}
	defer file.Close()
	if header.Filename == "" {
		writeError(w, http.StatusBadRequest, "No file selected")
		return nil
	}

	company := strings.ToUpper(strings.TrimSpace(r.FormValue("company_name")))
	if company == "" {
		writeError(w, http.StatusBadRequest, "Company name is required")
		return nil
	}
	if !s.deps.Processor.Config().IsSupported(company) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unsupported company: %s. Supported companies: %s",
			company, strings.Join(s.deps.Processor.Config().SupportedCompanies(), ", ")))
		return nil
	}

	if method == "" {
		method = strings.ToLower(strings.TrimSpace(r.FormValue("method")))
	}
	if method == "" {
		method = pipeline.MethodConfig
	}
	if method != pipeline.MethodConfig && method != pipeline.MethodAI {
		writeError(w, http.StatusBadRequest, "Invalid method. Use 'config' or 'ai'")
		return nil
	}
	if method == pipeline.MethodAI && !s.deps.Processor.HasAI() {
		writeError(w, http.StatusServiceUnavailable, "AI extraction is not configured. Set an LLM API key")
		return nil
	}

	if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
		writeError(w, http.StatusBadRequest, "Invalid file type. Only PDF files are allowed")
		return nil
	}
	name := SanitizeFilename(header.Filename)
	if name == "" || strings.EqualFold(name, ".pdf") {
		name = "document.pdf"
	}

	if err := os.MkdirAll(s.config.UploadDir, 0755); err != nil {
		s.logger.Error("Failed to create upload directory", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to store upload")
		return nil
	}
	dir, err := os.MkdirTemp(s.config.UploadDir, "upload_")
	if err != nil {
		s.logger.Error("Failed to create upload directory", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to store upload")
		return nil
	}
	path := filepath.Join(dir, name)
	if err := saveTo(path, file); err != nil {
		os.RemoveAll(dir)
		s.logger.Error("Failed to save upload", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to store upload")
		return nil
	}

	s.logger.Info("Received upload",
		zap.String("file", name),
		zap.String("company", company),
		zap.String("method", method),
		zap.Int64("size", header.Size))
	return &upload{company: company, method: method, path: path, dir: dir}
}

func saveTo(path string, src io.Reader) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// process runs the pipeline on an upload as a tracked operation.
func (s *Server) process(ctx context.Context, u *upload) (*pipeline.Result, error) {
	task := metrics.NewTask(metrics.TaskTypeParse, u.company)
	outDir := s.deps.Results.DocumentDir(u.company, u.stem())

	var result *pipeline.Result
	err := s.deps.Runner.WrapOperation(ctx, "parse", func(ctx context.Context) error {
		var err error
		result, err = s.deps.Processor.Process(ctx, u.path, u.company, outDir, pipeline.Options{Method: u.method})
		return err
	})

	s.deps.Metrics.RecordTask(task.Finish(u.method, err))
	if err != nil {
		s.logger.Error("Processing failed",
			zap.String("company", u.company),
			zap.String("file", filepath.Base(u.path)),
			zap.Error(err))
		return nil, err
	}
	if meta := result.Statement.Metadata; meta != nil && meta.TokensUsed > 0 {
		s.deps.Metrics.RecordTokens(result.Statement.ExtractionMethod, meta.TokensUsed)
	}
	return result, nil
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	u := s.receiveUpload(w, r, "")
	if u == nil {
		return
	}
	defer os.RemoveAll(u.dir)

	result, err := s.process(r.Context(), u)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleGenerate serves /api/{excel|csv}/{config|ai}: parse the upload and
// store the generated workbook.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	u := s.receiveUpload(w, r, vars["method"])
	if u == nil {
		return
	}
	defer os.RemoveAll(u.dir)

	result, err := s.process(r.Context(), u)
	if err != nil {
		writeErr(w, err)
		return
	}

	rec, err := s.generate(r.Context(), result.Statement, u.company, vars["format"], u.dir)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"file_id":      rec.ID,
		"download_url": downloadURL(rec.ID),
		"data":         result.Statement,
	})
}

// generate writes the workbook in scratch and moves it into the file store.
func (s *Server) generate(ctx context.Context, stmt *statement.Statement, company, format, scratch string) (*db.FileRecord, error) {
	fileType := filestore.TypeExcel
	taskType := metrics.TaskTypeExcel
	if format == filestore.TypeCSV {
		fileType = filestore.TypeCSV
		taskType = metrics.TaskTypeCSV
	}
	ext, err := filestore.Extension(fileType)
	if err != nil {
		return nil, err
	}

	task := metrics.NewTask(taskType, company)
	path := filepath.Join(scratch, "generated"+ext)
	if fileType == filestore.TypeCSV {
		err = s.deps.Generator.CSVFile(stmt, path)
	} else {
		err = s.deps.Generator.ExcelFile(stmt, path)
	}

	var rec *db.FileRecord
	if err == nil {
		rec, err = s.deps.Files.Save(ctx, path, company, fileType)
	}
	s.deps.Metrics.RecordTask(task.Finish("", err))
	return rec, err
}

func downloadURL(id string) string {
	return "/api/files/" + id + "/download"
}

type exportRequest struct {
	statement.Statement
	Format string `json:"format"`
}

// handleExport generates a workbook from an edited statement.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	format := strings.ToLower(req.Format)
	if format == "" {
		format = filestore.TypeExcel
	}
	if format != filestore.TypeExcel && format != filestore.TypeCSV {
		writeError(w, http.StatusBadRequest, "Invalid format. Use 'excel' or 'csv'")
		return
	}

	stmt := req.Statement
	stmt.CompanyName = strings.ToUpper(strings.TrimSpace(stmt.CompanyName))
	stmt.Normalize()
	if err := stmt.Validate(); err != nil {
		writeErr(w, err)
		return
	}

	scratch, err := os.MkdirTemp(s.config.UploadDir, "upload_")
	if err != nil {
		if err := os.MkdirAll(s.config.UploadDir, 0755); err == nil {
			scratch, err = os.MkdirTemp(s.config.UploadDir, "upload_")
		}
		if err != nil {
			s.logger.Error("Failed to create scratch directory", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "Failed to generate file")
			return
		}
	}
	defer os.RemoveAll(scratch)

	rec, err := s.generate(r.Context(), &stmt, stmt.CompanyName, format, scratch)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"file_id":      rec.ID,
		"download_url": downloadURL(rec.ID),
	})
}

type updateRequest struct {
	CompanyName   string               `json:"company_name"`
	DocumentName  string               `json:"document_name"`
	FinancialData []statement.LineItem `json:"financial_data"`
	CreateNew     bool                 `json:"create_new"`
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	company := strings.ToUpper(strings.TrimSpace(req.CompanyName))
	if company == "" {
		writeError(w, http.StatusBadRequest, "company_name is required")
		return
	}
	if strings.TrimSpace(req.DocumentName) == "" {
		writeError(w, http.StatusBadRequest, "document_name is required")
		return
	}
	if req.FinancialData == nil {
		writeError(w, http.StatusBadRequest, "financial_data is required")
		return
	}

	path, err := s.deps.Results.Update(company, req.DocumentName, req.FinancialData, req.CreateNew)
	if err != nil {
		writeErr(w, err)
		return
	}

	message := "Financial data updated successfully"
	if req.CreateNew {
		message = "New edited version saved successfully"
	}
	s.logger.Info("Updated financial data",
		zap.String("company", company),
		zap.String("document", req.DocumentName),
		zap.Int("items", len(req.FinancialData)),
		zap.Bool("create_new", req.CreateNew))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"message":   message,
		"file_path": path,
	})
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	stmt, err := s.deps.Results.Load(vars["company"], vars["document"])
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    stmt,
	})
}

// handleDownload serves a file from the output directory.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	rel := strings.TrimPrefix(r.URL.Path, "/api/download/")
	path, ok := resolveWithin(s.deps.Results.Root(), rel)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid file path")
		return
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	http.ServeFile(w, r, path)
}

// resolveWithin joins rel onto root and rejects results outside root.
func resolveWithin(root, rel string) (string, bool) {
	if rel == "" || strings.Contains(rel, "\x00") {
		return "", false
	}
	for _, part := range strings.FieldsFunc(rel, func(c rune) bool { return c == '/' || c == '\\' }) {
		if part == ".." {
			return "", false
		}
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", false
	}
	path := filepath.Join(absRoot, filepath.FromSlash(rel))
	if path != absRoot && !strings.HasPrefix(path, absRoot+string(filepath.Separator)) {
		return "", false
	}
	return path, true
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	records, err := s.deps.Files.List(r.Context(), r.URL.Query().Get("company"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"files":   records,
		"count":   len(records),
	})
}

func (s *Server) handleFileInfo(w http.ResponseWriter, r *http.Request) {
	rec, err := s.deps.Files.Lookup(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"file":    rec,
	})
}

func (s *Server) handleFileDownload(w http.ResponseWriter, r *http.Request) {
	rec, err := s.deps.Files.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeErr(w, err)
		return
	}
	if _, err := os.Stat(rec.StoredPath); err != nil {
		writeError(w, http.StatusNotFound, "File not found on disk")
		return
	}

	contentType := "text/csv; charset=utf-8"
	if rec.FileType == filestore.TypeExcel {
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rec.OriginalName))
	http.ServeFile(w, r, rec.StoredPath)
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.deps.Files.Delete(r.Context(), id); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "File deleted successfully",
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.deps.Metrics == nil {
		writeError(w, http.StatusNotFound, "Metrics are disabled")
		return
	}
	stored, err := s.deps.Files.Count(r.Context())
	if err != nil {
		s.logger.Error("Failed to count stored files", zap.Error(err))
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":        true,
		"system":         s.deps.Metrics.SystemStatus(),
		"tasks":          s.deps.Metrics.TaskMetrics(),
		"recent":         s.deps.Metrics.RecentTasks(20),
		"stored_files":   stored,
		"upload_clients": s.limiter.Count(),
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	return json.NewDecoder(r.Body).Decode(v)
}

var (
	unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)
	filenameSpaces      = regexp.MustCompile(`\s+`)
)

// SanitizeFilename reduces name to an ASCII file name without directories.
// Whitespace becomes underscores; anything outside [A-Za-z0-9_.-] is dropped.
func SanitizeFilename(name string) string {
	name = strings.NewReplacer("/", " ", "\\", " ").Replace(name)
	name = filenameSpaces.ReplaceAllString(strings.TrimSpace(name), "_")
	name = unsafeFilenameChars.ReplaceAllString(name, "")
	return strings.Trim(name, "._")
}
