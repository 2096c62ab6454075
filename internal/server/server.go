// Package server is the browser front end: an upload form that converts the
// posted document and returns the packaged artifact as a download.
package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	doc2pub "github.com/alnah/go-doc2pub"
	"github.com/alnah/go-doc2pub/internal/assets"
	"github.com/alnah/go-doc2pub/internal/fileutil"
)

// Upload form field name.
const formField = "file"

const shutdownTimeout = 10 * time.Second

// Sentinel errors for server construction.
var (
	ErrNoInputDir      = errors.New("server input directory is empty")
	ErrNoAllowedTypes  = errors.New("server allow-list is empty")
	ErrInvalidMaxBytes = errors.New("server upload limit must be positive")
)

// Converter is the part of *doc2pub.Converter the server needs.
type Converter interface {
	Convert(ctx context.Context, inputPath, outputHint string) (*doc2pub.Artifact, error)
}

// PageLoader supplies the upload form template.
type PageLoader interface {
	LoadPage(name string) (string, error)
}

// Config holds server settings.
type Config struct {
	InputDir          string   // Uploads are stored here before conversion
	MaxUploadBytes    int64
	AllowedExtensions []string // e.g. ".pdf", ".md"; matched case-insensitively
	Pages             PageLoader
}

// Server serves the upload form and conversion endpoint.
type Server struct {
	conv    Converter
	cfg     Config
	allowed []string
	logger  *slog.Logger
	router  *gin.Engine
}

// New creates a Server. A nil logger discards.
func New(conv Converter, cfg Config, logger *slog.Logger) (*Server, error) {
	if cfg.InputDir == "" {
		return nil, ErrNoInputDir
	}
	if len(cfg.AllowedExtensions) == 0 {
		return nil, ErrNoAllowedTypes
	}
	if cfg.MaxUploadBytes <= 0 {
		return nil, ErrInvalidMaxBytes
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var pages PageLoader = cfg.Pages
	if pages == nil {
		pages = assets.NewEmbeddedLoader()
	}
	page, err := pages.LoadPage(assets.UploadPageName)
	if err != nil {
		return nil, fmt.Errorf("loading upload page: %w", err)
	}
	tmpl, err := template.New(assets.UploadPageName).
		Funcs(template.FuncMap{"join": strings.Join}).
		Parse(page)
	if err != nil {
		return nil, fmt.Errorf("parsing upload page: %w", err)
	}

	s := &Server{
		conv:    conv,
		cfg:     cfg,
		allowed: normalizeExtensions(cfg.AllowedExtensions),
		logger:  logger,
	}

	router := gin.New()
	router.Use(requestLogger(logger), gin.Recovery())
	router.SetHTMLTemplate(tmpl)
	router.MaxMultipartMemory = 8 << 20

	router.GET("/", s.index)
	router.POST("/convert", s.convert)
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.router = router

	return s, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("serving %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

type pageData struct {
	Error       string
	Allowed     []string
	MaxUploadMB int64
}

func (s *Server) render(c *gin.Context, status int, msg string) {
	c.HTML(status, assets.UploadPageName, pageData{
		Error:       msg,
		Allowed:     s.allowed,
		MaxUploadMB: max(1, s.cfg.MaxUploadBytes>>20),
	})
}

func (s *Server) index(c *gin.Context) {
	s.render(c, http.StatusOK, "")
}

func (s *Server) convert(c *gin.Context) {
	if c.Request.ContentLength > s.cfg.MaxUploadBytes {
		s.render(c, http.StatusRequestEntityTooLarge, tooLargeMessage(s.cfg.MaxUploadBytes))
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadBytes)

	header, err := c.FormFile(formField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.render(c, http.StatusRequestEntityTooLarge, tooLargeMessage(s.cfg.MaxUploadBytes))
			return
		}
		s.render(c, http.StatusBadRequest, "No file selected.")
		return
	}

	name, err := fileutil.SanitizeFilename(header.Filename)
	if err != nil {
		s.render(c, http.StatusBadRequest, "The file name is not usable.")
		return
	}
	if !slices.Contains(s.allowed, strings.ToLower(filepath.Ext(name))) {
		s.render(c, http.StatusBadRequest, "File type not allowed: "+filepath.Ext(name))
		return
	}

	if err := fileutil.EnsureDir(s.cfg.InputDir); err != nil {
		s.logger.Error("creating input directory", "dir", s.cfg.InputDir, "error", err)
		s.render(c, http.StatusInternalServerError, "The upload could not be stored.")
		return
	}
	stored := uploadPath(s.cfg.InputDir, name)
	if err := c.SaveUploadedFile(header, stored); err != nil {
		s.logger.Error("storing upload", "path", stored, "error", err)
		s.render(c, http.StatusInternalServerError, "The upload could not be stored.")
		return
	}

	art, err := s.conv.Convert(c.Request.Context(), stored, "")
	if err != nil {
		s.fail(c, stored, err)
		return
	}

	s.removeUpload(stored)
	s.logger.Info("converted upload", "upload", name, "output", art.Path, "job", art.JobID)
	c.FileAttachment(art.Path, filepath.Base(art.Path))
}

// fail reports a conversion error. Uploads whose conversion failed inside a
// stage are kept next to the retained interchange for diagnosis; an upload
// no engine could read is removed.
func (s *Server) fail(c *gin.Context, stored string, err error) {
	var se *doc2pub.StageError
	if errors.As(err, &se) && !errors.Is(err, doc2pub.ErrEngineNotFound) {
		s.logger.Warn("conversion failed", "upload", stored, "stage", se.Stage.String(),
			"retained", se.Interchange, "error", err)
	} else {
		s.removeUpload(stored)
		s.logger.Warn("conversion rejected", "upload", stored, "error", err)
	}
	s.render(c, statusFor(err), err.Error())
}

func (s *Server) removeUpload(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("removing upload", "path", path, "error", err)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, doc2pub.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, doc2pub.ErrInputNotFound):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// uploadPath returns dir/name, or a variant with a random suffix when name
// is already taken.
func uploadPath(dir, name string) string {
	p := filepath.Join(dir, name)
	if !fileutil.FileExists(p) {
		return p
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	return filepath.Join(dir, stem+"-"+uuid.NewString()[:8]+ext)
}

func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.ToLower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		if !slices.Contains(out, e) {
			out = append(out, e)
		}
	}
	return out
}

func tooLargeMessage(limit int64) string {
	return fmt.Sprintf("The file is larger than the %d MB limit.", max(1, limit>>20))
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
