package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"diploma_generator/config"
	"diploma_generator/generator"
)

// ErrPersistence wraps every failure to store a finished document.
var ErrPersistence = errors.New("failed to persist document")

// Publisher stores the document of a completed run and returns an opaque
// location for it (a file path or a blob URL).
type Publisher interface {
	Publish(ctx context.Context, run *generator.Run) (string, error)
}

// New picks the backend named by cfg.Backend.
func New(cfg config.StorageConfig, logger *slog.Logger) (Publisher, error) {
	switch cfg.Backend {
	case "", "filesystem":
		return NewFilePublisher(cfg.Dir, cfg.RenderHTML, logger), nil
	case "azure":
		return NewAzurePublisher(cfg.Azure, logger)
	default:
		return nil, fmt.Errorf("storage backend %s not supported", cfg.Backend)
	}
}

// FilePublisher writes each document once into a local directory.
type FilePublisher struct {
	dir        string
	renderHTML bool
	logger     *slog.Logger
	now        func() time.Time
}

func NewFilePublisher(dir string, renderHTML bool, logger *slog.Logger) *FilePublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &FilePublisher{
		dir:        dir,
		renderHTML: renderHTML,
		logger:     logger.With("component", "publisher", "backend", "filesystem"),
		now:        time.Now,
	}
}

// Publish writes <dir>/diploma_<timestamp>_<run>.txt and, when HTML
// rendering is on, an .html sibling. It returns the absolute text file path.
func (p *FilePublisher) Publish(ctx context.Context, run *generator.Run) (string, error) {
	if err := checkRun(run); err != nil {
		return "", err
	}

	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	base := baseName(p.now(), run)
	path, err := filepath.Abs(filepath.Join(p.dir, base+".txt"))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if err := writeOnce(path, []byte(run.Document.Text)); err != nil {
		return "", err
	}

	if p.renderHTML {
		html, err := RenderPage(run)
		if err != nil {
			return "", fmt.Errorf("%w: render html: %v", ErrPersistence, err)
		}
		if err := writeOnce(filepath.Join(filepath.Dir(path), base+".html"), []byte(html)); err != nil {
			return "", err
		}
	}

	p.logger.InfoContext(ctx, "document saved",
		"run_id", run.ID.String(),
		"path", path,
		"bytes", len(run.Document.Text))
	return path, nil
}

func checkRun(run *generator.Run) error {
	if run == nil || run.Document == nil {
		return fmt.Errorf("%w: run has no document", ErrPersistence)
	}
	return nil
}

// baseName is diploma_yyyyMMdd_HHmmss_<first 8 chars of run id>.
func baseName(now time.Time, run *generator.Run) string {
	return fmt.Sprintf("diploma_%s_%s", now.Format("20060102_150405"), run.ID.String()[:8])
}

func writeOnce(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}
