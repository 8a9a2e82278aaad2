package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atinyakov/glbkeeper/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// copyBufferSize is the granularity at which model bytes are copied.
const copyBufferSize = 32 * 1024

// ModelRepository defines the catalog operations needed by the CatalogService.
type ModelRepository interface {
	// Insert appends a row and assigns its ID.
	Insert(ctx context.Context, m *models.Model) error
	// Delete removes the row with m's ID.
	Delete(ctx context.Context, m models.Model) error
	// ListAll returns all rows, newest first.
	ListAll(ctx context.Context) ([]models.Model, error)
	// GetByID returns one row or repository.ErrNotFound.
	GetByID(ctx context.Context, id int64) (*models.Model, error)
	// Subscribe streams ordered snapshots until ctx is done.
	Subscribe(ctx context.Context) (<-chan []models.Model, error)
}

// CatalogService coordinates model files on disk with their catalog rows.
// The two stores are not updated transactionally: a failed step is reported
// but never rolls back a step that already succeeded.
type CatalogService struct {
	repo ModelRepository
	dir  string
	log  *zap.Logger
	now  func() time.Time
}

// NewCatalogService constructs a CatalogService that stores files under dir.
func NewCatalogService(repo ModelRepository, dir string, log *zap.Logger) *CatalogService {
	return &CatalogService{repo: repo, dir: dir, log: log, now: time.Now}
}

// Dir returns the private model directory.
func (s *CatalogService) Dir() string {
	return s.dir
}

// IsGLB reports whether name has a .glb extension, ignoring case.
func IsGLB(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".glb")
}

// DisplayName strips a trailing ".glb" or ".GLB" from a file name.
func DisplayName(fileName string) string {
	if name, ok := strings.CutSuffix(fileName, ".glb"); ok {
		return name
	}
	name, _ := strings.CutSuffix(fileName, ".GLB")
	return name
}

// Import copies src into the model directory under a timestamp-prefixed name
// and records it in the catalog. Only the base name of originalName is used.
// Nothing is stored unless the name ends in .glb. The row is inserted only
// after the copy succeeded; a failed copy may leave a partial file behind.
func (s *CatalogService) Import(ctx context.Context, src io.Reader, originalName string) (*models.Model, error) {
	name := filepath.Base(originalName)
	if !IsGLB(name) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidExtension, name)
	}

	log := s.log.With(zap.String("op", uuid.NewString()), zap.String("source", name))

	dir, err := filepath.Abs(s.dir)
	if err != nil {
		return nil, fmt.Errorf("resolve model dir: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create model dir: %w", err)
	}

	addedAt := s.now().UnixMilli()
	fileName := fmt.Sprintf("%d_%s", addedAt, name)
	dest := filepath.Join(dir, fileName)

	size, err := copyToNewFile(dest, src)
	if err != nil {
		log.Error("failed to copy model file", zap.String("file", dest), zap.Error(err))
		return nil, fmt.Errorf("copy model file: %w", err)
	}

	m := &models.Model{
		Name:      DisplayName(name),
		FileName:  fileName,
		FilePath:  dest,
		FileSize:  size,
		AddedDate: addedAt,
	}
	if err := s.repo.Insert(ctx, m); err != nil {
		log.Error("failed to save model", zap.String("file", dest), zap.Error(err))
		return nil, fmt.Errorf("save model: %w", err)
	}

	log.Info("model imported",
		zap.Int64("id", m.ID),
		zap.String("file", dest),
		zap.Int64("size", size),
	)
	return m, nil
}

// Remove deletes the model's file and then its row. Both steps always run;
// an already missing file is not an error. Failures are joined.
func (s *CatalogService) Remove(ctx context.Context, m models.Model) error {
	var fileErr, rowErr error

	if err := os.Remove(m.FilePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fileErr = fmt.Errorf("delete model file: %w", err)
		s.log.Error("failed to delete model file", zap.String("file", m.FilePath), zap.Error(err))
	}

	if err := s.repo.Delete(ctx, m); err != nil {
		rowErr = fmt.Errorf("delete model row: %w", err)
		s.log.Error("failed to delete model row", zap.Int64("id", m.ID), zap.Error(err))
	}

	if err := errors.Join(fileErr, rowErr); err != nil {
		return err
	}
	s.log.Info("model removed", zap.Int64("id", m.ID), zap.String("file", m.FilePath))
	return nil
}

// RemoveByID looks the model up and removes it.
func (s *CatalogService) RemoveByID(ctx context.Context, id int64) (*models.Model, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return m, s.Remove(ctx, *m)
}

// List returns the catalog, newest first.
func (s *CatalogService) List(ctx context.Context) ([]models.Model, error) {
	return s.repo.ListAll(ctx)
}

// Get returns a single model.
func (s *CatalogService) Get(ctx context.Context, id int64) (*models.Model, error) {
	return s.repo.GetByID(ctx, id)
}

// Subscribe streams catalog snapshots until ctx is done.
func (s *CatalogService) Subscribe(ctx context.Context) (<-chan []models.Model, error) {
	return s.repo.Subscribe(ctx)
}

// Locate returns the model if its file is still on disk, ErrFileMissing otherwise.
func (s *CatalogService) Locate(ctx context.Context, id int64) (*models.Model, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(m.FilePath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return m, ErrFileMissing
		}
		return m, fmt.Errorf("stat model file: %w", err)
	}
	return m, nil
}

// Export copies the model's file to <dir>/<Name>.glb so another program can
// open it, replacing any previous export of the same name.
func (s *CatalogService) Export(ctx context.Context, id int64, dir string) (string, error) {
	m, err := s.Locate(ctx, id)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	in, err := os.Open(m.FilePath)
	if err != nil {
		return "", fmt.Errorf("open model file: %w", err)
	}
	defer in.Close()

	dest := filepath.Join(dir, m.Name+".glb")
	out, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	if _, err := io.CopyBuffer(out, in, make([]byte, copyBufferSize)); err != nil {
		out.Close()
		return "", fmt.Errorf("export model: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("export model: %w", err)
	}

	s.log.Info("model exported", zap.Int64("id", m.ID), zap.String("dest", dest))
	return dest, nil
}

// copyToNewFile writes src to a file that must not exist yet.
func copyToNewFile(dest string, src io.Reader) (int64, error) {
	f, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return 0, err
	}
	n, err := io.CopyBuffer(f, src, make([]byte, copyBufferSize))
	if err != nil {
		f.Close()
		return n, err
	}
	return n, f.Close()
}
