// Package filesystem stores sauce images on a filesystem behind afero.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"piiquante/application/ports"
	"piiquante/domain/config"
	"piiquante/domain/core/valueobjects"
	"piiquante/pkg/common"
	pkgerrors "piiquante/pkg/errors"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// BlobStore keeps one file per image in a flat directory
type BlobStore struct {
	fs      afero.Afero
	baseURL string
	cfg     *config.DomainConfig
	logger  *zap.Logger
	now     func() time.Time
}

// NewBlobStore creates a store rooted at the given filesystem.
// baseURL is used when the request context carries no public origin.
func NewBlobStore(fs afero.Fs, baseURL string, cfg *config.DomainConfig, logger *zap.Logger) *BlobStore {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &BlobStore{
		fs:      afero.Afero{Fs: fs},
		baseURL: baseURL,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

var _ ports.BlobStore = (*BlobStore)(nil)

// Save writes an uploaded image under a fresh name and returns its public reference
func (s *BlobStore) Save(ctx context.Context, originalName, contentType string, body io.Reader) (valueobjects.ImageRef, error) {
	ext, ok := s.cfg.ExtensionFor(strings.ToLower(contentType))
	if !ok {
		return valueobjects.ImageRef{}, pkgerrors.NewValidationError(
			fmt.Sprintf("unsupported image type %q", contentType))
	}

	name := s.fileName(originalName, ext)

	file, err := s.fs.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return valueobjects.ImageRef{}, fmt.Errorf("failed to create image %s: %w", name, err)
	}

	written, copyErr := io.Copy(file, body)
	closeErr := file.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		if rmErr := s.fs.Remove(name); rmErr != nil {
			s.logger.Error("Failed to remove partial image",
				zap.String("file", name),
				zap.Bool("leak_candidate", true),
				zap.Error(rmErr),
			)
		}
		return valueobjects.ImageRef{}, fmt.Errorf("failed to write image %s: %w", name, err)
	}

	ref, err := valueobjects.NewImageRef(s.baseURLFor(ctx), name)
	if err != nil {
		_ = s.fs.Remove(name)
		return valueobjects.ImageRef{}, err
	}

	s.logger.Debug("Stored image",
		zap.String("file", name),
		zap.String("contentType", contentType),
		zap.Int64("bytes", written),
	)
	return ref, nil
}

// Delete removes the file behind a reference.
// A file that is already gone counts as deleted.
func (s *BlobStore) Delete(ctx context.Context, ref valueobjects.ImageRef) error {
	name := ref.FileName()
	if name == "" || name != path.Base(name) {
		return fmt.Errorf("image reference %q has no file name", ref.URL())
	}

	if err := s.fs.Remove(name); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to delete image %s: %w", name, err)
	}
	return nil
}

// Exists reports whether the file behind a reference is present
func (s *BlobStore) Exists(ref valueobjects.ImageRef) (bool, error) {
	return s.fs.Exists(ref.FileName())
}

// fileName turns "My Photo.JPG" into "My_Photo_1700000000000_1a2b3c4d.jpg"
func (s *BlobStore) fileName(originalName, ext string) string {
	base := path.Base(strings.ReplaceAll(originalName, `\`, "/"))
	base = strings.TrimSuffix(base, path.Ext(base))
	base = strings.Trim(unsafeNameChars.ReplaceAllString(base, "_"), "_")

	if max := s.cfg.MaxImageNameLength; max > 0 && len(base) > max {
		base = base[:max]
	}
	if base == "" {
		base = "image"
	}

	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return base + "_" + strconv.FormatInt(s.now().UnixMilli(), 10) + "_" + suffix + "." + ext
}

func (s *BlobStore) baseURLFor(ctx context.Context) string {
	if baseURL, ok := common.GetBaseURL(ctx); ok {
		return baseURL
	}
	return s.baseURL
}
