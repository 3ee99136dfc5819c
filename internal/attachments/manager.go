// Package attachments manages the single image each book, author or user may carry.
//
// An image is a blob in a storage.BlobStore plus one row in the images table.
// Attach writes the new blob first, then atomically points the owner's row at
// it, then removes the blob it replaced. A crash between those steps can only
// leave an unreferenced blob behind, never a row pointing at a missing blob.
// Unreferenced blobs are collected by the Sweeper.
package attachments

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"log"
	"net/url"
	"path"
	"path/filepath"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/mrlokans/librarian/internal/entities"
	"github.com/mrlokans/librarian/internal/errors"
	"github.com/mrlokans/librarian/internal/metrics"
	"github.com/mrlokans/librarian/internal/storage"
	"github.com/mrlokans/librarian/internal/utils"
)

const (
	DefaultMaxUploadBytes = 10 << 20
	DefaultMaxPixels      = 50_000_000
	DefaultPublicPath     = "/storage"
)

// ImageStore persists image rows.
type ImageStore interface {
	Find(ctx context.Context, owner entities.OwnerRef) (*entities.Image, error)
	Upsert(ctx context.Context, owner entities.OwnerRef, filename, blurHash string) (*entities.Image, string, error)
	Delete(ctx context.Context, owner entities.OwnerRef) (string, error)
	ReferencedFilenames(ctx context.Context) (map[string]struct{}, error)
}

type Config struct {
	MaxUploadBytes int64
	// MaxPixels bounds width*height so a small compressed file cannot expand
	// into a huge pixel buffer when decoded.
	MaxPixels int64
	// PublicPath is the URL prefix blobs are served under.
	PublicPath string
}

type Manager struct {
	images ImageStore
	blobs  storage.BlobStore
	cfg    Config
	locks  *ownerLocks
	newID  func() (string, error)
}

func NewManager(images ImageStore, blobs storage.BlobStore, cfg Config) *Manager {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.MaxPixels <= 0 {
		cfg.MaxPixels = DefaultMaxPixels
	}
	if cfg.PublicPath == "" {
		cfg.PublicPath = DefaultPublicPath
	}
	return &Manager{
		images: images,
		blobs:  blobs,
		cfg:    cfg,
		locks:  newOwnerLocks(),
		newID:  func() (string, error) { return gonanoid.New() },
	}
}

// Attach stores content as the owner's image, replacing any previous one.
func (m *Manager) Attach(ctx context.Context, owner entities.OwnerRef, content io.Reader, originalName string) (*entities.Image, error) {
	if !owner.Kind.Valid() {
		return nil, errors.Validation(fmt.Sprintf("unknown image owner kind %q", owner.Kind))
	}

	data, err := io.ReadAll(io.LimitReader(content, m.cfg.MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > m.cfg.MaxUploadBytes {
		return nil, errors.ValidationWithDetails("image too large", map[string]string{
			"image": fmt.Sprintf("must not exceed %d bytes", m.cfg.MaxUploadBytes),
		})
	}

	format, err := m.checkHeader(data)
	if err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, invalidImage()
	}

	hash, err := ComputeBlurHash(img)
	if err != nil {
		log.Printf("[ATTACH] blurhash for %s failed: %v", owner, err)
		hash = ""
	}

	name, err := m.storedName(originalName, format)
	if err != nil {
		return nil, err
	}

	unlock := m.locks.lock(owner)
	defer unlock()

	if err := m.blobs.Put(ctx, name, bytes.NewReader(data)); err != nil {
		metrics.Attachments.WithLabelValues(string(owner.Kind), "attach", "failed").Inc()
		return nil, errors.Wrap(err, errors.CodeInternal, "store image")
	}

	row, previous, err := m.images.Upsert(ctx, owner, name, hash)
	if err != nil {
		metrics.Attachments.WithLabelValues(string(owner.Kind), "attach", "failed").Inc()
		if delErr := m.blobs.Delete(context.WithoutCancel(ctx), name); delErr != nil {
			m.inconsistent("attach", errors.StorageInconsistency(
				fmt.Sprintf("orphaned blob %s after failed attach for %s", name, owner), delErr))
		}
		return nil, err
	}

	if previous != "" {
		if err := m.blobs.Delete(context.WithoutCancel(ctx), previous); err != nil {
			m.inconsistent("replace", errors.StorageInconsistency(
				fmt.Sprintf("could not remove replaced blob %s for %s", previous, owner), err))
		}
	}

	metrics.Attachments.WithLabelValues(string(owner.Kind), "attach", "success").Inc()
	log.Printf("[ATTACH] %s -> %s", owner, name)

	m.Decorate(row)
	return row, nil
}

// checkHeader reads only the image header and rejects unknown formats and
// oversized dimensions before any pixels are decoded.
func (m *Manager) checkHeader(data []byte) (string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || cfg.Width <= 0 || cfg.Height <= 0 {
		return "", invalidImage()
	}
	if int64(cfg.Width)*int64(cfg.Height) > m.cfg.MaxPixels {
		return "", errors.ValidationWithDetails("image too large", map[string]string{
			"image": fmt.Sprintf("must not exceed %d pixels (got %dx%d)", m.cfg.MaxPixels, cfg.Width, cfg.Height),
		})
	}
	return format, nil
}

func invalidImage() error {
	return errors.ValidationWithDetails("invalid image", map[string]string{
		"image": "must be a JPEG, PNG, GIF or WebP image",
	})
}

// Detach removes the owner's image row and its blob.
func (m *Manager) Detach(ctx context.Context, owner entities.OwnerRef) error {
	unlock := m.locks.lock(owner)
	defer unlock()

	name, err := m.images.Delete(ctx, owner)
	if err != nil {
		return err
	}

	if err := m.blobs.Delete(context.WithoutCancel(ctx), name); err != nil {
		m.inconsistent("detach", errors.StorageInconsistency(
			fmt.Sprintf("could not remove blob %s for %s", name, owner), err))
	}

	metrics.Attachments.WithLabelValues(string(owner.Kind), "detach", "success").Inc()
	return nil
}

// Get returns the owner's image with its URL filled in.
func (m *Manager) Get(ctx context.Context, owner entities.OwnerRef) (*entities.Image, error) {
	img, err := m.images.Find(ctx, owner)
	if err != nil {
		return nil, err
	}
	m.Decorate(img)
	return img, nil
}

// URL returns the public URL of a stored blob.
func (m *Manager) URL(name string) string {
	return path.Join(m.cfg.PublicPath, url.PathEscape(name))
}

// Decorate fills in the URL of an image loaded elsewhere, e.g. through a preload.
func (m *Manager) Decorate(img *entities.Image) {
	if img != nil && img.Filename != "" {
		img.URL = m.URL(img.Filename)
	}
}

func (m *Manager) storedName(originalName, format string) (string, error) {
	id, err := m.newID()
	if err != nil {
		return "", fmt.Errorf("generate image id: %w", err)
	}

	base := utils.SanitizeFilename(originalName)
	if filepath.Ext(base) == "" && format != "" {
		base += "." + format
	}
	return id + "_" + base, nil
}

func (m *Manager) inconsistent(op string, err error) {
	metrics.StorageInconsistencies.WithLabelValues(op).Inc()
	log.Printf("[ATTACH] %v", err)
}

// SweepResult summarises one orphan sweep.
type SweepResult struct {
	Scanned  int
	Orphaned int
	Removed  int
	Failed   int
}

// Sweeper removes blobs that no image row references.
type Sweeper struct {
	images ImageStore
	blobs  storage.BlobStore
	grace  time.Duration
	now    func() time.Time
}

// NewSweeper creates a sweeper. Blobs younger than grace are never removed, which
// protects uploads whose row has not been committed yet.
func NewSweeper(images ImageStore, blobs storage.BlobStore, grace time.Duration) *Sweeper {
	return &Sweeper{images: images, blobs: blobs, grace: grace, now: time.Now}
}

// Sweep deletes unreferenced blobs older than the grace period.
func (s *Sweeper) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult

	// Listing blobs before loading references means a blob referenced
	// in between is still seen as referenced.
	blobs, err := s.blobs.List(ctx)
	if err != nil {
		return result, fmt.Errorf("list blobs: %w", err)
	}
	referenced, err := s.images.ReferencedFilenames(ctx)
	if err != nil {
		return result, err
	}

	cutoff := s.now().Add(-s.grace)
	orphans := storage.FilterBlobs(blobs, func(b storage.BlobInfo) bool {
		_, ok := referenced[b.Name]
		return !ok && b.ModifiedAt.Before(cutoff)
	})

	result.Scanned = len(blobs)
	result.Orphaned = len(orphans)

	for _, b := range orphans {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := s.blobs.Delete(ctx, b.Name); err != nil {
			result.Failed++
			log.Printf("[SWEEP] failed to remove %s: %v", b.Name, err)
			continue
		}
		result.Removed++
		metrics.OrphansRemoved.Inc()
	}

	return result, nil
}
