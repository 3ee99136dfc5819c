// Package images stores the polymorphic image rows that link a stored blob to its owner.
//
// There is at most one row per owner. Upsert relies on the unique
// (imageable_id, imageable_type) index so that concurrent attaches for the
// same owner converge on a single row instead of racing a read-then-insert.
package images

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/librarian/internal/entities"
	"github.com/mrlokans/librarian/internal/errors"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Find returns the owner's image row.
func (r *Repository) Find(ctx context.Context, owner entities.OwnerRef) (*entities.Image, error) {
	var img entities.Image
	err := r.db.WithContext(ctx).
		Where("imageable_id = ? AND imageable_type = ?", owner.ID, string(owner.Kind)).
		First(&img).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.NotFoundf("no image for %s", owner)
	}
	if err != nil {
		return nil, fmt.Errorf("find image for %s: %w", owner, err)
	}
	return &img, nil
}

// Upsert points the owner's image row at filename, creating the row if needed.
// It returns the saved row and the filename it replaced, or "" when the owner had no image.
func (r *Repository) Upsert(ctx context.Context, owner entities.OwnerRef, filename, blurHash string) (*entities.Image, string, error) {
	if !owner.Kind.Valid() {
		return nil, "", errors.Validation(fmt.Sprintf("unknown image owner kind %q", owner.Kind))
	}

	var saved entities.Image
	var previous string

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing entities.Image
		err := tx.Where("imageable_id = ? AND imageable_type = ?", owner.ID, string(owner.Kind)).First(&existing).Error
		switch {
		case err == nil:
			previous = existing.Filename
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return err
		}

		now := time.Now()
		row := entities.Image{
			Filename:      filename,
			BlurHash:      blurHash,
			ImageableID:   owner.ID,
			ImageableType: string(owner.Kind),
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "imageable_id"}, {Name: "imageable_type"}},
			DoUpdates: clause.AssignmentColumns([]string{"filename", "blur_hash", "updated_at"}),
		}).Create(&row).Error
		if err != nil {
			return err
		}

		return tx.Where("imageable_id = ? AND imageable_type = ?", owner.ID, string(owner.Kind)).First(&saved).Error
	})
	if err != nil {
		return nil, "", fmt.Errorf("upsert image for %s: %w", owner, err)
	}

	if previous == filename {
		previous = ""
	}
	return &saved, previous, nil
}

// Delete removes the owner's image row and returns the filename it pointed at.
func (r *Repository) Delete(ctx context.Context, owner entities.OwnerRef) (string, error) {
	var filename string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var img entities.Image
		err := tx.Where("imageable_id = ? AND imageable_type = ?", owner.ID, string(owner.Kind)).First(&img).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.NotFoundf("no image for %s", owner)
		}
		if err != nil {
			return err
		}
		filename = img.Filename
		return tx.Delete(&img).Error
	})
	if err != nil {
		return "", err
	}
	return filename, nil
}

// ReferencedFilenames returns every filename currently referenced by an image row.
func (r *Repository) ReferencedFilenames(ctx context.Context) (map[string]struct{}, error) {
	var names []string
	if err := r.db.WithContext(ctx).Model(&entities.Image{}).Pluck("filename", &names).Error; err != nil {
		return nil, fmt.Errorf("list image filenames: %w", err)
	}
	out := make(map[string]struct{}, len(names))
	for _, n := range names {
		out[n] = struct{}{}
	}
	return out, nil
}

// Count returns the number of image rows.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.Image{}).Count(&count).Error
	return count, err
}
