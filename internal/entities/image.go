package entities

import (
	"fmt"
	"time"
)

// OwnerKind identifies which entity type an Image belongs to.
// Values match the owners' table names, which is what GORM stores
// in imageable_type for polymorphic relations.
type OwnerKind string

const (
	OwnerKindBook   OwnerKind = "books"
	OwnerKindAuthor OwnerKind = "authors"
	OwnerKindUser   OwnerKind = "users"
)

// OwnerKinds lists every entity type that can own an image.
var OwnerKinds = []OwnerKind{OwnerKindBook, OwnerKindAuthor, OwnerKindUser}

func (k OwnerKind) Valid() bool {
	switch k {
	case OwnerKindBook, OwnerKindAuthor, OwnerKindUser:
		return true
	}
	return false
}

// OwnerRef points at the single record that owns an Image.
type OwnerRef struct {
	ID   uint
	Kind OwnerKind
}

func (o OwnerRef) String() string {
	return fmt.Sprintf("%s:%d", o.Kind, o.ID)
}

// Owner is implemented by every entity that can carry an image.
type Owner interface {
	OwnerRef() OwnerRef
	// Attachment returns the preloaded image, or nil.
	Attachment() *Image
}

// Image is the attachment row. At most one exists per (imageable_id, imageable_type).
type Image struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Filename      string    `gorm:"size:512" json:"filename"`
	BlurHash      string    `gorm:"size:64" json:"blur_hash,omitempty"`
	ImageableID   uint      `gorm:"uniqueIndex:idx_images_owner" json:"imageable_id"`
	ImageableType string    `gorm:"uniqueIndex:idx_images_owner;size:50" json:"imageable_type"`
	URL           string    `gorm:"-" json:"url,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (Image) TableName() string {
	return "images"
}

// Owner returns the owner reference stored on the row.
func (i Image) Owner() OwnerRef {
	return OwnerRef{ID: i.ImageableID, Kind: OwnerKind(i.ImageableType)}
}
