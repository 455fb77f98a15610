package storage

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"gorm.io/gorm"

	"taskboard/internal/models"
)

var (
	ErrObjectNotFound = errors.New("object not found")
	ErrObjectExists   = errors.New("object already exists")
	ErrInvalidName    = errors.New("invalid bucket or object name")
)

// Store keeps uploaded blobs in the database, one row per object.
type Store struct {
	db        *gorm.DB
	publicURL string
}

// New creates a store whose public links are rooted at publicURL.
func New(db *gorm.DB, publicURL string) *Store {
	return &Store{db: db, publicURL: strings.TrimRight(publicURL, "/")}
}

// Upload saves a new object. Uploading over an existing name fails with
// ErrObjectExists; callers remove the old object first.
func (s *Store) Upload(ctx context.Context, obj models.Object) (models.Object, error) {
	if !validName(obj.Bucket) || !validName(obj.Name) {
		return models.Object{}, ErrInvalidName
	}
	obj.Size = int64(len(obj.Data))
	if obj.ContentType == "" {
		obj.ContentType = "application/octet-stream"
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Object{}).
			Where("bucket = ? AND name = ?", obj.Bucket, obj.Name).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrObjectExists
		}
		return tx.Create(&obj).Error
	})
	if err != nil {
		return models.Object{}, err
	}
	return obj, nil
}

// Get loads an object including its bytes.
func (s *Store) Get(ctx context.Context, bucket, name string) (models.Object, error) {
	var obj models.Object
	err := s.db.WithContext(ctx).Where("bucket = ? AND name = ?", bucket, name).First(&obj).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Object{}, ErrObjectNotFound
	}
	return obj, err
}

// Remove deletes the named objects owned by ownerID. Names that do not exist
// are ignored. It returns how many objects were deleted.
func (s *Store) Remove(ctx context.Context, ownerID, bucket string, names ...string) (int64, error) {
	if len(names) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Where("bucket = ? AND name IN ? AND owner_id = ?", bucket, names, ownerID).
		Delete(&models.Object{})
	return res.RowsAffected, res.Error
}

// PublicURL is the unauthenticated link to an object.
func (s *Store) PublicURL(bucket, name string) string {
	return s.publicURL + "/storage/v1/object/public/" + url.PathEscape(bucket) + "/" + url.PathEscape(name)
}

func validName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, "/\\")
}
