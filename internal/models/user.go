package models

import (
	"time"
)

// Account holds sign-in credentials. It never leaves the gateway.
type Account struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"column:password_hash;not null"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName specifies the table name for Account Model
func (Account) TableName() string {
	return "accounts"
}

// UserProfile is the public profile row keyed by the account id
type UserProfile struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	Username     string    `json:"username" gorm:"not null"`
	ProfileImage string    `json:"profile_image" gorm:"column:profile_image"`
	Verified     bool      `json:"verified"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName specifies the table name for UserProfile Model
func (UserProfile) TableName() string {
	return "users_detail"
}

// Object is a blob kept by the storage layer
type Object struct {
	Bucket      string    `json:"bucket" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"primaryKey"`
	OwnerID     string    `json:"owner_id" gorm:"column:owner_id;index"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Data        []byte    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName specifies the table name for Object Model
func (Object) TableName() string {
	return "storage_objects"
}
