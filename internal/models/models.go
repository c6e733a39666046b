// Package models holds the demo domain persisted through the generic repository.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User statuses
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// User is an account holder
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	FullName  string         `gorm:"size:255" json:"full_name"`
	Email     string         `gorm:"size:191;uniqueIndex;not null" json:"email"`
	Password  string         `gorm:"size:255" json:"-"`
	Status    string         `gorm:"size:32;default:active" json:"status"`
	Age       int            `json:"age"`
	Roles     []Role         `gorm:"many2many:user_roles" json:"roles,omitempty"`
	Files     []File         `json:"files,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string { return "users" }

func (u User) GetPrimaryKeyValue() interface{} { return u.ID }

// Role groups permissions
type Role struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	Name        string       `gorm:"size:64;uniqueIndex;not null" json:"name"`
	Permissions []Permission `gorm:"many2many:role_permissions" json:"permissions,omitempty"`
}

func (Role) TableName() string { return "roles" }

func (r Role) GetPrimaryKeyValue() interface{} { return r.ID }

// Permission grants one action on one resource
type Permission struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"size:128" json:"name"`
	Description string `gorm:"size:255" json:"description"`
	Resource    string `gorm:"size:64;uniqueIndex:idx_permission_resource_action;not null" json:"resource"`
	Action      string `gorm:"size:64;uniqueIndex:idx_permission_resource_action;not null" json:"action"`
}

func (Permission) TableName() string { return "permissions" }

func (p Permission) GetPrimaryKeyValue() interface{} { return p.ID }

// File is an upload owned by a user
type File struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Key       string         `gorm:"size:36;uniqueIndex" json:"key"`
	UserID    uint           `gorm:"index" json:"user_id"`
	Name      string         `gorm:"size:255" json:"name"`
	Path      string         `gorm:"size:512" json:"path"`
	Size      int64          `json:"size"`
	MimeType  string         `gorm:"size:128" json:"mime_type"`
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (File) TableName() string { return "files" }

func (f File) GetPrimaryKeyValue() interface{} { return f.ID }

// BeforeCreate assigns a storage key to new files
func (f *File) BeforeCreate(*gorm.DB) error {
	if f.Key == "" {
		f.Key = uuid.NewString()
	}
	return nil
}

// All lists every model for migrations
func All() []interface{} {
	return []interface{}{&User{}, &Role{}, &Permission{}, &File{}}
}
