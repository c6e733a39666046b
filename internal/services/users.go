// Package services implements the user and permission use cases on top of
// the generic repository.
package services

import (
	"context"
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/ammar0144/repokit/internal/models"
	"github.com/ammar0144/repokit/pkg/repository"
)

// ScopeWithRoles preloads user roles
const ScopeWithRoles = "with_roles"

// UserScopes returns the named scopes the user repository must be built with
func UserScopes() []repository.Option {
	return []repository.Option{
		repository.WithScope(ScopeWithRoles, repository.With("Roles")),
	}
}

// UserQuery selects a page of users
type UserQuery struct {
	// Search matches full name or email
	Search    string
	Page      int
	PerPage   int
	SortBy    string
	Direction repository.Direction
	BaseURL   string
}

// UserService lists and imports users
type UserService struct {
	users repository.Repository[models.User]
	log   logrus.FieldLogger
}

// NewUserService creates a user service. The repository must carry UserScopes.
func NewUserService(users repository.Repository[models.User], log logrus.FieldLogger) *UserService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &UserService{users: users, log: log.WithField("service", "users")}
}

// Paginate returns a page of users with their roles
func (s *UserService) Paginate(ctx context.Context, q UserQuery) (*repository.Pagination[models.User], error) {
	return s.users.Paginate(ctx, repository.PaginateOptions{
		Options: repository.Options{
			SortBy:    q.SortBy,
			Direction: q.Direction,
			Modifiers: []repository.Modifier{repository.Search(q.Search, "full_name", "email")},
			Scopes:    []string{ScopeWithRoles},
		},
		Page:    q.Page,
		PerPage: q.PerPage,
		BaseURL: q.BaseURL,
	})
}

// Get returns a user by id, served from cache when possible
func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	return s.users.FindBy(ctx, "id", id, repository.Options{
		Cache: &repository.CacheOptions{Key: "user:" + strconv.FormatUint(uint64(id), 10)},
	})
}

// Import hashes plain-text passwords and inserts users in batches.
// Slices that fail (duplicate emails, for instance) are reported in the result.
func (s *UserService) Import(ctx context.Context, users []*models.User, batchSize int) (*repository.BatchResult, error) {
	for _, u := range users {
		if u.Password == "" || isHashed(u.Password) {
			continue
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password for %s: %w", u.Email, err)
		}
		u.Password = string(hash)
	}

	result, err := s.users.CreateInBatches(ctx, users, batchSize, repository.Options{})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"success": result.Success,
		"failed":  result.Failed,
	}).Info("users imported")
	return result, nil
}

// Deactivate soft deletes a user
func (s *UserService) Deactivate(ctx context.Context, id uint) (bool, error) {
	n, err := s.users.SoftDelete(ctx, "id", id, repository.Options{})
	return n > 0, err
}

// CheckPassword reports whether password matches the stored hash
func CheckPassword(u *models.User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) == nil
}

func isHashed(password string) bool {
	_, err := bcrypt.Cost([]byte(password))
	return err == nil
}
