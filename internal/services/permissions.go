package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/ammar0144/repokit/internal/models"
	"github.com/ammar0144/repokit/pkg/db"
	"github.com/ammar0144/repokit/pkg/repository"
)

// Resources and actions covered by the default permissions
const (
	ResourceUsers = "users"

	ActionList   = "list"
	ActionRead   = "read"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// AdminRole receives every default permission
const AdminRole = "admin"

// DefaultActions are granted on ResourceUsers by AssignDefaults
var DefaultActions = []string{ActionList, ActionRead, ActionCreate, ActionUpdate, ActionDelete}

// PermissionData describes a permission to save
type PermissionData struct {
	Name        string
	Description string
	Resource    string
	Action      string
}

// PermissionService maintains permissions and the admin role
type PermissionService struct {
	permissions repository.Repository[models.Permission]
	roles       repository.Repository[models.Role]
	database    *db.Manager
}

// NewPermissionService creates a permission service
func NewPermissionService(permissions repository.Repository[models.Permission], roles repository.Repository[models.Role], database *db.Manager) *PermissionService {
	return &PermissionService{permissions: permissions, roles: roles, database: database}
}

// Save creates the permission for resource+action or updates its name and
// description. The name defaults to "resource.action". tx may be nil.
func (s *PermissionService) Save(ctx context.Context, data PermissionData, tx *gorm.DB) (*models.Permission, error) {
	if data.Resource == "" || data.Action == "" {
		return nil, errors.New("permission requires resource and action")
	}

	name := data.Name
	if name == "" {
		name = data.Resource + "." + data.Action
	}

	return s.permissions.UpdateOrCreate(ctx,
		repository.Attributes{"resource": data.Resource, "action": data.Action},
		repository.Attributes{"name": name, "description": data.Description},
		repository.Options{Tx: tx},
	)
}

// AssignDefaults upserts the default user permissions and grants them to the
// admin role inside a single transaction
func (s *PermissionService) AssignDefaults(ctx context.Context) (*models.Role, error) {
	var role *models.Role
	err := s.database.Transaction(ctx, func(tx *gorm.DB) error {
		granted := make([]models.Permission, 0, len(DefaultActions))
		for _, action := range DefaultActions {
			perm, err := s.Save(ctx, PermissionData{Resource: ResourceUsers, Action: action}, tx)
			if err != nil {
				return fmt.Errorf("save %s.%s: %w", ResourceUsers, action, err)
			}
			granted = append(granted, *perm)
		}

		var err error
		role, err = s.roles.FirstOrCreate(ctx, repository.Attributes{"name": AdminRole}, nil, repository.Options{Tx: tx})
		if err != nil {
			return err
		}
		if err := tx.WithContext(ctx).Model(role).Association("Permissions").Append(granted); err != nil {
			return fmt.Errorf("grant permissions to %s: %w", AdminRole, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return role, nil
}
