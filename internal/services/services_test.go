package services

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammar0144/repokit/internal/models"
	"github.com/ammar0144/repokit/pkg/cache"
	"github.com/ammar0144/repokit/pkg/db"
	"github.com/ammar0144/repokit/pkg/repository"
)

func newManager(t *testing.T) *db.Manager {
	t.Helper()
	m, err := db.NewManager(&db.Config{
		Driver:       db.DriverSQLite,
		Database:     filepath.Join(t.TempDir(), "services.db"),
		MaxOpenConns: 1,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	require.NoError(t, m.Migrate(context.Background(), models.All()...))
	return m
}

func newUserService(t *testing.T, m *db.Manager, log logrus.FieldLogger) *UserService {
	t.Helper()
	store, err := cache.NewMemoryStore(100)
	require.NoError(t, err)

	opts := append(UserScopes(), repository.WithDatabase(m), repository.WithCache(store))
	users, err := repository.NewGenericRepository[models.User](nil, opts...)
	require.NoError(t, err)
	return NewUserService(users, log)
}

func sampleUsers(n int) []*models.User {
	out := make([]*models.User, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, &models.User{
			FullName: fmt.Sprintf("User %02d", i),
			Email:    fmt.Sprintf("user%02d@example.com", i),
			Password: "secret",
			Age:      20 + i,
		})
	}
	return out
}

func TestUserServiceImport(t *testing.T) {
	m := newManager(t)
	log, hook := test.NewNullLogger()
	svc := newUserService(t, m, log)
	ctx := context.Background()

	users := sampleUsers(5)
	users[3].Email = users[2].Email

	result, err := svc.Import(ctx, users, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Success)
	assert.Equal(t, 2, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 2, result.Errors[0].Index)

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "users imported", hook.LastEntry().Message)

	stored, err := svc.Get(ctx, users[0].ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.NotEqual(t, "secret", stored.Password)
	assert.True(t, CheckPassword(stored, "secret"))
	assert.False(t, CheckPassword(stored, "wrong"))
	assert.Equal(t, models.StatusActive, stored.Status)
}

func TestUserServicePaginate(t *testing.T) {
	m := newManager(t)
	svc := newUserService(t, m, nil)
	ctx := context.Background()

	_, err := svc.Import(ctx, sampleUsers(12), 0)
	require.NoError(t, err)

	admin := models.Role{Name: "admin"}
	require.NoError(t, m.DB().Create(&admin).Error)
	var first models.User
	require.NoError(t, m.DB().First(&first, 1).Error)
	require.NoError(t, m.DB().Model(&first).Association("Roles").Append(&admin))

	page, err := svc.Paginate(ctx, UserQuery{BaseURL: "/users"})
	require.NoError(t, err)
	assert.Len(t, page.Data, 10)
	assert.Equal(t, int64(12), page.Meta.Total)
	assert.Equal(t, 2, page.Meta.LastPage)
	require.Len(t, page.Data[0].Roles, 1)
	assert.Equal(t, "admin", page.Data[0].Roles[0].Name)
	assert.Empty(t, page.Data[1].Roles)

	page, err = svc.Paginate(ctx, UserQuery{Search: "user1", SortBy: "email", Direction: repository.Desc})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Meta.Total)
	assert.Equal(t, "user12@example.com", page.Data[0].Email)

	page, err = svc.Paginate(ctx, UserQuery{Search: "User 05"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Meta.Total)

	ok, err := svc.Deactivate(ctx, 5)
	require.NoError(t, err)
	assert.True(t, ok)

	page, err = svc.Paginate(ctx, UserQuery{Search: "User 05"})
	require.NoError(t, err)
	assert.Zero(t, page.Meta.Total)

	_, err = svc.Paginate(ctx, UserQuery{SortBy: "password_hash"})
	assert.True(t, repository.IsValidation(err))
}

func newPermissionService(t *testing.T, m *db.Manager) (*PermissionService, *repository.GenericRepository[models.Permission]) {
	t.Helper()
	perms, err := repository.NewGenericRepository[models.Permission](nil, repository.WithDatabase(m))
	require.NoError(t, err)
	roles, err := repository.NewGenericRepository[models.Role](nil, repository.WithDatabase(m))
	require.NoError(t, err)
	return NewPermissionService(perms, roles, m), perms
}

func TestPermissionServiceSave(t *testing.T) {
	m := newManager(t)
	svc, perms := newPermissionService(t, m)
	ctx := context.Background()

	created, err := svc.Save(ctx, PermissionData{Resource: "files", Action: "read"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "files.read", created.Name)

	updated, err := svc.Save(ctx, PermissionData{
		Name:        "Read files",
		Description: "Download any file",
		Resource:    "files",
		Action:      "read",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Read files", updated.Name)

	count, err := perms.Count(ctx, repository.Options{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	_, err = svc.Save(ctx, PermissionData{Resource: "files"}, nil)
	assert.Error(t, err)
}

func TestPermissionServiceAssignDefaults(t *testing.T) {
	m := newManager(t)
	svc, perms := newPermissionService(t, m)
	ctx := context.Background()

	role, err := svc.AssignDefaults(ctx)
	require.NoError(t, err)
	assert.Equal(t, AdminRole, role.Name)
	assert.Len(t, role.Permissions, len(DefaultActions))

	// Running again neither duplicates permissions nor grants
	_, err = svc.AssignDefaults(ctx)
	require.NoError(t, err)

	count, err := perms.Count(ctx, repository.Options{})
	require.NoError(t, err)
	assert.Equal(t, int64(len(DefaultActions)), count)

	names := []string{}
	all, err := perms.List(ctx, repository.Options{})
	require.NoError(t, err)
	for _, p := range all {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"users.list", "users.read", "users.create", "users.update", "users.delete"}, names)

	var stored models.Role
	require.NoError(t, m.DB().Preload("Permissions").First(&stored, role.ID).Error)
	assert.Len(t, stored.Permissions, len(DefaultActions))
}
