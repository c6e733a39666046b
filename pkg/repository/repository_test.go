package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ammar0144/repokit/pkg/db"
)

type member struct {
	ID        uint `gorm:"primaryKey"`
	FullName  string
	Email     string `gorm:"uniqueIndex;size:191"`
	Status    string
	Age       int
	Posts     []post `gorm:"foreignKey:MemberID"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (member) TableName() string { return "members" }

func (m member) GetPrimaryKeyValue() interface{} { return m.ID }

type post struct {
	ID        uint `gorm:"primaryKey"`
	MemberID  uint
	Title     string
	Published bool
}

func (post) TableName() string { return "posts" }

func (p post) GetPrimaryKeyValue() interface{} { return p.ID }

// tag has no soft-delete column
type tag struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

func (tag) TableName() string { return "tags" }

func (t tag) GetPrimaryKeyValue() interface{} { return t.ID }

var _ Repository[member] = (*GenericRepository[member])(nil)

func newTestManager(t *testing.T) *db.Manager {
	t.Helper()
	m, err := db.NewManager(&db.Config{
		Driver:       db.DriverSQLite,
		Database:     filepath.Join(t.TempDir(), "repository.db"),
		MaxOpenConns: 1,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	require.NoError(t, m.Migrate(context.Background(), &member{}, &post{}, &tag{}))
	return m
}

func newMemberRepo(t *testing.T, opts ...Option) (*GenericRepository[member], *db.Manager) {
	t.Helper()
	m := newTestManager(t)
	repo, err := NewGenericRepository[member](nil, append([]Option{WithDatabase(m)}, opts...)...)
	require.NoError(t, err)
	return repo, m
}

// seedMembers inserts n members named "Member 1".."Member n" with ages 10, 11, ...
func seedMembers(t *testing.T, repo *GenericRepository[member], n int) []*member {
	t.Helper()
	members := make([]*member, 0, n)
	for i := 1; i <= n; i++ {
		members = append(members, &member{
			FullName: fmt.Sprintf("Member %d", i),
			Email:    fmt.Sprintf("member%d@example.com", i),
			Status:   "active",
			Age:      9 + i,
		})
	}
	require.NoError(t, repo.CreateMany(context.Background(), members, Options{}))
	return members
}

func names(items []*member) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.FullName)
	}
	return out
}
