package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/ammar0144/repokit/pkg/db"
)

// Defaults applied when options leave a value unset
const (
	DefaultBatchSize = 1000
	DefaultPage      = 1
	DefaultPerPage   = 10
	DefaultCacheTTL  = time.Hour
	DefaultBaseURL   = "/"
)

// Direction is a sort order
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Attributes maps field names (Go field or column name) to values
type Attributes map[string]interface{}

// Filter is a single {field, operator, value} criterion
type Filter = db.Condition

// Options configures a single repository call
type Options struct {
	// Tx runs the call inside a caller-owned transaction
	Tx *gorm.DB

	// Soft-delete visibility. OnlyTrashed wins over WithTrashed.
	WithTrashed bool
	OnlyTrashed bool

	// Select restricts the loaded columns
	Select []string

	// Preload loads relations, optionally refined by modifiers
	Preload []Preload

	// Cache enables read-through caching for FindBy
	Cache *CacheOptions

	// LockForUpdate adds FOR UPDATE to row queries
	LockForUpdate bool

	// SortBy defaults to the primary key, Direction to Asc
	SortBy    string
	Direction Direction

	// Modifiers refine the query after structural options, before scopes
	Modifiers []Modifier

	// Scopes are names registered with WithScope, applied last in order
	Scopes []string
}

// Preload names a relation to load with the records
type Preload struct {
	Relation  string
	Modifiers []Modifier
}

// CacheOptions identifies a cached lookup
type CacheOptions struct {
	Key string
	TTL time.Duration // DefaultCacheTTL when zero
}

// BatchResult reports per-slice outcomes of CreateInBatches
type BatchResult struct {
	Success int          `json:"success"`
	Failed  int          `json:"failed"`
	Errors  []BatchError `json:"errors"`
}

// BatchError records a failed slice by its starting offset in the input
type BatchError struct {
	Index   int    `json:"index"`
	Message string `json:"error"`
}

// PaginateOptions extends Options with page selection
type PaginateOptions struct {
	Options

	Page    int
	PerPage int

	// BaseURL prefixes the page links in the metadata
	BaseURL string
}

// Pagination is one page of records plus navigation metadata
type Pagination[T any] struct {
	Data []*T     `json:"data"`
	Meta PageMeta `json:"meta"`
}

// PageMeta describes a page within the full result set
type PageMeta struct {
	Total           int64   `json:"total"`
	PerPage         int     `json:"per_page"`
	CurrentPage     int     `json:"current_page"`
	LastPage        int     `json:"last_page"`
	FirstPage       int     `json:"first_page"`
	FirstPageURL    string  `json:"first_page_url"`
	LastPageURL     string  `json:"last_page_url"`
	NextPageURL     *string `json:"next_page_url"`
	PreviousPageURL *string `json:"previous_page_url"`
}

// HasMorePages reports whether a page follows the current one
func (m PageMeta) HasMorePages() bool {
	return m.CurrentPage < m.LastPage
}
