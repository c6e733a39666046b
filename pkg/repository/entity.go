package repository

// Entity is the per-model contract the repository needs.
// Column metadata (attribute names, primary key, soft-delete column) is read
// from the GORM schema parsed for the model.
type Entity interface {
	// TableName returns the database table name for this entity
	TableName() string

	// GetPrimaryKeyValue returns the actual value of the primary key
	GetPrimaryKeyValue() interface{}
}
