package store

// TableName is the backing table of every collection row.
const TableName = "collection_rows"

// CollectionRow is one persisted element of a collection. Role and owner scope
// the row to its collection; the remaining columns hold the encoded tokens.
type CollectionRow struct {
	ID       uint    `gorm:"column:id;primaryKey"`
	Role     string  `gorm:"column:role;type:varchar(191);not null;index:idx_collection_owner"`
	OwnerID  string  `gorm:"column:owner_id;type:varchar(191);not null;index:idx_collection_owner"`
	Position int     `gorm:"column:position;type:int;not null;default:0"`
	RowKey   *string `gorm:"column:row_key;type:varchar(191)"`
	RowID    *string `gorm:"column:row_id;type:varchar(191)"`
	Value    string  `gorm:"column:value;type:text;not null"`
}

// TableName implements gorm's tabler.
func (CollectionRow) TableName() string { return TableName }

// columns are verified by Migrate against an existing table.
var columns = []string{"id", "role", "owner_id", "position", "row_key", "row_id", "value"}
