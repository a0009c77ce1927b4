// pkg/db/models.go
package db

import (
	"time"

	"gorm.io/datatypes"
)

// SnapshotID is the primary key of the single row holding the bot document.
const SnapshotID = 1

// StoreSnapshot holds the whole serialized bot document. It is rewritten on
// every save, mirroring the flat-file backend.
type StoreSnapshot struct {
	ID        uint           `gorm:"primaryKey;autoIncrement:false"`
	Data      datatypes.JSON `gorm:"not null"`
	Revision  int64          `gorm:"not null;default:0"`
	UpdatedAt time.Time
}
