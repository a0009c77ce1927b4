package db

import (
	"context"
	"errors"
	"sync"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SnapshotBackend keeps the bot document in the store_snapshots table. It
// satisfies store.Backend.
type SnapshotBackend struct {
	conn *gorm.DB

	mu       sync.Mutex
	revision int64
}

func NewSnapshotBackend(conn *gorm.DB) *SnapshotBackend {
	return &SnapshotBackend{conn: conn}
}

// Read returns the stored document, or nil when nothing was saved yet.
func (b *SnapshotBackend) Read(ctx context.Context) ([]byte, error) {
	if b == nil || b.conn == nil {
		return nil, errors.New("snapshot backend has no database")
	}
	var row StoreSnapshot
	err := b.conn.WithContext(ctx).Where("id = ?", SnapshotID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	b.revision = row.Revision
	b.mu.Unlock()
	return []byte(row.Data), nil
}

// Write replaces the stored document.
func (b *SnapshotBackend) Write(ctx context.Context, data []byte) error {
	if b == nil || b.conn == nil {
		return errors.New("snapshot backend has no database")
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	row := StoreSnapshot{
		ID:        SnapshotID,
		Data:      datatypes.JSON(append([]byte(nil), data...)),
		Revision:  b.revision + 1,
		UpdatedAt: time.Now().UTC(),
	}
	err := b.conn.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&row).Error
	if err != nil {
		return err
	}
	b.revision = row.Revision
	return nil
}

// Revision reports how many times the document has been written.
func (b *SnapshotBackend) Revision() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.revision
}

// Close releases the connection pool. It also clears DB when the backend
// was built on it.
func (b *SnapshotBackend) Close() error {
	if b == nil || b.conn == nil {
		return nil
	}
	if b.conn == DB {
		return Close()
	}
	sqlDB, err := b.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
