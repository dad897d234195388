package storage

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kochabx/authsession/store/db"
)

// Entry is one persisted field.
type Entry struct {
	Namespace string `gorm:"primaryKey;size:128"`
	Key       string `gorm:"column:field;primaryKey;size:64"`
	Value     string `gorm:"type:text"`
	UpdatedAt time.Time
}

func (Entry) TableName() string { return "session_entries" }

// DB stores fields as rows of session_entries, one namespace per session.
type DB struct {
	gorm      *db.Gorm
	namespace string
}

// NewDB migrates the table and returns a store bound to namespace.
func NewDB(ctx context.Context, g *db.Gorm, namespace string) (*DB, error) {
	if err := g.DB.WithContext(ctx).AutoMigrate(&Entry{}); err != nil {
		return nil, err
	}
	return &DB{gorm: g, namespace: namespace}, nil
}

func (d *DB) Get(ctx context.Context, key string) (string, bool, error) {
	var e Entry
	err := d.gorm.DB.WithContext(ctx).
		Where("namespace = ? AND field = ?", d.namespace, key).
		Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return e.Value, true, nil
}

func (d *DB) Set(ctx context.Context, key, value string) error {
	e := Entry{Namespace: d.namespace, Key: key, Value: value, UpdatedAt: time.Now()}
	return d.gorm.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "namespace"}, {Name: "field"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&e).Error
}

func (d *DB) Remove(ctx context.Context, key string) error {
	return d.gorm.DB.WithContext(ctx).
		Where("namespace = ? AND field = ?", d.namespace, key).
		Delete(&Entry{}).Error
}

func (d *DB) Close() error {
	return d.gorm.Close()
}
