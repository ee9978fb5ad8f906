package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/qalite/models"
)

// NewGorm returns a Store backed by a SQL database through GORM. The schema
// must already be migrated (see Models).
func NewGorm(db *gorm.DB) *Store {
	return &Store{
		Users:     &gormTable[models.User]{db: db, schema: UserSchema()},
		Questions: &gormTable[models.Question]{db: db, schema: QuestionSchema()},
		Answers:   &gormTable[models.Answer]{db: db, schema: AnswerSchema()},
	}
}

type gormTable[T any] struct {
	db     *gorm.DB
	schema Schema[T]
}

// Put upserts every column, so a second Put with the same key overwrites the row.
func (t *gormTable[T]) Put(ctx context.Context, rec *T) error {
	err := t.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(rec).Error
	if err != nil {
		return unavailable("put", t.schema.Name, err)
	}
	return nil
}

func (t *gormTable[T]) Get(ctx context.Context, key string) (*T, error) {
	var rec T
	err := t.db.WithContext(ctx).Where(t.schema.KeyColumn+" = ?", key).Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, unavailable("get", t.schema.Name, err)
	}
	return &rec, nil
}

func (t *gormTable[T]) Scan(ctx context.Context) ([]T, error) {
	var rows []T
	if err := t.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, unavailable("scan", t.schema.Name, err)
	}
	return rows, nil
}

func (t *gormTable[T]) Query(ctx context.Context, index, value string) ([]T, error) {
	idx, err := t.schema.index(index)
	if err != nil {
		return nil, err
	}
	var rows []T
	if err := t.db.WithContext(ctx).Where(idx.Column+" = ?", value).Find(&rows).Error; err != nil {
		return nil, unavailable("query", t.schema.Name, err)
	}
	return rows, nil
}

// Increment is a single INSERT ... ON CONFLICT statement: a new key is
// inserted with vote_count = delta, an existing one gets vote_count + delta.
func (t *gormTable[T]) Increment(ctx context.Context, key string, delta int64) error {
	if !t.schema.counted() {
		return ErrNoCounter
	}
	rec := t.schema.NewCounter(key)
	*t.schema.Votes(rec) = delta
	err := t.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: t.schema.KeyColumn}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"vote_count": gorm.Expr(t.schema.Name+".vote_count + ?", delta),
		}),
	}).Create(rec).Error
	if err != nil {
		return unavailable("increment", t.schema.Name, err)
	}
	return nil
}
