// Package store holds the key-value storage model behind the board: one table
// per record kind, point lookups, full scans, equality lookups on declared
// secondary indexes and an atomic vote counter.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/cppla/qalite/models"
)

var (
	// ErrNotFound is returned by Get when no record has the key.
	ErrNotFound = errors.New("record not found")
	// ErrUnavailable wraps any backend failure.
	ErrUnavailable = errors.New("storage unavailable")
	// ErrUnknownIndex is returned by Query for an index the table does not declare.
	ErrUnknownIndex = errors.New("unknown secondary index")
	// ErrNoCounter is returned by Increment on a table without a vote counter.
	ErrNoCounter = errors.New("table has no vote counter")
)

// IndexQuestionID is the secondary index on Answer.questionId.
const IndexQuestionID = "questionId"

// Table is a single record collection.
type Table[T any] interface {
	// Put inserts or overwrites the record stored under its key.
	Put(ctx context.Context, rec *T) error
	// Get returns the record stored under key or ErrNotFound.
	Get(ctx context.Context, key string) (*T, error)
	// Scan reads the whole collection. The result is unordered and unbounded,
	// which only holds up while the board stays small.
	Scan(ctx context.Context) ([]T, error)
	// Query returns the records whose indexed field equals value.
	Query(ctx context.Context, index, value string) ([]T, error)
	// Increment atomically adds delta to the record's vote count. A missing
	// record is created with a zero-based counter first.
	Increment(ctx context.Context, key string, delta int64) error
}

// Store bundles the three collections.
type Store struct {
	Users     Table[models.User]
	Questions Table[models.Question]
	Answers   Table[models.Answer]
}

// Index describes a secondary index: the SQL column that backs it and the
// accessor reading the indexed value from a record.
type Index[T any] struct {
	Column string
	Value  func(*T) string
}

// Schema tells a backend how to key, count and index records of type T.
type Schema[T any] struct {
	Name      string
	KeyColumn string
	Key       func(*T) string
	// Votes and NewCounter are nil for tables without a vote counter.
	Votes      func(*T) *int64
	NewCounter func(key string) *T
	Indexes    map[string]Index[T]
}

func (s Schema[T]) counted() bool {
	return s.Votes != nil && s.NewCounter != nil
}

func (s Schema[T]) index(name string) (Index[T], error) {
	idx, ok := s.Indexes[name]
	if !ok {
		return Index[T]{}, fmt.Errorf("%w: %s.%s", ErrUnknownIndex, s.Name, name)
	}
	return idx, nil
}

// UserSchema describes the users table.
func UserSchema() Schema[models.User] {
	return Schema[models.User]{
		Name:      "users",
		KeyColumn: "user_id",
		Key:       (*models.User).RecordKey,
	}
}

// QuestionSchema describes the questions table.
func QuestionSchema() Schema[models.Question] {
	return Schema[models.Question]{
		Name:      "questions",
		KeyColumn: "question_id",
		Key:       (*models.Question).RecordKey,
		Votes:     func(q *models.Question) *int64 { return &q.VoteCount },
		NewCounter: func(key string) *models.Question {
			return &models.Question{QuestionID: key, Tags: []string{}}
		},
	}
}

// AnswerSchema describes the answers table and its questionId index.
func AnswerSchema() Schema[models.Answer] {
	return Schema[models.Answer]{
		Name:       "answers",
		KeyColumn:  "answer_id",
		Key:        (*models.Answer).RecordKey,
		Votes:      func(a *models.Answer) *int64 { return &a.VoteCount },
		NewCounter: func(key string) *models.Answer { return &models.Answer{AnswerID: key} },
		Indexes: map[string]Index[models.Answer]{
			IndexQuestionID: {
				Column: "question_id",
				Value:  func(a *models.Answer) string { return a.QuestionID },
			},
		},
	}
}

// Models lists the record types for schema migration.
func Models() []interface{} {
	return []interface{}{&models.User{}, &models.Question{}, &models.Answer{}}
}

func unavailable(op, table string, err error) error {
	return fmt.Errorf("%w: %s %s: %w", ErrUnavailable, op, table, err)
}
