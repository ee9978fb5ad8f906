package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/cppla/qalite/models"
)

// NewRedis returns a Store kept in Redis under keyPrefix.
//
// Layout per table:
//
//	<prefix>:<table>:rec:<key>            record JSON
//	<prefix>:<table>:keys                 set of every key (scan source)
//	<prefix>:<table>:votes                hash key -> vote count (HINCRBY)
//	<prefix>:<table>:idx:<index>:<value>  set of keys sharing an indexed value
func NewRedis(rdb redis.UniversalClient, keyPrefix string) *Store {
	if keyPrefix == "" {
		keyPrefix = "qa"
	}
	return &Store{
		Users:     &redisTable[models.User]{rdb: rdb, prefix: keyPrefix, schema: UserSchema()},
		Questions: &redisTable[models.Question]{rdb: rdb, prefix: keyPrefix, schema: QuestionSchema()},
		Answers:   &redisTable[models.Answer]{rdb: rdb, prefix: keyPrefix, schema: AnswerSchema()},
	}
}

type redisTable[T any] struct {
	rdb    redis.UniversalClient
	prefix string
	schema Schema[T]
}

func (t *redisTable[T]) recordKey(key string) string {
	return fmt.Sprintf("%s:%s:rec:%s", t.prefix, t.schema.Name, key)
}

func (t *redisTable[T]) keysKey() string {
	return fmt.Sprintf("%s:%s:keys", t.prefix, t.schema.Name)
}

func (t *redisTable[T]) votesKey() string {
	return fmt.Sprintf("%s:%s:votes", t.prefix, t.schema.Name)
}

func (t *redisTable[T]) indexKey(index, value string) string {
	return fmt.Sprintf("%s:%s:idx:%s:%s", t.prefix, t.schema.Name, index, value)
}

func (t *redisTable[T]) Put(ctx context.Context, rec *T) error {
	key := t.schema.Key(rec)
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode %s record: %w", t.schema.Name, err)
	}
	_, err = t.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, t.recordKey(key), data, 0)
		pipe.SAdd(ctx, t.keysKey(), key)
		if t.schema.counted() {
			pipe.HSet(ctx, t.votesKey(), key, *t.schema.Votes(rec))
		}
		for name, idx := range t.schema.Indexes {
			pipe.SAdd(ctx, t.indexKey(name, idx.Value(rec)), key)
		}
		return nil
	})
	if err != nil {
		return unavailable("put", t.schema.Name, err)
	}
	return nil
}

func (t *redisTable[T]) Get(ctx context.Context, key string) (*T, error) {
	rows, err := t.load(ctx, []string{key})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

func (t *redisTable[T]) Scan(ctx context.Context) ([]T, error) {
	keys, err := t.rdb.SMembers(ctx, t.keysKey()).Result()
	if err != nil {
		return nil, unavailable("scan", t.schema.Name, err)
	}
	return t.load(ctx, keys)
}

func (t *redisTable[T]) Query(ctx context.Context, index, value string) ([]T, error) {
	idx, err := t.schema.index(index)
	if err != nil {
		return nil, err
	}
	keys, err := t.rdb.SMembers(ctx, t.indexKey(index, value)).Result()
	if err != nil {
		return nil, unavailable("query", t.schema.Name, err)
	}
	rows, err := t.load(ctx, keys)
	if err != nil {
		return nil, err
	}
	// An overwrite may have moved a record to another value; the set is not pruned.
	out := rows[:0]
	for i := range rows {
		if idx.Value(&rows[i]) == value {
			out = append(out, rows[i])
		}
	}
	return out, nil
}

func (t *redisTable[T]) Increment(ctx context.Context, key string, delta int64) error {
	if !t.schema.counted() {
		return ErrNoCounter
	}
	_, err := t.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, t.votesKey(), key, delta)
		pipe.SAdd(ctx, t.keysKey(), key)
		return nil
	})
	if err != nil {
		return unavailable("increment", t.schema.Name, err)
	}
	return nil
}

// load fetches records with MGET and their counters with HMGET. Missing
// entries come back as nil elements. Keys with neither a record nor a counter
// are skipped.
func (t *redisTable[T]) load(ctx context.Context, keys []string) ([]T, error) {
	if len(keys) == 0 {
		return []T{}, nil
	}
	recKeys := make([]string, len(keys))
	for i, key := range keys {
		recKeys[i] = t.recordKey(key)
	}
	recs, err := t.rdb.MGet(ctx, recKeys...).Result()
	if err != nil {
		return nil, unavailable("load", t.schema.Name, err)
	}
	var counts []interface{}
	if t.schema.counted() {
		counts, err = t.rdb.HMGet(ctx, t.votesKey(), keys...).Result()
		if err != nil {
			return nil, unavailable("load", t.schema.Name, err)
		}
	}

	out := make([]T, 0, len(keys))
	for i, key := range keys {
		var rec *T
		if data, ok := recs[i].(string); ok {
			rec = new(T)
			if err := json.Unmarshal([]byte(data), rec); err != nil {
				return nil, fmt.Errorf("decode %s record %s: %w", t.schema.Name, key, err)
			}
		}
		if counts != nil {
			if raw, ok := counts[i].(string); ok {
				n, err := strconv.ParseInt(raw, 10, 64)
				if err != nil {
					return nil, fmt.Errorf("decode %s votes %s: %w", t.schema.Name, key, err)
				}
				if rec == nil {
					rec = t.schema.NewCounter(key)
				}
				*t.schema.Votes(rec) = n
			}
		}
		if rec != nil {
			out = append(out, *rec)
		}
	}
	return out, nil
}
