// rexscan/pkg/store/redis_store.go

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"

	"rgehrsitz/rexscan/pkg/catalog"
	"rgehrsitz/rexscan/pkg/logging"
	"rgehrsitz/rexscan/pkg/resource"
)

const (
	keyPrefix = "rexscan"
	// IngestChannel receives "<category>=<count>" after every PutRecords.
	IngestChannel = keyPrefix + ":ingest"
	rulesKey      = keyPrefix + ":rules"
)

func seqKey(c resource.Category) string     { return fmt.Sprintf("%s:%s:seq", keyPrefix, c) }
func indexKey(c resource.Category) string   { return fmt.Sprintf("%s:%s:keys", keyPrefix, c) }
func recordsKey(c resource.Category) string { return fmt.Sprintf("%s:%s:records", keyPrefix, c) }

// RedisStore keeps each category in three keys: a row id counter, a hash from
// natural key to row id and a hash from row id to the JSON encoded fields.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to the Redis server at addr and verifies the
// connection with a PING.
func NewRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	logging.Logger.Info().Str("addr", addr).Int("db", db).Msg("Connecting to Redis")

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, logging.NewError(logging.ErrorTypeStore, "failed to connect to Redis", err,
			map[string]interface{}{"addr": addr})
	}

	logging.Logger.Info().Msg("Successfully connected to Redis")
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Records returns the stored records of category ordered by row id.
func (s *RedisStore) Records(ctx context.Context, category resource.Category) ([]resource.Record, error) {
	entries, err := s.client.HGetAll(ctx, recordsKey(category)).Result()
	if err != nil {
		logging.Logger.Error().Err(err).Str("category", string(category)).Msg("Failed to read records from Redis")
		return nil, err
	}

	records := make([]resource.Record, 0, len(entries))
	for field, data := range entries {
		rowID, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid row id %q in %s: %w", field, recordsKey(category), err)
		}
		fields, err := resource.DecodeFields([]byte(data))
		if err != nil {
			logging.Logger.Error().Err(err).Int64("row_id", rowID).Str("data", data).Msg("Failed to decode record")
			return nil, err
		}
		records = append(records, resource.Record{RowID: rowID, Category: category, Fields: fields})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].RowID < records[j].RowID })

	logging.Logger.Debug().Str("category", string(category)).Int("records", len(records)).Msg("Retrieved records from Redis")
	return records, nil
}

// PutRecords upserts records by natural key and publishes one ingest message
// per category touched.
func (s *RedisStore) PutRecords(ctx context.Context, records []resource.Record) ([]resource.Record, error) {
	batch, err := collapse(records)
	if err != nil {
		return nil, err
	}

	stored := make([]resource.Record, 0, len(batch))
	counts := make(map[resource.Category]int)
	for _, u := range batch {
		rec := u.record
		rowID, err := s.rowID(ctx, rec.Category, u.key)
		if err != nil {
			return nil, err
		}
		data, err := resource.EncodeFields(rec.Fields)
		if err != nil {
			return nil, err
		}
		if err := s.client.HSet(ctx, recordsKey(rec.Category), strconv.FormatInt(rowID, 10), data).Err(); err != nil {
			logging.Logger.Error().Err(err).Int64("row_id", rowID).Msg("Failed to store record in Redis")
			return nil, err
		}
		rec.RowID = rowID
		stored = append(stored, rec)
		counts[rec.Category]++
	}

	for _, c := range resource.Categories {
		if counts[c] == 0 {
			continue
		}
		msg := fmt.Sprintf("%s=%d", c, counts[c])
		if err := s.client.Publish(ctx, IngestChannel, msg).Err(); err != nil {
			logging.Logger.Error().Err(err).Str("channel", IngestChannel).Msg("Failed to publish ingest update")
			return nil, err
		}
		logging.Logger.Debug().Str("channel", IngestChannel).Str("payload", msg).Msg("Published ingest update")
	}
	return stored, nil
}

// rowID returns the row id recorded for key, allocating one when the key is
// new. HSETNX settles concurrent writers on a single id.
func (s *RedisStore) rowID(ctx context.Context, category resource.Category, key string) (int64, error) {
	existing, err := s.client.HGet(ctx, indexKey(category), key).Int64()
	if err == nil {
		return existing, nil
	}
	if err != redis.Nil {
		return 0, err
	}

	next, err := s.client.Incr(ctx, seqKey(category)).Result()
	if err != nil {
		return 0, err
	}
	created, err := s.client.HSetNX(ctx, indexKey(category), key, next).Result()
	if err != nil {
		return 0, err
	}
	if created {
		return next, nil
	}
	return s.client.HGet(ctx, indexKey(category), key).Int64()
}

// Rules returns the stored rule definitions, or nil when none were stored.
func (s *RedisStore) Rules(ctx context.Context) ([]catalog.RuleDefinition, error) {
	data, err := s.client.Get(ctx, rulesKey).Bytes()
	if err == redis.Nil {
		logging.Logger.Debug().Str("key", rulesKey).Msg("No rules stored in Redis")
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	var defs []catalog.RuleDefinition
	if err := json.Unmarshal(data, &defs); err != nil {
		logging.Logger.Error().Err(err).Str("key", rulesKey).Msg("Failed to unmarshal rule definitions")
		return nil, err
	}
	return defs, nil
}

// PutRules replaces the stored rule definitions.
func (s *RedisStore) PutRules(ctx context.Context, defs []catalog.RuleDefinition) error {
	data, err := json.Marshal(defs)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, rulesKey, data, 0).Err()
}

var _ Store = (*RedisStore)(nil)
