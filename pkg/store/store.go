// rexscan/pkg/store/store.go

package store

import (
	"context"
	"fmt"

	"rgehrsitz/rexscan/pkg/catalog"
	"rgehrsitz/rexscan/pkg/resource"
)

// Store persists resource records and rule definitions. Row ids are assigned
// by the store and are stable per natural key: storing a resource again
// updates its fields and keeps its row id.
type Store interface {
	Records(ctx context.Context, category resource.Category) ([]resource.Record, error)
	PutRecords(ctx context.Context, records []resource.Record) ([]resource.Record, error)
	Rules(ctx context.Context) ([]catalog.RuleDefinition, error)
	PutRules(ctx context.Context, defs []catalog.RuleDefinition) error
	Close() error
}

// Options selects and configures a Store implementation.
type Options struct {
	Driver        string
	SQLitePath    string
	RedisAddress  string
	RedisPassword string
	RedisDatabase int
}

// Open connects the store named by opts.Driver.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case "sqlite", "":
		return OpenSQLite(ctx, opts.SQLitePath)
	case "redis":
		return NewRedisStore(ctx, opts.RedisAddress, opts.RedisPassword, opts.RedisDatabase)
	}
	return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
}

type upsert struct {
	key    string
	record resource.Record
}

// collapse groups records by category and natural key. A resource listed more
// than once keeps its first position and its last set of fields.
func collapse(records []resource.Record) ([]upsert, error) {
	index := make(map[string]int, len(records))
	out := make([]upsert, 0, len(records))
	for i, rec := range records {
		if !rec.Category.Valid() {
			return nil, fmt.Errorf("record %d: invalid category %q", i, rec.Category)
		}
		key, ok := rec.NaturalKey()
		if !ok {
			return nil, fmt.Errorf("record %d: %s record is missing natural key %v", i, rec.Category, rec.Category.NaturalKey())
		}
		id := string(rec.Category) + "/" + key
		if pos, seen := index[id]; seen {
			out[pos].record = rec
			continue
		}
		index[id] = len(out)
		out = append(out, upsert{key: key, record: rec})
	}
	return out, nil
}
