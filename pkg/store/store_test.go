// rexscan/pkg/store/store_test.go

package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rgehrsitz/rexscan/pkg/catalog"
	"rgehrsitz/rexscan/pkg/resource"
)

func bucket(name, created string, public bool) resource.Record {
	return resource.Record{
		Category: resource.S3,
		Fields: map[string]resource.Value{
			"name":          resource.String(name),
			"creation_date": resource.String(created),
			"public_access": resource.Bool(public),
		},
	}
}

func database(name string, port int64) resource.Record {
	return resource.Record{
		Category: resource.RDS,
		Fields: map[string]resource.Value{
			"db_name":           resource.String(name),
			"port":              resource.Int(port),
			"storage_encrypted": resource.Bool(false),
			"public_ip":         resource.Null,
		},
	}
}

// exerciseStore runs the behaviour every Store implementation shares.
func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()

	t.Run("empty category", func(t *testing.T) {
		records, err := s.Records(ctx, resource.EC2)
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("assigns row ids per category", func(t *testing.T) {
		stored, err := s.PutRecords(ctx, []resource.Record{
			bucket("logs", "2023-01-01", false),
			database("orders", 5432),
			bucket("assets", "2023-02-01", true),
		})
		require.NoError(t, err)
		require.Len(t, stored, 3)
		assert.Equal(t, int64(1), stored[0].RowID)
		assert.Equal(t, int64(1), stored[1].RowID)
		assert.Equal(t, int64(2), stored[2].RowID)

		records, err := s.Records(ctx, resource.S3)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, int64(1), records[0].RowID)
		assert.Equal(t, resource.S3, records[0].Category)
		name, _ := records[1].Field("name").Str()
		assert.Equal(t, "assets", name)
		public, _ := records[1].Field("public_access").Bool()
		assert.True(t, public)
	})

	t.Run("keeps field types", func(t *testing.T) {
		records, err := s.Records(ctx, resource.RDS)
		require.NoError(t, err)
		require.Len(t, records, 1)
		port, ok := records[0].Field("port").Int()
		require.True(t, ok)
		assert.Equal(t, int64(5432), port)
		assert.Equal(t, resource.KindNull, records[0].Field("public_ip").Kind())
		assert.False(t, records[0].Field("public_ip").Present())
	})

	t.Run("upsert keeps row id", func(t *testing.T) {
		stored, err := s.PutRecords(ctx, []resource.Record{
			bucket("assets", "2023-02-01", false),
			bucket("backups", "2023-03-01", true),
			bucket("backups", "2023-03-01", false),
		})
		require.NoError(t, err)
		require.Len(t, stored, 2)
		assert.Equal(t, int64(2), stored[0].RowID)
		assert.Equal(t, int64(3), stored[1].RowID)

		records, err := s.Records(ctx, resource.S3)
		require.NoError(t, err)
		require.Len(t, records, 3)
		public, _ := records[1].Field("public_access").Bool()
		assert.False(t, public, "upsert replaces fields")
		public, _ = records[2].Field("public_access").Bool()
		assert.False(t, public, "last duplicate wins")
	})

	t.Run("rejects missing natural key", func(t *testing.T) {
		rec := bucket("nodate", "", false)
		delete(rec.Fields, "creation_date")
		_, err := s.PutRecords(ctx, []resource.Record{rec})
		assert.Error(t, err)
	})

	t.Run("rules", func(t *testing.T) {
		defs, err := s.Rules(ctx)
		require.NoError(t, err)
		assert.Empty(t, defs)

		want := catalog.DefaultDefinitions()
		require.NoError(t, s.PutRules(ctx, want))
		defs, err = s.Rules(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, defs)

		require.NoError(t, s.PutRules(ctx, want[:2]))
		defs, err = s.Rules(ctx)
		require.NoError(t, err)
		assert.Equal(t, want[:2], defs)

		_, err = catalog.Load(defs)
		assert.NoError(t, err)
	})
}

func TestCollapse(t *testing.T) {
	batch, err := collapse([]resource.Record{
		bucket("a", "2023-01-01", true),
		bucket("b", "2023-01-01", true),
		bucket("a", "2023-01-01", false),
		bucket("a", "2024-01-01", false),
	})
	require.NoError(t, err)
	require.Len(t, batch, 3)
	assert.Equal(t, "a|2023-01-01", batch[0].key)
	public, _ := batch[0].record.Field("public_access").Bool()
	assert.False(t, public)
	assert.Equal(t, "b|2023-01-01", batch[1].key)
	assert.Equal(t, "a|2024-01-01", batch[2].key)
}

func TestCollapseInvalidCategory(t *testing.T) {
	_, err := collapse([]resource.Record{{Category: "GCS"}})
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Options{Driver: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "rexscan.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, Options{Driver: "mongo"})
	assert.ErrorContains(t, err, "unknown store driver")
}
