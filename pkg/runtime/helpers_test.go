package runtime

import (
	"testing"

	"github.com/stretchr/testify/require"

	"rgehrsitz/rexscan/pkg/catalog"
	"rgehrsitz/rexscan/pkg/resource"
)

func mustCatalog(t *testing.T, defs ...catalog.RuleDefinition) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Load(defs)
	require.NoError(t, err)
	return cat
}

func def(id int, category, cond, tag string) catalog.RuleDefinition {
	return catalog.RuleDefinition{ID: id, Name: tag, Category: category, Condition: cond, ViolationTag: tag, Weight: 1}
}

func bucket(rowID int64, public, encrypted, logging bool) resource.Record {
	return resource.Record{
		RowID:    rowID,
		Category: resource.S3,
		Fields: map[string]resource.Value{
			"name":            resource.String("bucket"),
			"creation_date":   resource.String("2023-06-01"),
			"public_access":   resource.Bool(public),
			"encryption":      resource.Bool(encrypted),
			"logging_enabled": resource.Bool(logging),
		},
	}
}

func mustRule(t *testing.T, cat *catalog.Catalog, id int) *catalog.Rule {
	t.Helper()
	r, ok := cat.Rule(id)
	require.True(t, ok)
	return r
}
