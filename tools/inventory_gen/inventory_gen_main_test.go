// rexscan/tools/inventory_gen/inventory_gen_main_test.go

package main

import (
	"encoding/json"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rgehrsitz/rexscan/pkg/resource"
)

func TestParseFlags(t *testing.T) {
	count, outputFile, seed := parseFlags([]string{})
	assert.Equal(t, 1000, count)
	assert.Equal(t, "generated_inventory.json", outputFile)
	assert.Zero(t, seed)

	count, outputFile, seed = parseFlags([]string{"-count", "50", "-output", "custom.json", "-seed", "7"})
	assert.Equal(t, 50, count)
	assert.Equal(t, "custom.json", outputFile)
	assert.Equal(t, uint64(7), seed)
}

func TestGenerateInventory(t *testing.T) {
	inv := generateInventory(gofakeit.New(42), 25)
	assert.Len(t, inv.EC2Instances, 25)
	assert.Len(t, inv.S3Buckets, 25)
	assert.Len(t, inv.RDSInstances, 25)

	for _, db := range inv.RDSInstances {
		assert.Contains(t, []int{3306, 5432}, db.DBPortNumber)
		if !db.PubliclyAccessible {
			assert.Nil(t, db.PublicIp)
		}
	}
}

func TestGenerateInventoryIsSeeded(t *testing.T) {
	a, err := json.Marshal(generateInventory(gofakeit.New(9), 10))
	require.NoError(t, err)
	b, err := json.Marshal(generateInventory(gofakeit.New(9), 10))
	require.NoError(t, err)
	assert.JSONEq(t, string(a), string(b))
}

func TestGeneratedInventoryIngests(t *testing.T) {
	data, err := json.Marshal(generateInventory(gofakeit.New(3), 40))
	require.NoError(t, err)

	inv, err := resource.ParseInventory(data)
	require.NoError(t, err)
	assert.Equal(t, 120, inv.Len())

	seen := make(map[string]bool)
	for _, rec := range inv.Records[resource.S3] {
		key, ok := rec.NaturalKey()
		require.True(t, ok)
		assert.False(t, seen[key], "bucket keys are unique")
		seen[key] = true
	}
}
