package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rgehrsitz/rexscan/pkg/resource"
	"rgehrsitz/rexscan/pkg/runtime"
)

func sampleResult() *runtime.ScanResult {
	return &runtime.ScanResult{
		RunID:    "run-1",
		Category: resource.S3,
		MinScore: 1,
		Records:  4,
		Rules:    3,
		Report: runtime.Report{
			{
				RowID:    7,
				Category: resource.S3,
				Fields: map[string]resource.Value{
					"name":          resource.String("assets"),
					"creation_date": resource.String("2023-02-01"),
					"public_access": resource.Bool(true),
				},
				Violations: []string{"EncryptionDisabled", "PublicAccessEnabled"},
				Score:      2,
				Weighted:   5,
			},
			{
				RowID:    3,
				Category: resource.S3,
				Fields: map[string]resource.Value{
					"name":          resource.String("logs"),
					"creation_date": resource.String("2023-01-01"),
				},
				Violations: []string{"LoggingDisabled"},
				Score:      1,
				Weighted:   1,
			},
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"json", JSON, false},
		{" Text ", Text, false},
		{"CSV", CSV, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr {
			assert.Error(t, err)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestWriteJSONKeepsReportOrder(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleResult().Report))

	out := buf.String()
	assert.Less(t, strings.Index(out, `"7":`), strings.Index(out, `"3":`))

	var decoded map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)

	first := decoded["7"]
	assert.Equal(t, "assets", first["name"])
	assert.Equal(t, true, first["public_access"])
	assert.Equal(t, []interface{}{"EncryptionDisabled", "PublicAccessEnabled"}, first["Violations"])
	assert.Equal(t, float64(2), first["Score"])
	assert.Equal(t, float64(5), first["WeightedScore"])
}

func TestWriteJSONEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, nil))
	assert.Equal(t, "{}\n", buf.String())
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleResult().Report))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, []string{"7", "S3", "assets|2023-02-01", "2", "5", "EncryptionDisabled;PublicAccessEnabled"}, rows[1])
	assert.Equal(t, []string{"3", "S3", "logs|2023-01-01", "1", "1", "LoggingDisabled"}, rows[2])
}

func TestWriteText(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Text, sampleResult()))

	out := buf.String()
	assert.Contains(t, out, "S3 RISK REPORT")
	assert.Contains(t, out, "run run-1")
	assert.Contains(t, out, "[2/5]")
	assert.Contains(t, out, "assets|2023-02-01")
	assert.Contains(t, out, "EncryptionDisabled, PublicAccessEnabled")
	assert.Contains(t, out, "2 resource(s) at risk")
	assert.NotContains(t, out, "\x1b[")
}

func TestWriteTextEmpty(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	res := sampleResult()
	res.Report = nil
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, res))
	assert.Contains(t, buf.String(), "No resources at risk")
}

func TestWriteUnknownFormat(t *testing.T) {
	assert.Error(t, Write(&bytes.Buffer{}, Format("xml"), sampleResult()))
}
