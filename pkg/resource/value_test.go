package resource

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueOf(t *testing.T) {
	tests := []struct {
		name    string
		in      interface{}
		kind    Kind
		text    string
		wantErr bool
	}{
		{name: "nil is null", in: nil, kind: KindNull, text: "null"},
		{name: "string", in: "10.0.0.1", kind: KindString, text: "10.0.0.1"},
		{name: "bool", in: true, kind: KindBool, text: "true"},
		{name: "integral float", in: 5432.0, kind: KindInt, text: "5432"},
		{name: "json number", in: json.Number("3306"), kind: KindInt, text: "3306"},
		{name: "object list", in: []interface{}{map[string]interface{}{"FromPort": 22.0}}, kind: KindList},
		{name: "fraction rejected", in: 1.5, wantErr: true},
		{name: "scalar list rejected", in: []interface{}{"a"}, wantErr: true},
		{name: "map rejected", in: map[string]interface{}{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ValueOf(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.kind, v.Kind())
			if tt.text != "" {
				assert.Equal(t, tt.text, v.String())
			}
		})
	}
}

func TestValuePresenceAndEmptiness(t *testing.T) {
	assert.False(t, Absent.Present())
	assert.False(t, Null.Present())
	assert.True(t, String("").Present())

	assert.True(t, Absent.Empty())
	assert.True(t, Null.Empty())
	assert.True(t, String("").Empty())
	assert.True(t, List(nil).Empty())
	assert.False(t, List([]map[string]interface{}{{"IpProtocol": "tcp"}}).Empty())
	assert.False(t, Bool(false).Empty())
	assert.False(t, Int(0).Empty())
}

func TestRecordFieldAndNaturalKey(t *testing.T) {
	rec := Record{
		RowID:    7,
		Category: S3,
		Fields: map[string]Value{
			"name":          String("logs"),
			"creation_date": String("2023-01-01"),
		},
	}
	assert.Equal(t, KindAbsent, rec.Field("missing").Kind())

	key, ok := rec.NaturalKey()
	assert.True(t, ok)
	assert.Equal(t, "logs|2023-01-01", key)

	delete(rec.Fields, "creation_date")
	_, ok = rec.NaturalKey()
	assert.False(t, ok)
}

func TestEncodeDecodeFieldsKeepsTypes(t *testing.T) {
	fields := map[string]Value{
		"port":                Int(5432),
		"publicly_accessible": Bool(true),
		"public_ip":           Null,
		"engine":              String("postgres"),
	}
	data, err := EncodeFields(fields)
	require.NoError(t, err)

	decoded, err := DecodeFields(data)
	require.NoError(t, err)
	assert.Equal(t, fields, decoded)
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory("s3")
	assert.NoError(t, err)
	assert.Equal(t, S3, c)

	_, err = ParseCategory("lambda")
	assert.Error(t, err)
	assert.False(t, Category("GCS").Valid())
}
