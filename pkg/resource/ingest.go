package resource

import (
	"encoding/json"
	"fmt"

	"github.com/itchyny/gojq"

	"rgehrsitz/rexscan/pkg/logging"
)

// DefaultQueries select each category's entries from an uploaded inventory
// document.
var DefaultQueries = map[Category]string{
	EC2: `.EC2Instances // [] | .[]`,
	S3:  `.S3Buckets // [] | .[]`,
	RDS: `.RDSInstances // [] | .[]`,
}

// sourceFields maps inventory keys to record field names.
var sourceFields = map[Category]map[string]string{
	EC2: {
		"GroupId":       "group_id",
		"GroupName":     "group_name",
		"IpPermissions": "ip_permissions",
		"Description":   "description",
		"PublicIp":      "public_ip",
		"PrivateIp":     "private_ip",
	},
	S3: {
		"Name":           "name",
		"CreationDate":   "creation_date",
		"PublicAccess":   "public_access",
		"Encrypted":      "encryption",
		"LoggingEnabled": "logging_enabled",
	},
	RDS: {
		"DBInstanceIdentifier": "db_name",
		"DBInstanceClass":      "db_instance_class",
		"Engine":               "engine",
		"PubliclyAccessible":   "publicly_accessible",
		"StorageEncrypted":     "storage_encrypted",
		"DBPortNumber":         "port",
		"PublicIp":             "public_ip",
		"PrivateIp":            "private_ip",
	},
}

// Inventory holds the records of one upload, grouped by category. Row ids are
// not assigned until the records are stored.
type Inventory struct {
	Records map[Category][]Record
}

// Len counts records across all categories.
func (inv *Inventory) Len() int {
	n := 0
	for _, recs := range inv.Records {
		n += len(recs)
	}
	return n
}

// All returns every record, category by category in Categories order.
func (inv *Inventory) All() []Record {
	out := make([]Record, 0, inv.Len())
	for _, c := range Categories {
		out = append(out, inv.Records[c]...)
	}
	return out
}

// Ingester turns inventory documents into records.
type Ingester struct {
	queries map[Category]*gojq.Code
}

// NewIngester compiles the per-category queries. Categories missing from
// queries use DefaultQueries.
func NewIngester(queries map[Category]string) (*Ingester, error) {
	ing := &Ingester{queries: make(map[Category]*gojq.Code, len(Categories))}
	for _, c := range Categories {
		src, ok := queries[c]
		if !ok || src == "" {
			src = DefaultQueries[c]
		}
		q, err := gojq.Parse(src)
		if err != nil {
			return nil, fmt.Errorf("parse %s query %q: %w", c, src, err)
		}
		code, err := gojq.Compile(q)
		if err != nil {
			return nil, fmt.Errorf("compile %s query %q: %w", c, src, err)
		}
		ing.queries[c] = code
	}
	return ing, nil
}

// ParseInventory decodes data with the default queries.
func ParseInventory(data []byte) (*Inventory, error) {
	ing, err := NewIngester(nil)
	if err != nil {
		return nil, err
	}
	return ing.Parse(data)
}

// Parse decodes a JSON inventory document.
func (ing *Ingester) Parse(data []byte) (*Inventory, error) {
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, logging.NewError(logging.ErrorTypeIngest, "inventory is not valid JSON", err, nil)
	}

	inv := &Inventory{Records: make(map[Category][]Record, len(Categories))}
	for _, c := range Categories {
		iter := ing.queries[c].Run(doc)
		for i := 0; ; i++ {
			v, ok := iter.Next()
			if !ok {
				break
			}
			if err, ok := v.(error); ok {
				return nil, logging.NewError(logging.ErrorTypeIngest, "inventory query failed", err,
					map[string]interface{}{"category": string(c)})
			}
			entry, ok := v.(map[string]interface{})
			if !ok {
				return nil, logging.NewError(logging.ErrorTypeIngest, "inventory entry is not an object", nil,
					map[string]interface{}{"category": string(c), "index": i})
			}
			rec, err := recordFrom(c, entry)
			if err != nil {
				return nil, logging.NewError(logging.ErrorTypeIngest, "invalid inventory entry", err,
					map[string]interface{}{"category": string(c), "index": i})
			}
			inv.Records[c] = append(inv.Records[c], rec)
		}
		logging.Logger.Debug().Str("category", string(c)).Int("records", len(inv.Records[c])).Msg("Extracted inventory records")
	}
	return inv, nil
}

func recordFrom(c Category, entry map[string]interface{}) (Record, error) {
	mapping := sourceFields[c]
	fields := make(map[string]Value, len(mapping))
	for key, raw := range entry {
		name, ok := mapping[key]
		if !ok {
			logging.Logger.Debug().Str("category", string(c)).Str("key", key).Msg("Ignoring unmapped inventory key")
			continue
		}
		v, err := ValueOf(raw)
		if err != nil {
			return Record{}, fmt.Errorf("%s: %w", key, err)
		}
		fields[name] = v
	}
	rec := Record{Category: c, Fields: fields}
	if _, ok := rec.NaturalKey(); !ok {
		return Record{}, fmt.Errorf("missing identifying fields %v", c.NaturalKey())
	}
	return rec, nil
}
