// rexscan/pkg/report/report.go

package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"rgehrsitz/rexscan/pkg/resource"
	"rgehrsitz/rexscan/pkg/runtime"
)

// Format names an output encoding for scan results.
type Format string

const (
	JSON Format = "json"
	Text Format = "text"
	CSV  Format = "csv"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case JSON, Text, CSV:
		return f, nil
	}
	return "", fmt.Errorf("unknown report format %q (want json, text or csv)", s)
}

// Write renders res in the given format.
func Write(w io.Writer, format Format, res *runtime.ScanResult) error {
	switch format {
	case JSON:
		return WriteJSON(w, res.Report)
	case Text:
		return WriteText(w, res)
	case CSV:
		return WriteCSV(w, res.Report)
	}
	return fmt.Errorf("unknown report format %q", format)
}

// WriteJSON writes the report as one JSON object keyed by row id. Each value
// holds the record fields plus Violations, Score and WeightedScore. Keys appear
// in report order.
func WriteJSON(w io.Writer, report runtime.Report) error {
	data, err := MarshalJSON(report)
	if err != nil {
		return err
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

// MarshalJSON encodes report the way WriteJSON does.
func MarshalJSON(report runtime.Report) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range report {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(strconv.FormatInt(p.RowID, 10))
		buf.Write(key)
		buf.WriteByte(':')

		entry := make(map[string]interface{}, len(p.Fields)+3)
		for name, v := range p.Fields {
			entry[name] = v.Interface()
		}
		entry["Violations"] = p.Violations
		entry["Score"] = p.Score
		entry["WeightedScore"] = p.Weighted
		value, err := json.Marshal(entry)
		if err != nil {
			return nil, fmt.Errorf("encode row %d: %w", p.RowID, err)
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

var csvHeader = []string{"row_id", "category", "resource", "score", "weighted_score", "violations"}

// WriteCSV writes one line per profile. Violations are joined with ";".
func WriteCSV(w io.Writer, report runtime.Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, p := range report {
		if err := cw.Write([]string{
			strconv.FormatInt(p.RowID, 10),
			string(p.Category),
			naturalKey(p),
			strconv.Itoa(p.Score),
			strconv.Itoa(p.Weighted),
			strings.Join(p.Violations, ";"),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func naturalKey(p runtime.Profile) string {
	key, _ := resource.Record{RowID: p.RowID, Category: p.Category, Fields: p.Fields}.NaturalKey()
	return key
}
