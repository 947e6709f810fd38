// Package resource models the cloud resource records the scanner scores.
package resource

import (
	"fmt"
	"strings"
)

// Category is one of the supported resource types.
type Category string

const (
	EC2 Category = "EC2"
	S3  Category = "S3"
	RDS Category = "RDS"
)

// Categories lists every supported category in a stable order.
var Categories = []Category{EC2, S3, RDS}

// ParseCategory accepts a category name in any case.
func ParseCategory(s string) (Category, error) {
	switch Category(strings.ToUpper(strings.TrimSpace(s))) {
	case EC2:
		return EC2, nil
	case S3:
		return S3, nil
	case RDS:
		return RDS, nil
	}
	return "", fmt.Errorf("unknown resource category %q", s)
}

func (c Category) Valid() bool {
	_, err := ParseCategory(string(c))
	return err == nil
}

// NaturalKey names the fields that identify a resource across uploads.
func (c Category) NaturalKey() []string {
	switch c {
	case EC2:
		return []string{"group_id"}
	case S3:
		return []string{"name", "creation_date"}
	case RDS:
		return []string{"db_name"}
	}
	return nil
}
