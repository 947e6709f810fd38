// rexscan/pkg/catalog/structs.go

package catalog

import (
	"rgehrsitz/rexscan/pkg/compiler"
	"rgehrsitz/rexscan/pkg/resource"
)

// Ruleset is the on-disk rule pack.
type Ruleset struct {
	Rules []RuleDefinition `json:"rules" yaml:"rules"`
}

// RuleDefinition is a rule as authored. ID is optional; zero means the rule's
// 1-based position in the pack.
type RuleDefinition struct {
	ID           int    `json:"id,omitempty" yaml:"id,omitempty"`
	Name         string `json:"name" yaml:"name"`
	Category     string `json:"resource_category" yaml:"resource_category"`
	Condition    string `json:"condition" yaml:"condition"`
	ViolationTag string `json:"violation_tag" yaml:"violation_tag"`
	Weight       int    `json:"weight" yaml:"weight"`
	Remediation  string `json:"remediation_steps,omitempty" yaml:"remediation_steps,omitempty"`
}

// Rule is a compiled, read-only rule.
type Rule struct {
	ID           int
	Name         string
	Category     resource.Category
	Condition    compiler.Node
	ViolationTag string
	Weight       int
	Remediation  string
	// Fields lists the record fields the condition reads.
	Fields []string
}
