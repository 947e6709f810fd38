// rexscan/pkg/catalog/catalog.go

package catalog

import (
	"errors"
	"fmt"
	"strings"

	"rgehrsitz/rexscan/pkg/compiler"
	"rgehrsitz/rexscan/pkg/logging"
	"rgehrsitz/rexscan/pkg/resource"
)

// CatalogError names the rule that stopped a load.
type CatalogError struct {
	Rule string
	ID   int
	Err  error
}

func (e *CatalogError) Error() string {
	return fmt.Sprintf("rule %q (id %d): %v", e.Rule, e.ID, e.Err)
}

func (e *CatalogError) Unwrap() error {
	return e.Err
}

// Catalog holds the compiled rules of one load. It is never modified after
// Load returns; reloading builds a new Catalog.
type Catalog struct {
	rules      []*Rule
	byID       map[int]*Rule
	byCategory map[resource.Category][]*Rule
}

// Load validates and compiles every definition. Any failure aborts the whole
// load and no catalog is returned.
func Load(defs []RuleDefinition) (*Catalog, error) {
	c := &Catalog{
		rules:      make([]*Rule, 0, len(defs)),
		byID:       make(map[int]*Rule, len(defs)),
		byCategory: make(map[resource.Category][]*Rule),
	}

	for i, def := range defs {
		id := def.ID
		if id == 0 {
			id = i + 1
		}
		rule, err := compileDefinition(id, def)
		if err != nil {
			logging.Logger.Error().Err(err).Str("rule", def.Name).Int("id", id).Msg("Failed to compile rule")
			return nil, &CatalogError{Rule: def.Name, ID: id, Err: err}
		}
		if prev, dup := c.byID[id]; dup {
			return nil, &CatalogError{Rule: def.Name, ID: id, Err: fmt.Errorf("duplicate rule id, already used by %q", prev.Name)}
		}
		c.rules = append(c.rules, rule)
		c.byID[id] = rule
		c.byCategory[rule.Category] = append(c.byCategory[rule.Category], rule)
	}

	for _, rule := range c.rules {
		for _, ref := range compiler.ReferencedRules(rule.Condition) {
			if _, ok := c.byID[ref]; !ok {
				return nil, &CatalogError{Rule: rule.Name, ID: rule.ID, Err: fmt.Errorf("reference to unknown rule %d", ref)}
			}
		}
	}

	logging.Logger.Info().Int("rules", len(c.rules)).Msg("Loaded rule catalog")
	return c, nil
}

func compileDefinition(id int, def RuleDefinition) (*Rule, error) {
	if strings.TrimSpace(def.Name) == "" {
		return nil, errors.New("rule name is required")
	}
	category, err := resource.ParseCategory(def.Category)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(def.ViolationTag) == "" {
		return nil, errors.New("violation tag is required")
	}
	if def.Weight < 1 {
		return nil, fmt.Errorf("weight must be at least 1, got %d", def.Weight)
	}
	if id < 0 {
		return nil, fmt.Errorf("rule id must be positive, got %d", id)
	}

	cond, err := compiler.Compile(def.Condition)
	if err != nil {
		return nil, fmt.Errorf("compile condition %q: %w", def.Condition, err)
	}
	logging.Logger.Debug().Str("rule", def.Name).Str("condition", compiler.String(cond)).Msg("Compiled rule")

	return &Rule{
		ID:           id,
		Name:         def.Name,
		Category:     category,
		Condition:    cond,
		ViolationTag: def.ViolationTag,
		Weight:       def.Weight,
		Remediation:  def.Remediation,
		Fields:       compiler.ReferencedFields(cond),
	}, nil
}

// Rules returns every rule in definition order.
func (c *Catalog) Rules() []*Rule {
	return append([]*Rule(nil), c.rules...)
}

// RulesFor returns the rules of one category in definition order.
func (c *Catalog) RulesFor(category resource.Category) []*Rule {
	return append([]*Rule(nil), c.byCategory[category]...)
}

// Rule looks a rule up by id.
func (c *Catalog) Rule(id int) (*Rule, bool) {
	r, ok := c.byID[id]
	return r, ok
}

func (c *Catalog) Len() int {
	return len(c.rules)
}
