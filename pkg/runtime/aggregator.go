// rexscan/pkg/runtime/aggregator.go

package runtime

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"rgehrsitz/rexscan/pkg/catalog"
	"rgehrsitz/rexscan/pkg/logging"
	"rgehrsitz/rexscan/pkg/resource"
)

// Profile is the violation profile of one at-risk resource.
type Profile struct {
	RowID      int64
	Category   resource.Category
	Fields     map[string]resource.Value
	Violations []string
	// Score is the number of distinct violation tags.
	Score int
	// Weighted sums, per distinct tag, the highest weight of a rule that
	// produced it.
	Weighted int
}

// Report is ordered by Score descending, then RowID ascending.
type Report []Profile

type resourceKey struct {
	category resource.Category
	rowID    int64
}

// ruleHits is the accumulator owned by one rule's task.
type ruleHits struct {
	rule    *catalog.Rule
	matched []resourceKey
	skipped int
}

// Aggregate applies each rule to the records of its category and merges the
// hits per resource. Resources without violations are left out. A failed
// evaluation is logged and contributes no hit.
func (e *Engine) Aggregate(ctx context.Context, rules []*catalog.Rule, records []resource.Record) (Report, error) {
	byCategory := make(map[resource.Category][]int)
	for i, rec := range records {
		byCategory[rec.Category] = append(byCategory[rec.Category], i)
	}

	results := make([]ruleHits, len(rules))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, rule := range rules {
		g.Go(func() error {
			hits := ruleHits{rule: rule}
			for _, idx := range byCategory[rule.Category] {
				if err := gctx.Err(); err != nil {
					return err
				}
				rec := records[idx]
				ok, err := e.Evaluate(rule, rec)
				if err != nil {
					logging.Logger.Warn().Err(err).
						Int("rule_id", rule.ID).
						Str("rule", rule.Name).
						Int64("row_id", rec.RowID).
						Msg("Skipping evaluation")
					hits.skipped++
					continue
				}
				if ok {
					hits.matched = append(hits.matched, resourceKey{rec.Category, rec.RowID})
				}
			}
			results[i] = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report, skipped := merge(results, records)
	logging.Logger.Debug().
		Int("rules", len(rules)).
		Int("records", len(records)).
		Int("at_risk", len(report)).
		Int("skipped", skipped).
		Msg("Aggregated violations")
	return report, nil
}

// merge folds the per-rule accumulators, in rule order, into one profile per
// resource.
func merge(results []ruleHits, records []resource.Record) (Report, int) {
	fields := make(map[resourceKey]map[string]resource.Value, len(records))
	for _, rec := range records {
		fields[resourceKey{rec.Category, rec.RowID}] = rec.Fields
	}

	tags := make(map[resourceKey]map[string]int)
	var order []resourceKey
	skipped := 0
	for _, res := range results {
		skipped += res.skipped
		for _, key := range res.matched {
			set, ok := tags[key]
			if !ok {
				set = make(map[string]int)
				tags[key] = set
				order = append(order, key)
			}
			if res.rule.Weight > set[res.rule.ViolationTag] {
				set[res.rule.ViolationTag] = res.rule.Weight
			}
		}
	}

	report := make(Report, 0, len(order))
	for _, key := range order {
		set := tags[key]
		p := Profile{
			RowID:      key.rowID,
			Category:   key.category,
			Fields:     fields[key],
			Violations: make([]string, 0, len(set)),
		}
		for tag, weight := range set {
			p.Violations = append(p.Violations, tag)
			p.Weighted += weight
		}
		sort.Strings(p.Violations)
		p.Score = len(p.Violations)
		report = append(report, p)
	}
	sortReport(report)
	return report, skipped
}

func sortReport(report Report) {
	sort.SliceStable(report, func(i, j int) bool {
		a, b := report[i], report[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.RowID != b.RowID {
			return a.RowID < b.RowID
		}
		return a.Category < b.Category
	})
}
