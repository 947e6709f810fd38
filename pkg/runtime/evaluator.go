// rexscan/pkg/runtime/evaluator.go

package runtime

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"rgehrsitz/rexscan/pkg/catalog"
	"rgehrsitz/rexscan/pkg/compiler"
	"rgehrsitz/rexscan/pkg/resource"
)

// RuleCycleError reports a RULE reference chain that revisits a rule.
type RuleCycleError struct {
	Chain []int
}

func (e *RuleCycleError) Error() string {
	ids := make([]string, len(e.Chain))
	for i, id := range e.Chain {
		ids[i] = strconv.Itoa(id)
	}
	return "rule reference cycle: " + strings.Join(ids, " -> ")
}

// evaluation carries the state of one (rule, record) evaluation. stack holds
// the ids of the rules currently being resolved.
type evaluation struct {
	catalog *catalog.Catalog
	record  resource.Record
	stack   []int
	onStack map[int]bool
}

// Evaluate reports whether rule matches record. Neither argument is modified.
func (e *Engine) Evaluate(rule *catalog.Rule, record resource.Record) (bool, error) {
	ev := &evaluation{
		catalog: e.catalog,
		record:  record,
		stack:   []int{rule.ID},
		onStack: map[int]bool{rule.ID: true},
	}
	return ev.eval(rule.Condition)
}

func (ev *evaluation) eval(n compiler.Node) (bool, error) {
	switch t := n.(type) {
	case *compiler.And:
		ok, err := ev.eval(t.Left)
		if err != nil || !ok {
			return false, err
		}
		return ev.eval(t.Right)
	case *compiler.Or:
		ok, err := ev.eval(t.Left)
		if err != nil || ok {
			return ok, err
		}
		return ev.eval(t.Right)
	case *compiler.Not:
		ok, err := ev.eval(t.Operand)
		if err != nil {
			return false, err
		}
		return !ok, nil
	case *compiler.Call:
		return ev.call(t)
	case *compiler.Predicate:
		return ev.predicate(t), nil
	case *compiler.Literal:
		return false, fmt.Errorf("literal %s in boolean position", t.Text)
	}
	return false, fmt.Errorf("unsupported node %T", n)
}

func (ev *evaluation) call(c *compiler.Call) (bool, error) {
	switch c.Func {
	case compiler.FuncByCol:
		column := c.Args[0].(*compiler.Literal).Text
		return columnEquals(ev.record.Field(column), c.Args[1].(*compiler.Literal)), nil
	case compiler.FuncByID:
		return ev.record.RowID == int64(c.Args[0].(*compiler.Literal).Num), nil
	case compiler.FuncByTable:
		category, err := resource.ParseCategory(c.Args[0].(*compiler.Literal).Text)
		if err != nil {
			return false, err
		}
		return ev.record.Category == category, nil
	case compiler.FuncRule:
		id, _ := compiler.RuleRef(c)
		return ev.rule(id)
	}
	return false, fmt.Errorf("unsupported function %s", c.Func)
}

func (ev *evaluation) rule(id int) (bool, error) {
	if ev.onStack[id] {
		chain := append(append([]int(nil), ev.stack...), id)
		return false, &RuleCycleError{Chain: chain}
	}
	if ev.catalog == nil {
		return false, fmt.Errorf("rule %d referenced without a catalog", id)
	}
	target, ok := ev.catalog.Rule(id)
	if !ok {
		return false, fmt.Errorf("unknown rule %d", id)
	}

	ev.onStack[id] = true
	ev.stack = append(ev.stack, id)
	defer func() {
		delete(ev.onStack, id)
		ev.stack = ev.stack[:len(ev.stack)-1]
	}()
	return ev.eval(target.Condition)
}

func (ev *evaluation) predicate(p *compiler.Predicate) bool {
	switch p.Op {
	case compiler.OpExists:
		if len(p.Args) == 0 {
			return true
		}
		return ev.record.Field(p.Args[0].(*compiler.Literal).Text).Present()
	case compiler.OpIsEmpty:
		return ev.record.Field(p.Args[0].(*compiler.Literal).Text).Empty()
	case compiler.OpRandom:
		rate := uint64(p.Args[0].(*compiler.Literal).Num)
		return sample(ev.record, ev.stack[len(ev.stack)-1], rate)
	}
	return false
}

// sample selects roughly one record in rate. The choice depends only on the
// record identity and the rule, so repeated scans agree.
func sample(rec resource.Record, ruleID int, rate uint64) bool {
	key := fmt.Sprintf("%s:%d:%d", rec.Category, rec.RowID, ruleID)
	return xxhash.Sum64String(key)%rate == 0
}

// columnEquals compares a field against a literal according to the field's
// type. Absent, null and list fields never match.
func columnEquals(v resource.Value, lit *compiler.Literal) bool {
	switch v.Kind() {
	case resource.KindBool:
		b, _ := v.Bool()
		switch lit.Kind {
		case compiler.IDENTIFIER:
			switch strings.ToLower(lit.Text) {
			case "true":
				return b
			case "false":
				return !b
			}
		case compiler.NUMBER:
			return (lit.Num == 1 && b) || (lit.Num == 0 && !b)
		}
	case resource.KindInt:
		i, _ := v.Int()
		return lit.Kind == compiler.NUMBER && i == int64(lit.Num)
	case resource.KindString:
		s, _ := v.Str()
		return s == lit.Text
	}
	return false
}
