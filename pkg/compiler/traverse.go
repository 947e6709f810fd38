// rexscan/pkg/compiler/traverse.go

package compiler

import (
	"fmt"
	"sort"
	"strings"
)

// Walk visits n and its descendants depth-first. Returning false from fn
// skips the children of the current node.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	switch t := n.(type) {
	case *And:
		Walk(t.Left, fn)
		Walk(t.Right, fn)
	case *Or:
		Walk(t.Left, fn)
		Walk(t.Right, fn)
	case *Not:
		Walk(t.Operand, fn)
	case *Call:
		for _, a := range t.Args {
			Walk(a, fn)
		}
	case *Predicate:
		for _, a := range t.Args {
			Walk(a, fn)
		}
	case *Literal:
	}
}

// ReferencedFields lists the record fields a condition reads, sorted.
func ReferencedFields(n Node) []string {
	seen := map[string]bool{}
	Walk(n, func(n Node) bool {
		switch t := n.(type) {
		case *Call:
			if t.Func == FuncByCol {
				seen[t.Args[0].(*Literal).Text] = true
			}
		case *Predicate:
			if (t.Op == OpExists || t.Op == OpIsEmpty) && len(t.Args) == 1 {
				seen[t.Args[0].(*Literal).Text] = true
			}
		}
		return true
	})
	fields := make([]string, 0, len(seen))
	for f := range seen {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// ReferencedRules lists the rule ids named by RULE calls, sorted and unique.
func ReferencedRules(n Node) []int {
	seen := map[int]bool{}
	Walk(n, func(n Node) bool {
		if c, ok := n.(*Call); ok && c.Func == FuncRule {
			if id, ok := RuleRef(c); ok {
				seen[id] = true
			}
			return false
		}
		return true
	})
	ids := make([]int, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// String renders n in prefix form. Compile(String(n)) yields an equal tree.
func String(n Node) string {
	var b strings.Builder
	write(&b, n)
	return b.String()
}

func write(b *strings.Builder, n Node) {
	switch t := n.(type) {
	case *And:
		writeCall(b, "AND", t.Left, t.Right)
	case *Or:
		writeCall(b, "OR", t.Left, t.Right)
	case *Not:
		writeCall(b, "NOT", t.Operand)
	case *Call:
		writeCall(b, t.Func.String(), t.Args...)
	case *Predicate:
		writeCall(b, t.Op.String(), t.Args...)
	case *Literal:
		b.WriteString(t.Text)
	default:
		fmt.Fprintf(b, "<%T>", n)
	}
}

func writeCall(b *strings.Builder, name string, args ...Node) {
	b.WriteString(name)
	b.WriteByte('(')
	for i, a := range args {
		if i > 0 {
			b.WriteString(", ")
		}
		write(b, a)
	}
	b.WriteByte(')')
}
