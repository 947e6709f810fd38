// rexscan/pkg/compiler/ast.go

package compiler

// Node is a compiled condition. The set of implementations is closed.
type Node interface {
	node()
}

type And struct {
	Left, Right Node
}

type Or struct {
	Left, Right Node
}

type Not struct {
	Operand Node
}

// Call is a selector: a rule reference or a record lookup.
type Call struct {
	Func FuncKind
	Args []Node
}

// Predicate is a value operator over a field: EXISTS, IS_EMPTY or RANDOM.
type Predicate struct {
	Op   OpKind
	Args []Node
}

// Literal is a NUMBER or IDENTIFIER argument.
type Literal struct {
	Kind TokenKind
	Text string
	Num  int
}

func (*And) node()       {}
func (*Or) node()        {}
func (*Not) node()       {}
func (*Call) node()      {}
func (*Predicate) node() {}
func (*Literal) node()   {}

// funcArity is the fixed argument count of each selector.
var funcArity = map[FuncKind]int{
	FuncRule:    1,
	FuncByID:    1,
	FuncByTable: 1,
	FuncByCol:   2,
}

// RuleRef returns the rule id named by a RULE call. RULE accepts either a bare
// number or BY_ID(number).
func RuleRef(c *Call) (int, bool) {
	if c.Func != FuncRule || len(c.Args) != 1 {
		return 0, false
	}
	switch a := c.Args[0].(type) {
	case *Literal:
		if a.Kind == NUMBER {
			return a.Num, true
		}
	case *Call:
		if a.Func == FuncByID && len(a.Args) == 1 {
			if lit, ok := a.Args[0].(*Literal); ok && lit.Kind == NUMBER {
				return lit.Num, true
			}
		}
	}
	return 0, false
}

func isBoolean(n Node) bool {
	_, lit := n.(*Literal)
	return !lit
}
