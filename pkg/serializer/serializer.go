// Package serializer renders expression trees back to source text.
//
// The output is canonical: every operator is followed by a space, operands
// that are not literals are parenthesised, numbers use the invariant "."
// separator and strings are single quoted. Parsing the output yields a tree
// that serializes to the same text again.
//
//	expr, _ := parser.Parse("a+b*2")
//	serializer.Serialize(expr.Root()) // "([a]) + (([b]) * 2)"
package serializer

import (
	"strconv"
	"strings"
	"time"

	"github.com/sandrolain/goncalc/pkg/types"
)

// Serialize returns the canonical text of node.
func Serialize(node types.Node) string {
	if node == nil {
		return ""
	}
	w := &writer{}
	_ = node.Accept(w)
	return w.sb.String()
}

var binaryTokens = [...]string{
	types.OpAnd:            "and",
	types.OpOr:             "or",
	types.OpDiv:            "/",
	types.OpEqual:          "=",
	types.OpGreater:        ">",
	types.OpGreaterOrEqual: ">=",
	types.OpLesser:         "<",
	types.OpLesserOrEqual:  "<=",
	types.OpMinus:          "-",
	types.OpModulo:         "%",
	types.OpNotEqual:       "!=",
	types.OpPlus:           "+",
	types.OpTimes:          "*",
	types.OpBitwiseAnd:     "&",
	types.OpBitwiseOr:      "|",
	types.OpBitwiseXor:     "^",
	types.OpLeftShift:      "<<",
	types.OpRightShift:     ">>",
}

var unaryTokens = [...]string{
	types.OpNot:        "!",
	types.OpNegate:     "-",
	types.OpBitwiseNot: "~",
}

// writer emits each node followed by a single space; enclosing constructs
// trim it before closing a parenthesis. The space is held back until the next
// write so trimming never touches the buffer.
type writer struct {
	sb      strings.Builder
	pending bool
}

func (w *writer) flush() {
	if w.pending {
		w.sb.WriteByte(' ')
		w.pending = false
	}
}

func (w *writer) str(s string) {
	w.flush()
	w.sb.WriteString(s)
}

func (w *writer) char(c byte) {
	w.flush()
	w.sb.WriteByte(c)
}

func (w *writer) space() {
	w.flush()
	w.pending = true
}

func (w *writer) trim() {
	w.pending = false
}

// operand writes n, parenthesised unless it is a literal.
func (w *writer) operand(n types.Node) error {
	if _, ok := n.(*types.ValueExpr); ok {
		return n.Accept(w)
	}
	w.char('(')
	if err := n.Accept(w); err != nil {
		return err
	}
	w.trim()
	w.str(")")
	w.space()
	return nil
}

func (w *writer) VisitValue(n *types.ValueExpr) error {
	switch v := n.Value.(type) {
	case bool:
		w.str(strconv.FormatBool(v))
	case int64:
		w.str(strconv.FormatInt(v, 10))
	case float64:
		w.str(formatFloat(v))
	case string:
		w.str(quote(v))
	case time.Time:
		w.char('#')
		w.str(formatDate(v))
		w.char('#')
	default:
		w.str(n.Raw)
	}
	w.space()
	return nil
}

func (w *writer) VisitIdentifier(n *types.Identifier) error {
	w.char('[')
	w.str(n.Name)
	w.str("]")
	w.space()
	return nil
}

func (w *writer) VisitUnary(n *types.UnaryExpr) error {
	if int(n.Op) < len(unaryTokens) {
		w.str(unaryTokens[n.Op])
	}
	return w.operand(n.Operand)
}

func (w *writer) VisitBinary(n *types.BinaryExpr) error {
	if err := w.operand(n.Left); err != nil {
		return err
	}
	if int(n.Op) < len(binaryTokens) {
		w.str(binaryTokens[n.Op])
		w.space()
	}
	return w.operand(n.Right)
}

func (w *writer) VisitTernary(n *types.TernaryExpr) error {
	if err := w.operand(n.Condition); err != nil {
		return err
	}
	w.str("?")
	w.space()
	if err := w.operand(n.Then); err != nil {
		return err
	}
	w.str(":")
	w.space()
	return w.operand(n.Else)
}

func (w *writer) VisitFunction(n *types.FunctionCall) error {
	w.str(n.Name)
	w.char('(')
	for i, arg := range n.Args {
		if err := arg.Accept(w); err != nil {
			return err
		}
		if i < len(n.Args)-1 {
			w.trim()
			w.str(",")
			w.space()
		}
	}
	w.trim()
	w.str(")")
	w.space()
	return nil
}

// formatFloat always marks the value as a float so it re-parses as one.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eIN") {
		s += ".0"
	}
	return s
}

func formatDate(t time.Time) string {
	if _, offset := t.Zone(); offset == 0 {
		t = t.UTC()
	}
	if t.Location() == time.UTC && t.Equal(t.Truncate(24*time.Hour)) {
		return t.Format(time.DateOnly)
	}
	return t.Format(time.RFC3339Nano)
}

var quoter = strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\n", `\n`, "\r", `\r`, "\t", `\t`)

func quote(s string) string {
	return "'" + quoter.Replace(s) + "'"
}
