// Package cf turns pair-count tables into correlation functions:
// estimator expressions evaluated bin-by-bin over normalized tables,
// Legendre multipole projection of (s, mu) results, and the projected
// correlation function of (s_perp, pi) results.
package cf

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strconv"
	"strings"

	"github.com/cosmoslab/twopt/params"
)

var ErrBadExpr = errors.New("invalid estimator expression")

// Expr is a parsed estimator formula. The grammar is Go's own
// expression grammar restricted to +, -, *, /, parentheses, numeric
// literals, and pair identifiers; go/parser supplies the parsing so no
// grammar lives here. The `@@` analytic-RR spelling is rewritten to the
// reserved identifier before parsing.
type Expr struct {
	Src  string
	root ast.Expr
	ops  []string
}

func Parse(src string) (*Expr, error) {
	rewritten := strings.ReplaceAll(src, "@@", params.AnalyticRR)
	root, err := parser.ParseExpr(rewritten)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrBadExpr, src, err)
	}
	e := &Expr{Src: src, root: root}
	seen := map[string]bool{}
	if err := e.check(root, seen); err != nil {
		return nil, err
	}
	return e, nil
}

// Operands lists the distinct pair identifiers the expression
// references, in first-appearance order. The analytic-RR identifier is
// included when referenced.
func (e *Expr) Operands() []string { return e.ops }

func (e *Expr) check(n ast.Expr, seen map[string]bool) error {
	switch v := n.(type) {
	case *ast.BasicLit:
		if v.Kind != token.INT && v.Kind != token.FLOAT {
			return fmt.Errorf("%w: %q: literal %s", ErrBadExpr, e.Src, v.Value)
		}
		return nil
	case *ast.Ident:
		if v.Name != params.AnalyticRR {
			if len(v.Name) != 2 || v.Name[0] < 'A' || v.Name[0] > 'Z' || v.Name[1] < 'A' || v.Name[1] > 'Z' {
				return fmt.Errorf("%w: %q: operand %q is not a pair identifier", ErrBadExpr, e.Src, v.Name)
			}
		}
		if !seen[v.Name] {
			seen[v.Name] = true
			e.ops = append(e.ops, v.Name)
		}
		return nil
	case *ast.ParenExpr:
		return e.check(v.X, seen)
	case *ast.UnaryExpr:
		if v.Op != token.SUB && v.Op != token.ADD {
			return fmt.Errorf("%w: %q: operator %s", ErrBadExpr, e.Src, v.Op)
		}
		return e.check(v.X, seen)
	case *ast.BinaryExpr:
		switch v.Op {
		case token.ADD, token.SUB, token.MUL, token.QUO:
		default:
			return fmt.Errorf("%w: %q: operator %s", ErrBadExpr, e.Src, v.Op)
		}
		if err := e.check(v.X, seen); err != nil {
			return err
		}
		return e.check(v.Y, seen)
	default:
		return fmt.Errorf("%w: %q: unsupported syntax %T", ErrBadExpr, e.Src, n)
	}
}

// value is an evaluation intermediate: a scalar literal or a per-bin
// vector.
type value struct {
	scalar float64
	vector []float64
}

func (v value) isVector() bool { return v.vector != nil }

// eval walks the AST once per expression, not per bin; arithmetic on
// vector values is elementwise. env holds resolved per-bin operand
// vectors; divisions by a zero bin produce NaN in that bin and bump
// *nanBins.
func (e *Expr) eval(n ast.Expr, env map[string][]float64, nanBins *int) (value, error) {
	switch v := n.(type) {
	case *ast.BasicLit:
		f, err := strconv.ParseFloat(v.Value, 64)
		if err != nil {
			return value{}, fmt.Errorf("%w: %q: literal %s", ErrBadExpr, e.Src, v.Value)
		}
		return value{scalar: f}, nil
	case *ast.Ident:
		vec, ok := env[v.Name]
		if !ok {
			return value{}, fmt.Errorf("%w: %q: unresolved operand %q", ErrBadExpr, e.Src, v.Name)
		}
		return value{vector: vec}, nil
	case *ast.ParenExpr:
		return e.eval(v.X, env, nanBins)
	case *ast.UnaryExpr:
		x, err := e.eval(v.X, env, nanBins)
		if err != nil {
			return value{}, err
		}
		if v.Op == token.ADD {
			return x, nil
		}
		return apply(x, value{scalar: -1}, token.MUL, nanBins), nil
	case *ast.BinaryExpr:
		x, err := e.eval(v.X, env, nanBins)
		if err != nil {
			return value{}, err
		}
		y, err := e.eval(v.Y, env, nanBins)
		if err != nil {
			return value{}, err
		}
		return apply(x, y, v.Op, nanBins), nil
	}
	return value{}, fmt.Errorf("%w: %q: unsupported syntax %T", ErrBadExpr, e.Src, n)
}

func apply(x, y value, op token.Token, nanBins *int) value {
	if !x.isVector() && !y.isVector() {
		s, _ := scalarOp(x.scalar, y.scalar, op)
		return value{scalar: s}
	}
	n := len(x.vector)
	if !x.isVector() {
		n = len(y.vector)
	}
	out := make([]float64, n)
	for i := range out {
		a, b := x.scalar, y.scalar
		if x.isVector() {
			a = x.vector[i]
		}
		if y.isVector() {
			b = y.vector[i]
		}
		s, nan := scalarOp(a, b, op)
		if nan {
			*nanBins++
		}
		out[i] = s
	}
	return value{vector: out}
}

// scalarOp applies one arithmetic op; a zero divisor yields NaN and
// reports it, rather than IEEE infinity, so downstream consumers see an
// explicit marker.
func scalarOp(a, b float64, op token.Token) (v float64, nan bool) {
	switch op {
	case token.ADD:
		return a + b, false
	case token.SUB:
		return a - b, false
	case token.MUL:
		return a * b, false
	case token.QUO:
		if b == 0 {
			return nan64, true
		}
		return a / b, false
	}
	return nan64, false
}
