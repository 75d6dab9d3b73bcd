package nodes

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"math"
	"strconv"
)

var errDivisionByZero = errors.New("division by zero")

var exprConstants = map[string]float64{
	"pi": math.Pi,
	"e":  math.E,
}

type exprFunc struct {
	arity int // -1 for variadic with at least one argument
	fn    func(args []float64) float64
}

var exprFuncs = map[string]exprFunc{
	"sqrt":  {1, func(a []float64) float64 { return math.Sqrt(a[0]) }},
	"abs":   {1, func(a []float64) float64 { return math.Abs(a[0]) }},
	"floor": {1, func(a []float64) float64 { return math.Floor(a[0]) }},
	"ceil":  {1, func(a []float64) float64 { return math.Ceil(a[0]) }},
	"round": {1, func(a []float64) float64 { return math.Round(a[0]) }},
	"pow":   {2, func(a []float64) float64 { return math.Pow(a[0], a[1]) }},
	"min": {-1, func(a []float64) float64 {
		m := a[0]
		for _, x := range a[1:] {
			m = math.Min(m, x)
		}
		return m
	}},
	"max": {-1, func(a []float64) float64 {
		m := a[0]
		for _, x := range a[1:] {
			m = math.Max(m, x)
		}
		return m
	}},
}

// evaluate computes an arithmetic expression over float64.
//
// Supported: numeric literals, + - * / %, unary minus and plus,
// parentheses, the constants pi and e, and the functions sqrt abs floor
// ceil round pow min max.
func evaluate(expression string) (float64, error) {
	node, err := parser.ParseExpr(expression)
	if err != nil {
		return 0, fmt.Errorf("invalid expression: %w", err)
	}
	v, err := eval(node)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("result is not a finite number")
	}
	return v, nil
}

func eval(node ast.Expr) (float64, error) {
	switch n := node.(type) {
	case *ast.BasicLit:
		if n.Kind != token.INT && n.Kind != token.FLOAT {
			return 0, fmt.Errorf("unsupported literal %s", n.Value)
		}
		return strconv.ParseFloat(n.Value, 64)

	case *ast.ParenExpr:
		return eval(n.X)

	case *ast.Ident:
		if c, ok := exprConstants[n.Name]; ok {
			return c, nil
		}
		return 0, fmt.Errorf("unknown identifier %q", n.Name)

	case *ast.UnaryExpr:
		x, err := eval(n.X)
		if err != nil {
			return 0, err
		}
		switch n.Op {
		case token.SUB:
			return -x, nil
		case token.ADD:
			return x, nil
		}
		return 0, fmt.Errorf("unsupported operator %s", n.Op)

	case *ast.BinaryExpr:
		x, err := eval(n.X)
		if err != nil {
			return 0, err
		}
		y, err := eval(n.Y)
		if err != nil {
			return 0, err
		}
		switch n.Op {
		case token.ADD:
			return x + y, nil
		case token.SUB:
			return x - y, nil
		case token.MUL:
			return x * y, nil
		case token.QUO:
			if y == 0 {
				return 0, errDivisionByZero
			}
			return x / y, nil
		case token.REM:
			if y == 0 {
				return 0, errDivisionByZero
			}
			return math.Mod(x, y), nil
		}
		return 0, fmt.Errorf("unsupported operator %s", n.Op)

	case *ast.CallExpr:
		ident, ok := n.Fun.(*ast.Ident)
		if !ok {
			return 0, fmt.Errorf("unsupported call")
		}
		f, ok := exprFuncs[ident.Name]
		if !ok {
			return 0, fmt.Errorf("unknown function %q", ident.Name)
		}
		if (f.arity >= 0 && len(n.Args) != f.arity) || (f.arity < 0 && len(n.Args) == 0) {
			return 0, fmt.Errorf("wrong number of arguments to %s", ident.Name)
		}
		args := make([]float64, len(n.Args))
		for i, a := range n.Args {
			v, err := eval(a)
			if err != nil {
				return 0, err
			}
			args[i] = v
		}
		return f.fn(args), nil
	}
	return 0, fmt.Errorf("unsupported expression")
}
