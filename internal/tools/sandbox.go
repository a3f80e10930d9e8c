package tools

import (
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
)

// toolRunCode evaluates a short arithmetic expression over numeric literals
// and the four basic operators, the sandboxed "run_code" tool the stats
// agent uses for quick derived ratios it can't get from a dedicated tool.
// It never executes arbitrary Go: only a parsed expression AST of
// literals, parentheses, and +-*/ is walked.
func (r *Registry) toolRunCode(ctx context.Context, args map[string]any) (any, error) {
	code, err := stringArg(args, "code")
	if err != nil {
		return nil, err
	}
	expr, err := parser.ParseExpr(code)
	if err != nil {
		return nil, fmt.Errorf("tools: run_code: invalid expression: %w", err)
	}
	return evalExpr(expr)
}

func evalExpr(e ast.Expr) (float64, error) {
	switch n := e.(type) {
	case *ast.BasicLit:
		if n.Kind != token.INT && n.Kind != token.FLOAT {
			return 0, fmt.Errorf("tools: run_code: unsupported literal %q", n.Value)
		}
		var v float64
		if _, err := fmt.Sscanf(n.Value, "%g", &v); err != nil {
			return 0, fmt.Errorf("tools: run_code: malformed number %q", n.Value)
		}
		return v, nil
	case *ast.ParenExpr:
		return evalExpr(n.X)
	case *ast.UnaryExpr:
		v, err := evalExpr(n.X)
		if err != nil {
			return 0, err
		}
		switch n.Op {
		case token.SUB:
			return -v, nil
		case token.ADD:
			return v, nil
		default:
			return 0, fmt.Errorf("tools: run_code: unsupported unary operator %s", n.Op)
		}
	case *ast.BinaryExpr:
		x, err := evalExpr(n.X)
		if err != nil {
			return 0, err
		}
		y, err := evalExpr(n.Y)
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
				return 0, fmt.Errorf("tools: run_code: division by zero")
			}
			return x / y, nil
		default:
			return 0, fmt.Errorf("tools: run_code: unsupported operator %s", n.Op)
		}
	default:
		return 0, fmt.Errorf("tools: run_code: unsupported expression of type %T", e)
	}
}
