// Package eval compiles and runs binding expressions.
//
// Every identifier and member access in an expression is routed through an
// $unwrap function supplied per evaluation, so reactive values are read (and
// tracked) without the template author calling them explicitly.
package eval

import (
	"fmt"

	"github.com/alphadose/haxmap"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/vm"
)

// UnwrapFunc is the environment name of the unwrap hook.
const UnwrapFunc = "$unwrap"

// Evaluator caches compiled programs by source text. It is safe for
// concurrent use; templates compiled once are rendered from many goroutines.
type Evaluator struct {
	programs *haxmap.Map[string, *vm.Program]
}

// New returns an Evaluator with an empty program cache.
func New() *Evaluator {
	return &Evaluator{programs: haxmap.New[string, *vm.Program]()}
}

// Compile returns the cached program for src, compiling it on first use.
func (e *Evaluator) Compile(src string) (*vm.Program, error) {
	if p, ok := e.programs.Get(src); ok {
		return p, nil
	}
	p, err := expr.Compile(src, expr.AllowUndefinedVariables(), expr.Patch(unwrapPatcher{}))
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", src, err)
	}
	e.programs.Set(src, p)
	return p, nil
}

// Eval runs src against env. unwrap is installed as the $unwrap hook; nil
// means identity. env is modified.
func (e *Evaluator) Eval(src string, env map[string]any, unwrap func(any) any) (any, error) {
	p, err := e.Compile(src)
	if err != nil {
		return nil, err
	}
	if unwrap == nil {
		unwrap = identity
	}
	env[UnwrapFunc] = unwrap

	out, err := expr.Run(p, env)
	if err != nil {
		return nil, fmt.Errorf("evaluate %q: %w", src, err)
	}
	return out, nil
}

// Cached returns the number of compiled programs held.
func (e *Evaluator) Cached() int {
	return int(e.programs.Len())
}

func identity(v any) any { return v }

// unwrapPatcher wraps identifiers and member accesses in $unwrap(...). Call
// targets are restored so functions and methods stay callable.
type unwrapPatcher struct{}

func (unwrapPatcher) Visit(node *ast.Node) {
	switch n := (*node).(type) {
	case *ast.IdentifierNode:
		if n.Value == UnwrapFunc {
			return
		}
		ast.Patch(node, wrap(n))
	case *ast.MemberNode:
		ast.Patch(node, wrap(n))
	case *ast.CallNode:
		if inner, ok := unwrapped(n.Callee); ok {
			n.Callee = inner
		}
	}
}

func wrap(n ast.Node) ast.Node {
	return &ast.CallNode{
		Callee:    &ast.IdentifierNode{Value: UnwrapFunc},
		Arguments: []ast.Node{n},
	}
}

func unwrapped(n ast.Node) (ast.Node, bool) {
	call, ok := n.(*ast.CallNode)
	if !ok || len(call.Arguments) != 1 {
		return nil, false
	}
	id, ok := call.Callee.(*ast.IdentifierNode)
	if !ok || id.Value != UnwrapFunc {
		return nil, false
	}
	return call.Arguments[0], true
}
