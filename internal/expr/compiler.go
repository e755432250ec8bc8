// Package expr provides the CEL-based ExpressionEvaluator adapter for
// dmnserve's decision-table core. The core (internal/decision) never
// imports this package; it only consumes the domain.ExpressionHandle and
// domain.ExpressionEvaluator values this package produces, per the
// external-evaluator contract in internal/domain/expression.go.
package expr

import (
	"context"
	"fmt"
	"sync"

	celpb "cel.dev/expr"
	"github.com/google/cel-go/cel"
	"google.golang.org/protobuf/proto"

	"github.com/dmnserve/dmnserve/internal/domain"
)

// inputVariableName is the CEL identifier input-entry expressions use to
// refer to the bound input value. DMN's reserved "?" binding
// (domain.InputVariableName) is not a legal CEL identifier, so the
// evaluator renames it in the activation it hands to the CEL program; see
// Evaluator.Evaluate.
const inputVariableName = "it"

// compiledExpression is the concrete type behind every
// domain.ExpressionHandle this package hands back.
type compiledExpression struct {
	program cel.Program
}

// Compiler compiles DMN input/output entry source text into
// domain.ExpressionHandle values, backed by a CEL environment extended
// per table with that table's declared variable names. Compiled programs
// are memoized in-process, and optionally checkpointed to a
// domain.Cache so a second process (or a restarted one) can skip
// re-type-checking a hot table's expressions.
type Compiler struct {
	baseEnv *cel.Env
	cache   domain.Cache

	mu    sync.RWMutex
	local map[string]*compiledExpression
}

// NewCompiler builds a Compiler. cache may be nil, in which case
// compilation results are memoized in-process only.
func NewCompiler(cache domain.Cache) (*Compiler, error) {
	env, err := cel.NewEnv(cel.Variable(inputVariableName, cel.DynType))
	if err != nil {
		return nil, fmt.Errorf("expr: create base CEL environment: %w", err)
	}
	return &Compiler{
		baseEnv: env,
		cache:   cache,
		local:   make(map[string]*compiledExpression),
	}, nil
}

func (c *Compiler) envFor(variables []string) (*cel.Env, error) {
	opts := make([]cel.EnvOption, 0, len(variables))
	for _, name := range variables {
		if name == inputVariableName {
			continue
		}
		opts = append(opts, cel.Variable(name, cel.DynType))
	}
	env, err := c.baseEnv.Extend(opts...)
	if err != nil {
		return nil, fmt.Errorf("expr: extend CEL environment: %w", err)
	}
	return env, nil
}

// Compile compiles source as a CEL expression against an environment
// declaring variables (plus the reserved input-variable binding), and
// returns the resulting domain.ExpressionHandle.
//
// cacheKey names the cell source belongs to within tenantID, typically
// "<tableID>:<section>:<index>". When cacheKey is non-empty, Compile
// first checks the in-process memo, then the backing cache (if any),
// before actually compiling; a compiled result is then memoized
// in-process, and checkpointed to the backing cache when one is
// configured. Both lookups are keyed by tenantID, cacheKey and the source
// text, so a cell whose text changes is compiled afresh. With an empty
// cacheKey nothing is memoized.
func (c *Compiler) Compile(ctx context.Context, tenantID, cacheKey, source string, variables []string) (domain.ExpressionHandle, error) {
	var memoKey string
	if cacheKey != "" {
		cacheKey += ":" + source
		memoKey = tenantID + "/" + cacheKey
		if ce, ok := c.lookupLocal(memoKey); ok {
			return ce, nil
		}
	}

	env, err := c.envFor(variables)
	if err != nil {
		return nil, err
	}

	if cacheKey != "" {
		if ce, ok := c.lookupRemote(ctx, tenantID, cacheKey, env); ok {
			c.storeLocal(memoKey, ce)
			return ce, nil
		}
	}

	ast, issues := env.Compile(source)
	if issues != nil && issues.Err() != nil {
		return nil, domain.NewFailure(domain.FailureExpression, "compile %q: %v", source, issues.Err())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("expr: build program for %q: %w", source, err)
	}

	ce := &compiledExpression{program: program}

	if cacheKey != "" {
		c.storeLocal(memoKey, ce)
		c.storeRemote(ctx, tenantID, cacheKey, ast)
	}

	return ce, nil
}

func (c *Compiler) lookupLocal(cacheKey string) (*compiledExpression, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ce, ok := c.local[cacheKey]
	return ce, ok
}

func (c *Compiler) storeLocal(cacheKey string, ce *compiledExpression) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.local[cacheKey] = ce
}

// lookupRemote tries to rebuild a program from a checked-expression
// checkpoint stored in the backing cache, avoiding a full re-type-check.
func (c *Compiler) lookupRemote(ctx context.Context, tenantID, cacheKey string, env *cel.Env) (*compiledExpression, bool) {
	if c.cache == nil {
		return nil, false
	}
	blob, err := c.cache.Get(ctx, tenantID, cacheKey)
	if err != nil || blob == nil {
		return nil, false
	}
	checked := &celpb.CheckedExpr{}
	if err := proto.Unmarshal(blob, checked); err != nil {
		return nil, false
	}
	ast := cel.CheckedExprToAst(checked)
	program, err := env.Program(ast)
	if err != nil {
		return nil, false
	}
	return &compiledExpression{program: program}, true
}

func (c *Compiler) storeRemote(ctx context.Context, tenantID, cacheKey string, ast *cel.Ast) {
	if c.cache == nil {
		return
	}
	checked, err := cel.AstToCheckedExpr(ast)
	if err != nil {
		return
	}
	blob, err := proto.Marshal(checked)
	if err != nil {
		return
	}
	_ = c.cache.Set(ctx, tenantID, cacheKey, blob, 0)
}
