package expr

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmnserve/dmnserve/internal/domain"
)

// dashEntry is the FEEL convention for "this column doesn't constrain the
// rule" (an input entry of "-" or an empty string always matches).
const dashEntry = "-"

// TableDefinition is the JSON shape stored in domain.StoredTable.Definition.
// It is the serialized, source-text form of a decision table; Loader
// compiles it into the in-memory domain.DecisionTable the core evaluates.
type TableDefinition struct {
	// Variables lists every top-level variable name the table's
	// expressions may reference, aside from the reserved input binding.
	// Declaring these up front lets the CEL environment type-check each
	// cell instead of treating every identifier as unknown.
	Variables  []string           `json:"variables"`
	Inputs     []InputDefinition  `json:"inputs"`
	Outputs    []OutputDefinition `json:"outputs"`
	Rules      []RuleDefinition   `json:"rules"`
	HitPolicy  domain.HitPolicy   `json:"hitPolicy"`
	Aggregator domain.Aggregator  `json:"aggregator,omitempty"`
}

// InputDefinition is one input column's source expression.
type InputDefinition struct {
	Expression string `json:"expression"`
}

// OutputDefinition is one output column: its name (mandatory once a table
// has more than one output), optional default-output source, and optional
// priority list used by PRIORITY/OUTPUT_ORDER.
type OutputDefinition struct {
	Name         string   `json:"name"`
	Default      string   `json:"default,omitempty"`
	PriorityList []string `json:"priorityList,omitempty"`
}

// RuleDefinition is one decision-table row: one input-entry source string
// per input column (in the same order), one output-entry source string
// per output column.
type RuleDefinition struct {
	InputEntries  []string `json:"inputEntries"`
	OutputEntries []string `json:"outputEntries"`
}

// Loader compiles TableDefinitions into domain.DecisionTables using a
// Compiler.
type Loader struct {
	compiler *Compiler
}

// NewLoader builds a Loader over compiler.
func NewLoader(compiler *Compiler) *Loader {
	return &Loader{compiler: compiler}
}

// LoadStoredTable decodes t.Definition and compiles it for tableID's
// tenant, producing the in-memory table decision.Evaluate consumes.
func (l *Loader) LoadStoredTable(ctx context.Context, t *domain.StoredTable) (*domain.DecisionTable, error) {
	var def TableDefinition
	if err := json.Unmarshal(t.Definition, &def); err != nil {
		return nil, fmt.Errorf("expr: decode table definition for %s: %w", t.ID, err)
	}
	return l.Load(ctx, t.TenantID, t.ID, &def)
}

// Load compiles def into a domain.DecisionTable, tagging every cached
// compiled expression with tableID so re-loading the same table reuses
// its compiled cells.
func (l *Loader) Load(ctx context.Context, tenantID, tableID string, def *TableDefinition) (*domain.DecisionTable, error) {
	table := &domain.DecisionTable{
		HitPolicy:  def.HitPolicy,
		Aggregator: def.Aggregator,
		Inputs:     make([]domain.Input, len(def.Inputs)),
		Outputs:    make([]domain.Output, len(def.Outputs)),
		Rules:      make([]domain.Rule, len(def.Rules)),
	}

	for i, in := range def.Inputs {
		handle, err := l.compiler.Compile(ctx, tenantID, cacheKeyFor(tableID, "input", i), in.Expression, def.Variables)
		if err != nil {
			return nil, err
		}
		table.Inputs[i] = domain.Input{Expression: handle}
	}

	for i, out := range def.Outputs {
		output := domain.Output{Name: out.Name, PriorityList: out.PriorityList}
		if out.Default != "" {
			handle, err := l.compiler.Compile(ctx, tenantID, cacheKeyFor(tableID, "default", i), out.Default, def.Variables)
			if err != nil {
				return nil, err
			}
			output.Default = handle
		}
		table.Outputs[i] = output
	}

	for ruleIdx, rule := range def.Rules {
		compiledRule := domain.Rule{
			InputEntries:  make([]domain.InputEntry, len(rule.InputEntries)),
			OutputEntries: make([]domain.OutputEntry, len(rule.OutputEntries)),
		}

		for col, entry := range rule.InputEntries {
			if entry == "" || entry == dashEntry {
				compiledRule.InputEntries[col] = domain.InputEntry{Expression: alwaysTrue}
				continue
			}
			key := cacheKeyFor(tableID, fmt.Sprintf("rule%d.input", ruleIdx), col)
			handle, err := l.compiler.Compile(ctx, tenantID, key, entry, def.Variables)
			if err != nil {
				return nil, err
			}
			compiledRule.InputEntries[col] = domain.InputEntry{Expression: handle}
		}

		for col, entry := range rule.OutputEntries {
			key := cacheKeyFor(tableID, fmt.Sprintf("rule%d.output", ruleIdx), col)
			handle, err := l.compiler.Compile(ctx, tenantID, key, entry, def.Variables)
			if err != nil {
				return nil, err
			}
			compiledRule.OutputEntries[col] = domain.OutputEntry{Expression: handle}
		}

		table.Rules[ruleIdx] = compiledRule
	}

	return table, nil
}

func cacheKeyFor(tableID, section string, index int) string {
	return fmt.Sprintf("%s:%s:%d", tableID, section, index)
}

// alwaysTrue is the shared handle for dash ("-") input entries, which
// always match regardless of the input value.
var alwaysTrue = domain.ExpressionHandle(alwaysTrueExpression{})

type alwaysTrueExpression struct{}
