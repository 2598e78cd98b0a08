package preprocess

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	flerrors "github.com/matzehuels/flowlayout/pkg/errors"
)

// Rule is a compiled exclusion rule. A node is excluded when the rule's
// expression evaluates to true for it.
//
// Expressions see three variables:
//
//	id    string          the node ID
//	type  string          the resolved node type
//	data  map[string]any  the host data map
//
// Examples:
//
//	type == "audience-split"
//	data.disabled == true
//	id startsWith "draft_"
type Rule struct {
	Source  string
	program *vm.Program
}

// ruleEnv declares the variable shapes to the compiler.
var ruleEnv = map[string]any{
	"id":   "",
	"type": "",
	"data": map[string]any{},
}

// CompileRule compiles a single exclusion expression.
func CompileRule(source string) (*Rule, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, flerrors.Validation("exclusion rule is empty")
	}
	prg, err := expr.Compile(source, expr.Env(ruleEnv), expr.AsBool())
	if err != nil {
		return nil, flerrors.Wrap(flerrors.ErrCodeValidation, err, "exclusion rule %q does not compile", source)
	}
	return &Rule{Source: source, program: prg}, nil
}

// CompileRules compiles every expression, failing on the first invalid one.
func CompileRules(sources []string) ([]*Rule, error) {
	rules := make([]*Rule, 0, len(sources))
	for _, src := range sources {
		r, err := CompileRule(src)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// Match evaluates the rule for one node.
func (r *Rule) Match(id, typ string, data map[string]any) (bool, error) {
	if data == nil {
		data = map[string]any{}
	}
	out, err := expr.Run(r.program, map[string]any{
		"id":   id,
		"type": typ,
		"data": data,
	})
	if err != nil {
		return false, fmt.Errorf("rule %q: %w", r.Source, err)
	}
	matched, _ := out.(bool)
	return matched, nil
}
