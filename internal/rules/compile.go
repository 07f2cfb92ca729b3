// internal/rules/compile.go

// Package rules compiles audience rule sets into predicates over customers.
//
// Rules are combined as two flat buckets: every AND rule is conjoined, every
// OR rule is disjoined, and the two buckets are then conjoined. Nested boolean
// expressions such as (A AND B) OR (C AND D) cannot be expressed.
package rules

import (
	"fmt"
	"strings"

	appErrors "github.com/unclebandit/audience-campaigns/internal/errors"
	"github.com/unclebandit/audience-campaigns/internal/model"
)

// Compile validates every rule and builds the combined predicate. Any invalid
// rule aborts the whole set; no partial predicate is returned.
//
// An empty rule set compiles to Never: it selects no customers.
func Compile(rs []model.Rule) (Predicate, error) {
	var and All
	var or Any

	for i, r := range rs {
		cmp, err := compileRule(r)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}

		combinator, err := normalizeCombinator(r)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		if combinator == model.CombinatorOr {
			or = append(or, cmp)
		} else {
			and = append(and, cmp)
		}
	}

	switch {
	case len(and) > 0 && len(or) > 0:
		return All{and, or}, nil
	case len(and) > 0:
		return and, nil
	case len(or) > 0:
		return or, nil
	default:
		return Never{}, nil
	}
}

func compileRule(r model.Rule) (Comparison, error) {
	op := model.Operator(strings.TrimSpace(string(r.Operator)))
	if _, ok := sqlOperators[op]; !ok {
		return Comparison{}, appErrors.NewUnsupportedOperator(string(r.Operator))
	}

	f, ok := lookupField(r.Field)
	if !ok {
		return Comparison{}, appErrors.NewInvalidRule(r.Field, "unknown field")
	}

	value, err := coerce(f, r.Value)
	if err != nil {
		return Comparison{}, err
	}

	return Comparison{Field: f, Op: op, Value: value}, nil
}

func normalizeCombinator(r model.Rule) (model.Combinator, error) {
	switch model.Combinator(strings.ToUpper(strings.TrimSpace(string(r.UseType)))) {
	case "", model.CombinatorAnd:
		return model.CombinatorAnd, nil
	case model.CombinatorOr:
		return model.CombinatorOr, nil
	default:
		return "", appErrors.NewInvalidRule(r.Field, fmt.Sprintf("unsupported combinator %q", r.UseType))
	}
}
