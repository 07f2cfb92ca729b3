// internal/model/rule.go
package model

// Operator is a comparison symbol as submitted by API callers.
type Operator string

const (
	OpGreater      Operator = ">"
	OpLess         Operator = "<"
	OpGreaterEqual Operator = ">="
	OpLessEqual    Operator = "<="
	OpEqual        Operator = "="
	OpNotEqual     Operator = "!="
)

// Combinator decides which bucket a rule joins inside its rule set.
type Combinator string

const (
	CombinatorAnd Combinator = "AND"
	CombinatorOr  Combinator = "OR"
)

// Rule is a single comparison predicate over one customer attribute.
type Rule struct {
	Field    string     `json:"field" yaml:"field"`
	Operator Operator   `json:"operator" yaml:"operator"`
	Value    any        `json:"value" yaml:"value"`
	UseType  Combinator `json:"useType" yaml:"useType"`
}
