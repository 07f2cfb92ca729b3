// internal/rules/predicate.go
package rules

import (
	"fmt"
	"strings"
	"time"

	"github.com/unclebandit/audience-campaigns/internal/model"
)

// Predicate is a compiled rule set. It renders to a parameterized SQL
// condition and can also be evaluated directly against a customer.
type Predicate interface {
	Match(c *model.Customer) bool
	render(b *builder)
}

// SQL renders p as a WHERE fragment with Postgres placeholders starting at $1.
func SQL(p Predicate) (string, []any) {
	return SQLFrom(p, 1)
}

// SQLFrom renders p with placeholders numbered from start, for callers that
// already bound earlier arguments.
func SQLFrom(p Predicate, start int) (string, []any) {
	b := &builder{next: start}
	p.render(b)
	return b.sb.String(), b.args
}

// IsNever reports whether p can be proven to match nothing without a query.
func IsNever(p Predicate) bool {
	_, ok := p.(Never)
	return ok
}

type builder struct {
	sb   strings.Builder
	args []any
	next int
}

func (b *builder) bind(v any) string {
	b.args = append(b.args, v)
	ph := fmt.Sprintf("$%d", b.next)
	b.next++
	return ph
}

// Comparison is one rule after validation and literal coercion.
type Comparison struct {
	Field field
	Op    model.Operator
	Value any
}

var sqlOperators = map[model.Operator]string{
	model.OpGreater:      ">",
	model.OpLess:         "<",
	model.OpGreaterEqual: ">=",
	model.OpLessEqual:    "<=",
	model.OpEqual:        "=",
	model.OpNotEqual:     "<>",
}

func (c Comparison) render(b *builder) {
	ph := b.bind(c.Value)
	if c.Field.Cast != "" {
		ph += "::" + c.Field.Cast
	}
	fmt.Fprintf(&b.sb, "%s %s %s", c.Field.Column, sqlOperators[c.Op], ph)
}

// Match follows SQL semantics for missing values: a NULL attribute satisfies
// no comparison, including !=.
func (c Comparison) Match(cust *model.Customer) bool {
	actual, ok := c.Field.get(cust)
	if !ok {
		return false
	}

	var cmp int
	switch want := c.Value.(type) {
	case float64:
		got := actual.(float64)
		switch {
		case got < want:
			cmp = -1
		case got > want:
			cmp = 1
		}
	case string:
		cmp = strings.Compare(actual.(string), want)
	case time.Time:
		cmp = actual.(time.Time).Compare(want)
	default:
		return false
	}

	switch c.Op {
	case model.OpGreater:
		return cmp > 0
	case model.OpLess:
		return cmp < 0
	case model.OpGreaterEqual:
		return cmp >= 0
	case model.OpLessEqual:
		return cmp <= 0
	case model.OpEqual:
		return cmp == 0
	case model.OpNotEqual:
		return cmp != 0
	}
	return false
}

// All is a conjunction. An empty All is vacuously true.
type All []Predicate

func (a All) render(b *builder) {
	renderJoined(b, a, " AND ", "TRUE")
}

func (a All) Match(c *model.Customer) bool {
	for _, p := range a {
		if !p.Match(c) {
			return false
		}
	}
	return true
}

// Any is a disjunction. An empty Any is false.
type Any []Predicate

func (a Any) render(b *builder) {
	renderJoined(b, a, " OR ", "FALSE")
}

func (a Any) Match(c *model.Customer) bool {
	for _, p := range a {
		if p.Match(c) {
			return true
		}
	}
	return false
}

// Never matches no customer. It is what an empty rule set compiles to.
type Never struct{}

func (Never) render(b *builder) {
	b.sb.WriteString("FALSE")
}

func (Never) Match(*model.Customer) bool { return false }

func renderJoined(b *builder, ps []Predicate, sep, empty string) {
	if len(ps) == 0 {
		b.sb.WriteString(empty)
		return
	}
	b.sb.WriteByte('(')
	for i, p := range ps {
		if i > 0 {
			b.sb.WriteString(sep)
		}
		p.render(b)
	}
	b.sb.WriteByte(')')
}
