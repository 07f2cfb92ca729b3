// internal/rules/fields.go
package rules

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	appErrors "github.com/unclebandit/audience-campaigns/internal/errors"
	"github.com/unclebandit/audience-campaigns/internal/model"
)

type fieldKind int

const (
	kindText fieldKind = iota
	kindNumber
	kindTime
)

// field describes a rule-addressable customer attribute. Column is the only
// thing that ever reaches SQL text; values are always bound. Cast, when set,
// types the placeholder so Postgres does not infer it from the column.
type field struct {
	Name   string
	Column string
	Kind   fieldKind
	Cast   string
	get    func(c *model.Customer) (any, bool)
}

var fields = map[string]field{
	"name": {Name: "name", Column: "name", Kind: kindText, get: func(c *model.Customer) (any, bool) {
		return c.Name, true
	}},
	"email": {Name: "email", Column: "email", Kind: kindText, get: func(c *model.Customer) (any, bool) {
		return c.Email, true
	}},
	"phone": {Name: "phone", Column: "phone", Kind: kindText, get: func(c *model.Customer) (any, bool) {
		return c.Phone, true
	}},
	"totalSpend": {Name: "totalSpend", Column: "total_spend", Kind: kindNumber, get: func(c *model.Customer) (any, bool) {
		return c.TotalSpend, true
	}},
	"visits": {Name: "visits", Column: "visits", Kind: kindNumber, Cast: "numeric", get: func(c *model.Customer) (any, bool) {
		return float64(c.Visits), true
	}},
	"lastVisit": {Name: "lastVisit", Column: "last_visit", Kind: kindTime, get: func(c *model.Customer) (any, bool) {
		if c.LastVisit == nil {
			return nil, false
		}
		return *c.LastVisit, true
	}},
}

var fieldAliases = map[string]string{
	"orderCount": "visits",
}

func lookupField(name string) (field, bool) {
	if alias, ok := fieldAliases[name]; ok {
		name = alias
	}
	f, ok := fields[name]
	return f, ok
}

// Fields lists the attribute names rules may reference.
func Fields() []string {
	names := make([]string, 0, len(fields)+len(fieldAliases))
	for name := range fields {
		names = append(names, name)
	}
	for alias := range fieldAliases {
		names = append(names, alias)
	}
	return names
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// coerce converts a submitted literal into the Go type used both as the SQL
// argument and for in-memory comparison.
func coerce(f field, raw any) (any, error) {
	switch f.Kind {
	case kindTime:
		t, err := parseDate(raw)
		if err != nil {
			return nil, appErrors.NewInvalidLiteral(f.Name, raw, err)
		}
		return t, nil
	case kindNumber:
		n, err := parseNumber(raw)
		if err != nil {
			return nil, appErrors.NewInvalidLiteral(f.Name, raw, err)
		}
		return n, nil
	default:
		s, err := parseText(raw)
		if err != nil {
			return nil, appErrors.NewInvalidLiteral(f.Name, raw, err)
		}
		return s, nil
	}
}

func parseDate(raw any) (time.Time, error) {
	switch v := raw.(type) {
	case time.Time:
		return v.UTC(), nil
	case string:
		s := strings.TrimSpace(v)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognized date %q", v)
	}

	// Bare numbers are epoch milliseconds.
	ms, err := parseNumber(raw)
	if err != nil {
		return time.Time{}, errors.New("expected a date string or epoch milliseconds")
	}
	if ms != math.Trunc(ms) {
		return time.Time{}, errors.New("epoch milliseconds must be an integer")
	}
	return time.UnixMilli(int64(ms)).UTC(), nil
}

func parseNumber(raw any) (float64, error) {
	var n float64
	switch v := raw.(type) {
	case float64:
		n = v
	case float32:
		n = float64(v)
	case int:
		n = float64(v)
	case int32:
		n = float64(v)
	case int64:
		n = float64(v)
	case uint:
		n = float64(v)
	case uint64:
		n = float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, err
		}
		n = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", v)
		}
		n = f
	default:
		return 0, fmt.Errorf("expected a number, got %T", raw)
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, errors.New("number must be finite")
	}
	return n, nil
}

func parseText(raw any) (string, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case json.Number:
		return v.String(), nil
	default:
		return "", fmt.Errorf("expected a string, got %T", raw)
	}
}
