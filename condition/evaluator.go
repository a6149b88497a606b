package condition

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/oliveagle/jsonpath"
)

const OP_EQUALS string = "equals"
const OP_NOT_EQUALS string = "not_equals"
const OP_CONTAINS string = "contains"
const OP_GREATER_THAN string = "greater_than"
const OP_LESS_THAN string = "less_than"
const OP_IS_EMPTY string = "is_empty"
const OP_IS_NOT_EMPTY string = "is_not_empty"

var VALID_OPERATORS = []string{
	OP_EQUALS,
	OP_NOT_EQUALS,
	OP_CONTAINS,
	OP_GREATER_THAN,
	OP_LESS_THAN,
	OP_IS_EMPTY,
	OP_IS_NOT_EMPTY,
}

func ValidateOperator(op string) error {
	for _, valid := range VALID_OPERATORS {
		if strings.EqualFold(op, valid) {
			return nil
		}
	}
	return fmt.Errorf("invalid condition operator %s", op)
}

// Evaluate resolves field as a dotted path in the fact snapshot and applies
// the operator against value. It is total: a missing path is an absent
// value, and any unsupported field, operator, or type combination resolves
// to false rather than an error. Branch decisions must never jam an
// enrollment on bad data.
func Evaluate(field string, operator string, value string, fact map[string]any) bool {
	resolved, found := lookup(field, fact)
	switch strings.ToLower(operator) {
	case OP_EQUALS:
		return found && equals(resolved, value)
	case OP_NOT_EQUALS:
		return !found || !equals(resolved, value)
	case OP_CONTAINS:
		return found && contains(resolved, value)
	case OP_GREATER_THAN:
		return found && compareNumeric(resolved, value, func(a, b float64) bool { return a > b })
	case OP_LESS_THAN:
		return found && compareNumeric(resolved, value, func(a, b float64) bool { return a < b })
	case OP_IS_EMPTY:
		return isEmpty(resolved, found)
	case OP_IS_NOT_EMPTY:
		return !isEmpty(resolved, found)
	}
	return false
}

func lookup(field string, fact map[string]any) (any, bool) {
	if len(field) == 0 || fact == nil {
		return nil, false
	}
	path := field
	if !strings.HasPrefix(path, "$") {
		path = "$." + path
	}
	value, err := jsonpath.JsonPathLookup(fact, path)
	if err != nil {
		return nil, false
	}
	return value, value != nil
}

func equals(resolved any, value string) bool {
	left, leftNumeric := toNumber(resolved)
	right, rightNumeric := toNumber(value)
	if leftNumeric && rightNumeric {
		return left == right
	}
	return stringify(resolved) == value
}

func contains(resolved any, value string) bool {
	haystack, ok := resolved.(string)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(value))
}

func compareNumeric(resolved any, value string, cmp func(a, b float64) bool) bool {
	left, leftNumeric := toNumber(resolved)
	right, rightNumeric := toNumber(value)
	if !leftNumeric || !rightNumeric {
		return false
	}
	return cmp(left, right)
}

func isEmpty(resolved any, found bool) bool {
	if !found {
		return true
	}
	switch v := resolved.(type) {
	case string:
		return len(v) == 0
	case []any:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	}
	return false
}

func toNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	}
	return 0, false
}

func stringify(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", value)
}
