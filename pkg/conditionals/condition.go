package conditionals

import (
	"encoding/json"

	"github.com/jwebster45206/story-graph/pkg/vars"
)

// Operator is a comparison between a stored variable and a literal.
type Operator string

const (
	OpEqual        Operator = "=="
	OpNotEqual     Operator = "!="
	OpGreater      Operator = ">"
	OpLess         Operator = "<"
	OpGreaterEqual Operator = ">="
	OpLessEqual    Operator = "<="
)

// Operators lists every supported operator in display order.
var Operators = []Operator{OpEqual, OpNotEqual, OpGreater, OpLess, OpGreaterEqual, OpLessEqual}

func (op Operator) Valid() bool {
	switch op {
	case OpEqual, OpNotEqual, OpGreater, OpLess, OpGreaterEqual, OpLessEqual:
		return true
	}
	return false
}

// Relational reports whether op orders numbers rather than testing equality.
func (op Operator) Relational() bool {
	switch op {
	case OpGreater, OpLess, OpGreaterEqual, OpLessEqual:
		return true
	}
	return false
}

// Condition compares one story variable against a literal value.
type Condition struct {
	VariableName string     `json:"variableName"`
	Operator     Operator   `json:"operator"`
	Value        vars.Value `json:"value"`
}

// IsZero reports whether c is the empty condition, which never holds. Text
// variants use it as an always-empty fallback.
func (c Condition) IsZero() bool {
	return c.VariableName == "" && c.Operator == "" && !c.Value.IsValid()
}

// MarshalJSON leaves out a missing comparison value so the condition still
// decodes back to itself.
func (c Condition) MarshalJSON() ([]byte, error) {
	type wire struct {
		VariableName string      `json:"variableName"`
		Operator     Operator    `json:"operator"`
		Value        *vars.Value `json:"value,omitempty"`
	}
	w := wire{VariableName: c.VariableName, Operator: c.Operator}
	if c.Value.IsValid() {
		v := c.Value
		w.Value = &v
	}
	return json.Marshal(w)
}

// Evaluate reports whether cond holds for the given store.
//
// An undefined variable makes every condition false, including "!=".
// Equality is strict on kind, and relational operators are false unless
// both sides are numbers. Evaluate never fails.
func Evaluate(cond Condition, store vars.Reader) bool {
	if store == nil {
		return false
	}
	actual, ok := store.Get(cond.VariableName)
	if !ok {
		return false
	}

	switch cond.Operator {
	case OpEqual:
		return vars.Equal(actual, cond.Value)
	case OpNotEqual:
		return !vars.Equal(actual, cond.Value)
	}

	if !cond.Operator.Relational() || !actual.IsNumber() || !cond.Value.IsNumber() {
		return false
	}

	a, b := actual.AsNumber(), cond.Value.AsNumber()
	switch cond.Operator {
	case OpGreater:
		return a > b
	case OpLess:
		return a < b
	case OpGreaterEqual:
		return a >= b
	case OpLessEqual:
		return a <= b
	}
	return false
}

// FirstMatch returns the index of the first condition that holds, or -1.
// Order is the tie-break.
func FirstMatch(conds []Condition, store vars.Reader) int {
	for i, c := range conds {
		if Evaluate(c, store) {
			return i
		}
	}
	return -1
}
