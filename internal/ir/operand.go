package ir

import (
	"fmt"
	"strings"
)

// VarMarker prefixes a variable reference in rule sources, e.g. "$planta".
// A literal leading dollar sign is written "$$".
const VarMarker = "$"

// Operand is a condition comparand or an action value: either a literal
// Value or a reference to a variable bound earlier in the same rule.
// The marker syntax is parsed exactly once, at rule construction -
// evaluation never inspects string prefixes.
type Operand struct {
	Var string // variable name, when this operand is a reference
	Lit Value  // literal value, when Var is empty
}

// LitOperand wraps a literal value as an operand.
func LitOperand(v Value) Operand {
	return Operand{Lit: v}
}

// VarOperand references a bound variable by name.
func VarOperand(name string) Operand {
	return Operand{Var: name}
}

// IsVar reports whether the operand is a variable reference.
func (o Operand) IsVar() bool {
	return o.Var != ""
}

// IsZero reports whether the operand was never set. Exists/NotExists
// conditions and default-increment actions carry a zero operand.
func (o Operand) IsZero() bool {
	return o.Var == "" && o.Lit == nil
}

// Resolve returns the operand's value under the given bindings.
// Referencing an unbound variable is an evaluation failure, not a panic.
func (o Operand) Resolve(bindings Bindings) (Value, error) {
	if !o.IsVar() {
		return o.Lit, nil
	}
	v, ok := bindings[o.Var]
	if !ok {
		return nil, fmt.Errorf("unbound variable %q", o.Var)
	}
	return v, nil
}

// String renders the operand in rule-source form.
func (o Operand) String() string {
	if o.IsVar() {
		return VarMarker + o.Var
	}
	if o.Lit == nil {
		return "<unset>"
	}
	return Display(o.Lit)
}

// OperandFromAny builds an operand from a decoded rule-source value,
// interpreting the `$name` marker on strings. "$$x" escapes to the
// literal string "$x".
func OperandFromAny(v any) (Operand, error) {
	if s, ok := v.(string); ok {
		if strings.HasPrefix(s, VarMarker+VarMarker) {
			return LitOperand(String(s[1:])), nil
		}
		if strings.HasPrefix(s, VarMarker) && len(s) > 1 {
			return VarOperand(s[1:]), nil
		}
	}
	val, err := FromAny(v)
	if err != nil {
		return Operand{}, err
	}
	return LitOperand(val), nil
}
