package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zayitus/PLantAdvisor-V4/internal/ir"
	"github.com/Zayitus/PLantAdvisor-V4/internal/wm"
)

func newTestEvaluator(t *testing.T, facts map[string]ir.Value) *Evaluator {
	t.Helper()
	mem := wm.New()
	for p, v := range facts {
		mem.AssertInitial(p, v, "test")
	}
	return NewEvaluator(mem)
}

func cond(predicate string, op ir.Operator, comparand ir.Value) ir.Condition {
	return ir.Condition{Predicate: predicate, Op: op, Comparand: ir.LitOperand(comparand), Weight: 1}
}

func TestEvaluate_Equal(t *testing.T) {
	ev := newTestEvaluator(t, map[string]ir.Value{"ubicacion_usuario": ir.String("interior")})

	matched, entry := ev.Evaluate(cond("ubicacion_usuario", ir.OpEqual, ir.String("interior")), ir.Bindings{})
	assert.True(t, matched)
	assert.True(t, entry.Matched)
	assert.Equal(t, "interior", entry.Expected)
	assert.Equal(t, ir.String("interior"), entry.Actual)
	assert.NotEmpty(t, entry.FactID)

	matched, _ = ev.Evaluate(cond("ubicacion_usuario", ir.OpEqual, ir.String("exterior")), ir.Bindings{})
	assert.False(t, matched)
}

func TestEvaluate_AbsentPredicateIsFalse(t *testing.T) {
	ev := newTestEvaluator(t, nil)

	// Every value operator requires a fact to be present.
	for _, op := range []ir.Operator{ir.OpEqual, ir.OpNotEqual, ir.OpLess, ir.OpGreater, ir.OpContains, ir.OpMemberOf, ir.OpNotMemberOf, ir.OpMatches} {
		matched, entry := ev.Evaluate(cond("nunca_asertado", op, ir.String("x")), ir.Bindings{})
		assert.False(t, matched, "operator %s must be false on absence", op)
		assert.False(t, entry.Matched)
		assert.Empty(t, entry.Err, "absence is a plain mismatch, not an error")
	}
}

func TestEvaluate_ExistsAndNotExists(t *testing.T) {
	ev := newTestEvaluator(t, map[string]ir.Value{"luz": ir.String("alta")})

	matched, _ := ev.Evaluate(ir.Condition{Predicate: "luz", Op: ir.OpExists, Weight: 1}, ir.Bindings{})
	assert.True(t, matched)

	matched, _ = ev.Evaluate(ir.Condition{Predicate: "riego", Op: ir.OpExists, Weight: 1}, ir.Bindings{})
	assert.False(t, matched)

	matched, _ = ev.Evaluate(ir.Condition{Predicate: "riego", Op: ir.OpNotExists, Weight: 1}, ir.Bindings{})
	assert.True(t, matched)

	matched, _ = ev.Evaluate(ir.Condition{Predicate: "luz", Op: ir.OpNotExists, Weight: 1}, ir.Bindings{})
	assert.False(t, matched)
}

func TestEvaluate_OrderingOperators(t *testing.T) {
	ev := newTestEvaluator(t, map[string]ir.Value{
		"temperatura": ir.Int(18),
		"humedad":     ir.String("45"), // numeric strings coerce
	})

	testCases := []struct {
		name      string
		predicate string
		op        ir.Operator
		comparand ir.Value
		want      bool
	}{
		{"less true", "temperatura", ir.OpLess, ir.Int(20), true},
		{"less false", "temperatura", ir.OpLess, ir.Int(10), false},
		{"less-or-equal boundary", "temperatura", ir.OpLessEq, ir.Int(18), true},
		{"greater true", "temperatura", ir.OpGreater, ir.Float(17.5), true},
		{"greater-or-equal boundary", "temperatura", ir.OpGreaterEq, ir.Int(18), true},
		{"numeric string coerces", "humedad", ir.OpGreater, ir.Int(40), true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			matched, _ := ev.Evaluate(cond(tc.predicate, tc.op, tc.comparand), ir.Bindings{})
			assert.Equal(t, tc.want, matched)
		})
	}
}

func TestEvaluate_OrderingCoercionFailureIsFalseNotError(t *testing.T) {
	ev := newTestEvaluator(t, map[string]ir.Value{"color": ir.String("verde")})

	matched, entry := ev.Evaluate(cond("color", ir.OpLess, ir.Int(5)), ir.Bindings{})
	assert.False(t, matched)
	assert.NotEmpty(t, entry.Err, "coercion failure is preserved in the trace")
}

func TestEvaluate_MemberOf(t *testing.T) {
	ev := newTestEvaluator(t, map[string]ir.Value{"calefaccion_nivel": ir.String("alta")})

	matched, _ := ev.Evaluate(cond("calefaccion_nivel", ir.OpMemberOf, ir.List{ir.String("alta"), ir.String("muy_alta")}), ir.Bindings{})
	assert.True(t, matched)

	matched, _ = ev.Evaluate(cond("calefaccion_nivel", ir.OpNotMemberOf, ir.List{ir.String("baja")}), ir.Bindings{})
	assert.True(t, matched)

	// Scalar comparand falls back to substring containment.
	matched, _ = ev.Evaluate(cond("calefaccion_nivel", ir.OpMemberOf, ir.String("muy_alta")), ir.Bindings{})
	assert.True(t, matched, `"alta" is a substring of "muy_alta"`)
}

func TestEvaluate_Contains(t *testing.T) {
	ev := newTestEvaluator(t, map[string]ir.Value{
		"plantas_vistas": ir.List{ir.String("Calafate"), ir.String("Lenga")},
		"descripcion":    ir.String("arbusto nativo resistente"),
	})

	matched, _ := ev.Evaluate(cond("plantas_vistas", ir.OpContains, ir.String("Calafate")), ir.Bindings{})
	assert.True(t, matched, "list fact contains element")

	matched, _ = ev.Evaluate(cond("plantas_vistas", ir.OpContains, ir.String("Chaura")), ir.Bindings{})
	assert.False(t, matched)

	matched, _ = ev.Evaluate(cond("descripcion", ir.OpContains, ir.String("nativo")), ir.Bindings{})
	assert.True(t, matched, "string fact contains substring")
}

func TestEvaluate_PatternMatch(t *testing.T) {
	ev := newTestEvaluator(t, map[string]ir.Value{"especie": ir.String("Nothofagus pumilio")})

	matched, _ := ev.Evaluate(cond("especie", ir.OpMatches, ir.String(`^Nothofagus\s`)), ir.Bindings{})
	assert.True(t, matched)

	matched, entry := ev.Evaluate(cond("especie", ir.OpMatches, ir.String(`([`)), ir.Bindings{})
	assert.False(t, matched, "invalid pattern fails the condition")
	assert.NotEmpty(t, entry.Err)
}

func TestEvaluate_BindsVariableOnSuccess(t *testing.T) {
	ev := newTestEvaluator(t, map[string]ir.Value{"planta_ideal": ir.String("Calafate")})
	bindings := ir.Bindings{}

	matched, entry := ev.Evaluate(ir.Condition{
		Predicate: "planta_ideal",
		Op:        ir.OpExists,
		BindVar:   "planta",
		Weight:    1,
	}, bindings)
	require.True(t, matched)
	assert.Equal(t, ir.String("Calafate"), bindings["planta"])
	assert.Equal(t, "planta", entry.BoundVar)
}

func TestEvaluate_NoBindOnFailure(t *testing.T) {
	ev := newTestEvaluator(t, map[string]ir.Value{"luz": ir.String("baja")})
	bindings := ir.Bindings{}

	matched, _ := ev.Evaluate(ir.Condition{
		Predicate: "luz",
		Op:        ir.OpEqual,
		Comparand: ir.LitOperand(ir.String("alta")),
		BindVar:   "nivel",
		Weight:    1,
	}, bindings)
	assert.False(t, matched)
	assert.NotContains(t, bindings, "nivel")
}

func TestEvaluate_VariableComparand(t *testing.T) {
	ev := newTestEvaluator(t, map[string]ir.Value{
		"luz_requerida":  ir.String("alta"),
		"luz_disponible": ir.String("alta"),
	})
	bindings := ir.Bindings{}

	matched, _ := ev.Evaluate(ir.Condition{
		Predicate: "luz_requerida",
		Op:        ir.OpExists,
		BindVar:   "req",
		Weight:    1,
	}, bindings)
	require.True(t, matched)

	matched, entry := ev.Evaluate(ir.Condition{
		Predicate: "luz_disponible",
		Op:        ir.OpEqual,
		Comparand: ir.VarOperand("req"),
		Weight:    1,
	}, bindings)
	assert.True(t, matched, "comparand resolves through earlier binding")
	assert.Equal(t, "alta", entry.Expected)
}

func TestEvaluate_UnboundVariableComparandIsFalse(t *testing.T) {
	ev := newTestEvaluator(t, map[string]ir.Value{"luz": ir.String("alta")})

	matched, entry := ev.Evaluate(ir.Condition{
		Predicate: "luz",
		Op:        ir.OpEqual,
		Comparand: ir.VarOperand("nunca_ligada"),
		Weight:    1,
	}, ir.Bindings{})
	assert.False(t, matched)
	assert.Contains(t, entry.Err, "unbound variable")
}

func TestEvaluate_AlwaysProducesTraceEntry(t *testing.T) {
	ev := newTestEvaluator(t, map[string]ir.Value{"luz": ir.String("alta")})

	// Success, failure, and error all yield a populated entry.
	_, success := ev.Evaluate(cond("luz", ir.OpEqual, ir.String("alta")), ir.Bindings{})
	_, failure := ev.Evaluate(cond("luz", ir.OpEqual, ir.String("baja")), ir.Bindings{})
	_, evalErr := ev.Evaluate(cond("luz", ir.OpMatches, ir.String("([")), ir.Bindings{})

	for _, entry := range []ConditionTrace{success, failure, evalErr} {
		assert.Equal(t, "luz", entry.Predicate)
		assert.NotEmpty(t, entry.Operator)
	}
	assert.True(t, success.Matched)
	assert.False(t, failure.Matched)
	assert.NotEmpty(t, evalErr.Err)
}
