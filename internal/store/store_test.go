package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zayitus/PLantAdvisor-V4/internal/engine"
	"github.com/Zayitus/PLantAdvisor-V4/internal/ir"
	"github.com/Zayitus/PLantAdvisor-V4/internal/testutil"
	"github.com/Zayitus/PLantAdvisor-V4/internal/wm"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_AppliesPragmas(t *testing.T) {
	s := openTestStore(t)

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))

	var version int
	require.NoError(t, s.DB().QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")

	first, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := Open(path)
	require.NoError(t, err)
	assert.NoError(t, second.Close())
}

// sessionResult is a representative query outcome: one initial fact, one
// derived, one recommendation conclusion, two firings.
func sessionResult(token string) *engine.Result {
	return &engine.Result{
		QueryToken:        token,
		Strategy:          "priority",
		Success:           true,
		CyclesExecuted:    3,
		RulesFired:        2,
		FactsDerived:      2,
		TerminationReason: engine.ReasonAgendaEmpty,
		ElapsedMillis:     4,
		Conclusions: []engine.Conclusion{
			{Predicate: "planta_ideal", Value: ir.String("Calafate"), Confidence: 0.98, OriginRule: "R008", Recommendation: true},
		},
		Trace: engine.Trace{
			Facts: []wm.Fact{
				{ID: "F0001", Predicate: "ubicacion_usuario", Value: ir.String("exterior"), Kind: wm.KindInitial, Confidence: 1, Seq: 1},
				{ID: "F0002", Predicate: "viento_fuerte", Value: ir.Bool(true), Kind: wm.KindDerived, OriginRule: "R001", Confidence: 0.9, Seq: 2},
				{ID: "F0003", Predicate: "recommend:planta_ideal", Value: ir.String("Calafate"), Kind: wm.KindConclusion, OriginRule: "R008", Confidence: 0.98, Seq: 3},
			},
			Decisions: []engine.Decision{
				{Cycle: 1, Strategy: "priority", WinnerID: "A0001", WinnerRule: "R001", Reason: "highest explicit priority (9.5), earliest activation wins ties"},
				{Cycle: 2, Strategy: "priority", WinnerID: "A0002", WinnerRule: "R008", Reason: "highest explicit priority (8.5), earliest activation wins ties"},
			},
		},
	}
}

func TestRecordSession_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordSession(ctx, sessionResult("q-0001")))

	sess, err := s.ReadSession(ctx, "q-0001")
	require.NoError(t, err)

	assert.Equal(t, "priority", sess.Strategy)
	assert.True(t, sess.Success)
	assert.Equal(t, 3, sess.CyclesExecuted)
	assert.Equal(t, 2, sess.RulesFired)
	assert.Equal(t, engine.ReasonAgendaEmpty, sess.TerminationReason)
	assert.NotEmpty(t, sess.CreatedAt)

	require.Len(t, sess.Facts, 3)
	assert.Equal(t, ir.String("exterior"), sess.Facts[0].Value)
	assert.Equal(t, wm.KindInitial, sess.Facts[0].Kind)
	assert.Equal(t, ir.Bool(true), sess.Facts[1].Value)
	assert.Equal(t, "R001", sess.Facts[1].OriginRule)
	assert.Equal(t, wm.KindConclusion, sess.Facts[2].Kind)

	require.Len(t, sess.Firings, 2)
	assert.Equal(t, "R001", sess.Firings[0].RuleID)
	assert.Equal(t, 2, sess.Firings[1].Cycle)
	assert.Contains(t, sess.Firings[1].Reason, "priority")
}

func TestRecordSession_Idempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordSession(ctx, sessionResult("q-0001")))

	// A second record with the same token changes nothing.
	altered := sessionResult("q-0001")
	altered.RulesFired = 99
	require.NoError(t, s.RecordSession(ctx, altered))

	sess, err := s.ReadSession(ctx, "q-0001")
	require.NoError(t, err)
	assert.Equal(t, 2, sess.RulesFired)
	assert.Len(t, sess.Facts, 3)
}

func TestRecordSession_MissingToken(t *testing.T) {
	s := openTestStore(t)
	err := s.RecordSession(context.Background(), &engine.Result{})
	require.Error(t, err)
}

func TestReadSession_NotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.ReadSession(context.Background(), "no-such-token")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestListSessions(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordSession(ctx, sessionResult("q-0001")))
	require.NoError(t, s.RecordSession(ctx, sessionResult("q-0002")))
	require.NoError(t, s.RecordSession(ctx, sessionResult("q-0003")))

	all, err := s.ListSessions(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	limited, err := s.ListSessions(ctx, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Empty(t, limited[0].Facts, "summaries carry no facts")
}

func TestRecordSession_FromLiveEngine(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ks := liveRules(t)
	e := engine.New(engine.WithTokenGenerator(testutil.NewSequenceTokenGenerator()))
	result := e.RunQuery(ks, map[string]ir.Value{"ubicacion_usuario": ir.String("interior")})
	require.True(t, result.Success)

	require.NoError(t, s.RecordSession(ctx, result))

	sess, err := s.ReadSession(ctx, result.QueryToken)
	require.NoError(t, err)
	assert.Equal(t, result.RulesFired, sess.RulesFired)
	assert.Len(t, sess.Facts, len(result.Trace.Facts))
}

// liveRules is a one-rule knowledge source for end-to-end recording.
type oneRule struct {
	rule ir.Rule
}

func (o oneRule) ListRules() []ir.Rule { return []ir.Rule{o.rule} }

func (o oneRule) Rule(id string) (ir.Rule, bool) {
	if id == o.rule.ID {
		return o.rule, true
	}
	return ir.Rule{}, false
}

func liveRules(t *testing.T) oneRule {
	t.Helper()
	r := ir.Rule{
		ID:     "R001",
		Active: true,
		Conditions: []ir.Condition{
			{Predicate: "ubicacion_usuario", Op: ir.OpEqual, Comparand: ir.LitOperand(ir.String("interior"))},
		},
		Actions: []ir.Action{
			{Kind: ir.ActionConclude, Predicate: "ambiente", Value: ir.LitOperand(ir.String("templado"))},
		},
	}
	r.Normalize()
	return oneRule{rule: r}
}
