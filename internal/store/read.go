package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Zayitus/PLantAdvisor-V4/internal/wm"
)

// ErrSessionNotFound is returned when no session exists for a token.
var ErrSessionNotFound = errors.New("session not found")

// Session is a recorded query as read back from the store.
type Session struct {
	Token             string
	Strategy          string
	Success           bool
	CyclesExecuted    int
	RulesFired        int
	FactsDerived      int
	TerminationReason string
	ElapsedMillis     int64
	CreatedAt         string

	Facts   []wm.Fact
	Firings []Firing
}

// Firing is one conflict-resolution outcome: which activation fired in
// which cycle, and why it won.
type Firing struct {
	Cycle        int
	ActivationID string
	RuleID       string
	Strategy     string
	Reason       string
}

// ReadSession loads a recorded session with its facts and firings.
// Returns ErrSessionNotFound when the token is unknown.
func (s *Store) ReadSession(ctx context.Context, token string) (*Session, error) {
	sess := &Session{Token: token}
	err := s.db.QueryRowContext(ctx, `
		SELECT strategy, success, cycles_executed, rules_fired, facts_derived,
		       termination_reason, elapsed_ms, created_at
		FROM sessions WHERE token = ?
	`, token).Scan(
		&sess.Strategy,
		&sess.Success,
		&sess.CyclesExecuted,
		&sess.RulesFired,
		&sess.FactsDerived,
		&sess.TerminationReason,
		&sess.ElapsedMillis,
		&sess.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, token)
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}

	if sess.Facts, err = s.readFacts(ctx, token); err != nil {
		return nil, err
	}
	if sess.Firings, err = s.readFirings(ctx, token); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *Store) readFacts(ctx context.Context, token string) ([]wm.Fact, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT fact_id, predicate, value, kind, origin_rule, confidence, justification, seq
		FROM session_facts WHERE session_token = ?
		ORDER BY seq
	`, token)
	if err != nil {
		return nil, fmt.Errorf("read session facts: %w", err)
	}
	defer rows.Close()

	var facts []wm.Fact
	for rows.Next() {
		var (
			f        wm.Fact
			value    string
			kindName string
		)
		if err := rows.Scan(&f.ID, &f.Predicate, &value, &kindName, &f.OriginRule, &f.Confidence, &f.Justification, &f.Seq); err != nil {
			return nil, fmt.Errorf("read session facts: scan: %w", err)
		}
		if f.Value, err = unmarshalValue(value); err != nil {
			return nil, fmt.Errorf("read session facts: fact %s: %w", f.ID, err)
		}
		if f.Kind, err = wm.ParseKind(kindName); err != nil {
			return nil, fmt.Errorf("read session facts: fact %s: %w", f.ID, err)
		}
		facts = append(facts, f)
	}
	return facts, rows.Err()
}

func (s *Store) readFirings(ctx context.Context, token string) ([]Firing, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cycle, activation_id, rule_id, strategy, reason
		FROM session_firings WHERE session_token = ?
		ORDER BY cycle
	`, token)
	if err != nil {
		return nil, fmt.Errorf("read session firings: %w", err)
	}
	defer rows.Close()

	var firings []Firing
	for rows.Next() {
		var f Firing
		if err := rows.Scan(&f.Cycle, &f.ActivationID, &f.RuleID, &f.Strategy, &f.Reason); err != nil {
			return nil, fmt.Errorf("read session firings: scan: %w", err)
		}
		firings = append(firings, f)
	}
	return firings, rows.Err()
}

// ListSessions returns session summaries, newest first, without facts or
// firings. A limit of 0 means no limit.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]Session, error) {
	query := `
		SELECT token, strategy, success, cycles_executed, rules_fired, facts_derived,
		       termination_reason, elapsed_ms, created_at
		FROM sessions ORDER BY created_at DESC, token DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var sess Session
		if err := rows.Scan(
			&sess.Token,
			&sess.Strategy,
			&sess.Success,
			&sess.CyclesExecuted,
			&sess.RulesFired,
			&sess.FactsDerived,
			&sess.TerminationReason,
			&sess.ElapsedMillis,
			&sess.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("list sessions: scan: %w", err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}
