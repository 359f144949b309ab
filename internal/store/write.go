package store

import (
	"context"
	"fmt"

	"github.com/Zayitus/PLantAdvisor-V4/internal/engine"
)

// RecordSession persists one completed query: the session row, the final
// working memory, and the firing order, in a single transaction.
//
// Uses ON CONFLICT DO NOTHING on the session token for idempotency -
// recording the same result twice leaves the first record untouched.
func (s *Store) RecordSession(ctx context.Context, result *engine.Result) error {
	if result.QueryToken == "" {
		return fmt.Errorf("record session: result has no query token")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record session: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	res, err := tx.ExecContext(ctx, `
		INSERT INTO sessions
		(token, strategy, success, cycles_executed, rules_fired, facts_derived, termination_reason, elapsed_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(token) DO NOTHING
	`,
		result.QueryToken,
		result.Strategy,
		result.Success,
		result.CyclesExecuted,
		result.RulesFired,
		result.FactsDerived,
		result.TerminationReason,
		result.ElapsedMillis,
	)
	if err != nil {
		return fmt.Errorf("record session: insert session: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("record session: rows affected: %w", err)
	}
	if rows == 0 {
		// Session already recorded; the facts and firings came with it.
		return tx.Commit()
	}

	for _, f := range result.Trace.Facts {
		value, err := marshalValue(f.Value)
		if err != nil {
			return fmt.Errorf("record session: fact %s: %w", f.ID, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO session_facts
			(session_token, fact_id, predicate, value, kind, origin_rule, confidence, justification, seq)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(session_token, fact_id) DO NOTHING
		`,
			result.QueryToken,
			f.ID,
			f.Predicate,
			value,
			f.Kind.String(),
			f.OriginRule,
			f.Confidence,
			f.Justification,
			f.Seq,
		)
		if err != nil {
			return fmt.Errorf("record session: insert fact %s: %w", f.ID, err)
		}
	}

	for _, d := range result.Trace.Decisions {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO session_firings
			(session_token, cycle, activation_id, rule_id, strategy, reason)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(session_token, cycle, activation_id) DO NOTHING
		`,
			result.QueryToken,
			d.Cycle,
			d.WinnerID,
			d.WinnerRule,
			d.Strategy,
			d.Reason,
		)
		if err != nil {
			return fmt.Errorf("record session: insert firing cycle %d: %w", d.Cycle, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record session: commit: %w", err)
	}
	return nil
}
