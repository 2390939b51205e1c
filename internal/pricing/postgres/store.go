package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/fleetroad/pricingservice/internal/metrics"
	"github.com/fleetroad/pricingservice/internal/pricing"
)

const (
	selectVersionSQL = `SELECT version FROM pricing_rule_set_version WHERE id = 1`

	bumpVersionSQL = `UPDATE pricing_rule_set_version SET version = version + 1 WHERE id = 1 RETURNING version`

	selectRulesSQL = `
SELECT id, seq, name, description, rule_type, priority,
       multiplier::text, fixed_amount::text, is_active,
       start_date, end_date, conditions, created_at, updated_at
FROM pricing_rules
ORDER BY seq`

	upsertRuleSQL = `
INSERT INTO pricing_rules (id, name, description, rule_type, priority, multiplier, fixed_amount,
                           is_active, start_date, end_date, conditions)
VALUES ($1, $2, $3, $4, $5, $6::text::numeric, $7::text::numeric, $8, $9, $10, $11)
ON CONFLICT (id) DO UPDATE SET
    name = EXCLUDED.name,
    description = EXCLUDED.description,
    rule_type = EXCLUDED.rule_type,
    priority = EXCLUDED.priority,
    multiplier = EXCLUDED.multiplier,
    fixed_amount = EXCLUDED.fixed_amount,
    is_active = EXCLUDED.is_active,
    start_date = EXCLUDED.start_date,
    end_date = EXCLUDED.end_date,
    conditions = EXCLUDED.conditions,
    updated_at = NOW()
RETURNING seq, created_at, updated_at`

	deleteRuleSQL = `DELETE FROM pricing_rules WHERE id = $1`
)

// RuleStore is a PostgreSQL implementation of pricing.RuleStore.
// Writers serialize on the version row; snapshots read under REPEATABLE READ so they
// never observe a half-applied write.
type RuleStore struct {
	db *pgxpool.Pool
}

// NewRuleStore creates a store on an existing pool
func NewRuleStore(pool *pgxpool.Pool) (*RuleStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("database pool cannot be nil")
	}
	return &RuleStore{db: pool}, nil
}

// Migrate creates the tables if they do not exist
func (s *RuleStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply pricing schema: %w", err)
	}
	return nil
}

// Ping checks database connectivity
func (s *RuleStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Snapshot reads the full rule set and its version in one read-only transaction.
func (s *RuleStore) Snapshot(ctx context.Context) (snap *pricing.Snapshot, err error) {
	start := time.Now()
	defer func() { metrics.RecordDatabaseQuery("snapshot", time.Since(start)) }()

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("failed to begin snapshot transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var version int64
	if err := tx.QueryRow(ctx, selectVersionSQL).Scan(&version); err != nil {
		return nil, fmt.Errorf("failed to read rule set version: %w", err)
	}

	rows, err := tx.Query(ctx, selectRulesSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query pricing rules: %w", err)
	}
	defer rows.Close()

	rules := make([]pricing.PricingRule, 0)
	for rows.Next() {
		var row ruleRow
		if err := rows.Scan(
			&row.ID, &row.Seq, &row.Name, &row.Description, &row.RuleType, &row.Priority,
			&row.Multiplier, &row.FixedAmount, &row.IsActive,
			&row.StartDate, &row.EndDate, &row.Conditions, &row.CreatedAt, &row.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan pricing rule: %w", err)
		}
		rule, err := row.toRule()
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pricing rules: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit snapshot transaction: %w", err)
	}

	return &pricing.Snapshot{Version: version, TakenAt: time.Now(), Rules: rules}, nil
}

// Upsert validates and writes rule. New rules get a UUID when no ID is given.
func (s *RuleStore) Upsert(ctx context.Context, rule pricing.PricingRule) (pricing.PricingRule, error) {
	start := time.Now()
	defer func() { metrics.RecordDatabaseQuery("upsert_rule", time.Since(start)) }()

	rule = rule.Clone()
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	if err := pricing.ValidateRule(rule); err != nil {
		return pricing.PricingRule{}, err
	}

	args, err := upsertArgs(rule)
	if err != nil {
		return pricing.PricingRule{}, err
	}

	err = s.inWriteTx(ctx, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, upsertRuleSQL, args...).Scan(&rule.Sequence, &rule.CreatedAt, &rule.UpdatedAt)
	})
	if err != nil {
		return pricing.PricingRule{}, fmt.Errorf("failed to upsert pricing rule %s: %w", rule.ID, err)
	}
	return rule, nil
}

// Delete removes a rule by ID.
func (s *RuleStore) Delete(ctx context.Context, id string) error {
	start := time.Now()
	defer func() { metrics.RecordDatabaseQuery("delete_rule", time.Since(start)) }()

	err := s.inWriteTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, deleteRuleSQL, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return pricing.NewNotFoundError(id)
		}
		return nil
	})
	if err != nil {
		if pricing.IsNotFound(err) {
			return err
		}
		return fmt.Errorf("failed to delete pricing rule %s: %w", id, err)
	}
	return nil
}

// inWriteTx runs fn after taking the version row lock, committing only if fn succeeds.
func (s *RuleStore) inWriteTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var version int64
	if err := tx.QueryRow(ctx, bumpVersionSQL).Scan(&version); err != nil {
		return fmt.Errorf("failed to bump rule set version: %w", err)
	}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ruleRow mirrors one pricing_rules row. Numerics travel as text to stay exact.
type ruleRow struct {
	ID          string
	Seq         int64
	Name        string
	Description string
	RuleType    string
	Priority    int32
	Multiplier  *string
	FixedAmount *string
	IsActive    bool
	StartDate   *time.Time
	EndDate     *time.Time
	Conditions  []byte
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (r ruleRow) toRule() (pricing.PricingRule, error) {
	rule := pricing.PricingRule{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		RuleType:    pricing.RuleType(r.RuleType),
		Priority:    int(r.Priority),
		IsActive:    r.IsActive,
		StartDate:   r.StartDate,
		EndDate:     r.EndDate,
		Sequence:    r.Seq,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}

	var err error
	if rule.Multiplier, err = parseNumeric(r.Multiplier); err != nil {
		return pricing.PricingRule{}, fmt.Errorf("rule %s multiplier: %w", r.ID, err)
	}
	if rule.FixedAmount, err = parseNumeric(r.FixedAmount); err != nil {
		return pricing.PricingRule{}, fmt.Errorf("rule %s fixed_amount: %w", r.ID, err)
	}
	if len(r.Conditions) > 0 {
		if err := json.Unmarshal(r.Conditions, &rule.Conditions); err != nil {
			return pricing.PricingRule{}, fmt.Errorf("rule %s conditions: %w", r.ID, err)
		}
	}
	return rule, nil
}

func upsertArgs(rule pricing.PricingRule) ([]interface{}, error) {
	conditions, err := json.Marshal(rule.Conditions)
	if err != nil {
		return nil, fmt.Errorf("failed to encode conditions: %w", err)
	}
	return []interface{}{
		rule.ID,
		rule.Name,
		rule.Description,
		string(rule.RuleType),
		int32(rule.Priority),
		formatNumeric(rule.Multiplier),
		formatNumeric(rule.FixedAmount),
		rule.IsActive,
		rule.StartDate,
		rule.EndDate,
		conditions,
	}, nil
}

func parseNumeric(s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func formatNumeric(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

var _ pricing.RuleStore = (*RuleStore)(nil)
