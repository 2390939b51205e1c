package postgres

// Schema creates the rule tables. The single-row version table doubles as the writer lock.
const Schema = `
CREATE TABLE IF NOT EXISTS pricing_rules (
    id           TEXT PRIMARY KEY,
    seq          BIGSERIAL NOT NULL UNIQUE,
    name         TEXT NOT NULL,
    description  TEXT NOT NULL DEFAULT '',
    rule_type    TEXT NOT NULL,
    priority     INTEGER NOT NULL CHECK (priority BETWEEN 0 AND 1000),
    multiplier   NUMERIC CHECK (multiplier BETWEEN 0.1 AND 10),
    fixed_amount NUMERIC CHECK (fixed_amount BETWEEN -1000 AND 1000),
    is_active    BOOLEAN NOT NULL DEFAULT TRUE,
    start_date   TIMESTAMPTZ,
    end_date     TIMESTAMPTZ,
    conditions   JSONB NOT NULL DEFAULT '{}'::jsonb,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_pricing_rules_active ON pricing_rules (is_active, priority DESC);

CREATE TABLE IF NOT EXISTS pricing_rule_set_version (
    id      SMALLINT PRIMARY KEY CHECK (id = 1),
    version BIGINT NOT NULL
);

INSERT INTO pricing_rule_set_version (id, version) VALUES (1, 0) ON CONFLICT (id) DO NOTHING;
`
