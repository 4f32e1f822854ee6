package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Turnstile store (PostgreSQL).
var Migrations = migrate.NewGroup("turnstile")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_turnstile_collections",
			Version: "20240101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS turnstile_collections (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL DEFAULT '',
    owner      TEXT NOT NULL DEFAULT '',
    strategy   TEXT NOT NULL DEFAULT '',
    metadata   JSONB NOT NULL DEFAULT '{}',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_turnstile_collections_owner ON turnstile_collections (owner);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS turnstile_collections`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_turnstile_policies",
			Version: "20240101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS turnstile_policies (
    collection_id           TEXT PRIMARY KEY,
    event_at                TIMESTAMPTZ NOT NULL,
    base_fee_bps            BIGINT NOT NULL DEFAULT 0,
    t_long_ns               BIGINT NOT NULL DEFAULT 0,
    t_mid_ns                BIGINT NOT NULL DEFAULT 0,
    cap_long_bps            BIGINT NOT NULL DEFAULT 0,
    cap_mid_bps             BIGINT NOT NULL DEFAULT 0,
    fee_long_bps            BIGINT NOT NULL DEFAULT 0,
    fee_mid_bps             BIGINT NOT NULL DEFAULT 0,
    markup_step_bps         BIGINT NOT NULL DEFAULT 0,
    markup_fee_per_step_bps BIGINT NOT NULL DEFAULT 0,
    max_fee_bps             BIGINT NOT NULL DEFAULT 0,
    created_at              TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at              TIMESTAMPTZ NOT NULL DEFAULT now()
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS turnstile_policies`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_turnstile_face_values",
			Version: "20240101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS turnstile_face_values (
    face_key      TEXT PRIMARY KEY,
    collection_id TEXT NOT NULL DEFAULT '',
    unit_type_id  BIGINT NOT NULL DEFAULT 0,
    price         BIGINT NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_turnstile_face_values_col ON turnstile_face_values (collection_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS turnstile_face_values`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_turnstile_holdings",
			Version: "20240101000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS turnstile_holdings (
    holding_key            TEXT PRIMARY KEY,
    collection_id          TEXT NOT NULL DEFAULT '',
    holder                 TEXT NOT NULL DEFAULT '',
    unit_type_id           BIGINT NOT NULL DEFAULT 0,
    last_transfer_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
    first_transfer_pending BOOLEAN NOT NULL DEFAULT FALSE,
    checked_in_at          TIMESTAMPTZ,
    created_at             TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at             TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_turnstile_holdings_col_holder ON turnstile_holdings (collection_id, holder);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS turnstile_holdings`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_turnstile_fee_records",
			Version: "20240101000005",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS turnstile_fee_records (
    id            TEXT PRIMARY KEY,
    collection_id TEXT NOT NULL DEFAULT '',
    from_holder   TEXT NOT NULL DEFAULT '',
    to_holder     TEXT NOT NULL DEFAULT '',
    unit_type_id  BIGINT NOT NULL DEFAULT 0,
    amount        BIGINT NOT NULL DEFAULT 0,
    price         BIGINT NOT NULL DEFAULT 0,
    fee_bps       BIGINT NOT NULL DEFAULT 0,
    fee_amount    BIGINT NOT NULL DEFAULT 0,
    occurred_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_turnstile_fees_col ON turnstile_fee_records (collection_id, occurred_at);
CREATE INDEX IF NOT EXISTS idx_turnstile_fees_col_unit ON turnstile_fee_records (collection_id, unit_type_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS turnstile_fee_records`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_turnstile_checkin_records",
			Version: "20240101000006",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS turnstile_checkin_records (
    id            TEXT PRIMARY KEY,
    collection_id TEXT NOT NULL DEFAULT '',
    holder        TEXT NOT NULL DEFAULT '',
    unit_type_id  BIGINT NOT NULL DEFAULT 0,
    occurred_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_turnstile_checkins_col ON turnstile_checkin_records (collection_id, occurred_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS turnstile_checkin_records`)
				return err
			},
		},
	)
}
