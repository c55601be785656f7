package store

// schema is applied by Migrate. Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id            TEXT PRIMARY KEY,
		run_type      TEXT NOT NULL,
		status        TEXT NOT NULL,
		profile       TEXT,
		region        TEXT NOT NULL DEFAULT '',
		tag_key       TEXT,
		tag_value     TEXT,
		cluster_id    TEXT,
		error_code    TEXT,
		error_message TEXT,
		started_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		ended_at      TIMESTAMPTZ,
		metadata      JSONB
	)`,
	`CREATE INDEX IF NOT EXISTS runs_started_at_idx ON runs (started_at DESC)`,

	`CREATE TABLE IF NOT EXISTS clusters (
		id                  TEXT PRIMARY KEY,
		name                TEXT NOT NULL,
		subscription_id     TEXT NOT NULL,
		resource_group      TEXT NOT NULL,
		region              TEXT NOT NULL,
		capacity_gb_per_day INTEGER NOT NULL,
		provisioning_state  TEXT NOT NULL,
		adopted             BOOLEAN NOT NULL DEFAULT FALSE,
		tags                JSONB,
		observed_at         TIMESTAMPTZ NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS link_outcomes (
		id              TEXT PRIMARY KEY,
		run_id          TEXT NOT NULL REFERENCES runs (id) ON DELETE CASCADE,
		position        INTEGER NOT NULL,
		workspace_id    TEXT NOT NULL,
		workspace_name  TEXT NOT NULL,
		subscription_id TEXT NOT NULL,
		success         BOOLEAN NOT NULL,
		already_linked  BOOLEAN NOT NULL DEFAULT FALSE,
		error           TEXT,
		attempted_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS link_outcomes_run_id_idx ON link_outcomes (run_id)`,

	`CREATE TABLE IF NOT EXISTS usage_reports (
		run_id                   TEXT PRIMARY KEY REFERENCES runs (id) ON DELETE CASCADE,
		window_start             TIMESTAMPTZ NOT NULL,
		window_end               TIMESTAMPTZ NOT NULL,
		days                     INTEGER NOT NULL,
		workspaces_analyzed      INTEGER NOT NULL,
		query_failures           INTEGER NOT NULL,
		analytics_gb             DOUBLE PRECISION NOT NULL,
		basic_gb                 DOUBLE PRECISION NOT NULL,
		auxiliary_gb             DOUBLE PRECISION NOT NULL,
		total_gb                 DOUBLE PRECISION NOT NULL DEFAULT 0,
		avg_analytics_gb_per_day DOUBLE PRECISION NOT NULL,
		recommendation           JSONB NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS workspace_usage (
		id              TEXT PRIMARY KEY,
		run_id          TEXT NOT NULL REFERENCES runs (id) ON DELETE CASCADE,
		position        INTEGER NOT NULL,
		workspace_id    TEXT NOT NULL,
		workspace_name  TEXT NOT NULL,
		subscription_id TEXT NOT NULL,
		region          TEXT NOT NULL,
		analytics_gb    DOUBLE PRECISION NOT NULL,
		basic_gb        DOUBLE PRECISION NOT NULL,
		auxiliary_gb    DOUBLE PRECISION NOT NULL,
		total_gb        DOUBLE PRECISION NOT NULL DEFAULT 0,
		query_failed    BOOLEAN NOT NULL DEFAULT FALSE,
		used_fallback   BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE INDEX IF NOT EXISTS workspace_usage_run_id_idx ON workspace_usage (run_id)`,
	`ALTER TABLE usage_reports ADD COLUMN IF NOT EXISTS total_gb DOUBLE PRECISION NOT NULL DEFAULT 0`,
	`ALTER TABLE workspace_usage ADD COLUMN IF NOT EXISTS total_gb DOUBLE PRECISION NOT NULL DEFAULT 0`,

	`CREATE TABLE IF NOT EXISTS audit_events (
		id                TEXT PRIMARY KEY,
		actor             TEXT NOT NULL,
		action            TEXT NOT NULL,
		target_cluster_id TEXT,
		target_run_id     TEXT,
		status            TEXT NOT NULL,
		metadata          JSONB,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS audit_events_target_run_id_idx ON audit_events (target_run_id)`,
}
