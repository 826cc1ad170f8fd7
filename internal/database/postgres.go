package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

func NewPostgresPool(databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS procurement_records (
	id SERIAL PRIMARY KEY,
	year INTEGER,
	quarter TEXT,
	month TEXT,
	period TEXT,
	date TEXT,
	pr_number TEXT UNIQUE,
	description TEXT,
	department TEXT,
	contact_person TEXT,
	assign_to TEXT,
	budget REAL,
	budget_q1 REAL,
	budget_q2 REAL,
	budget_q3 REAL,
	budget_q4 REAL,
	source_method TEXT,
	status TEXT,
	supplier_details TEXT,
	supplier_rating TEXT,
	local_content_percentage REAL,
	pr_approval_scope_input TEXT,
	approving_authority TEXT,
	planned TEXT,
	target_date TEXT,
	actual_project_start TEXT,
	sla INTEGER,
	note TEXT,
	review_approval_scope_eval REAL,
	floating REAL,
	tender_submit_by_vendor REAL,
	evaluation REAL,
	award_approval REAL,
	contract_and_po REAL,
	pr_approval_scope_input_pd REAL,
	review_approval_scope_eval_pd REAL,
	floating_pd REAL,
	tender_submit_by_vendor_pd REAL,
	evaluation_pd REAL,
	award_approval_pd REAL,
	contract_and_po_pd REAL,
	total_days_pd REAL,
	review_approval_scope_eval_ad REAL,
	floating_ad REAL,
	tender_submit_by_vendor_ad REAL,
	evaluation_ad REAL,
	award_approval_ad REAL,
	contract_and_po_ad REAL,
	total_days_ad REAL,
	review_approval_scope_eval_pd_sla REAL,
	floating_pd_sla REAL,
	tender_submit_by_vendor_pd_sla REAL,
	evaluation_pd_sla REAL,
	award_approval_pd_sla REAL,
	contract_and_po_pd_sla REAL,
	review_approval_scope_eval_ad_sla REAL,
	floating_ad_sla REAL,
	tender_submit_by_vendor_ad_sla REAL,
	evaluation_ad_sla REAL,
	award_approval_ad_sla REAL,
	contract_and_po_ad_sla REAL,
	review_approval_scope_eval_diff_sla REAL,
	floating_diff_sla REAL,
	tender_submit_by_vendor_diff_sla REAL,
	evaluation_diff_sla REAL,
	award_approval_diff_sla REAL,
	contract_and_po_diff_sla REAL,
	project_status INTEGER,
	risk TEXT,
	duration INTEGER,
	last_status_date TEXT,
	status_duration INTEGER,
	status_sla INTEGER,
	status_co TEXT,
	escalate_48h TEXT,
	ceo_escalation TEXT
)
`

// EnsureSchema creates the procurement table when it does not exist yet.
// The table is the only persistent entity in the system.
func EnsureSchema(pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		return fmt.Errorf("failed to create procurement_records table: %w", err)
	}
	return nil
}
