package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"procura-backend/internal/models"
	"procura-backend/internal/observability"
)

// ExecutionError is the typed failure returned when the store rejects a
// query. The repair loop keys off this type; the raw message is never shown
// to clients directly.
type ExecutionError struct {
	Message string
}

func (e *ExecutionError) Error() string {
	return e.Message
}

// ColumnKind classifies a record column for ingestion coercion.
type ColumnKind int

const (
	TextColumn ColumnKind = iota
	RealColumn
	IntColumn
)

// RecordColumn describes one procurement_records column in workbook order.
// Default applies only to the identity block during ingestion; later
// columns default to NULL.
type RecordColumn struct {
	Name    string
	Kind    ColumnKind
	Default any
}

// RecordColumns lists every insertable column (id excluded) in the order
// the workbook lays them out.
var RecordColumns = []RecordColumn{
	{"year", IntColumn, 2026},
	{"quarter", TextColumn, "Q1"},
	{"month", TextColumn, "January"},
	{"period", TextColumn, "2026-01"},
	{"date", TextColumn, "2026-01-01"},
	{"pr_number", TextColumn, nil},
	{"description", TextColumn, "No description"},
	{"department", TextColumn, "Unknown"},
	{"contact_person", TextColumn, "Unknown"},
	{"assign_to", TextColumn, "Unassigned"},
	{"budget", RealColumn, 0.0},
	{"budget_q1", RealColumn, 0.0},
	{"budget_q2", RealColumn, 0.0},
	{"budget_q3", RealColumn, 0.0},
	{"budget_q4", RealColumn, 0.0},
	{"source_method", TextColumn, "Unknown"},
	{"status", TextColumn, "Pending"},
	{"supplier_details", TextColumn, nil},
	{"supplier_rating", TextColumn, nil},
	{"local_content_percentage", RealColumn, nil},
	{"pr_approval_scope_input", TextColumn, nil},
	{"approving_authority", TextColumn, nil},
	{"planned", TextColumn, nil},
	{"target_date", TextColumn, nil},
	{"actual_project_start", TextColumn, nil},
	{"sla", IntColumn, nil},
	{"note", TextColumn, nil},
	{"review_approval_scope_eval", RealColumn, nil},
	{"floating", RealColumn, nil},
	{"tender_submit_by_vendor", RealColumn, nil},
	{"evaluation", RealColumn, nil},
	{"award_approval", RealColumn, nil},
	{"contract_and_po", RealColumn, nil},
	{"pr_approval_scope_input_pd", RealColumn, nil},
	{"review_approval_scope_eval_pd", RealColumn, nil},
	{"floating_pd", RealColumn, nil},
	{"tender_submit_by_vendor_pd", RealColumn, nil},
	{"evaluation_pd", RealColumn, nil},
	{"award_approval_pd", RealColumn, nil},
	{"contract_and_po_pd", RealColumn, nil},
	{"total_days_pd", RealColumn, nil},
	{"review_approval_scope_eval_ad", RealColumn, nil},
	{"floating_ad", RealColumn, nil},
	{"tender_submit_by_vendor_ad", RealColumn, nil},
	{"evaluation_ad", RealColumn, nil},
	{"award_approval_ad", RealColumn, nil},
	{"contract_and_po_ad", RealColumn, nil},
	{"total_days_ad", RealColumn, nil},
	{"review_approval_scope_eval_pd_sla", RealColumn, nil},
	{"floating_pd_sla", RealColumn, nil},
	{"tender_submit_by_vendor_pd_sla", RealColumn, nil},
	{"evaluation_pd_sla", RealColumn, nil},
	{"award_approval_pd_sla", RealColumn, nil},
	{"contract_and_po_pd_sla", RealColumn, nil},
	{"review_approval_scope_eval_ad_sla", RealColumn, nil},
	{"floating_ad_sla", RealColumn, nil},
	{"tender_submit_by_vendor_ad_sla", RealColumn, nil},
	{"evaluation_ad_sla", RealColumn, nil},
	{"award_approval_ad_sla", RealColumn, nil},
	{"contract_and_po_ad_sla", RealColumn, nil},
	{"review_approval_scope_eval_diff_sla", RealColumn, nil},
	{"floating_diff_sla", RealColumn, nil},
	{"tender_submit_by_vendor_diff_sla", RealColumn, nil},
	{"evaluation_diff_sla", RealColumn, nil},
	{"award_approval_diff_sla", RealColumn, nil},
	{"contract_and_po_diff_sla", RealColumn, nil},
	{"project_status", IntColumn, nil},
	{"risk", TextColumn, nil},
	{"duration", IntColumn, nil},
	{"last_status_date", TextColumn, nil},
	{"status_duration", IntColumn, nil},
	{"status_sla", IntColumn, nil},
	{"status_co", TextColumn, nil},
	{"escalate_48h", TextColumn, nil},
	{"ceo_escalation", TextColumn, nil},
}

type RecordRepo struct {
	pool *pgxpool.Pool
}

func NewRecordRepo(pool *pgxpool.Pool) *RecordRepo {
	return &RecordRepo{pool: pool}
}

// ExecuteQuery runs a validated read query and returns the rows as ordered
// column-name maps, preserving the store's return order. Callers must have
// passed the query through the safety validator first.
func (r *RecordRepo) ExecuteQuery(ctx context.Context, sql string) ([]map[string]any, error) {
	rows, err := r.pool.Query(ctx, sql)
	if err != nil {
		observability.ObserveStoreQuery("error")
		return nil, &ExecutionError{Message: err.Error()}
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var result []map[string]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			observability.ObserveStoreQuery("error")
			return nil, &ExecutionError{Message: err.Error()}
		}
		row := make(map[string]any, len(fields))
		for i, fd := range fields {
			row[string(fd.Name)] = values[i]
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		observability.ObserveStoreQuery("error")
		return nil, &ExecutionError{Message: err.Error()}
	}

	observability.ObserveStoreQuery("ok")
	return result, nil
}

func (r *RecordRepo) RecordCount(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM procurement_records").Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// Stats aggregates the dashboard numbers in a single round trip.
func (r *RecordRepo) Stats(ctx context.Context) (models.DashboardStats, error) {
	var stats models.DashboardStats
	err := r.pool.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(budget), 0) AS total_budget,
			COUNT(*) AS total_projects,
			COUNT(*) FILTER (WHERE risk = 'High') AS high_risk_projects,
			COALESCE(AVG(budget), 0) AS average_budget,
			COUNT(DISTINCT department) AS department_count,
			COUNT(*) FILTER (WHERE status = 'Completed') AS completed_projects,
			COUNT(*) FILTER (WHERE status = 'In Progress') AS in_progress_projects,
			COUNT(*) FILTER (WHERE total_days_ad IS NOT NULL AND total_days_pd IS NOT NULL AND total_days_ad > total_days_pd) AS delayed_projects
		FROM procurement_records
	`).Scan(
		&stats.TotalBudget,
		&stats.TotalProjects,
		&stats.HighRiskProjects,
		&stats.AverageBudget,
		&stats.DepartmentCount,
		&stats.CompletedProjects,
		&stats.InProgressProjects,
		&stats.DelayedProjects,
	)
	if err != nil {
		return models.DashboardStats{}, err
	}
	return stats, nil
}

// InsertRecords bulk-loads ingested rows. Records are keyed by column name
// per RecordColumns; duplicate PR numbers are skipped.
func (r *RecordRepo) InsertRecords(ctx context.Context, records []map[string]any) error {
	names := make([]string, len(RecordColumns))
	placeholders := make([]string, len(RecordColumns))
	for i, col := range RecordColumns {
		names[i] = col.Name
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	insertSQL := fmt.Sprintf(
		"INSERT INTO procurement_records (%s) VALUES (%s) ON CONFLICT (pr_number) DO NOTHING",
		strings.Join(names, ", "),
		strings.Join(placeholders, ", "),
	)

	for _, record := range records {
		args := make([]any, len(RecordColumns))
		for i, col := range RecordColumns {
			args[i] = record[col.Name]
		}
		if _, err := r.pool.Exec(ctx, insertSQL, args...); err != nil {
			return fmt.Errorf("failed to insert record %v: %w", record["pr_number"], err)
		}
	}

	return nil
}
