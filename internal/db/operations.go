package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

type PrinterOperations struct{}

func (o *PrinterOperations) CreatePrinter(ctx context.Context, p *Printer) error {
	result, err := GetDB().ExecContext(ctx, InsertPrinter,
		p.Name, p.Host, p.Port, p.TapeSizeMM, p.Status)
	if err != nil {
		return fmt.Errorf("failed to create printer: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get printer id: %w", err)
	}
	p.ID = id
	return nil
}

func (o *PrinterOperations) GetPrinterByID(ctx context.Context, id int64) (*Printer, error) {
	p := &Printer{}
	err := GetDB().QueryRowContext(ctx, GetPrinterByID, id).Scan(
		&p.ID, &p.Name, &p.Host, &p.Port, &p.TapeSizeMM,
		&p.Status, &p.LastSeenAt, &p.TotalPrints, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to get printer: %w", err)
	}
	return p, nil
}

func (o *PrinterOperations) GetPrinterByName(ctx context.Context, name string) (*Printer, error) {
	p := &Printer{}
	err := GetDB().QueryRowContext(ctx, GetPrinterByName, name).Scan(
		&p.ID, &p.Name, &p.Host, &p.Port, &p.TapeSizeMM,
		&p.Status, &p.LastSeenAt, &p.TotalPrints, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to get printer by name: %w", err)
	}
	return p, nil
}

func (o *PrinterOperations) ListPrinters(ctx context.Context) ([]*Printer, error) {
	rows, err := GetDB().QueryContext(ctx, ListPrinters)
	if err != nil {
		return nil, fmt.Errorf("failed to list printers: %w", err)
	}
	defer rows.Close()

	var printers []*Printer
	for rows.Next() {
		p := &Printer{}
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Host, &p.Port, &p.TapeSizeMM,
			&p.Status, &p.LastSeenAt, &p.TotalPrints, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan printer: %w", err)
		}
		printers = append(printers, p)
	}
	return printers, rows.Err()
}

func (o *PrinterOperations) UpdatePrinter(ctx context.Context, p *Printer) error {
	_, err := GetDB().ExecContext(ctx, UpdatePrinter,
		p.Name, p.Host, p.Port, p.TapeSizeMM, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update printer: %w", err)
	}
	return nil
}

func (o *PrinterOperations) DeletePrinter(ctx context.Context, id int64) error {
	_, err := GetDB().ExecContext(ctx, DeletePrinter, id)
	if err != nil {
		return fmt.Errorf("failed to delete printer: %w", err)
	}
	return nil
}

type JobOperations struct{}

func (o *JobOperations) GetJobByID(ctx context.Context, id int64) (*PrintJob, error) {
	j := &PrintJob{}
	err := GetDB().QueryRowContext(ctx, GetJobByID, id).Scan(
		&j.ID, &j.Ref, &j.PrinterID, &j.Pages, &j.Status, &j.Priority,
		&j.ErrorMessage, &j.SubmittedBy, &j.CreatedAt, &j.StartedAt, &j.CompletedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return j, nil
}

func (o *JobOperations) GetJobByRef(ctx context.Context, ref string) (*PrintJob, error) {
	j := &PrintJob{}
	err := GetDB().QueryRowContext(ctx, GetJobByRef, ref).Scan(
		&j.ID, &j.Ref, &j.PrinterID, &j.Pages, &j.Status, &j.Priority,
		&j.ErrorMessage, &j.SubmittedBy, &j.CreatedAt, &j.StartedAt, &j.CompletedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to get job by ref: %w", err)
	}
	return j, nil
}

func (o *JobOperations) ListJobs(ctx context.Context, filter JobFilter) ([]*PrintJob, error) {
	var conditions []string
	var args []interface{}

	if filter.PrinterID > 0 {
		conditions = append(conditions, "printer_id = ?")
		args = append(args, filter.PrinterID)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.FromDate != nil {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, filter.FromDate)
	}
	if filter.ToDate != nil {
		conditions = append(conditions, "created_at <= ?")
		args = append(args, filter.ToDate)
	}

	query := `SELECT id, ref, printer_id, pages, status, priority, error_message, submitted_by, created_at, started_at, completed_at FROM print_jobs`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	orderBy := "created_at"
	switch filter.OrderBy {
	case "priority", "status", "completed_at":
		orderBy = filter.OrderBy
	}
	orderDir := "DESC"
	if strings.EqualFold(filter.OrderDir, "asc") {
		orderDir = "ASC"
	}
	query += fmt.Sprintf(" ORDER BY %s %s", orderBy, orderDir)

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, filter.Offset)

	rows, err := GetDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*PrintJob
	for rows.Next() {
		j := &PrintJob{}
		if err := rows.Scan(
			&j.ID, &j.Ref, &j.PrinterID, &j.Pages, &j.Status, &j.Priority,
			&j.ErrorMessage, &j.SubmittedBy, &j.CreatedAt, &j.StartedAt, &j.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (o *JobOperations) CountJobsByStatus(ctx context.Context, status string) (int64, error) {
	var count int64
	err := GetDB().QueryRowContext(ctx, "SELECT COUNT(*) FROM print_jobs WHERE status = ?", status).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count jobs: %w", err)
	}
	return count, nil
}

func (o *JobOperations) DeleteJob(ctx context.Context, id int64) error {
	result, err := GetDB().ExecContext(ctx, DeleteJob, id)
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("job not found or not in a terminal state")
	}
	return nil
}

type WebhookOperations struct{}

func (o *WebhookOperations) CreateWebhook(ctx context.Context, w *Webhook) error {
	result, err := GetDB().ExecContext(ctx, InsertWebhook,
		w.Name, w.URL, w.Secret, w.EventsJSON, w.Enabled)
	if err != nil {
		return fmt.Errorf("failed to create webhook: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get webhook id: %w", err)
	}
	w.ID = id
	return nil
}

func (o *WebhookOperations) GetWebhookByID(ctx context.Context, id int64) (*Webhook, error) {
	w := &Webhook{}
	err := GetDB().QueryRowContext(ctx, GetWebhookByID, id).Scan(
		&w.ID, &w.Name, &w.URL, &w.Secret, &w.EventsJSON, &w.Enabled, &w.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to get webhook: %w", err)
	}
	return w, nil
}

func (o *WebhookOperations) ListWebhooks(ctx context.Context) ([]*Webhook, error) {
	rows, err := GetDB().QueryContext(ctx, ListWebhooks)
	if err != nil {
		return nil, fmt.Errorf("failed to list webhooks: %w", err)
	}
	defer rows.Close()

	var webhooks []*Webhook
	for rows.Next() {
		w := &Webhook{}
		if err := rows.Scan(
			&w.ID, &w.Name, &w.URL, &w.Secret, &w.EventsJSON, &w.Enabled, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan webhook: %w", err)
		}
		webhooks = append(webhooks, w)
	}
	return webhooks, rows.Err()
}

func (o *WebhookOperations) ListEnabledWebhooks(ctx context.Context) ([]*Webhook, error) {
	rows, err := GetDB().QueryContext(ctx, ListEnabledWebhooks)
	if err != nil {
		return nil, fmt.Errorf("failed to list enabled webhooks: %w", err)
	}
	defer rows.Close()

	var webhooks []*Webhook
	for rows.Next() {
		w := &Webhook{}
		if err := rows.Scan(
			&w.ID, &w.Name, &w.URL, &w.Secret, &w.EventsJSON, &w.Enabled, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan webhook: %w", err)
		}
		webhooks = append(webhooks, w)
	}
	return webhooks, rows.Err()
}

func (o *WebhookOperations) UpdateWebhook(ctx context.Context, w *Webhook) error {
	_, err := GetDB().ExecContext(ctx, UpdateWebhook,
		w.Name, w.URL, w.Secret, w.EventsJSON, w.Enabled, w.ID)
	if err != nil {
		return fmt.Errorf("failed to update webhook: %w", err)
	}
	return nil
}

func (o *WebhookOperations) DeleteWebhook(ctx context.Context, id int64) error {
	_, err := GetDB().ExecContext(ctx, DeleteWebhook, id)
	if err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}
	return nil
}

type SettingsOperations struct{}

func (o *SettingsOperations) GetSetting(ctx context.Context, key string) (*Setting, error) {
	s := &Setting{}
	err := GetDB().QueryRowContext(ctx, GetSetting, key).Scan(
		&s.Key, &s.Value, &s.Encrypted, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (o *SettingsOperations) SetSetting(ctx context.Context, key, value string, encrypted bool) error {
	_, err := GetDB().ExecContext(ctx, UpsertSetting, key, value, encrypted)
	if err != nil {
		return fmt.Errorf("failed to set setting: %w", err)
	}
	return nil
}

func (o *SettingsOperations) DeleteSetting(ctx context.Context, key string) error {
	_, err := GetDB().ExecContext(ctx, DeleteSetting, key)
	if err != nil {
		return fmt.Errorf("failed to delete setting: %w", err)
	}
	return nil
}

type AuditOperations struct{}

func (o *AuditOperations) CreateAuditLog(ctx context.Context, log *AuditLog) error {
	result, err := GetDB().ExecContext(ctx, InsertAuditLog,
		log.Action, log.EntityType, log.EntityID, log.DetailsJSON, log.IPAddress)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get audit log id: %w", err)
	}
	log.ID = id
	return nil
}

var (
	Printers = &PrinterOperations{}
	Jobs     = &JobOperations{}
	Webhooks = &WebhookOperations{}
	Settings = &SettingsOperations{}
	Audit    = &AuditOperations{}
)
