package db

const (
	InsertPrinter = `
		INSERT INTO printers (name, host, port, tape_size_mm, status)
		VALUES (?, ?, ?, ?, ?)
	`

	GetPrinterByID = `
		SELECT id, name, host, port, tape_size_mm, status, last_seen_at, total_prints, created_at, updated_at
		FROM printers WHERE id = ?
	`

	GetPrinterByName = `
		SELECT id, name, host, port, tape_size_mm, status, last_seen_at, total_prints, created_at, updated_at
		FROM printers WHERE name = ?
	`

	ListPrinters = `
		SELECT id, name, host, port, tape_size_mm, status, last_seen_at, total_prints, created_at, updated_at
		FROM printers ORDER BY name ASC
	`

	UpdatePrinter = `
		UPDATE printers SET
			name = ?, host = ?, port = ?, tape_size_mm = ?
		WHERE id = ?
	`

	UpdatePrinterStatus = `
		UPDATE printers SET status = ?, last_seen_at = CURRENT_TIMESTAMP WHERE id = ?
	`

	IncrementPrinterPrints = `
		UPDATE printers SET total_prints = total_prints + ? WHERE id = ?
	`

	DeletePrinter = `DELETE FROM printers WHERE id = ?`
)

const (
	GetJobByID = `
		SELECT id, ref, printer_id, pages, status, priority, error_message, submitted_by, created_at, started_at, completed_at
		FROM print_jobs WHERE id = ?
	`

	GetJobByRef = `
		SELECT id, ref, printer_id, pages, status, priority, error_message, submitted_by, created_at, started_at, completed_at
		FROM print_jobs WHERE ref = ?
	`

	DeleteJob = `DELETE FROM print_jobs WHERE id = ? AND status IN ('completed', 'failed', 'cancelled')`
)

const (
	InsertWebhook = `
		INSERT INTO webhooks (name, url, secret, events_json, enabled)
		VALUES (?, ?, ?, ?, ?)
	`

	GetWebhookByID = `
		SELECT id, name, url, secret, events_json, enabled, created_at
		FROM webhooks WHERE id = ?
	`

	ListWebhooks = `
		SELECT id, name, url, secret, events_json, enabled, created_at
		FROM webhooks ORDER BY name ASC
	`

	ListEnabledWebhooks = `
		SELECT id, name, url, secret, events_json, enabled, created_at
		FROM webhooks WHERE enabled = 1
	`

	UpdateWebhook = `
		UPDATE webhooks SET name = ?, url = ?, secret = ?, events_json = ?, enabled = ?
		WHERE id = ?
	`

	DeleteWebhook = `DELETE FROM webhooks WHERE id = ?`
)

const (
	GetSetting = `SELECT key, value, encrypted, updated_at FROM settings WHERE key = ?`

	UpsertSetting = `
		INSERT INTO settings (key, value, encrypted, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, encrypted = excluded.encrypted, updated_at = CURRENT_TIMESTAMP
	`

	DeleteSetting = `DELETE FROM settings WHERE key = ?`
)

const (
	InsertAuditLog = `
		INSERT INTO audit_log (action, entity_type, entity_id, details_json, ip_address)
		VALUES (?, ?, ?, ?, ?)
	`
)
