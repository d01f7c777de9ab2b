package webhook

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/orrn/ptouch/internal/core"
	"github.com/orrn/ptouch/internal/db"
	"github.com/orrn/ptouch/internal/logger"
)

type WebhookEvent string

const (
	EventJobStarted           WebhookEvent = "job_started"
	EventJobCompleted         WebhookEvent = "job_completed"
	EventJobFailed            WebhookEvent = "job_failed"
	EventPrinterStatusChanged WebhookEvent = "printer_status_changed"
)

type WebhookPayload struct {
	Event     string      `json:"event"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
	Signature string      `json:"signature,omitempty"`
}

type JobEventData struct {
	JobID        int64  `json:"job_id"`
	PrinterID    int64  `json:"printer_id"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
}

type PrinterStatusData struct {
	PrinterID      int64     `json:"printer_id"`
	PrinterName    string    `json:"printer_name"`
	PreviousStatus string    `json:"previous_status"`
	NewStatus      string    `json:"new_status"`
	MediaWidth     int       `json:"media_width,omitempty"`
	MediaType      string    `json:"media_type,omitempty"`
	ErrorInfo      string    `json:"error_info,omitempty"`
	IsOnline       bool      `json:"is_online"`
	Timestamp      time.Time `json:"timestamp"`
}

type WebhookConfig struct {
	RetryCount  int
	RetryDelay  time.Duration
	Timeout     time.Duration
	WorkerCount int
	QueueSize   int
}

type webhookTask struct {
	webhookID int64
	event     WebhookEvent
	payload   *WebhookPayload
	attempt   int
}

type WebhookSender struct {
	db          *sql.DB
	httpClient  *http.Client
	retryCount  int
	retryDelay  time.Duration
	workerCount int
	queue       chan *webhookTask
	stopCh      chan struct{}
	wg          sync.WaitGroup
}

func NewWebhookSender(database *sql.DB, config WebhookConfig) *WebhookSender {
	if config.RetryCount <= 0 {
		config.RetryCount = 3
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = 5 * time.Second
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = 3
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 100
	}

	return &WebhookSender{
		db: database,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		retryCount:  config.RetryCount,
		retryDelay:  config.RetryDelay,
		workerCount: config.WorkerCount,
		queue:       make(chan *webhookTask, config.QueueSize),
		stopCh:      make(chan struct{}),
	}
}

func (s *WebhookSender) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
}

func (s *WebhookSender) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

// SendJobEvent implements core.JobEventSender.
func (s *WebhookSender) SendJobEvent(event string, jobID int64, printerID int64, status core.JobStatus, errorMsg string) error {
	data := &JobEventData{
		JobID:        jobID,
		PrinterID:    printerID,
		Status:       string(status),
		ErrorMessage: errorMsg,
	}
	s.enqueue(WebhookEvent(event), data)
	return nil
}

// SendPrinterStatusChange implements core.WebhookSender.
func (s *WebhookSender) SendPrinterStatusChange(printerID int64, printerName, prevStatus, newStatus string, status *core.PrinterStatus) error {
	data := &PrinterStatusData{
		PrinterID:      printerID,
		PrinterName:    printerName,
		PreviousStatus: prevStatus,
		NewStatus:      newStatus,
		Timestamp:      time.Now(),
	}
	if status != nil {
		data.IsOnline = status.IsOnline
		if status.Status != nil {
			data.MediaWidth = status.Status.MediaWidth
			data.MediaType = status.Status.MediaType
			if status.Status.HasError {
				data.ErrorInfo = status.Status.ErrorInfo1 + ";" + status.Status.ErrorInfo2
			}
		}
	}
	s.enqueue(EventPrinterStatusChanged, data)
	return nil
}

// SendPrintComplete implements core.WebhookSender.
func (s *WebhookSender) SendPrintComplete(printerID int64, jobID int64, success bool, errorMsg string) error {
	if success {
		return s.SendJobEvent(string(EventJobCompleted), jobID, printerID, core.JobStatusCompleted, "")
	}
	return s.SendJobEvent(string(EventJobFailed), jobID, printerID, core.JobStatusFailed, errorMsg)
}

func (s *WebhookSender) enqueue(event WebhookEvent, data interface{}) {
	webhooks, err := s.getActiveWebhooksForEvent(event)
	if err != nil {
		logger.Error("failed to get webhooks for event",
			zap.String("event", string(event)), zap.Error(err))
		return
	}

	for _, webhook := range webhooks {
		task := &webhookTask{
			webhookID: webhook.ID,
			event:     event,
			payload: &WebhookPayload{
				Event:     string(event),
				Timestamp: time.Now(),
				Data:      data,
			},
			attempt: 0,
		}

		select {
		case s.queue <- task:
		default:
			logger.Warn("webhook queue full, dropping delivery",
				zap.Int64("webhook_id", webhook.ID), zap.String("event", string(event)))
		}
	}
}

func (s *WebhookSender) getActiveWebhooksForEvent(event WebhookEvent) ([]*db.Webhook, error) {
	query := `SELECT id, name, url, secret, events_json, enabled, created_at FROM webhooks WHERE enabled = 1 AND events_json LIKE ?`
	eventPattern := fmt.Sprintf("%%\"%s\"%%", event)

	rows, err := s.db.Query(query, eventPattern)
	if err != nil {
		return nil, fmt.Errorf("query webhooks: %w", err)
	}
	defer rows.Close()

	var webhooks []*db.Webhook
	for rows.Next() {
		w := &db.Webhook{}
		var enabled int
		err := rows.Scan(&w.ID, &w.Name, &w.URL, &w.Secret, &w.EventsJSON, &enabled, &w.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan webhook: %w", err)
		}
		w.Enabled = enabled == 1
		webhooks = append(webhooks, w)
	}
	return webhooks, nil
}

func (s *WebhookSender) getWebhookByID(id int64) (*db.Webhook, error) {
	query := `SELECT id, name, url, secret, events_json, enabled, created_at FROM webhooks WHERE id = ?`
	w := &db.Webhook{}
	var enabled int
	err := s.db.QueryRow(query, id).Scan(&w.ID, &w.Name, &w.URL, &w.Secret, &w.EventsJSON, &enabled, &w.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get webhook %d: %w", id, err)
	}
	w.Enabled = enabled == 1
	return w, nil
}

func (s *WebhookSender) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case <-s.stopCh:
			return
		case task := <-s.queue:
			if err := s.sendWithRetry(task); err != nil {
				logger.Error("failed to deliver webhook",
					zap.Int("worker", id),
					zap.Int64("webhook_id", task.webhookID),
					zap.String("event", string(task.event)),
					zap.Int("attempts", task.attempt),
					zap.Error(err))
			}
		}
	}
}

func (s *WebhookSender) sendWithRetry(task *webhookTask) error {
	webhook, err := s.getWebhookByID(task.webhookID)
	if err != nil {
		return fmt.Errorf("get webhook: %w", err)
	}

	var lastErr error
	for task.attempt < s.retryCount {
		task.attempt++

		err := s.sendRequest(webhook, task.payload)
		if err == nil {
			return nil
		}

		lastErr = err

		if isClientError(err) {
			return err
		}

		if task.attempt < s.retryCount {
			backoff := s.retryDelay * time.Duration(1<<(task.attempt-1))

			select {
			case <-s.stopCh:
				return fmt.Errorf("shutdown requested")
			case <-time.After(backoff):
			}
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (s *WebhookSender) sendRequest(webhook *db.Webhook, payload *WebhookPayload) error {
	payloadBytes, err := json.Marshal(payload.Data)
	if err != nil {
		return fmt.Errorf("marshal data: %w", err)
	}

	if webhook.Secret != "" {
		payload.Signature = s.signPayload(payloadBytes, webhook.Secret)
	}

	fullPayload, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequest("POST", webhook.URL, bytes.NewReader(fullPayload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Signature", payload.Signature)
	req.Header.Set("X-Webhook-Event", payload.Event)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("http error: %d", resp.StatusCode)
	}

	return nil
}

func (s *WebhookSender) signPayload(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

func isClientError(err error) bool {
	if err == nil {
		return false
	}

	errStr := err.Error()
	return strings.Contains(errStr, "http error: 4")
}
