package core

import (
	"bytes"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/orrn/ptouch/internal/config"
)

func newTestQueue(t *testing.T, pm PrinterManagerInterface, ws JobEventSender) (*Queue, *sql.DB) {
	t.Helper()

	database, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	database.SetMaxOpenConns(1)

	_, err = database.Exec(`
		CREATE TABLE print_jobs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ref TEXT NOT NULL UNIQUE,
			printer_id INTEGER NOT NULL,
			pages INTEGER NOT NULL DEFAULT 1,
			payload BLOB,
			status TEXT NOT NULL DEFAULT 'pending',
			priority INTEGER NOT NULL DEFAULT 0,
			error_message TEXT NOT NULL DEFAULT '',
			submitted_by TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			started_at DATETIME,
			completed_at DATETIME
		)
	`)
	if err != nil {
		t.Fatalf("create table: %v", err)
	}

	return NewQueue(database, pm, ws, &config.QueueConfig{WorkerCount: 1}), database
}

type fakePrinterManager struct {
	printed [][]byte
	err     error
}

func (f *fakePrinterManager) Print(printerID int64, data []byte, pages int) error {
	if f.err != nil {
		return f.err
	}
	f.printed = append(f.printed, data)
	return nil
}

func (f *fakePrinterManager) GetPrinter(printerID int64) (*Printer, error) {
	return &Printer{ID: printerID}, nil
}

type fakeEventSender struct {
	events []string
}

func (f *fakeEventSender) SendJobEvent(event string, jobID, printerID int64, status JobStatus, errorMsg string) error {
	f.events = append(f.events, event)
	return nil
}

func TestEnqueueAndGetJob(t *testing.T) {
	q, _ := newTestQueue(t, nil, nil)

	payload := []byte{0x1B, 0x40, 0x1A}
	id, err := q.Enqueue(&Job{
		Ref:       "ref-1",
		PrinterID: 7,
		Pages:     2,
		Payload:   payload,
		Priority:  5,
	})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	job, err := q.GetJob(id)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.Ref != "ref-1" || job.PrinterID != 7 || job.Pages != 2 || job.Priority != 5 {
		t.Errorf("job = %+v", job)
	}
	if job.Status != JobStatusPending {
		t.Errorf("Status = %q, want pending", job.Status)
	}
	if !bytes.Equal(job.Payload, payload) {
		t.Errorf("Payload = % x, want % x", job.Payload, payload)
	}
}

func TestProcessJobCompletes(t *testing.T) {
	pm := &fakePrinterManager{}
	ws := &fakeEventSender{}
	q, _ := newTestQueue(t, pm, ws)

	id, err := q.Enqueue(&Job{Ref: "ref-1", PrinterID: 1, Pages: 1, Payload: []byte{0xAA}})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	q.processJob(id)

	job, err := q.GetJob(id)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.Status != JobStatusCompleted {
		t.Errorf("Status = %q, want completed", job.Status)
	}
	if job.StartedAt == nil || job.CompletedAt == nil {
		t.Error("timestamps not set")
	}
	if len(pm.printed) != 1 || !bytes.Equal(pm.printed[0], []byte{0xAA}) {
		t.Errorf("printed = %v", pm.printed)
	}
	want := []string{"job_started", "job_completed"}
	if len(ws.events) != 2 || ws.events[0] != want[0] || ws.events[1] != want[1] {
		t.Errorf("events = %v, want %v", ws.events, want)
	}
}

func TestProcessJobFailsOnFirstAttempt(t *testing.T) {
	pm := &fakePrinterManager{err: errors.New("printer offline")}
	ws := &fakeEventSender{}
	q, _ := newTestQueue(t, pm, ws)

	id, err := q.Enqueue(&Job{Ref: "ref-1", PrinterID: 1, Pages: 1})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	q.processJob(id)

	job, err := q.GetJob(id)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.Status != JobStatusFailed {
		t.Errorf("Status = %q, want failed", job.Status)
	}
	if job.ErrorMessage != "printer offline" {
		t.Errorf("ErrorMessage = %q", job.ErrorMessage)
	}
	if len(ws.events) != 2 || ws.events[1] != "job_failed" {
		t.Errorf("events = %v", ws.events)
	}
}

func TestProcessJobSkipsPausedPrinter(t *testing.T) {
	pm := &fakePrinterManager{}
	q, _ := newTestQueue(t, pm, nil)

	id, err := q.Enqueue(&Job{Ref: "ref-1", PrinterID: 3, Pages: 1})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	if err := q.PausePrinter(3); err != nil {
		t.Fatalf("PausePrinter: %v", err)
	}
	if !q.IsPrinterPaused(3) {
		t.Fatal("printer not paused")
	}

	job, err := q.GetJob(id)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.Status != JobStatusPaused {
		t.Errorf("Status = %q, want paused", job.Status)
	}
	if len(pm.printed) != 0 {
		t.Error("paused job was printed")
	}

	if err := q.ResumePrinter(3); err != nil {
		t.Fatalf("ResumePrinter: %v", err)
	}
	job, err = q.GetJob(id)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.Status != JobStatusPending {
		t.Errorf("Status after resume = %q, want pending", job.Status)
	}
}

func TestCancelJob(t *testing.T) {
	q, database := newTestQueue(t, nil, nil)

	id, err := q.Enqueue(&Job{Ref: "ref-1", PrinterID: 1, Pages: 1})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	if err := q.CancelJob(id); err != nil {
		t.Fatalf("CancelJob: %v", err)
	}
	job, err := q.GetJob(id)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.Status != JobStatusCancelled {
		t.Errorf("Status = %q, want cancelled", job.Status)
	}

	// Terminal jobs cannot be cancelled again.
	if err := q.CancelJob(id); err == nil {
		t.Error("cancelling a cancelled job should fail")
	}

	database.Exec("UPDATE print_jobs SET status = 'completed' WHERE id = ?", id)
	if err := q.CancelJob(id); err == nil {
		t.Error("cancelling a completed job should fail")
	}
}

func TestReprintJob(t *testing.T) {
	q, _ := newTestQueue(t, nil, nil)

	payload := []byte{0x01, 0x02, 0x03}
	id, err := q.Enqueue(&Job{Ref: "ref-1", PrinterID: 4, Pages: 3, Payload: payload, Priority: 2})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	newID, err := q.ReprintJob(id, "ref-2")
	if err != nil {
		t.Fatalf("ReprintJob: %v", err)
	}
	if newID == id {
		t.Fatal("reprint reused the original job id")
	}

	copied, err := q.GetJob(newID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if copied.Ref != "ref-2" {
		t.Errorf("Ref = %q, want ref-2", copied.Ref)
	}
	if !bytes.Equal(copied.Payload, payload) {
		t.Errorf("Payload = % x, want % x", copied.Payload, payload)
	}
	if copied.PrinterID != 4 || copied.Pages != 3 || copied.Priority != 2 {
		t.Errorf("copied job = %+v", copied)
	}
	if copied.Status != JobStatusPending {
		t.Errorf("Status = %q, want pending", copied.Status)
	}
}

func TestGetStats(t *testing.T) {
	q, database := newTestQueue(t, nil, nil)

	for i, ref := range []string{"a", "b", "c", "d"} {
		if _, err := q.Enqueue(&Job{Ref: ref, PrinterID: int64(i), Pages: 1}); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}
	database.Exec("UPDATE print_jobs SET status = 'completed' WHERE ref = 'a'")
	database.Exec("UPDATE print_jobs SET status = 'failed' WHERE ref = 'b'")

	stats := q.GetStats()
	if stats.Total != 4 {
		t.Errorf("Total = %d, want 4", stats.Total)
	}
	if stats.Pending != 2 || stats.Completed != 1 || stats.Failed != 1 {
		t.Errorf("stats = %+v", stats)
	}
}
