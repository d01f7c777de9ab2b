package core

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/orrn/ptouch/internal/config"
	"github.com/orrn/ptouch/internal/db"
	"github.com/orrn/ptouch/internal/logger"
	"github.com/orrn/ptouch/internal/ptouch"
)

var (
	ErrPrinterNotFound      = errors.New("printer not found")
	ErrPrinterOffline       = errors.New("printer is offline")
	ErrConnectionFailed     = errors.New("connection failed")
	ErrInvalidStatus        = errors.New("invalid status response")
	ErrPrinterCannotPrint   = errors.New("printer cannot print in current state")
	ErrPrinterAlreadyExists = errors.New("printer already exists")
)

const defaultReadWriteTimeout = 10 * time.Second

type PrinterManager struct {
	db            *sql.DB
	config        *config.PrintersConfig
	printers      map[int64]*Printer
	connections   map[int64]net.Conn
	mu            sync.RWMutex
	webhookSender WebhookSender
	stopCh        chan struct{}
	wg            sync.WaitGroup
}

func NewPrinterManager(database *sql.DB, cfg *config.PrintersConfig, webhookSender WebhookSender) *PrinterManager {
	return &PrinterManager{
		db:            database,
		config:        cfg,
		printers:      make(map[int64]*Printer),
		connections:   make(map[int64]net.Conn),
		webhookSender: webhookSender,
		stopCh:        make(chan struct{}),
	}
}

func (pm *PrinterManager) Start() {
	pm.loadPrintersFromDB()

	pm.wg.Add(1)
	go pm.healthCheckLoop()
}

func (pm *PrinterManager) Stop() {
	close(pm.stopCh)

	pm.mu.Lock()
	for id, conn := range pm.connections {
		if conn != nil {
			conn.Close()
			delete(pm.connections, id)
		}
	}
	pm.mu.Unlock()

	pm.wg.Wait()
}

func (pm *PrinterManager) loadPrintersFromDB() {
	rows, err := pm.db.Query(db.ListPrinters)
	if err != nil {
		logger.Error("failed to load printers", zap.Error(err))
		return
	}
	defer rows.Close()

	for rows.Next() {
		var p Printer
		var lastSeenAt sql.NullTime
		err := rows.Scan(
			&p.ID, &p.Name, &p.Host, &p.Port, &p.TapeSizeMM,
			&p.Status, &lastSeenAt, &p.TotalPrints,
			new(any), new(any),
		)
		if err != nil {
			continue
		}
		if lastSeenAt.Valid {
			p.LastSeenAt = &lastSeenAt.Time
		}
		pm.printers[p.ID] = &p
	}
}

func (pm *PrinterManager) AddPrinter(p *Printer) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	for _, existing := range pm.printers {
		if existing.Name == p.Name {
			return ErrPrinterAlreadyExists
		}
	}

	if p.Port == 0 {
		p.Port = DefaultPort
	}
	p.Status = "unknown"

	result, err := pm.db.Exec(db.InsertPrinter, p.Name, p.Host, p.Port, p.TapeSizeMM, p.Status)
	if err != nil {
		return fmt.Errorf("failed to insert printer: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get printer id: %w", err)
	}
	p.ID = id

	pm.printers[p.ID] = p

	return nil
}

func (pm *PrinterManager) RemovePrinter(id int64) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if conn, exists := pm.connections[id]; exists {
		if conn != nil {
			conn.Close()
		}
		delete(pm.connections, id)
	}

	if _, exists := pm.printers[id]; !exists {
		return ErrPrinterNotFound
	}

	_, err := pm.db.Exec(db.DeletePrinter, id)
	if err != nil {
		return fmt.Errorf("failed to delete printer: %w", err)
	}

	delete(pm.printers, id)

	return nil
}

func (pm *PrinterManager) GetPrinter(id int64) (*Printer, error) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	p, exists := pm.printers[id]
	if !exists {
		return nil, ErrPrinterNotFound
	}

	return p, nil
}

func (pm *PrinterManager) ListPrinters() []*Printer {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	printers := make([]*Printer, 0, len(pm.printers))
	for _, p := range pm.printers {
		printers = append(printers, p)
	}
	return printers
}

func (pm *PrinterManager) connect(id int64) (net.Conn, error) {
	pm.mu.RLock()
	p, exists := pm.printers[id]
	if !exists {
		pm.mu.RUnlock()
		return nil, ErrPrinterNotFound
	}

	if conn, exists := pm.connections[id]; exists && conn != nil {
		pm.mu.RUnlock()
		return conn, nil
	}
	pm.mu.RUnlock()

	address := fmt.Sprintf("%s:%d", p.Host, p.Port)
	timeout := pm.config.ConnectionTimeout
	if timeout == 0 {
		timeout = defaultReadWriteTimeout
	}

	conn, err := net.DialTimeout("tcp", address, timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	pm.mu.Lock()
	pm.connections[id] = conn
	pm.mu.Unlock()

	return conn, nil
}

func (pm *PrinterManager) disconnect(id int64) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if conn, exists := pm.connections[id]; exists {
		if conn != nil {
			conn.Close()
		}
		delete(pm.connections, id)
	}
}

func (pm *PrinterManager) reconnect(id int64) (net.Conn, error) {
	pm.disconnect(id)
	return pm.connect(id)
}

// CheckStatus sends a status request and decodes the 32-byte reply. An
// unreachable printer is reported offline rather than as a hard failure.
func (pm *PrinterManager) CheckStatus(id int64) (*PrinterStatus, error) {
	pm.mu.RLock()
	_, exists := pm.printers[id]
	pm.mu.RUnlock()
	if !exists {
		return nil, ErrPrinterNotFound
	}

	conn, err := pm.connect(id)
	if err != nil {
		pm.updatePrinterStatus(id, "offline")
		return pm.offlineStatus(), err
	}

	timeout := pm.config.ConnectionTimeout
	if timeout == 0 {
		timeout = defaultReadWriteTimeout
	}

	deadline := time.Now().Add(timeout)
	_ = conn.SetDeadline(deadline)

	_, err = conn.Write(ptouch.StatusRequest)
	if err != nil {
		conn, err = pm.reconnect(id)
		if err != nil {
			pm.updatePrinterStatus(id, "offline")
			return pm.offlineStatus(), err
		}
		_ = conn.SetDeadline(deadline)
		_, err = conn.Write(ptouch.StatusRequest)
		if err != nil {
			pm.disconnect(id)
			pm.updatePrinterStatus(id, "offline")
			return pm.offlineStatus(), err
		}
	}

	response := make([]byte, ptouch.StatusLength)
	totalRead := 0
	for totalRead < ptouch.StatusLength {
		n, err := conn.Read(response[totalRead:])
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			pm.disconnect(id)
			pm.updatePrinterStatus(id, "offline")
			return pm.offlineStatus(), fmt.Errorf("%w: %v", ErrConnectionFailed, err)
		}
		totalRead += n
	}

	decoded, err := ptouch.ParseStatus(response[:totalRead])
	if err != nil {
		pm.updatePrinterStatus(id, "error")
		return pm.offlineStatus(), fmt.Errorf("%w: %v", ErrInvalidStatus, err)
	}

	status := &PrinterStatus{
		Status:      decoded,
		IsOnline:    true,
		LastChecked: time.Now(),
	}
	status.CanPrint = !decoded.HasError && decoded.StatusType != "error"

	pm.updatePrinterStatus(id, pm.determineStatusString(status))

	return status, nil
}

func (pm *PrinterManager) offlineStatus() *PrinterStatus {
	return &PrinterStatus{
		IsOnline:    false,
		CanPrint:    false,
		LastChecked: time.Now(),
	}
}

func (pm *PrinterManager) determineStatusString(status *PrinterStatus) string {
	if !status.IsOnline {
		return "offline"
	}

	if status.Status.HasError || status.Status.StatusType == "error" {
		return "error"
	}

	if status.Status.StatusType == "phase_change" && status.Status.PhaseType != 0 {
		return "busy"
	}

	return "online"
}

func (pm *PrinterManager) updatePrinterStatus(id int64, status string) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	p, exists := pm.printers[id]
	if !exists {
		return
	}

	oldStatus := p.Status
	p.Status = status
	now := time.Now()
	p.LastSeenAt = &now

	_, _ = pm.db.Exec(db.UpdatePrinterStatus, status, id)

	if oldStatus != status && pm.webhookSender != nil {
		go pm.webhookSender.SendPrinterStatusChange(id, p.Name, oldStatus, status, nil)
	}
}

func (pm *PrinterManager) CheckAllStatuses() {
	pm.mu.RLock()
	ids := make([]int64, 0, len(pm.printers))
	for id := range pm.printers {
		ids = append(ids, id)
	}
	pm.mu.RUnlock()

	for _, id := range ids {
		_, _ = pm.CheckStatus(id)
	}
}

func (pm *PrinterManager) healthCheckLoop() {
	defer pm.wg.Done()

	interval := pm.config.HealthCheckInterval
	if interval == 0 {
		interval = 30 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	pm.CheckAllStatuses()

	for {
		select {
		case <-pm.stopCh:
			return
		case <-ticker.C:
			pm.CheckAllStatuses()
		}
	}
}

// SendJob writes a finalized command stream to the printer's connection.
func (pm *PrinterManager) SendJob(id int64, data []byte) error {
	pm.mu.RLock()
	_, exists := pm.printers[id]
	pm.mu.RUnlock()
	if !exists {
		return ErrPrinterNotFound
	}

	conn, err := pm.connect(id)
	if err != nil {
		return ErrPrinterOffline
	}

	timeout := pm.config.ConnectionTimeout
	if timeout == 0 {
		timeout = defaultReadWriteTimeout
	}

	_ = conn.SetDeadline(time.Now().Add(timeout))

	_, err = conn.Write(data)
	if err != nil {
		_ = conn.Close()
		pm.disconnect(id)
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	return nil
}

// Print checks the printer state, then pushes the job bytes. Single
// attempt: a transport failure surfaces to the caller without retry.
func (pm *PrinterManager) Print(id int64, data []byte, pages int) error {
	status, err := pm.CheckStatus(id)
	if err != nil {
		return err
	}

	if !status.IsOnline {
		return ErrPrinterOffline
	}

	if !status.CanPrint {
		return ErrPrinterCannotPrint
	}

	if err := pm.SendJob(id, data); err != nil {
		return err
	}

	pm.mu.Lock()
	if p, exists := pm.printers[id]; exists {
		p.TotalPrints += int64(pages)
	}
	pm.mu.Unlock()

	_, _ = pm.db.Exec(db.IncrementPrinterPrints, pages, id)

	return nil
}

func (pm *PrinterManager) UpdatePrinter(p *Printer) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if _, exists := pm.printers[p.ID]; !exists {
		return ErrPrinterNotFound
	}

	_, err := pm.db.Exec(db.UpdatePrinter, p.Name, p.Host, p.Port, p.TapeSizeMM, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update printer: %w", err)
	}

	pm.printers[p.ID] = p

	if conn, exists := pm.connections[p.ID]; exists && conn != nil {
		conn.Close()
		delete(pm.connections, p.ID)
	}

	return nil
}
