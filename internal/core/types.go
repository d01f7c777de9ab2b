package core

import (
	"time"

	"github.com/orrn/ptouch/internal/ptouch"
)

type WebhookSender interface {
	SendPrinterStatusChange(printerID int64, printerName, oldStatus, newStatus string, details *PrinterStatus) error
	SendPrintComplete(printerID int64, jobID int64, success bool, errorMsg string) error
}

// PrinterStatus is the interpreted result of a P-touch status request.
type PrinterStatus struct {
	Status      *ptouch.Status
	IsOnline    bool
	CanPrint    bool
	LastChecked time.Time
}

type Printer struct {
	ID          int64
	Name        string
	Host        string
	Port        int
	TapeSizeMM  int
	Status      string
	LastSeenAt  *time.Time
	TotalPrints int64
}
