package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/orrn/ptouch/internal/core"
)

type CreatePrinterRequest struct {
	Name       string `json:"name" binding:"required"`
	Host       string `json:"host" binding:"required"`
	Port       int    `json:"port"`
	TapeSizeMM int    `json:"tape_size_mm"`
}

type UpdatePrinterRequest struct {
	Name       string `json:"name"`
	Host       string `json:"host"`
	Port       int    `json:"port"`
	TapeSizeMM int    `json:"tape_size_mm"`
}

type PrinterResponse struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Host        string     `json:"host"`
	Port        int        `json:"port"`
	TapeSizeMM  int        `json:"tape_size_mm"`
	Status      string     `json:"status"`
	LastSeenAt  *time.Time `json:"last_seen_at,omitempty"`
	TotalPrints int64      `json:"total_prints"`
	Paused      bool       `json:"paused"`
}

type PrinterStatusResponse struct {
	IsOnline    bool      `json:"is_online"`
	CanPrint    bool      `json:"can_print"`
	MediaWidth  int       `json:"media_width,omitempty"`
	MediaType   string    `json:"media_type,omitempty"`
	StatusType  string    `json:"status_type,omitempty"`
	ErrorInfo   string    `json:"error_info,omitempty"`
	LastChecked time.Time `json:"last_checked"`
}

type PrinterHandler struct {
	manager *core.PrinterManager
	queue   *core.Queue
}

func NewPrinterHandler(manager *core.PrinterManager, queue *core.Queue) *PrinterHandler {
	return &PrinterHandler{
		manager: manager,
		queue:   queue,
	}
}

func (h *PrinterHandler) CreatePrinter(c *gin.Context) {
	var req CreatePrinterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.TapeSizeMM == 0 {
		req.TapeSizeMM = core.DefaultJobConfig().TapeSizeMM
	}

	printer := &core.Printer{
		Name:       req.Name,
		Host:       req.Host,
		Port:       req.Port,
		TapeSizeMM: req.TapeSizeMM,
	}

	if err := h.manager.AddPrinter(printer); err != nil {
		if errors.Is(err, core.ErrPrinterAlreadyExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "printer already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add printer"})
		return
	}

	audit(c, "printer.create", "printer", printer.ID)

	c.JSON(http.StatusCreated, h.toResponse(printer))
}

func (h *PrinterHandler) ListPrinters(c *gin.Context) {
	printers := h.manager.ListPrinters()

	resp := make([]PrinterResponse, 0, len(printers))
	for _, p := range printers {
		resp = append(resp, h.toResponse(p))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *PrinterHandler) GetPrinter(c *gin.Context) {
	id, ok := printerID(c)
	if !ok {
		return
	}

	printer, err := h.manager.GetPrinter(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "printer not found"})
		return
	}

	c.JSON(http.StatusOK, h.toResponse(printer))
}

func (h *PrinterHandler) UpdatePrinter(c *gin.Context) {
	id, ok := printerID(c)
	if !ok {
		return
	}

	printer, err := h.manager.GetPrinter(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "printer not found"})
		return
	}

	var req UpdatePrinterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated := *printer
	if req.Name != "" {
		updated.Name = req.Name
	}
	if req.Host != "" {
		updated.Host = req.Host
	}
	if req.Port != 0 {
		updated.Port = req.Port
	}
	if req.TapeSizeMM != 0 {
		updated.TapeSizeMM = req.TapeSizeMM
	}

	if err := h.manager.UpdatePrinter(&updated); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update printer"})
		return
	}

	c.JSON(http.StatusOK, h.toResponse(&updated))
}

func (h *PrinterHandler) DeletePrinter(c *gin.Context) {
	id, ok := printerID(c)
	if !ok {
		return
	}

	if err := h.manager.RemovePrinter(id); err != nil {
		if errors.Is(err, core.ErrPrinterNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "printer not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to remove printer"})
		return
	}

	audit(c, "printer.delete", "printer", id)
	c.JSON(http.StatusOK, gin.H{"id": id})
}

// GetPrinterStatus polls the device and returns the decoded status block.
func (h *PrinterHandler) GetPrinterStatus(c *gin.Context) {
	id, ok := printerID(c)
	if !ok {
		return
	}

	status, err := h.manager.CheckStatus(id)
	if err != nil {
		if errors.Is(err, core.ErrPrinterNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "printer not found"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	resp := PrinterStatusResponse{
		IsOnline:    status.IsOnline,
		CanPrint:    status.CanPrint,
		LastChecked: status.LastChecked,
	}
	if status.Status != nil {
		resp.MediaWidth = status.Status.MediaWidth
		resp.MediaType = status.Status.MediaType
		resp.StatusType = status.Status.StatusType
		if status.Status.HasError {
			resp.ErrorInfo = status.Status.ErrorInfo1 + " " + status.Status.ErrorInfo2
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *PrinterHandler) PausePrinter(c *gin.Context) {
	id, ok := printerID(c)
	if !ok {
		return
	}

	if _, err := h.manager.GetPrinter(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "printer not found"})
		return
	}

	if err := h.queue.PausePrinter(id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to pause printer"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "paused": true})
}

func (h *PrinterHandler) ResumePrinter(c *gin.Context) {
	id, ok := printerID(c)
	if !ok {
		return
	}

	if _, err := h.manager.GetPrinter(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "printer not found"})
		return
	}

	if err := h.queue.ResumePrinter(id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resume printer"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "paused": false})
}

func (h *PrinterHandler) toResponse(p *core.Printer) PrinterResponse {
	return PrinterResponse{
		ID:          p.ID,
		Name:        p.Name,
		Host:        p.Host,
		Port:        p.Port,
		TapeSizeMM:  p.TapeSizeMM,
		Status:      p.Status,
		LastSeenAt:  p.LastSeenAt,
		TotalPrints: p.TotalPrints,
		Paused:      h.queue.IsPrinterPaused(p.ID),
	}
}

func printerID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid printer id"})
		return 0, false
	}
	return id, true
}
