package handlers

import (
	"bytes"
	"database/sql"
	"encoding/base64"
	"errors"
	"image"
	_ "image/png"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/orrn/ptouch/internal/core"
	"github.com/orrn/ptouch/internal/db"
	"github.com/orrn/ptouch/internal/ptouch"
)

type CreateJobRequest struct {
	PrinterID int64    `json:"printer_id" binding:"required"`
	Pages     []string `json:"pages" binding:"required,min=1"` // base64 PNG, one per page
	Priority  int      `json:"priority"`

	// Optional overrides of the printer's tape defaults.
	MarginSize    *int  `json:"margin_size"`
	AutoCut       *int  `json:"auto_cut"`
	HalfCut       *bool `json:"half_cut"`
	ChainPrinting *bool `json:"chain_printing"`
}

type DirectPrintRequest struct {
	TapeSizeMM int      `json:"tape_size_mm"`
	Pages      []string `json:"pages" binding:"required,min=1"`

	// Exactly one target must be set.
	Host        string `json:"host"`
	Port        int    `json:"port"`
	Destination string `json:"destination"` // local spooler queue name

	MarginSize    *int  `json:"margin_size"`
	AutoCut       *int  `json:"auto_cut"`
	HalfCut       *bool `json:"half_cut"`
	ChainPrinting *bool `json:"chain_printing"`
}

type JobResponse struct {
	ID           int64      `json:"id"`
	Ref          string     `json:"ref"`
	PrinterID    int64      `json:"printer_id"`
	Pages        int        `json:"pages"`
	Status       string     `json:"status"`
	Priority     int        `json:"priority"`
	ErrorMessage string     `json:"error_message,omitempty"`
	SubmittedBy  string     `json:"submitted_by,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

type QueueResponse struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Paused     int `json:"paused"`
	Failed     int `json:"failed"`
	Completed  int `json:"completed"`
	Cancelled  int `json:"cancelled"`
	Total      int `json:"total"`
}

type JobHandler struct {
	queue *core.Queue
}

func NewJobHandler(queue *core.Queue) *JobHandler {
	return &JobHandler{queue: queue}
}

// buildJob runs the print job lifecycle over the decoded pages and returns
// the finalized command stream.
func buildJob(cfg core.JobConfig, pages []string) ([]byte, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	images := make([]*ptouch.RasterImage, 0, len(pages))
	for _, encoded := range pages {
		raw, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, errors.New("page is not valid base64")
		}
		img, _, err := image.Decode(bytes.NewReader(raw))
		if err != nil {
			return nil, errors.New("page is not a decodable image")
		}
		raster, err := ptouch.NewRasterImage(img, cfg.TapeSizeMM)
		if err != nil {
			return nil, err
		}
		images = append(images, raster)
	}

	job := core.NewPrintJob(cfg)
	if err := job.StartJob().AddImages(images); err != nil {
		return nil, err
	}
	if err := job.EndJob(); err != nil {
		return nil, err
	}
	return job.Bytes()
}

func jobConfigForPrinter(p *db.Printer, req *CreateJobRequest) core.JobConfig {
	cfg := core.DefaultJobConfig()
	cfg.TapeSizeMM = p.TapeSizeMM
	if req.MarginSize != nil {
		cfg.MarginSize = *req.MarginSize
	}
	if req.AutoCut != nil {
		cfg.AutoCut = *req.AutoCut
	}
	if req.HalfCut != nil {
		cfg.HalfCut = *req.HalfCut
	}
	if req.ChainPrinting != nil {
		cfg.ChainPrinting = *req.ChainPrinting
	}
	return cfg
}

func (h *JobHandler) CreateJob(c *gin.Context) {
	var req CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	printer, err := db.Printers.GetPrinterByID(c.Request.Context(), req.PrinterID)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "printer not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get printer"})
		return
	}

	payload, err := buildJob(jobConfigForPrinter(printer, &req), req.Pages)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job := &core.Job{
		Ref:         uuid.NewString(),
		PrinterID:   printer.ID,
		Pages:       len(req.Pages),
		Payload:     payload,
		Priority:    req.Priority,
		SubmittedBy: c.GetString("submitted_by"),
	}

	id, err := h.queue.Enqueue(job)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue job"})
		return
	}

	audit(c, "job.create", "job", id)

	c.JSON(http.StatusCreated, gin.H{"id": id, "ref": job.Ref, "status": string(core.JobStatusPending)})
}

// GetJobByRef looks a job up by its submission reference token.
func (h *JobHandler) GetJobByRef(c *gin.Context) {
	job, err := db.Jobs.GetJobByRef(c.Request.Context(), c.Param("ref"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	c.JSON(http.StatusOK, job)
}

// DeleteJob removes a terminal job's record and payload.
func (h *JobHandler) DeleteJob(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return
	}

	if err := db.Jobs.DeleteJob(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	audit(c, "job.delete", "job", id)
	c.JSON(http.StatusOK, gin.H{"id": id})
}

// DirectPrint builds a job and pushes it straight to a network printer or
// the local spooler, bypassing the queue. The job is not persisted.
func (h *JobHandler) DirectPrint(c *gin.Context) {
	var req DirectPrintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if (req.Host == "") == (req.Destination == "") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "exactly one of host or destination is required"})
		return
	}

	cfg := core.DefaultJobConfig()
	if req.TapeSizeMM != 0 {
		cfg.TapeSizeMM = req.TapeSizeMM
	}
	if req.MarginSize != nil {
		cfg.MarginSize = *req.MarginSize
	}
	if req.AutoCut != nil {
		cfg.AutoCut = *req.AutoCut
	}
	if req.HalfCut != nil {
		cfg.HalfCut = *req.HalfCut
	}
	if req.ChainPrinting != nil {
		cfg.ChainPrinting = *req.ChainPrinting
	}

	if err := cfg.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	images := make([]*ptouch.RasterImage, 0, len(req.Pages))
	for _, encoded := range req.Pages {
		raw, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "page is not valid base64"})
			return
		}
		img, _, err := image.Decode(bytes.NewReader(raw))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "page is not a decodable image"})
			return
		}
		raster, err := ptouch.NewRasterImage(img, cfg.TapeSizeMM)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		images = append(images, raster)
	}

	job := core.NewPrintJob(cfg)
	if err := job.StartJob().AddImages(images); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := job.EndJob(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Host != "" {
		err := job.SendTCP(req.Host, req.Port)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
	} else {
		err := job.SendToSpooler(req.Destination)
		if err != nil {
			status := http.StatusBadGateway
			if errors.Is(err, core.ErrSpoolerNotFound) {
				status = http.StatusServiceUnavailable
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"pages": len(req.Pages)})
}

func (h *JobHandler) GetJob(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return
	}

	job, err := h.queue.GetJob(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}

	c.JSON(http.StatusOK, toJobResponse(job))
}

// GetJobPayload returns the finalized command stream as raw bytes.
func (h *JobHandler) GetJobPayload(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return
	}

	job, err := h.queue.GetJob(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}

	c.Data(http.StatusOK, "application/octet-stream", job.Payload)
}

func (h *JobHandler) ListJobs(c *gin.Context) {
	status := core.JobStatus(c.Query("status"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	jobs, err := h.queue.ListJobs(status, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list jobs"})
		return
	}

	resp := make([]JobResponse, 0, len(jobs))
	for _, j := range jobs {
		resp = append(resp, toJobResponse(j))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *JobHandler) CancelJob(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return
	}

	if err := h.queue.CancelJob(id); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id, "status": string(core.JobStatusCancelled)})
}

func (h *JobHandler) ReprintJob(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return
	}

	ref := uuid.NewString()
	newID, err := h.queue.ReprintJob(id, ref)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": newID, "ref": ref})
}

func (h *JobHandler) GetQueueStats(c *gin.Context) {
	stats := h.queue.GetStats()
	c.JSON(http.StatusOK, QueueResponse{
		Pending:    stats.Pending,
		Processing: stats.Processing,
		Paused:     stats.Paused,
		Failed:     stats.Failed,
		Completed:  stats.Completed,
		Cancelled:  stats.Cancelled,
		Total:      stats.Total,
	})
}

func toJobResponse(j *core.Job) JobResponse {
	return JobResponse{
		ID:           j.ID,
		Ref:          j.Ref,
		PrinterID:    j.PrinterID,
		Pages:        j.Pages,
		Status:       string(j.Status),
		Priority:     j.Priority,
		ErrorMessage: j.ErrorMessage,
		SubmittedBy:  j.SubmittedBy,
		CreatedAt:    j.CreatedAt,
		StartedAt:    j.StartedAt,
		CompletedAt:  j.CompletedAt,
	}
}
