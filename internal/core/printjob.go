package core

import (
	"errors"
	"fmt"
	"io"

	"github.com/orrn/ptouch/internal/ptouch"
)

var (
	ErrInvalidState    = errors.New("invalid job state")
	ErrSpoolerNotFound = errors.New("spooler client not found")
	ErrTransport       = errors.New("transport failed")
)

// jobState tracks where a print job is in its lifecycle. Transitions are
// strictly forward: none -> configuring -> ready.
type jobState int

const (
	stateNone jobState = iota
	stateConfiguring
	stateReady
)

func (s jobState) String() string {
	switch s {
	case stateNone:
		return "none"
	case stateConfiguring:
		return "configuring"
	case stateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Builder accumulates printer commands for one job. The print job owns its
// builder exclusively and drives it through a fixed configuration sequence
// before any raster data is appended.
type Builder interface {
	SetPrinterInfo(tapeSizeMM int)
	SetCutMode(autoCut bool)
	SetCutInterval(pages int)
	SetAdvancedOptions(halfCut, chainPrinting bool)
	SetMargin(margin int)
	SetCompressionMode()
	AddImage(img *ptouch.RasterImage)
	AddPageBreak()
	Eject()
	Bytes() []byte
	WriteHexDump(w io.Writer) error
}

// JobConfig is the immutable printer configuration for one print job.
type JobConfig struct {
	// TapeSizeMM is the tape width in millimeters.
	TapeSizeMM int
	// MarginSize is the feed margin in dots.
	MarginSize int
	// AutoCut cuts after every N labels; 0 disables cutting.
	AutoCut int
	// HalfCut perforates only part of the tape depth.
	HalfCut bool
	// ChainPrinting suppresses the trailing feed between chained jobs.
	ChainPrinting bool
}

// DefaultJobConfig returns the configuration for a 12 mm tape with a 14 dot
// margin, cutting after every label with half cut enabled.
func DefaultJobConfig() JobConfig {
	return JobConfig{
		TapeSizeMM: 12,
		MarginSize: 14,
		AutoCut:    1,
		HalfCut:    true,
	}
}

func (c JobConfig) Validate() error {
	if c.TapeSizeMM <= 0 {
		return fmt.Errorf("tape size must be positive, got %d", c.TapeSizeMM)
	}
	if c.MarginSize < 0 {
		return fmt.Errorf("margin size must be non-negative, got %d", c.MarginSize)
	}
	if c.AutoCut < 0 {
		return fmt.Errorf("auto cut interval must be non-negative, got %d", c.AutoCut)
	}
	return nil
}

// PrintJob builds one printer job: configuration, one or more raster pages
// and the final feed, in that order. Call StartJob, then AddImage for each
// page, then EndJob; only then may the finished bytes be read or sent.
//
// A PrintJob is not safe for concurrent use. Once EndJob succeeds the job
// is immutable; Bytes, HexDump and the send operations are repeatable.
type PrintJob struct {
	config JobConfig

	builder    Builder
	state      jobState
	hasPages   bool
	newBuilder func() Builder
}

// NewPrintJob creates a job for the given configuration.
func NewPrintJob(config JobConfig) *PrintJob {
	return &PrintJob{
		config:     config,
		newBuilder: func() Builder { return ptouch.NewCommandBuffer() },
	}
}

// StartJob creates a fresh command buffer and writes the configuration
// commands. Calling it on a job that already has pages discards the
// previous buffer and all accumulated pages; this is a deliberate reset,
// not an error. Returns the job for chaining.
func (j *PrintJob) StartJob() *PrintJob {
	b := j.newBuilder()
	b.SetPrinterInfo(j.config.TapeSizeMM)
	b.SetCutMode(j.config.AutoCut > 0)
	if j.config.AutoCut > 0 {
		b.SetCutInterval(j.config.AutoCut)
	}
	b.SetAdvancedOptions(j.config.HalfCut, j.config.ChainPrinting)
	b.SetMargin(j.config.MarginSize)
	b.SetCompressionMode()

	j.builder = b
	j.state = stateConfiguring
	j.hasPages = false
	return j
}

// AddImage appends one page. Pages after the first are preceded by a page
// break so that a single-page job never carries a trailing separator.
func (j *PrintJob) AddImage(img *ptouch.RasterImage) error {
	if j.state == stateReady {
		return fmt.Errorf("%w: no more images may be added to a finalized job", ErrInvalidState)
	}
	if j.state != stateConfiguring {
		return fmt.Errorf("%w: StartJob must precede adding images", ErrInvalidState)
	}

	if j.hasPages {
		j.builder.AddPageBreak()
	}
	j.builder.AddImage(img)
	j.hasPages = true
	return nil
}

// AddImages appends pages in order, stopping at the first failure. Pages
// appended before the failing one remain in the job.
func (j *PrintJob) AddImages(imgs []*ptouch.RasterImage) error {
	for i, img := range imgs {
		if err := j.AddImage(img); err != nil {
			return fmt.Errorf("image %d: %w", i, err)
		}
	}
	return nil
}

// EndJob appends the final print-and-feed command and seals the job.
func (j *PrintJob) EndJob() error {
	if j.state == stateReady {
		return fmt.Errorf("%w: job is already finalized", ErrInvalidState)
	}
	if !j.hasPages {
		return fmt.Errorf("%w: at least one image is required", ErrInvalidState)
	}
	j.builder.Eject()
	j.state = stateReady
	return nil
}

// Bytes returns the finalized command stream.
func (j *PrintJob) Bytes() ([]byte, error) {
	if err := j.requireReady(); err != nil {
		return nil, err
	}
	return j.builder.Bytes(), nil
}

// HexDump writes a hex rendering of the finalized command stream to w.
func (j *PrintJob) HexDump(w io.Writer) error {
	if err := j.requireReady(); err != nil {
		return err
	}
	return j.builder.WriteHexDump(w)
}

func (j *PrintJob) requireReady() error {
	if j.state != stateReady {
		return fmt.Errorf("%w: job is not complete (state %s)", ErrInvalidState, j.state)
	}
	return nil
}
