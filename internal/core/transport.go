package core

import (
	"fmt"
	"io"
	"net"
	"os/exec"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/orrn/ptouch/internal/logger"
)

const (
	// DefaultPort is the raw printing port most network printers listen on.
	DefaultPort = 9100

	dialTimeout  = 30 * time.Second
	writeTimeout = 30 * time.Second

	// spoolerClient is the host print spooler's submission command.
	spoolerClient = "lpr"
)

// Swappable for tests, so the spooler path can be exercised without a real
// print system on the host.
var (
	execCommand = exec.Command
	lookPath    = exec.LookPath
)

// SendTCP pushes the finalized job to host:port over a plain TCP stream and
// closes the connection. Fire and forget: no printer response is read. Pass
// port 0 to use DefaultPort.
func (j *PrintJob) SendTCP(host string, port int) error {
	if err := j.requireReady(); err != nil {
		return err
	}
	if port == 0 {
		port = DefaultPort
	}

	address := net.JoinHostPort(host, strconv.Itoa(port))
	conn, err := net.DialTimeout("tcp", address, dialTimeout)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer conn.Close()

	data := j.builder.Bytes()
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if _, err := conn.Write(data); err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}

	logger.Debug("job sent over tcp",
		zap.String("address", address),
		zap.Int("bytes", len(data)))
	return nil
}

// SendToSpooler hands the finalized job to the local print spooler by
// piping it to the spooler client's standard input, targeting the named
// destination. Output from the client is discarded; submission is best
// effort.
func (j *PrintJob) SendToSpooler(destination string) error {
	if err := j.requireReady(); err != nil {
		return err
	}

	path, err := lookPath(spoolerClient)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrSpoolerNotFound, spoolerClient)
	}

	cmd := execCommand(path, "-P", destination)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}

	if err := cmd.Start(); err != nil {
		stdin.Close()
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}

	data := j.builder.Bytes()
	if _, err := stdin.Write(data); err != nil {
		stdin.Close()
		_ = cmd.Wait()
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	stdin.Close()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}

	logger.Debug("job sent to spooler",
		zap.String("destination", destination),
		zap.Int("bytes", len(data)))
	return nil
}
