package core

import (
	"bytes"
	"errors"
	"io"
	"net"
	"os/exec"
	"strconv"
	"testing"
)

func readyJob(t *testing.T) *PrintJob {
	t.Helper()
	j, _ := newRecordedJob(DefaultJobConfig())
	j.StartJob()
	if err := j.AddImage(nil); err != nil {
		t.Fatalf("AddImage: %v", err)
	}
	if err := j.EndJob(); err != nil {
		t.Fatalf("EndJob: %v", err)
	}
	return j
}

func TestSendTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	received := make(chan []byte, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			received <- nil
			return
		}
		defer conn.Close()
		data, _ := io.ReadAll(conn)
		received <- data
	}()

	j := readyJob(t)
	want, err := j.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}

	_, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)
	if err := j.SendTCP("127.0.0.1", port); err != nil {
		t.Fatalf("SendTCP: %v", err)
	}

	got := <-received
	if !bytes.Equal(got, want) {
		t.Errorf("received % x, want % x", got, want)
	}
}

func TestSendTCPConnectionRefused(t *testing.T) {
	// Grab a free port and close the listener so nothing accepts.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	_, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)
	ln.Close()

	j := readyJob(t)
	err = j.SendTCP("127.0.0.1", port)
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("SendTCP error = %v, want ErrTransport", err)
	}
}

func TestSendTCPRequiresEndJob(t *testing.T) {
	j, _ := newRecordedJob(DefaultJobConfig())
	j.StartJob()
	if err := j.SendTCP("127.0.0.1", 1); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("SendTCP before EndJob error = %v, want ErrInvalidState", err)
	}
}

func TestSendToSpooler(t *testing.T) {
	origLookPath, origExecCommand := lookPath, execCommand
	defer func() { lookPath, execCommand = origLookPath, origExecCommand }()

	var gotDestination string
	var spawned *exec.Cmd
	lookPath = func(file string) (string, error) {
		if file != "lpr" {
			t.Errorf("lookPath(%q), want lpr", file)
		}
		return "/usr/bin/lpr", nil
	}
	execCommand = func(name string, args ...string) *exec.Cmd {
		if len(args) == 2 && args[0] == "-P" {
			gotDestination = args[1]
		}
		// Drains stdin and exits 0, standing in for the real client.
		spawned = exec.Command("cat")
		return spawned
	}

	j := readyJob(t)
	if err := j.SendToSpooler("office-ql720"); err != nil {
		t.Fatalf("SendToSpooler: %v", err)
	}
	if gotDestination != "office-ql720" {
		t.Errorf("destination = %q, want office-ql720", gotDestination)
	}
	if spawned.Stdout != io.Discard || spawned.Stderr != io.Discard {
		t.Errorf("client output not discarded: stdout=%v stderr=%v", spawned.Stdout, spawned.Stderr)
	}
}

func TestSendToSpoolerClientMissing(t *testing.T) {
	origLookPath := lookPath
	defer func() { lookPath = origLookPath }()

	lookPath = func(file string) (string, error) {
		return "", exec.ErrNotFound
	}

	j := readyJob(t)
	err := j.SendToSpooler("anywhere")
	if !errors.Is(err, ErrSpoolerNotFound) {
		t.Fatalf("SendToSpooler error = %v, want ErrSpoolerNotFound", err)
	}
}

func TestSendToSpoolerClientFails(t *testing.T) {
	origLookPath, origExecCommand := lookPath, execCommand
	defer func() { lookPath, execCommand = origLookPath, origExecCommand }()

	lookPath = func(file string) (string, error) { return "/bin/false", nil }
	execCommand = func(name string, args ...string) *exec.Cmd {
		return exec.Command("false")
	}

	j := readyJob(t)
	err := j.SendToSpooler("anywhere")
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("SendToSpooler error = %v, want ErrTransport", err)
	}
}

func TestSendToSpoolerRequiresEndJob(t *testing.T) {
	j, _ := newRecordedJob(DefaultJobConfig())
	if err := j.SendToSpooler("anywhere"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("SendToSpooler before EndJob error = %v, want ErrInvalidState", err)
	}
}
