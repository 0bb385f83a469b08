package mcp

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestServer_Run_StdioMode(t *testing.T) {
	server, _ := newTestServer(t, sampleExtraction(), "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	// Under go test stdin is closed, so stdio serving returns at EOF.
	done := make(chan error, 1)
	go func() {
		done <- server.Run(ctx)
	}()

	select {
	case err := <-done:
		if err != nil && !strings.Contains(err.Error(), "context") {
			t.Errorf("Run() error = %v, expected clean exit or context error", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return in stdio mode")
	}
}

func TestServer_Run_ServerMode(t *testing.T) {
	server, _ := newTestServer(t, sampleExtraction(), "")
	server.config.Mode = "server"
	server.config.Port = 18473

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- server.Run(ctx)
	}()

	// Give the SSE server a moment to start, then trigger shutdown.
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v, expected graceful shutdown", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run() did not return after context cancellation")
	}
}

func TestServer_Run_ServerModePortConflict(t *testing.T) {
	first, _ := newTestServer(t, sampleExtraction(), "")
	first.config.Mode = "server"
	first.config.Port = 18474

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- first.Run(ctx)
	}()
	time.Sleep(100 * time.Millisecond)

	// A second server on the same port must fail fast with a bind error.
	second, _ := newTestServer(t, sampleExtraction(), "")
	second.config.Mode = "server"
	second.config.Port = 18474

	err := second.Run(context.Background())
	if err == nil {
		t.Error("Run() expected error for port conflict")
	}

	cancel()
	select {
	case <-firstDone:
	case <-time.After(10 * time.Second):
		t.Fatal("first server did not shut down")
	}
}
