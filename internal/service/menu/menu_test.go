package menu

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"
)

func TestRun_ExitChoice(t *testing.T) {
	var out strings.Builder

	service := NewMenuService(nil, nil, nil, strings.NewReader("5\n"), &out)
	service.Run(context.Background())

	if !strings.Contains(out.String(), "Exiting...") {
		t.Errorf("output missing exit confirmation: %q", out.String())
	}
}

func TestRun_ReturnsOnContextCancel(t *testing.T) {
	// a reader that never yields a line, like an idle terminal
	pr, pw := io.Pipe()
	defer pw.Close()

	service := NewMenuService(nil, nil, nil, pr, io.Discard)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		service.Run(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after context cancellation while blocked on input")
	}
}
