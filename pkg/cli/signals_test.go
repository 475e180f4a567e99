package cli

import (
	"os"
	"syscall"
	"testing"
	"time"
)

func TestSetupSignalHandlerInitiallyLive(t *testing.T) {
	ctx := SetupSignalHandler()

	select {
	case <-ctx.Done():
		t.Error("context cancelled before any signal")
	default:
	}
}

func TestSetupSignalHandlerCancelsOnSignal(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping signal delivery in short mode")
	}

	ctx := SetupSignalHandler()

	// One signal only: a second would exit the test process.
	p, err := os.FindProcess(os.Getpid())
	if err != nil {
		t.Fatalf("finding own process: %v", err)
	}
	if err := p.Signal(syscall.SIGTERM); err != nil {
		t.Fatalf("sending SIGTERM: %v", err)
	}

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Error("context not cancelled after SIGTERM")
	}
}
