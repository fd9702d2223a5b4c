package crosspack

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunInterruptible_ReturnsWorkResult(t *testing.T) {
	assert.NoError(t, RunInterruptible(context.Background(), func(ctx context.Context) error {
		return nil
	}))

	failure := errors.New("failure")
	assert.Equal(t, failure, RunInterruptible(context.Background(), func(ctx context.Context) error {
		return failure
	}))
}

func TestSigtermService_Stop(t *testing.T) {
	s := SigtermService{}
	s.Init()
	done := make(chan error)
	go func() {
		done <- s.Start()
	}()

	s.Stop(nil)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sigterm service did not stop")
	}
}

func TestRunInterruptible_SignalCancelsWork(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("interrupt cannot be sent to the own process on windows")
	}
	// a registered channel keeps SIGINT from killing the test binary before
	// the sigterm service is listening
	guard := make(chan os.Signal, 1)
	signal.Notify(guard, os.Interrupt)

	self, err := os.FindProcess(os.Getpid())
	require.NoError(t, err)

	started := make(chan struct{})
	done := make(chan struct{})
	var sender sync.WaitGroup
	sender.Add(1)
	go func() {
		defer sender.Done()
		<-started
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				_ = self.Signal(os.Interrupt)
			}
		}
	}()

	err = RunInterruptible(context.Background(), func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	close(done)
	sender.Wait()

	assert.Equal(t, ErrInterrupted, err)
}
