package crosspack

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/n0rad/go-erlog/logs"
)

type SigtermService struct {
	stop chan struct{}
}

func (s *SigtermService) Init() {
	s.stop = make(chan struct{})
}

// Start blocks until SIGINT/SIGTERM, returning ErrInterrupted, or until Stop.
func (s SigtermService) Start() error {
	term := make(chan os.Signal, 1)
	signal.Notify(term, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(term)

	select {
	case sig := <-term:
		logs.WithField("signal", sig.String()).Warn("Received signal, stopping")
		return ErrInterrupted
	case <-s.stop:
		return nil
	}
}

func (s SigtermService) Stop(e error) {
	close(s.stop)
}
