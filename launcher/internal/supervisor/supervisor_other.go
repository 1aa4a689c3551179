//go:build !unix

package supervisor

import (
	"errors"

	"github.com/obot-platform/redirect-launcher/launcher/internal/logger"
)

var errUnsupported = errors.New("redirected launches require a unix system")

type Supervisor struct {
	log *logger.Logger
	rec Recorder
}

func New(opts Options, log *logger.Logger, rec Recorder) *Supervisor {
	if log == nil {
		log = logger.Nop()
	}
	if rec == nil {
		rec = nopRecorder{}
	}
	return &Supervisor{log: log, rec: rec}
}

func (s *Supervisor) Launch(stdoutPath, stderrPath, path string, argv []string) Result {
	s.log.Error("failed to launch child process", "path", path, "error", errUnsupported)
	res := failed(OutcomeSetupFailed, ExitSetupFailure, errUnsupported)
	s.rec.ObserveLaunch(res.Outcome.String(), res.ExitCode, 0)
	return res
}
