package infra

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"
)

// GoRecoverable runs f, restarting it after a panic until maxPanics is spent.
// A negative maxPanics restarts forever. Each panic is reported to Sentry when it is configured.
func GoRecoverable(maxPanics int, id string, f func()) {
	defer func() {
		if err := recover(); err != nil {
			entry := log.WithField("job", id).WithField("site", panicSite())
			entry.Errorf("recovered from panic: %v", err)
			sentry.CurrentHub().Recover(err)

			switch {
			case maxPanics == 0:
				entry.Fatalln("out of restarts")
			case maxPanics > 0:
				maxPanics--
			}
			entry.WithField("restarts_left", maxPanics).Debug("restarting job")
			go GoRecoverable(maxPanics, id, f)
		}
	}()
	f()
}

// panicSite names the first non-runtime frame above the deferred recover.
func panicSite() string {
	pcs := make([]uintptr, 16)
	frames := runtime.CallersFrames(pcs[:runtime.Callers(3, pcs)])
	for {
		frame, more := frames.Next()
		if frame.Function != "" && !strings.HasPrefix(frame.Function, "runtime.") {
			return fmt.Sprintf("%s:%d", frame.Function, frame.Line)
		}
		if !more {
			return "unknown"
		}
	}
}
