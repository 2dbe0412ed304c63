package timingutils

import (
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
)

var showTimingLogs atomic.Bool

// SetShowTimingLogs toggles the timing logs produced by GetDeferrableTimingLogger. It is set from the client configuration.
func SetShowTimingLogs(show bool) {
	showTimingLogs.Store(show)
}

// GetDeferrableTimingLogger creates a logger function that starts a timer when called and ends the timer when the calling function ends and logs (at debug level) the time diff.
func GetDeferrableTimingLogger(message string) func() {
	if !showTimingLogs.Load() {
		return func() {}
	}

	start := time.Now()
	return func() {
		log.Debugf("%v: %v", message, time.Since(start))
	}
}
