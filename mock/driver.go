package mock

import (
	"github.com/rs/zerolog/log"

	"gitlab.com/browserstep/harness"
)

// MakeMockDriver wraps sess with short defaults suitable for tests
func MakeMockDriver(sess harness.Session) *harness.Driver {
	logger := log.With().
		Str("env", "mock").
		Logger()
	return harness.NewDriver(sess, harness.Options{
		Timeout: harness.Millis(500),
		Poll:    harness.Millis(20),
	}, &logger)
}
