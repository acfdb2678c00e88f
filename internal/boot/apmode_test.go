package boot

import "testing"

func TestLogAPModeStartedDoesNotPanic(t *testing.T) {
	LogAPModeStarted("a1b2c3")
}
