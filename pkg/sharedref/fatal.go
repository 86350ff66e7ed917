package sharedref

import (
	"github.com/rs/zerolog/log"
)

// fatalf terminates the process. Counter overflow means a refcount is about
// to wrap around into a use-after-free, which no caller can recover from;
// the policy is the same abrupt stop an allocator exhaustion would cause.
// Variable only so the overflow paths stay testable in principle.
var fatalf = func(format string, args ...any) {
	log.Fatal().Msgf(format, args...)
}

func overflowAbort(counter string) {
	fatalf("[sharedref] %s refcount overflow, terminating", counter)
}
