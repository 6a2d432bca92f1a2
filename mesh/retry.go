package mesh

import (
	"time"

	"github.com/meshrelay/beacon/storage"
)

// retryEntry tracks one outstanding send that failed to reach any
// connected peer on its first attempt. It holds the already-serialized
// envelope bytes so a retry re-uses the exact same message_id and ttl,
// letting flood-relay duplicate suppression work across attempts.
type retryEntry struct {
	msg         storage.Message
	envelope    []byte
	attempts    int
	nextAttempt time.Time
}

// backoff computes the delay before the (attempts+1)-th retry attempt,
// per the documented base * 2^attempts schedule.
func backoff(base time.Duration, attempts int) time.Duration {
	return base * time.Duration(1<<uint(attempts))
}
