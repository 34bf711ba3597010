package ban

import "time"

// Policy holds the thresholds a verdict is computed against.
type Policy struct {
	MaxAttempts   int
	BanDuration   time.Duration
	AttemptWindow time.Duration
}

// State is the derived ban verdict for one identifier. It is computed,
// never stored: the attempt timestamps are the source of truth.
type State struct {
	Banned       bool
	BannedUntil  time.Time
	AttemptCount int
}

// Derive computes the verdict for the given failed-attempt timestamps.
// Timestamps must already be pruned to the attempt window and sorted
// ascending. The ban anchor is the MaxAttempts-th most recent attempt, so
// additional failures during an active ban slide the anchor forward and
// may extend BannedUntil, but never shorten it.
//
// The second return value reports a lapsed ban: the threshold was reached
// but the ban window has passed. Callers should clear the identifier's
// records when it is true so the count restarts from zero.
func Derive(timestamps []time.Time, policy Policy, now time.Time) (State, bool) {
	count := len(timestamps)
	if policy.MaxAttempts <= 0 || count < policy.MaxAttempts {
		return State{AttemptCount: count}, false
	}

	anchor := timestamps[count-policy.MaxAttempts]
	until := anchor.Add(policy.BanDuration)
	if now.Before(until) {
		return State{
			Banned:       true,
			BannedUntil:  until,
			AttemptCount: count,
		}, false
	}
	return State{}, true
}

// Merge combines the local verdict with the remote advisory verdict:
// banned is the logical OR, BannedUntil the later of the two, and
// AttemptCount the max. A zero-value remote State (advisory degraded or
// absent) leaves the local verdict unchanged.
func Merge(local, remote State) State {
	merged := State{
		Banned:      local.Banned || remote.Banned,
		BannedUntil: local.BannedUntil,
	}
	if remote.BannedUntil.After(merged.BannedUntil) {
		merged.BannedUntil = remote.BannedUntil
	}
	merged.AttemptCount = local.AttemptCount
	if remote.AttemptCount > merged.AttemptCount {
		merged.AttemptCount = remote.AttemptCount
	}
	return merged
}

// Remaining returns the seconds left on a ban, never negative.
func Remaining(state State, now time.Time) time.Duration {
	if !state.Banned || !now.Before(state.BannedUntil) {
		return 0
	}
	return state.BannedUntil.Sub(now)
}
