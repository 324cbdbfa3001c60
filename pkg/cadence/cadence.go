package cadence

import "time"

// Timing policy constants. All adjustments are applied to the configured
// base delay and the result never drops below MinFollowupDelay.
const (
	// MinFollowupDelay is the hard floor between consecutive touches.
	MinFollowupDelay = 36 * time.Hour

	// ClickBonus is subtracted from the delay when the recipient clicked
	// the previous message. Engaged recipients get faster follow-ups.
	ClickBonus = 12 * time.Hour

	// NoEngagementPenalty is added to the delay when the previous message
	// was neither opened nor clicked.
	NoEngagementPenalty = 24 * time.Hour

	// FinalTouchPenalty is added on top of NoEngagementPenalty from the
	// third touch onward, backing off harder on unresponsive recipients.
	FinalTouchPenalty = 24 * time.Hour
)

// Snapshot captures a recipient's engagement state at decision time.
// Step counts messages already sent; the engagement timestamps refer to the
// most recent message.
type Snapshot struct {
	Step          int
	LastSentAt    *time.Time
	LastOpenedAt  *time.Time
	LastClickedAt *time.Time
}

// Decision is the outcome of a readiness check.
type Decision struct {
	// Due reports whether the next touch may be sent now.
	Due bool

	// RequiredDelay is the full delay the policy demands after the last send.
	RequiredDelay time.Duration

	// Remaining is how long until the touch becomes due. Zero when Due.
	Remaining time.Duration
}

// RequiredDelay computes the delay the policy demands between the last send
// and the next touch, given the engagement snapshot and the configured base
// delay of the sequence step.
func RequiredDelay(s Snapshot, base time.Duration) time.Duration {
	delay := max(base, MinFollowupDelay)

	switch {
	case s.LastClickedAt != nil:
		delay = max(delay-ClickBonus, MinFollowupDelay)
	case s.LastOpenedAt == nil:
		delay += NoEngagementPenalty
		if s.Step >= 2 {
			delay += FinalTouchPenalty
		}
	}

	return delay
}

// Readiness reports whether the next touch is due at now. The first touch of
// a sequence has nothing to wait for and is always due.
func Readiness(s Snapshot, base time.Duration, now time.Time) Decision {
	if s.Step <= 0 || s.LastSentAt == nil {
		return Decision{Due: true}
	}

	required := RequiredDelay(s, base)
	dueAt := s.LastSentAt.Add(required)

	if now.Before(dueAt) {
		return Decision{
			Due:           false,
			RequiredDelay: required,
			Remaining:     dueAt.Sub(now),
		}
	}

	return Decision{
		Due:           true,
		RequiredDelay: required,
	}
}
