// Package cadence decides when the next touch of an outreach sequence may be
// sent, based on how the recipient engaged with the previous one.
//
// The policy is a pure function over an engagement Snapshot: no clocks, no
// storage, no side effects. Callers pass the current time explicitly, which
// keeps the policy trivially testable and safe to evaluate speculatively.
//
// Rules, applied to the step's configured base delay:
//
//   - the delay never drops below MinFollowupDelay (36h)
//   - a click on the previous message earns ClickBonus (-12h)
//   - no open and no click adds NoEngagementPenalty (+24h), and another
//     FinalTouchPenalty (+24h) from the third touch onward
//   - an open without a click leaves the base delay unchanged
//
// A click takes precedence over the open state: clicking implies engagement
// regardless of whether an open event was recorded.
package cadence
