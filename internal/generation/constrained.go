package generation

import (
	"context"

	"charforge/internal/logging"
)

// ExtendFunc decides whether another round of attempts should run for a
// field after the current round is exhausted. Returning false abandons
// the field.
type ExtendFunc func(field string) bool

// Constrained runs gen up to attemptsPerRound times and returns the
// first value satisfying accept. When a round is exhausted, extend is
// consulted; a nil or declining extend abandons the field and the zero
// value is returned with ok=false. Generation errors count as failed
// attempts rather than aborting the round.
func Constrained[T any](ctx context.Context, field string, attemptsPerRound int,
	gen func(context.Context) (T, error), accept func(T) bool, extend ExtendFunc) (T, bool) {

	var zero T
	if attemptsPerRound < 1 {
		attemptsPerRound = 1
	}

	for round := 1; ; round++ {
		for attempt := 1; attempt <= attemptsPerRound; attempt++ {
			if ctx.Err() != nil {
				return zero, false
			}
			value, err := gen(ctx)
			if err != nil {
				logging.GenerationWarn("field %s round %d attempt %d/%d failed: %v",
					field, round, attempt, attemptsPerRound, err)
				continue
			}
			if accept(value) {
				logging.Generation("field %s accepted on round %d attempt %d",
					field, round, attempt)
				return value, true
			}
			logging.GenerationDebug("field %s round %d attempt %d/%d rejected by constraint",
				field, round, attempt, attemptsPerRound)
		}
		if extend == nil || !extend(field) {
			logging.GenerationWarn("field %s abandoned after round %d", field, round)
			return zero, false
		}
	}
}
