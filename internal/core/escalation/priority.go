package escalation

import "github.com/example/claimdesk/internal/core/effects"

// CalculatePriorityScore returns a queue ordering hint. It is never persisted.
// A zero amount or wait time means "not known" and adds nothing.
func CalculatePriorityScore(u Urgency, claimAmount, waitHours float64) int {
	score := 0
	switch u {
	case UrgencyCritical:
		score = 100
	case UrgencyHigh:
		score = 75
	case UrgencyMedium:
		score = 50
	default:
		score = 25
	}

	switch {
	case claimAmount > 50000:
		score += 30
	case claimAmount > 25000:
		score += 20
	case claimAmount > 10000:
		score += 10
	}

	if waitHours > 0 {
		score += int(min(25, waitHours*5))
	}

	return score
}

// PriorityForScore buckets a priority score into a queue priority.
func PriorityForScore(score int) effects.Priority {
	switch {
	case score >= 100:
		return effects.PriorityUrgent
	case score >= 75:
		return effects.PriorityHigh
	case score >= 50:
		return effects.PriorityMedium
	default:
		return effects.PriorityLow
	}
}
