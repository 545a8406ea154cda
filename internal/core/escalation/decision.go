package escalation

import (
	"fmt"
	"math"
)

// Decision thresholds.
const (
	HighValueAmount         = 25000.0
	HighFraudScore          = 50.0
	MediumFraudScore        = 25.0
	MinDocuments            = 2
	ComplexAccidentAmount   = 10000.0
	RepeatedEscalationCount = 1
	LowVoiceConfidence      = 0.6
	SignificantAmount       = 5000.0
)

// ClaimTypeAccident is the claim type checked by the complex-accident rule.
const ClaimTypeAccident = "accident"

// Reasons returned by the decision cascade.
const (
	ReasonHighValue         = "high-value claim requires human review"
	ReasonHighFraudRisk     = "high fraud risk"
	ReasonMediumRiskDocs    = "medium risk + insufficient docs"
	ReasonComplexAccident   = "complex accident"
	ReasonRepeated          = "repeated escalations"
	ReasonLowVoice          = "low voice confidence on significant claim"
	ReasonAutomated         = "meets automated processing criteria"
	ReasonEvaluationFailure = "error in automated processing"
)

// ClaimFacts are the claim attributes the decision engine reads.
type ClaimFacts struct {
	Type            string
	EstimatedAmount float64
	DocumentCount   int
	FraudScore      *float64 // Stored score, used when no explicit score is passed
	VoiceConfidence *float64 // Nil when the claim was not filed by voice
	EscalationCount int      // Escalations opened or raised for the claim so far
}

// Decision is the outcome of ShouldEscalate.
type Decision struct {
	ShouldEscalate bool
	Reason         string
	Level          int
	Rule           string // Name of the rule that matched
	Err            error  // Set when the engine failed safe
}

type rule struct {
	name   string
	level  int
	reason string
	match  func(c ClaimFacts, fraud *float64) bool
}

// rules is evaluated in order and the first match wins. The order is part of
// the contract: a high-value claim with a high fraud score stays at level 2.
var rules = []rule{
	{
		name:   "high_value",
		level:  2,
		reason: ReasonHighValue,
		match: func(c ClaimFacts, _ *float64) bool {
			return c.EstimatedAmount > HighValueAmount
		},
	},
	{
		name:   "high_fraud_risk",
		level:  3,
		reason: ReasonHighFraudRisk,
		match: func(_ ClaimFacts, fraud *float64) bool {
			return fraud != nil && *fraud >= HighFraudScore
		},
	},
	{
		name:   "medium_risk_insufficient_docs",
		level:  2,
		reason: ReasonMediumRiskDocs,
		match: func(c ClaimFacts, fraud *float64) bool {
			return fraud != nil && *fraud >= MediumFraudScore && c.DocumentCount < MinDocuments
		},
	},
	{
		name:   "complex_accident",
		level:  2,
		reason: ReasonComplexAccident,
		match: func(c ClaimFacts, _ *float64) bool {
			return c.Type == ClaimTypeAccident && c.EstimatedAmount > ComplexAccidentAmount
		},
	},
	{
		name:   "repeated_escalations",
		level:  3,
		reason: ReasonRepeated,
		match: func(c ClaimFacts, _ *float64) bool {
			return c.EscalationCount > RepeatedEscalationCount
		},
	},
	{
		name:   "low_voice_confidence",
		level:  2,
		reason: ReasonLowVoice,
		match: func(c ClaimFacts, _ *float64) bool {
			return c.VoiceConfidence != nil && *c.VoiceConfidence < LowVoiceConfidence && c.EstimatedAmount >= SignificantAmount
		},
	},
}

// RuleOrder returns the rule names in evaluation order.
func RuleOrder() []string {
	names := make([]string, len(rules))
	for i, r := range rules {
		names[i] = r.name
	}
	return names
}

// ShouldEscalate runs the decision cascade for a claim.
// fraudScore overrides the claim's stored score when non-nil.
// Any evaluation failure escalates to level 2: an unnecessary human review is
// preferred over silently automating a claim.
func ShouldEscalate(claim ClaimFacts, fraudScore *float64) Decision {
	d, err := evaluate(claim, fraudScore)
	if err != nil {
		return Decision{
			ShouldEscalate: true,
			Reason:         ReasonEvaluationFailure,
			Level:          2,
			Rule:           "fail_safe",
			Err:            err,
		}
	}
	return d
}

func evaluate(claim ClaimFacts, fraudScore *float64) (d Decision, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("decision rule panicked: %v", r)
		}
	}()

	if fraudScore == nil {
		fraudScore = claim.FraudScore
	}
	if err := validateFacts(claim, fraudScore); err != nil {
		return Decision{}, err
	}

	for _, r := range rules {
		if r.match(claim, fraudScore) {
			return Decision{
				ShouldEscalate: true,
				Reason:         r.reason,
				Level:          r.level,
				Rule:           r.name,
			}, nil
		}
	}

	return Decision{
		ShouldEscalate: false,
		Reason:         ReasonAutomated,
		Level:          1,
		Rule:           "automated",
	}, nil
}

func validateFacts(c ClaimFacts, fraud *float64) error {
	if math.IsNaN(c.EstimatedAmount) || math.IsInf(c.EstimatedAmount, 0) || c.EstimatedAmount < 0 {
		return fmt.Errorf("invalid estimated amount %v", c.EstimatedAmount)
	}
	if c.DocumentCount < 0 {
		return fmt.Errorf("invalid document count %d", c.DocumentCount)
	}
	if c.EscalationCount < 0 {
		return fmt.Errorf("invalid escalation count %d", c.EscalationCount)
	}
	if fraud != nil && (math.IsNaN(*fraud) || *fraud < 0 || *fraud > 100) {
		return fmt.Errorf("fraud score %v outside 0-100", *fraud)
	}
	if v := c.VoiceConfidence; v != nil && (math.IsNaN(*v) || *v < 0 || *v > 1) {
		return fmt.Errorf("voice confidence %v outside 0-1", *v)
	}
	return nil
}
