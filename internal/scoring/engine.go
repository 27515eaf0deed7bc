// Package scoring assigns each case a recovery-likelihood score. The model is
// a fixed, auditable logistic-regression formula, not a trained artifact: the
// coefficients below are policy and change only through review.
package scoring

import (
	"math"

	"recoup/pkg/domain"
)

// Coefficients of the linear combination feeding the sigmoid.
const (
	intercept        = 2.5
	amountCoeff      = -0.0001
	daysOverdueCoeff = -0.05
)

var regionEffects = map[domain.Region]float64{
	domain.RegionEMEA:  0.2,
	domain.RegionAPAC:  -0.1,
	domain.RegionLATAM: -0.3,
	// NA and anything unrecognized contribute zero.
}

// Priority thresholds on the 0-100 score, checked high-first so boundary
// values land in the higher bucket.
const (
	highThreshold   = 80
	mediumThreshold = 40
)

// Features are the inputs to a single scoring call. Callers sanitize upstream;
// the engine still clamps so malformed rows can never yield NaN or a negative
// probability.
type Features struct {
	Amount      float64
	DaysOverdue int
	Region      domain.Region
}

// Contribution reports one feature's signed effect on the z value, in the
// fixed order amount, days overdue, region. Kept for auditability only.
type Contribution struct {
	Feature      string  `json:"feature"`
	Value        float64 `json:"value"`
	Contribution float64 `json:"contribution"`
}

// Result is the full scoring outcome. Score and Probability are always
// consistent: Score == round(Probability*100).
type Result struct {
	Probability float64         `json:"probability"`
	Score       int             `json:"score"`
	Priority    domain.Priority `json:"priority"`
	ZScore      float64         `json:"z_score"`
	Explanation []Contribution  `json:"explanation"`
}

// Engine is stateless; the zero value is ready to use and safe for concurrent
// callers.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// Score computes probability, score, priority, and the per-feature breakdown.
// Pure and deterministic: same features, same result.
func (e *Engine) Score(f Features) Result {
	amount := math.Abs(f.Amount)
	days := f.DaysOverdue
	if days < 0 {
		days = 0
	}

	z := intercept
	explanation := make([]Contribution, 0, 3)

	amountEffect := amount * amountCoeff
	z += amountEffect
	explanation = append(explanation, Contribution{
		Feature:      "Invoice Amount",
		Value:        amount,
		Contribution: amountEffect,
	})

	daysEffect := float64(days) * daysOverdueCoeff
	z += daysEffect
	explanation = append(explanation, Contribution{
		Feature:      "Days Overdue",
		Value:        float64(days),
		Contribution: daysEffect,
	})

	regionEffect := regionEffects[f.Region]
	z += regionEffect
	explanation = append(explanation, Contribution{
		Feature:      "Region Risk",
		Value:        0,
		Contribution: regionEffect,
	})

	probability := sigmoid(z)
	score := int(math.Round(probability * 100))

	return Result{
		Probability: probability,
		Score:       score,
		Priority:    PriorityForScore(score),
		ZScore:      z,
		Explanation: explanation,
	}
}

// PriorityForScore maps a 0-100 score onto a priority bucket. Thresholds are
// inclusive on the lower bound and checked in descending order.
func PriorityForScore(score int) domain.Priority {
	switch {
	case score >= highThreshold:
		return domain.PriorityHigh
	case score >= mediumThreshold:
		return domain.PriorityMedium
	default:
		return domain.PriorityLow
	}
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
