package ensemble

import "github.com/AjayAlluri/realtime-fraud-detection/internal/domain"

// Probability boundaries shared by the decision policy and risk bucketing.
const (
	declineThreshold = 0.95
	reviewThreshold  = 0.80
	monitorThreshold = 0.60
	lowRiskThreshold = 0.30
)

// Decide maps the combined score to a business decision. Low ensemble
// confidence takes precedence over every probability band: an uncertain
// score routes to human review no matter how extreme it is.
func Decide(prob, confidence, confidenceThreshold float64) domain.Decision {
	if confidence < confidenceThreshold {
		return domain.DecisionReview
	}
	switch {
	case prob >= declineThreshold:
		return domain.DecisionDecline
	case prob >= reviewThreshold:
		return domain.DecisionReview
	case prob >= monitorThreshold:
		return domain.DecisionApproveMonitoring
	default:
		return domain.DecisionApprove
	}
}

// RiskOf buckets the fraud probability for reporting. Unlike the decision,
// it ignores confidence entirely.
func RiskOf(prob float64) domain.RiskLevel {
	switch {
	case prob >= declineThreshold:
		return domain.RiskCritical
	case prob >= reviewThreshold:
		return domain.RiskHigh
	case prob >= monitorThreshold:
		return domain.RiskMedium
	case prob >= lowRiskThreshold:
		return domain.RiskLow
	default:
		return domain.RiskVeryLow
	}
}
