package domain

// RecommendationAction is the headline verdict on a deal.
type RecommendationAction string

const (
	ActionStrongBuy RecommendationAction = "strong-buy"
	ActionBuy       RecommendationAction = "buy"
	ActionHold      RecommendationAction = "hold"
	ActionPass      RecommendationAction = "pass"
)

// Recommendation is the service's read on an underwriting result: the
// action plus the metric thresholds that drove it.
type Recommendation struct {
	Action    RecommendationAction `json:"action"`
	Rationale []string             `json:"rationale"`
}
