package models

// AIAnnotation is the screening verdict produced for a complaint after
// submission. It is written onto the complaint record once and never
// overwritten.
type AIAnnotation struct {
	Sentiment string `json:"sentiment"`
	Toxicity  bool   `json:"toxicity"`
	RiskScore int    `json:"riskScore"`
	Duplicate bool   `json:"duplicate"`
}

const (
	SentimentLow      = "Low"
	SentimentModerate = "Moderate"
	SentimentHighRisk = "High Risk"
)
