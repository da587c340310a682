package ml

// Producing method tags for predictions.
const (
	MethodRule     = "rule"
	MethodEnsemble = "ensemble"
)

// Prediction is the result of classifying one column. It is created fresh
// per call and never cached across columns.
//
// Confidence calibration convention: ensemble confidences are weighted
// probability averages in [0,1] whose distribution sums to 1 before any
// domain boost. Rule confidences are fixed severity scores in [0,1] on
// their own scale; a rule distribution carries only the winning label and
// is not required to sum to 1.
type Prediction struct {
	Label        string             `json:"label"`
	Confidence   float64            `json:"confidence"`
	Distribution map[string]float64 `json:"distribution"`
	Method       string             `json:"method"`
	Reason       string             `json:"reason,omitempty"`
}
