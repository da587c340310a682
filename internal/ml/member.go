// Package ml holds the trainable ensemble members, the read-only model
// bank, and the ensemble classifier that combines member votes with the
// rule fallback.
package ml

import (
	"encoding/json"
	"fmt"
)

// Member is one independently trained classifier in the ensemble. All
// members share the feature extractor's vector space and emit probability
// vectors indexed by the bound vocabulary.
//
// Fit must be deterministic for a given seed. Proba must be safe for
// concurrent use after Fit or Restore and always return nClasses entries.
type Member interface {
	Name() string
	Fit(X [][]float64, y []int, nClasses int, seed int64) error
	Proba(x []float64) []float64
	Params() (json.RawMessage, error)
	Restore(params json.RawMessage) error
}

// Member names used in persisted artifacts.
const (
	MemberTree     = "decision_tree"
	MemberLogistic = "logistic"
	MemberCentroid = "centroid"
)

// DefaultMembers returns a fresh, untrained instance of every ensemble
// member.
func DefaultMembers() []Member {
	return []Member{
		NewDecisionTree(),
		NewLogistic(),
		NewCentroid(),
	}
}

// NewMemberByName returns an untrained member for a persisted artifact
// entry. Unknown names are a contract violation.
func NewMemberByName(name string) (Member, error) {
	switch name {
	case MemberTree:
		return NewDecisionTree(), nil
	case MemberLogistic:
		return NewLogistic(), nil
	case MemberCentroid:
		return NewCentroid(), nil
	default:
		return nil, fmt.Errorf("unknown ensemble member %q", name)
	}
}

func uniformProba(n int) []float64 {
	p := make([]float64, n)
	if n == 0 {
		return p
	}
	for i := range p {
		p[i] = 1 / float64(n)
	}
	return p
}
