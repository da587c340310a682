package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
)

// Logistic is a one-vs-rest logistic regression trained with full-batch
// gradient descent on standardized features. Weights are initialized from
// the training seed so refitting with the same data and seed reproduces
// the same parameters.
type Logistic struct {
	Epochs int
	LR     float64

	NClasses int
	W        [][]float64 // nClasses x nFeatures
	B        []float64
	Mean     []float64
	Std      []float64
}

func NewLogistic() *Logistic {
	return &Logistic{Epochs: 150, LR: 0.5}
}

func (m *Logistic) Name() string { return MemberLogistic }

func (m *Logistic) Fit(X [][]float64, y []int, nClasses int, seed int64) error {
	if len(X) == 0 || len(X) != len(y) {
		return errors.New("logistic: empty or mismatched training data")
	}
	if nClasses <= 0 {
		return errors.New("logistic: invalid class count")
	}
	nFeatures := len(X[0])
	m.NClasses = nClasses
	m.Mean, m.Std = standardizeParams(X)
	Z := standardizeAll(X, m.Mean, m.Std)

	rnd := rand.New(rand.NewSource(seed))
	m.W = make([][]float64, nClasses)
	m.B = make([]float64, nClasses)
	for c := range m.W {
		m.W[c] = make([]float64, nFeatures)
		for j := range m.W[c] {
			m.W[c][j] = rnd.NormFloat64() * 0.01
		}
	}

	n := float64(len(Z))
	for epoch := 0; epoch < m.Epochs; epoch++ {
		for c := 0; c < nClasses; c++ {
			gW := make([]float64, nFeatures)
			gB := 0.0
			for i, row := range Z {
				target := 0.0
				if y[i] == c {
					target = 1.0
				}
				d := sigmoid(dot(m.W[c], row)+m.B[c]) - target
				for j, x := range row {
					gW[j] += d * x
				}
				gB += d
			}
			for j := range m.W[c] {
				m.W[c][j] -= m.LR * gW[j] / n
			}
			m.B[c] -= m.LR * gB / n
		}
	}
	return nil
}

// Proba returns the per-class one-vs-rest scores normalized to sum to 1.
// Before Fit or Restore the answer is uniform over the known class
// count.
func (m *Logistic) Proba(x []float64) []float64 {
	if len(m.W) == 0 {
		return uniformProba(m.NClasses)
	}
	z := standardize(x, m.Mean, m.Std)
	scores := make([]float64, len(m.W))
	var sum float64
	for c := range m.W {
		scores[c] = sigmoid(dot(m.W[c], z) + m.B[c])
		sum += scores[c]
	}
	if sum == 0 {
		return uniformProba(len(m.W))
	}
	for c := range scores {
		scores[c] /= sum
	}
	return scores
}

type logisticParams struct {
	Epochs   int         `json:"epochs"`
	LR       float64     `json:"lr"`
	NClasses int         `json:"n_classes"`
	W        [][]float64 `json:"w"`
	B        []float64   `json:"b"`
	Mean     []float64   `json:"mean"`
	Std      []float64   `json:"std"`
}

func (m *Logistic) Params() (json.RawMessage, error) {
	return json.Marshal(logisticParams{
		Epochs: m.Epochs, LR: m.LR, NClasses: m.NClasses,
		W: m.W, B: m.B, Mean: m.Mean, Std: m.Std,
	})
}

func (m *Logistic) Restore(params json.RawMessage) error {
	var p logisticParams
	if err := json.Unmarshal(params, &p); err != nil {
		return fmt.Errorf("logistic: decode params: %w", err)
	}
	if len(p.W) == 0 || len(p.W) != len(p.B) {
		return errors.New("logistic: incomplete params")
	}
	m.Epochs, m.LR = p.Epochs, p.LR
	m.NClasses = p.NClasses
	if m.NClasses == 0 {
		m.NClasses = len(p.W)
	}
	m.W, m.B, m.Mean, m.Std = p.W, p.B, p.Mean, p.Std
	return nil
}

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

func dot(w, x []float64) float64 {
	var s float64
	for j := range w {
		s += w[j] * x[j]
	}
	return s
}

// standardizeParams computes per-feature mean and std over the training
// matrix. Constant features get std 1 so standardization is a no-op for
// them.
func standardizeParams(X [][]float64) (mean, std []float64) {
	nFeatures := len(X[0])
	mean = make([]float64, nFeatures)
	std = make([]float64, nFeatures)
	n := float64(len(X))
	for _, row := range X {
		for j, x := range row {
			mean[j] += x
		}
	}
	for j := range mean {
		mean[j] /= n
	}
	for _, row := range X {
		for j, x := range row {
			d := x - mean[j]
			std[j] += d * d
		}
	}
	for j := range std {
		std[j] = math.Sqrt(std[j] / n)
		if std[j] == 0 {
			std[j] = 1
		}
	}
	return mean, std
}

func standardizeAll(X [][]float64, mean, std []float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		out[i] = standardize(row, mean, std)
	}
	return out
}

func standardize(x, mean, std []float64) []float64 {
	z := make([]float64, len(x))
	for j := range x {
		if j < len(mean) {
			z[j] = (x[j] - mean[j]) / std[j]
		}
	}
	return z
}
