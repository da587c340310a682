package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// Centroid is a nearest-centroid classifier in standardized feature
// space. Class scores are a softmax over negative euclidean distances,
// so the output is a proper distribution.
type Centroid struct {
	Centroids [][]float64 // nClasses x nFeatures; nil row = class unseen in training
	Mean      []float64
	Std       []float64
}

func NewCentroid() *Centroid { return &Centroid{} }

func (m *Centroid) Name() string { return MemberCentroid }

// Fit computes per-class mean vectors. Deterministic; the seed is unused.
func (m *Centroid) Fit(X [][]float64, y []int, nClasses int, seed int64) error {
	_ = seed
	if len(X) == 0 || len(X) != len(y) {
		return errors.New("centroid: empty or mismatched training data")
	}
	if nClasses <= 0 {
		return errors.New("centroid: invalid class count")
	}
	m.Mean, m.Std = standardizeParams(X)
	Z := standardizeAll(X, m.Mean, m.Std)

	m.Centroids = make([][]float64, nClasses)
	counts := make([]float64, nClasses)
	for i, row := range Z {
		c := y[i]
		if m.Centroids[c] == nil {
			m.Centroids[c] = make([]float64, len(row))
		}
		for j, x := range row {
			m.Centroids[c][j] += x
		}
		counts[c]++
	}
	for c := range m.Centroids {
		if m.Centroids[c] == nil {
			continue
		}
		for j := range m.Centroids[c] {
			m.Centroids[c][j] /= counts[c]
		}
	}
	return nil
}

func (m *Centroid) Proba(x []float64) []float64 {
	n := len(m.Centroids)
	if n == 0 {
		return nil
	}
	z := standardize(x, m.Mean, m.Std)

	// Softmax over negative distances, shifted by the minimum distance
	// for numeric stability. Unseen classes score zero.
	dists := make([]float64, n)
	minDist := math.Inf(1)
	for c, centroid := range m.Centroids {
		if centroid == nil {
			dists[c] = math.Inf(1)
			continue
		}
		var d float64
		for j := range centroid {
			diff := z[j] - centroid[j]
			d += diff * diff
		}
		dists[c] = math.Sqrt(d)
		if dists[c] < minDist {
			minDist = dists[c]
		}
	}

	out := make([]float64, n)
	var sum float64
	for c, d := range dists {
		if math.IsInf(d, 1) {
			continue
		}
		out[c] = math.Exp(minDist - d)
		sum += out[c]
	}
	if sum == 0 {
		return uniformProba(n)
	}
	for c := range out {
		out[c] /= sum
	}
	return out
}

type centroidParams struct {
	Centroids [][]float64 `json:"centroids"`
	Mean      []float64   `json:"mean"`
	Std       []float64   `json:"std"`
}

func (m *Centroid) Params() (json.RawMessage, error) {
	return json.Marshal(centroidParams{Centroids: m.Centroids, Mean: m.Mean, Std: m.Std})
}

func (m *Centroid) Restore(params json.RawMessage) error {
	var p centroidParams
	if err := json.Unmarshal(params, &p); err != nil {
		return fmt.Errorf("centroid: decode params: %w", err)
	}
	if len(p.Centroids) == 0 {
		return errors.New("centroid: incomplete params")
	}
	m.Centroids, m.Mean, m.Std = p.Centroids, p.Mean, p.Std
	return nil
}
