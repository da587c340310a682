package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// DecisionTree is a CART-style classifier using gini impurity and
// midpoint thresholds. Splitting is exhaustive over all features, so
// fitting is deterministic without any random state.
type DecisionTree struct {
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int

	root     *treeNode
	nClasses int
}

type treeNode struct {
	Leaf      bool      `json:"leaf"`
	Feature   int       `json:"feature,omitempty"`
	Threshold float64   `json:"threshold,omitempty"`
	Left      *treeNode `json:"left,omitempty"`
	Right     *treeNode `json:"right,omitempty"`
	Probs     []float64 `json:"probs,omitempty"`
}

// NewDecisionTree returns a tree with defaults sized for the fixed
// feature vector.
func NewDecisionTree() *DecisionTree {
	return &DecisionTree{
		MaxDepth:        8,
		MinSamplesSplit: 4,
		MinSamplesLeaf:  2,
	}
}

func (t *DecisionTree) Name() string { return MemberTree }

// Fit trains the tree. The seed is accepted for interface symmetry but
// unused: the exhaustive split search is already deterministic.
func (t *DecisionTree) Fit(X [][]float64, y []int, nClasses int, seed int64) error {
	_ = seed
	if len(X) == 0 || len(X) != len(y) {
		return errors.New("tree: empty or mismatched training data")
	}
	if nClasses <= 0 {
		return errors.New("tree: invalid class count")
	}
	t.nClasses = nClasses

	idx := make([]int, len(X))
	for i := range idx {
		idx[i] = i
	}
	t.root = t.build(X, y, idx, 0)
	return nil
}

func (t *DecisionTree) build(X [][]float64, y []int, idx []int, depth int) *treeNode {
	counts := make([]float64, t.nClasses)
	for _, i := range idx {
		counts[y[i]]++
	}

	leaf := func() *treeNode {
		return &treeNode{Leaf: true, Probs: normalizeCounts(counts)}
	}
	if depth >= t.MaxDepth || len(idx) < t.MinSamplesSplit || pure(counts) {
		return leaf()
	}

	feature, threshold, gain := t.bestSplit(X, y, idx, gini(counts))
	if gain <= 0 {
		return leaf()
	}

	var left, right []int
	for _, i := range idx {
		if X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) < t.MinSamplesLeaf || len(right) < t.MinSamplesLeaf {
		return leaf()
	}

	return &treeNode{
		Feature:   feature,
		Threshold: threshold,
		Left:      t.build(X, y, left, depth+1),
		Right:     t.build(X, y, right, depth+1),
	}
}

func (t *DecisionTree) bestSplit(X [][]float64, y []int, idx []int, parent float64) (feature int, threshold, gain float64) {
	feature = -1
	n := float64(len(idx))
	nFeatures := len(X[idx[0]])

	order := append([]int(nil), idx...)
	for f := 0; f < nFeatures; f++ {
		sort.Slice(order, func(a, b int) bool { return X[order[a]][f] < X[order[b]][f] })

		leftCounts := make([]float64, t.nClasses)
		rightCounts := make([]float64, t.nClasses)
		for _, i := range order {
			rightCounts[y[i]]++
		}

		for s := 1; s < len(order); s++ {
			prev := order[s-1]
			leftCounts[y[prev]]++
			rightCounts[y[prev]]--

			a, b := X[prev][f], X[order[s]][f]
			if a == b {
				continue
			}
			nl, nr := float64(s), n-float64(s)
			weighted := nl/n*gini(leftCounts) + nr/n*gini(rightCounts)
			if g := parent - weighted; g > gain {
				feature, threshold, gain = f, (a+b)/2, g
			}
		}
	}
	return feature, threshold, gain
}

// Proba returns the class distribution of the leaf x falls into. An
// untrained tree answers with the uniform distribution.
func (t *DecisionTree) Proba(x []float64) []float64 {
	if t.root == nil {
		return uniformProba(t.nClasses)
	}
	node := t.root
	for !node.Leaf {
		if x[node.Feature] <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return append([]float64(nil), node.Probs...)
}

type treeParams struct {
	NClasses        int       `json:"n_classes"`
	MaxDepth        int       `json:"max_depth"`
	MinSamplesSplit int       `json:"min_samples_split"`
	MinSamplesLeaf  int       `json:"min_samples_leaf"`
	Root            *treeNode `json:"root"`
}

func (t *DecisionTree) Params() (json.RawMessage, error) {
	return json.Marshal(treeParams{
		NClasses:        t.nClasses,
		MaxDepth:        t.MaxDepth,
		MinSamplesSplit: t.MinSamplesSplit,
		MinSamplesLeaf:  t.MinSamplesLeaf,
		Root:            t.root,
	})
}

func (t *DecisionTree) Restore(params json.RawMessage) error {
	var p treeParams
	if err := json.Unmarshal(params, &p); err != nil {
		return fmt.Errorf("tree: decode params: %w", err)
	}
	if p.NClasses <= 0 || p.Root == nil {
		return errors.New("tree: incomplete params")
	}
	t.nClasses = p.NClasses
	t.MaxDepth = p.MaxDepth
	t.MinSamplesSplit = p.MinSamplesSplit
	t.MinSamplesLeaf = p.MinSamplesLeaf
	t.root = p.Root
	return nil
}

func gini(counts []float64) float64 {
	var n float64
	for _, c := range counts {
		n += c
	}
	if n == 0 {
		return 0
	}
	res := 1.0
	for _, c := range counts {
		p := c / n
		res -= p * p
	}
	return res
}

func pure(counts []float64) bool {
	nonZero := 0
	for _, c := range counts {
		if c > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

func normalizeCounts(counts []float64) []float64 {
	var n float64
	for _, c := range counts {
		n += c
	}
	out := make([]float64, len(counts))
	if n == 0 {
		return out
	}
	for i, c := range counts {
		out[i] = c / n
	}
	return out
}
