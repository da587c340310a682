package train

// Evaluation helpers for multiclass classification. Labels are vocabulary
// indices; callers translate to label strings at the report boundary.

// accuracy is the fraction of exact matches.
func accuracy(yTrue, yPred []int) float64 {
	if len(yTrue) == 0 || len(yTrue) != len(yPred) {
		return 0
	}
	c := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			c++
		}
	}
	return float64(c) / float64(len(yTrue))
}

// perLabelF1 computes a one-vs-rest F1 score for each class index.
// Classes absent from both truth and prediction score 0.
func perLabelF1(yTrue, yPred []int, nClasses int) []float64 {
	tp := make([]int, nClasses)
	fp := make([]int, nClasses)
	fn := make([]int, nClasses)
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			tp[yTrue[i]]++
			continue
		}
		fp[yPred[i]]++
		fn[yTrue[i]]++
	}

	f1 := make([]float64, nClasses)
	for c := 0; c < nClasses; c++ {
		var prec, rec float64
		if tp[c]+fp[c] > 0 {
			prec = float64(tp[c]) / float64(tp[c]+fp[c])
		}
		if tp[c]+fn[c] > 0 {
			rec = float64(tp[c]) / float64(tp[c]+fn[c])
		}
		if prec+rec > 0 {
			f1[c] = 2 * prec * rec / (prec + rec)
		}
	}
	return f1
}

// confusionCounts builds the true-label x predicted-label count matrix.
func confusionCounts(yTrue, yPred []int, nClasses int) [][]int {
	m := make([][]int, nClasses)
	for c := range m {
		m[c] = make([]int, nClasses)
	}
	for i := range yTrue {
		m[yTrue[i]][yPred[i]]++
	}
	return m
}

func argmaxFloat(xs []float64) int {
	best := 0
	for i := 1; i < len(xs); i++ {
		if xs[i] > xs[best] {
			best = i
		}
	}
	return best
}
