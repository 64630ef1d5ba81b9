package classifier

import (
	"fmt"
	"math"
	"sort"
)

const (
	defaultC         = 1.0
	defaultMaxIter   = 1000
	defaultTolerance = 1e-6
)

// Options controls classifier fitting.
type Options struct {
	C         float64 // inverse regularization strength
	MaxIter   int
	Tolerance float64 // stop once every gradient component is below this
}

func (o Options) withDefaults() Options {
	if o.C <= 0 {
		o.C = defaultC
	}
	if o.MaxIter <= 0 {
		o.MaxIter = defaultMaxIter
	}
	if o.Tolerance <= 0 {
		o.Tolerance = defaultTolerance
	}
	return o
}

// LogisticRegression is a multinomial (softmax) classifier with an L2
// penalty on the weights and unpenalized intercepts. It minimizes
//
//	0.5*||W||^2 + C * sum_i -log p(y_i | x_i)
//
// by full-batch gradient descent.
type LogisticRegression struct {
	classes    []Category
	weights    [][]float64 // [class][feature]
	intercepts []float64
	iterations int
	converged  bool
}

// FitLogisticRegression trains on the given vectors and labels. Classes are
// ordered by name.
func FitLogisticRegression(xs []SparseVector, ys []Category, numFeatures int, opts Options) (*LogisticRegression, error) {
	if len(xs) == 0 || len(xs) != len(ys) {
		return nil, fmt.Errorf("logistic regression: need matching non-empty samples and labels (got %d and %d)", len(xs), len(ys))
	}
	opts = opts.withDefaults()

	seen := make(map[Category]bool)
	var classes []Category
	for _, y := range ys {
		if !seen[y] {
			seen[y] = true
			classes = append(classes, y)
		}
	}
	if len(classes) < 2 {
		return nil, fmt.Errorf("logistic regression: need at least two classes, got %d", len(classes))
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i] < classes[j] })

	classIndex := make(map[Category]int, len(classes))
	for i, c := range classes {
		classIndex[c] = i
	}
	targets := make([]int, len(ys))
	for i, y := range ys {
		targets[i] = classIndex[y]
	}

	k := len(classes)
	m := &LogisticRegression{
		classes:    classes,
		weights:    make([][]float64, k),
		intercepts: make([]float64, k),
	}
	for c := range m.weights {
		m.weights[c] = make([]float64, numFeatures)
	}

	// The softmax loss Hessian is bounded by 0.5*(||x||^2+1) per sample,
	// which gives a safe constant step size.
	lipschitz := 1.0
	for _, x := range xs {
		lipschitz += opts.C * 0.5 * (x.SquaredNorm() + 1)
	}
	step := 1 / lipschitz

	gradW := make([][]float64, k)
	for c := range gradW {
		gradW[c] = make([]float64, numFeatures)
	}
	gradB := make([]float64, k)
	probs := make([]float64, k)

	for iter := 1; iter <= opts.MaxIter; iter++ {
		for c := 0; c < k; c++ {
			copy(gradW[c], m.weights[c])
			gradB[c] = 0
		}

		for i, x := range xs {
			m.probabilities(x, probs)
			for c := 0; c < k; c++ {
				residual := probs[c]
				if c == targets[i] {
					residual -= 1
				}
				residual *= opts.C
				gradB[c] += residual
				for j, idx := range x.Indices {
					gradW[c][idx] += residual * x.Values[j]
				}
			}
		}

		maxGrad := 0.0
		for c := 0; c < k; c++ {
			maxGrad = math.Max(maxGrad, math.Abs(gradB[c]))
			m.intercepts[c] -= step * gradB[c]
			for j := range gradW[c] {
				maxGrad = math.Max(maxGrad, math.Abs(gradW[c][j]))
				m.weights[c][j] -= step * gradW[c][j]
			}
		}

		m.iterations = iter
		if maxGrad < opts.Tolerance {
			m.converged = true
			break
		}
	}

	return m, nil
}

// probabilities writes the softmax class probabilities of x into out.
func (m *LogisticRegression) probabilities(x SparseVector, out []float64) {
	maxScore := math.Inf(-1)
	for c := range m.classes {
		out[c] = x.Dot(m.weights[c]) + m.intercepts[c]
		maxScore = math.Max(maxScore, out[c])
	}
	var sum float64
	for c := range out {
		out[c] = math.Exp(out[c] - maxScore)
		sum += out[c]
	}
	for c := range out {
		out[c] /= sum
	}
}

// PredictProba returns the probability of each class, in Classes() order.
func (m *LogisticRegression) PredictProba(x SparseVector) []float64 {
	out := make([]float64, len(m.classes))
	m.probabilities(x, out)
	return out
}

// Predict returns the most probable class and its probability. Exact ties
// go to the class that sorts first.
func (m *LogisticRegression) Predict(x SparseVector) (Category, float64) {
	probs := m.PredictProba(x)
	best := 0
	for c := 1; c < len(probs); c++ {
		if probs[c] > probs[best] {
			best = c
		}
	}
	return m.classes[best], probs[best]
}

// Classes returns the class labels in model order.
func (m *LogisticRegression) Classes() []Category {
	out := make([]Category, len(m.classes))
	copy(out, m.classes)
	return out
}

// Iterations returns how many gradient steps fitting took.
func (m *LogisticRegression) Iterations() int { return m.iterations }

// Converged reports whether fitting met the tolerance before MaxIter.
func (m *LogisticRegression) Converged() bool { return m.converged }
