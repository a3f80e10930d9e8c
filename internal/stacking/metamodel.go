package stacking

import (
	"fmt"
	"math"
)

// metaModel is the common surface StackingTrainer fits over the assembled
// meta-matrix: a probability of home win given the base models' outputs
// (plus any derived/meta features).
type metaModel interface {
	fit(X [][]float64, y []float64) error
	predictProba(x []float64) float64
}

func newMetaModel(modelType string) (metaModel, error) {
	switch modelType {
	case "logistic_regression", "":
		return &metaLogistic{}, nil
	case "svm":
		return &metaSVM{}, nil
	case "gbt", "gradient_boosted_trees":
		return &metaBoostedStumps{treeCount: 100, learningRate: 0.1}, nil
	default:
		return nil, fmt.Errorf("stacking: unknown meta_model_type %q", modelType)
	}
}

func standardize(X [][]float64) (mean, std []float64, out [][]float64) {
	n := len(X)
	p := len(X[0])
	mean = make([]float64, p)
	std = make([]float64, p)
	for c := 0; c < p; c++ {
		var sum float64
		for _, row := range X {
			sum += row[c]
		}
		m := sum / float64(n)
		var variance float64
		for _, row := range X {
			d := row[c] - m
			variance += d * d
		}
		s := 1.0
		if variance > 0 {
			s = math.Sqrt(variance / float64(n))
		}
		mean[c], std[c] = m, s
	}
	out = make([][]float64, n)
	for i, row := range X {
		out[i] = make([]float64, p)
		for c, v := range row {
			out[i][c] = (v - mean[c]) / std[c]
		}
	}
	return mean, std, out
}

func applyStandardize(mean, std, x []float64) []float64 {
	out := make([]float64, len(x))
	for c, v := range x {
		out[c] = (v - mean[c]) / std[c]
	}
	return out
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func sigmoid(x float64) float64 { return 1.0 / (1.0 + math.Exp(-x)) }

// metaLogistic is the 'logistic_regression' meta-model option: standardized
// linear logistic regression fit by fixed-step batch gradient descent.
type metaLogistic struct {
	mean, std []float64
	weights []float64
	bias float64
}

func (m *metaLogistic) fit(X [][]float64, y []float64) error {
	if len(X) == 0 {
		return fmt.Errorf("stacking: logistic meta-model fit on empty matrix")
	}
	mean, std, standardized := standardize(X)
	m.mean, m.std = mean, std
	m.weights = make([]float64, len(X[0]))

	const lr = 0.05
	const epochs = 300
	for epoch := 0; epoch < epochs; epoch++ {
		gradW := make([]float64, len(m.weights))
		var gradB float64
		for i, row := range standardized {
			p := sigmoid(dot(m.weights, row) + m.bias)
			err := p - y[i]
			for c := range row {
				gradW[c] += err * row[c]
			}
			gradB += err
		}
		n := float64(len(standardized))
		for c := range m.weights {
			m.weights[c] -= lr * gradW[c] / n
		}
		m.bias -= lr * gradB / n
	}
	return nil
}

func (m *metaLogistic) predictProba(x []float64) float64 {
	return sigmoid(dot(m.weights, applyStandardize(m.mean, m.std, x)) + m.bias)
}

// metaSVM is the 'svm' meta-model option: a linear support vector machine
// fit by hinge-loss subgradient descent on standardized features. SVC
// exposes no native probability in its margin, so predictProba runs the
// decision margin through a logistic squash the same way a calibration
// stage narrows a classifier's raw score into a probability.
type metaSVM struct {
	mean, std []float64
	weights []float64
	bias float64
}

func (m *metaSVM) fit(X [][]float64, y []float64) error {
	if len(X) == 0 {
		return fmt.Errorf("stacking: svm meta-model fit on empty matrix")
	}
	mean, std, standardized := standardize(X)
	m.mean, m.std = mean, std
	m.weights = make([]float64, len(X[0]))

	const lr = 0.01
	const lambda = 0.001
	const epochs = 300
	for epoch := 0; epoch < epochs; epoch++ {
		for i, row := range standardized {
			label := 2*y[i] - 1 // {0,1} -> {-1,1}
			margin := label * (dot(m.weights, row) + m.bias)
			for c := range m.weights {
				grad := lambda * m.weights[c]
				if margin < 1 {
					grad -= label * row[c]
				}
				m.weights[c] -= lr * grad
			}
			if margin < 1 {
				m.bias += lr * label
			}
		}
	}
	return nil
}

func (m *metaSVM) predictProba(x []float64) float64 {
	margin := dot(m.weights, applyStandardize(m.mean, m.std, x)) + m.bias
	return sigmoid(2 * margin)
}

// metaBoostedStumps is the 'gbt'/'gradient_boosted_trees' meta-model
// option: a LogitBoost-style additive ensemble of regression stumps fit on
// the logistic working residual each round, predictProba = sigmoid(F(x)).
type metaBoostedStumps struct {
	treeCount int
	learningRate float64
	trees []*metaStump
}

type metaStump struct {
	feature int
	threshold float64
	leftVal, rightVal float64
}

func (s *metaStump) predict(x []float64) float64 {
	if x[s.feature] <= s.threshold {
		return s.leftVal
	}
	return s.rightVal
}

func (m *metaBoostedStumps) fit(X [][]float64, y []float64) error {
	n := len(X)
	if n == 0 {
		return fmt.Errorf("stacking: boosted-stump meta-model fit on empty matrix")
	}
	f := make([]float64, n)
	for t := 0; t < m.treeCount; t++ {
		residual := make([]float64, n)
		for i := range residual {
			residual[i] = y[i] - sigmoid(f[i])
		}
		stump := fitMetaStump(X, residual)
		m.trees = append(m.trees, stump)
		for i, row := range X {
			f[i] += m.learningRate * stump.predict(row)
		}
	}
	return nil
}

func (m *metaBoostedStumps) predictProba(x []float64) float64 {
	var f float64
	for _, t := range m.trees {
		f += m.learningRate * t.predict(x)
	}
	return sigmoid(f)
}

func fitMetaStump(X [][]float64, residual []float64) *metaStump {
	best := &metaStump{}
	bestSSE := math.Inf(1)
	n := len(X)
	p := len(X[0])

	for feature := 0; feature < p; feature++ {
		values := make([]float64, n)
		for i := range X {
			values[i] = X[i][feature]
		}
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		for i := 1; i < n; i++ {
			for j := i; j > 0 && values[idx[j-1]] > values[idx[j]]; j-- {
				idx[j-1], idx[j] = idx[j], idx[j-1]
			}
		}

		for cut := 1; cut < n; cut++ {
			threshold := values[idx[cut-1]]
			var leftSum, rightSum float64
			var leftN, rightN int
			for i, id := range idx {
				if i < cut {
					leftSum += residual[id]
					leftN++
				} else {
					rightSum += residual[id]
					rightN++
				}
			}
			if leftN == 0 || rightN == 0 {
				continue
			}
			leftMean := leftSum / float64(leftN)
			rightMean := rightSum / float64(rightN)

			var sse float64
			for i, id := range idx {
				pred := leftMean
				if i >= cut {
					pred = rightMean
				}
				d := residual[id] - pred
				sse += d * d
			}
			if sse < bestSSE {
				bestSSE = sse
				best = &metaStump{feature: feature, threshold: threshold, leftVal: leftMean, rightVal: rightMean}
			}
		}
	}
	return best
}
