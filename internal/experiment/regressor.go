package experiment

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// regressorModel is the common surface the points-regression branch trains
// against: a single continuous output per row.
type regressorModel interface {
	fit(X [][]float64, y []float64) error
	predict(x []float64) float64
}

func newRegressorModel(modelType string, hyperparams map[string]float64) (regressorModel, error) {
	switch modelType {
	case "ridge", "":
		lambda := hyperparams["lambda"]
		if lambda == 0 {
			lambda = 1.0
		}
		return &ridgeRegression{lambda: lambda}, nil
	case "elastic_net":
		l1 := hyperparams["l1_ratio"]
		if l1 == 0 {
			l1 = 0.5
		}
		alpha := hyperparams["alpha"]
		if alpha == 0 {
			alpha = 1.0
		}
		return &elasticNet{alpha: alpha, l1Ratio: l1}, nil
	case "random_forest":
		trees := int(hyperparams["trees"])
		if trees == 0 {
			trees = 50
		}
		return &treeEnsemble{treeCount: trees, boosted: false}, nil
	case "gbt":
		trees := int(hyperparams["trees"])
		if trees == 0 {
			trees = 100
		}
		lr := hyperparams["learning_rate"]
		if lr == 0 {
			lr = 0.1
		}
		return &treeEnsemble{treeCount: trees, boosted: true, learningRate: lr}, nil
	default:
		return nil, fmt.Errorf("experiment: unknown points regression model_type %q", modelType)
	}
}

// ridgeRegression is the closed-form L2-penalized least squares solution,
// (X^T X + lambda I)^-1 X^T y, over a bias-augmented design matrix.
type ridgeRegression struct {
	lambda float64
	coef []float64
}

func (m *ridgeRegression) fit(X [][]float64, y []float64) error {
	n := len(X)
	if n == 0 {
		return fmt.Errorf("experiment: ridge fit on empty dataset")
	}
	p := len(X[0]) + 1

	design := mat.NewDense(n, p, nil)
	for i, row := range X {
		design.Set(i, 0, 1)
		for j, v := range row {
			design.Set(i, j+1, v)
		}
	}
	target := mat.NewVecDense(n, y)

	var xtx mat.Dense
	xtx.Mul(design.T(), design)
	for i := 0; i < p; i++ {
		xtx.Set(i, i, xtx.At(i, i)+m.lambda)
	}

	var xty mat.VecDense
	xty.MulVec(design.T(), target)

	var coef mat.VecDense
	if err := coef.SolveVec(&xtx, &xty); err != nil {
		return fmt.Errorf("experiment: ridge solve: %w", err)
	}

	m.coef = make([]float64, p)
	for i := 0; i < p; i++ {
		m.coef[i] = coef.AtVec(i)
	}
	return nil
}

func (m *ridgeRegression) predict(x []float64) float64 {
	sum := m.coef[0]
	for i, v := range x {
		sum += m.coef[i+1] * v
	}
	return sum
}

// elasticNet combines an L1 and L2 penalty via coordinate descent on
// standardized features, the middle ground between ridge's pure shrinkage
// and a sparse lasso fit.
type elasticNet struct {
	alpha, l1Ratio float64
	mean, std []float64
	coef []float64
	intercept float64
}

func (m *elasticNet) fit(X [][]float64, y []float64) error {
	n := len(X)
	if n == 0 {
		return fmt.Errorf("experiment: elastic net fit on empty dataset")
	}
	p := len(X[0])
	m.mean = make([]float64, p)
	m.std = make([]float64, p)
	for c := 0; c < p; c++ {
		var sum float64
		for _, row := range X {
			sum += row[c]
		}
		mean := sum / float64(n)
		var variance float64
		for _, row := range X {
			d := row[c] - mean
			variance += d * d
		}
		std := 1.0
		if variance > 0 {
			std = math.Sqrt(variance / float64(n))
		}
		m.mean[c], m.std[c] = mean, std
	}

	standardized := make([][]float64, n)
	for i, row := range X {
		standardized[i] = make([]float64, p)
		for c, v := range row {
			standardized[i][c] = (v - m.mean[c]) / m.std[c]
		}
	}

	var yMean float64
	for _, v := range y {
		yMean += v
	}
	yMean /= float64(n)

	m.coef = make([]float64, p)
	m.intercept = yMean
	residual := make([]float64, n)
	for i := range residual {
		residual[i] = y[i] - m.intercept
	}

	l1 := m.alpha * m.l1Ratio
	l2 := m.alpha * (1 - m.l1Ratio)

	for iter := 0; iter < 200; iter++ {
		for c := 0; c < p; c++ {
			var rho, colNormSq float64
			for i := 0; i < n; i++ {
				xi := standardized[i][c]
				rho += xi * (residual[i] + m.coef[c]*xi)
				colNormSq += xi * xi
			}
			newCoef := softThreshold(rho, l1*float64(n)) / (colNormSq + l2*float64(n))
			delta := newCoef - m.coef[c]
			if delta != 0 {
				for i := 0; i < n; i++ {
					residual[i] -= delta * standardized[i][c]
				}
			}
			m.coef[c] = newCoef
		}
	}
	return nil
}

func softThreshold(rho, lambda float64) float64 {
	switch {
	case rho > lambda:
		return rho - lambda
	case rho < -lambda:
		return rho + lambda
	default:
		return 0
	}
}

func (m *elasticNet) predict(x []float64) float64 {
	sum := m.intercept
	for c, v := range x {
		sum += m.coef[c] * (v - m.mean[c]) / m.std[c]
	}
	return sum
}

// treeEnsemble is a compact CART-style regression tree ensemble: bagged
// (random_forest) when boosted is false, gradient-boosted on the residual
// when true (gbt). golearn's ensemble package targets classification only,
// so the points-regression branch uses this self-contained implementation
// instead.
type treeEnsemble struct {
	treeCount int
	boosted bool
	learningRate float64
	trees []*regressionStump
	baseline float64
}

type regressionStump struct {
	feature int
	threshold float64
	leftVal, rightVal float64
}

func (m *treeEnsemble) fit(X [][]float64, y []float64) error {
	n := len(X)
	if n == 0 {
		return fmt.Errorf("experiment: tree ensemble fit on empty dataset")
	}

	var sum float64
	for _, v := range y {
		sum += v
	}
	m.baseline = sum / float64(n)

	residual := make([]float64, n)
	for i, v := range y {
		residual[i] = v - m.baseline
	}

	rng := splitmixSeed(uint64(n)*2654435761 + uint64(len(X[0])))
	for t := 0; t < m.treeCount; t++ {
		var sampleX [][]float64
		var sampleY []float64
		if m.boosted {
			sampleX, sampleY = X, residual
		} else {
			sampleX, sampleY = bootstrapSample(X, residual, &rng)
		}
		stump := fitStump(sampleX, sampleY)
		m.trees = append(m.trees, stump)

		if m.boosted {
			for i, row := range X {
				residual[i] -= m.learningRate * stump.predict(row)
			}
		}
	}
	return nil
}

func (m *treeEnsemble) predict(x []float64) float64 {
	sum := m.baseline
	if len(m.trees) == 0 {
		return sum
	}
	if m.boosted {
		for _, t := range m.trees {
			sum += m.learningRate * t.predict(x)
		}
		return sum
	}
	var total float64
	for _, t := range m.trees {
		total += t.predict(x)
	}
	return sum + total/float64(len(m.trees))
}

func (s *regressionStump) predict(x []float64) float64 {
	if x[s.feature] <= s.threshold {
		return s.leftVal
	}
	return s.rightVal
}

// fitStump finds the single-feature split minimizing squared error, the unit
// of work each ensemble round adds.
func fitStump(X [][]float64, y []float64) *regressionStump {
	best := &regressionStump{}
	bestSSE := math.Inf(1)
	n := len(X)
	p := len(X[0])

	for feature := 0; feature < p; feature++ {
		values := make([]float64, n)
		for i := range X {
			values[i] = X[i][feature]
		}
		sortedIdx := argsort(values)

		for cut := 1; cut < n; cut++ {
			threshold := values[sortedIdx[cut-1]]
			var leftSum, rightSum float64
			var leftN, rightN int
			for i, idx := range sortedIdx {
				if i < cut {
					leftSum += y[idx]
					leftN++
				} else {
					rightSum += y[idx]
					rightN++
				}
			}
			if leftN == 0 || rightN == 0 {
				continue
			}
			leftMean := leftSum / float64(leftN)
			rightMean := rightSum / float64(rightN)

			var sse float64
			for i, idx := range sortedIdx {
				pred := leftMean
				if i >= cut {
					pred = rightMean
				}
				d := y[idx] - pred
				sse += d * d
			}
			if sse < bestSSE {
				bestSSE = sse
				best = &regressionStump{feature: feature, threshold: threshold, leftVal: leftMean, rightVal: rightMean}
			}
		}
	}
	return best
}

func bootstrapSample(X [][]float64, y []float64, rng *uint64) ([][]float64, []float64) {
	n := len(X)
	sampleX := make([][]float64, n)
	sampleY := make([]float64, n)
	for i := 0; i < n; i++ {
		idx := int(nextRand(rng) % uint64(n))
		sampleX[i] = X[idx]
		sampleY[i] = y[idx]
	}
	return sampleX, sampleY
}

func splitmixSeed(seed uint64) uint64 { return seed }

func nextRand(state *uint64) uint64 {
	*state += 0x9E3779B97F4A7C15
	z := *state
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}
