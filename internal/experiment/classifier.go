package experiment

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/sjwhitworth/golearn/base"
	"github.com/sjwhitworth/golearn/ensemble"
	"gonum.org/v1/gonum/mat"
)

// classifierModel is the common surface ExperimentRunner's classification
// branch trains against, regardless of model_type: a raw, uncalibrated score
// that the calibration stage turns into a probability.
type classifierModel interface {
	fit(X [][]float64, y []float64) error
	rawScore(x []float64) float64
}

func newClassifierModel(modelType string) (classifierModel, error) {
	switch modelType {
	case "logistic_regression", "":
		return &logisticRegression{}, nil
	case "random_forest":
		return &randomForestClassifier{treeCount: 100, maxDepth: 6}, nil
	default:
		return nil, fmt.Errorf("experiment: unknown classifier model_type %q", modelType)
	}
}

// logisticRegression is a standardized-feature linear classifier fit by
// iteratively reweighted least squares (Newton-Raphson on the binomial
// log-likelihood), the same gonum/mat closed-form-per-iteration style
// ridgeRegression uses for its normal equations.
type logisticRegression struct {
	mean, std []float64
	weights   []float64
	bias      float64
}

// fit runs IRLS: at each iteration it solves a weighted ridge-like normal
// equation (X^T W X) delta = X^T (y - p) for the Newton step, starting from
// the zero vector. A small L2 term keeps the design matrix solvable when
// features are collinear.
func (m *logisticRegression) fit(X [][]float64, y []float64) error {
	if len(X) == 0 {
		return fmt.Errorf("experiment: logistic regression fit on empty dataset")
	}
	nFeatures := len(X[0])
	m.mean = make([]float64, nFeatures)
	m.std = make([]float64, nFeatures)
	for c := 0; c < nFeatures; c++ {
		var sum float64
		for _, row := range X {
			sum += row[c]
		}
		mean := sum / float64(len(X))
		var variance float64
		for _, row := range X {
			d := row[c] - mean
			variance += d * d
		}
		std := 1.0
		if variance > 0 {
			std = math.Sqrt(variance / float64(len(X)))
		}
		m.mean[c] = mean
		m.std[c] = std
	}

	n := len(X)
	p := nFeatures + 1
	design := mat.NewDense(n, p, nil)
	for i, row := range X {
		design.Set(i, 0, 1)
		std := m.standardize(row)
		for j, v := range std {
			design.Set(i, j+1, v)
		}
	}
	target := mat.NewVecDense(n, y)

	const l2 = 1e-4
	const maxIter = 25
	beta := mat.NewVecDense(p, nil)
	probs := mat.NewVecDense(n, nil)
	for iter := 0; iter < maxIter; iter++ {
		var eta mat.VecDense
		eta.MulVec(design, beta)
		w := make([]float64, n)
		for i := 0; i < n; i++ {
			pr := sigmoid(eta.AtVec(i))
			probs.SetVec(i, pr)
			wi := pr * (1 - pr)
			if wi < 1e-6 {
				wi = 1e-6
			}
			w[i] = wi
		}

		var resid mat.VecDense
		resid.SubVec(target, probs)
		var grad mat.VecDense
		grad.MulVec(design.T(), &resid)

		weighted := mat.NewDense(n, p, nil)
		for i := 0; i < n; i++ {
			for j := 0; j < p; j++ {
				weighted.Set(i, j, design.At(i, j)*w[i])
			}
		}
		var hessian mat.Dense
		hessian.Mul(design.T(), weighted)
		for i := 0; i < p; i++ {
			hessian.Set(i, i, hessian.At(i, i)+l2)
		}

		var step mat.VecDense
		if err := step.SolveVec(&hessian, &grad); err != nil {
			break
		}
		var next mat.VecDense
		next.AddVec(beta, &step)
		beta = &next

		if mat.Norm(&step, 2) < 1e-6 {
			break
		}
	}

	m.weights = make([]float64, nFeatures)
	for i := 0; i < nFeatures; i++ {
		m.weights[i] = beta.AtVec(i + 1)
	}
	m.bias = beta.AtVec(0)
	return nil
}

func (m *logisticRegression) standardize(row []float64) []float64 {
	out := make([]float64, len(row))
	for c, v := range row {
		out[c] = (v - m.mean[c]) / m.std[c]
	}
	return out
}

// rawScore returns the pre-sigmoid linear score, the input Platt/isotonic
// calibration fits against.
func (m *logisticRegression) rawScore(x []float64) float64 {
	return dot(m.weights, m.standardize(x)) + m.bias
}

func (m *logisticRegression) featureImportances(names []string) map[string]float64 {
	out := make(map[string]float64, len(names))
	for i, name := range names {
		if i < len(m.weights) {
			out[name] = m.weights[i]
		}
	}
	return out
}

// randomForestClassifier wraps golearn's ensemble forest behind a CSV
// round-trip, the same bridge the dfs-sim predictor uses to hand golearn a
// base.FixedDataGrid.
type randomForestClassifier struct {
	treeCount, maxDepth int
	forest base.Classifier
	trainPath string
}

func (m *randomForestClassifier) fit(X [][]float64, y []float64) error {
	path, err := writeGolearnCSV(X, y)
	if err != nil {
		return err
	}
	m.trainPath = path
	instances, err := base.ParseCSVToInstances(path, true)
	if err != nil {
		return fmt.Errorf("experiment: parse training csv for random forest: %w", err)
	}
	m.forest = ensemble.NewRandomForest(m.treeCount, m.maxDepth)
	m.forest.Fit(instances)
	return nil
}

// rawScore asks the forest for its hard class prediction and returns it as a
// pseudo-logit; golearn's ensemble forest exposes no vote fraction, so
// calibration narrows a binary {low,high} score into a smooth probability
// rather than sharpening an already-continuous one.
func (m *randomForestClassifier) rawScore(x []float64) float64 {
	path, err := writeGolearnCSV([][]float64{x}, []float64{0})
	if err != nil {
		return 0
	}
	defer os.Remove(path)
	instances, err := base.ParseCSVToInstances(path, true)
	if err != nil {
		return 0
	}
	predictions, err := m.forest.Predict(instances)
	if err != nil {
		return 0
	}
	label := base.GetClass(predictions, 0)
	if label == "1" {
		return 4.0
	}
	return -4.0
}

func writeGolearnCSV(X [][]float64, y []float64) (string, error) {
	f, err := os.CreateTemp("", "hoopcast-train-*.csv")
	if err != nil {
		return "", err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := make([]string, len(X[0])+1)
	for i := range X[0] {
		header[i] = fmt.Sprintf("f%d", i)
	}
	header[len(header)-1] = "label"
	if err := w.Write(header); err != nil {
		return "", err
	}
	for i, row := range X {
		record := make([]string, len(row)+1)
		for c, v := range row {
			record[c] = strconv.FormatFloat(v, 'f', -1, 64)
		}
		record[len(record)-1] = strconv.Itoa(int(y[i]))
		if err := w.Write(record); err != nil {
			return "", err
		}
	}
	w.Flush()
	return f.Name(), w.Error()
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}
