package experiment

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// ClassificationMetrics is the exported form of classificationMetrics,
// reused by StackingTrainer to re-evaluate each base model alongside the
// meta-model on the same evaluation subset.
func ClassificationMetrics(labels, probs []float64) map[string]float64 {
	return classificationMetrics(labels, probs)
}

// classificationMetrics bundles the metrics required for every
// classifier run: accuracy, log loss, Brier score, and AUC.
func classificationMetrics(labels []float64, probs []float64) map[string]float64 {
	n := float64(len(labels))
	correct := 0.0
	logLoss := 0.0
	brier := 0.0
	for i, y := range labels {
		p := clampProb(probs[i])
		if (p >= 0.5 && y == 1) || (p < 0.5 && y == 0) {
			correct++
		}
		logLoss -= y*math.Log(p) + (1-y)*math.Log(1-p)
		brier += (p - y) * (p - y)
	}
	return map[string]float64{
		"accuracy": correct / n,
		"log_loss": logLoss / n,
		"brier": brier / n,
		"auc": auc(labels, probs),
	}
}

func clampProb(p float64) float64 {
	const eps = 1e-12
	if p < eps {
		return eps
	}
	if p > 1-eps {
		return 1 - eps
	}
	return p
}

// auc computes the area under the ROC curve via the Mann-Whitney U
// statistic, so it needs no threshold sweep.
func auc(labels, scores []float64) float64 {
	type pair struct {
		score float64
		label float64
	}
	pairs := make([]pair, len(labels))
	for i := range labels {
		pairs[i] = pair{scores[i], labels[i]}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].score < pairs[j].score })

	ranks := make([]float64, len(pairs))
	i := 0
	for i < len(pairs) {
		j := i
		for j < len(pairs) && pairs[j].score == pairs[i].score {
			j++
		}
		avgRank := float64(i+j+1) / 2.0
		for k := i; k < j; k++ {
			ranks[k] = avgRank
		}
		i = j
	}

	var posCount, negCount, rankSumPos float64
	for i, p := range pairs {
		if p.label == 1 {
			posCount++
			rankSumPos += ranks[i]
		} else {
			negCount++
		}
	}
	if posCount == 0 || negCount == 0 {
		return 0.5
	}
	u := rankSumPos - posCount*(posCount+1)/2
	return u / (posCount * negCount)
}

// regressionMetrics bundles MAE, RMSE, R^2, and MAPE for a points-regression
// run.
func regressionMetrics(actual, predicted []float64) map[string]float64 {
	n := float64(len(actual))
	var sumAbs, sumSq, sumAPE float64
	for i := range actual {
		diff := predicted[i] - actual[i]
		sumAbs += math.Abs(diff)
		sumSq += diff * diff
		if actual[i] != 0 {
			sumAPE += math.Abs(diff / actual[i])
		}
	}
	meanActual := stat.Mean(actual, nil)
	var ssTot float64
	for _, a := range actual {
		ssTot += (a - meanActual) * (a - meanActual)
	}
	r2 := 1.0
	if ssTot > 0 {
		r2 = 1 - sumSq/ssTot
	}
	return map[string]float64{
		"mae": sumAbs / n,
		"rmse": math.Sqrt(sumSq / n),
		"r2": r2,
		"mape": (sumAPE / n) * 100,
	}
}

// anovaFScores computes a one-way ANOVA F-score per feature against the
// binary label, a model-agnostic importance ranking alongside whatever
// native importances the fitted model exposes.
func anovaFScores(features [][]float64, labels []float64, names []string) map[string]float64 {
	groups := map[float64][]int{}
	for i, y := range labels {
		groups[y] = append(groups[y], i)
	}
	out := make(map[string]float64, len(names))
	for col, name := range names {
		overall := make([]float64, len(features))
		for i := range features {
			overall[i] = features[i][col]
		}
		grandMean := stat.Mean(overall, nil)

		var ssBetween, ssWithin float64
		for _, idx := range groups {
			vals := make([]float64, len(idx))
			for j, rowIdx := range idx {
				vals[j] = features[rowIdx][col]
			}
			groupMean := stat.Mean(vals, nil)
			ssBetween += float64(len(vals)) * (groupMean - grandMean) * (groupMean - grandMean)
			for _, v := range vals {
				ssWithin += (v - groupMean) * (v - groupMean)
			}
		}
		dfBetween := float64(len(groups) - 1)
		dfWithin := float64(len(overall)-len(groups))
		if dfBetween <= 0 || dfWithin <= 0 || ssWithin == 0 {
			out[name] = 0
			continue
		}
		out[name] = (ssBetween / dfBetween) / (ssWithin / dfWithin)
	}
	return out
}
