package experiment

import "math"

// plattScale fits the two-parameter sigmoid calibrated = 1/(1+exp(a*raw+b))
// by gradient descent on the log-loss of the held-out calibration slice,
// the "sigmoid" branch of CalibrationConfig.Method.
type plattScale struct {
	a, b float64
}

func fitPlattScale(raw, labels []float64) plattScale {
	a, b := -1.0, 0.0
	const lr = 0.01
	for iter := 0; iter < 500; iter++ {
		var gradA, gradB float64
		for i, r := range raw {
			p := 1.0 / (1.0 + math.Exp(a*r+b))
			err := labels[i] - p
			gradA += err * r
			gradB += err
		}
		n := float64(len(raw))
		a -= lr * gradA / n
		b -= lr * gradB / n
	}
	return plattScale{a: a, b: b}
}

func (s plattScale) apply(raw float64) float64 {
	return 1.0 / (1.0 + math.Exp(s.a*raw+s.b))
}

// isotonicCalibration is a pooled-adjacent-violators fit: raw scores are
// sorted, then adjacent blocks are merged until the mapped sequence is
// non-decreasing, the "isotonic" branch of CalibrationConfig.Method.
type isotonicCalibration struct {
	x []float64
	y []float64
}

func fitIsotonic(raw, labels []float64) isotonicCalibration {
	type point struct {
		x, y, w float64
	}
	idx := argsort(raw)
	pts := make([]point, len(raw))
	for i, j := range idx {
		pts[i] = point{x: raw[j], y: labels[j], w: 1}
	}

	blocks := make([]point, 0, len(pts))
	for _, p := range pts {
		blocks = append(blocks, p)
		for len(blocks) > 1 && blocks[len(blocks)-2].y > blocks[len(blocks)-1].y {
			last := blocks[len(blocks)-1]
			prev := blocks[len(blocks)-2]
			merged := point{
				x: prev.x,
				y: (prev.y*prev.w + last.y*last.w) / (prev.w + last.w),
				w: prev.w + last.w,
			}
			blocks = blocks[:len(blocks)-2]
			blocks = append(blocks, merged)
		}
	}

	out := isotonicCalibration{x: make([]float64, len(blocks)), y: make([]float64, len(blocks))}
	for i, b := range blocks {
		out.x[i] = b.x
		out.y[i] = b.y
	}
	return out
}

func (c isotonicCalibration) apply(raw float64) float64 {
	if len(c.x) == 0 {
		return 0.5
	}
	if raw <= c.x[0] {
		return c.y[0]
	}
	if raw >= c.x[len(c.x)-1] {
		return c.y[len(c.x)-1]
	}
	for i := 1; i < len(c.x); i++ {
		if raw <= c.x[i] {
			span := c.x[i] - c.x[i-1]
			if span == 0 {
				return c.y[i]
			}
			t := (raw - c.x[i-1]) / span
			return c.y[i-1] + t*(c.y[i]-c.y[i-1])
		}
	}
	return c.y[len(c.y)-1]
}

func argsort(v []float64) []int {
	idx := make([]int, len(v))
	for i := range idx {
		idx[i] = i
	}
	for i := 1; i < len(idx); i++ {
		for j := i; j > 0 && v[idx[j-1]] > v[idx[j]]; j-- {
			idx[j-1], idx[j] = idx[j], idx[j-1]
		}
	}
	return idx
}
