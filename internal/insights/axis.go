package insights

import "math"

// maxAxisSteps bounds the number of intervals on an axis. Above it the
// step is widened by factors of ten.
const maxAxisSteps = 100

// MaxAxisValue is the largest chart maximum accepted from callers.
const MaxAxisValue = 1e15

// AxisTicks returns evenly spaced y-axis tick values from 0 up to max
// rounded up to the next hundred. The step grows with the range so the
// axis stays readable. Inputs below 1 are treated as 1.
func AxisTicks(max float64) []float64 {
	if math.IsNaN(max) || max < 1 {
		max = 1
	}
	ceiling := math.Ceil(max/100) * 100
	if math.IsInf(ceiling, 1) {
		ceiling = math.MaxFloat64
	}

	var step float64
	switch {
	case ceiling <= 500:
		step = 100
	case ceiling <= 1000:
		step = 200
	case ceiling <= 5000:
		step = 500
	default:
		step = 1000
	}
	for ceiling/step > maxAxisSteps {
		step *= 10
	}

	n := int(ceiling/step) + 1
	ticks := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		ticks = append(ticks, float64(i)*step)
	}
	return ticks
}

// ChartMax is the largest value across series, at least 1.
func ChartMax(series ...[]float64) float64 {
	max := 1.0
	for _, s := range series {
		for _, v := range s {
			if v > max {
				max = v
			}
		}
	}
	return max
}
