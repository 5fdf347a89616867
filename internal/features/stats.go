package features

import "math"

// mean returns the arithmetic mean of the non-NaN values, or NaN when there are none.
func mean(values []float64) float64 {
	sum, n := 0.0, 0
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// stddev calculates sample standard deviation (n-1 denominator) over non-NaN values.
// Fewer than 2 samples yield NaN.
func stddev(values []float64) float64 {
	m := mean(values)
	sumSq, n := 0.0, 0
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		diff := v - m
		sumSq += diff * diff
		n++
	}
	if n < 2 {
		return math.NaN()
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// sum adds the non-NaN values.
func sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		if !math.IsNaN(v) {
			total += v
		}
	}
	return total
}

// ratio divides a by b, returning NaN when b is zero or either side is NaN.
func ratio(a, b float64) float64 {
	if b == 0 || math.IsNaN(a) || math.IsNaN(b) {
		return math.NaN()
	}
	return a / b
}

// pctChange returns the relative change of values[i] against values[i-periods].
func pctChange(values []float64, i, periods int) float64 {
	if i-periods < 0 {
		return math.NaN()
	}
	prev := values[i-periods]
	if math.IsNaN(prev) || math.IsNaN(values[i]) {
		return math.NaN()
	}
	if prev == 0 {
		if values[i] == 0 {
			return math.NaN()
		}
		return math.Inf(int(math.Copysign(1, values[i])))
	}
	return values[i]/prev - 1
}
