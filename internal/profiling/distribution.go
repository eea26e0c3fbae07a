package profiling

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// sampleSkewness computes bias-corrected sample skewness
func sampleSkewness(sample []float64, mean, stdDev float64) float64 {
	if len(sample) < 3 || stdDev == 0 {
		return 0
	}

	n := float64(len(sample))
	sum := 0.0
	for _, x := range sample {
		d := (x - mean) / stdDev
		sum += d * d * d
	}

	return (sum / n) * math.Sqrt(n*(n-1)) / (n - 2)
}

// sampleKurtosis computes sample excess kurtosis
func sampleKurtosis(sample []float64, mean, stdDev float64) float64 {
	if len(sample) < 4 || stdDev == 0 {
		return 0
	}

	n := float64(len(sample))
	sum := 0.0
	for _, x := range sample {
		d := (x - mean) / stdDev
		sum += d * d * d * d
	}

	return sum/n - 3
}

// normalityP approximates a normality p-value with the Jarque-Bera
// statistic, which is chi-squared with two degrees of freedom under the
// null. Rough, but enough to mark columns worth a closer look in reports.
func normalityP(skewness, kurtosis float64, n int) float64 {
	if n < minSample {
		return 1
	}

	jb := float64(n) / 6 * (skewness*skewness + kurtosis*kurtosis/4)
	chi := distuv.ChiSquared{K: 2}
	return 1 - chi.CDF(jb)
}
