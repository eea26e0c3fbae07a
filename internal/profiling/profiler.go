// Package profiling computes descriptive statistics over corrected datasets
// for the numeric-profile section of run reports. It is advisory output
// only; nothing here feeds back into rule evaluation.
package profiling

import (
	"github.com/montanaflynn/stats"

	"studyqc/domain/qc"
	"studyqc/domain/report"
	"studyqc/domain/table"
)

// minSample is the smallest column sample worth profiling; skewness and
// kurtosis are undefined below it.
const minSample = 3

// Profiler derives per-column numeric profiles from a dataset
type Profiler struct{}

// NewProfiler creates a new profiler
func NewProfiler() *Profiler {
	return &Profiler{}
}

// ProfileDataset profiles every data column with enough numeric cells.
// Comment columns are skipped; null cells, non-numeric cells, and the
// sentinel codes count as missing and stay out of the sample.
func (p *Profiler) ProfileDataset(ds *table.Dataset) []report.ColumnProfile {
	var profiles []report.ColumnProfile
	for i, col := range ds.Columns {
		if qc.IsCommentColumn(col) {
			continue
		}

		sample := make([]float64, 0, len(ds.Rows))
		missing := 0
		for _, row := range ds.Rows {
			n, ok := row[i].Float()
			if !ok || qc.IsSentinel(n) {
				missing++
				continue
			}
			sample = append(sample, n)
		}
		if len(sample) < minSample {
			continue
		}

		prof, err := profileColumn(col, sample, missing)
		if err != nil {
			continue
		}
		profiles = append(profiles, prof)
	}
	return profiles
}

func profileColumn(name string, sample []float64, missing int) (report.ColumnProfile, error) {
	prof := report.ColumnProfile{
		Column:  name,
		Count:   len(sample),
		Missing: missing,
	}

	var err error
	if prof.Mean, err = stats.Mean(sample); err != nil {
		return prof, err
	}
	if prof.Median, err = stats.Median(sample); err != nil {
		return prof, err
	}
	if prof.StdDev, err = stats.StandardDeviation(sample); err != nil {
		return prof, err
	}
	if prof.Min, err = stats.Min(sample); err != nil {
		return prof, err
	}
	if prof.Max, err = stats.Max(sample); err != nil {
		return prof, err
	}

	prof.Skewness = sampleSkewness(sample, prof.Mean, prof.StdDev)
	prof.Kurtosis = sampleKurtosis(sample, prof.Mean, prof.StdDev)
	prof.NormalP = normalityP(prof.Skewness, prof.Kurtosis, len(sample))

	q25, err := stats.Percentile(sample, 25)
	if err != nil {
		return prof, err
	}
	q75, err := stats.Percentile(sample, 75)
	if err != nil {
		return prof, err
	}
	prof.Outliers = countOutliers(sample, q25, q75)

	return prof, nil
}

// countOutliers applies the IQR fence
func countOutliers(sample []float64, q25, q75 float64) int {
	iqr := q75 - q25
	lower := q25 - 1.5*iqr
	upper := q75 + 1.5*iqr

	count := 0
	for _, x := range sample {
		if x < lower || x > upper {
			count++
		}
	}
	return count
}
