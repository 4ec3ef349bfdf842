package analytics

import "math"

const minOutlierSamples = 3

// DetectOutliers flags markers whose values are statistical outliers within
// the panel, combining a z-score test (|z| > 2) with Tukey's IQR fences
// (1.5 IQR beyond the quartiles). Panels smaller than three markers return a
// message instead of a verdict.
func DetectOutliers(labs []LabValue) OutlierReport {
	if len(labs) < minOutlierSamples {
		return OutlierReport{
			Outliers: []Outlier{},
			Message:  "Insufficient data points for outlier detection (minimum 3 required)",
		}
	}

	values := make([]float64, len(labs))
	for i, lab := range labs {
		values[i] = lab.Value
	}

	m := mean(values)
	sd := stdDev(values)
	q1 := percentile(values, 25)
	q3 := percentile(values, 75)
	iqr := q3 - q1
	lowerFence := q1 - 1.5*iqr
	upperFence := q3 + 1.5*iqr

	outliers := []Outlier{}
	for i, lab := range labs {
		var z float64
		if sd != 0 {
			z = math.Abs((values[i] - m) / sd)
		}
		byZ := z > 2
		byIQR := values[i] < lowerFence || values[i] > upperFence
		if !byZ && !byIQR {
			continue
		}

		method := "iqr"
		switch {
		case byZ && byIQR:
			method = "both"
		case byZ:
			method = "z_score"
		}
		severity := LevelModerate
		if z > 3 {
			severity = LevelHigh
		}
		outliers = append(outliers, Outlier{
			Name:     lab.Name,
			Value:    lab.Value,
			ZScore:   z,
			Method:   method,
			Severity: severity,
		})
	}

	return OutlierReport{
		Outliers: outliers,
		Statistics: &OutlierStatistics{
			TotalMarkers:      len(values),
			OutlierCount:      len(outliers),
			OutlierPercentage: float64(len(outliers)) / float64(len(values)) * 100,
			Mean:              m,
			Std:               sd,
			Q1:                q1,
			Q3:                q3,
			IQR:               iqr,
		},
	}
}
