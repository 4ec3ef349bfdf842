package analytics

import (
	"errors"
	"fmt"
	"math"
)

// TrendPoint is one dated biomarker measurement.
type TrendPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// TrendRequest asks for trend statistics over a measurement series. The
// caller supplies the historical points in chronological order.
type TrendRequest struct {
	PatientID  int64        `json:"patient_id"`
	Biomarker  string       `json:"biomarker"`
	TimePeriod string       `json:"time_period,omitempty"`
	DataPoints []TrendPoint `json:"data_points"`
}

// TrendStatistics summarizes a measurement series.
type TrendStatistics struct {
	CurrentValue   float64 `json:"current_value"`
	AverageValue   float64 `json:"average_value"`
	MinValue       float64 `json:"min_value"`
	MaxValue       float64 `json:"max_value"`
	StdDeviation   float64 `json:"std_deviation"`
	TrendSlope     float64 `json:"trend_slope"`
	TrendDirection string  `json:"trend_direction"`
	Volatility     float64 `json:"volatility"`
}

// TrendInsight is a narrative observation derived from the statistics.
type TrendInsight struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// TrendAnalysis is the result of AnalyzeTrend.
type TrendAnalysis struct {
	PatientID  int64           `json:"patient_id"`
	Biomarker  string          `json:"biomarker"`
	TimePeriod string          `json:"time_period,omitempty"`
	DataPoints []TrendPoint    `json:"data_points"`
	Statistics TrendStatistics `json:"statistics"`
	Insights   []TrendInsight  `json:"insights"`
}

var errNoTrendData = errors.New("analytics: trend analysis requires at least two data points")

// AnalyzeTrend fits a least-squares line through the series and reports slope,
// direction, and volatility. A slope within 0.5 per step counts as stable.
func AnalyzeTrend(req TrendRequest) (TrendAnalysis, error) {
	if len(req.DataPoints) < 2 {
		return TrendAnalysis{}, errNoTrendData
	}

	values := make([]float64, len(req.DataPoints))
	for i, point := range req.DataPoints {
		values[i] = point.Value
	}

	slope := leastSquaresSlope(values)
	direction := "stable"
	if slope > 0.5 {
		direction = "increasing"
	} else if slope < -0.5 {
		direction = "decreasing"
	}

	lo, hi := minMax(values)
	m := mean(values)
	sd := stdDev(values)

	analysis := TrendAnalysis{
		PatientID:  req.PatientID,
		Biomarker:  req.Biomarker,
		TimePeriod: req.TimePeriod,
		DataPoints: req.DataPoints,
		Statistics: TrendStatistics{
			CurrentValue:   values[len(values)-1],
			AverageValue:   m,
			MinValue:       lo,
			MaxValue:       hi,
			StdDeviation:   sd,
			TrendSlope:     slope,
			TrendDirection: direction,
			Volatility:     stdDev(diffs(values)),
		},
		Insights: []TrendInsight{},
	}

	if math.Abs(slope) > 1 {
		trendDirection := "increasing"
		if slope < 0 {
			trendDirection = "decreasing"
		}
		severity := LevelModerate
		if math.Abs(slope) >= 2 {
			severity = LevelHigh
		}
		analysis.Insights = append(analysis.Insights, TrendInsight{
			Type:     "trend",
			Message:  fmt.Sprintf("%s shows a %s trend over %s", req.Biomarker, trendDirection, periodLabel(req.TimePeriod)),
			Severity: severity,
		})
	}
	if sd > m*0.2 {
		analysis.Insights = append(analysis.Insights, TrendInsight{
			Type:     "volatility",
			Message:  fmt.Sprintf("%s shows high variability in recent measurements", req.Biomarker),
			Severity: LevelModerate,
		})
	}
	return analysis, nil
}

func periodLabel(period string) string {
	if period == "" {
		return "the measurement period"
	}
	return period
}
