package analytics

import (
	"fmt"
	"math"
	"time"
)

// AnalyzeLabs produces the full panel report: distribution summary, abnormal
// markers with severity, per-category aggregates, and a panel-level risk
// indicator.
func AnalyzeLabs(req PanelRequest) LabAnalysis {
	values := make([]float64, len(req.LabValues))
	for i, lab := range req.LabValues {
		values[i] = lab.Value
	}
	lo, hi := minMax(values)

	report := LabAnalysis{
		PatientInfo: PatientInfo{
			PatientID:    req.PatientID,
			PatientName:  req.PatientName,
			AnalysisDate: time.Now().Format(time.RFC3339),
			TotalMarkers: len(req.LabValues),
		},
		StatisticalSummary: StatisticalSummary{
			MeanValues:   mean(values),
			StdDeviation: stdDev(values),
			ValueRange:   ValueRange{Min: lo, Max: hi},
		},
		AbnormalMarkers:    []AbnormalMarker{},
		CategoriesAnalysis: make(map[string]CategorySummary),
	}

	abnormalByName := make(map[string]bool)
	for _, lab := range req.LabValues {
		if !lab.abnormal() {
			continue
		}
		abnormalByName[lab.Name] = true
		report.AbnormalMarkers = append(report.AbnormalMarkers, classifyAbnormal(lab))
	}

	for _, lab := range req.LabValues {
		category := lab.category()
		summary := report.CategoriesAnalysis[category]
		summary.MarkerCount++
		summary.AverageValue += lab.Value
		if abnormalByName[lab.Name] {
			summary.AbnormalCount++
		}
		report.CategoriesAnalysis[category] = summary
	}
	for category, summary := range report.CategoriesAnalysis {
		summary.AverageValue /= float64(summary.MarkerCount)
		report.CategoriesAnalysis[category] = summary
	}

	report.RiskIndicators = []RiskIndicator{panelRisk(report.AbnormalMarkers)}
	return report
}

// classifyAbnormal grades an out-of-range marker. A value beyond 30% past
// either bound is high severity, otherwise moderate.
func classifyAbnormal(lab LabValue) AbnormalMarker {
	refMin, refMax := *lab.RefMin, *lab.RefMax

	deviation := LevelHigh
	if lab.Value < refMin {
		deviation = LevelLow
	}
	severity := LevelModerate
	if lab.Value < refMin*0.7 || lab.Value > refMax*1.3 {
		severity = LevelHigh
	}

	midpoint := (refMin + refMax) / 2
	halfWidth := (refMax - refMin) / 2
	var pctDeviation float64
	if halfWidth != 0 {
		pctDeviation = math.Abs((lab.Value-midpoint)/halfWidth) * 100
	}

	return AbnormalMarker{
		Name:                lab.Name,
		Value:               lab.Value,
		Unit:                lab.Unit,
		ReferenceRange:      fmt.Sprintf("%g-%g", refMin, refMax),
		Deviation:           deviation,
		Severity:            severity,
		PercentageDeviation: pctDeviation,
	}
}

func panelRisk(abnormal []AbnormalMarker) RiskIndicator {
	var high, moderate int
	for _, marker := range abnormal {
		switch marker.Severity {
		case LevelHigh:
			high++
		case LevelModerate:
			moderate++
		}
	}
	switch {
	case high > 0:
		return RiskIndicator{
			Level:          LevelHigh,
			Description:    fmt.Sprintf("%d markers with significant deviations detected", high),
			Recommendation: "Immediate medical consultation recommended",
		}
	case moderate > 2:
		return RiskIndicator{
			Level:          LevelModerate,
			Description:    fmt.Sprintf("%d markers outside normal ranges", moderate),
			Recommendation: "Follow-up testing and lifestyle modifications suggested",
		}
	default:
		return RiskIndicator{
			Level:          LevelLow,
			Description:    "Most markers within acceptable ranges",
			Recommendation: "Continue current health maintenance practices",
		}
	}
}
