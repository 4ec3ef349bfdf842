package analytics

import "time"

// ExecutiveSummary is the headline view of a combined insight report.
type ExecutiveSummary struct {
	OverallHealthScore   float64 `json:"overall_health_score"`
	AbnormalMarkersCount int     `json:"abnormal_markers_count"`
	OutliersDetected     int     `json:"outliers_detected"`
	HighRiskAreas        int     `json:"high_risk_areas"`
}

// ActionableInsight pairs a finding with the action it calls for.
type ActionableInsight struct {
	Priority string `json:"priority"`
	Insight  string `json:"insight"`
	Action   string `json:"action"`
}

// DetailedAnalysis bundles the three underlying reports.
type DetailedAnalysis struct {
	StatisticalAnalysis LabAnalysis    `json:"statistical_analysis"`
	OutlierDetection    OutlierReport  `json:"outlier_detection"`
	RiskAssessment      RiskAssessment `json:"risk_assessment"`
}

// InsightReport is the result of GenerateInsights.
type InsightReport struct {
	PatientInfo             PatientInfo         `json:"patient_info"`
	ExecutiveSummary        ExecutiveSummary    `json:"executive_summary"`
	DetailedAnalysis        DetailedAnalysis    `json:"detailed_analysis"`
	ActionableInsights      []ActionableInsight `json:"actionable_insights"`
	FollowUpRecommendations []string            `json:"follow_up_recommendations"`
}

// GenerateInsights runs the lab analysis, outlier detection, and risk
// assessment over one panel and merges the results into a single report.
func GenerateInsights(req PanelRequest) InsightReport {
	labReport := AnalyzeLabs(req)
	outlierReport := DetectOutliers(req.LabValues)
	riskReport := AssessRisk(req)

	highRiskAreas := 0
	for _, risk := range riskReport.RiskAssessments {
		if risk.RiskLevel == LevelHigh {
			highRiskAreas++
		}
	}

	report := InsightReport{
		PatientInfo: PatientInfo{
			PatientID:    req.PatientID,
			PatientName:  req.PatientName,
			AnalysisDate: time.Now().Format(time.RFC3339),
			TotalMarkers: len(req.LabValues),
		},
		ExecutiveSummary: ExecutiveSummary{
			OverallHealthScore:   riskReport.OverallHealthScore,
			AbnormalMarkersCount: len(labReport.AbnormalMarkers),
			OutliersDetected:     len(outlierReport.Outliers),
			HighRiskAreas:        highRiskAreas,
		},
		DetailedAnalysis: DetailedAnalysis{
			StatisticalAnalysis: labReport,
			OutlierDetection:    outlierReport,
			RiskAssessment:      riskReport,
		},
		ActionableInsights: []ActionableInsight{},
		FollowUpRecommendations: []string{
			"Retest abnormal markers in 4-6 weeks",
			"Consider comprehensive metabolic panel if not recently done",
			"Lifestyle modifications based on identified risk factors",
			"Regular monitoring of trending biomarkers",
		},
	}

	if highRiskAreas > 0 {
		report.ActionableInsights = append(report.ActionableInsights, ActionableInsight{
			Priority: LevelHigh,
			Insight:  "Multiple high-risk areas identified requiring immediate attention",
			Action:   "Schedule comprehensive medical evaluation within 1-2 weeks",
		})
	}
	if len(outlierReport.Outliers) > 2 {
		report.ActionableInsights = append(report.ActionableInsights, ActionableInsight{
			Priority: LevelModerate,
			Insight:  "Several biomarkers show unusual patterns",
			Action:   "Repeat testing to confirm values and investigate underlying causes",
		})
	}
	return report
}
