package analytics

import (
	"math"
	"strings"
	"testing"
)

func ref(v float64) *float64 { return &v }

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestAnalyzeLabsFlagsAbnormalMarkers(t *testing.T) {
	req := PanelRequest{
		PatientID:   12,
		PatientName: "Jordan Avery",
		LabValues: []LabValue{
			{Name: "Glucose", Value: 180, Unit: "mg/dL", RefMin: ref(70), RefMax: ref(100), Category: "metabolic"},
			{Name: "HDL", Value: 52, Unit: "mg/dL", RefMin: ref(40), RefMax: ref(60), Category: "lipids"},
			{Name: "LDL", Value: 145, Unit: "mg/dL", RefMin: ref(0), RefMax: ref(130), Category: "lipids"},
		},
	}

	report := AnalyzeLabs(req)

	if report.PatientInfo.TotalMarkers != 3 {
		t.Fatalf("TotalMarkers = %d, want 3", report.PatientInfo.TotalMarkers)
	}
	if !almostEqual(report.StatisticalSummary.MeanValues, (180+52+145)/3.0) {
		t.Errorf("mean = %v", report.StatisticalSummary.MeanValues)
	}
	if report.StatisticalSummary.ValueRange.Min != 52 || report.StatisticalSummary.ValueRange.Max != 180 {
		t.Errorf("range = %+v", report.StatisticalSummary.ValueRange)
	}

	if len(report.AbnormalMarkers) != 2 {
		t.Fatalf("abnormal markers = %d, want 2", len(report.AbnormalMarkers))
	}
	glucose := report.AbnormalMarkers[0]
	if glucose.Name != "Glucose" || glucose.Deviation != "high" || glucose.Severity != "high" {
		t.Errorf("glucose classification = %+v", glucose)
	}
	ldl := report.AbnormalMarkers[1]
	if ldl.Severity != "moderate" {
		t.Errorf("ldl severity = %q, want moderate", ldl.Severity)
	}

	lipids := report.CategoriesAnalysis["lipids"]
	if lipids.MarkerCount != 2 || lipids.AbnormalCount != 1 {
		t.Errorf("lipids summary = %+v", lipids)
	}

	if len(report.RiskIndicators) != 1 || report.RiskIndicators[0].Level != "high" {
		t.Errorf("risk indicators = %+v", report.RiskIndicators)
	}
}

func TestAnalyzeLabsLowRiskWhenInRange(t *testing.T) {
	report := AnalyzeLabs(PanelRequest{
		LabValues: []LabValue{
			{Name: "TSH", Value: 2.1, Unit: "mIU/L", RefMin: ref(0.4), RefMax: ref(4.0)},
			{Name: "Creatinine", Value: 1.0, Unit: "mg/dL", RefMin: ref(0.7), RefMax: ref(1.3)},
		},
	})
	if len(report.AbnormalMarkers) != 0 {
		t.Fatalf("abnormal markers = %+v", report.AbnormalMarkers)
	}
	if report.RiskIndicators[0].Level != "low" {
		t.Errorf("risk level = %q, want low", report.RiskIndicators[0].Level)
	}
}

func TestAnalyzeLabsIgnoresMarkersWithoutRange(t *testing.T) {
	report := AnalyzeLabs(PanelRequest{
		LabValues: []LabValue{
			{Name: "Mystery", Value: 9999, Unit: "u"},
		},
	})
	if len(report.AbnormalMarkers) != 0 {
		t.Fatalf("marker without reference range flagged: %+v", report.AbnormalMarkers)
	}
}

func TestDetectOutliersRequiresThreeSamples(t *testing.T) {
	report := DetectOutliers([]LabValue{
		{Name: "A", Value: 1},
		{Name: "B", Value: 2},
	})
	if len(report.Outliers) != 0 {
		t.Fatalf("outliers = %+v", report.Outliers)
	}
	if !strings.Contains(report.Message, "minimum 3") {
		t.Errorf("message = %q", report.Message)
	}
	if report.Statistics != nil {
		t.Error("statistics set for undersized panel")
	}
}

func TestDetectOutliersFlagsExtremeValue(t *testing.T) {
	labs := []LabValue{
		{Name: "A", Value: 10},
		{Name: "B", Value: 11},
		{Name: "C", Value: 10.5},
		{Name: "D", Value: 9.5},
		{Name: "E", Value: 10.2},
		{Name: "F", Value: 10.8},
		{Name: "G", Value: 9.8},
		{Name: "H", Value: 10.4},
		{Name: "I", Value: 95},
	}

	report := DetectOutliers(labs)

	if len(report.Outliers) != 1 {
		t.Fatalf("outliers = %+v", report.Outliers)
	}
	out := report.Outliers[0]
	if out.Name != "I" {
		t.Errorf("flagged %q, want I", out.Name)
	}
	if out.Method != "both" {
		t.Errorf("method = %q, want both", out.Method)
	}
	if out.ZScore <= 2 {
		t.Errorf("z score = %v", out.ZScore)
	}
	if report.Statistics.OutlierCount != 1 || report.Statistics.TotalMarkers != 9 {
		t.Errorf("statistics = %+v", report.Statistics)
	}
	if !almostEqual(report.Statistics.OutlierPercentage, 100.0/9) {
		t.Errorf("outlier percentage = %v", report.Statistics.OutlierPercentage)
	}
}

func TestDetectOutliersUniformSeries(t *testing.T) {
	labs := []LabValue{
		{Name: "A", Value: 5},
		{Name: "B", Value: 5},
		{Name: "C", Value: 5},
	}
	report := DetectOutliers(labs)
	if len(report.Outliers) != 0 {
		t.Fatalf("uniform series produced outliers: %+v", report.Outliers)
	}
}

func TestAssessRiskScoresConditions(t *testing.T) {
	req := PanelRequest{
		PatientID: 8,
		LabValues: []LabValue{
			{Name: "Glucose", Value: 190, RefMin: ref(70), RefMax: ref(100)},
			{Name: "HbA1c", Value: 8.2, RefMin: ref(4.0), RefMax: ref(5.6)},
			{Name: "TSH", Value: 2.0, RefMin: ref(0.4), RefMax: ref(4.0)},
		},
	}

	assessment := AssessRisk(req)

	diabetes, ok := assessment.RiskAssessments["diabetes"]
	if !ok {
		t.Fatalf("diabetes missing: %+v", assessment.RiskAssessments)
	}
	if diabetes.RiskLevel != "high" || diabetes.AbnormalMarkers != 2 || diabetes.TotalMarkers != 2 {
		t.Errorf("diabetes risk = %+v", diabetes)
	}
	thyroid := assessment.RiskAssessments["thyroid"]
	if thyroid.RiskLevel != "low" || thyroid.AbnormalMarkers != 0 {
		t.Errorf("thyroid risk = %+v", thyroid)
	}

	var highRec bool
	for _, rec := range assessment.Recommendations {
		if rec.Category == "diabetes" && rec.Priority == "high" {
			highRec = true
		}
	}
	if !highRec {
		t.Errorf("no high-priority diabetes recommendation: %+v", assessment.Recommendations)
	}
	if assessment.OverallHealthScore >= 100 {
		t.Errorf("health score = %v", assessment.OverallHealthScore)
	}
}

func TestAssessRiskDefaultScoreWithoutKnownMarkers(t *testing.T) {
	assessment := AssessRisk(PanelRequest{
		LabValues: []LabValue{
			{Name: "Vitamin D", Value: 32, RefMin: ref(30), RefMax: ref(100)},
		},
	})
	if len(assessment.RiskAssessments) != 0 {
		t.Fatalf("unexpected assessments: %+v", assessment.RiskAssessments)
	}
	if assessment.OverallHealthScore != 85 {
		t.Errorf("default health score = %v, want 85", assessment.OverallHealthScore)
	}
	if len(assessment.Recommendations) != 1 || assessment.Recommendations[0].Priority != "low" {
		t.Errorf("recommendations = %+v", assessment.Recommendations)
	}
}

func TestRiskLevelThresholds(t *testing.T) {
	cases := []struct {
		pct  float64
		want string
	}{
		{0, "low"},
		{24.9, "low"},
		{25, "moderate"},
		{49.9, "moderate"},
		{50, "high"},
		{100, "high"},
	}
	for _, tc := range cases {
		if got := riskLevel(tc.pct); got != tc.want {
			t.Errorf("riskLevel(%v) = %q, want %q", tc.pct, got, tc.want)
		}
	}
}

func TestAnalyzeTrendDirection(t *testing.T) {
	points := func(values ...float64) []TrendPoint {
		out := make([]TrendPoint, len(values))
		for i, v := range values {
			out[i] = TrendPoint{Date: "2026-01-01", Value: v}
		}
		return out
	}

	cases := []struct {
		name          string
		values        []float64
		wantDirection string
	}{
		{"increasing", []float64{100, 103, 106, 109, 112}, "increasing"},
		{"decreasing", []float64{112, 109, 106, 103, 100}, "decreasing"},
		{"stable", []float64{100, 100.1, 99.9, 100, 100.05}, "stable"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			analysis, err := AnalyzeTrend(TrendRequest{
				PatientID:  3,
				Biomarker:  "glucose",
				DataPoints: points(tc.values...),
			})
			if err != nil {
				t.Fatalf("AnalyzeTrend failed: %v", err)
			}
			if analysis.Statistics.TrendDirection != tc.wantDirection {
				t.Errorf("direction = %q, want %q (slope %v)",
					analysis.Statistics.TrendDirection, tc.wantDirection, analysis.Statistics.TrendSlope)
			}
			if analysis.Statistics.CurrentValue != tc.values[len(tc.values)-1] {
				t.Errorf("current value = %v", analysis.Statistics.CurrentValue)
			}
		})
	}
}

func TestAnalyzeTrendSteepSlopeInsight(t *testing.T) {
	analysis, err := AnalyzeTrend(TrendRequest{
		Biomarker:  "crp",
		TimePeriod: "3_months",
		DataPoints: []TrendPoint{
			{Value: 1}, {Value: 4}, {Value: 7}, {Value: 10},
		},
	})
	if err != nil {
		t.Fatalf("AnalyzeTrend failed: %v", err)
	}
	var found bool
	for _, insight := range analysis.Insights {
		if insight.Type == "trend" && insight.Severity == "high" {
			found = true
		}
	}
	if !found {
		t.Errorf("no high-severity trend insight: %+v", analysis.Insights)
	}
}

func TestAnalyzeTrendRejectsShortSeries(t *testing.T) {
	if _, err := AnalyzeTrend(TrendRequest{DataPoints: []TrendPoint{{Value: 1}}}); err == nil {
		t.Fatal("expected error for single data point")
	}
}

func TestGenerateInsightsCombinesReports(t *testing.T) {
	req := PanelRequest{
		PatientID: 5,
		LabValues: []LabValue{
			{Name: "Glucose", Value: 200, RefMin: ref(70), RefMax: ref(100)},
			{Name: "HbA1c", Value: 9.0, RefMin: ref(4.0), RefMax: ref(5.6)},
			{Name: "TSH", Value: 2.0, RefMin: ref(0.4), RefMax: ref(4.0)},
			{Name: "Creatinine", Value: 1.0, RefMin: ref(0.7), RefMax: ref(1.3)},
		},
	}

	report := GenerateInsights(req)

	if report.ExecutiveSummary.AbnormalMarkersCount != 2 {
		t.Errorf("abnormal count = %d", report.ExecutiveSummary.AbnormalMarkersCount)
	}
	if report.ExecutiveSummary.HighRiskAreas < 1 {
		t.Errorf("high risk areas = %d", report.ExecutiveSummary.HighRiskAreas)
	}
	if len(report.ActionableInsights) == 0 {
		t.Error("no actionable insights")
	}
	if len(report.FollowUpRecommendations) == 0 {
		t.Error("no follow-up recommendations")
	}
	if report.DetailedAnalysis.RiskAssessment.OverallHealthScore != report.ExecutiveSummary.OverallHealthScore {
		t.Error("health score mismatch between summary and detail")
	}
}
