package analytics

// LabValue is a single measured marker. Reference bounds are optional; a
// marker without both bounds is never classified abnormal.
type LabValue struct {
	Name     string   `json:"name"`
	Value    float64  `json:"value"`
	Unit     string   `json:"unit"`
	RefMin   *float64 `json:"reference_range_min,omitempty"`
	RefMax   *float64 `json:"reference_range_max,omitempty"`
	Category string   `json:"category,omitempty"`
}

func (l LabValue) hasRange() bool {
	return l.RefMin != nil && l.RefMax != nil
}

func (l LabValue) abnormal() bool {
	return l.hasRange() && (l.Value < *l.RefMin || l.Value > *l.RefMax)
}

func (l LabValue) category() string {
	if l.Category == "" {
		return "general"
	}
	return l.Category
}

// PanelRequest carries one patient's lab panel into an analysis.
type PanelRequest struct {
	PatientID   int64      `json:"patient_id,omitempty"`
	PatientName string     `json:"patient_name,omitempty"`
	LabValues   []LabValue `json:"lab_values"`
}

// PatientInfo echoes panel identity back in every report.
type PatientInfo struct {
	PatientID    int64  `json:"patient_id,omitempty"`
	PatientName  string `json:"patient_name,omitempty"`
	AnalysisDate string `json:"analysis_date"`
	TotalMarkers int    `json:"total_markers"`
}

// AbnormalMarker is a measurement outside its reference range.
type AbnormalMarker struct {
	Name                string  `json:"name"`
	Value               float64 `json:"value"`
	Unit                string  `json:"unit"`
	ReferenceRange      string  `json:"reference_range"`
	Deviation           string  `json:"deviation"`
	Severity            string  `json:"severity"`
	PercentageDeviation float64 `json:"percentage_deviation"`
}

// CategorySummary aggregates markers sharing a panel category.
type CategorySummary struct {
	MarkerCount   int     `json:"marker_count"`
	AverageValue  float64 `json:"average_value"`
	AbnormalCount int     `json:"abnormal_count"`
}

// RiskIndicator is the panel-level verdict attached to a lab analysis.
type RiskIndicator struct {
	Level          string `json:"level"`
	Description    string `json:"description"`
	Recommendation string `json:"recommendation"`
}

// ValueRange holds the observed min and max of a value series.
type ValueRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// StatisticalSummary describes the panel's value distribution.
type StatisticalSummary struct {
	MeanValues   float64    `json:"mean_values"`
	StdDeviation float64    `json:"std_deviation"`
	ValueRange   ValueRange `json:"value_range"`
}

// LabAnalysis is the full report for one panel.
type LabAnalysis struct {
	PatientInfo        PatientInfo                `json:"patient_info"`
	StatisticalSummary StatisticalSummary         `json:"statistical_summary"`
	AbnormalMarkers    []AbnormalMarker           `json:"abnormal_markers"`
	CategoriesAnalysis map[string]CategorySummary `json:"categories_analysis"`
	RiskIndicators     []RiskIndicator            `json:"risk_indicators"`
}

// Outlier is a marker flagged by z-score, IQR, or both.
type Outlier struct {
	Name     string  `json:"name"`
	Value    float64 `json:"value"`
	ZScore   float64 `json:"z_score"`
	Method   string  `json:"method"`
	Severity string  `json:"severity"`
}

// OutlierStatistics summarizes the distribution the outliers were judged
// against.
type OutlierStatistics struct {
	TotalMarkers      int     `json:"total_markers"`
	OutlierCount      int     `json:"outlier_count"`
	OutlierPercentage float64 `json:"outlier_percentage"`
	Mean              float64 `json:"mean"`
	Std               float64 `json:"std"`
	Q1                float64 `json:"q1"`
	Q3                float64 `json:"q3"`
	IQR               float64 `json:"iqr"`
}

// OutlierReport is the result of DetectOutliers.
type OutlierReport struct {
	Outliers   []Outlier          `json:"outliers"`
	Statistics *OutlierStatistics `json:"statistics,omitempty"`
	Message    string             `json:"message,omitempty"`
}

// ConditionRisk scores one condition's marker group.
type ConditionRisk struct {
	RiskPercentage   float64  `json:"risk_percentage"`
	RiskLevel        string   `json:"risk_level"`
	MarkersEvaluated []string `json:"markers_evaluated"`
	AbnormalMarkers  int      `json:"abnormal_markers"`
	TotalMarkers     int      `json:"total_markers"`
}

// Recommendation is an action item derived from condition risk levels.
type Recommendation struct {
	Category string `json:"category"`
	Priority string `json:"priority"`
	Action   string `json:"action"`
	Details  string `json:"details"`
}

// RiskAssessment is the result of AssessRisk.
type RiskAssessment struct {
	PatientID          int64                    `json:"patient_id,omitempty"`
	OverallHealthScore float64                  `json:"overall_health_score"`
	RiskAssessments    map[string]ConditionRisk `json:"risk_assessments"`
	Recommendations    []Recommendation         `json:"recommendations"`
	AssessmentDate     string                   `json:"assessment_date"`
}

// Severity and risk level labels shared across reports.
const (
	LevelLow      = "low"
	LevelModerate = "moderate"
	LevelHigh     = "high"
)
