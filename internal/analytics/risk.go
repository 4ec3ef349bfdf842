package analytics

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// conditionMarkers maps each assessed condition to the marker names that
// contribute to its score. Matching is by normalized substring, so a panel
// entry named "Cholesterol Total" counts toward cardiovascular risk.
var conditionMarkers = map[string][]string{
	"cardiovascular": {"cholesterol_total", "ldl", "hdl", "triglycerides", "crp", "homocysteine"},
	"diabetes":       {"glucose", "hba1c", "insulin", "c_peptide"},
	"liver":          {"alt", "ast", "bilirubin", "albumin", "alp"},
	"kidney":         {"creatinine", "bun", "egfr", "protein"},
	"thyroid":        {"tsh", "t4", "t3", "reverse_t3"},
	"inflammation":   {"crp", "esr", "il6", "tnf_alpha"},
}

const defaultHealthScore = 85

// AssessRisk scores each known condition from the fraction of its matching
// markers that fall outside their reference ranges, then derives an overall
// health score from the average risk.
func AssessRisk(req PanelRequest) RiskAssessment {
	scores := make(map[string]ConditionRisk)

	for condition, markers := range conditionMarkers {
		var matching []string
		abnormalCount := 0
		for _, lab := range req.LabValues {
			if !matchesAny(normalizeMarkerName(lab.Name), markers) {
				continue
			}
			matching = append(matching, lab.Name)
			if lab.abnormal() {
				abnormalCount++
			}
		}
		if len(matching) == 0 {
			continue
		}

		pct := float64(abnormalCount) / float64(len(matching)) * 100
		scores[condition] = ConditionRisk{
			RiskPercentage:   pct,
			RiskLevel:        riskLevel(pct),
			MarkersEvaluated: matching,
			AbnormalMarkers:  abnormalCount,
			TotalMarkers:     len(matching),
		}
	}

	score := float64(defaultHealthScore)
	if len(scores) > 0 {
		var total float64
		for _, risk := range scores {
			total += risk.RiskPercentage
		}
		score = 100 - total/float64(len(scores))
		if score < 0 {
			score = 0
		}
	}

	return RiskAssessment{
		PatientID:          req.PatientID,
		OverallHealthScore: round1(score),
		RiskAssessments:    scores,
		Recommendations:    healthRecommendations(scores),
		AssessmentDate:     time.Now().Format(time.RFC3339),
	}
}

func riskLevel(pct float64) string {
	switch {
	case pct < 25:
		return LevelLow
	case pct < 50:
		return LevelModerate
	default:
		return LevelHigh
	}
}

func normalizeMarkerName(name string) string {
	normalized := strings.ToLower(name)
	normalized = strings.ReplaceAll(normalized, " ", "_")
	return strings.ReplaceAll(normalized, "-", "_")
}

func matchesAny(normalized string, markers []string) bool {
	for _, marker := range markers {
		if strings.Contains(normalized, marker) {
			return true
		}
	}
	return false
}

func healthRecommendations(scores map[string]ConditionRisk) []Recommendation {
	recommendations := []Recommendation{}
	anyHigh := false

	for _, condition := range sortedConditions(scores) {
		risk := scores[condition]
		switch risk.RiskLevel {
		case LevelHigh:
			anyHigh = true
			recommendations = append(recommendations, Recommendation{
				Category: condition,
				Priority: LevelHigh,
				Action:   fmt.Sprintf("Immediate consultation recommended for %s risk factors", condition),
				Details:  fmt.Sprintf("%d out of %d markers abnormal", risk.AbnormalMarkers, risk.TotalMarkers),
			})
		case LevelModerate:
			recommendations = append(recommendations, Recommendation{
				Category: condition,
				Priority: LevelModerate,
				Action:   fmt.Sprintf("Monitor and lifestyle modifications for %s health", condition),
				Details:  fmt.Sprintf("Some %s markers outside optimal ranges", condition),
			})
		}
	}

	if !anyHigh {
		recommendations = append(recommendations, Recommendation{
			Category: "general",
			Priority: LevelLow,
			Action:   "Continue healthy lifestyle practices",
			Details:  "Most health markers within acceptable ranges",
		})
	}
	return recommendations
}

func sortedConditions(scores map[string]ConditionRisk) []string {
	conditions := make([]string, 0, len(scores))
	for condition := range scores {
		conditions = append(conditions, condition)
	}
	sort.Strings(conditions)
	return conditions
}
