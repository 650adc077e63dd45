package analytics

import "FusionRisk/internal/domain/models"

// ActionFor maps a risk category to its corrective action. Unknown categories maintain.
func ActionFor(category string) string {
	switch category {
	case models.RiskHigh:
		return models.ActionReset
	case models.RiskModerate:
		return models.ActionReinforce
	default:
		return models.ActionMaintain
	}
}
