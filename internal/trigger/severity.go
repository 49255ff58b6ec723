package trigger

import "github.com/EI94/Urbanova-sub017/internal/model"

// Delay thresholds in days. A delay below MediumDelayDays is low; up to
// HighDelayDays-1 is medium; up to CriticalDelayDays-1 is high; anything
// longer is critical.
const (
	MediumDelayDays   = 7
	HighDelayDays     = 31
	CriticalDelayDays = 91
)

// SeverityForDelay maps a reported delay to a severity. Safety or
// compliance relevance is always critical regardless of the delay.
func SeverityForDelay(delayDays int, safetyRelevant, complianceRelevant bool) model.Severity {
	switch {
	case safetyRelevant || complianceRelevant:
		return model.SeverityCritical
	case delayDays >= CriticalDelayDays:
		return model.SeverityCritical
	case delayDays >= HighDelayDays:
		return model.SeverityHigh
	case delayDays >= MediumDelayDays:
		return model.SeverityMedium
	default:
		return model.SeverityLow
	}
}

// triggerTypes is the fixed fact type -> trigger type table.
var triggerTypes = map[model.FactType]model.TriggerType{
	model.FactTypeDocument:    model.TriggerTypeDocumentExpiry,
	model.FactTypeSAL:         model.TriggerTypeSALDelay,
	model.FactTypeProcurement: model.TriggerTypeProcurementDelay,
	model.FactTypeResource:    model.TriggerTypeResourceConflict,
	model.FactTypeListing:     model.TriggerTypeScopeChange,
	model.FactTypePermit:      model.TriggerTypeRiskMaterialized,
}

// TriggerTypeFor returns the trigger type a fact type maps to.
func TriggerTypeFor(f model.FactType) (model.TriggerType, bool) {
	t, ok := triggerTypes[f]
	return t, ok
}
