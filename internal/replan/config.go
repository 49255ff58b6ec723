package replan

import (
	"time"

	"github.com/EI94/Urbanova-sub017/core/config"
	"github.com/EI94/Urbanova-sub017/internal/model"
)

const DefaultMaxRecommendations = 5

// CostModel splits a proposal's total cost into buckets by share. Shares
// are fractions of the total and need not sum to one.
type CostModel struct {
	Labor       float64
	Materials   float64
	Overhead    float64
	Contingency float64
}

func (c CostModel) IsZero() bool {
	return c.Labor == 0 && c.Materials == 0 && c.Overhead == 0 && c.Contingency == 0
}

type Config struct {
	// CarryingCostPerDay is charged for every day the project end moves out.
	CarryingCostPerDay float64
	// GrowthThresholdPct bumps risk to GrowthRiskLevel when the critical
	// path duration grows by more than this percentage.
	GrowthThresholdPct float64
	GrowthRiskLevel    model.Severity
	// AutoApproveMaxSeverity is the highest trigger severity eligible for
	// auto-apply when the project has no policy of its own.
	AutoApproveMaxSeverity model.Severity
	ApprovalWindow         time.Duration
	DefaultApprover        string
	CostModel              CostModel
	MaxRecommendations     int
}

func DefaultConfig() Config {
	return Config{
		GrowthThresholdPct:     10,
		GrowthRiskLevel:        model.SeverityHigh,
		AutoApproveMaxSeverity: model.SeverityLow,
		ApprovalWindow:         72 * time.Hour,
		MaxRecommendations:     DefaultMaxRecommendations,
	}
}

// NewConfig maps service configuration onto generator settings.
func NewConfig(c config.ReplanConfig) Config {
	cfg := DefaultConfig()
	cfg.CarryingCostPerDay = c.CarryingCostPerDay
	cfg.GrowthThresholdPct = c.GrowthThresholdPct
	cfg.ApprovalWindow = c.ApprovalWindow
	cfg.DefaultApprover = c.DefaultApprover
	cfg.CostModel = CostModel{
		Labor:       c.CostShareLabor,
		Materials:   c.CostShareMaterials,
		Overhead:    c.CostShareOverhead,
		Contingency: c.CostShareContingency,
	}
	if s := model.Severity(c.GrowthRiskLevel); s.IsValid() {
		cfg.GrowthRiskLevel = s
	}
	if s := model.Severity(c.AutoApproveMaxSeverity); s.IsValid() {
		cfg.AutoApproveMaxSeverity = s
	}
	if c.MaxRecommendations > 0 {
		cfg.MaxRecommendations = c.MaxRecommendations
	}
	return cfg
}
