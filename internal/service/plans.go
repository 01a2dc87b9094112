package service

import (
	"elva.app/accounting/internal/model"
)

// EnterpriseConversationLimit stands in for "unbounded" so overage math stays integral.
const EnterpriseConversationLimit = 1_000_000

var defaultPlanLimits = map[model.Plan]int{
	model.PlanFree:       100,
	model.PlanBasic:      100,
	model.PlanGrowth:     300,
	model.PlanPro:        750,
	model.PlanEnterprise: EnterpriseConversationLimit,
}

// PlanLimits maps a plan to its monthly conversation limit.
type PlanLimits struct {
	limits map[model.Plan]int
}

// NewPlanLimits merges overrides (keyed by plan name) over the built-in table.
// Unknown plan names in overrides are kept so new plans can be rolled out by config.
func NewPlanLimits(overrides map[string]int) PlanLimits {
	limits := make(map[model.Plan]int, len(defaultPlanLimits)+len(overrides))
	for plan, limit := range defaultPlanLimits {
		limits[plan] = limit
	}
	for plan, limit := range overrides {
		limits[model.Plan(plan)] = limit
	}
	return PlanLimits{limits: limits}
}

// Limit returns the plan limit. Unknown plans get the free tier.
func (p PlanLimits) Limit(plan model.Plan) int {
	if limit, ok := p.limits[plan]; ok {
		return limit
	}
	if limit, ok := p.limits[model.PlanFree]; ok {
		return limit
	}
	return defaultPlanLimits[model.PlanFree]
}

// ForOrganization applies the per-organization override on top of the plan table.
func (p PlanLimits) ForOrganization(org *model.Organization) int {
	if org.LimitOverride != nil && *org.LimitOverride >= 0 {
		return *org.LimitOverride
	}
	return p.Limit(org.Plan)
}
