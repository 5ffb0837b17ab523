package plan

import "context"

// Store persists plan definitions keyed by code.
type Store interface {
	// GetPlan returns the plan or rewards.ErrPlanNotFound.
	GetPlan(ctx context.Context, code string) (*Plan, error)
	// ListPlans returns plans ordered by ascending price.
	ListPlans(ctx context.Context, opts ListOpts) ([]*Plan, error)
	// SavePlan inserts or replaces the plan with the same code.
	SavePlan(ctx context.Context, p *Plan) error
}
