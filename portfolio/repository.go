package portfolio

import "context"

// =============================================================================
// COLLABORATOR PORTS - Reference data the engine reads, never writes
// =============================================================================

// ProductRepository supplies the configuration reference data a
// calculation needs. Implementations may cache freely: segment sets and
// provision tables are read-only during a calculation and safe to share
// across concurrent calculations.
type ProductRepository interface {
	// ChargeDefinitions returns all charge definitions attached to a product.
	ChargeDefinitions(ctx context.Context, productID string) ([]ChargeDefinition, error)

	// BalanceSegmentSet returns a product's segment set by identifier.
	// The boolean is false when the set does not exist.
	BalanceSegmentSet(ctx context.Context, productID, setID string) (BalanceSegmentSet, bool, error)

	// LossProvisionSteps returns the product's loss provisioning table.
	LossProvisionSteps(ctx context.Context, productID string) ([]LossProvisionStep, error)
}

// CaseRepository supplies case state. The engine only reads; persisting
// lifecycle changes is the command pipeline's concern.
type CaseRepository interface {
	// Case returns a case by product and case identifier. The boolean is
	// false when the case does not exist.
	Case(ctx context.Context, productID, caseID string) (Case, bool, error)
}
