// Package store provides repository implementations for the portfolio engine.
package store

import (
	"context"
	"sync"

	"github.com/warp/lending-engine/portfolio"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu         sync.RWMutex
	charges    map[string][]portfolio.ChargeDefinition
	segments   map[segmentKey]portfolio.BalanceSegmentSet
	provisions map[string][]portfolio.LossProvisionStep
	cases      map[caseKey]portfolio.Case
}

type segmentKey struct {
	ProductID string
	SetID     string
}

type caseKey struct {
	ProductID string
	CaseID    string
}

func NewMemory() *Memory {
	return &Memory{
		charges:    make(map[string][]portfolio.ChargeDefinition),
		segments:   make(map[segmentKey]portfolio.BalanceSegmentSet),
		provisions: make(map[string][]portfolio.LossProvisionStep),
		cases:      make(map[caseKey]portfolio.Case),
	}
}

// Compile-time checks against the engine's collaborator ports.
var (
	_ portfolio.ProductRepository = (*Memory)(nil)
	_ portfolio.CaseRepository    = (*Memory)(nil)
)

// -----------------------------------------------------------------------------
// Writes (configuration time)
// -----------------------------------------------------------------------------

// PutChargeDefinitions replaces a product's charge definitions. Each
// definition is validated before the set is accepted.
func (m *Memory) PutChargeDefinitions(productID string, defs []portfolio.ChargeDefinition) error {
	for _, def := range defs {
		if err := def.Validate(); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := make([]portfolio.ChargeDefinition, len(defs))
	copy(copied, defs)
	m.charges[productID] = copied
	return nil
}

// PutBalanceSegmentSet stores a segment set after validating its bounds.
func (m *Memory) PutBalanceSegmentSet(set portfolio.BalanceSegmentSet) error {
	if err := set.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.segments[segmentKey{ProductID: set.ProductIdentifier, SetID: set.Identifier}] = set
	return nil
}

// PutLossProvisionSteps stores a product's provisioning table, rejecting
// duplicate days-late steps at write time.
func (m *Memory) PutLossProvisionSteps(productID string, steps []portfolio.LossProvisionStep) error {
	if err := portfolio.ValidateLossProvisionSteps(productID, steps); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := make([]portfolio.LossProvisionStep, len(steps))
	copy(copied, steps)
	m.provisions[productID] = copied
	return nil
}

// PutCase stores or replaces a case.
func (m *Memory) PutCase(c portfolio.Case) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cases[caseKey{ProductID: c.ProductIdentifier, CaseID: c.Identifier}] = c
}

// -----------------------------------------------------------------------------
// ProductRepository
// -----------------------------------------------------------------------------

func (m *Memory) ChargeDefinitions(_ context.Context, productID string) ([]portfolio.ChargeDefinition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	defs := m.charges[productID]
	out := make([]portfolio.ChargeDefinition, len(defs))
	copy(out, defs)
	return out, nil
}

func (m *Memory) BalanceSegmentSet(_ context.Context, productID, setID string) (portfolio.BalanceSegmentSet, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	set, ok := m.segments[segmentKey{ProductID: productID, SetID: setID}]
	return set, ok, nil
}

func (m *Memory) LossProvisionSteps(_ context.Context, productID string) ([]portfolio.LossProvisionStep, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	steps := m.provisions[productID]
	out := make([]portfolio.LossProvisionStep, len(steps))
	copy(out, steps)
	return out, nil
}

// -----------------------------------------------------------------------------
// CaseRepository
// -----------------------------------------------------------------------------

func (m *Memory) Case(_ context.Context, productID, caseID string) (portfolio.Case, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.cases[caseKey{ProductID: productID, CaseID: caseID}]
	return c, ok, nil
}
