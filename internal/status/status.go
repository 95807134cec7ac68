// Package status holds the transition tables for every stateful row.
package status

import (
	"restaurant-pos/internal/models"
	"restaurant-pos/internal/utils"
)

// Machine is a transition table keyed by the current status.
type Machine struct {
	name  string
	edges map[string][]string
}

func newMachine(name string, edges map[string][]string) *Machine {
	return &Machine{name: name, edges: edges}
}

var (
	Order = newMachine("order", map[string][]string{
		models.OrderStatusPending:   {models.OrderStatusPreparing, models.OrderStatusReady, models.OrderStatusCancelled},
		models.OrderStatusPreparing: {models.OrderStatusReady, models.OrderStatusCancelled},
		models.OrderStatusReady:     {models.OrderStatusCompleted, models.OrderStatusPreparing, models.OrderStatusCancelled},
	})

	KOT = newMachine("kot", map[string][]string{
		models.KOTStatusPending:   {models.KOTStatusPreparing, models.KOTStatusCancelled},
		models.KOTStatusPreparing: {models.KOTStatusReady, models.KOTStatusCancelled},
		models.KOTStatusReady:     {models.KOTStatusCompleted},
	})

	Bill = newMachine("bill", map[string][]string{
		models.BillStatusUnpaid:  {models.BillStatusPartial, models.BillStatusPaid, models.BillStatusVoid},
		models.BillStatusPartial: {models.BillStatusPaid, models.BillStatusVoid},
	})

	Table = newMachine("table", map[string][]string{
		models.TableStatusAvailable: {models.TableStatusOccupied, models.TableStatusReserved},
		models.TableStatusReserved:  {models.TableStatusAvailable, models.TableStatusOccupied},
		models.TableStatusOccupied:  {models.TableStatusAvailable, models.TableStatusCleaning},
		models.TableStatusCleaning:  {models.TableStatusAvailable},
	})
)

// Known reports whether s is a status this machine understands.
func (m *Machine) Known(s string) bool {
	if _, ok := m.edges[s]; ok {
		return true
	}
	for _, targets := range m.edges {
		for _, t := range targets {
			if t == s {
				return true
			}
		}
	}
	return false
}

// CanTransition reports whether from → to is an allowed edge.
func (m *Machine) CanTransition(from, to string) bool {
	for _, t := range m.edges[from] {
		if t == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (m *Machine) Terminal(s string) bool {
	return len(m.edges[s]) == 0
}

// Next lists the statuses reachable from s.
func (m *Machine) Next(s string) []string {
	out := make([]string, len(m.edges[s]))
	copy(out, m.edges[s])
	return out
}

// Check validates a requested transition. Unknown targets are validation
// errors, disallowed edges are conflicts.
func (m *Machine) Check(from, to string) error {
	if !m.Known(to) {
		return utils.Validation("unknown %s status %q", m.name, to)
	}
	if from == to {
		return utils.Conflict("%s is already %s", m.name, to)
	}
	if !m.CanTransition(from, to) {
		return utils.Conflict("cannot move %s from %s to %s", m.name, from, to)
	}
	return nil
}

// DeriveOrderStatus computes the order status implied by its kitchen tickets.
// It returns current when the tickets do not imply a change.
func DeriveOrderStatus(current string, kots []*models.KOT) string {
	if current != models.OrderStatusPending && current != models.OrderStatusPreparing && current != models.OrderStatusReady {
		return current
	}

	live, done, preparing := 0, 0, 0
	for _, k := range kots {
		if !k.Live() {
			continue
		}
		live++
		switch k.Status {
		case models.KOTStatusPreparing:
			preparing++
		case models.KOTStatusReady, models.KOTStatusCompleted:
			done++
		}
	}

	switch {
	case live == 0:
		return current
	case done == live:
		return models.OrderStatusReady
	case preparing > 0 || done > 0:
		return models.OrderStatusPreparing
	default:
		return current
	}
}
