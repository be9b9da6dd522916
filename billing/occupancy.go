/*
occupancy.go - Composite-key index joining tenants to units

PURPOSE:
  Tenant records reference their unit by (propertyId, unitName), not by an
  object reference. Scanning every property's unit list for every tenant
  lookup is an O(n*m) string-match join; this file builds the index once
  per computation so every lookup is O(1) and the uniqueness-of-occupancy
  invariant is checkable in one place.

KEY CONCEPTS:
  - UnitKey: The explicit composite key replacing the implicit join.
  - OccupancyIndex: unit and occupant lookup maps built in one pass.
  - Conflicts: units claimed by more than one active tenant. Computations
    use the first claimant in input order; audits surface the rest.

USAGE:
  ix := billing.NewOccupancyIndex(properties, tenants)
  if ref, ok := ix.UnitFor(tenant); ok { ... }
*/
package billing

import "sort"

// UnitKey identifies a unit across the whole portfolio.
type UnitKey struct {
	PropertyID PropertyID
	UnitName   string
}

// UnitRef is a resolved unit together with its containing property.
type UnitRef struct {
	Property *Property
	Unit     *Unit
}

// OccupancyIndex resolves unit references and active occupancy. Build it
// once per computation; it holds pointers into the slices it was built
// from and must not outlive them.
type OccupancyIndex struct {
	units     map[UnitKey]UnitRef
	occupants map[UnitKey][]*Tenant
}

// NewOccupancyIndex indexes the unit catalog and the active (non-archived)
// tenants in one pass. A nil tenant slice builds a unit-only index.
func NewOccupancyIndex(properties []Property, tenants []Tenant) *OccupancyIndex {
	ix := &OccupancyIndex{
		units:     make(map[UnitKey]UnitRef),
		occupants: make(map[UnitKey][]*Tenant),
	}
	for pi := range properties {
		p := &properties[pi]
		for ui := range p.Units {
			key := UnitKey{PropertyID: p.ID, UnitName: p.Units[ui].Name}
			ix.units[key] = UnitRef{Property: p, Unit: &p.Units[ui]}
		}
	}
	for ti := range tenants {
		t := &tenants[ti]
		if t.Archived || t.PropertyID == "" || t.UnitName == "" {
			continue
		}
		key := UnitKey{PropertyID: t.PropertyID, UnitName: t.UnitName}
		ix.occupants[key] = append(ix.occupants[key], t)
	}
	return ix
}

// Unit resolves a key to its unit, if the catalog has it.
func (ix *OccupancyIndex) Unit(key UnitKey) (UnitRef, bool) {
	ref, ok := ix.units[key]
	return ref, ok
}

// UnitFor resolves a tenant's unit reference. A false return means the
// tenant points at a unit the catalog doesn't have; callers treat that as
// zero monthly charge, not as an error.
func (ix *OccupancyIndex) UnitFor(t *Tenant) (UnitRef, bool) {
	if t == nil {
		return UnitRef{}, false
	}
	return ix.Unit(UnitKey{PropertyID: t.PropertyID, UnitName: t.UnitName})
}

// OccupantOf returns the unit's active tenant. With conflicting claims the
// first tenant in input order wins, keeping the computation deterministic.
func (ix *OccupancyIndex) OccupantOf(key UnitKey) (*Tenant, bool) {
	claims := ix.occupants[key]
	if len(claims) == 0 {
		return nil, false
	}
	return claims[0], true
}

// Conflicts lists units claimed by more than one active tenant, sorted by
// key for stable reporting.
func (ix *OccupancyIndex) Conflicts() []OccupancyConflict {
	var out []OccupancyConflict
	for key, claims := range ix.occupants {
		if len(claims) < 2 {
			continue
		}
		c := OccupancyConflict{Key: key}
		for _, t := range claims {
			c.Tenants = append(c.Tenants, t.ID)
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Key.PropertyID != out[j].Key.PropertyID {
			return out[i].Key.PropertyID < out[j].Key.PropertyID
		}
		return out[i].Key.UnitName < out[j].Key.UnitName
	})
	return out
}
