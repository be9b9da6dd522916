/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

  Field names are camelCase to stay compatible with the existing
  consumers of these feeds (dashboard, CSV export, statement rendering).
  Monetary values cross the wire as plain JSON numbers; the exact
  decimal representation lives only inside the engine.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request types carry go-playground/validator struct tags; handlers run
  them through the shared validator instance before touching the domain.

SEE ALSO:
  - handlers.go: Uses these types
  - billing/types.go: The domain model these mirror
*/
package api

import (
	"sort"
	"time"

	"github.com/warp/billing-engine/billing"
	"github.com/warp/billing-engine/ledger"
)

const dateLayout = "2006-01-02"

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// LeaseDTO is the billing contract embedded in a tenant response.
type LeaseDTO struct {
	RentAmount       float64 `json:"rentAmount"`
	LastPaymentDate  string  `json:"lastPaymentDate,omitempty"`
	LastBilledPeriod string  `json:"lastBilledPeriod,omitempty"`
	SecurityDeposit  float64 `json:"securityDeposit"`
}

// TenantDTO represents a resident in API responses.
type TenantDTO struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Phone        string   `json:"phone,omitempty"`
	ResidentType string   `json:"residentType"`
	PropertyID   string   `json:"propertyId,omitempty"`
	UnitName     string   `json:"unitName,omitempty"`
	Lease        LeaseDTO `json:"lease"`
	DueBalance   float64  `json:"dueBalance"`
	Archived     bool     `json:"archived"`
	ArchivedAt   string   `json:"archivedAt,omitempty"`
	CreatedAt    string   `json:"createdAt,omitempty"`
}

// UnitDTO represents a unit in API responses.
type UnitDTO struct {
	Name           string  `json:"name"`
	Ownership      string  `json:"ownership"`
	UnitType       string  `json:"unitType,omitempty"`
	Status         string  `json:"status"`
	RentAmount     float64 `json:"rentAmount"`
	ServiceCharge  float64 `json:"serviceCharge"`
	HandoverStatus string  `json:"handoverStatus"`
	HandoverDate   string  `json:"handoverDate,omitempty"`
}

// PropertyDTO represents a property with its unit catalog.
type PropertyDTO struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	LandlordID string    `json:"landlordId,omitempty"`
	Units      []UnitDTO `json:"units"`
}

// PaymentDTO represents a payment row.
type PaymentDTO struct {
	ID            string  `json:"id"`
	TenantID      string  `json:"tenantId"`
	Amount        float64 `json:"amount"`
	Date          string  `json:"date"`
	Type          string  `json:"type"`
	Status        string  `json:"status"`
	PaymentMethod string  `json:"paymentMethod,omitempty"`
	Notes         string  `json:"notes,omitempty"`
	CreatedAt     string  `json:"createdAt,omitempty"`
}

// LedgerEntryDTO is one row of a resident's statement.
type LedgerEntryDTO struct {
	Date        string  `json:"date"`
	Description string  `json:"description"`
	Charge      float64 `json:"charge"`
	Payment     float64 `json:"payment"`
	Balance     float64 `json:"balance"`
}

// LedgerDTO is a resident's full statement with its closing split.
type LedgerDTO struct {
	Tenant              TenantDTO        `json:"tenant"`
	AsOf                string           `json:"asOf"`
	Ledger              []LedgerEntryDTO `json:"ledger"`
	FinalDueBalance     float64          `json:"finalDueBalance"`
	FinalAccountBalance float64          `json:"finalAccountBalance"`
}

// ArrearsDTO is the single-figure arrears response.
type ArrearsDTO struct {
	Arrears float64 `json:"arrears"`
}

// ArrearsRowDTO pairs a resident with what they owe.
type ArrearsRowDTO struct {
	Tenant  TenantDTO `json:"tenant"`
	Arrears float64   `json:"arrears"`
}

// ArrearsListDTO is the notification feed: who owes, most first.
type ArrearsListDTO struct {
	Tenants      []ArrearsRowDTO `json:"tenants"`
	Count        int             `json:"count"`
	TotalArrears float64         `json:"totalArrears"`
}

// UnitArrearsDTO is one row of a landlord's deduction breakdown.
type UnitArrearsDTO struct {
	PropertyID          string  `json:"propertyId"`
	PropertyName        string  `json:"propertyName"`
	UnitName            string  `json:"unitName"`
	Occupied            bool    `json:"occupied"`
	TenantID            string  `json:"tenantId,omitempty"`
	TenantName          string  `json:"tenantName,omitempty"`
	Arrears             float64 `json:"arrears"`
	VacantServiceCharge float64 `json:"vacantServiceCharge"`
}

// LandlordArrearsSummaryDTO is the landlord deduction summary.
type LandlordArrearsSummaryDTO struct {
	LandlordID              string           `json:"landlordId"`
	Units                   []UnitArrearsDTO `json:"units"`
	TotalTenantArrears      float64          `json:"totalTenantArrears"`
	VacantUnitServiceCharge float64          `json:"vacantUnitServiceCharge"`
	TotalDeductions         float64          `json:"totalDeductions"`
}

// ProjectedMonthDTO is one step of the forward outlook.
type ProjectedMonthDTO struct {
	Month   string  `json:"month"`
	Charge  float64 `json:"charge"`
	Balance float64 `json:"balance"`
}

// ProjectionDTO is a resident's forward arrears outlook.
type ProjectionDTO struct {
	TenantID string              `json:"tenantId"`
	Months   []ProjectedMonthDTO `json:"months"`
}

// FloorGroupDTO is one floor bucket of a property's units.
type FloorGroupDTO struct {
	Floor string    `json:"floor"`
	Units []UnitDTO `json:"units"`
}

// FloorsDTO groups a property's units by parsed floor code. Units whose
// name yields no floor are listed under ungrouped.
type FloorsDTO struct {
	PropertyID string          `json:"propertyId"`
	Floors     []FloorGroupDTO `json:"floors"`
	Ungrouped  []UnitDTO       `json:"ungrouped,omitempty"`
}

// DriftRowDTO is one cache/ledger disagreement.
type DriftRowDTO struct {
	TenantID string  `json:"tenantId"`
	Cached   float64 `json:"cached"`
	Computed float64 `json:"computed"`
}

// ConflictDTO is one doubly-claimed unit.
type ConflictDTO struct {
	PropertyID string   `json:"propertyId"`
	UnitName   string   `json:"unitName"`
	TenantIDs  []string `json:"tenantIds"`
}

// AuditReportDTO is the balance-audit response.
type AuditReportDTO struct {
	AsOf      string        `json:"asOf"`
	Checked   int           `json:"checked"`
	Clean     bool          `json:"clean"`
	Drift     []DriftRowDTO `json:"drift"`
	Conflicts []ConflictDTO `json:"conflicts"`
}

// RebuildResultDTO reports a cache rebuild.
type RebuildResultDTO struct {
	Rebuilt int `json:"rebuilt"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// REQUEST TYPES
// =============================================================================

// LeaseRequest is the lease block of a tenant create/update.
type LeaseRequest struct {
	RentAmount       float64 `json:"rentAmount" validate:"gte=0"`
	LastPaymentDate  string  `json:"lastPaymentDate" validate:"omitempty,datetime=2006-01-02"`
	LastBilledPeriod string  `json:"lastBilledPeriod"`
	SecurityDeposit  float64 `json:"securityDeposit" validate:"gte=0"`
}

// TenantRequest creates or updates a resident.
type TenantRequest struct {
	ID           string       `json:"id"`
	Name         string       `json:"name" validate:"required"`
	Phone        string       `json:"phone"`
	ResidentType string       `json:"residentType" validate:"omitempty,oneof=Tenant Homeowner"`
	PropertyID   string       `json:"propertyId"`
	UnitName     string       `json:"unitName"`
	Lease        LeaseRequest `json:"lease"`
}

// PaymentRequest records a payment.
type PaymentRequest struct {
	TenantID      string  `json:"tenantId" validate:"required"`
	Amount        float64 `json:"amount" validate:"required,gt=0"`
	Date          string  `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Type          string  `json:"type" validate:"omitempty,oneof=Rent ServiceCharge Other"`
	Status        string  `json:"status" validate:"omitempty,oneof=Paid Pending"`
	PaymentMethod string  `json:"paymentMethod"`
	Notes         string  `json:"notes"`
}

// UnitRequest adds or updates a unit.
type UnitRequest struct {
	Name           string  `json:"name" validate:"required"`
	Ownership      string  `json:"ownership" validate:"omitempty,oneof=SM Landlord"`
	UnitType       string  `json:"unitType"`
	Status         string  `json:"status" validate:"omitempty,oneof=vacant rented airbnb"`
	RentAmount     float64 `json:"rentAmount" validate:"gte=0"`
	ServiceCharge  float64 `json:"serviceCharge" validate:"gte=0"`
	HandoverStatus string  `json:"handoverStatus" validate:"omitempty,oneof=Pending 'Handed Over'"`
	HandoverDate   string  `json:"handoverDate" validate:"omitempty,datetime=2006-01-02"`
}

// PropertyRequest creates a property with an optional initial catalog.
type PropertyRequest struct {
	ID         string        `json:"id"`
	Name       string        `json:"name" validate:"required"`
	LandlordID string        `json:"landlordId"`
	Units      []UnitRequest `json:"units" validate:"dive"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toTenantDTO(t *billing.Tenant) TenantDTO {
	dto := TenantDTO{
		ID:           string(t.ID),
		Name:         t.Name,
		Phone:        t.Phone,
		ResidentType: string(t.ResidentType),
		PropertyID:   string(t.PropertyID),
		UnitName:     t.UnitName,
		Lease: LeaseDTO{
			RentAmount:       t.Lease.RentAmount.Float64(),
			LastBilledPeriod: t.Lease.LastBilledPeriod,
			SecurityDeposit:  t.Lease.SecurityDeposit.Float64(),
		},
		DueBalance: t.DueBalance.Float64(),
		Archived:   t.Archived,
	}
	if t.Lease.LastPaymentDate != nil {
		dto.Lease.LastPaymentDate = t.Lease.LastPaymentDate.Format(dateLayout)
	}
	if t.ArchivedAt != nil {
		dto.ArchivedAt = t.ArchivedAt.Format(time.RFC3339)
	}
	if !t.CreatedAt.IsZero() {
		dto.CreatedAt = t.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

func toUnitDTO(u *billing.Unit) UnitDTO {
	dto := UnitDTO{
		Name:           u.Name,
		Ownership:      string(u.Ownership),
		UnitType:       u.UnitType,
		Status:         string(u.Status),
		RentAmount:     u.RentAmount.Float64(),
		ServiceCharge:  u.ServiceCharge.Float64(),
		HandoverStatus: string(u.HandoverStatus),
	}
	if u.HandoverDate != nil {
		dto.HandoverDate = u.HandoverDate.Format(dateLayout)
	}
	return dto
}

func toPropertyDTO(p *billing.Property) PropertyDTO {
	units := make([]UnitDTO, len(p.Units))
	for i := range p.Units {
		units[i] = toUnitDTO(&p.Units[i])
	}
	return PropertyDTO{
		ID:         string(p.ID),
		Name:       p.Name,
		LandlordID: string(p.LandlordID),
		Units:      units,
	}
}

func toPaymentDTO(p *billing.Payment) PaymentDTO {
	dto := PaymentDTO{
		ID:            string(p.ID),
		TenantID:      string(p.TenantID),
		Amount:        p.Amount.Float64(),
		Date:          p.Date.Format(dateLayout),
		Type:          string(p.Type),
		Status:        string(p.Status),
		PaymentMethod: p.PaymentMethod,
		Notes:         p.Notes,
	}
	if !p.CreatedAt.IsZero() {
		dto.CreatedAt = p.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

func toLedgerEntryDTOs(entries []ledger.Entry) []LedgerEntryDTO {
	dtos := make([]LedgerEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = LedgerEntryDTO{
			Date:        e.Date.Format(dateLayout),
			Description: e.Description,
			Charge:      e.Charge.Float64(),
			Payment:     e.Payment.Float64(),
			Balance:     e.Balance.Float64(),
		}
	}
	return dtos
}

func toLandlordSummaryDTO(sum billing.LandlordArrearsSummary) LandlordArrearsSummaryDTO {
	units := make([]UnitArrearsDTO, len(sum.Units))
	for i, u := range sum.Units {
		units[i] = UnitArrearsDTO{
			PropertyID:          string(u.PropertyID),
			PropertyName:        u.PropertyName,
			UnitName:            u.UnitName,
			Occupied:            u.Occupied,
			TenantID:            string(u.TenantID),
			TenantName:          u.TenantName,
			Arrears:             u.Arrears.Float64(),
			VacantServiceCharge: u.VacantServiceCharge.Float64(),
		}
	}
	return LandlordArrearsSummaryDTO{
		LandlordID:              string(sum.LandlordID),
		Units:                   units,
		TotalTenantArrears:      sum.TotalTenantArrears.Float64(),
		VacantUnitServiceCharge: sum.VacantUnitServiceCharge.Float64(),
		TotalDeductions:         sum.TotalDeductions.Float64(),
	}
}

func toFloorsDTO(p *billing.Property) FloorsDTO {
	dto := FloorsDTO{PropertyID: string(p.ID)}

	groups := make(map[string][]UnitDTO)
	for i := range p.Units {
		u := toUnitDTO(&p.Units[i])
		floor, ok := billing.ParseFloor(p.Units[i].Name)
		if !ok {
			dto.Ungrouped = append(dto.Ungrouped, u)
			continue
		}
		groups[floor] = append(groups[floor], u)
	}

	floors := make([]string, 0, len(groups))
	for floor := range groups {
		floors = append(floors, floor)
	}
	sort.Strings(floors)
	for _, floor := range floors {
		dto.Floors = append(dto.Floors, FloorGroupDTO{Floor: floor, Units: groups[floor]})
	}
	return dto
}

func toAuditReportDTO(report *billing.AuditReport) AuditReportDTO {
	dto := AuditReportDTO{
		AsOf:      report.AsOf.String(),
		Checked:   report.Checked,
		Clean:     report.Clean(),
		Drift:     []DriftRowDTO{},
		Conflicts: []ConflictDTO{},
	}
	for _, d := range report.Drift {
		dto.Drift = append(dto.Drift, DriftRowDTO{
			TenantID: string(d.TenantID),
			Cached:   d.Cached.Float64(),
			Computed: d.Computed.Float64(),
		})
	}
	for _, c := range report.Conflicts {
		ids := make([]string, len(c.Tenants))
		for i, id := range c.Tenants {
			ids[i] = string(id)
		}
		dto.Conflicts = append(dto.Conflicts, ConflictDTO{
			PropertyID: string(c.Key.PropertyID),
			UnitName:   c.Key.UnitName,
			TenantIDs:  ids,
		})
	}
	return dto
}
