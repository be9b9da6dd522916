/*
handlers.go - HTTP API handlers for the billing engine

PURPOSE:
  Exposes the billing engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Arrears:
    GET    /api/tenants/{id}/arrears    Single-figure arrears
    GET    /api/landlords/{id}/arrears  Landlord deduction breakdown
    GET    /api/notify/arrears          Arrears list for notifications

  Tenants:
    GET    /api/tenants                 List residents
    POST   /api/tenants                 Create resident
    GET    /api/tenants/{id}            Get resident
    PUT    /api/tenants/{id}            Update resident
    POST   /api/tenants/{id}/archive    Move-out (archive, never delete)
    GET    /api/tenants/{id}/ledger     Statement (+?asOf=YYYY-MM)
    GET    /api/tenants/{id}/ledger/export  CSV statement download
    GET    /api/tenants/{id}/projection Forward outlook (?months=N)
    GET    /api/tenants/{id}/payments   Payment history

  Payments:
    POST   /api/payments                Record (Paid or Pending)
    POST   /api/payments/{id}/confirm   Pending -> Paid
    POST   /api/payments/{id}/void      Cancel a Pending row

  Properties:
    GET    /api/properties              List catalog
    POST   /api/properties              Create property
    GET    /api/properties/{id}         Get property
    POST   /api/properties/{id}/units   Add unit
    PUT    /api/properties/{id}/units/{name}  Update unit
    GET    /api/properties/{id}/floors  Units grouped by floor code

  Admin:
    POST   /api/admin/rebuild-balances  Recompute every cached balance
    GET    /api/admin/balance-audit     Cache drift + occupancy conflicts

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, bad lifecycle transitions
  - 404: Resource not found
  - 409: Duplicate unit names
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - billing/bookkeeper.go: The write paths these handlers drive
*/
package api

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/warp/billing-engine/billing"
	"github.com/warp/billing-engine/ledger"
	"github.com/warp/billing-engine/logging"
)

var validate = validator.New()

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store billing.Store
	Books *billing.Bookkeeper
}

// NewHandler creates a new handler over the given store.
func NewHandler(store billing.Store) *Handler {
	return &Handler{
		Store: store,
		Books: billing.NewBookkeeper(store),
	}
}

// =============================================================================
// ARREARS HANDLERS
// =============================================================================

// GetTenantArrears returns the amount one resident owes.
// GET /api/tenants/{id}/arrears
func (h *Handler) GetTenantArrears(w http.ResponseWriter, r *http.Request) {
	id := billing.TenantID(chi.URLParam(r, "id"))

	arrears, err := h.Books.ArrearsFor(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to compute arrears", err)
		return
	}

	writeJSON(w, http.StatusOK, ArrearsDTO{Arrears: arrears.Float64()})
}

// GetLandlordArrears returns the deduction breakdown for one landlord.
// GET /api/landlords/{id}/arrears
func (h *Handler) GetLandlordArrears(w http.ResponseWriter, r *http.Request) {
	id := billing.LandlordID(chi.URLParam(r, "id"))

	sum, err := h.Books.LandlordBreakdown(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to compute landlord breakdown", err)
		return
	}

	writeJSON(w, http.StatusOK, toLandlordSummaryDTO(sum))
}

// NotifyArrears returns the arrears list the notification sender consumes.
// GET /api/notify/arrears
func (h *Handler) NotifyArrears(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Books.ArrearsList(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to list arrears", err)
		return
	}

	out := ArrearsListDTO{Tenants: make([]ArrearsRowDTO, 0, len(rows))}
	total := ledger.Money{}
	for i := range rows {
		out.Tenants = append(out.Tenants, ArrearsRowDTO{
			Tenant:  toTenantDTO(&rows[i].Tenant),
			Arrears: rows[i].Arrears.Float64(),
		})
		total = total.Add(rows[i].Arrears)
	}
	out.Count = len(out.Tenants)
	out.TotalArrears = total.Float64()

	writeJSON(w, http.StatusOK, out)
}

// =============================================================================
// TENANT HANDLERS
// =============================================================================

// ListTenants returns all residents; ?includeArchived=true adds moved-out
// residents still carrying debt.
func (h *Handler) ListTenants(w http.ResponseWriter, r *http.Request) {
	includeArchived := r.URL.Query().Get("includeArchived") == "true"

	tenants, err := h.Store.Tenants(r.Context(), includeArchived)
	if err != nil {
		writeDomainError(w, "Failed to list tenants", err)
		return
	}

	dtos := make([]TenantDTO, len(tenants))
	for i := range tenants {
		dtos[i] = toTenantDTO(&tenants[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetTenant returns a single resident.
func (h *Handler) GetTenant(w http.ResponseWriter, r *http.Request) {
	id := billing.TenantID(chi.URLParam(r, "id"))

	t, err := h.Store.Tenant(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get tenant", err)
		return
	}
	writeJSON(w, http.StatusOK, toTenantDTO(t))
}

// CreateTenant creates a resident and materializes their opening balance.
func (h *Handler) CreateTenant(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeValid[TenantRequest](w, r)
	if !ok {
		return
	}

	t, ok := tenantFromRequest(w, req)
	if !ok {
		return
	}
	created, err := h.Books.CreateTenant(r.Context(), t)
	if err != nil {
		writeDomainError(w, "Failed to create tenant", err)
		return
	}

	writeJSON(w, http.StatusCreated, toTenantDTO(created))
}

// UpdateTenant replaces a resident's record; lease or unit changes move
// the charge schedule and the cached balance follows.
func (h *Handler) UpdateTenant(w http.ResponseWriter, r *http.Request) {
	id := billing.TenantID(chi.URLParam(r, "id"))
	req, ok := decodeValid[TenantRequest](w, r)
	if !ok {
		return
	}

	t, ok := tenantFromRequest(w, req)
	if !ok {
		return
	}
	t.ID = id
	updated, err := h.Books.UpdateTenant(r.Context(), t)
	if err != nil {
		writeDomainError(w, "Failed to update tenant", err)
		return
	}

	writeJSON(w, http.StatusOK, toTenantDTO(updated))
}

// ArchiveTenant records a move-out. Charges freeze at the current month;
// the record and any outstanding debt stay.
func (h *Handler) ArchiveTenant(w http.ResponseWriter, r *http.Request) {
	id := billing.TenantID(chi.URLParam(r, "id"))

	archived, err := h.Books.ArchiveTenant(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to archive tenant", err)
		return
	}
	writeJSON(w, http.StatusOK, toTenantDTO(archived))
}

// GetTenantLedger returns a resident's statement. ?asOf=YYYY-MM pins the
// cutoff month; the default is the current month.
func (h *Handler) GetTenantLedger(w http.ResponseWriter, r *http.Request) {
	id := billing.TenantID(chi.URLParam(r, "id"))

	asOf, ok := h.asOfParam(w, r)
	if !ok {
		return
	}

	t, res, err := h.Books.Statement(r.Context(), id, asOf)
	if err != nil {
		writeDomainError(w, "Failed to generate ledger", err)
		return
	}

	writeJSON(w, http.StatusOK, LedgerDTO{
		Tenant:              toTenantDTO(t),
		AsOf:                asOf.String(),
		Ledger:              toLedgerEntryDTOs(res.Ledger),
		FinalDueBalance:     res.FinalDueBalance.Float64(),
		FinalAccountBalance: res.FinalAccountBalance.Float64(),
	})
}

// ExportTenantLedger streams a resident's statement as CSV.
func (h *Handler) ExportTenantLedger(w http.ResponseWriter, r *http.Request) {
	id := billing.TenantID(chi.URLParam(r, "id"))

	asOf, ok := h.asOfParam(w, r)
	if !ok {
		return
	}

	_, res, err := h.Books.Statement(r.Context(), id, asOf)
	if err != nil {
		writeDomainError(w, "Failed to generate ledger", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="statement-%s-%s.csv"`, id, asOf))

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"date", "description", "charge", "payment", "balance"})
	for _, e := range res.Ledger {
		_ = cw.Write([]string{
			e.Date.Format(dateLayout),
			e.Description,
			e.Charge.String(),
			e.Payment.String(),
			e.Balance.String(),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		logging.Logger.WithError(err).Error("CSV export write failed")
	}
}

// GetTenantProjection returns a resident's forward outlook, defaulting to
// three months ahead.
func (h *Handler) GetTenantProjection(w http.ResponseWriter, r *http.Request) {
	id := billing.TenantID(chi.URLParam(r, "id"))

	months := 3
	if raw := r.URL.Query().Get("months"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 24 {
			writeError(w, http.StatusBadRequest, "months must be between 1 and 24", err)
			return
		}
		months = n
	}

	t, outlook, err := h.Books.Projection(r.Context(), id, months)
	if err != nil {
		writeDomainError(w, "Failed to project balance", err)
		return
	}

	dto := ProjectionDTO{TenantID: string(t.ID), Months: make([]ProjectedMonthDTO, len(outlook))}
	for i, p := range outlook {
		dto.Months[i] = ProjectedMonthDTO{
			Month:   p.Month.String(),
			Charge:  p.Charge.Float64(),
			Balance: p.Balance.Float64(),
		}
	}
	writeJSON(w, http.StatusOK, dto)
}

// ListTenantPayments returns one resident's payment history.
func (h *Handler) ListTenantPayments(w http.ResponseWriter, r *http.Request) {
	id := billing.TenantID(chi.URLParam(r, "id"))

	if _, err := h.Store.Tenant(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to get tenant", err)
		return
	}
	payments, err := h.Store.PaymentsByTenant(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to list payments", err)
		return
	}

	dtos := make([]PaymentDTO, len(payments))
	for i := range payments {
		dtos[i] = toPaymentDTO(&payments[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// PAYMENT HANDLERS
// =============================================================================

// RecordPayment stores a payment. Paid rows move the balance immediately;
// Pending rows wait for confirmation.
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeValid[PaymentRequest](w, r)
	if !ok {
		return
	}

	p := billing.Payment{
		TenantID:      billing.TenantID(req.TenantID),
		Amount:        ledger.NewMoney(req.Amount),
		Type:          billing.PaymentType(req.Type),
		Status:        billing.PaymentStatus(req.Status),
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
	}
	if req.Date != "" {
		d, err := time.Parse(dateLayout, req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
			return
		}
		p.Date = d
	}

	recorded, err := h.Books.RecordPayment(r.Context(), p)
	if err != nil {
		writeDomainError(w, "Failed to record payment", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentDTO(recorded))
}

// ConfirmPayment flips a Pending payment to Paid.
func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	id := billing.PaymentID(chi.URLParam(r, "id"))

	confirmed, err := h.Books.ConfirmPayment(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to confirm payment", err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentDTO(confirmed))
}

// VoidPayment cancels a Pending payment before it counts.
func (h *Handler) VoidPayment(w http.ResponseWriter, r *http.Request) {
	id := billing.PaymentID(chi.URLParam(r, "id"))

	voided, err := h.Books.VoidPayment(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to void payment", err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentDTO(voided))
}

// =============================================================================
// PROPERTY HANDLERS
// =============================================================================

// ListProperties returns the full catalog.
func (h *Handler) ListProperties(w http.ResponseWriter, r *http.Request) {
	properties, err := h.Store.Properties(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to list properties", err)
		return
	}

	dtos := make([]PropertyDTO, len(properties))
	for i := range properties {
		dtos[i] = toPropertyDTO(&properties[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetProperty returns one property with its unit catalog.
func (h *Handler) GetProperty(w http.ResponseWriter, r *http.Request) {
	id := billing.PropertyID(chi.URLParam(r, "id"))

	p, err := h.Store.Property(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get property", err)
		return
	}
	writeJSON(w, http.StatusOK, toPropertyDTO(p))
}

// CreateProperty stores a property with an optional initial unit catalog.
func (h *Handler) CreateProperty(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeValid[PropertyRequest](w, r)
	if !ok {
		return
	}

	p := billing.Property{
		ID:         billing.PropertyID(req.ID),
		Name:       req.Name,
		LandlordID: billing.LandlordID(req.LandlordID),
	}
	if p.ID == "" {
		p.ID = billing.PropertyID(uuid.NewString())
	}
	for _, ur := range req.Units {
		u, ok := unitFromRequest(w, ur)
		if !ok {
			return
		}
		p.Units = append(p.Units, u)
	}

	if err := h.Store.PutProperty(r.Context(), p); err != nil {
		writeDomainError(w, "Failed to create property", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPropertyDTO(&p))
}

// AddUnit appends a unit to a property's catalog.
func (h *Handler) AddUnit(w http.ResponseWriter, r *http.Request) {
	id := billing.PropertyID(chi.URLParam(r, "id"))
	req, ok := decodeValid[UnitRequest](w, r)
	if !ok {
		return
	}

	u, ok := unitFromRequest(w, req)
	if !ok {
		return
	}
	if err := h.Store.AddUnit(r.Context(), id, u); err != nil {
		writeDomainError(w, "Failed to add unit", err)
		return
	}
	writeJSON(w, http.StatusCreated, toUnitDTO(&u))
}

// UpdateUnit replaces a unit in place (status, rent revision, handover).
// The occupant's cached balance is recomputed since the schedule may move.
func (h *Handler) UpdateUnit(w http.ResponseWriter, r *http.Request) {
	id := billing.PropertyID(chi.URLParam(r, "id"))
	name := chi.URLParam(r, "name")
	req, ok := decodeValid[UnitRequest](w, r)
	if !ok {
		return
	}

	req.Name = name
	u, ok := unitFromRequest(w, req)
	if !ok {
		return
	}
	if err := h.Store.UpdateUnit(r.Context(), id, u); err != nil {
		writeDomainError(w, "Failed to update unit", err)
		return
	}
	if err := h.Books.RecomputeOccupant(r.Context(), billing.UnitKey{PropertyID: id, UnitName: name}); err != nil {
		writeDomainError(w, "Failed to recompute occupant balance", err)
		return
	}
	writeJSON(w, http.StatusOK, toUnitDTO(&u))
}

// GetPropertyFloors groups a property's units by parsed floor code.
func (h *Handler) GetPropertyFloors(w http.ResponseWriter, r *http.Request) {
	id := billing.PropertyID(chi.URLParam(r, "id"))

	p, err := h.Store.Property(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get property", err)
		return
	}
	writeJSON(w, http.StatusOK, toFloorsDTO(p))
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// RebuildBalances recomputes every cached balance. The monthly rollover
// job calls the same path; this endpoint is the manual trigger.
func (h *Handler) RebuildBalances(w http.ResponseWriter, r *http.Request) {
	changed, err := h.Books.RebuildBalances(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to rebuild balances", err)
		return
	}
	writeJSON(w, http.StatusOK, RebuildResultDTO{Rebuilt: changed})
}

// BalanceAudit reports cache drift and occupancy conflicts, read-only.
func (h *Handler) BalanceAudit(w http.ResponseWriter, r *http.Request) {
	report, err := h.Books.AuditBalances(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to audit balances", err)
		return
	}
	writeJSON(w, http.StatusOK, toAuditReportDTO(report))
}

// Health is the liveness probe.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// REQUEST HELPERS
// =============================================================================

// decodeValid decodes a JSON body and runs struct validation, writing the
// error response itself when either step fails.
func decodeValid[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return req, false
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return req, false
	}
	return req, true
}

func (h *Handler) asOfParam(w http.ResponseWriter, r *http.Request) (ledger.Month, bool) {
	raw := r.URL.Query().Get("asOf")
	if raw == "" {
		return h.Books.CurrentMonth(), true
	}
	m, err := ledger.ParseMonth(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid asOf month (use YYYY-MM)", err)
		return ledger.Month{}, false
	}
	return m, true
}

func tenantFromRequest(w http.ResponseWriter, req TenantRequest) (billing.Tenant, bool) {
	t := billing.Tenant{
		ID:           billing.TenantID(req.ID),
		Name:         req.Name,
		Phone:        req.Phone,
		ResidentType: billing.ResidentType(req.ResidentType),
		PropertyID:   billing.PropertyID(req.PropertyID),
		UnitName:     req.UnitName,
		Lease: billing.Lease{
			RentAmount:       ledger.NewMoney(req.Lease.RentAmount),
			LastBilledPeriod: req.Lease.LastBilledPeriod,
			SecurityDeposit:  ledger.NewMoney(req.Lease.SecurityDeposit),
		},
	}
	if req.Lease.LastPaymentDate != "" {
		d, err := time.Parse(dateLayout, req.Lease.LastPaymentDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid lastPaymentDate (use YYYY-MM-DD)", err)
			return t, false
		}
		t.Lease.LastPaymentDate = &d
	}
	return t, true
}

func unitFromRequest(w http.ResponseWriter, req UnitRequest) (billing.Unit, bool) {
	u := billing.Unit{
		Name:           req.Name,
		Ownership:      billing.Ownership(req.Ownership),
		UnitType:       req.UnitType,
		Status:         billing.UnitStatus(req.Status),
		RentAmount:     ledger.NewMoney(req.RentAmount),
		ServiceCharge:  ledger.NewMoney(req.ServiceCharge),
		HandoverStatus: billing.HandoverStatus(req.HandoverStatus),
	}
	if u.Ownership == "" {
		u.Ownership = billing.OwnershipSM
	}
	if u.Status == "" {
		u.Status = billing.UnitVacant
	}
	if u.HandoverStatus == "" {
		u.HandoverStatus = billing.HandoverPending
	}
	if req.HandoverDate != "" {
		d, err := time.Parse(dateLayout, req.HandoverDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid handoverDate (use YYYY-MM-DD)", err)
			return u, false
		}
		u.HandoverDate = &d
	}
	return u, true
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps billing errors onto HTTP status codes.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	status := http.StatusInternalServerError
	switch {
	case billing.IsNotFound(err):
		status = http.StatusNotFound
	case errors.Is(err, billing.ErrDuplicateUnit):
		status = http.StatusConflict
	case billing.IsClientError(err):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		logging.Logger.WithError(err).Error(message)
	}
	writeError(w, status, message, err)
}
