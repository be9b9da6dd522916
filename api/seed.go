/*
seed.go - Demo portfolio loader

PURPOSE:
  Populates an empty database with a small but realistic portfolio so the
  API has something to show on first run. The demo covers the situations
  the engine exists for:

    - An anchored lease part-way into arrears (Grace, A-101)
    - A handover-scheduled lease with a Pending M-Pesa payment (Brian, B-201)
    - A fully paid-up homeowner on service charge (Peter, A-102)
    - A landlord-owned occupied unit deep in arrears (Faith, 1401)
    - A vacant handed-over landlord unit accruing service charge (1402)
    - A unit still awaiting handover, billing nothing (Penthouse)
    - An archived resident whose frozen debt is still collectable (David)

  Dates are derived from the wall clock at seed time so the portfolio is
  always a few months into its history, whatever day the server starts.

HOW SEEDING WORKS:
 1. Skip entirely if any tenant already exists (seed once, never clobber)
 2. Store properties and unit catalogs
 3. Create residents through the bookkeeper so opening balances materialize
 4. Record payments through the bookkeeper so balances move as in production

NOTE:
  Seeding goes through the same write paths as the API. A seeded database
  passes the balance audit clean.

SEE ALSO:
  - cmd/server/main.go: Runs Seed when started with SEED=true
  - billing/bookkeeper.go: The write paths seeding drives
*/
package api

import (
	"context"
	"fmt"
	"time"

	"github.com/warp/billing-engine/billing"
	"github.com/warp/billing-engine/ledger"
	"github.com/warp/billing-engine/logging"
)

// Seed loads the demo portfolio into an empty store. A store that already
// holds tenants is left untouched.
func Seed(ctx context.Context, books *billing.Bookkeeper, store billing.Store) error {
	existing, err := store.Tenants(ctx, true)
	if err != nil {
		return fmt.Errorf("check for existing data: %w", err)
	}
	if len(existing) > 0 {
		logging.Logger.WithField("tenants", len(existing)).Info("Database already populated, skipping seed")
		return nil
	}

	now := time.Now().UTC()
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthsAgo := func(n, day int) time.Time { return firstOfMonth.AddDate(0, -n, day-1) }
	anchorOf := func(n int) string { return monthsAgo(n, 1).Format("2006-01") }
	datePtr := func(t time.Time) *time.Time { return &t }

	if err := seedProperties(ctx, store, monthsAgo, datePtr); err != nil {
		return err
	}
	if err := seedResidents(ctx, books, anchorOf); err != nil {
		return err
	}
	if err := seedPayments(ctx, books, monthsAgo); err != nil {
		return err
	}

	// David moved out still owing; archiving freezes his charges at the
	// current month but keeps the debt on the books.
	if _, err := books.ArchiveTenant(ctx, "tenant-mutiso"); err != nil {
		return fmt.Errorf("archive demo tenant: %w", err)
	}

	logging.Logger.Info("Demo portfolio seeded")
	return nil
}

func seedProperties(ctx context.Context, store billing.Store, monthsAgo func(int, int) time.Time, datePtr func(time.Time) *time.Time) error {
	properties := []billing.Property{
		{
			ID:   "prop-riverside",
			Name: "Riverside Court",
			Units: []billing.Unit{
				{
					Name:           "A-101",
					Ownership:      billing.OwnershipSM,
					UnitType:       "2BR",
					Status:         billing.UnitRented,
					RentAmount:     ledger.NewMoney(22000),
					ServiceCharge:  ledger.NewMoney(3500),
					HandoverStatus: billing.HandoverComplete,
					HandoverDate:   datePtr(monthsAgo(14, 5)),
				},
				{
					// Owner-occupied; the resident pays service charge only.
					Name:           "A-102",
					Ownership:      billing.OwnershipLandlord,
					UnitType:       "2BR",
					Status:         billing.UnitRented,
					RentAmount:     ledger.NewMoney(22000),
					ServiceCharge:  ledger.NewMoney(3500),
					HandoverStatus: billing.HandoverComplete,
					HandoverDate:   datePtr(monthsAgo(14, 5)),
				},
				{
					Name:           "B-201",
					Ownership:      billing.OwnershipSM,
					UnitType:       "3BR",
					Status:         billing.UnitRented,
					RentAmount:     ledger.NewMoney(26000),
					ServiceCharge:  ledger.NewMoney(4000),
					HandoverStatus: billing.HandoverComplete,
					HandoverDate:   datePtr(monthsAgo(3, 5)),
				},
				{
					Name:           "B-202",
					Ownership:      billing.OwnershipSM,
					UnitType:       "3BR",
					Status:         billing.UnitVacant,
					RentAmount:     ledger.NewMoney(26000),
					ServiceCharge:  ledger.NewMoney(4000),
					HandoverStatus: billing.HandoverComplete,
					HandoverDate:   datePtr(monthsAgo(4, 12)),
				},
				{
					Name:           "GF-01",
					Ownership:      billing.OwnershipSM,
					UnitType:       "1BR",
					Status:         billing.UnitVacant,
					RentAmount:     ledger.NewMoney(18000),
					ServiceCharge:  ledger.NewMoney(2500),
					HandoverStatus: billing.HandoverComplete,
					HandoverDate:   datePtr(monthsAgo(14, 5)),
				},
			},
		},
		{
			ID:         "prop-gma",
			Name:       "Garden Mansions Annex",
			LandlordID: "landlord-wanjiku",
			Units: []billing.Unit{
				{
					Name:           "1401",
					Ownership:      billing.OwnershipLandlord,
					UnitType:       "2BR",
					Status:         billing.UnitRented,
					RentAmount:     ledger.NewMoney(30000),
					ServiceCharge:  ledger.NewMoney(4500),
					HandoverStatus: billing.HandoverComplete,
					HandoverDate:   datePtr(monthsAgo(10, 2)),
				},
				{
					Name:           "1402",
					Ownership:      billing.OwnershipLandlord,
					UnitType:       "2BR",
					Status:         billing.UnitVacant,
					RentAmount:     ledger.NewMoney(30000),
					ServiceCharge:  ledger.NewMoney(4500),
					HandoverStatus: billing.HandoverComplete,
					HandoverDate:   datePtr(monthsAgo(6, 20)),
				},
				{
					Name:           "Penthouse",
					Ownership:      billing.OwnershipLandlord,
					UnitType:       "4BR",
					Status:         billing.UnitVacant,
					RentAmount:     ledger.NewMoney(55000),
					ServiceCharge:  ledger.NewMoney(8000),
					HandoverStatus: billing.HandoverPending,
				},
			},
		},
	}

	for _, p := range properties {
		if err := store.PutProperty(ctx, p); err != nil {
			return fmt.Errorf("seed property %s: %w", p.ID, err)
		}
	}
	return nil
}

func seedResidents(ctx context.Context, books *billing.Bookkeeper, anchorOf func(int) string) error {
	residents := []billing.Tenant{
		{
			ID:           "tenant-achieng",
			Name:         "Grace Achieng",
			Phone:        "+254700111222",
			ResidentType: billing.ResidentTenant,
			PropertyID:   "prop-riverside",
			UnitName:     "A-101",
			Lease: billing.Lease{
				RentAmount:       ledger.NewMoney(22000),
				LastBilledPeriod: anchorOf(4),
				SecurityDeposit:  ledger.NewMoney(22000),
			},
		},
		{
			ID:           "tenant-odhiambo",
			Name:         "Brian Odhiambo",
			Phone:        "+254700333444",
			ResidentType: billing.ResidentTenant,
			PropertyID:   "prop-riverside",
			UnitName:     "B-201",
			Lease: billing.Lease{
				RentAmount:      ledger.NewMoney(26000),
				SecurityDeposit: ledger.NewMoney(26000),
			},
		},
		{
			ID:           "owner-kamau",
			Name:         "Peter Kamau",
			Phone:        "+254700555666",
			ResidentType: billing.ResidentHomeowner,
			PropertyID:   "prop-riverside",
			UnitName:     "A-102",
			Lease: billing.Lease{
				LastBilledPeriod: anchorOf(2),
			},
		},
		{
			ID:           "tenant-njeri",
			Name:         "Faith Njeri",
			Phone:        "+254700777888",
			ResidentType: billing.ResidentTenant,
			PropertyID:   "prop-gma",
			UnitName:     "1401",
			Lease: billing.Lease{
				RentAmount:       ledger.NewMoney(30000),
				LastBilledPeriod: anchorOf(2),
				SecurityDeposit:  ledger.NewMoney(30000),
			},
		},
		{
			ID:           "tenant-mutiso",
			Name:         "David Mutiso",
			Phone:        "+254700999000",
			ResidentType: billing.ResidentTenant,
			PropertyID:   "prop-riverside",
			UnitName:     "GF-01",
			Lease: billing.Lease{
				RentAmount:       ledger.NewMoney(18000),
				LastBilledPeriod: anchorOf(5),
			},
		},
	}

	for _, t := range residents {
		if _, err := books.CreateTenant(ctx, t); err != nil {
			return fmt.Errorf("seed tenant %s: %w", t.ID, err)
		}
	}
	return nil
}

func seedPayments(ctx context.Context, books *billing.Bookkeeper, monthsAgo func(int, int) time.Time) error {
	payments := []billing.Payment{
		// Grace: paid two of her four billed months.
		{
			ID:            "pay-achieng-1",
			TenantID:      "tenant-achieng",
			Amount:        ledger.NewMoney(22000),
			Date:          monthsAgo(3, 4),
			Status:        billing.StatusPaid,
			PaymentMethod: "M-Pesa",
		},
		{
			ID:            "pay-achieng-2",
			TenantID:      "tenant-achieng",
			Amount:        ledger.NewMoney(22000),
			Date:          monthsAgo(2, 6),
			Status:        billing.StatusPaid,
			PaymentMethod: "M-Pesa",
		},
		// Brian: three months settled, this month's transfer not yet confirmed.
		{
			ID:            "pay-odhiambo-1",
			TenantID:      "tenant-odhiambo",
			Amount:        ledger.NewMoney(52000),
			Date:          monthsAgo(2, 3),
			Status:        billing.StatusPaid,
			PaymentMethod: "Bank Transfer",
			Notes:         "Two months together",
		},
		{
			ID:            "pay-odhiambo-2",
			TenantID:      "tenant-odhiambo",
			Amount:        ledger.NewMoney(26000),
			Date:          monthsAgo(1, 5),
			Status:        billing.StatusPaid,
			PaymentMethod: "Bank Transfer",
		},
		{
			ID:            "pay-odhiambo-3",
			TenantID:      "tenant-odhiambo",
			Amount:        ledger.NewMoney(26000),
			Date:          monthsAgo(0, 2),
			Status:        billing.StatusPending,
			PaymentMethod: "M-Pesa",
			Notes:         "Awaiting statement match",
		},
		// Peter: service charge fully settled.
		{
			ID:            "pay-kamau-1",
			TenantID:      "owner-kamau",
			Amount:        ledger.NewMoney(7000),
			Date:          monthsAgo(0, 3),
			Status:        billing.StatusPaid,
			PaymentMethod: "Bank Transfer",
			Notes:         "Service charge, two months",
		},
		// David: one partial payment against five billed months.
		{
			ID:            "pay-mutiso-1",
			TenantID:      "tenant-mutiso",
			Amount:        ledger.NewMoney(40000),
			Date:          monthsAgo(2, 15),
			Status:        billing.StatusPaid,
			PaymentMethod: "M-Pesa",
		},
	}

	for _, p := range payments {
		if _, err := books.RecordPayment(ctx, p); err != nil {
			return fmt.Errorf("seed payment %s: %w", p.ID, err)
		}
	}
	return nil
}
