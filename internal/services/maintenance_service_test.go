package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"assettrack/internal/domain"
	"assettrack/internal/services"
)

func maintenanceFixture(t *testing.T) (*services.MaintenanceService, *time.Time) {
	t.Helper()
	_, cat := fixture(t)
	now, clock := manual(t0)
	return services.NewMaintenanceService(cat.DB, clock), now
}

func TestTicketLifecycle(t *testing.T) {
	svc, now := maintenanceFixture(t)
	ctx := context.Background()

	tk, err := svc.Open(ctx, services.OpenTicketInput{ID: "t1", Asset: "A-1", Title: " Broken hinge ", CostCents: 1500})
	if err != nil {
		t.Fatal(err)
	}
	if tk.AssetID != "a1" || tk.Title != "Broken hinge" || tk.Status != domain.TicketOpen || tk.ClosedAt != nil {
		t.Fatalf("opened = %+v", tk)
	}

	*now = t0.Add(time.Hour)
	status, cost := "done", int64(4200)
	done, err := svc.Update(ctx, "t1", services.TicketPatch{Status: &status, CostCents: &cost})
	if err != nil {
		t.Fatal(err)
	}
	if done.Status != domain.TicketDone || done.ClosedAt == nil || !done.ClosedAt.Equal(*now) || done.CostCents != 4200 {
		t.Fatalf("done = %+v", done)
	}

	*now = t0.Add(2 * time.Hour)
	reopen, desc := "in_progress", "needs new part"
	again, err := svc.Update(ctx, "t1", services.TicketPatch{Status: &reopen, Description: &desc})
	if err != nil {
		t.Fatal(err)
	}
	if again.ClosedAt == nil || !again.ClosedAt.Equal(t0.Add(time.Hour)) {
		t.Fatalf("closedAt moved: %v", again.ClosedAt)
	}
	if again.Title != "Broken hinge" || *again.Description != "needs new part" {
		t.Fatalf("untouched fields changed: %+v", again)
	}
	blank := ""
	cleared, err := svc.Update(ctx, "t1", services.TicketPatch{Description: &blank})
	if err != nil {
		t.Fatal(err)
	}
	if cleared.Description != nil {
		t.Fatalf("description = %q, want cleared", *cleared.Description)
	}

	bad := "lost"
	if _, err := svc.Update(ctx, "t1", services.TicketPatch{Status: &bad}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("bad status: got %v", err)
	}
	if _, err := svc.Update(ctx, "t1", services.TicketPatch{Title: &blank}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("blank title: got %v", err)
	}
	if _, err := svc.Update(ctx, "nope", services.TicketPatch{}); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("unknown ticket: got %v", err)
	}
	if _, err := svc.Open(ctx, services.OpenTicketInput{Asset: "Z-9", Title: "x"}); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("unknown asset: got %v", err)
	}
	if _, err := svc.Open(ctx, services.OpenTicketInput{Asset: "A-1", Title: "x", CostCents: -1}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("negative cost: got %v", err)
	}
}

func TestTicketReports(t *testing.T) {
	svc, now := maintenanceFixture(t)
	ctx := context.Background()

	open := func(id, asset string, at time.Time, cost int64) {
		t.Helper()
		*now = at
		if _, err := svc.Open(ctx, services.OpenTicketInput{ID: id, Asset: asset, Title: "fix " + id, CostCents: cost}); err != nil {
			t.Fatalf("open %s: %v", id, err)
		}
	}
	march, april := t0, time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)
	open("t1", "A-1", march, 1000)
	open("t2", "A-1", march.Add(time.Hour), 500)
	open("t3", "B-1", march.Add(2*time.Hour), 250)
	open("t4", "A-2", april, 9000)
	done := "done"
	if _, err := svc.Update(ctx, "t3", services.TicketPatch{Status: &done}); err != nil {
		t.Fatal(err)
	}

	top, err := svc.TopAssets(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(top) != 2 || top[0].AssetCode != "A-1" || top[0].Count != 2 || top[1].AssetCode != "A-2" {
		t.Fatalf("top = %+v", top)
	}

	total, err := svc.TotalCost(ctx, march, march.Add(90*time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if total != 1500 {
		t.Fatalf("cost = %d", total)
	}
	if _, err := svc.TotalCost(ctx, april, march); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("reversed range: got %v", err)
	}

	m, err := svc.Month(ctx, 2026, 3)
	if err != nil {
		t.Fatal(err)
	}
	if m.Open != 2 || m.Done != 1 || m.TotalCostCents != 1750 {
		t.Fatalf("march = %+v", m)
	}
	if _, err := svc.Month(ctx, 2026, 13); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("month 13: got %v", err)
	}

	page, err := svc.List(ctx, services.TicketQuery{Asset: "A-1"})
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 2 || page.Rows[0].ID != "t2" {
		t.Fatalf("A-1 tickets = %+v", page)
	}
	page, err = svc.List(ctx, services.TicketQuery{Status: "done"})
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 1 || page.Rows[0].ID != "t3" {
		t.Fatalf("done tickets = %+v", page)
	}
}
