package services_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"assettrack/internal/services"
)

// manual returns a clock that only moves when the test moves it.
func manual(start time.Time) (*time.Time, services.Clock) {
	now := start
	return &now, func() time.Time { return now }
}

func assignmentFixture(t *testing.T) (*services.AssignmentService, *time.Time) {
	t.Helper()
	_, cat := fixture(t)
	now, clock := manual(t0)
	return services.NewAssignmentService(cat.DB, clock), now
}

func TestCheckoutAndReturn(t *testing.T) {
	svc, now := assignmentFixture(t)
	ctx := context.Background()
	due := t0.Add(72 * time.Hour)

	a, err := svc.Checkout(ctx, services.CheckoutInput{
		ID: "as1", Asset: "A-1", UserID: "u-auditor", DueAt: &due, ConditionOut: "good", Notes: "for site visit",
	})
	if err != nil {
		t.Fatal(err)
	}
	if a.AssetID != "a1" || !a.AssignedAt.Equal(t0) || !a.DueAt.Equal(due) || !a.Outstanding() {
		t.Fatalf("checkout = %+v", a)
	}

	if _, err := svc.Checkout(ctx, services.CheckoutInput{Asset: "a1", UserID: "u-admin"}); !errors.Is(err, services.ErrConflict) {
		t.Fatalf("second checkout: want ErrConflict, got %v", err)
	}

	*now = t0.Add(24 * time.Hour)
	back, err := svc.Return(ctx, "as1", services.ReturnInput{ConditionIn: "scuffed"})
	if err != nil {
		t.Fatal(err)
	}
	if back.ReturnedAt == nil || !back.ReturnedAt.Equal(*now) || *back.ConditionIn != "scuffed" {
		t.Fatalf("returned = %+v", back)
	}
	if back.Notes == nil || *back.Notes != "for site visit" {
		t.Fatalf("blank return notes replaced checkout notes: %v", back.Notes)
	}
	if _, err := svc.Return(ctx, "as1", services.ReturnInput{}); !errors.Is(err, services.ErrInvalidTransition) {
		t.Fatalf("double return: want ErrInvalidTransition, got %v", err)
	}
	if _, err := svc.Return(ctx, "nope", services.ReturnInput{}); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("unknown: want ErrNotFound, got %v", err)
	}

	again, err := svc.Checkout(ctx, services.CheckoutInput{Asset: "A-1", UserID: "u-admin"})
	if err != nil {
		t.Fatalf("checkout after return: %v", err)
	}
	if again.DueAt != nil || again.ID == "as1" {
		t.Fatalf("second assignment = %+v", again)
	}
}

func TestCheckoutValidation(t *testing.T) {
	svc, _ := assignmentFixture(t)
	ctx := context.Background()
	past := t0.Add(-time.Hour)

	cases := []struct {
		name string
		in   services.CheckoutInput
		want error
	}{
		{"no asset", services.CheckoutInput{UserID: "u-admin"}, services.ErrValidation},
		{"no user", services.CheckoutInput{Asset: "A-1"}, services.ErrValidation},
		{"due in past", services.CheckoutInput{Asset: "A-1", UserID: "u-admin", DueAt: &past}, services.ErrValidation},
		{"unknown asset", services.CheckoutInput{Asset: "Z-9", UserID: "u-admin"}, services.ErrNotFound},
		{"unknown user", services.CheckoutInput{Asset: "A-1", UserID: "u-ghost"}, services.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Checkout(ctx, tc.in); !errors.Is(err, tc.want) {
				t.Fatalf("want %v, got %v", tc.want, err)
			}
		})
	}
}

func TestOutstandingAndOverdue(t *testing.T) {
	svc, now := assignmentFixture(t)
	ctx := context.Background()
	soon, later := t0.Add(time.Hour), t0.Add(48*time.Hour)

	for _, in := range []services.CheckoutInput{
		{ID: "x1", Asset: "A-1", UserID: "u-auditor", DueAt: &later},
		{ID: "x2", Asset: "A-2", UserID: "u-auditor", DueAt: &soon},
		{ID: "x3", Asset: "B-1", UserID: "u-admin"},
	} {
		if _, err := svc.Checkout(ctx, in); err != nil {
			t.Fatalf("checkout %s: %v", in.ID, err)
		}
		*now = now.Add(time.Minute)
	}
	if _, err := svc.Return(ctx, "x3", services.ReturnInput{}); err != nil {
		t.Fatal(err)
	}

	out, err := svc.Outstanding(ctx, "", 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if out.Total != 2 || out.Rows[0].ID != "x2" || out.Rows[1].ID != "x1" {
		t.Fatalf("outstanding = %+v", out)
	}
	mine, err := svc.Outstanding(ctx, "u-admin", 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if mine.Total != 0 {
		t.Fatalf("u-admin outstanding = %+v", mine)
	}

	overdue, err := svc.Overdue(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(overdue) != 0 {
		t.Fatalf("overdue before due = %+v", overdue)
	}
	*now = t0.Add(72 * time.Hour)
	overdue, err = svc.Overdue(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(overdue) != 2 || overdue[0].ID != "x2" || overdue[1].ID != "x1" {
		t.Fatalf("overdue = %+v", overdue)
	}

	returned := true
	page, err := svc.List(ctx, services.AssignmentQuery{Asset: "B-1", Returned: &returned})
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 1 || page.Rows[0].ID != "x3" {
		t.Fatalf("returned for B-1 = %+v", page)
	}
	if _, err := svc.List(ctx, services.AssignmentQuery{Limit: 5000}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("oversized page: got %v", err)
	}
	paged, err := svc.List(ctx, services.AssignmentQuery{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatal(err)
	}
	if paged.Total != 3 || len(paged.Rows) != 1 || paged.Rows[0].ID != "x2" {
		t.Fatalf("page 2 = %+v", paged)
	}
}

func TestConcurrentCheckoutOneWins(t *testing.T) {
	_, cat := fixtureOn(t, filedb(t))
	svc := services.NewAssignmentService(cat.DB, tick())
	ctx := context.Background()

	var wg sync.WaitGroup
	var ok, lost atomic.Int32
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Checkout(ctx, services.CheckoutInput{Asset: "A-1", UserID: "u-auditor"})
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, services.ErrConflict):
				lost.Add(1)
			default:
				t.Errorf("checkout: %v", err)
			}
		}()
	}
	wg.Wait()
	if ok.Load() != 1 || lost.Load() != 11 {
		t.Fatalf("ok=%d lost=%d", ok.Load(), lost.Load())
	}
	out, err := svc.Outstanding(ctx, "", 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if out.Total != 1 {
		t.Fatalf("outstanding = %d", out.Total)
	}
}
