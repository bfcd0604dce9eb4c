package repos_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"assettrack/internal/domain"
	"assettrack/internal/repos"
)

func memdb(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func strp(s string) *string { return &s }

func mustLocation(t *testing.T, db *sqlx.DB, id, name string) {
	t.Helper()
	err := repos.NewLocationRepo(db).Create(context.Background(), domain.Location{ID: id, Name: name, CreatedAt: t0, UpdatedAt: t0})
	if err != nil {
		t.Fatalf("create location %s: %v", id, err)
	}
}

func mustAsset(t *testing.T, db *sqlx.DB, id, code string, loc *string) {
	t.Helper()
	err := repos.NewAssetRepo(db).Create(context.Background(), domain.Asset{
		ID: id, Code: code, Name: "asset " + code, LocationID: loc,
		Status: domain.AssetActive, CreatedAt: t0, UpdatedAt: t0,
	})
	if err != nil {
		t.Fatalf("create asset %s: %v", id, err)
	}
}

func mustAudit(t *testing.T, db *sqlx.DB, id string) {
	t.Helper()
	err := repos.NewAuditRepo(db).Insert(context.Background(), domain.Audit{
		ID: id, Title: "audit " + id, Status: domain.AuditDraft, CreatedAt: t0, UpdatedAt: t0,
	})
	if err != nil {
		t.Fatalf("insert audit %s: %v", id, err)
	}
}

func TestAssetRepoLookups(t *testing.T) {
	db := memdb(t)
	ctx := context.Background()
	mustLocation(t, db, "wh", "Warehouse")
	mustAsset(t, db, "a1", "A001", strp("wh"))

	assets := repos.NewAssetRepo(db)
	a, err := assets.ByCode(ctx, "A001")
	if err != nil {
		t.Fatal(err)
	}
	if a.ID != "a1" || a.LocationID == nil || *a.LocationID != "wh" || !a.CreatedAt.Equal(t0) {
		t.Fatalf("unexpected asset %+v", a)
	}
	if _, err := assets.ByCode(ctx, "nope"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("want sql.ErrNoRows, got %v", err)
	}
	err = assets.Create(ctx, domain.Asset{ID: "a2", Code: "A001", Name: "dup", Status: domain.AssetActive, CreatedAt: t0, UpdatedAt: t0})
	if !errors.Is(err, repos.ErrUniqueViolation) {
		t.Fatalf("duplicate code: want ErrUniqueViolation, got %v", err)
	}
}

func TestLocationRepoDuplicateName(t *testing.T) {
	db := memdb(t)
	mustLocation(t, db, "wh", "Warehouse")
	err := repos.NewLocationRepo(db).Create(context.Background(), domain.Location{ID: "wh2", Name: "Warehouse", CreatedAt: t0, UpdatedAt: t0})
	if !errors.Is(err, repos.ErrUniqueViolation) {
		t.Fatalf("want ErrUniqueViolation, got %v", err)
	}
}

func TestAuditRepoTransitionIsConditional(t *testing.T) {
	db := memdb(t)
	ctx := context.Background()
	mustAudit(t, db, "au1")
	audits := repos.NewAuditRepo(db)

	ok, err := audits.Transition(ctx, "au1", domain.AuditInProgress, domain.AuditFinalized, t0)
	if err != nil || ok {
		t.Fatalf("draft audit must not finalize: ok=%v err=%v", ok, err)
	}
	ok, err = audits.Transition(ctx, "au1", domain.AuditDraft, domain.AuditInProgress, t0.Add(time.Hour))
	if err != nil || !ok {
		t.Fatalf("start: ok=%v err=%v", ok, err)
	}
	ok, _ = audits.Transition(ctx, "au1", domain.AuditDraft, domain.AuditInProgress, t0.Add(2*time.Hour))
	if ok {
		t.Fatal("second start must not apply")
	}

	a, err := audits.ByID(ctx, "au1")
	if err != nil {
		t.Fatal(err)
	}
	if a.Status != domain.AuditInProgress || a.StartedAt == nil || !a.StartedAt.Equal(t0.Add(time.Hour)) || a.FinalizedAt != nil {
		t.Fatalf("unexpected audit %+v", a)
	}
}

func TestAuditRepoListOrdersByCreation(t *testing.T) {
	db := memdb(t)
	ctx := context.Background()
	audits := repos.NewAuditRepo(db)
	for i, id := range []string{"c", "a", "b"} {
		ts := t0.Add(time.Duration(i) * time.Millisecond)
		if err := audits.Insert(ctx, domain.Audit{ID: id, Title: id, Status: domain.AuditDraft, CreatedAt: ts, UpdatedAt: ts}); err != nil {
			t.Fatal(err)
		}
	}
	list, err := audits.List(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 || list[0].ID != "c" || list[1].ID != "a" || list[2].ID != "b" {
		t.Fatalf("unexpected order %+v", list)
	}
	none, err := audits.List(ctx, domain.AuditFinalized)
	if err != nil || len(none) != 0 {
		t.Fatalf("want no finalized audits, got %v %v", none, err)
	}
}

func TestAuditItemUniquePerAuditAsset(t *testing.T) {
	db := memdb(t)
	ctx := context.Background()
	mustLocation(t, db, "wh", "Warehouse")
	mustAsset(t, db, "a1", "A001", strp("wh"))
	mustAudit(t, db, "au1")
	items := repos.NewAuditItemRepo(db)

	ok, err := items.InsertUnscanned(ctx, "i1", "au1", "a1")
	if err != nil || !ok {
		t.Fatalf("first insert: ok=%v err=%v", ok, err)
	}
	ok, err = items.InsertUnscanned(ctx, "i2", "au1", "a1")
	if err != nil || ok {
		t.Fatalf("second insert must be a no-op: ok=%v err=%v", ok, err)
	}

	scanned := t0.Add(time.Minute)
	if err := items.UpsertScan(ctx, domain.AuditItem{ID: "i3", AuditID: "au1", AssetID: "a1", Condition: strp("good"), ScannedAt: &scanned}); err != nil {
		t.Fatal(err)
	}
	it, err := items.ByAuditAsset(ctx, "au1", "a1")
	if err != nil {
		t.Fatal(err)
	}
	if it.ID != "i1" || !it.Found || it.Condition == nil || *it.Condition != "good" || it.FoundLocationID != nil {
		t.Fatalf("unexpected item %+v", it)
	}

	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM audit_items WHERE audit_id='au1' AND asset_id='a1'`); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("want 1 row, got %d", n)
	}
}

func TestFoundRequiresScannedAt(t *testing.T) {
	db := memdb(t)
	mustLocation(t, db, "wh", "Warehouse")
	mustAsset(t, db, "a1", "A001", strp("wh"))
	mustAudit(t, db, "au1")
	_, err := db.Exec(`INSERT INTO audit_items(id,audit_id,asset_id,found) VALUES('x','au1','a1',1)`)
	if err == nil {
		t.Fatal("found without scanned_at must be rejected by the schema")
	}
}

func TestMismatchesNullSemantics(t *testing.T) {
	db := memdb(t)
	ctx := context.Background()
	mustLocation(t, db, "l1", "L1")
	mustLocation(t, db, "l2", "L2")
	mustAsset(t, db, "a1", "A001", strp("l1")) // found elsewhere -> mismatch
	mustAsset(t, db, "a2", "A002", strp("l1")) // found where expected
	mustAsset(t, db, "a3", "A003", nil)        // no expected, none found -> equal
	mustAsset(t, db, "a4", "A004", strp("l2")) // found, no location recorded -> mismatch
	mustAsset(t, db, "a5", "A005", strp("l1")) // seeded, never scanned
	mustAudit(t, db, "au1")
	items := repos.NewAuditItemRepo(db)

	at := t0
	scan := func(id, asset string, loc *string) {
		if err := items.UpsertScan(ctx, domain.AuditItem{ID: id, AuditID: "au1", AssetID: asset, FoundLocationID: loc, ScannedAt: &at}); err != nil {
			t.Fatal(err)
		}
	}
	scan("i1", "a1", strp("l2"))
	scan("i2", "a2", strp("l1"))
	scan("i3", "a3", nil)
	scan("i4", "a4", nil)
	if _, err := items.InsertUnscanned(ctx, "i5", "au1", "a5"); err != nil {
		t.Fatal(err)
	}

	mm, err := items.Mismatches(ctx, "au1")
	if err != nil {
		t.Fatal(err)
	}
	if len(mm) != 2 || mm[0].AssetID != "a1" || mm[1].AssetID != "a4" {
		t.Fatalf("unexpected mismatches %+v", mm)
	}
	if *mm[0].ExpectedLocationID != "l1" || *mm[0].FoundLocationID != "l2" {
		t.Fatalf("unexpected first mismatch %+v", mm[0])
	}
	if mm[1].FoundLocationID != nil {
		t.Fatalf("a4 found location should be nil, got %v", *mm[1].FoundLocationID)
	}

	total, found, err := items.Progress(ctx, "au1")
	if err != nil || total != 5 || found != 4 {
		t.Fatalf("progress: total=%d found=%d err=%v", total, found, err)
	}
}
