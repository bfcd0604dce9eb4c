package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"assettrack/internal/domain"
	"assettrack/internal/http/handlers"
)

func TestAPIRequiresSession(t *testing.T) {
	env := newEnv(t, handlers.AppOptions{})
	wantStatus(t, env.get(t, session{}, "/api/v1/audits"), http.StatusUnauthorized)
}

func TestAPIAuditLifecycleAndStatusCodes(t *testing.T) {
	env := newEnv(t, handlers.AppOptions{})
	s := env.login(t, auditorEmail)

	created := env.postJSON(t, s, "/api/v1/audits", map[string]any{"id": "api-1", "title": "Warehouse sweep"})
	wantStatus(t, created, http.StatusCreated)
	var a domain.Audit
	decode(t, created, &a)
	if a.ID != "api-1" || a.Status != domain.AuditDraft {
		t.Fatalf("created = %+v", a)
	}

	wantStatus(t, env.postJSON(t, s, "/api/v1/audits", map[string]any{"id": "api-1", "title": "again"}), http.StatusConflict)

	bad := env.postJSON(t, s, "/api/v1/audits", map[string]any{"title": " "})
	wantStatus(t, bad, http.StatusBadRequest)
	var verr struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	decode(t, bad, &verr)
	if verr.Fields["title"] != "required" {
		t.Fatalf("validation body = %+v", verr)
	}

	wantStatus(t, env.postJSON(t, s, "/api/v1/audits/api-1/finalize", nil), http.StatusConflict)
	wantStatus(t, env.postJSON(t, s, "/api/v1/audits/api-1/start", nil), http.StatusOK)
	wantStatus(t, env.get(t, s, "/api/v1/audits/nope/progress"), http.StatusNotFound)

	scan := env.postJSON(t, s, "/api/v1/audits/api-1/scan", map[string]any{"code": "MN-001", "foundLocationId": "hq"})
	wantStatus(t, scan, http.StatusOK)
	var it domain.AuditItem
	decode(t, scan, &it)
	if !it.Found || it.AssetID != "mn-001" || it.ScannedAt == nil {
		t.Fatalf("scan item = %+v", it)
	}
	wantStatus(t, env.postJSON(t, s, "/api/v1/audits/api-1/scan", map[string]any{"code": "XX-404"}), http.StatusNotFound)

	var p domain.Progress
	prog := env.get(t, s, "/api/v1/audits/api-1/progress")
	wantStatus(t, prog, http.StatusOK)
	decode(t, prog, &p)
	if p != (domain.Progress{Total: 1, Found: 1, Percent: 100}) {
		t.Fatalf("progress = %+v", p)
	}

	var sum domain.Summary
	resp := env.get(t, s, "/api/v1/audits/api-1/summary")
	wantStatus(t, resp, http.StatusOK)
	decode(t, resp, &sum)
	if sum.Total != 1 || len(sum.Mismatches) != 1 || sum.Mismatches[0].AssetCode != "MN-001" {
		t.Fatalf("summary = %+v", sum)
	}
	if *sum.Mismatches[0].ExpectedLocationID != "warehouse" || *sum.Mismatches[0].FoundLocationID != "hq" {
		t.Fatalf("mismatch = %+v", sum.Mismatches[0])
	}

	var seeded struct{ Added int }
	seed := env.postJSON(t, s, "/api/v1/audits/api-1/seed", map[string]any{"locationId": "warehouse"})
	wantStatus(t, seed, http.StatusOK)
	decode(t, seed, &seeded)
	if seeded.Added != 1 {
		t.Fatalf("seed added %d, want 1 (MN-001 already scanned)", seeded.Added)
	}

	var items []domain.AuditItemView
	list := env.get(t, s, "/api/v1/audits/api-1/items")
	wantStatus(t, list, http.StatusOK)
	decode(t, list, &items)
	if len(items) != 2 {
		t.Fatalf("items = %+v", items)
	}
}

func TestAPIRejectsNonJSONBodies(t *testing.T) {
	env := newEnv(t, handlers.AppOptions{})
	s := env.login(t, auditorEmail)
	req := httptest.NewRequest("POST", "/api/v1/audits", strings.NewReader("title=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	s.attach(req)
	wantStatus(t, env.do(t, req), http.StatusUnsupportedMediaType)
}

func TestAPICatalogReads(t *testing.T) {
	env := newEnv(t, handlers.AppOptions{})
	s := env.login(t, auditorEmail)

	var locs []domain.Location
	resp := env.get(t, s, "/api/v1/locations")
	wantStatus(t, resp, http.StatusOK)
	decode(t, resp, &locs)
	if len(locs) != 3 {
		t.Fatalf("locations = %+v", locs)
	}

	var asset domain.Asset
	byCode := env.get(t, s, "/api/v1/assets/LT-002")
	wantStatus(t, byCode, http.StatusOK)
	decode(t, byCode, &asset)
	if asset.ID != "lt-002" || asset.LocationID == nil || *asset.LocationID != "hq-floor2" {
		t.Fatalf("asset = %+v", asset)
	}
	wantStatus(t, env.get(t, s, "/api/v1/assets/lt-002"), http.StatusOK)
	wantStatus(t, env.get(t, s, "/api/v1/assets/none"), http.StatusNotFound)

	var at []domain.Asset
	list := env.get(t, s, "/api/v1/locations/warehouse/assets")
	wantStatus(t, list, http.StatusOK)
	decode(t, list, &at)
	if len(at) != 2 || at[0].Code != "FN-001" {
		t.Fatalf("warehouse assets = %+v", at)
	}
}
