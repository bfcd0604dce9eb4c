package handlers_test

import (
	"net/http"
	"net/url"
	"testing"

	"assettrack/internal/domain"
	"assettrack/internal/http/handlers"
)

func TestAdminGuardRequiresAdmin(t *testing.T) {
	env := newEnv(t, handlers.AppOptions{})

	wantStatus(t, env.get(t, session{}, "/admin"), http.StatusFound)

	auditor := env.login(t, auditorEmail)
	wantStatus(t, env.get(t, auditor, "/admin"), http.StatusForbidden)
	wantStatus(t, env.postJSON(t, auditor, "/api/v1/locations", map[string]any{"name": "Annex"}), http.StatusForbidden)

	admin := env.login(t, adminEmail)
	wantStatus(t, env.get(t, admin, "/admin"), http.StatusOK)
	created := env.postJSON(t, admin, "/api/v1/locations", map[string]any{"id": "annex", "name": "Annex"})
	wantStatus(t, created, http.StatusCreated)
}

func TestAdminCatalogForms(t *testing.T) {
	env := newEnv(t, handlers.AppOptions{})
	admin := env.login(t, adminEmail)

	wantStatus(t, env.postForm(t, admin, "/admin/assets", url.Values{
		"code": {"LT-003"}, "name": {"Spare laptop"}, "category_id": {"laptops"}, "location_id": {"warehouse"},
	}), http.StatusFound)
	wantStatus(t, env.postForm(t, admin, "/admin/assets", url.Values{
		"code": {"LT-003"}, "name": {"Duplicate"},
	}), http.StatusConflict)
	wantStatus(t, env.postForm(t, admin, "/admin/assets/move", url.Values{
		"ref": {"LT-003"}, "location_id": {"hq"},
	}), http.StatusFound)

	var a domain.Asset
	resp := env.get(t, admin, "/api/v1/assets/LT-003")
	wantStatus(t, resp, http.StatusOK)
	decode(t, resp, &a)
	if a.LocationID == nil || *a.LocationID != "hq" {
		t.Fatalf("asset after move = %+v", a)
	}
}
