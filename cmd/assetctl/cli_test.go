package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"assettrack/internal/domain"
)

type cliEnv struct {
	dbPath string
}

func setupCLI(t *testing.T) *cliEnv {
	t.Helper()
	// keep a stray assettrack.toml or .env out of the picture
	t.Chdir(t.TempDir())
	env := &cliEnv{dbPath: filepath.Join(t.TempDir(), "assettrack.db")}
	if _, _, err := env.run(t, "seed-demo"); err != nil {
		t.Fatalf("seed-demo: %v", err)
	}
	return env
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--db", e.dbPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func (e *cliEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, stderr, err := e.run(t, args...)
	if err != nil {
		t.Fatalf("assetctl %s: %v (stderr %q)", strings.Join(args, " "), err, stderr)
	}
	return out
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func TestAuditWorkflow(t *testing.T) {
	env := setupCLI(t)

	out := env.mustRun(t, "audit", "create", "--id", "q1", "--title", "Floor 2", "--location", "hq-floor2")
	requireContains(t, out, "Created audit q1")

	requireContains(t, env.mustRun(t, "audit", "start", "q1"), "In progress")
	requireContains(t, env.mustRun(t, "audit", "seed", "q1", "hq-floor2"), "Added 2 items")
	requireContains(t, env.mustRun(t, "audit", "seed", "q1", "hq-floor2"), "Added 0 items")

	env.mustRun(t, "audit", "scan", "q1", "LT-001", "--found-at", "warehouse", "--condition", "scuffed")
	env.mustRun(t, "audit", "scan", "q1", "MN-001")

	requireContains(t, env.mustRun(t, "audit", "progress", "q1"), "Found 2 of 3 (67%)")

	out = env.mustRun(t, "audit", "mismatches", "q1")
	requireContains(t, out, "LT-001")
	requireContains(t, out, "MN-001")

	out = env.mustRun(t, "audit", "items", "q1")
	requireContains(t, out, "scuffed")
	requireContains(t, out, "LT-002")

	requireContains(t, env.mustRun(t, "audit", "finalize", "q1"), "Finalized")
	requireContains(t, env.mustRun(t, "audit", "list", "--status", "finalized"), "Floor 2")
}

func TestAuditSummaryJSON(t *testing.T) {
	env := setupCLI(t)
	env.mustRun(t, "audit", "create", "--id", "q2", "--title", "Warehouse")
	env.mustRun(t, "audit", "seed", "q2", "warehouse")
	env.mustRun(t, "audit", "scan", "q2", "fn-001", "--found-at", "warehouse")

	var s domain.Summary
	if err := json.Unmarshal([]byte(env.mustRun(t, "--json", "audit", "summary", "q2")), &s); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if s.Total != 2 || s.Found != 1 || s.Percent != 50 || len(s.Mismatches) != 0 {
		t.Fatalf("summary = %+v", s)
	}
}

func TestCLIErrors(t *testing.T) {
	env := setupCLI(t)
	env.mustRun(t, "audit", "create", "--id", "q3", "--title", "Errors")

	if _, _, err := env.run(t, "audit", "finalize", "q3"); err == nil || !strings.Contains(err.Error(), "invalid status transition") {
		t.Fatalf("finalize draft: %v", err)
	}
	if _, _, err := env.run(t, "audit", "progress", "missing"); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("progress missing: %v", err)
	}
	if _, _, err := env.run(t, "audit", "create", "--title", " "); err == nil || !strings.Contains(err.Error(), "title") {
		t.Fatalf("blank title: %v", err)
	}
}

func TestCatalogCommands(t *testing.T) {
	env := setupCLI(t)

	env.mustRun(t, "location", "add", "Annex", "--id", "annex", "--parent", "hq")
	requireContains(t, env.mustRun(t, "location", "list"), "Annex")

	env.mustRun(t, "asset", "add", "PR-001", "Projector", "--location", "annex", "--category", "monitors")
	out := env.mustRun(t, "asset", "show", "PR-001")
	requireContains(t, out, "Projector")
	requireContains(t, out, "annex")

	requireContains(t, env.mustRun(t, "asset", "move", "PR-001", "warehouse"), "warehouse")
	requireContains(t, env.mustRun(t, "asset", "move", "PR-001"), "expected at -")

	var a domain.Asset
	if err := json.Unmarshal([]byte(env.mustRun(t, "--json", "asset", "show", "PR-001")), &a); err != nil {
		t.Fatal(err)
	}
	if a.LocationID != nil {
		t.Fatalf("location not cleared: %v", *a.LocationID)
	}
}

func TestCatalogEditCommands(t *testing.T) {
	env := setupCLI(t)

	requireContains(t, env.mustRun(t, "category", "add", "Phones", "--id", "phones"), "Created category phones")
	env.mustRun(t, "category", "update", "phones", "--description", "Handsets")
	requireContains(t, env.mustRun(t, "category", "list"), "Handsets")
	if _, _, err := env.run(t, "category", "delete", "laptops"); err == nil || !strings.Contains(err.Error(), "used by 2 asset(s)") {
		t.Fatalf("delete used category: %v", err)
	}
	requireContains(t, env.mustRun(t, "category", "delete", "phones"), "Deleted category phones")

	out := env.mustRun(t, "location", "tree")
	requireContains(t, out, "Head Office (hq)")
	requireContains(t, out, "HQ Floor 2 (hq-floor2)")
	if _, _, err := env.run(t, "location", "update", "hq", "--parent", "hq-floor2"); err == nil || !strings.Contains(err.Error(), "parentId") {
		t.Fatalf("cycle: %v", err)
	}
	requireContains(t, env.mustRun(t, "location", "update", "hq-floor2", "--parent", ""), "parent -")

	out = env.mustRun(t, "asset", "update", "MN-001", "--status", "maintenance", "--notes", "sent for repair")
	requireContains(t, out, "maintenance")
	requireContains(t, out, "sent for repair")
	requireContains(t, env.mustRun(t, "asset", "search", "dell"), "MN-001")
	requireContains(t, env.mustRun(t, "asset", "search", "--status", "maintenance"), "1 of 1")

	if _, _, err := env.run(t, "asset", "delete", "LT-002"); err == nil || !strings.Contains(err.Error(), "conflict") {
		t.Fatalf("delete checked-out asset: %v", err)
	}
	env.mustRun(t, "asset", "delete", "FN-001")
	if _, _, err := env.run(t, "asset", "show", "FN-001"); err == nil {
		t.Fatal("deleted asset still shown")
	}
}

func TestAssignmentAndTicketCommands(t *testing.T) {
	env := setupCLI(t)

	due := time.Now().AddDate(0, 0, 7).UTC().Format("2006-01-02")
	requireContains(t, env.mustRun(t, "assignment", "checkout", "LT-001", "u-admin", "--id", "loan-1", "--due", due), "as loan-1")
	if _, _, err := env.run(t, "assignment", "checkout", "LT-001", "u-auditor"); err == nil {
		t.Fatal("second checkout of LT-001 succeeded")
	}
	requireContains(t, env.mustRun(t, "assignment", "list", "--returned=false"), "2 of 2")
	requireContains(t, env.mustRun(t, "assignment", "overdue"), "Nothing overdue")
	requireContains(t, env.mustRun(t, "assignment", "return", "loan-1", "--condition", "ok"), "Returned loan-1")
	requireContains(t, env.mustRun(t, "assignment", "list", "--returned"), "returned")

	requireContains(t, env.mustRun(t, "ticket", "open", "MN-001", "Flickers", "--id", "tk-1", "--cost", "1250"), "Opened ticket tk-1")
	requireContains(t, env.mustRun(t, "ticket", "update", "tk-1", "--status", "done"), "cost 12.50")
	requireContains(t, env.mustRun(t, "ticket", "list", "--status", "done"), "Flickers")
	requireContains(t, env.mustRun(t, "ticket", "top"), "MN-001")

	now := time.Now().UTC()
	out := env.mustRun(t, "ticket", "month", strconv.Itoa(now.Year()), strconv.Itoa(int(now.Month())))
	requireContains(t, out, "1 done")
	requireContains(t, out, "cost 12.50")

	var ov domain.Overview
	if err := json.Unmarshal([]byte(env.mustRun(t, "--json", "dashboard")), &ov); err != nil {
		t.Fatal(err)
	}
	if ov.Assets != 4 || ov.Outstanding != 1 || ov.OpenTickets != 1 {
		t.Fatalf("dashboard = %+v", ov)
	}
}
