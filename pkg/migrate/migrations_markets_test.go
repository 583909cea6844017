package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestMarketsMigrationContainsSchemas(t *testing.T) {
	content := readMigration(t, "*_create_markets.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS markets",
		"status market_status NOT NULL DEFAULT 'unpaid_under_creation'",
		"payment_gateway_type payment_gateway_type NOT NULL DEFAULT 'platform'",
		"personal_gateway_config JSONB",
		"CREATE UNIQUE INDEX IF NOT EXISTS uq_markets_slug",
		"DROP TABLE IF EXISTS markets",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestHistoryMigrationIsAppendOnly(t *testing.T) {
	content := readMigration(t, "*_create_workflow_history_entries.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS workflow_history_entries",
		"FOREIGN KEY (market_id) REFERENCES markets(id)",
		"workflow_history_entries is append-only",
		"BEFORE UPDATE OR DELETE ON workflow_history_entries",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestPartialUniqueGuards(t *testing.T) {
	approvals := readMigration(t, "*_create_approval_requests.sql")
	if !strings.Contains(approvals, "uq_approval_requests_pending") {
		t.Error("approval requests migration missing pending unique index")
	}
	if !strings.Contains(approvals, "WHERE status = 'pending'") {
		t.Error("pending unique index must be partial")
	}

	subscriptions := readMigration(t, "*_create_subscriptions.sql")
	if !strings.Contains(subscriptions, "uq_subscriptions_active") {
		t.Error("subscriptions migration missing active unique index")
	}
	if !strings.Contains(subscriptions, "WHERE status = 'active'") {
		t.Error("active unique index must be partial")
	}
}

func TestBillingMigrationSeedsPlans(t *testing.T) {
	content := readMigration(t, "*_create_billing.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS billing_plans",
		"CREATE TABLE IF NOT EXISTS charges",
		"INSERT INTO billing_plans",
		"'basic'",
		"'premium'",
		"'enterprise'",
		"ON CONFLICT (id) DO NOTHING",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()

	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration matching %q found", pattern)
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}
