package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOrdersMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_orders.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS orders",
		"CHECK (status IN ('pending', 'processing', 'shipped', 'delivered', 'cancelled'))",
		"CHECK ((shipment_id IS NULL) = (awb_code IS NULL))",
		"FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE",
		"DROP TABLE IF EXISTS orders",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestReturnsMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_returns.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS returns",
		"CHECK (condition IN ('unopened', 'used', 'damaged', 'defective'))",
		"CHECK (refund_state IN ('none', 'initiated', 'processed', 'failed'))",
		"FOREIGN KEY (return_id) REFERENCES returns(id) ON DELETE CASCADE",
		"DROP TABLE IF EXISTS returns",
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
		t.Fatalf("no migration file matching %q", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}
