package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kashvicreations/kashvi-backend/pkg/migrate"
)

func TestOrdersMigrationContainsSchemas(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_orders_table.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no orders migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS orders",
		"payment_status TEXT NOT NULL DEFAULT 'PENDING'",
		"order_status TEXT NOT NULL DEFAULT 'PLACED'",
		"total_amount NUMERIC(12,2) NOT NULL",
		"CREATE TABLE IF NOT EXISTS order_line_items",
		"FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE",
		"CREATE INDEX IF NOT EXISTS idx_orders_payment_status",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMigrationFilenamesValidate(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("ValidateDir: %v", err)
	}
}
