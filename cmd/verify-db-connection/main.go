package main

import (
	"database/sql"
	"fmt"
	"log"

	"go-backend/internal/config"

	_ "github.com/lib/pq"
)

// Checks raw database connectivity and that the core tables exist. Useful
// before first deploy or after a migration.
func main() {
	fmt.Println("🔍 Verifying database connection...")

	if err := config.LoadConfig(""); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	sqlDB, err := sql.Open("postgres", config.AppConfig.Database.DSN)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	var dbName string
	if err := sqlDB.QueryRow("SELECT current_database()").Scan(&dbName); err != nil {
		log.Fatalf("Failed to get database name: %v", err)
	}
	fmt.Printf("📋 Connected to database: %s\n", dbName)

	for _, table := range []string{"revocation_records", "issued_claims", "global_configs"} {
		var exists bool
		err := sqlDB.QueryRow(`
			SELECT EXISTS (
				SELECT 1 FROM information_schema.tables
				WHERE table_schema = 'public' AND table_name = $1
			)
		`, table).Scan(&exists)
		if err != nil {
			log.Fatalf("Failed to check table %s: %v", table, err)
		}
		if exists {
			fmt.Printf("✅ Table %s exists\n", table)
		} else {
			fmt.Printf("⚠️  Table %s missing (run the server once to auto-migrate)\n", table)
		}
	}

	fmt.Println("🎉 Database verification completed")
}
