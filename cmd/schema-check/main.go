// Command schema-check is an operator diagnostic: it connects to the
// configured database and reports tables, foreign keys, and applied
// migrations directly from the Postgres catalog, independent of what the
// running server's models currently declare.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/resqnow/dispatch-core/core/logger"
	"github.com/resqnow/dispatch-core/core/services"
)

type schemaConstraint struct {
	TableName      string
	ConstraintName string
	ConstraintType string
}

type migrationStatus struct {
	Version   string
	Name      string
	AppliedAt string
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	log := logger.NewLogger()
	ctx := context.Background()

	if appErr := services.OpenConnection(log); appErr != nil {
		log.LogError(ctx, "failed to connect to database", appErr)
		os.Exit(1)
	}

	switch command {
	case "constraints":
		checkConstraints(ctx, log)
	case "migrations":
		checkMigrations(ctx, log)
	case "tables":
		checkTables(ctx, log)
	case "full":
		fmt.Println("Full Schema Diagnostic Report")
		fmt.Println("==============================")
		checkTables(ctx, log)
		fmt.Println()
		checkConstraints(ctx, log)
		fmt.Println()
		checkMigrations(ctx, log)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func checkConstraints(ctx context.Context, log logger.Logger) {
	fmt.Println("Foreign Key Constraints")
	fmt.Println("=======================")

	sqlDB, err := services.Connector.DB()
	if err != nil {
		log.Error(ctx, "failed to obtain raw database handle", logger.Fields{"error": err.Error()})
		return
	}

	rows, err := sqlDB.Query(`
		SELECT tc.table_name, tc.constraint_name, tc.constraint_type
		FROM information_schema.table_constraints tc
		WHERE tc.constraint_type = 'FOREIGN KEY'
		AND tc.table_schema = 'public'
		ORDER BY tc.table_name, tc.constraint_name;
	`)
	if err != nil {
		log.Error(ctx, "failed to query constraints", logger.Fields{"error": err.Error()})
		return
	}
	defer rows.Close()

	count := 0
	currentTable := ""
	for rows.Next() {
		var c schemaConstraint
		if err := rows.Scan(&c.TableName, &c.ConstraintName, &c.ConstraintType); err != nil {
			log.Error(ctx, "failed to scan constraint row", logger.Fields{"error": err.Error()})
			continue
		}
		if currentTable != c.TableName {
			if currentTable != "" {
				fmt.Println()
			}
			fmt.Printf("table: %s\n", c.TableName)
			currentTable = c.TableName
		}
		fmt.Printf("  %s (%s)\n", c.ConstraintName, c.ConstraintType)
		count++
	}

	fmt.Printf("\ntotal foreign key constraints: %d\n", count)
}

func checkMigrations(ctx context.Context, log logger.Logger) {
	fmt.Println("Applied Migrations")
	fmt.Println("===================")

	sqlDB, err := services.Connector.DB()
	if err != nil {
		log.Error(ctx, "failed to obtain raw database handle", logger.Fields{"error": err.Error()})
		return
	}

	rows, err := sqlDB.Query(`SELECT version, name, applied_at FROM schema_migrations ORDER BY version;`)
	if err != nil {
		log.Error(ctx, "failed to query migrations", logger.Fields{"error": err.Error()})
		return
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var m migrationStatus
		if err := rows.Scan(&m.Version, &m.Name, &m.AppliedAt); err != nil {
			log.Error(ctx, "failed to scan migration row", logger.Fields{"error": err.Error()})
			continue
		}
		fmt.Printf("%s - %s (applied: %s)\n", m.Version, m.Name, m.AppliedAt)
		count++
	}

	fmt.Printf("\ntotal applied migrations: %d\n", count)
}

func checkTables(ctx context.Context, log logger.Logger) {
	fmt.Println("Database Tables")
	fmt.Println("================")

	sqlDB, err := services.Connector.DB()
	if err != nil {
		log.Error(ctx, "failed to obtain raw database handle", logger.Fields{"error": err.Error()})
		return
	}

	rows, err := sqlDB.Query(`
		SELECT table_name,
			(SELECT COUNT(*) FROM information_schema.columns WHERE table_name = t.table_name) AS column_count
		FROM information_schema.tables t
		WHERE table_schema = 'public' AND table_type = 'BASE TABLE'
		ORDER BY table_name;
	`)
	if err != nil {
		log.Error(ctx, "failed to query tables", logger.Fields{"error": err.Error()})
		return
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var tableName string
		var columnCount int
		if err := rows.Scan(&tableName, &columnCount); err != nil {
			log.Error(ctx, "failed to scan table row", logger.Fields{"error": err.Error()})
			continue
		}
		fmt.Printf("%s (%d columns)\n", tableName, columnCount)
		count++
	}

	fmt.Printf("\ntotal tables: %d\n", count)
}

func printUsage() {
	fmt.Println("Schema Diagnostic Tool")
	fmt.Println("=======================")
	fmt.Println("")
	fmt.Println("Usage: schema-check <command>")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  constraints  - show all foreign key constraints")
	fmt.Println("  migrations   - show applied migrations")
	fmt.Println("  tables       - show all database tables")
	fmt.Println("  full         - complete diagnostic report")
	fmt.Println("")
	fmt.Println("Examples:")
	fmt.Println("  schema-check full")
	fmt.Println("  schema-check constraints")
}
