package db

import (
	"fmt"
	"log"
	"os"
	"strconv"
)

// RunMigrateCommand handles the 'migrate' subcommand dispatching.
func RunMigrateCommand(args []string, dbPath string) {
	if len(args) < 1 {
		PrintMigrateHelp()
		os.Exit(1)
	}

	action := args[0]

	// Open database connection without running schema initialization
	// (migrations will manage the schema)
	database, err := OpenDB(dbPath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	switch action {
	case "up":
		log.Printf("Running migrations...")
		if err := database.MigrateUp(); err != nil {
			log.Fatalf("Migration up failed: %v", err)
		}
		log.Println("All migrations applied successfully")
		logVersion(database)

	case "down":
		log.Printf("Rolling back one migration...")
		if err := database.MigrateDown(); err != nil {
			log.Fatalf("Migration down failed: %v", err)
		}
		log.Println("Migration rolled back successfully")
		logVersion(database)

	case "status":
		logVersion(database)

	case "force":
		if len(args) < 2 {
			log.Fatal("Usage: ledgrid migrate force <version_number>")
		}
		version, err := strconv.Atoi(args[1])
		if err != nil {
			log.Fatalf("Invalid version number %q: %v", args[1], err)
		}
		if err := database.MigrateForce(version); err != nil {
			log.Fatalf("Force migration failed: %v", err)
		}
		log.Printf("Forced migration version to %d", version)

	case "help":
		PrintMigrateHelp()

	default:
		fmt.Printf("Unknown migrate action: %s\n\n", action)
		PrintMigrateHelp()
		os.Exit(1)
	}
}

func logVersion(database *DB) {
	version, dirty, err := database.MigrateVersion()
	if err != nil {
		log.Fatalf("Failed to read migration version: %v", err)
	}
	log.Printf("Current version: %d (dirty: %v)", version, dirty)
}

// PrintMigrateHelp prints usage for the migrate subcommand.
func PrintMigrateHelp() {
	fmt.Println(`Usage: ledgrid migrate <action>

Actions:
  up       Apply all pending migrations
  down     Roll back one migration
  status   Show the current migration version
  force    Force the version (recover from a dirty state)
  help     Show this help`)
}
