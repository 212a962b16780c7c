package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/icebox-go/icebox"
)

var (
	configPath    string
	migrationsDir string

	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
)

var rootCmd = &cobra.Command{
	Use:   "icebox",
	Short: "Schema migrations and query tooling for icebox projects",
	Long: `icebox manages database schema migrations.

Examples:

  icebox make:migration create_items_table name:string price:decimal
  icebox migrate
  icebox migrate:rollback --steps 2
  icebox migrate:status
`,
}

var makeMigrationCmd = &cobra.Command{
	Use:   "make:migration <name> [column:type...]",
	Short: "Generate a timestamped migration file",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path, err := icebox.WriteMigrationFile(migrationsDir, args[0], args[1:])
		if err != nil {
			fail("make:migration failed: %v", err)
		}
		fmt.Printf("%s %s\n", green("Created:"), path)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply all pending migrations",
	Run: func(cmd *cobra.Command, args []string) {
		migrator := newMigrator()
		defer icebox.CloseDefault()

		applied, err := migrator.Migrate()
		reportBatch("Migrated", applied)
		if err != nil {
			fail("migrate failed: %v", err)
		}
		if len(applied) == 0 {
			fmt.Println(yellow("Nothing to migrate."))
		}
	},
}

var rollbackSteps int

var rollbackCmd = &cobra.Command{
	Use:   "migrate:rollback",
	Short: "Reverse the most recently applied migrations",
	Run: func(cmd *cobra.Command, args []string) {
		migrator := newMigrator()
		defer icebox.CloseDefault()

		rolledBack, err := migrator.Rollback(rollbackSteps)
		reportBatch("Rolled back", rolledBack)
		if err != nil {
			fail("rollback failed: %v", err)
		}
		if len(rolledBack) == 0 {
			fmt.Println(yellow("Nothing to roll back."))
		}
	},
}

var resetCmd = &cobra.Command{
	Use:   "migrate:reset",
	Short: "Roll back every applied migration",
	Run: func(cmd *cobra.Command, args []string) {
		migrator := newMigrator()
		defer icebox.CloseDefault()

		rolledBack, err := migrator.Reset()
		reportBatch("Rolled back", rolledBack)
		if err != nil {
			fail("reset failed: %v", err)
		}
	},
}

var statusCmd = &cobra.Command{
	Use:   "migrate:status",
	Short: "Show applied and pending migrations",
	Run: func(cmd *cobra.Command, args []string) {
		migrator := newMigrator()
		defer icebox.CloseDefault()

		status, err := migrator.Status()
		if err != nil {
			fail("status failed: %v", err)
		}

		fmt.Printf("%s (%d)\n", green("Executed:"), status.TotalExecuted)
		for _, name := range status.Executed {
			fmt.Println("  -", name)
		}
		fmt.Printf("%s (%d)\n", yellow("Pending:"), status.TotalPending)
		for _, name := range status.Pending {
			fmt.Println("  -", name)
		}
	},
}

func newMigrator() *icebox.Migrator {
	config, err := icebox.LoadDatabaseConfig(configPath)
	if err != nil {
		fail("config error: %v", err)
	}

	icebox.Configure(config)
	conn, err := icebox.Default()
	if err != nil {
		fail("connection error: %v", err)
	}

	migrator := icebox.NewMigrator(conn)
	migrator.RegisterAll()
	return migrator
}

func reportBatch(verb string, names []string) {
	for _, name := range names {
		fmt.Printf("%s %s\n", green(verb+":"), name)
	}
}

func fail(format string, args ...interface{}) {
	fmt.Fprintln(os.Stderr, red(fmt.Sprintf(format, args...)))
	os.Exit(1)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config/database.yaml", "Database config file")
	rootCmd.PersistentFlags().StringVarP(&migrationsDir, "dir", "d", "migrations", "Migrations directory")
	rollbackCmd.Flags().IntVarP(&rollbackSteps, "steps", "s", 1, "Number of migrations to roll back")

	rootCmd.AddCommand(makeMigrationCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(rollbackCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
