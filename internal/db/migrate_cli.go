package db

import (
	"fmt"
	"io"
	"io/fs"
	"strconv"
)

// RunMigrateCommand executes one migrate action against the database at
// dbPath and writes a human-readable result to out.
func RunMigrateCommand(args []string, dbPath string, out io.Writer) error {
	if len(args) < 1 {
		PrintMigrateHelp(out)
		return fmt.Errorf("migrate: missing action")
	}

	database, err := OpenDB(dbPath)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	migrations := Migrations()
	switch action := args[0]; action {
	case "up":
		if err := database.MigrateUp(migrations); err != nil {
			return err
		}
	case "down":
		if err := database.MigrateDown(migrations); err != nil {
			return err
		}
	case "to", "force":
		if len(args) < 2 {
			return fmt.Errorf("usage: gla14 migrate %s <version>", action)
		}
		v, err := strconv.Atoi(args[1])
		if err != nil || v < 0 {
			return fmt.Errorf("invalid version %q", args[1])
		}
		if action == "to" {
			err = database.MigrateTo(migrations, uint(v))
		} else {
			err = database.MigrateForce(migrations, v)
		}
		if err != nil {
			return err
		}
	case "status", "version":
	case "help":
		PrintMigrateHelp(out)
		return nil
	default:
		PrintMigrateHelp(out)
		return fmt.Errorf("unknown migrate action: %s", action)
	}
	return printStatus(database, migrations, out)
}

func printStatus(database *DB, migrations fs.FS, out io.Writer) error {
	st, err := database.GetMigrationStatus(migrations)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "current version: %d\n", st.Current)
	fmt.Fprintf(out, "latest version:  %d\n", st.Latest)
	fmt.Fprintf(out, "dirty:           %v\n", st.Dirty)
	if st.PendingCount > 0 {
		fmt.Fprintf(out, "pending:         %d (run 'gla14 migrate up')\n", st.PendingCount)
	}
	if st.Dirty {
		fmt.Fprintf(out, "database is dirty; inspect it, then 'gla14 migrate force <version>'\n")
	}
	return nil
}

// PrintMigrateHelp prints usage for the migrate subcommand.
func PrintMigrateHelp(out io.Writer) {
	fmt.Fprint(out, `Usage: gla14 migrate [-db path] <action>

Actions:
  up                 apply all pending migrations
  down               roll back the most recent migration
  to <version>       migrate up or down to a version
  force <version>    set the version without running migrations (recovery)
  status, version    show current and latest versions
  help               show this help
`)
}
