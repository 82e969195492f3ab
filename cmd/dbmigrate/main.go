package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"accountd/internal"
	"accountd/internal/db"
	"accountd/internal/migrate"
	"accountd/migrations"
)

const helpText = `Usage: dbmigrate [sqlite_file]`

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, helpText)
		os.Exit(1)
	}

	dbFile := os.Args[1]

	sqlDB, err := db.OpenSQLite(dbFile, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open database: %v\n", err)
		os.Exit(1)
	}

	defer sqlDB.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	ran, err := migrate.RunFS(ctx, sqlDB, migrations.FS, migrate.Metadata{
		AppVersion: internal.BuildRevision,
		Timestamp:  time.Now(),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to run migrations: %v\n", err)
		os.Exit(1)
	}

	for _, m := range ran {
		fmt.Printf("ran migration [%d] %s\n", m.Sequence, m.Filename)
	}

	fmt.Printf("done, ran %d migrations\n", len(ran))
}
