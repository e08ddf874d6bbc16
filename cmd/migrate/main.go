package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ignite/formsync/internal/bootstrap"
	"github.com/ignite/formsync/internal/config"
	"github.com/ignite/formsync/internal/formconfig"
	"github.com/ignite/formsync/internal/repository/postgres"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config")
	dir := flag.String("dir", "migrations", "directory holding *.sql migrations")
	listOnly := flag.Bool("list", false, "list the service tables and exit")
	seedForms := flag.Bool("seed-forms", false, "copy the forms: section of the config into form_settings")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Database.URL == "" {
		log.Fatal("DATABASE_URL is required")
	}
	bootstrap.SetupLogging(cfg.Logging)

	ctx := context.Background()
	db, err := bootstrap.OpenDB(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer db.Close()

	if *listOnly {
		if err := listTables(ctx, db); err != nil {
			log.Fatal(err)
		}
		return
	}

	okCount, errCount, err := applyMigrations(ctx, db, *dir)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("Done: %d OK, %d errors", okCount, errCount)
	if errCount > 0 {
		os.Exit(1)
	}

	if *seedForms {
		n, err := seed(ctx, postgres.NewFormSettingsRepo(db), cfg)
		if err != nil {
			log.Fatalf("seed forms: %v", err)
		}
		log.Printf("Seeded %d form settings", n)
	}
	log.Println("Migrations complete")
}

func listTables(ctx context.Context, db *sql.DB) error {
	rows, err := db.QueryContext(ctx, `SELECT tablename FROM pg_tables
		WHERE schemaname = 'public' AND tablename IN ('contact_transfers', 'form_settings')
		ORDER BY tablename`)
	if err != nil {
		return err
	}
	defer rows.Close()
	n := 0
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return err
		}
		fmt.Println(" ", t)
		n++
	}
	fmt.Printf("Total: %d tables\n", n)
	return rows.Err()
}

// applyMigrations runs every *.sql file in name order, each in its own
// transaction. A failing file is reported and the rest still run.
func applyMigrations(ctx context.Context, db *sql.DB, dir string) (okCount, errCount int, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, 0, fmt.Errorf("read migrations dir %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, f := range files {
		path := filepath.Join(dir, f)
		data, err := os.ReadFile(path)
		if err != nil {
			return okCount, errCount, fmt.Errorf("read %s: %w", path, err)
		}
		content := string(data)
		if strings.TrimSpace(content) == "" {
			continue
		}
		fmt.Printf("  %s ... ", f)

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			fmt.Printf("BEGIN ERROR: %v\n", err)
			errCount++
			continue
		}
		if _, err := tx.ExecContext(ctx, content); err != nil {
			tx.Rollback()
			fmt.Printf("ERROR: %v\n", err)
			errCount++
			continue
		}
		if err := tx.Commit(); err != nil {
			fmt.Printf("COMMIT ERROR: %v\n", err)
			errCount++
			continue
		}
		fmt.Println("OK")
		okCount++
	}
	return okCount, errCount, nil
}

func seed(ctx context.Context, repo *postgres.FormSettingsRepo, cfg *config.Config) (int, error) {
	for i := range cfg.Forms {
		fc := cfg.Forms[i]
		if err := formconfig.Normalize(&fc); err != nil {
			return i, err
		}
		if err := repo.Upsert(ctx, fc); err != nil {
			return i, fmt.Errorf("form %d: %w", fc.FormID, err)
		}
	}
	return len(cfg.Forms), nil
}
