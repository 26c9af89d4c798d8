package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/lotas/recentswitch/internal/config"
	"github.com/lotas/recentswitch/internal/export"
	"github.com/lotas/recentswitch/internal/history"
	"github.com/lotas/recentswitch/internal/storage"
)

func (c *HistoryCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}
	db, err := storage.OpenDB(cfg.DB.Path)
	if err != nil {
		return err
	}
	defer db.Close()
	return c.executeWithStore(db, cfg, os.Stdout)
}

func (c *HistoryCommand) executeWithStore(db *sql.DB, cfg *config.Config, w io.Writer) error {
	report, err := loadReport(context.Background(), db, cfg)
	if err != nil {
		return err
	}

	switch {
	case c.globals != nil && c.globals.JSON:
		out, err := export.JSON(report)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err
	case c.Markdown:
		_, err := io.WriteString(w, export.Markdown(report))
		return err
	}

	if len(report.Entries) == 0 {
		fmt.Fprintln(w, "No history recorded yet.")
		return nil
	}
	for i, e := range report.Entries {
		fmt.Fprintf(w, "%d. [%d] %s\n", i+1, e.ID, e.Title)
		fmt.Fprintf(w, "   %s\n", e.URL)
		fmt.Fprintf(w, "   last seen %s · %d visits\n", e.LastAccessed.Local().Format("2006-01-02 15:04"), e.Visits)
	}
	return nil
}

func loadReport(ctx context.Context, db *sql.DB, cfg *config.Config) (export.Report, error) {
	kv := storage.NewKV(db)
	recs, err := history.NewStore(kv, cfg.History.MaxRecords).GetAll(ctx)
	if err != nil {
		return export.Report{}, fmt.Errorf("load history: %w", err)
	}
	counts, err := history.NewCounter(kv).All(ctx)
	if err != nil {
		return export.Report{}, fmt.Errorf("load visit counts: %w", err)
	}

	report := export.Report{Title: "Recent tabs", Now: time.Now(), Entries: make([]export.Entry, len(recs))}
	for i, r := range recs {
		var seen time.Time
		if r.LastAccessed > 0 {
			seen = time.UnixMilli(r.LastAccessed)
		}
		report.Entries[i] = export.Entry{
			ID:           r.ID,
			Title:        r.Title,
			URL:          r.URL,
			WindowID:     r.WindowID,
			LastAccessed: seen,
			Visits:       counts[history.SiteKey(r.URL)],
		}
	}
	return report, nil
}
