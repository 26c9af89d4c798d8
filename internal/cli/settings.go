package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/lotas/recentswitch/internal/settings"
	"github.com/lotas/recentswitch/internal/storage"
	"github.com/lotas/recentswitch/internal/types"
)

func openStore(g *GlobalFlags) (*sql.DB, error) {
	cfg, err := loadConfig(g)
	if err != nil {
		return nil, err
	}
	return storage.OpenDB(cfg.DB.Path)
}

func (c *SettingsGetCommand) Execute(args []string) error {
	db, err := openStore(c.globals)
	if err != nil {
		return err
	}
	defer db.Close()
	return c.executeWithStore(db, os.Stdout)
}

func (c *SettingsGetCommand) executeWithStore(db *sql.DB, w io.Writer) error {
	s, err := settings.NewService(storage.NewKV(db)).Get(context.Background())
	if err != nil {
		return err
	}
	return printSettings(w, s, c.globals != nil && c.globals.JSON)
}

func (c *SettingsSetCommand) Execute(args []string) error {
	db, err := openStore(c.globals)
	if err != nil {
		return err
	}
	defer db.Close()
	return c.executeWithStore(db, os.Stdout)
}

func (c *SettingsSetCommand) executeWithStore(db *sql.DB, w io.Writer) error {
	if c.DisplayLimit == nil && c.Layout == nil {
		return errors.New("nothing to set: pass --display-limit and/or --layout")
	}
	var p settings.Patch
	if c.DisplayLimit != nil {
		n := float64(*c.DisplayLimit)
		p.DisplayLimit = &n
	}
	p.LayoutMode = c.Layout

	s, err := settings.NewService(storage.NewKV(db)).Set(context.Background(), p)
	if err != nil {
		return err
	}
	return printSettings(w, s, c.globals != nil && c.globals.JSON)
}

func printSettings(w io.Writer, s types.Settings, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}
	fmt.Fprintf(w, "Display limit: %d\n", s.DisplayLimit)
	fmt.Fprintf(w, "Layout:        %s\n", s.LayoutMode)
	return nil
}
