package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/lotas/recentswitch/internal/api"
	"github.com/lotas/recentswitch/internal/config"
	"github.com/lotas/recentswitch/internal/firefox"
	"github.com/lotas/recentswitch/internal/settings"
	"github.com/lotas/recentswitch/internal/storage"
	"github.com/lotas/recentswitch/internal/tui"
	"github.com/lotas/recentswitch/internal/types"
)

func (c *SwitcherCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}
	ctx := context.Background()
	opts := tui.Options{
		SkipCurrent:      cfg.Switcher.SkipCurrent,
		IncludeBookmarks: cfg.Switcher.IncludeBookmarks,
	}

	backend, err := c.backend(ctx, cfg)
	if err != nil {
		return err
	}
	return tui.Run(ctx, backend, opts)
}

func (c *SwitcherCommand) backend(ctx context.Context, cfg *config.Config) (tui.Backend, error) {
	if !c.Offline {
		client := api.NewClient(apiBase(cfg), nil)
		pingCtx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := client.Health(pingCtx); err != nil {
			return nil, fmt.Errorf("daemon not reachable at %s (start it with `recentswitch serve` or use --offline): %w", apiBase(cfg), err)
		}
		return tui.LiveBackend{Client: client}, nil
	}

	profiles, err := firefox.DiscoverProfiles()
	if err != nil {
		return nil, err
	}
	var profile types.Profile
	if name := resolveProfileName(c.Profile); name != "" {
		profile, err = firefox.PickProfile(profiles, name)
	} else if len(profiles) == 0 {
		err = firefox.ErrNoProfiles
	} else {
		profile, err = tui.PickProfile(profiles)
	}
	if err != nil {
		return nil, err
	}
	return tui.OfflineBackend{Profile: profile, Settings: storedSettings(ctx, cfg)}, nil
}

// storedSettings reads the daemon's settings when its database exists,
// falling back to defaults.
func storedSettings(ctx context.Context, cfg *config.Config) types.Settings {
	if _, err := os.Stat(cfg.DB.Path); err != nil {
		return settings.Defaults()
	}
	db, err := storage.OpenDB(cfg.DB.Path)
	if err != nil {
		return settings.Defaults()
	}
	defer db.Close()
	s, err := settings.NewService(storage.NewKV(db)).Get(ctx)
	if err != nil {
		return settings.Defaults()
	}
	return s
}

func apiBase(cfg *config.Config) string {
	return fmt.Sprintf("http://127.0.0.1:%d", cfg.API.Port)
}

func resolveProfileName(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv("RECENTSWITCH_PROFILE")
}
