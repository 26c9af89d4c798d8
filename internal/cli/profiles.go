package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/lotas/recentswitch/internal/firefox"
	"github.com/lotas/recentswitch/internal/types"
)

func (c *ProfilesCommand) Execute(args []string) error {
	profiles, err := firefox.DiscoverProfiles()
	if err != nil {
		return fmt.Errorf("discover Firefox profiles: %w", err)
	}
	return c.print(os.Stdout, profiles)
}

func (c *ProfilesCommand) print(w io.Writer, profiles []types.Profile) error {
	if c.globals != nil && c.globals.JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(profiles)
	}
	if len(profiles) == 0 {
		return firefox.ErrNoProfiles
	}
	for _, p := range profiles {
		suffix := ""
		if p.IsDefault {
			suffix = " [default]"
		}
		fmt.Fprintf(w, "%s (%s)%s\n", p.Name, p.Path, suffix)
	}
	return nil
}
