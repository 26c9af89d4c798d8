// Package cli implements the recentswitch command line.
package cli

import (
	"fmt"
	"os"

	goflags "github.com/jessevdk/go-flags"
	"github.com/lotas/recentswitch/internal/config"
)

type commands struct {
	Serve       *ServeCommand
	Switcher    *SwitcherCommand
	SettingsGet *SettingsGetCommand
	SettingsSet *SettingsSetCommand
	History     *HistoryCommand
	Profiles    *ProfilesCommand
}

func buildParser() (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "recentswitch"
	parser.LongDescription = "Recent-tab switcher companion: tracks tab recency for the browser extension and serves the switcher."

	cmds := &commands{
		Serve:       &ServeCommand{globals: &globals},
		Switcher:    &SwitcherCommand{globals: &globals},
		SettingsGet: &SettingsGetCommand{globals: &globals},
		SettingsSet: &SettingsSetCommand{globals: &globals},
		History:     &HistoryCommand{globals: &globals},
		Profiles:    &ProfilesCommand{globals: &globals},
	}

	parser.AddCommand("serve", "Run the daemon", "Run the daemon: WebSocket bridge for the extension plus the local HTTP API.", cmds.Serve)
	parser.AddCommand("switcher", "Open the terminal switcher", "Open the recent-tab switcher in the terminal.", cmds.Switcher)
	settingsCmd, _ := parser.AddCommand("settings", "Show or change settings", "Show or change switcher settings.", &struct{}{})
	settingsCmd.AddCommand("get", "Print settings", "Print the current switcher settings.", cmds.SettingsGet)
	settingsCmd.AddCommand("set", "Update settings", "Update switcher settings; omitted fields keep their value.", cmds.SettingsSet)
	parser.AddCommand("history", "List recent tabs", "List the stored recency history with visit counts.", cmds.History)
	parser.AddCommand("profiles", "List Firefox profiles", "List Firefox profiles that have a session file.", cmds.Profiles)

	return parser, &globals, cmds
}

// Run parses os.Args and executes the matched subcommand.
func Run(version string) error {
	return RunWithArgs(version, nil)
}

// RunWithArgs parses args (or os.Args if nil) and executes the matched
// subcommand.
func RunWithArgs(version string, args []string) error {
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Printf("recentswitch %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	parser, _, _ := buildParser()

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}
	if err != nil {
		if flagsErr, ok := err.(*goflags.Error); ok && flagsErr.Type == goflags.ErrHelp {
			return nil
		}
		return err
	}
	return nil
}

func loadConfig(g *GlobalFlags) (*config.Config, error) {
	path := config.DefaultPath()
	if g != nil && g.Config != "" {
		path = g.Config
	}
	return config.Load(path)
}
