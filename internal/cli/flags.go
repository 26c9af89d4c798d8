package cli

// GlobalFlags apply to every subcommand.
type GlobalFlags struct {
	Config  string `long:"config" description:"Path to config file (default ~/.config/recentswitch/config.yaml)"`
	JSON    bool   `long:"json" description:"Output in JSON format"`
	Version bool   `long:"version" description:"Show version and exit"`
}

// ServeCommand runs the companion daemon.
type ServeCommand struct {
	Port    int  `long:"port" description:"WebSocket port the extension connects to (overrides config)"`
	APIPort int  `long:"api-port" description:"HTTP API port (overrides config)"`
	Stderr  bool `long:"stderr" description:"Log to stderr instead of the log file"`

	globals *GlobalFlags
}

// SwitcherCommand opens the terminal switcher.
type SwitcherCommand struct {
	Offline bool   `long:"offline" description:"Read tabs from a Firefox session file instead of the daemon"`
	Profile string `long:"profile" description:"Firefox profile name for --offline (env RECENTSWITCH_PROFILE)"`

	globals *GlobalFlags
}

// SettingsGetCommand prints the current settings.
type SettingsGetCommand struct {
	globals *GlobalFlags
}

// SettingsSetCommand applies a partial settings update.
type SettingsSetCommand struct {
	DisplayLimit *int    `long:"display-limit" description:"Entries shown in the switcher (1-8)"`
	Layout       *string `long:"layout" description:"Switcher layout" choice:"vertical" choice:"horizontal"`

	globals *GlobalFlags
}

// HistoryCommand lists the recency history with visit counts.
type HistoryCommand struct {
	Markdown bool `long:"markdown" description:"Print a markdown report grouped by window"`

	globals *GlobalFlags
}

// ProfilesCommand lists Firefox profiles usable by --offline.
type ProfilesCommand struct {
	globals *GlobalFlags
}
