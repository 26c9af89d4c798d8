package firefox

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/lotas/recentswitch/internal/types"
)

// ErrNoProfiles is returned when no profile has a readable session.
var ErrNoProfiles = errors.New("no Firefox profile with a session file")

// FindFirefoxDir returns the Firefox profile directory: RECENTSWITCH_FIREFOX_DIR
// when set, otherwise the platform default.
func FindFirefoxDir() string {
	if dir := os.Getenv("RECENTSWITCH_FIREFOX_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	switch runtime.GOOS {
	case "linux":
		return filepath.Join(home, ".mozilla", "firefox")
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Firefox")
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "Mozilla", "Firefox")
		}
	}
	return ""
}

// ParseProfilesINI reads profiles.ini and returns the profiles that have a
// session file, with relative paths resolved against firefoxDir.
func ParseProfilesINI(iniPath, firefoxDir string) ([]types.Profile, error) {
	f, err := os.Open(iniPath)
	if err != nil {
		return nil, fmt.Errorf("open profiles.ini: %w", err)
	}
	defer f.Close()

	var profiles []types.Profile
	var current *types.Profile
	flush := func() {
		if current != nil {
			profiles = append(profiles, *current)
			current = nil
		}
	}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ";") || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			flush()
			if strings.HasPrefix(line[1:len(line)-1], "Profile") {
				current = &types.Profile{}
			}
			continue
		}
		if current == nil {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		switch key {
		case "Name":
			current.Name = value
		case "Path":
			current.Path = value
		case "IsRelative":
			current.IsRelative = value == "1"
		case "Default":
			current.IsDefault = value == "1"
		}
	}
	flush()
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan profiles.ini: %w", err)
	}

	var usable []types.Profile
	for _, p := range profiles {
		if p.IsRelative {
			p.Path = filepath.Join(firefoxDir, filepath.FromSlash(p.Path))
		}
		if hasSession(p.Path) {
			usable = append(usable, p)
		}
	}
	return usable, nil
}

func hasSession(profileDir string) bool {
	for _, name := range sessionFiles {
		if _, err := os.Stat(filepath.Join(profileDir, "sessionstore-backups", name)); err == nil {
			return true
		}
	}
	return false
}

// DiscoverProfiles finds and parses Firefox profiles on this system.
func DiscoverProfiles() ([]types.Profile, error) {
	dir := FindFirefoxDir()
	if dir == "" {
		return nil, fmt.Errorf("could not find Firefox directory for %s", runtime.GOOS)
	}
	return ParseProfilesINI(filepath.Join(dir, "profiles.ini"), dir)
}

// PickProfile returns the profile called name, or the default profile when
// name is empty, or the first profile when none is marked default.
func PickProfile(profiles []types.Profile, name string) (types.Profile, error) {
	if len(profiles) == 0 {
		return types.Profile{}, ErrNoProfiles
	}
	if name != "" {
		for _, p := range profiles {
			if p.Name == name {
				return p, nil
			}
		}
		return types.Profile{}, fmt.Errorf("profile %q not found", name)
	}
	for _, p := range profiles {
		if p.IsDefault {
			return p, nil
		}
	}
	return profiles[0], nil
}
