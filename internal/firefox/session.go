package firefox

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lotas/recentswitch/internal/types"
	"github.com/pierrec/lz4/v4"
)

// mozlz4 header: 8-byte magic "mozLz40\x00"
var mozLz4Magic = []byte("mozLz40\x00")

// DecompressMozLz4 decompresses data in Mozilla's mozlz4 format.
// The format is: 8-byte magic "mozLz40\x00" + 4-byte LE uint32 uncompressed size + lz4 block data.
func DecompressMozLz4(data []byte) ([]byte, error) {
	const headerSize = 12 // 8 magic + 4 size

	if len(data) < headerSize {
		return nil, fmt.Errorf("mozlz4: data too short (%d bytes)", len(data))
	}
	for i := 0; i < len(mozLz4Magic); i++ {
		if data[i] != mozLz4Magic[i] {
			return nil, fmt.Errorf("mozlz4: invalid header magic")
		}
	}

	uncompressedSize := binary.LittleEndian.Uint32(data[8:12])
	dst := make([]byte, uncompressedSize)
	n, err := lz4.UncompressBlock(data[headerSize:], dst)
	if err != nil {
		return nil, fmt.Errorf("mozlz4: decompress failed: %w", err)
	}
	return dst[:n], nil
}

type rawEntry struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

type rawTab struct {
	Entries      []rawEntry `json:"entries"`
	Index        int        `json:"index"`
	LastAccessed int64      `json:"lastAccessed"`
	Image        string     `json:"image"`
}

type rawWindow struct {
	Tabs     []rawTab `json:"tabs"`
	Selected int      `json:"selected"` // 1-based index of the active tab
}

type rawSession struct {
	Windows        []rawWindow `json:"windows"`
	SelectedWindow int         `json:"selectedWindow"` // 1-based
}

// ParseSession turns session JSON into live-tab snapshots. Session files
// carry no browser tab ids, so tabs are numbered from 1 in window order;
// window ids are the 1-based window position. Only the selected tab of the
// selected window is marked active.
func ParseSession(data []byte) ([]types.Tab, error) {
	var raw rawSession
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse session JSON: %w", err)
	}

	selectedWindow := raw.SelectedWindow
	if selectedWindow < 1 || selectedWindow > len(raw.Windows) {
		selectedWindow = 1
	}

	tabs := []types.Tab{}
	nextID := 1
	for winIdx, window := range raw.Windows {
		for tabIdx, rt := range window.Tabs {
			if len(rt.Entries) == 0 {
				continue
			}
			// index is 1-based; current page is entries[index-1].
			entryIdx := rt.Index - 1
			if entryIdx < 0 || entryIdx >= len(rt.Entries) {
				entryIdx = len(rt.Entries) - 1
			}
			entry := rt.Entries[entryIdx]

			tabs = append(tabs, types.Tab{
				ID:           nextID,
				WindowID:     winIdx + 1,
				Title:        entry.Title,
				URL:          entry.URL,
				FavIconURL:   rt.Image,
				LastAccessed: rt.LastAccessed,
				Active:       winIdx+1 == selectedWindow && tabIdx+1 == window.Selected,
			})
			nextID++
		}
	}
	return tabs, nil
}

// ReadSessionFile reads the tabs of a profile's session. It tries
// recovery.jsonlz4 first (running browser), then previous.jsonlz4.
func ReadSessionFile(profileDir string) ([]types.Tab, error) {
	backupDir := filepath.Join(profileDir, "sessionstore-backups")
	var data []byte
	var err error
	for _, name := range sessionFiles {
		data, err = os.ReadFile(filepath.Join(backupDir, name))
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("no session file found in %s", backupDir)
	}

	decompressed, err := DecompressMozLz4(data)
	if err != nil {
		return nil, fmt.Errorf("decompress session file: %w", err)
	}
	return ParseSession(decompressed)
}

var sessionFiles = []string{"recovery.jsonlz4", "previous.jsonlz4"}
