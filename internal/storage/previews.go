package storage

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pierrec/lz4/v4"
)

// Preview kinds.
const (
	PreviewImage = "image" // data URL from a visible-tab capture
	PreviewText  = "text"  // readable text excerpt
)

// Preview is a stored snapshot of what a tab looked like.
type Preview struct {
	TabID      int       `json:"tabId"`
	Kind       string    `json:"kind"`
	Data       string    `json:"data"`
	CapturedAt time.Time `json:"capturedAt"`
}

// SavePreview stores (or replaces) the preview for a tab. Data is
// lz4-compressed; captures are large base64 strings.
func SavePreview(ctx context.Context, db *sql.DB, p Preview) error {
	blob, err := compress([]byte(p.Data))
	if err != nil {
		return fmt.Errorf("compress preview: %w", err)
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO tab_previews (tab_id, kind, data, captured_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(tab_id) DO UPDATE SET kind = excluded.kind, data = excluded.data, captured_at = excluded.captured_at`,
		p.TabID, p.Kind, blob, p.CapturedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save preview for tab %d: %w", p.TabID, err)
	}
	return nil
}

// RemovePreview deletes the preview for a tab, if any.
func RemovePreview(ctx context.Context, db *sql.DB, tabID int) error {
	if _, err := db.ExecContext(ctx, "DELETE FROM tab_previews WHERE tab_id = ?", tabID); err != nil {
		return fmt.Errorf("remove preview for tab %d: %w", tabID, err)
	}
	return nil
}

// PreviewsByIDs returns the stored previews for the given tabs. Tabs without
// a preview are absent from the map.
func PreviewsByIDs(ctx context.Context, db *sql.DB, tabIDs []int) (map[int]Preview, error) {
	result := make(map[int]Preview, len(tabIDs))
	if len(tabIDs) == 0 {
		return result, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(tabIDs)), ",")
	args := make([]any, len(tabIDs))
	for i, id := range tabIDs {
		args[i] = id
	}

	rows, err := db.QueryContext(ctx,
		"SELECT tab_id, kind, data, captured_at FROM tab_previews WHERE tab_id IN ("+placeholders+")",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query previews: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			p    Preview
			blob []byte
			ms   int64
		)
		if err := rows.Scan(&p.TabID, &p.Kind, &blob, &ms); err != nil {
			return nil, fmt.Errorf("scan preview: %w", err)
		}
		data, err := decompress(blob)
		if err != nil {
			return nil, fmt.Errorf("decompress preview for tab %d: %w", p.TabID, err)
		}
		p.Data = string(data)
		p.CapturedAt = time.UnixMilli(ms)
		result[p.TabID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate previews: %w", err)
	}
	return result, nil
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(blob []byte) ([]byte, error) {
	return io.ReadAll(lz4.NewReader(bytes.NewReader(blob)))
}
