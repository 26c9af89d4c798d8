// Package settings normalizes and persists the switcher settings. Every read
// is also a repair-write, so the stored document is always self-healing.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/lotas/recentswitch/internal/applog"
	"github.com/lotas/recentswitch/internal/storage"
	"github.com/lotas/recentswitch/internal/types"
)

// Key is the KV key holding the settings document.
const Key = "settings"

const (
	MinDisplayLimit     = 1
	MaxDisplayLimit     = 8
	DefaultDisplayLimit = 6
)

// ErrInvalidSettings wraps every validation failure.
var ErrInvalidSettings = errors.New("invalid settings")

// Defaults returns the documented default settings.
func Defaults() types.Settings {
	return types.Settings{
		DisplayLimit: DefaultDisplayLimit,
		LayoutMode:   types.LayoutVertical,
	}
}

// Normalize turns a raw stored document (possibly partial, mistyped or
// out of range) into a fully-populated settings value. It never fails.
func Normalize(raw map[string]any) types.Settings {
	s := Defaults()

	if n, ok := raw["displayLimit"].(float64); ok && n != 0 && !math.IsNaN(n) && !math.IsInf(n, 0) {
		s.DisplayLimit = clamp(int(math.Round(n)))
	}
	s.LayoutMode = normalizeLayout(raw["layoutMode"])
	return s
}

func clamp(n int) int {
	return max(MinDisplayLimit, min(n, MaxDisplayLimit))
}

func normalizeLayout(v any) types.LayoutMode {
	if s, ok := v.(string); ok && types.LayoutMode(s) == types.LayoutHorizontal {
		return types.LayoutHorizontal
	}
	return types.LayoutVertical
}

// Patch is a partial settings update. Nil fields are left unchanged.
type Patch struct {
	DisplayLimit *float64
	LayoutMode   *string
}

// DecodePatch parses a request body into a Patch. Non-numeric displayLimit
// values are reported as validation errors rather than decode errors.
func DecodePatch(body json.RawMessage) (Patch, error) {
	var p Patch
	if len(body) == 0 {
		return p, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return p, fmt.Errorf("%w: malformed request body", ErrInvalidSettings)
	}
	if raw, ok := fields["displayLimit"]; ok {
		var n float64
		if err := json.Unmarshal(raw, &n); err != nil {
			return p, fmt.Errorf("%w: displayLimit must be a number", ErrInvalidSettings)
		}
		p.DisplayLimit = &n
	}
	if raw, ok := fields["layoutMode"]; ok {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return p, fmt.Errorf("%w: layoutMode must be a string", ErrInvalidSettings)
		}
		p.LayoutMode = &s
	}
	return p, nil
}

// Validate rejects out-of-range display limits. Layout modes are not
// rejected; unknown values fall back to vertical when applied.
func (p Patch) Validate() error {
	if p.DisplayLimit == nil {
		return nil
	}
	n := *p.DisplayLimit
	if math.IsNaN(n) || math.IsInf(n, 0) || n < MinDisplayLimit || n > MaxDisplayLimit {
		return fmt.Errorf("%w: displayLimit must be between %d and %d", ErrInvalidSettings, MinDisplayLimit, MaxDisplayLimit)
	}
	return nil
}

// Apply returns s with the patch merged in. The patch must be valid.
func (p Patch) Apply(s types.Settings) types.Settings {
	if p.DisplayLimit != nil {
		s.DisplayLimit = clamp(int(math.Round(*p.DisplayLimit)))
	}
	if p.LayoutMode != nil {
		s.LayoutMode = normalizeLayout(*p.LayoutMode)
	}
	return s
}

// KV is the subset of the persistent store settings need.
type KV interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any) error
}

// Service reads and writes settings through a KV store.
type Service struct {
	kv KV
}

func NewService(kv KV) *Service {
	return &Service{kv: kv}
}

// Get returns the normalized settings and persists them back, creating the
// document with defaults on first read.
func (s *Service) Get(ctx context.Context) (types.Settings, error) {
	raw := make(map[string]any)
	if _, err := s.kv.Get(ctx, Key, &raw); err != nil {
		if !errors.Is(err, storage.ErrDecode) {
			return types.Settings{}, fmt.Errorf("load settings: %w", err)
		}
		// A document of the wrong shape is repaired, not fatal.
		applog.Error("settings.decode", err)
		raw = nil
	}
	normalized := Normalize(raw)
	if err := s.kv.Set(ctx, Key, normalized); err != nil {
		return types.Settings{}, fmt.Errorf("persist settings: %w", err)
	}
	return normalized, nil
}

// Set validates and applies a partial update. On validation failure the
// stored settings are left untouched.
func (s *Service) Set(ctx context.Context, p Patch) (types.Settings, error) {
	if err := p.Validate(); err != nil {
		return types.Settings{}, err
	}
	current, err := s.Get(ctx)
	if err != nil {
		return types.Settings{}, err
	}
	next := p.Apply(current)
	if err := s.kv.Set(ctx, Key, next); err != nil {
		return types.Settings{}, fmt.Errorf("persist settings: %w", err)
	}
	applog.Info("settings.updated", "displayLimit", next.DisplayLimit, "layoutMode", string(next.LayoutMode))
	return next, nil
}
