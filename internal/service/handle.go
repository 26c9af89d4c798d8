package service

import (
	"context"
	"encoding/json"
	"fmt"
)

type tabIDBody struct {
	TabID *int `json:"tabId"`
}

type urlBody struct {
	URL string `json:"url"`
}

type textBody struct {
	Text string `json:"text"`
}

type tabIDsBody struct {
	TabIDs []int `json:"tabIds"`
}

type popupBody struct {
	IsOpen bool `json:"isOpen"`
}

// Handle dispatches a named request with a JSON body. Unknown names and
// malformed bodies produce a failure result.
func (s *Service) Handle(ctx context.Context, name string, body json.RawMessage) any {
	switch name {
	case ReqSearchAllTabs:
		return s.SearchAllTabs(ctx)
	case ReqGetAllTabs:
		return s.GetAllTabs(ctx)
	case ReqGetRecentTabs:
		return s.GetRecentTabs(ctx)
	case ReqGetSettings:
		return s.GetSettings(ctx)
	case ReqSetSettings:
		return s.SetSettings(ctx, body)
	case ReqSwitchToTab:
		var b tabIDBody
		if err := decode(body, &b); err != nil || b.TabID == nil {
			return Result{Error: "invalid tab id"}
		}
		return s.SwitchToTab(ctx, *b.TabID)
	case ReqOpenBookmark:
		var b urlBody
		if err := decode(body, &b); err != nil {
			return fail(err)
		}
		return s.OpenBookmark(ctx, b.URL)
	case ReqGetBookmarks:
		var b textBody
		if err := decode(body, &b); err != nil {
			return fail(err)
		}
		return s.SearchBookmarks(ctx, b.Text)
	case ReqGetTabIcon:
		var b urlBody
		if err := decode(body, &b); err != nil {
			return fail(err)
		}
		return s.GetTabIcon(ctx, b.URL)
	case ReqGetTabPreviews:
		var b tabIDsBody
		if err := decode(body, &b); err != nil {
			return fail(err)
		}
		return s.GetTabPreviews(ctx, b.TabIDs)
	case ReqUpdatePopupOpen:
		var b popupBody
		if err := decode(body, &b); err != nil {
			return fail(err)
		}
		return s.UpdatePopupOpen(b.IsOpen)
	default:
		return Result{Error: fmt.Sprintf("unknown request %q", name)}
	}
}

func decode(body json.RawMessage, dst any) error {
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("malformed request body: %w", err)
	}
	return nil
}
