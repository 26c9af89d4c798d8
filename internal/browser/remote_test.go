package browser

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/lotas/recentswitch/internal/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCaller struct {
	calls  []server.OutgoingMsg
	result json.RawMessage
	err    error
}

func (f *fakeCaller) Call(ctx context.Context, msg server.OutgoingMsg) (json.RawMessage, error) {
	f.calls = append(f.calls, msg)
	return f.result, f.err
}

func TestRemote_GetTab(t *testing.T) {
	fc := &fakeCaller{result: json.RawMessage(`{"id":3,"windowId":1,"title":"T","url":"https://x.com/","lastAccessed":42}`)}
	tab, err := NewRemote(fc, 0).GetTab(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 3, tab.ID)
	assert.Equal(t, int64(42), tab.LastAccessed)
	require.Len(t, fc.calls, 1)
	assert.Equal(t, ActionGetTab, fc.calls[0].Action)
	assert.Equal(t, 3, fc.calls[0].TabID)
}

func TestRemote_NotFoundMapsToSentinel(t *testing.T) {
	fc := &fakeCaller{err: &server.CallError{Action: ActionGetTab, Code: CodeNotFound, Message: "No tab with id: 3"}}
	_, err := NewRemote(fc, 0).GetTab(context.Background(), 3)
	assert.ErrorIs(t, err, ErrNotFound)

	fc.err = &server.CallError{Action: ActionActivateTab, Message: "boom"}
	err = NewRemote(fc, 0).ActivateTab(context.Background(), 3)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestRemote_ActiveTabNull(t *testing.T) {
	fc := &fakeCaller{result: json.RawMessage(`null`)}
	_, err := NewRemote(fc, 0).ActiveTab(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemote_SendToTabEncodesMessage(t *testing.T) {
	fc := &fakeCaller{}
	err := NewRemote(fc, 0).SendToTab(context.Background(), 9, map[string]string{"action": "showRecentTabs"})
	require.NoError(t, err)
	require.Len(t, fc.calls, 1)
	assert.Equal(t, ActionSendToTab, fc.calls[0].Action)
	assert.JSONEq(t, `{"action":"showRecentTabs"}`, string(fc.calls[0].Message))
}

func TestRemote_BookmarkTree(t *testing.T) {
	fc := &fakeCaller{result: json.RawMessage(`[{"id":"root","children":[{"id":"1","title":"Go","url":"https://go.dev/","dateAdded":5}]}]`)}
	tree, err := NewRemote(fc, 0).BookmarkTree(context.Background())
	require.NoError(t, err)
	require.Len(t, tree, 1)
	require.Len(t, tree[0].Children, 1)
	assert.Equal(t, "https://go.dev/", tree[0].Children[0].URL)
}

func TestRemote_NotConnected(t *testing.T) {
	fc := &fakeCaller{err: server.ErrNotConnected}
	_, err := NewRemote(fc, 0).QueryTabs(context.Background())
	assert.ErrorIs(t, err, server.ErrNotConnected)
}

// silentCaller never answers, like an extension that drops a request.
type silentCaller struct{}

func (silentCaller) Call(ctx context.Context, msg server.OutgoingMsg) (json.RawMessage, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestRemote_CallTimesOutWithoutReply(t *testing.T) {
	r := NewRemote(silentCaller{}, 50*time.Millisecond)

	start := time.Now()
	_, err := r.GetTab(context.Background(), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestNewRemote_DefaultTimeout(t *testing.T) {
	assert.Equal(t, DefaultCallTimeout, NewRemote(&fakeCaller{}, 0).timeout)
	assert.Equal(t, time.Second, NewRemote(&fakeCaller{}, time.Second).timeout)
}
