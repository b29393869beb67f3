package types

import (
	"encoding/json"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeUpdatePolicy(t *testing.T) {
	n := &TabNode{ID: 1, URL: "a", Title: "A", ParentTabID: NoTab, ChildTabIDs: []TabID{}, Position: 3, IsCollapsed: true}

	changed := Merge(n, Patch{
		Title:       Some("A"),
		IsCollapsed: Some(false),
		Position:    Some(0),
		ParentTabID: Some(TabID(9)),
	}, UpdatePolicy)

	assert.Equal(t, []Field{FieldIsCollapsed}, changed)
	assert.False(t, n.IsCollapsed)
	assert.Equal(t, 3, n.Position, "position is not an update field")
	assert.Equal(t, NoTab, n.ParentTabID)
}

func TestMergeZeroValuesAreValues(t *testing.T) {
	n := &TabNode{ID: 1, Position: 4, IsCollapsed: true, ChildTabIDs: []TabID{2}}

	changed := Merge(n, Patch{
		Position:    Some(0),
		IsCollapsed: Some(false),
		ChildTabIDs: Some([]TabID{}),
	}, RestorePolicy)

	assert.Equal(t, []Field{FieldIsCollapsed, FieldChildren, FieldPosition}, changed)
	assert.Equal(t, 0, n.Position)
	assert.Empty(t, n.ChildTabIDs)
}

func TestMergeNoChange(t *testing.T) {
	n := &TabNode{ID: 1, URL: "a", Title: "A"}

	assert.Empty(t, Merge(n, Patch{URL: Some("a"), Title: Some("A")}, UpdatePolicy))
	assert.Empty(t, Merge(n, Patch{}, UpdatePolicy))
}

func TestChangeInfoJSON(t *testing.T) {
	var c ChangeInfo
	require.NoError(t, json.Unmarshal([]byte(`{"is_collapsed":false,"title":""}`), &c))

	assert.True(t, c.IsCollapsed.Set)
	assert.False(t, c.IsCollapsed.Value)
	assert.True(t, c.Title.Set)
	assert.False(t, c.URL.Set)
	assert.False(t, c.Active.Set)

	out, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, `{"is_collapsed":false,"title":""}`, string(out))
}

func TestChangeInfoCBOR(t *testing.T) {
	in := ChangeInfo{IsCollapsed: Some(false), Title: Some("")}

	data, err := cbor.Marshal(in)
	require.NoError(t, err)
	var out ChangeInfo
	require.NoError(t, cbor.Unmarshal(data, &out))
	assert.Equal(t, in, out)

	data, err = cbor.Marshal(map[string]any{"active": nil, "url": "x"})
	require.NoError(t, err)
	out = ChangeInfo{}
	require.NoError(t, cbor.Unmarshal(data, &out))
	assert.False(t, out.Active.Set)
	assert.Equal(t, Some("x"), out.URL)
}

func TestTabCreatedResolvedURL(t *testing.T) {
	tests := []struct {
		name string
		tab  TabCreated
		want string
	}{
		{"complete uses url", TabCreated{URL: "https://a", PendingURL: "https://b", Status: TabStatusComplete}, "https://a"},
		{"loading uses pending url", TabCreated{URL: "", PendingURL: "https://b", Status: TabStatusLoading}, "https://b"},
		{"loading without pending url", TabCreated{URL: "https://a", Status: TabStatusLoading}, "https://a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.tab.ResolvedURL())
		})
	}
}

func TestEventValidate(t *testing.T) {
	assert.NoError(t, TabCreatedEvent(TabCreated{WindowID: 1, ID: 2}).Validate())
	assert.NoError(t, WindowOpenedEvent(1).Validate())
	assert.Error(t, Event{Kind: EventTabCreated}.Validate())
	assert.ErrorIs(t, Event{Kind: "tab_moved"}.Validate(), ErrUnknownEventKind)
}
