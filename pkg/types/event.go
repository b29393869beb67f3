package types

import "fmt"

// EventKind discriminates the normalized host events.
type EventKind string

const (
	EventTabCreated    EventKind = "tab_created"
	EventTabUpdated    EventKind = "tab_updated"
	EventTabRemoved    EventKind = "tab_removed"
	EventWindowOpened  EventKind = "window_opened"
	EventWindowRemoved EventKind = "window_removed"
)

// TabCreated carries the attributes of a newly created tab.
type TabCreated struct {
	WindowID    WindowID   `json:"window_id"`
	ID          TabID      `json:"id"`
	URL         string     `json:"url,omitempty"`
	PendingURL  string     `json:"pending_url,omitempty"`
	Status      string     `json:"status,omitempty"`
	OpenerTabID Opt[TabID] `json:"opener_tab_id,omitzero"`
	Index       int        `json:"index"`
	Title       string     `json:"title,omitempty"`
	FaviconURL  string     `json:"favicon_url,omitempty"`
	Active      bool       `json:"active,omitempty"`
}

// ResolvedURL returns the pending URL while the tab is loading and the
// committed URL otherwise. A loading tab without a pending URL falls back to
// its committed URL.
func (t TabCreated) ResolvedURL() string {
	if t.Status == TabStatusLoading && t.PendingURL != "" {
		return t.PendingURL
	}
	return t.URL
}

// ChangeInfo is the partial update carried by a tab update. Only fields that
// are set are considered.
type ChangeInfo struct {
	URL         Opt[string] `json:"url,omitzero"`
	Title       Opt[string] `json:"title,omitzero"`
	FaviconURL  Opt[string] `json:"favicon_url,omitzero"`
	IsCollapsed Opt[bool]   `json:"is_collapsed,omitzero"`
	Active      Opt[bool]   `json:"active,omitzero"`
}

// Patch converts the change into a merge patch.
func (c ChangeInfo) Patch() Patch {
	return Patch{
		URL:         c.URL,
		Title:       c.Title,
		FaviconURL:  c.FaviconURL,
		IsCollapsed: c.IsCollapsed,
		Active:      c.Active,
	}
}

// Event is the envelope for every host notification the tracker consumes.
// Kind selects which of the remaining fields are meaningful.
type Event struct {
	Kind            EventKind   `json:"type"`
	WindowID        WindowID    `json:"window_id"`
	TabID           TabID       `json:"tab_id,omitempty"`
	Tab             *TabCreated `json:"tab,omitempty"`
	Change          ChangeInfo  `json:"change,omitzero"`
	IsWindowClosing bool        `json:"is_window_closing,omitempty"`
	WithChildren    bool        `json:"with_children,omitempty"`
}

// Validate checks that the fields required by Kind are present.
func (e Event) Validate() error {
	switch e.Kind {
	case EventTabCreated:
		if e.Tab == nil {
			return fmt.Errorf("%s: missing tab", e.Kind)
		}
	case EventTabUpdated, EventTabRemoved, EventWindowOpened, EventWindowRemoved:
	default:
		return fmt.Errorf("%w %q", ErrUnknownEventKind, e.Kind)
	}
	return nil
}

// TabCreatedEvent wraps t in an Event envelope.
func TabCreatedEvent(t TabCreated) Event {
	return Event{Kind: EventTabCreated, WindowID: t.WindowID, TabID: t.ID, Tab: &t}
}

// TabUpdatedEvent builds an update envelope.
func TabUpdatedEvent(windowID WindowID, tabID TabID, change ChangeInfo) Event {
	return Event{Kind: EventTabUpdated, WindowID: windowID, TabID: tabID, Change: change}
}

// TabRemovedEvent builds a removal envelope.
func TabRemovedEvent(windowID WindowID, tabID TabID, isWindowClosing bool) Event {
	return Event{Kind: EventTabRemoved, WindowID: windowID, TabID: tabID, IsWindowClosing: isWindowClosing}
}

// WindowOpenedEvent builds a window-open envelope.
func WindowOpenedEvent(windowID WindowID) Event {
	return Event{Kind: EventWindowOpened, WindowID: windowID}
}
