// Package action implements the Action Registry: the bounded,
// FIFO-eviction event store that every observer registers normalised
// events into, and that the pattern detector and control-plane API read
// from.
package action

import "time"

// Source identifies which observer produced an Action.
type Source string

const (
	SourceFileWatcher  Source = "file_watcher"
	SourceInputMonitor Source = "input_monitor"
	SourceAppTracker   Source = "app_tracker"
	SourceAutomation   Source = "automation"
)

// Type is the free-form action_type tag (spec §3).
type Type string

const (
	TypeFileCreated  Type = "file_created"
	TypeFileModified Type = "file_modified"
	TypeFileMoved    Type = "file_moved"
	TypeFileDeleted  Type = "file_deleted"
	TypeFileRenamed  Type = "file_renamed"
	TypeKeySequence  Type = "key_sequence"
	TypeAppFocus     Type = "app_focus"
)

// Action is one observed event. IDs are monotonically assigned by the
// Registry; everything else is supplied by the caller of Register.
type Action struct {
	ID        uint64                 `json:"id"`
	Timestamp time.Time              `json:"timestamp"`
	Type      Type                   `json:"action_type"`
	Source    Source                 `json:"source"`
	Details   map[string]any         `json:"details,omitempty"`
	Metadata  map[string]any         `json:"metadata,omitempty"`
}

// Stats summarises the registry's current contents (spec §4.1 stats()).
type Stats struct {
	Total    int            `json:"total"`
	ByType   map[Type]int   `json:"by_type"`
	BySource map[Source]int `json:"by_source"`
}

// FileOperation is the details payload for filesystem actions (spec §3).
type FileOperation struct {
	EventType     string `json:"event_type"`
	SrcPath       string `json:"src_path"`
	DestPath      string `json:"dest_path,omitempty"`
	FileExtension string `json:"file_extension"`
	FileSize      int64  `json:"file_size,omitempty"`
}

// AsMap converts a FileOperation into the generic details map an Action
// stores, matching the on-disk/JSON shape of the other detail payloads.
func (f FileOperation) AsMap() map[string]any {
	m := map[string]any{
		"event_type":     f.EventType,
		"src_path":       f.SrcPath,
		"file_extension": f.FileExtension,
	}
	if f.DestPath != "" {
		m["dest_path"] = f.DestPath
	}
	if f.FileSize > 0 {
		m["file_size"] = f.FileSize
	}
	return m
}

// KeySequence is the details payload for a flushed key_sequence action.
type KeySequence struct {
	Keys           string  `json:"keys"`
	DurationMillis int64   `json:"duration_ms"`
	Application    string  `json:"application"`
}

// AsMap converts a KeySequence into a generic details map.
func (k KeySequence) AsMap() map[string]any {
	return map[string]any{
		"keys":        k.Keys,
		"duration_ms": k.DurationMillis,
		"application": k.Application,
	}
}
