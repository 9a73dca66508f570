// Package ipc implements the local control socket: JSON-line requests over a
// unix socket, one request per connection.
package ipc

import "encoding/json"

// Request kinds understood by the daemon. Unknown kinds get an explicit
// error response rather than a dropped connection.
const (
	KindStart          = "start"
	KindStop           = "stop"
	KindCancel         = "cancel"
	KindStatus         = "status"
	KindSettingsGet    = "settings.get"
	KindSettingsSet    = "settings.set"
	KindSettingsExport = "settings.export"
	KindSettingsImport = "settings.import"
	KindHistory        = "history"
)

// Request is one tagged control message.
type Request struct {
	Kind string `json:"kind"`
	// Settings carries the partial record for settings.set.
	Settings map[string]any `json:"settings,omitempty"`
	// Blob carries the snapshot document for settings.import.
	Blob json.RawMessage `json:"blob,omitempty"`
}

// Response is the single reply to a request.
type Response struct {
	OK       bool            `json:"ok"`
	State    string          `json:"state,omitempty"`
	Settings map[string]any  `json:"settings,omitempty"`
	Blob     json.RawMessage `json:"blob,omitempty"`
	Message  string          `json:"message,omitempty"`
	Error    string          `json:"error,omitempty"`
}
