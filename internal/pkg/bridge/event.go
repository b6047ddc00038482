package bridge

type EventType string

const (
	EventStateChanged EventType = "state_changed"
	EventReconciled   EventType = "reconciled"
)

// Event is emitted on the optional event hook for observers (the admin
// websocket feed). It is informational; nothing in the core depends on it.
type Event struct {
	Type       EventType `json:"type"`
	Index      int       `json:"index,omitempty"`
	UUID       string    `json:"uuid,omitempty"`
	Name       string    `json:"name,omitempty"`
	On         bool      `json:"on,omitempty"`
	Registered int       `json:"registered,omitempty"`
	Updated    int       `json:"updated,omitempty"`
	Removed    int       `json:"removed,omitempty"`
	Timestamp  int64     `json:"timestamp,omitempty"`
}
