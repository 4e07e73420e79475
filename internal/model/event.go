package model

// DrawEvent is the message published on every draw lifecycle change.
type DrawEvent struct {
	Event   string   `json:"event"`
	Draw    Draw     `json:"draw"`
	Winners []Winner `json:"winners,omitempty"`
	Actor   string   `json:"actor,omitempty"`
	At      string   `json:"at"`
}
