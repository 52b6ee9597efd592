package ipc

// Request is one command sent to the session owner. Commands that act on
// session payloads (insert, copy) operate on state the owner already holds,
// so no arguments travel with them.
type Request struct {
	Command string `json:"command"`
}

type Response struct {
	OK      bool   `json:"ok"`
	State   string `json:"state,omitempty"`
	Session string `json:"session,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}
