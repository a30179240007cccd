package ipc

// Request is one newline-delimited JSON command sent to the session owner.
type Request struct {
	Command string `json:"command"`
}

// Response is the owner's single-line JSON reply.
type Response struct {
	OK      bool   `json:"ok"`
	State   string `json:"state,omitempty"`
	Session string `json:"session,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}
