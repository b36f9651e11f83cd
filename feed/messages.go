package feed

// Control message types a client may send.
const (
	CommandStart       = "start"
	CommandStop        = "stop"
	CommandClear       = "clear"
	CommandRecalibrate = "recalibrate"
)

// ControlMessage is a session control request from a client.
type ControlMessage struct {
	Type string `json:"type"`
}

// AckMessage confirms a control request.
type AckMessage struct {
	Type    string `json:"type"` // "ack"
	Command string `json:"command"`
	State   string `json:"state"`
}

// ErrorMessage reports a rejected control request.
type ErrorMessage struct {
	Type    string `json:"type"` // "error"
	Command string `json:"command,omitempty"`
	Error   string `json:"error"`
}
