package internal

import "time"

// State is where a conversation is in its load/ask lifecycle
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateError
)

// String returns a human-readable representation of the state
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText lets State appear by name in JSON
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// BannerKind distinguishes success and error notices shown after a load
type BannerKind string

const (
	BannerNone    BannerKind = ""
	BannerSuccess BannerKind = "success"
	BannerError   BannerKind = "error"
)

// Banner is the one-line notice rendered above the chat log
type Banner struct {
	Kind BannerKind `json:"kind,omitempty"`
	Text string     `json:"text,omitempty"`
}

// Exchange is one answered question. It is never modified after creation.
type Exchange struct {
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	AskedAt  time.Time `json:"asked_at"`
}
