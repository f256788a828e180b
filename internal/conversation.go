package internal

import (
	"slices"
	"time"
)

// Conversation is the content currently loaded for one user together with the
// questions asked about it. Only one content is active at a time.
type Conversation struct {
	URL     string
	VideoID string
	Content string
	State   State
	Banner  Banner

	exchanges []Exchange
	now       func() time.Time
}

// NewConversation returns an idle conversation with no content
func NewConversation() *Conversation {
	return &Conversation{State: StateIdle, now: time.Now}
}

// Reset drops the content and the whole log
func (c *Conversation) Reset() {
	c.URL = ""
	c.VideoID = ""
	c.Content = ""
	c.State = StateIdle
	c.Banner = Banner{}
	c.exchanges = nil
}

// HasContent reports whether questions can be asked
func (c *Conversation) HasContent() bool {
	return c.Content != ""
}

// Append records a new exchange at the end of the log
func (c *Conversation) Append(question, answer string) Exchange {
	ex := Exchange{Question: question, Answer: answer, AskedAt: c.now()}
	c.exchanges = append(c.exchanges, ex)
	return ex
}

// Exchanges returns the log oldest-first. The slice is a copy.
func (c *Conversation) Exchanges() []Exchange {
	return slices.Clone(c.exchanges)
}

// Len returns the number of exchanges in the log
func (c *Conversation) Len() int {
	return len(c.exchanges)
}

// Snapshot is a read-only view of a conversation for rendering
type Snapshot struct {
	URL        string     `json:"url,omitempty"`
	VideoID    string     `json:"video_id,omitempty"`
	State      State      `json:"state"`
	Banner     Banner     `json:"banner"`
	HasContent bool       `json:"has_content"`
	Content    string     `json:"-"`
	Exchanges  []Exchange `json:"exchanges"`
}

// Snapshot copies the conversation's current state
func (c *Conversation) Snapshot() Snapshot {
	exchanges := c.Exchanges()
	if exchanges == nil {
		exchanges = []Exchange{}
	}
	return Snapshot{
		URL:        c.URL,
		VideoID:    c.VideoID,
		State:      c.State,
		Banner:     c.Banner,
		HasContent: c.HasContent(),
		Content:    c.Content,
		Exchanges:  exchanges,
	}
}
