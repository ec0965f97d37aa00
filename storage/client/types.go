// Types for storage client responses.
package client

import (
	"time"
)

// Event is a recorded vault event.
type Event struct {
	Seq  uint64    `json:"seq"`
	Name string    `json:"name"`
	Time time.Time `json:"time"`
	// Account is the account the event is primarily about, if any.
	Account *string `json:"account,omitempty"`
	// Fields are the event's inputs by ABI name.
	Fields map[string]interface{} `json:"fields"`
	// Topics and Data are the event encoded as an EVM log, hex encoded.
	Topics []string `json:"topics"`
	Data   string   `json:"data"`
}

// EventList is the storage response for Events.
type EventList struct {
	Events              []Event `json:"events"`
	TotalCount          uint64  `json:"total_count"`
	IsTotalCountClipped bool    `json:"is_total_count_clipped"`
}

// EventFilter selects events. Nil fields match everything.
type EventFilter struct {
	Account *string
	Name    *string
	// After only matches events with a larger sequence number.
	After  *uint64
	Limit  uint64
	Offset uint64
}

// Cooldown is a recorded pending cooldown.
type Cooldown struct {
	Account          string `json:"account"`
	UnlockTimestamp  uint64 `json:"unlock_timestamp"`
	UnderlyingAmount string `json:"underlying_amount"`
	LastSeq          uint64 `json:"last_seq"`
}
