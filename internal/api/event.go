package api

// Event tables.
const (
	TableDirectMessages = "direct_messages"
	TableGroupMessages  = "group_messages"
	TableGroupMembers   = "group_members"
)

// Event is one realtime change notification: a row insert (or, for
// group_members, a delete) on one of the message tables. Exactly one of the
// payload pointers is set, matching Table.
type Event struct {
	Type  string `json:"type"`
	Table string `json:"table"`

	DirectMessage *DirectMessage `json:"direct_message,omitempty"`
	GroupMessage  *GroupMessage  `json:"group_message,omitempty"`
	GroupMember   *GroupMember   `json:"group_member,omitempty"`
}

// Event types.
const (
	EventInsert = "insert"
	EventDelete = "delete"
)
