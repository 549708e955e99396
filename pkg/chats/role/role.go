// Package role defines the sender roles used in conversations.
package role

// Role is the sender of a message.
type Role string

const (
	System    Role = "system"
	User      Role = "user"
	Assistant Role = "assistant"
)

// FromClient reports whether r may appear in a client-supplied history.
// System messages are always composed server side.
func (r Role) FromClient() bool {
	return r == User || r == Assistant
}
