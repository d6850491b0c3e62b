// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// legacyAssistant is how older history files spelled the assistant role.
const legacyAssistant = "ai"

// ParseRole maps a persisted role string to a Role. The legacy spelling
// "ai" is accepted for the assistant.
func ParseRole(s string) (Role, bool) {
	switch s {
	case string(RoleUser):
		return RoleUser, true
	case string(RoleAssistant), legacyAssistant:
		return RoleAssistant, true
	}
	return "", false
}

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "FlashQuery"
	default:
		return string(r)
	}
}

// =============================================================================
// TURN TYPE
// =============================================================================

// Turn is one message within a conversation. It is a value type and is
// never modified after creation.
type Turn struct {
	Role Role
	Text string
}

// UserTurn creates a user turn.
func UserTurn(text string) Turn {
	return Turn{Role: RoleUser, Text: text}
}

// AssistantTurn creates an assistant turn.
func AssistantTurn(text string) Turn {
	return Turn{Role: RoleAssistant, Text: text}
}

// IsUser reports whether the turn came from the user.
func (t Turn) IsUser() bool {
	return t.Role == RoleUser
}
