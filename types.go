package lendconsole

import "slices"

// Role is a user role tag as issued by the lending API. Unknown tags are
// carried verbatim.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleEmployee Role = "EMPLOYEE"
	// RoleClient is the backend default for self-registered users.
	RoleClient Role = "ROLE_CLIENT"
)

// Session is the authenticated identity published to observers.
type Session struct {
	Username string
	Role     Role
	Token    string
}

// HasRole reports whether the session's role is one of roles.
func (s Session) HasRole(roles ...Role) bool {
	return slices.Contains(roles, s.Role)
}

// profile is the JSON document cached under the profile key.
type profile struct {
	Username  string `json:"username"`
	Role      Role   `json:"role"`
	Token     string `json:"token,omitempty"`
	TokenType string `json:"tokenType,omitempty"`
}

// Navigator moves the console to a route. notice, when non-empty, is a
// message for the user explaining the move.
type Navigator interface {
	Navigate(route, notice string)
}

// NavigatorFunc adapts a function to [Navigator].
type NavigatorFunc func(route, notice string)

// Navigate implements [Navigator].
func (f NavigatorFunc) Navigate(route, notice string) { f(route, notice) }

type noopNavigator struct{}

func (noopNavigator) Navigate(string, string) {}

// Notices shown on forced navigation.
const (
	NoticeSessionExpired = "Your session has expired. Please log in again."
	NoticeForbidden      = "You do not have permission to perform this action"
)
