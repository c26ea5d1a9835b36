package models

// User is the authenticated identity returned by /users/me.
type User struct {
	UserID   string `json:"userid"`
	Nickname string `json:"nickname"`
}

// LoginRequest is the body of POST /users/login.
type LoginRequest struct {
	UserID   string `json:"userid"`
	Password string `json:"password"`
}

// LoginResponse carries the session token the socket handshake stamps onto
// every outbound frame.
type LoginResponse struct {
	SID   string `json:"sid"`
	Error string `json:"error,omitempty"`
}

// SignupRequest is the body of POST /users.
type SignupRequest struct {
	UserID   string `json:"userid"`
	Nickname string `json:"nickname"`
	Password string `json:"password"`
}
