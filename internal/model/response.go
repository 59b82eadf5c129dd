package model

// ErrorResponse is the standard envelope for error responses.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the structured error information returned by the API.
type ErrorDetail struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// MessageResponse is the envelope for mutations that return no resource,
// e.g. logout and deletes.
type MessageResponse struct {
	Message string `json:"message"`
}

// Identity is the authenticated-user payload returned by login and /auth/me.
type Identity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
}

// IdentityOf extracts the public identity of a user.
func IdentityOf(u *User) Identity {
	return Identity{ID: u.ID, Username: u.Username, IsAdmin: u.IsAdmin}
}
