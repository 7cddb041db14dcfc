package core

// CoreError is a failure surfaced to a client over its error channel. The
// status code decides the connection's fate at the transport: 401 drops the
// connection, everything else keeps it open.
type CoreError struct {
	StatusCode int
	Message    string
}

func (e *CoreError) Error() string {
	return e.Message
}

// Fatal reports whether the error must terminate the connection.
func (e *CoreError) Fatal() bool {
	return e.StatusCode == 401
}

// ErrUnauthorized is the uniform authorization failure. The message never
// distinguishes a missing header from a bad token or an unknown user.
func ErrUnauthorized() *CoreError {
	return &CoreError{StatusCode: 401, Message: "Authorization failed, please retry"}
}

// ErrRoomNotFound covers both an unknown endpoint and a room the caller is
// not a member of, so room existence never leaks to non-members.
func ErrRoomNotFound() *CoreError {
	return &CoreError{StatusCode: 404, Message: "Room does not exist"}
}

// ErrValidation reports a malformed event payload. The connection stays open.
func ErrValidation(msg string) *CoreError {
	return &CoreError{StatusCode: 422, Message: msg}
}

// ErrNoActiveRoom reports a send attempted before joining a room.
func ErrNoActiveRoom() *CoreError {
	return &CoreError{StatusCode: 400, Message: "You have not joined a room yet"}
}

// ErrInternal hides store and infrastructure failures behind a generic shape.
func ErrInternal() *CoreError {
	return &CoreError{StatusCode: 500, Message: "Something went wrong, please retry"}
}
