package service

import "errors"

var (
	// ErrEmptyCredentials is returned when the username or password is blank.
	ErrEmptyCredentials = errors.New("username and password are required")
	// ErrInvalidCredentials is returned when no account matches. It does not
	// say which of the two fields was wrong.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrNotLoggedIn is returned when an action needs a session and none exists.
	ErrNotLoggedIn = errors.New("not logged in")
	// ErrForbidden is returned when the session's role may not perform an action.
	ErrForbidden = errors.New("permission denied")
	// ErrInvalidRole is returned when the session carries an unknown role.
	ErrInvalidRole = errors.New("invalid user role")
	// ErrInvalidExtension is returned when an imported file is not a .glb file.
	ErrInvalidExtension = errors.New("please select a .glb file")
	// ErrFileMissing is returned when a catalog row's file no longer exists.
	ErrFileMissing = errors.New("model file not found")
)
