// Package models defines the core data structures for users, catalog models
// and the persisted login session.
package models

// Role is the access level of a user.
type Role string

const (
	// RoleAdmin may import and delete models.
	RoleAdmin Role = "Admin"
	// RoleUser may only browse and open models.
	RoleUser Role = "User"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// User represents an application account.
type User struct {
	// ID is the auto-assigned identifier of the user.
	ID int64 `json:"id" yaml:"id"`
	// Username is the login name. Uniqueness is not enforced by the store.
	Username string `json:"username" yaml:"username"`
	// Password is stored and compared as plain text.
	Password string `json:"-" yaml:"-"`
	// Role is either RoleAdmin or RoleUser.
	Role Role `json:"role" yaml:"role"`
}

// Model describes one imported .glb file in the catalog.
type Model struct {
	// ID is the auto-assigned identifier of the catalog row.
	ID int64 `json:"id" yaml:"id"`
	// Name is the display name: the original file name without the .glb suffix.
	Name string `json:"name" yaml:"name"`
	// FileName is the timestamp-prefixed name of the file on disk.
	FileName string `json:"fileName" yaml:"fileName"`
	// FilePath is the absolute path of the file in the private model directory.
	FilePath string `json:"filePath" yaml:"filePath"`
	// FileSize is the number of bytes copied at import time.
	FileSize int64 `json:"fileSize" yaml:"fileSize"`
	// AddedDate is the import time in milliseconds since the Unix epoch.
	AddedDate int64 `json:"addedDate" yaml:"addedDate"`
}

// Session is the persisted identity of the currently logged in user.
type Session struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	LoggedIn bool   `json:"is_logged_in"`
}
