// Package repository provides persistence implementations for users and the
// model catalog on top of database/sql.
package repository

import "errors"

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")
