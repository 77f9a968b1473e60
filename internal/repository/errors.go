// Package repository implements the persistence layer on MySQL.  Each
// repository wraps *sql.DB and keeps every mutation inside a single
// short statement or transaction; nothing here holds a transaction open
// while waiting on an external collaborator.
//
// The sentinel errors below let higher layers distinguish "not found"
// from genuine storage failures without inspecting driver errors.
package repository

import "errors"

// ErrNotFound is returned when a lookup matches no live row.  For
// owner-scoped lookups (chats, messages) it also covers ownership
// mismatches, so callers cannot tell a foreign resource from a missing
// one.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when an insert would violate the unique
// email constraint on users.
var ErrEmailExists = errors.New("email already exists")
