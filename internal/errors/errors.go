// Package errors holds sentinel errors shared by the moderation layers.
package errors

import "errors"

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")

	// ErrNoPrivileges means the bot is not an admin with the rights an action needs.
	ErrNoPrivileges = errors.New("bot lacks required chat privileges")
	// ErrProtectedUser guards the owner, the bot itself and chat admins from actions.
	ErrProtectedUser = errors.New("target user is protected")
)
