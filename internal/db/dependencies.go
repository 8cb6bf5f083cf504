package db

import "context"

type (
	GroupStore interface {
		// UpsertGroup inserts a group with default settings or refreshes the
		// name of an existing one, leaving its settings untouched.
		UpsertGroup(ctx context.Context, id int64, name string, addedBy int64) (*Group, error)
		GetGroup(ctx context.Context, id int64) (*Group, error)
		ListGroups(ctx context.Context) ([]*Group, error)
		CountGroups(ctx context.Context) (int64, error)
		SetGroupToggle(ctx context.Context, id int64, toggle Toggle, value bool) error
		SetWelcomeMessage(ctx context.Context, id int64, text string) error
	}

	UserStore interface {
		UpsertUser(ctx context.Context, user *User) error
		GetUser(ctx context.Context, id int64) (*User, error)
		CountUsers(ctx context.Context) (int64, error)
		GetBioLinkException(ctx context.Context, userID int64) (bool, error)
		SetBioLinkException(ctx context.Context, userID int64, allowed bool) error
	}

	ViolationStore interface {
		AddViolation(ctx context.Context, v *Violation) error
		CountViolations(ctx context.Context) (int64, error)
		CountViolationsByKind(ctx context.Context) (map[ViolationKind]int64, error)
	}

	KeywordStore interface {
		GetKeywords(ctx context.Context, list string) ([]string, error)
		AddKeywords(ctx context.Context, list string, words []string) (int, error)
		RemoveKeywords(ctx context.Context, list string, words []string) (int, error)
	}

	WarnStore interface {
		IncrementWarn(ctx context.Context, groupID, userID int64) (int, error)
		GetWarns(ctx context.Context, groupID, userID int64) (int, error)
		ResetWarns(ctx context.Context, groupID, userID int64) error
	}

	LogStore interface {
		AddLogEntry(ctx context.Context, entry *LogEntry) error
	}

	Client interface {
		GroupStore
		UserStore
		ViolationStore
		KeywordStore
		WarnStore
		LogStore
		Ping(ctx context.Context) error
		Close() error
	}
)
