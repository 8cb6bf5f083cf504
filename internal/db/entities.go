package db

import (
	"time"
)

type (
	Group struct {
		ID                     int64     `db:"id" bson:"id"`
		Name                   string    `db:"name" bson:"name"`
		BotEnabled             bool      `db:"bot_enabled" bson:"bot_enabled"`
		FilterAbusive          bool      `db:"filter_abusive" bson:"filter_abusive"`
		FilterPornographicText bool      `db:"filter_pornographic_text" bson:"filter_pornographic_text"`
		FilterSpam             bool      `db:"filter_spam" bson:"filter_spam"`
		FilterLinks            bool      `db:"filter_links" bson:"filter_links"`
		FilterBioLinks         bool      `db:"filter_bio_links" bson:"filter_bio_links"`
		UsernameDelEnabled     bool      `db:"usernamedel_enabled" bson:"usernamedel_enabled"`
		WelcomeMessage         string    `db:"welcome_message" bson:"welcome_message"`
		AddedBy                int64     `db:"added_by" bson:"added_by"`
		CreatedAt              time.Time `db:"created_at" bson:"created_at"`
		UpdatedAt              time.Time `db:"updated_at" bson:"updated_at"`
	}

	User struct {
		ID        int64     `db:"id" bson:"id"`
		Username  string    `db:"username" bson:"username"`
		FirstName string    `db:"first_name" bson:"first_name"`
		LastName  string    `db:"last_name" bson:"last_name"`
		IsBot     bool      `db:"is_bot" bson:"is_bot"`
		LastSeen  time.Time `db:"last_seen" bson:"last_active"`
	}

	Violation struct {
		ID             int64         `db:"id" bson:"-"`
		CaseID         string        `db:"case_id" bson:"case_id"`
		UserID         int64         `db:"user_id" bson:"user_id"`
		Username       string        `db:"username" bson:"username"`
		GroupID        int64         `db:"group_id" bson:"group_id"`
		GroupName      string        `db:"group_name" bson:"group_name"`
		Kind           ViolationKind `db:"kind" bson:"violation_type"`
		Content        string        `db:"content" bson:"original_content"`
		CaseName       string        `db:"case_name" bson:"case_name"`
		MessageDeleted bool          `db:"message_deleted" bson:"message_deleted"`
		CreatedAt      time.Time     `db:"created_at" bson:"violation_time"`
	}

	LogEntry struct {
		ID              int64     `db:"id" bson:"-"`
		Type            LogType   `db:"type" bson:"type"`
		EntityID        int64     `db:"entity_id" bson:"id"`
		Name            string    `db:"name" bson:"name"`
		InviterID       int64     `db:"inviter_id" bson:"inviter_id"`
		InviterUsername string    `db:"inviter_username" bson:"inviter_username"`
		CreatedAt       time.Time `db:"created_at" bson:"timestamp"`
	}

	ViolationKind string
	LogType       string
)

const (
	ViolationAbusive      ViolationKind = "abusive"
	ViolationPornographic ViolationKind = "pornographic"
	ViolationSpam         ViolationKind = "spam"
	ViolationLink         ViolationKind = "link"
	ViolationBioLink      ViolationKind = "bio_link"
	ViolationUsername     ViolationKind = "username"
)

const (
	LogNewGroup  LogType = "new_group"
	LogNewUser   LogType = "new_user"
	LogLeftUser  LogType = "left_user"
	LogLeftGroup LogType = "left_group"
)

const (
	KeywordListAbusive      = "abusive_words"
	KeywordListPornographic = "pornographic_words"
)

// ViolationKinds lists kinds in detection priority order.
var ViolationKinds = []ViolationKind{
	ViolationAbusive,
	ViolationPornographic,
	ViolationSpam,
	ViolationLink,
	ViolationBioLink,
	ViolationUsername,
}

// CaseName is the human readable title of a violation kind.
func (k ViolationKind) CaseName() string {
	switch k {
	case ViolationAbusive:
		return "Use of abusive language"
	case ViolationPornographic:
		return "Pornographic content"
	case ViolationSpam:
		return "Spam message"
	case ViolationLink:
		return "Link posted"
	case ViolationBioLink:
		return "Link in profile bio"
	case ViolationUsername:
		return "Username promotion"
	}
	return string(k)
}
