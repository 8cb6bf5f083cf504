package permissions

import api "github.com/OvyFlash/telegram-bot-api"

// IsAdmin is true for the chat creator and any administrator.
func IsAdmin(member *api.ChatMember) bool {
	if member == nil {
		return false
	}
	return member.IsCreator() || member.IsAdministrator()
}

// CanRestrict is true when the member may mute, kick and ban others.
func CanRestrict(member *api.ChatMember) bool {
	if member == nil {
		return false
	}
	if member.IsCreator() {
		return true
	}
	return member.IsAdministrator() && member.CanRestrictMembers
}
