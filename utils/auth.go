package utils

import "warden/model"

// contains checks if a slice of strings contains an element.
func contains(slice []string, item string) bool {
	for _, a := range slice {
		if a == item {
			return true
		}
	}
	return false
}

// IsModerator reports whether the member may run moderation commands:
// either a configured developer or a holder of an admin role.
func IsModerator(memberRoleIDs []string, userID string, serverCfg model.ServerConfig, developerUserIDs []string) bool {
	if contains(developerUserIDs, userID) {
		return true
	}
	for _, roleID := range memberRoleIDs {
		if contains(serverCfg.AdminRoleIDs, roleID) {
			return true
		}
	}
	return false
}

// IsWhitelisted reports whether the member is exempt from sentencing.
func IsWhitelisted(memberRoleIDs []string, serverCfg model.ServerConfig) bool {
	for _, roleID := range memberRoleIDs {
		if contains(serverCfg.WhitelistRoleIDs, roleID) {
			return true
		}
	}
	return false
}
