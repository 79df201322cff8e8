package orgs

// mergeSettings deep-merges partial onto current and returns the result.
// Only fields present in partial are applied; nil means "not sent" and never
// clears a stored value. Array-valued fields are replaced wholesale, never
// concatenated. Role restrictions and pinned editor versions are
// replace-if-present as full maps.
func mergeSettings(current, partial *OrganizationSettings) *OrganizationSettings {
	merged := *current

	if partial.WorkspaceSharingDisabled != nil {
		merged.WorkspaceSharingDisabled = partial.WorkspaceSharingDisabled
	}
	if partial.DefaultWorkspaceImage != nil {
		merged.DefaultWorkspaceImage = partial.DefaultWorkspaceImage
	}
	if partial.AllowedWorkspaceClasses != nil {
		merged.AllowedWorkspaceClasses = partial.AllowedWorkspaceClasses
	}
	if partial.PinnedEditorVersions != nil {
		merged.PinnedEditorVersions = partial.PinnedEditorVersions
	}
	if partial.RestrictedEditorNames != nil {
		merged.RestrictedEditorNames = partial.RestrictedEditorNames
	}
	if partial.DefaultRole != nil {
		merged.DefaultRole = partial.DefaultRole
	}
	if partial.TimeoutSettings != nil {
		merged.TimeoutSettings = mergeTimeoutSettings(current.TimeoutSettings, partial.TimeoutSettings)
	}
	if partial.RoleRestrictions != nil {
		merged.RoleRestrictions = partial.RoleRestrictions
	}
	if partial.MaxParallelRunningWorkspaces != nil {
		merged.MaxParallelRunningWorkspaces = partial.MaxParallelRunningWorkspaces
	}
	if partial.OnboardingSettings != nil {
		merged.OnboardingSettings = mergeOnboardingSettings(current.OnboardingSettings, partial.OnboardingSettings)
	}
	if partial.AnnotateGitCommits != nil {
		merged.AnnotateGitCommits = partial.AnnotateGitCommits
	}

	return &merged
}

func mergeTimeoutSettings(current, partial *TimeoutSettings) *TimeoutSettings {
	merged := TimeoutSettings{}
	if current != nil {
		merged = *current
	}
	if partial.Inactivity != nil {
		merged.Inactivity = partial.Inactivity
	}
	if partial.DenyUserTimeouts != nil {
		merged.DenyUserTimeouts = partial.DenyUserTimeouts
	}
	return &merged
}

func mergeOnboardingSettings(current, partial *OnboardingSettings) *OnboardingSettings {
	merged := OnboardingSettings{}
	if current != nil {
		merged = *current
	}
	if partial.InternalLink != nil {
		merged.InternalLink = partial.InternalLink
	}
	if partial.RecommendedRepositories != nil {
		merged.RecommendedRepositories = partial.RecommendedRepositories
	}
	if partial.WelcomeMessage != nil {
		merged.WelcomeMessage = mergeWelcomeMessage(merged.WelcomeMessage, partial.WelcomeMessage)
	}
	return &merged
}

func mergeWelcomeMessage(current, partial *WelcomeMessage) *WelcomeMessage {
	merged := WelcomeMessage{}
	if current != nil {
		merged = *current
	}
	if partial.Enabled != nil {
		merged.Enabled = partial.Enabled
	}
	if partial.Message != nil {
		merged.Message = partial.Message
	}
	if partial.FeaturedMemberID != nil {
		merged.FeaturedMemberID = partial.FeaturedMemberID
	}
	if partial.FeaturedMemberResolvedAvatarURL != nil {
		merged.FeaturedMemberResolvedAvatarURL = partial.FeaturedMemberResolvedAvatarURL
	}
	return &merged
}
