package orgs

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/platinummonkey/cove/pkg/apperr"
	"github.com/platinummonkey/cove/pkg/authz"
	"github.com/platinummonkey/cove/pkg/catalog"
)

const (
	maxInternalLinkLength      = 255
	maxRecommendedRepositories = 3
	maxInactivityTimeout       = 24 * time.Hour
)

// workspaceImageRef accepts registry/repository:tag style references with an
// optional digest.
var workspaceImageRef = regexp.MustCompile(`^[a-z0-9]+(?:[._\-/:][a-zA-Z0-9._\-]+)*(?:@sha256:[a-f0-9]{64})?$`)

// GetSettings returns the organization's settings record
func (s *Service) GetSettings(ctx context.Context, actorID, orgID string) (settings *OrganizationSettings, err error) {
	start := time.Now()
	defer func() { s.observe("get_settings", start, err) }()

	if err = s.checkOrgPermission(ctx, actorID, authz.ActionReadSettings, orgID); err != nil {
		return nil, err
	}
	return s.store.FindOrgSettings(ctx, orgID)
}

// UpdateSettings validates the partial update, merges it onto the stored
// settings, and persists the result. Validation failures apply nothing.
func (s *Service) UpdateSettings(ctx context.Context, actorID, orgID string, partial *OrganizationSettings) (settings *OrganizationSettings, err error) {
	start := time.Now()
	defer func() { s.observe("update_settings", start, err) }()

	if err = s.checkOrgPermission(ctx, actorID, authz.ActionWriteSettings, orgID); err != nil {
		return nil, err
	}
	if err = s.validateSettings(ctx, actorID, orgID, partial); err != nil {
		return nil, err
	}
	if err = s.resolveFeaturedMember(ctx, orgID, partial); err != nil {
		return nil, err
	}
	return s.store.SetOrgSettings(ctx, orgID, partial, mergeSettings)
}

func (s *Service) validateSettings(ctx context.Context, actorID, orgID string, partial *OrganizationSettings) error {
	if partial.DefaultWorkspaceImage != nil {
		image := strings.TrimSpace(*partial.DefaultWorkspaceImage)
		if image != "" && !workspaceImageRef.MatchString(image) {
			return apperr.BadRequest("invalid workspace image %q", image)
		}
	}

	if len(partial.AllowedWorkspaceClasses) > 0 {
		available, err := s.classes.ListWorkspaceClasses(ctx, actorID)
		if err != nil {
			return fmt.Errorf("failed to list workspace classes: %w", err)
		}
		known := map[string]bool{}
		for _, class := range available {
			known[class.ID] = true
		}
		remaining := 0
		for _, id := range partial.AllowedWorkspaceClasses {
			if !known[id] {
				return apperr.BadRequest("unknown workspace class %q", id)
			}
			remaining++
		}
		if remaining == 0 {
			return apperr.BadRequest("allowed workspace classes cannot be empty")
		}
	}

	for editor, version := range partial.PinnedEditorVersions {
		versions, ok, err := s.editors.ResolveVersions(ctx, editor)
		if err != nil {
			return fmt.Errorf("failed to resolve editor versions: %w", err)
		}
		if !ok {
			return apperr.BadRequest("unknown editor %q", editor)
		}
		found := false
		for _, v := range versions {
			if v == version {
				found = true
				break
			}
		}
		if !found {
			return apperr.BadRequest("unknown version %q for editor %q", version, editor)
		}
	}

	if len(partial.RestrictedEditorNames) > 0 {
		if err := s.editors.CheckEditorsAllowed(ctx, actorID, partial.RestrictedEditorNames); err != nil {
			return err
		}
	}

	if partial.DefaultRole != nil && !partial.DefaultRole.Valid() {
		return apperr.BadRequest("invalid default role %q", *partial.DefaultRole)
	}

	if partial.TimeoutSettings != nil && partial.TimeoutSettings.Inactivity != nil {
		if err := validateInactivityTimeout(*partial.TimeoutSettings.Inactivity); err != nil {
			return err
		}
	}

	if partial.MaxParallelRunningWorkspaces != nil {
		max := *partial.MaxParallelRunningWorkspaces
		if max < 0 {
			return apperr.BadRequest("max parallel running workspaces cannot be negative")
		}
		ceiling, err := s.entitlements.MaxParallelWorkspaces(ctx, actorID, orgID)
		if err != nil {
			return fmt.Errorf("failed to look up entitlement: %w", err)
		}
		if ceiling > 0 && max > ceiling {
			return apperr.BadRequest("max parallel running workspaces exceeds the plan limit of %d", ceiling)
		}
	}

	if partial.OnboardingSettings != nil {
		if err := s.validateOnboardingSettings(ctx, orgID, partial.OnboardingSettings); err != nil {
			return err
		}
	}

	return nil
}

func validateInactivityTimeout(value string) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return apperr.BadRequest("invalid inactivity timeout %q", value)
	}
	if d < 0 {
		return apperr.BadRequest("inactivity timeout cannot be negative")
	}
	if d > maxInactivityTimeout {
		return apperr.BadRequest("inactivity timeout cannot exceed 24h")
	}
	return nil
}

func (s *Service) validateOnboardingSettings(ctx context.Context, orgID string, onboarding *OnboardingSettings) error {
	if onboarding.InternalLink != nil && *onboarding.InternalLink != "" {
		if err := validateInternalLink(*onboarding.InternalLink); err != nil {
			return err
		}
	}

	if len(onboarding.RecommendedRepositories) > maxRecommendedRepositories {
		return apperr.BadRequest("at most %d recommended repositories are allowed", maxRecommendedRepositories)
	}
	for _, projectID := range onboarding.RecommendedRepositories {
		if _, err := s.projects.FindProjectByID(ctx, projectID); err != nil {
			if apperr.HasCode(err, apperr.CodeNotFound) {
				return apperr.BadRequest("recommended repository %s does not reference an existing project", projectID)
			}
			return err
		}
	}

	if onboarding.WelcomeMessage != nil &&
		onboarding.WelcomeMessage.FeaturedMemberResolvedAvatarURL != nil &&
		*onboarding.WelcomeMessage.FeaturedMemberResolvedAvatarURL != "" {
		return apperr.BadRequest("featured member avatar URL is computed by the server and cannot be set")
	}

	return nil
}

func validateInternalLink(link string) error {
	if len(link) > maxInternalLinkLength {
		return apperr.BadRequest("internal link cannot exceed %d characters", maxInternalLinkLength)
	}
	u, err := url.Parse(link)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return apperr.BadRequest("internal link must be an absolute URL")
	}
	host := u.Hostname()
	if strings.EqualFold(host, "localhost") || strings.HasSuffix(strings.ToLower(host), ".localhost") {
		return apperr.BadRequest("internal link cannot target localhost")
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return apperr.BadRequest("internal link cannot target a loopback address")
	}
	return nil
}

// resolveFeaturedMember computes the avatar URL for the featured member of
// the welcome message. The empty-string sentinel clears the resolved avatar.
func (s *Service) resolveFeaturedMember(ctx context.Context, orgID string, partial *OrganizationSettings) error {
	if partial.OnboardingSettings == nil || partial.OnboardingSettings.WelcomeMessage == nil {
		return nil
	}
	welcome := partial.OnboardingSettings.WelcomeMessage
	if welcome.FeaturedMemberID == nil {
		return nil
	}

	if *welcome.FeaturedMemberID == "" {
		welcome.FeaturedMemberResolvedAvatarURL = strPtr("")
		return nil
	}

	if _, err := s.store.FindTeamMembership(ctx, *welcome.FeaturedMemberID, orgID); err != nil {
		if apperr.HasCode(err, apperr.CodeNotFound) {
			return apperr.BadRequest("featured member %s is not a member of organization %s", *welcome.FeaturedMemberID, orgID)
		}
		return err
	}
	user, err := s.users.FindUserByID(ctx, *welcome.FeaturedMemberID)
	if err != nil {
		if apperr.HasCode(err, apperr.CodeNotFound) {
			return apperr.BadRequest("featured member %s does not exist", *welcome.FeaturedMemberID)
		}
		return err
	}
	welcome.FeaturedMemberResolvedAvatarURL = strPtr(user.AvatarURL)
	return nil
}

// ListWorkspaceClasses returns the installation's workspace classes filtered
// by the organization's allow-list. When the installation default is
// filtered out, the first remaining class is marked as the default.
func (s *Service) ListWorkspaceClasses(ctx context.Context, actorID, orgID string) (classes []catalog.WorkspaceClass, err error) {
	start := time.Now()
	defer func() { s.observe("list_workspace_classes", start, err) }()

	if err = s.checkOrgPermission(ctx, actorID, authz.ActionReadSettings, orgID); err != nil {
		return nil, err
	}

	available, err := s.classes.ListWorkspaceClasses(ctx, actorID)
	if err != nil {
		return nil, err
	}
	settings, err := s.store.FindOrgSettings(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if len(settings.AllowedWorkspaceClasses) == 0 {
		return available, nil
	}

	allowed := map[string]bool{}
	for _, id := range settings.AllowedWorkspaceClasses {
		allowed[id] = true
	}
	filtered := make([]catalog.WorkspaceClass, 0, len(available))
	defaultSurvived := false
	for _, class := range available {
		if !allowed[class.ID] {
			continue
		}
		if class.IsDefault {
			defaultSurvived = true
		}
		filtered = append(filtered, class)
	}
	if !defaultSurvived && len(filtered) > 0 {
		filtered[0].IsDefault = true
	}
	return filtered, nil
}

// OnProjectDeletion drops a deleted project from every place settings
// reference it.
func (s *Service) OnProjectDeletion(ctx context.Context, orgID, projectID string) error {
	settings, err := s.store.FindOrgSettings(ctx, orgID)
	if err != nil {
		return err
	}
	if settings.OnboardingSettings == nil {
		return nil
	}

	recommended := settings.OnboardingSettings.RecommendedRepositories
	remaining := make([]string, 0, len(recommended))
	for _, id := range recommended {
		if id != projectID {
			remaining = append(remaining, id)
		}
	}
	if len(remaining) == len(recommended) {
		return nil
	}

	partial := &OrganizationSettings{
		OnboardingSettings: &OnboardingSettings{RecommendedRepositories: remaining},
	}
	_, err = s.store.SetOrgSettings(ctx, orgID, partial, mergeSettings)
	return err
}
