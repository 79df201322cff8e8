package orgs

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/platinummonkey/cove/pkg/authz"
)

const maxNotificationLength = 255

// GetMaintenanceMode reports whether the organization is in maintenance mode
func (s *Service) GetMaintenanceMode(ctx context.Context, actorID, orgID string) (enabled bool, err error) {
	start := time.Now()
	defer func() { s.observe("get_maintenance_mode", start, err) }()

	if err = s.checkOrgPermission(ctx, actorID, authz.ActionReadInfo, orgID); err != nil {
		return false, err
	}
	org, err := s.store.FindTeamByID(ctx, orgID)
	if err != nil {
		return false, err
	}
	return org.MaintenanceMode, nil
}

// SetMaintenanceMode toggles maintenance mode and returns the new state
func (s *Service) SetMaintenanceMode(ctx context.Context, actorID, orgID string, enabled bool) (result bool, err error) {
	start := time.Now()
	defer func() { s.observe("set_maintenance_mode", start, err) }()

	if err = s.checkOrgPermission(ctx, actorID, authz.ActionMaintenance, orgID); err != nil {
		return false, err
	}
	org, err := s.store.UpdateTeam(ctx, orgID, TeamUpdate{MaintenanceMode: &enabled})
	if err != nil {
		return false, err
	}

	event := "maintenance_mode_disabled"
	if org.MaintenanceMode {
		event = "maintenance_mode_enabled"
	}
	s.track(ctx, actorID, event, map[string]interface{}{"team_id": orgID})

	return org.MaintenanceMode, nil
}

// GetMaintenanceNotification returns the scheduled-maintenance banner,
// defaulting to disabled when none was ever set.
func (s *Service) GetMaintenanceNotification(ctx context.Context, actorID, orgID string) (notification *MaintenanceNotification, err error) {
	start := time.Now()
	defer func() { s.observe("get_maintenance_notification", start, err) }()

	if err = s.checkOrgPermission(ctx, actorID, authz.ActionReadInfo, orgID); err != nil {
		return nil, err
	}
	org, err := s.store.FindTeamByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if org.MaintenanceNotification == nil {
		return &MaintenanceNotification{Enabled: false}, nil
	}
	return org.MaintenanceNotification, nil
}

// SetMaintenanceNotification updates the banner. The message is trimmed and
// capped at 255 characters; an empty message after trimming is stored absent.
func (s *Service) SetMaintenanceNotification(ctx context.Context, actorID, orgID string, enabled bool, message string) (notification *MaintenanceNotification, err error) {
	start := time.Now()
	defer func() { s.observe("set_maintenance_notification", start, err) }()

	if err = s.checkOrgPermission(ctx, actorID, authz.ActionMaintenance, orgID); err != nil {
		return nil, err
	}

	message = strings.TrimSpace(message)
	if utf8.RuneCountInString(message) > maxNotificationLength {
		runes := []rune(message)
		message = string(runes[:maxNotificationLength])
	}

	update := TeamUpdate{MaintenanceNotification: &MaintenanceNotification{
		Enabled: enabled,
		Message: message,
	}}
	org, err := s.store.UpdateTeam(ctx, orgID, update)
	if err != nil {
		return nil, err
	}
	return org.MaintenanceNotification, nil
}
