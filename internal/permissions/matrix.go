package permissions

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
	RoleViewer Role = "viewer"
)

type Action string

const (
	ActionProjectCreate   Action = "project.create"
	ActionProjectDelete   Action = "project.delete"
	ActionAssetUpload     Action = "asset.upload"
	ActionAssetDelete     Action = "asset.delete"
	ActionVersionUpload   Action = "version.upload"
	ActionCommentCreate   Action = "comment.create"
	ActionCommentResolve  Action = "comment.resolve"
	ActionCommentArchive  Action = "comment.archive"
	ActionCommentDelete   Action = "comment.delete"
	ActionCommentReact    Action = "comment.react"
	ActionAnnotationWrite Action = "annotation.write"
	ActionApprovalCreate  Action = "approval.create"
	ActionApprovalManage  Action = "approval.manage"
	ActionApprovalDecide  Action = "approval.decide"
	ActionShareCreate     Action = "share.create"
	ActionTeamManage      Action = "team.manage"
	ActionWebhookManage   Action = "webhook.manage"
	ActionAnalyticsView   Action = "analytics.view"
	ActionPresenceJoin    Action = "presence.join"
)

// The matrix is an explicit table, not a role ranking: a viewer can comment
// and react but not touch assets, a member gets the full review surface but
// none of the team/webhook administration.
var matrix = map[Role]map[Action]bool{
	RoleOwner: {
		ActionProjectCreate: true, ActionProjectDelete: true,
		ActionAssetUpload: true, ActionAssetDelete: true, ActionVersionUpload: true,
		ActionCommentCreate: true, ActionCommentResolve: true, ActionCommentArchive: true,
		ActionCommentDelete: true, ActionCommentReact: true,
		ActionAnnotationWrite: true,
		ActionApprovalCreate:  true, ActionApprovalManage: true, ActionApprovalDecide: true,
		ActionShareCreate: true, ActionTeamManage: true, ActionWebhookManage: true,
		ActionAnalyticsView: true, ActionPresenceJoin: true,
	},
	RoleAdmin: {
		ActionProjectCreate: true,
		ActionAssetUpload:   true, ActionAssetDelete: true, ActionVersionUpload: true,
		ActionCommentCreate: true, ActionCommentResolve: true, ActionCommentArchive: true,
		ActionCommentDelete: true, ActionCommentReact: true,
		ActionAnnotationWrite: true,
		ActionApprovalCreate:  true, ActionApprovalManage: true, ActionApprovalDecide: true,
		ActionShareCreate: true, ActionTeamManage: true, ActionWebhookManage: true,
		ActionAnalyticsView: true, ActionPresenceJoin: true,
	},
	RoleMember: {
		ActionAssetUpload: true, ActionVersionUpload: true,
		ActionCommentCreate: true, ActionCommentResolve: true, ActionCommentReact: true,
		ActionAnnotationWrite: true,
		ActionApprovalDecide:  true,
		ActionShareCreate:     true,
		ActionAnalyticsView:   true, ActionPresenceJoin: true,
	},
	RoleViewer: {
		ActionCommentCreate: true, ActionCommentReact: true,
		ActionPresenceJoin: true,
	},
}

// CanPerform evaluates table membership directly. Unknown roles and unknown
// actions are denied.
func CanPerform(role Role, action Action) bool {
	grants, ok := matrix[role]
	if !ok {
		return false
	}
	return grants[action]
}

func ParseRole(raw string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleOwner:
		return RoleOwner, nil
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleMember:
		return RoleMember, nil
	case RoleViewer:
		return RoleViewer, nil
	default:
		return "", fmt.Errorf("unknown role %q", raw)
	}
}

type overrideFile struct {
	Grants  map[string][]string `yaml:"grants"`
	Revokes map[string][]string `yaml:"revokes"`
}

// LoadOverrides merges deployment-specific grants/revocations from a YAML
// file into the static table. Unknown roles in the file are an error; the
// built-in table is never loosened implicitly.
func LoadOverrides(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read permissions file: %w", err)
	}
	var file overrideFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse permissions file: %w", err)
	}
	for roleRaw, actions := range file.Grants {
		role, err := ParseRole(roleRaw)
		if err != nil {
			return err
		}
		for _, a := range actions {
			matrix[role][Action(strings.TrimSpace(a))] = true
		}
	}
	for roleRaw, actions := range file.Revokes {
		role, err := ParseRole(roleRaw)
		if err != nil {
			return err
		}
		for _, a := range actions {
			delete(matrix[role], Action(strings.TrimSpace(a)))
		}
	}
	return nil
}
