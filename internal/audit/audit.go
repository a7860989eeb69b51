package audit

import (
	"context"

	"github.com/Ackberry/cinetune/pkg/log"
)

// Audit actions.
const (
	ActionRegister     = "user.register"
	ActionLogin        = "user.login"
	ActionLoginFailed  = "user.login_failed"
	ActionLogout       = "user.logout"
	ActionRefreshToken = "user.refresh_token"

	ActionUpdateProfile = "profile.update"

	ActionCreateDirect = "conversation.create_direct"
	ActionCreateGroup  = "conversation.create_group"
	ActionSendMessage  = "conversation.send_message"

	ActionSaveItem   = "library.save_item"
	ActionRemoveItem = "library.remove_item"
)

// Field constants for audit entries.
const (
	FieldAction   = "action"
	FieldTargetID = "target_id"
	FieldDetail   = "detail"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action string, userID string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Msg(msg)
}

// LogWithDetail emits an audit log with extra detail field.
func LogWithDetail(ctx context.Context, action string, userID string, detail string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Str(FieldDetail, detail).
		Msg(msg)
}
