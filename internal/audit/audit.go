package audit

import (
	"context"

	"github.com/Zaroscript/polaris-travel-blog-sub000/pkg/log"
)

// Audit actions for the messaging surface.
const (
	ActionSendMessage = "message.send"
	ActionMarkRead    = "notification.mark_read"
	ActionMarkAllRead = "notification.mark_all_read"
	ActionNotify      = "notification.create"
)

// Field constants for audit entries.
const (
	FieldAction = "action"
	FieldTarget = "target"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action, userID, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Msg(msg)
}

// LogWithTarget emits an audit log naming the acted-on record.
func LogWithTarget(ctx context.Context, action, userID, target, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Str(FieldTarget, target).
		Msg(msg)
}
