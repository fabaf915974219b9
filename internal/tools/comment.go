package tools

import (
	"context"
	"fmt"

	"github.com/codefionn/autoresolve/internal/consts"
	"github.com/codefionn/autoresolve/internal/logger"
	"github.com/codefionn/autoresolve/internal/progress"
)

// UpdateProgressCommentTool lets the model post a status note to the
// progress comment of the current request.
type UpdateProgressCommentTool struct{}

func NewUpdateProgressCommentTool() *UpdateProgressCommentTool {
	return &UpdateProgressCommentTool{}
}

func (t *UpdateProgressCommentTool) Kind() Kind   { return KindUpdateProgressComment }
func (t *UpdateProgressCommentTool) Name() string { return ToolNameUpdateProgressComment }

func (t *UpdateProgressCommentTool) Description() string {
	return "Updates the progress comment on the issue or pull request with a short status message for the requester."
}

func (t *UpdateProgressCommentTool) Parameters() map[string]interface{} {
	return objectSchema([]string{"body"}, map[string]interface{}{
		"body": stringProp("The status message to show."),
		"percent": map[string]interface{}{
			"type":        "integer",
			"description": "Optional completion estimate between 0 and 95.",
		},
	})
}

// Execute never moves progress backwards and never reports completion; the
// loop owns the final report.
func (t *UpdateProgressCommentTool) Execute(ctx context.Context, env Env, params map[string]interface{}) (string, error) {
	percent := GetIntParam(params, "percent", env.Progress)
	if percent < env.Progress {
		percent = env.Progress
	}
	if percent > consts.ProgressCeiling {
		percent = consts.ProgressCeiling
	}

	body := GetStringParam(params, "body", "")
	if err := progress.Dispatch(ctx, env.Reporter, progress.Update{Message: body, Percent: percent}); err != nil {
		return "", err
	}
	return fmt.Sprintf("Progress comment updated at %d%%.", percent), nil
}

// ExplainDiffModificationTool records why the model is about to change a diff.
type ExplainDiffModificationTool struct {
	log *logger.Logger
}

func NewExplainDiffModificationTool(log *logger.Logger) *ExplainDiffModificationTool {
	if log == nil {
		log = logger.Nop()
	}
	return &ExplainDiffModificationTool{log: log}
}

func (t *ExplainDiffModificationTool) Kind() Kind   { return KindExplainDiffModification }
func (t *ExplainDiffModificationTool) Name() string { return ToolNameReasonForModifyingDiff }

func (t *ExplainDiffModificationTool) Description() string {
	return "When you review a diff you created and need to change it, first explain with this function why and what you are going to modify, then commit the corrected diff."
}

func (t *ExplainDiffModificationTool) Parameters() map[string]interface{} {
	return objectSchema([]string{"why"}, map[string]interface{}{
		"why": stringProp("Reason for modifying the diff you are currently reviewing."),
	})
}

func (t *ExplainDiffModificationTool) Execute(_ context.Context, env Env, params map[string]interface{}) (string, error) {
	why := GetStringParam(params, "why", "")
	t.log.Info("reason for modifying diff on %s: %s", env.Base.String(), why)
	return "Noted. Now commit the corrected diff.", nil
}
