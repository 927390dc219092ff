package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/siteflow/siteflow/internal/models"
	"github.com/siteflow/siteflow/pkg/response"
)

// LogAction is a daily-log workflow command.
type LogAction string

const (
	ActionSubmit  LogAction = "submit"
	ActionApprove LogAction = "approve"
	ActionDecline LogAction = "decline"
	ActionQC      LogAction = "qc"
)

type transitionRule struct {
	from         models.LogStatus
	to           models.LogStatus
	roles        []models.Role
	needsComment bool
	needsRating  bool
}

// The whole workflow. DECLINED and a QC-rated APPROVED log have no outgoing status change.
var transitionTable = map[LogAction]transitionRule{
	ActionSubmit: {
		from:  models.LogStatusDraft,
		to:    models.LogStatusSubmitted,
		roles: []models.Role{models.RoleEngineer, models.RoleAdmin},
	},
	ActionApprove: {
		from:         models.LogStatusSubmitted,
		to:           models.LogStatusApproved,
		roles:        []models.Role{models.RolePM, models.RoleSupervisor, models.RoleAdmin},
		needsComment: true,
	},
	ActionDecline: {
		from:         models.LogStatusSubmitted,
		to:           models.LogStatusDeclined,
		roles:        []models.Role{models.RolePM, models.RoleSupervisor, models.RoleAdmin},
		needsComment: true,
	},
	ActionQC: {
		from:        models.LogStatusApproved,
		to:          models.LogStatusApproved,
		roles:       []models.Role{models.RoleQC, models.RoleAdmin},
		needsRating: true,
	},
}

// ParseLogAction validates a raw action name.
func ParseLogAction(raw string) (LogAction, error) {
	action := LogAction(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := transitionTable[action]; !ok {
		return "", response.NewValidation(fmt.Sprintf("Unknown action %q", raw)).
			WithField("action", "must be one of: submit approve decline qc")
	}
	return action, nil
}

// TransitionRequest is the PATCH /daily-logs/:id body.
type TransitionRequest struct {
	Action   string `json:"action" binding:"required"`
	Comment  string `json:"comment"`
	QCRating *int   `json:"qc_rating"`
}

// TransitionPlan is a validated transition ready to be applied with a guarded update.
type TransitionPlan struct {
	Action  LogAction
	From    models.LogStatus
	To      models.LogStatus
	Updates map[string]interface{}
}

// PlanTransition checks role, current status and payload in that order and returns
// the column updates to apply. It never touches the store.
func PlanTransition(p Principal, current models.LogStatus, action LogAction, req *TransitionRequest, now time.Time) (*TransitionPlan, error) {
	rule, ok := transitionTable[action]
	if !ok {
		return nil, response.NewValidation(fmt.Sprintf("Unknown action %q", action))
	}

	if !p.Allowed(rule.roles...) {
		return nil, response.NewForbidden(fmt.Sprintf("Role %s cannot %s daily logs", p.Role, action))
	}

	if current != rule.from {
		return nil, response.NewValidation(fmt.Sprintf("Can only %s logs in %s status", action, rule.from))
	}

	updates := map[string]interface{}{
		"updated_at": now,
	}

	if rule.needsComment {
		comment := strings.TrimSpace(req.Comment)
		if comment == "" {
			return nil, response.NewValidation(fmt.Sprintf("A comment is required to %s a log", action)).
				WithField("comment", "is required")
		}
		updates["review_comment"] = comment
		updates["reviewed_by"] = p.UserID
		updates["reviewed_at"] = now
	}

	if rule.needsRating {
		if req.QCRating == nil || *req.QCRating < 1 || *req.QCRating > 5 {
			return nil, response.NewValidation("qc_rating must be between 1 and 5").
				WithField("qc_rating", "must be an integer between 1 and 5")
		}
		updates["qc_rating"] = *req.QCRating
	}

	if rule.to != rule.from {
		updates["status"] = rule.to
	}

	return &TransitionPlan{
		Action:  action,
		From:    rule.from,
		To:      rule.to,
		Updates: updates,
	}, nil
}
