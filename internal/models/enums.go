package models

// Role is the actor's role inside an organization. There is no hierarchy:
// each operation carries its own allow-list.
type Role string

const (
	RoleEngineer   Role = "ENGINEER"
	RolePM         Role = "PM"
	RoleSupervisor Role = "SUPERVISOR"
	RoleQC         Role = "QC"
	RoleAccountant Role = "ACCOUNTANT"
	RoleAdmin      Role = "ADMIN"
)

var AllRoles = []Role{RoleEngineer, RolePM, RoleSupervisor, RoleQC, RoleAccountant, RoleAdmin}

func (r Role) Valid() bool {
	switch r {
	case RoleEngineer, RolePM, RoleSupervisor, RoleQC, RoleAccountant, RoleAdmin:
		return true
	}
	return false
}

// In reports whether r is one of roles.
func (r Role) In(roles ...Role) bool {
	for _, allowed := range roles {
		if r == allowed {
			return true
		}
	}
	return false
}

// LogStatus is the daily-log workflow state.
type LogStatus string

const (
	LogStatusDraft     LogStatus = "DRAFT"
	LogStatusSubmitted LogStatus = "SUBMITTED"
	LogStatusApproved  LogStatus = "APPROVED"
	LogStatusDeclined  LogStatus = "DECLINED"
)

func (s LogStatus) Valid() bool {
	switch s {
	case LogStatusDraft, LogStatusSubmitted, LogStatusApproved, LogStatusDeclined:
		return true
	}
	return false
}

type ProjectStatus string

const (
	ProjectStatusPlanning   ProjectStatus = "planning"
	ProjectStatusInProgress ProjectStatus = "in_progress"
	ProjectStatusOnHold     ProjectStatus = "on_hold"
	ProjectStatusCompleted  ProjectStatus = "completed"
)

var AllProjectStatuses = []ProjectStatus{
	ProjectStatusPlanning, ProjectStatusInProgress, ProjectStatusOnHold, ProjectStatusCompleted,
}

type TaskStatus string

const (
	TaskStatusWaiting    TaskStatus = "waiting"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
)

type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
)

type TransactionType string

const (
	TransactionAdvance TransactionType = "ADVANCE"
	TransactionExpense TransactionType = "EXPENSE"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentPartial PaymentStatus = "PARTIAL"
	PaymentPaid    PaymentStatus = "PAID"
)

type MediaKind string

const (
	MediaImage    MediaKind = "image"
	MediaVideo    MediaKind = "video"
	MediaDocument MediaKind = "document"
)

func (k MediaKind) Valid() bool {
	switch k {
	case MediaImage, MediaVideo, MediaDocument:
		return true
	}
	return false
}
