package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/siteflow/siteflow/internal/models"
	"github.com/siteflow/siteflow/pkg/response"
	"gorm.io/gorm"
)

type TaskService struct {
	db *gorm.DB
}

func NewTaskService(db *gorm.DB) *TaskService {
	return &TaskService{db: db}
}

type TaskListRequest struct {
	Page       int    `form:"page" binding:"omitempty,min=1"`
	Limit      int    `form:"limit" binding:"omitempty,min=1,max=100"`
	ProjectID  string `form:"project_id"`
	CategoryID string `form:"category_id"`
	Status     string `form:"status" binding:"omitempty,oneof=waiting in_progress done"`
	AssigneeID string `form:"assignee_id"`
}

type CreateTaskRequest struct {
	ProjectID      string              `json:"project_id" binding:"required"`
	CategoryID     string              `json:"category_id" binding:"required"`
	Name           string              `json:"name" binding:"required,max=300"`
	Status         models.TaskStatus   `json:"status" binding:"omitempty,oneof=waiting in_progress done"`
	Priority       models.TaskPriority `json:"priority" binding:"omitempty,oneof=low medium high"`
	EstimatedHours float64             `json:"estimated_hours" binding:"gte=0"`
	DueDate        *string             `json:"due_date" binding:"omitempty,datetime=2006-01-02"`
	AssigneeID     *string             `json:"assignee_id"`
}

type UpdateTaskRequest struct {
	Name           *string              `json:"name" binding:"omitempty,min=1,max=300"`
	CategoryID     *string              `json:"category_id"`
	Status         *models.TaskStatus   `json:"status" binding:"omitempty,oneof=waiting in_progress done"`
	Priority       *models.TaskPriority `json:"priority" binding:"omitempty,oneof=low medium high"`
	EstimatedHours *float64             `json:"estimated_hours" binding:"omitempty,gte=0"`
	ActualHours    *float64             `json:"actual_hours" binding:"omitempty,gte=0"`
	DueDate        *string              `json:"due_date" binding:"omitempty,datetime=2006-01-02"`
	AssigneeID     *string              `json:"assignee_id"`
}

func findTask(db *gorm.DB, orgID, id string) (*models.Task, error) {
	var task models.Task
	err := db.Scopes(models.TenantScope(orgID)).First(&task, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, response.NewNotFound("Task not found")
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func checkAssignee(db *gorm.DB, orgID string, assigneeID *string) error {
	if assigneeID == nil || *assigneeID == "" {
		return nil
	}
	var count int64
	if err := db.Model(&models.User{}).Scopes(models.TenantScope(orgID)).
		Where("id = ?", *assigneeID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return response.NewValidation("Assignee is not a member of the organization").
			WithField("assignee_id", "must be a user of the organization")
	}
	return nil
}

func (s *TaskService) List(ctx context.Context, p Principal, req *TaskListRequest) ([]models.Task, int64, error) {
	normalizePage(&req.Page, &req.Limit)

	query := s.db.WithContext(ctx).Model(&models.Task{}).Scopes(models.TenantScope(p.OrgID))
	if req.ProjectID != "" {
		query = query.Where("project_id = ?", req.ProjectID)
	}
	if req.CategoryID != "" {
		query = query.Where("category_id = ?", req.CategoryID)
	}
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.AssigneeID != "" {
		query = query.Where("assignee_id = ?", req.AssigneeID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var tasks []models.Task
	err := query.Scopes(models.Paginate(req.Page, req.Limit)).Order("created_at DESC").Find(&tasks).Error
	return tasks, total, err
}

func (s *TaskService) Create(ctx context.Context, p Principal, req *CreateTaskRequest) (*models.Task, error) {
	if !p.Allowed(ProjectWriters...) {
		return nil, response.NewForbidden("Only project managers can create tasks")
	}

	db := s.db.WithContext(ctx)
	if _, err := findProject(db, p.OrgID, req.ProjectID); err != nil {
		return nil, err
	}
	if _, err := findCategoryInProject(db, p.OrgID, req.ProjectID, req.CategoryID); err != nil {
		return nil, err
	}
	if err := checkAssignee(db, p.OrgID, req.AssigneeID); err != nil {
		return nil, err
	}

	task := models.Task{
		OrgID:          p.OrgID,
		ProjectID:      req.ProjectID,
		CategoryID:     req.CategoryID,
		Name:           strings.TrimSpace(req.Name),
		Status:         req.Status,
		Priority:       req.Priority,
		EstimatedHours: req.EstimatedHours,
		AssigneeID:     req.AssigneeID,
	}
	if task.Status == "" {
		task.Status = models.TaskStatusWaiting
	}
	if task.Priority == "" {
		task.Priority = models.TaskPriorityMedium
	}
	if task.AssigneeID != nil && *task.AssigneeID == "" {
		task.AssigneeID = nil
	}
	if req.DueDate != nil {
		due, err := ParseDate(*req.DueDate)
		if err != nil {
			return nil, response.NewValidation("Invalid due_date").WithField("due_date", "must be a date in format 2006-01-02")
		}
		task.DueDate = &due
	}

	if err := db.Create(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *TaskService) Update(ctx context.Context, p Principal, id string, req *UpdateTaskRequest) (*models.Task, error) {
	if !p.Allowed(TaskEditors...) {
		return nil, response.NewForbidden("Role cannot edit tasks")
	}

	db := s.db.WithContext(ctx)
	task, err := findTask(db, p.OrgID, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"updated_at": time.Now().UTC(),
	}
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.CategoryID != nil {
		if _, err := findCategoryInProject(db, p.OrgID, task.ProjectID, *req.CategoryID); err != nil {
			return nil, err
		}
		updates["category_id"] = *req.CategoryID
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if req.Priority != nil {
		updates["priority"] = *req.Priority
	}
	if req.EstimatedHours != nil {
		updates["estimated_hours"] = *req.EstimatedHours
	}
	if req.ActualHours != nil {
		updates["actual_hours"] = *req.ActualHours
	}
	if req.DueDate != nil {
		due, err := ParseDate(*req.DueDate)
		if err != nil {
			return nil, response.NewValidation("Invalid due_date").WithField("due_date", "must be a date in format 2006-01-02")
		}
		updates["due_date"] = due
	}
	if req.AssigneeID != nil {
		if err := checkAssignee(db, p.OrgID, req.AssigneeID); err != nil {
			return nil, err
		}
		if *req.AssigneeID == "" {
			updates["assignee_id"] = nil
		} else {
			updates["assignee_id"] = *req.AssigneeID
		}
	}

	if err := db.Model(task).Updates(updates).Error; err != nil {
		return nil, err
	}
	return findTask(db, p.OrgID, id)
}
