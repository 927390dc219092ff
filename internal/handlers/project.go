package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/siteflow/siteflow/internal/middleware"
	"github.com/siteflow/siteflow/internal/services"
	"github.com/siteflow/siteflow/pkg/response"
)

type ProjectHandler struct {
	projectService  *services.ProjectService
	categoryService *services.CategoryService
}

func NewProjectHandler(projectService *services.ProjectService, categoryService *services.CategoryService) *ProjectHandler {
	return &ProjectHandler{
		projectService:  projectService,
		categoryService: categoryService,
	}
}

// List returns paginated projects with progress and budget metrics
// GET /api/v1/projects
func (h *ProjectHandler) List(c *gin.Context) {
	var req services.ProjectListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BindError(c, err)
		return
	}

	items, total, err := h.projectService.List(c.Request.Context(), middleware.GetPrincipal(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Page(c, items, total, req.Page, req.Limit)
}

// GetByID returns a project with its metrics and schedule
// GET /api/v1/projects/:id
func (h *ProjectHandler) GetByID(c *gin.Context) {
	project, err := h.projectService.GetByID(c.Request.Context(), middleware.GetPrincipal(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, project)
}

// Create creates a new project
// POST /api/v1/projects
func (h *ProjectHandler) Create(c *gin.Context) {
	var req services.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	project, err := h.projectService.Create(c.Request.Context(), middleware.GetPrincipal(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, gin.H{"ok": true, "project": project})
}

// Update applies a partial update
// PATCH /api/v1/projects/:id
func (h *ProjectHandler) Update(c *gin.Context) {
	var req services.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	project, err := h.projectService.Update(c.Request.Context(), middleware.GetPrincipal(c), c.Param("id"), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"ok": true, "project": project})
}

// Delete soft-deletes a project
// DELETE /api/v1/projects/:id
func (h *ProjectHandler) Delete(c *gin.Context) {
	if err := h.projectService.Delete(c.Request.Context(), middleware.GetPrincipal(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"ok": true})
}

// ListCategories returns the categories of a project with their spend
// GET /api/v1/projects/:id/categories
func (h *ProjectHandler) ListCategories(c *gin.Context) {
	categories, err := h.categoryService.ListByProject(c.Request.Context(), middleware.GetPrincipal(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"items": categories})
}

// CreateCategory adds a category to a project
// POST /api/v1/projects/:id/categories
func (h *ProjectHandler) CreateCategory(c *gin.Context) {
	var req services.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	category, err := h.categoryService.Create(c.Request.Context(), middleware.GetPrincipal(c), c.Param("id"), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, gin.H{"ok": true, "category": category})
}

// UpdateCategory renames, re-budgets or reorders a category
// PATCH /api/v1/categories/:id
func (h *ProjectHandler) UpdateCategory(c *gin.Context) {
	var req services.UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	category, err := h.categoryService.Update(c.Request.Context(), middleware.GetPrincipal(c), c.Param("id"), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"ok": true, "category": category})
}
