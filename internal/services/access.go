package services

import "github.com/siteflow/siteflow/internal/models"

// Principal is the resolved identity of a request: tenant, actor and role.
// Bypass is only ever set by the end-to-end test seam and skips role checks.
type Principal struct {
	OrgID  string
	UserID string
	Role   models.Role
	Bypass bool
}

// Allowed reports whether the principal may perform an operation limited to roles.
func (p Principal) Allowed(roles ...models.Role) bool {
	return p.Bypass || p.Role.In(roles...)
}

// Allow-lists shared by services and route guards.
var (
	ProjectWriters     = []models.Role{models.RolePM, models.RoleAdmin}
	TaskEditors        = []models.Role{models.RoleEngineer, models.RolePM, models.RoleSupervisor, models.RoleAdmin}
	DailyLogAuthors    = []models.Role{models.RoleEngineer, models.RoleAdmin}
	TransactionAuthors = []models.Role{models.RolePM, models.RoleAccountant, models.RoleAdmin}
	PaymentEditors     = []models.Role{models.RoleAccountant, models.RoleAdmin}
	ShareLinkManagers  = []models.Role{models.RolePM, models.RoleAdmin}
	Admins             = []models.Role{models.RoleAdmin}
)
