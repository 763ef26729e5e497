package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/wlwcreche/creche-api/internal/middleware"
	"github.com/wlwcreche/creche-api/internal/models"
	"github.com/wlwcreche/creche-api/internal/repository"
	"github.com/wlwcreche/creche-api/internal/service"
)

// Router bundles the handlers and the dependencies the route table needs.
type Router struct {
	Auth        *AuthHandler
	Enrollments *EnrollmentHandler
	Users       *UserHandler
	Classes     *ClassHandler
	Families    *FamilyHandler
	Attendance  *AttendanceHandler
	Summaries   *DailySummaryHandler
	Journals    *ClassJournalHandler
	Menus       *MenuHandler
	Events      *EventHandler
	Parent      *ParentHandler

	AuthService *service.AuthService
	Access      *service.AccessService
	AuditRepo   *repository.UserRepository
}

// Register wires all routes under the API prefix. Only the application
// form and the auth endpoints are public; everything else requires a
// valid token, and the role groups narrow from there.
func (rt *Router) Register(r *gin.Engine, prefix string) {
	api := r.Group(prefix)

	// Public application form.
	api.POST("/inscriptions", rt.Enrollments.Apply)

	auth := api.Group("/auth")
	auth.POST("/login", middleware.Audit(rt.AuditRepo, models.AuditActionLogin, "user"), rt.Auth.Login)
	auth.POST("/refresh", rt.Auth.Refresh)

	authed := auth.Group("", middleware.JWT(rt.AuthService))
	authed.POST("/logout", middleware.Audit(rt.AuditRepo, models.AuditActionLogout, "user"), rt.Auth.Logout)
	authed.PUT("/password", rt.Auth.ChangePassword)
	authed.GET("/me", rt.Auth.Me)

	admin := api.Group("/admin", middleware.JWT(rt.AuthService), middleware.RequireRoles(models.RoleAdmin), middleware.ResolveScope(rt.Access))

	inscriptions := admin.Group("/inscriptions")
	inscriptions.GET("", rt.Enrollments.List)
	inscriptions.GET("/stats", rt.Enrollments.Stats)
	inscriptions.GET("/export", middleware.Audit(rt.AuditRepo, models.AuditActionExport, "enrollment"), rt.Enrollments.Export)
	inscriptions.GET("/:id", rt.Enrollments.Get)
	inscriptions.PUT("/:id/status", middleware.Audit(rt.AuditRepo, models.AuditActionStatusChange, "enrollment"), rt.Enrollments.UpdateStatus)
	inscriptions.POST("/:id/accept", middleware.Audit(rt.AuditRepo, models.AuditActionEnrollmentAccept, "enrollment"), rt.Enrollments.Accept)
	inscriptions.POST("/:id/reject", middleware.Audit(rt.AuditRepo, models.AuditActionEnrollmentReject, "enrollment"), rt.Enrollments.Reject)

	users := admin.Group("/users")
	users.GET("", rt.Users.List)
	users.POST("", middleware.Audit(rt.AuditRepo, models.AuditActionCreate, "user"), rt.Users.Create)
	users.POST("/invitations", middleware.Audit(rt.AuditRepo, models.AuditActionCreate, "user"), rt.Users.Invite)
	users.GET("/:id", rt.Users.Get)
	users.PUT("/:id", middleware.Audit(rt.AuditRepo, models.AuditActionUpdate, "user"), rt.Users.Update)
	users.DELETE("/:id", middleware.Audit(rt.AuditRepo, models.AuditActionDelete, "user"), rt.Users.Disable)

	adminClasses := admin.Group("/classes")
	adminClasses.POST("", middleware.Audit(rt.AuditRepo, models.AuditActionCreate, "class"), rt.Classes.Create)
	adminClasses.PUT("/:id", middleware.Audit(rt.AuditRepo, models.AuditActionUpdate, "class"), rt.Classes.Update)
	adminClasses.POST("/:id/children", middleware.Audit(rt.AuditRepo, models.AuditActionUpdate, "class"), rt.Classes.AssignChild)
	adminClasses.DELETE("/:id/children/:childId", middleware.Audit(rt.AuditRepo, models.AuditActionUpdate, "class"), rt.Classes.RemoveChild)
	adminClasses.GET("/:id/teachers", rt.Classes.Assignments)
	adminClasses.POST("/:id/teachers", middleware.Audit(rt.AuditRepo, models.AuditActionUpdate, "class"), rt.Classes.AssignTeacher)
	adminClasses.DELETE("/:id/teachers/:assignmentId", middleware.Audit(rt.AuditRepo, models.AuditActionUpdate, "class"), rt.Classes.EndAssignment)

	familles := admin.Group("/familles")
	familles.GET("", rt.Families.List)
	familles.GET("/:id", rt.Families.Get)

	adminMenus := admin.Group("/menus")
	adminMenus.POST("", middleware.Audit(rt.AuditRepo, models.AuditActionCreate, "menu"), rt.Menus.Create)
	adminMenus.GET("/:id", rt.Menus.Get)
	adminMenus.PUT("/:id", middleware.Audit(rt.AuditRepo, models.AuditActionUpdate, "menu"), rt.Menus.Update)
	adminMenus.POST("/:id/publish", middleware.Audit(rt.AuditRepo, models.AuditActionStatusChange, "menu"), rt.Menus.Publish)
	adminMenus.DELETE("/:id", middleware.Audit(rt.AuditRepo, models.AuditActionDelete, "menu"), rt.Menus.Delete)

	admin.GET("/presences/classes/:classId/export", middleware.Audit(rt.AuditRepo, models.AuditActionExport, "attendance"), rt.Attendance.Export)

	// Staff endpoints, scoped to the caller's classes.
	staff := api.Group("", middleware.JWT(rt.AuthService), middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher), middleware.ResolveScope(rt.Access))
	staff.POST("/presences", rt.Attendance.Record)
	staff.PUT("/presences", rt.Attendance.Upsert)
	staff.GET("/presences/classes/:classId", rt.Attendance.ListByClass)
	staff.GET("/presences/classes/:classId/summary", rt.Attendance.Summary)
	staff.PUT("/resumes", rt.Summaries.Upsert)
	staff.GET("/resumes/classes/:classId", rt.Summaries.ListByClass)
	staff.POST("/journaux", rt.Journals.Create)
	staff.PUT("/journaux/:id", rt.Journals.Update)
	staff.POST("/journaux/:id/publish", middleware.Audit(rt.AuditRepo, models.AuditActionJournalPublish, "journal"), rt.Journals.Publish)
	staff.GET("/journaux/:id/diffusions", rt.Journals.Diffusions)
	staff.POST("/evenements", rt.Events.Create)
	staff.PUT("/evenements/:id", rt.Events.Update)
	staff.DELETE("/evenements/:id", rt.Events.Delete)

	// Shared reads for every authenticated role.
	shared := api.Group("", middleware.JWT(rt.AuthService), middleware.ResolveScope(rt.Access))
	shared.GET("/classes", rt.Classes.List)
	shared.GET("/classes/:id", rt.Classes.Get)
	shared.GET("/classes/:id/children", rt.Classes.Roster)
	shared.GET("/presences", rt.Attendance.List)
	shared.GET("/presences/enfants/:childId", rt.Attendance.ListByChild)
	shared.GET("/resumes/enfants/:childId", rt.Summaries.GetForChild)
	shared.GET("/resumes/enfants/:childId/historique", rt.Summaries.History)
	shared.GET("/journaux/:id", rt.Journals.Get)
	shared.GET("/journaux/classes/:classId", rt.Journals.ListByClass)
	shared.GET("/menus", rt.Menus.ListWeek)
	shared.GET("/evenements", rt.Events.List)

	parent := api.Group("/parent", middleware.JWT(rt.AuthService), middleware.RequireRoles(models.RoleParent))
	parent.GET("/dashboard", rt.Parent.Dashboard)
	parent.GET("/me", rt.Parent.Me)
	parent.PUT("/me", rt.Parent.UpdateMe)
}
