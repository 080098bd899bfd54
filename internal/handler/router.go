package handler

import "github.com/gin-gonic/gin"

// Handlers groups every endpoint served under the API prefix.
type Handlers struct {
	Students      *StudentHandler
	Classes       *ClassHandler
	Attendance    *AttendanceHandler
	Exports       *ExportHandler
	Notifications *NotificationHandler
	Users         *UserHandler
	Auth          *AuthHandler
}

// Register mounts the routes on api. Everything except session start sits behind protect.
func (h Handlers) Register(api *gin.RouterGroup, protect ...gin.HandlerFunc) {
	api.POST("/auth/session", h.Auth.StartSession)

	secured := api.Group("", protect...)

	students := secured.Group("/students")
	students.GET("", h.Students.List)
	students.POST("", h.Students.Create)
	students.PUT("", h.Students.Update)
	students.DELETE("", h.Students.Delete)
	students.GET("/birthdays", h.Students.Birthdays)
	students.GET("/shift-totals", h.Students.ShiftTotals)
	students.GET("/school-years", h.Students.SchoolYears)
	students.GET("/report.pdf", h.Exports.Report)
	students.GET("/export.csv", h.Exports.CSV)
	students.POST("/:id/contract", h.Exports.Contract)

	classes := secured.Group("/classes")
	classes.GET("", h.Classes.List)
	classes.POST("", h.Classes.Create)
	classes.GET("/:id", h.Classes.Get)
	classes.GET("/:id/eligible", h.Classes.Eligible)
	classes.GET("/:id/students", h.Classes.Students)
	classes.POST("/:id/students", h.Classes.Enroll)
	classes.DELETE("/:id/students/:studentId", h.Classes.Unenroll)
	classes.GET("/:id/students/:studentId/attendance", h.Attendance.Student)
	classes.PUT("/:id/attendance", h.Attendance.Mark)
	classes.GET("/:id/attendance", h.Attendance.History)
	classes.GET("/:id/attendance/:date", h.Attendance.Day)
	classes.GET("/:id/months", h.Attendance.Months)

	secured.GET("/notifications", h.Notifications.List)
	secured.POST("/users", h.Users.Grant)
	secured.GET("/users", h.Users.Lookup)
}
