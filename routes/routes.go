package routes

import (
	"coursemarket/config"
	"coursemarket/controllers"
	"coursemarket/middleware"
	"coursemarket/services"
	"coursemarket/store"
	"coursemarket/validators"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupRoutes(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	// Auth routes
	authController := controllers.NewAuthController(db, cfg)
	app.Post("/api/auth/register", authController.Register)
	app.Post("/api/auth/login", authController.Login)

	// Middleware
	authMiddleware := middleware.AuthMiddleware(cfg)
	adminMiddleware := middleware.AdminMiddleware(db, cfg)

	// Courses routes
	coursesController := controllers.NewCoursesController(db, cfg)
	courses := app.Group("/api/courses", authMiddleware)
	courses.Get("/", coursesController.GetAvailableCourses)
	courses.Get("/:id", coursesController.GetCourseDetails)

	// Enrollment routes
	enrollmentService := services.NewEnrollmentService(store.NewEnrollmentStore(db), store.NewCourseCatalog(db))
	enrollmentsController := controllers.NewEnrollmentsController(enrollmentService, cfg)
	app.Get("/api/enrollments", authMiddleware, enrollmentsController.ListMyEnrollments)
	courses.Post("/:id/enroll", enrollmentsController.Enroll)
	courses.Delete("/:id/enroll", enrollmentsController.Unenroll)
	courses.Post("/:id/progress", validators.ProgressReport(), enrollmentsController.ReportProgress)

	// Admin routes for courses
	adminCourses := app.Group("/api/admin/courses", authMiddleware, adminMiddleware)
	adminCourses.Post("/", coursesController.CreateCourse)
	adminCourses.Post("/:id/lessons", coursesController.AddLesson)
}
