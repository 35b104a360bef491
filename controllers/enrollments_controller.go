package controllers

import (
	"errors"
	"strconv"

	"coursemarket/config"
	"coursemarket/progress"
	"coursemarket/services"
	"coursemarket/store"
	"coursemarket/utils"

	"github.com/gofiber/fiber/v2"
)

type EnrollmentsController struct {
	Service *services.EnrollmentService
	Cfg     *config.Config
}

func NewEnrollmentsController(service *services.EnrollmentService, cfg *config.Config) *EnrollmentsController {
	return &EnrollmentsController{Service: service, Cfg: cfg}
}

// Enroll creates (or reactivates) the caller's enrollment in a course.
// Payment happens upstream; this endpoint consumes the granted access.
func (ec *EnrollmentsController) Enroll(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, ec.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil || courseID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid course ID",
		})
	}

	enrollment, err := ec.Service.Enroll(userID, uint(courseID))
	if err != nil {
		return enrollmentError(c, err)
	}

	return c.JSON(fiber.Map{
		"message":    "Enrolled in course",
		"enrollment": enrollment,
	})
}

// Unenroll deactivates the caller's enrollment, keeping its watch history.
func (ec *EnrollmentsController) Unenroll(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, ec.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil || courseID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid course ID",
		})
	}

	enrollment, err := ec.Service.Unenroll(userID, uint(courseID))
	if err != nil {
		return enrollmentError(c, err)
	}

	return c.JSON(fiber.Map{
		"message":    "Unenrolled from course",
		"enrollment": enrollment,
	})
}

// ListMyEnrollments returns every enrollment of the caller, active or not.
func (ec *EnrollmentsController) ListMyEnrollments(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, ec.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	enrollments, err := ec.Service.ListMyEnrollments(userID)
	if err != nil {
		return enrollmentError(c, err)
	}

	return c.JSON(fiber.Map{
		"enrollments": enrollments,
	})
}

// ReportProgress merges one playback report into the caller's enrollment and
// returns the authoritative state for the client to reconcile against.
func (ec *EnrollmentsController) ReportProgress(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, ec.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil || courseID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid course ID",
		})
	}

	report, ok := c.Locals("validatedProgressReport").(*progress.Report)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid progress report",
		})
	}

	enrollment, err := ec.Service.ReportProgress(userID, uint(courseID), *report)
	if err != nil {
		return enrollmentError(c, err)
	}

	return c.JSON(fiber.Map{
		"message":    "Progress updated",
		"enrollment": enrollment,
	})
}

// enrollmentError maps service and store errors to HTTP statuses.
func enrollmentError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrAlreadyEnrolled):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrNotEnrolled):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, progress.ErrEnrollmentNotActive):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, progress.ErrInvalidReport), errors.Is(err, services.ErrUnknownLesson):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, store.ErrCourseNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not process request",
		})
	}
}
