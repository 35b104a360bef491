// Package validators holds pre-handler request validation middleware.
// Validated values are stashed in c.Locals for the controller to pick up.
package validators

import (
	"coursemarket/progress"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

// progressReportInput mirrors progress.Report with validation tags. The
// position may be zero (lesson open), the duration must be positive; the
// catalog's canonical duration overrides the client value later anyway.
type progressReportInput struct {
	LessonID      uint  `json:"lesson_id" validate:"required,gt=0"`
	PositionMs    int64 `json:"position_ms" validate:"gte=0"`
	DurationMs    int64 `json:"duration_ms" validate:"gt=0"`
	CompletedHint bool  `json:"completed_hint"`
}

func (in *progressReportInput) report() *progress.Report {
	return &progress.Report{
		LessonID:      in.LessonID,
		PositionMs:    in.PositionMs,
		DurationMs:    in.DurationMs,
		CompletedHint: in.CompletedHint,
	}
}

// ProgressReport validates the report body before the handler runs.
func ProgressReport() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var input progressReportInput
		if err := c.BodyParser(&input); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Cannot parse JSON",
			})
		}

		if err := validate.Struct(&input); err != nil {
			fieldErrors := make(map[string]string)
			for _, fieldErr := range err.(validator.ValidationErrors) {
				fieldErrors[fieldErr.Field()] = "failed on " + fieldErr.Tag()
			}
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":   "Invalid progress report",
				"details": fieldErrors,
			})
		}

		c.Locals("validatedProgressReport", input.report())
		return c.Next()
	}
}
