package middleware

import (
	"errors"
	"log"
	"lms/services/progress"

	"github.com/gofiber/fiber/v2"
)

func JsonResponse(c *fiber.Ctx, statusCode int, status bool, message string, data interface{}) error {
	return c.Status(statusCode).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"data":    data,
	})
}

func ValidationErrorResponse(c *fiber.Ctx, fields map[string]string) error {
	return JsonResponse(c, fiber.StatusUnprocessableEntity, false, "Validation failed!", fields)
}

var kindStatus = map[progress.Kind]int{
	progress.KindNotFound:     fiber.StatusNotFound,
	progress.KindForbidden:    fiber.StatusForbidden,
	progress.KindValidation:   fiber.StatusUnprocessableEntity,
	progress.KindInvalidState: fiber.StatusConflict,
}

// ProgressErrorResponse maps a progress engine error onto the JSON envelope.
// The handler picks the message; the engine's reason travels in data.
func ProgressErrorResponse(c *fiber.Ctx, err error, message string) error {
	var e *progress.Error
	if !errors.As(err, &e) {
		log.Printf("[PROGRESS] %s %s: %v", c.Method(), c.Path(), err)
		return JsonResponse(c, fiber.StatusInternalServerError, false, message, nil)
	}
	status, ok := kindStatus[e.Kind]
	if !ok {
		status = fiber.StatusInternalServerError
	}
	return JsonResponse(c, status, false, message, fiber.Map{
		"reason": e.Kind.String(),
		"detail": e.Msg,
	})
}
