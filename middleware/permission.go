package middleware

import (
	"errors"
	"lms/database"
	"lms/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// RequireRole rejects callers whose token role differs from role, then loads
// the user to confirm the role still holds and the account is not blocked. The
// loaded user is stored in c.Locals("user").
func RequireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Get user ID from context (set by JWTMiddleware)
		userID, ok := c.Locals("userId").(uint)
		if !ok {
			return JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized: User ID not found", nil)
		}
		// the token's role claim settles a mismatch without a lookup
		if claimed, _ := c.Locals("role").(string); role != "" && claimed != role {
			return JsonResponse(c, fiber.StatusForbidden, false, "Access denied! Admin only.", nil)
		}

		var user models.User
		err := database.Database.Db.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return JsonResponse(c, fiber.StatusUnauthorized, false, "User not found!", nil)
			}
			return JsonResponse(c, fiber.StatusInternalServerError, false, "Server error while checking permissions!", nil)
		}

		if user.IsBlocked {
			return JsonResponse(c, fiber.StatusForbidden, false, "Your account has been blocked!", nil)
		}
		if role != "" && user.Role != role {
			return JsonResponse(c, fiber.StatusForbidden, false, "Access denied! Admin only.", nil)
		}

		c.Locals("user", &user)
		return c.Next()
	}
}
