package controllers

import (
	"lms/database"
	"lms/middleware"
	"lms/models"
	"lms/utils"

	"github.com/gofiber/fiber/v2"
)

// sendEmail is swapped out in tests.
var sendEmail = utils.SendEmailAsync

// currentUser loads the authenticated, non-deleted user. When ok is false the
// 401 response has already been written and err must be returned.
func currentUser(c *fiber.Ctx) (user models.User, ok bool, err error) {
	userID, found := c.Locals("userId").(uint)
	if !found {
		return user, false, middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error; err != nil {
		return user, false, middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "User not found!", nil)
	}
	return user, true, nil
}

func pagination(c *fiber.Ctx) (page, limit, offset int) {
	page, _ = c.Locals("page").(int)
	limit, _ = c.Locals("limit").(int)
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	return page, limit, (page - 1) * limit
}
