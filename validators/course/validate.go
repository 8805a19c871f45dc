package courseValidator

import (
	"lms/middleware"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/gofiber/fiber/v2"
)

var (
	validate   *validator.Validate
	translator ut.Translator
)

const notBlankTag = "notblank"

func init() {
	validate = validator.New()

	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// report json names instead of Go field names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(notBlankTag, func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = validate.RegisterTranslation(notBlankTag, translator,
		func(t ut.Translator) error {
			return t.Add(notBlankTag, "{0} must not be blank", true)
		},
		func(t ut.Translator, fe validator.FieldError) string {
			msg, _ := t.T(notBlankTag, fe.Field())
			return msg
		},
	)
}

// validateBody runs the struct tags of req and returns field errors keyed by
// their json path, e.g. "answers[0].option_id".
func validateBody(req interface{}) map[string]string {
	errors := make(map[string]string)
	err := validate.Struct(req)
	if err == nil {
		return errors
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		errors["body"] = err.Error()
		return errors
	}
	for _, fe := range verrs {
		key := fe.Namespace()
		if i := strings.Index(key, "."); i >= 0 {
			key = key[i+1:]
		}
		errors[key] = fe.Translate(translator)
	}
	return errors
}

// parseID reads a positive integer path parameter. On failure the error
// response has already been written and ok is false.
func parseID(c *fiber.Ctx, param, label string) (id int, ok bool, err error) {
	raw := strings.TrimSpace(c.Params(param))
	if raw == "" {
		return 0, false, middleware.JsonResponse(c, fiber.StatusBadRequest, false, label+" is required!", nil)
	}
	id, convErr := strconv.Atoi(raw)
	if convErr != nil || id <= 0 {
		return 0, false, middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid "+label+"!", nil)
	}
	return id, true, nil
}

// IDParam validates a positive integer path parameter and stores it in
// c.Locals under local.
func IDParam(param, label, local string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok, err := parseID(c, param, label)
		if !ok {
			return err
		}
		c.Locals(local, id)
		return c.Next()
	}
}

type pageQuery struct {
	Page  *int `query:"page"`
	Limit *int `query:"limit"`
}

// Pagination validates optional page/limit query parameters and stores them
// as "page" and "limit"; missing values fall back to page 1 and limit 10.
func Pagination() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(pageQuery)
		if err := c.QueryParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid query parameters!", nil)
		}

		errors := make(map[string]string)
		if reqData.Page != nil && *reqData.Page < 1 {
			errors["page"] = "Page must be greater than 0!"
		}
		if reqData.Limit != nil && (*reqData.Limit < 1 || *reqData.Limit > 100) {
			errors["limit"] = "Limit must be between 1 and 100!"
		}
		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		page, limit := 1, 10
		if reqData.Page != nil {
			page = *reqData.Page
		}
		if reqData.Limit != nil {
			limit = *reqData.Limit
		}
		c.Locals("page", page)
		c.Locals("limit", limit)
		return c.Next()
	}
}
