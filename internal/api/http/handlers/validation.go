package handlers

import (
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/issue-service/pkg/util"
)

var validate = validator.New()

func init() {
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// decode parses the JSON body into v and validates its struct tags.
func decode(c *fiber.Ctx, v any) error {
	if err := c.BodyParser(v); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			details := make(map[string]any, len(verrs))
			for _, fe := range verrs {
				details[fe.Field()] = fe.Tag()
			}
			return apperrors.NewValidationError("validation failed", details)
		}
		return apperrors.NewValidationError("validation failed", nil)
	}
	return nil
}

// paramID reads a positive int64 route parameter.
func paramID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid "+name, map[string]any{name: c.Params(name)})
	}
	return id, nil
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
