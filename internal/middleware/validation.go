package middleware

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"quiz-pipeline/internal/domain"
	"quiz-pipeline/internal/validation"
)

// ValidationMiddleware provides request validation middleware
type ValidationMiddleware struct {
	validator *validation.Validator
}

// NewValidationMiddleware creates a new validation middleware instance
func NewValidationMiddleware() *ValidationMiddleware {
	return &ValidationMiddleware{
		validator: validation.NewValidator(),
	}
}

// ValidateQuizRunID validates the :id path parameter
func (vm *ValidationMiddleware) ValidateQuizRunID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if errors := vm.validator.ValidateQuizRunID(id); len(errors) > 0 {
			return errors // This will be handled by ErrorHandler middleware
		}
		c.Locals("validated_id", id)
		return c.Next()
	}
}

// ValidateListParams validates the limit query parameter of listing requests
func (vm *ValidationMiddleware) ValidateListParams() fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := validation.DefaultListLimit
		if limitStr := c.Query("limit"); limitStr != "" {
			parsed, err := strconv.Atoi(limitStr)
			if err != nil {
				return domain.ValidationErrors{
					domain.NewInvalidFormatError("limit", limitStr),
				}
			}
			limit = parsed
		}

		if errors := vm.validator.ValidateListLimit(limit); len(errors) > 0 {
			return errors
		}

		c.Locals("validated_limit", limit)
		return c.Next()
	}
}
