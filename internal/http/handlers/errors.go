package handlers

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/gabriel/media-catalog/internal/apperr"
	"github.com/gabriel/media-catalog/internal/auth"
	"github.com/gabriel/media-catalog/internal/models"
	"github.com/gabriel/media-catalog/internal/repository"
	"github.com/gabriel/media-catalog/internal/validation"
	"github.com/gofiber/fiber/v2"
)

var repositoryErrorKinds = []struct {
	err  error
	kind apperr.Kind
}{
	{repository.ErrEmailTaken, apperr.KindConflict},
	{repository.ErrDuplicateCollection, apperr.KindConflict},
	{repository.ErrDuplicateItem, apperr.KindConflict},
	{repository.ErrSelfRequest, apperr.KindBadRequest},
	{repository.ErrAlreadyFriends, apperr.KindConflict},
	{repository.ErrRequestPending, apperr.KindConflict},
	{repository.ErrRequestNotFound, apperr.KindNotFound},
	{repository.ErrRequestForbidden, apperr.KindForbidden},
	{repository.ErrRequestResolved, apperr.KindConflict},
	{repository.ErrUserNotFound, apperr.KindNotFound},
}

// ErrorHandler renders every error returned by a handler as
// {"code","message"}. Validation failures add a "fields" list.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(c *fiber.Ctx, err error) error {
		var validationErr *validation.RequestValidationError
		if errors.As(err, &validationErr) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"code":    apperr.KindBadRequest,
				"message": validationErr.Error(),
				"fields":  validationErr.Fields,
			})
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			err = apperr.FromStatus(fiberErr.Code, fiberErr.Message)
		}
		err = classify(err)

		kind := apperr.KindOf(err)
		status := apperr.HTTPStatus(kind)
		if status >= fiber.StatusInternalServerError {
			logger.Error("request failed", "method", c.Method(), "path", c.Path(), "status", status, "error", err)
		}
		return c.Status(status).JSON(fiber.Map{
			"code":    kind,
			"message": apperr.PublicMessage(err),
		})
	}
}

func classify(err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	for _, candidate := range repositoryErrorKinds {
		if errors.Is(err, candidate.err) {
			return apperr.Wrap(err, candidate.kind, candidate.err.Error())
		}
	}
	if errors.Is(err, auth.ErrInvalidPassword) {
		return apperr.Wrap(err, apperr.KindUnauthorized, "invalid email or password")
	}
	return err
}

// parseBody decodes the JSON body into out and runs struct validation.
func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperr.BadRequest("invalid json body")
	}
	return validation.ValidateStruct(out)
}

func currentUserID(c *fiber.Ctx) (string, error) {
	claims := auth.ClaimsFrom(c)
	if claims == nil {
		return "", apperr.Unauthorized("authentication required")
	}
	return claims.UserID, nil
}

func paramInt64(c *fiber.Ctx, name string) (int64, error) {
	value, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || value <= 0 {
		return 0, apperr.Newf(apperr.KindBadRequest, "invalid %s", name)
	}
	return value, nil
}

func paramInt(c *fiber.Ctx, name string) (int, error) {
	value, err := strconv.Atoi(c.Params(name))
	if err != nil || value < 0 {
		return 0, apperr.Newf(apperr.KindBadRequest, "invalid %s", name)
	}
	return value, nil
}

func paramMediaType(c *fiber.Ctx) (string, error) {
	mediaType := strings.ToLower(c.Params("mediaType"))
	if mediaType != models.MediaTypeMovie && mediaType != models.MediaTypeTV {
		return "", apperr.BadRequest("media type must be movie or tv")
	}
	return mediaType, nil
}

func paging(c *fiber.Ctx) (int, int) {
	return c.QueryInt("limit", 20), c.QueryInt("offset", 0)
}
