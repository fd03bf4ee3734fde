package handlers

import (
	"strings"

	"github.com/gabriel/media-catalog/internal/apperr"
	"github.com/gabriel/media-catalog/internal/auth"
	"github.com/gabriel/media-catalog/internal/models"
	"github.com/gabriel/media-catalog/internal/repository"
	"github.com/gofiber/fiber/v2"
)

type registerRequest struct {
	Email       string `json:"email" validate:"required,email,max=254"`
	Password    string `json:"password" validate:"required,min=8,max=72"`
	DisplayName string `json:"displayName" validate:"required,min=2,max=50"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type updateProfileRequest struct {
	DisplayName string  `json:"displayName" validate:"required,min=2,max=50"`
	AvatarURL   *string `json:"avatarUrl" validate:"omitempty,url,max=500"`
	Bio         *string `json:"bio" validate:"omitempty,max=500"`
}

type setRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=user admin"`
}

type UsersHandler struct {
	users       *repository.UserRepository
	friends     *repository.FriendRepository
	tokens      *auth.Manager
	adminEmails map[string]bool
}

func NewUsersHandler(users *repository.UserRepository, friends *repository.FriendRepository, tokens *auth.Manager, adminEmails []string) *UsersHandler {
	admins := make(map[string]bool, len(adminEmails))
	for _, email := range adminEmails {
		admins[strings.ToLower(strings.TrimSpace(email))] = true
	}
	return &UsersHandler{users: users, friends: friends, tokens: tokens, adminEmails: admins}
}

func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return err
	}
	role := models.RoleUser
	if h.adminEmails[strings.ToLower(strings.TrimSpace(req.Email))] {
		role = models.RoleAdmin
	}

	user, err := h.users.Create(req.Email, req.DisplayName, hash, role)
	if err != nil {
		return err
	}
	return h.sendToken(c, fiber.StatusCreated, user)
}

func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	user, err := h.users.GetByEmail(req.Email)
	if err != nil {
		return err
	}
	if user == nil {
		return apperr.Unauthorized("invalid email or password")
	}
	if err := auth.ComparePassword(user.PasswordHash, req.Password); err != nil {
		return err
	}
	return h.sendToken(c, fiber.StatusOK, user)
}

func (h *UsersHandler) sendToken(c *fiber.Ctx, status int, user *models.User) error {
	token, expiresAt, err := h.tokens.Issue(*user)
	if err != nil {
		return err
	}
	return c.Status(status).JSON(fiber.Map{
		"token":     token,
		"expiresAt": expiresAt,
		"user":      user,
	})
}

func (h *UsersHandler) Me(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	user, err := h.users.GetByID(userID)
	if err != nil {
		return err
	}
	if user == nil {
		return apperr.NotFound("user not found")
	}
	return c.JSON(user)
}

func (h *UsersHandler) UpdateMe(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	var req updateProfileRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	user, err := h.users.UpdateProfile(userID, req.DisplayName, req.AvatarURL, req.Bio)
	if err != nil {
		return err
	}
	if user == nil {
		return apperr.NotFound("user not found")
	}
	return c.JSON(user)
}

func (h *UsersHandler) Search(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	query := strings.TrimSpace(c.Query("q"))
	if len([]rune(query)) < 2 {
		return apperr.BadRequest("q must be at least 2 characters")
	}

	users, err := h.users.Search(query, userID, c.QueryInt("limit", 20))
	if err != nil {
		return err
	}
	items := make([]models.PublicUser, 0, len(users))
	for _, user := range users {
		items = append(items, user.Public())
	}
	return c.JSON(fiber.Map{"items": items})
}

func (h *UsersHandler) Get(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	user, err := h.users.GetByID(c.Params("id"))
	if err != nil {
		return err
	}
	if user == nil {
		return apperr.NotFound("user not found")
	}

	isFriend, err := h.friends.AreFriends(userID, user.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"user":     user.Public(),
		"bio":      user.Bio,
		"isFriend": isFriend,
	})
}

func (h *UsersHandler) SetRole(c *fiber.Ctx) error {
	var req setRoleRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	updated, err := h.users.SetRole(c.Params("id"), req.Role)
	if err != nil {
		return err
	}
	if !updated {
		return apperr.NotFound("user not found")
	}
	return c.SendStatus(fiber.StatusNoContent)
}
