package handlers

import (
	"log/slog"

	"github.com/gabriel/media-catalog/internal/apperr"
	"github.com/gabriel/media-catalog/internal/models"
	"github.com/gabriel/media-catalog/internal/notifications"
	"github.com/gabriel/media-catalog/internal/repository"
	"github.com/gofiber/fiber/v2"
)

type friendRequestBody struct {
	UserID string `json:"userId" validate:"required,uuid"`
}

type FriendsHandler struct {
	repo     *repository.FriendRepository
	notifier notifications.Notifier
	logger   *slog.Logger
}

func NewFriendsHandler(repo *repository.FriendRepository, notifier notifications.Notifier, logger *slog.Logger) *FriendsHandler {
	if notifier == nil {
		notifier = notifications.NoopNotifier{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FriendsHandler{repo: repo, notifier: notifier, logger: logger}
}

func (h *FriendsHandler) List(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	friends, err := h.repo.ListFriends(userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"items": friends})
}

func (h *FriendsHandler) Remove(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	removed, err := h.repo.RemoveFriend(userID, c.Params("id"))
	if err != nil {
		return err
	}
	if !removed {
		return apperr.NotFound("friend not found")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *FriendsHandler) ListRequests(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	incoming, err := h.repo.ListIncoming(userID)
	if err != nil {
		return err
	}
	outgoing, err := h.repo.ListOutgoing(userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"incoming": incoming,
		"outgoing": outgoing,
	})
}

// Send creates a request. When the other user already asked the caller, the
// pair becomes friends and the accepted request is returned with 200.
func (h *FriendsHandler) Send(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	var req friendRequestBody
	if err := parseBody(c, &req); err != nil {
		return err
	}

	request, err := h.repo.Send(userID, req.UserID)
	if err != nil {
		return err
	}

	if request.Status == models.FriendRequestAccepted {
		h.notifyAccepted(request)
		return c.JSON(request)
	}
	notifications.Async(h.notifier, h.logger, notifications.Message{
		Event:   notifications.EventFriendRequestSent,
		Title:   "New friend request",
		Body:    request.FromName + " sent you a friend request",
		UserID:  request.ToUserID,
		Context: map[string]any{"requestId": request.ID, "fromUserId": request.FromUserID},
	})
	return c.Status(fiber.StatusCreated).JSON(request)
}

func (h *FriendsHandler) Accept(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	request, err := h.repo.Accept(c.Params("id"), userID)
	if err != nil {
		return err
	}
	h.notifyAccepted(request)
	return c.JSON(request)
}

func (h *FriendsHandler) Decline(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	request, err := h.repo.Decline(c.Params("id"), userID)
	if err != nil {
		return err
	}
	return c.JSON(request)
}

func (h *FriendsHandler) Cancel(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	request, err := h.repo.Cancel(c.Params("id"), userID)
	if err != nil {
		return err
	}
	return c.JSON(request)
}

func (h *FriendsHandler) notifyAccepted(request *models.FriendRequest) {
	notifications.Async(h.notifier, h.logger, notifications.Message{
		Event:   notifications.EventFriendRequestAccepted,
		Title:   "Friend request accepted",
		Body:    request.ToName + " accepted your friend request",
		UserID:  request.FromUserID,
		Context: map[string]any{"requestId": request.ID, "friendId": request.ToUserID},
	})
}
