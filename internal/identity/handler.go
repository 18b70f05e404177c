package identity

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes the wallet-linking endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs an identity HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// chatIDField accepts the chat id as a JSON number or string.
type chatIDField int64

func (f *chatIDField) UnmarshalJSON(b []byte) error {
	raw := strings.Trim(string(b), `"`)
	if raw == "" || raw == "null" {
		*f = 0
		return nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("chatId: %w", err)
	}
	*f = chatIDField(id)
	return nil
}

type callbackRequest struct {
	ChatID    chatIDField `json:"chatId"`
	Account   string      `json:"account"`
	Signature string      `json:"signature"`
	Message   string      `json:"message"`
}

type callbackResponse struct {
	Status    string `json:"status"`
	ChatID    int64  `json:"chatId"`
	Wallet    string `json:"wallet"`
	SessionID string `json:"sessionId"`
}

// Page serves the wallet-signing page. It never writes state.
func (h *Handler) Page(c *fiber.Ctx) error {
	chatID, err := chatIDParam(c)
	if err != nil {
		return err
	}
	body, err := renderLinkPage(linkPageData{
		ChatID:      chatID,
		Message:     ChallengeMessage(chatID),
		CallbackURL: h.service.opts.PublicBaseURL + "/auth/callback",
	})
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "render page")
	}
	c.Type("html", "utf-8")
	return c.Status(http.StatusOK).Send(body)
}

// Redirect sends mobile agents to the wallet deep link and others to the page.
func (h *Handler) Redirect(c *fiber.Ctx) error {
	chatID, err := chatIDParam(c)
	if err != nil {
		return err
	}
	return c.Redirect(h.service.BuildChallengeTarget(chatID, c.Get(fiber.HeaderUserAgent)), http.StatusFound)
}

// Callback verifies a signed link request.
func (h *Handler) Callback(c *fiber.Ctx) error {
	var req callbackRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	res, err := h.service.VerifyLink(c.UserContext(), LinkRequest{
		ChatID:    int64(req.ChatID),
		Account:   req.Account,
		Signature: req.Signature,
		Message:   req.Message,
	})
	if err != nil {
		if IsAuthError(err) {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, "could not link wallet, please try again")
	}
	return c.Status(http.StatusOK).JSON(callbackResponse{
		Status:    "linked",
		ChatID:    res.ChatID,
		Wallet:    res.Wallet,
		SessionID: res.SessionID,
	})
}

func chatIDParam(c *fiber.Ctx) (int64, error) {
	chatID, err := strconv.ParseInt(c.Params("chatId"), 10, 64)
	if err != nil || chatID == 0 {
		return 0, fiber.NewError(http.StatusBadRequest, "invalid chat id")
	}
	return chatID, nil
}
