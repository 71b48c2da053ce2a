package controller

import (
	"bufio"
	"context"

	"ai-tutor-be/internal/dto"
	"ai-tutor-be/internal/pkg/apperror"
	"ai-tutor-be/internal/pkg/logger"
	"ai-tutor-be/internal/pkg/serverutils"
	"ai-tutor-be/internal/service"
	ws "ai-tutor-be/internal/websocket"
	"ai-tutor-be/pkg/stream"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router, auth fiber.Handler)
	Chat(ctx *fiber.Ctx) error
}

type chatController struct {
	chatService service.IChatService
	hub         *ws.Hub
	logger      logger.ILogger
}

func NewChatController(chatService service.IChatService, hub *ws.Hub, log logger.ILogger) IChatController {
	return &chatController{
		chatService: chatService,
		hub:         hub,
		logger:      log,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	h := r.Group("/chat")
	h.Use(auth)
	h.Post("", c.Chat)

	if c.hub != nil {
		h.Use("/ws", func(ctx *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(ctx) {
				return ctx.Next()
			}
			return fiber.ErrUpgradeRequired
		})
		h.Get("/ws", websocket.New(c.serveWs))
	}
}

// Chat runs one turn and streams the reply: the text chunk(s), then a newline
// and the terminal JSON frame. Failures before the first byte are plain JSON.
func (c *chatController) Chat(ctx *fiber.Ctx) error {
	userID, err := serverutils.UserID(ctx)
	if err != nil {
		return apperror.WithStep(err, service.ChatStepAuth, apperror.KindAuth)
	}

	var req dto.ChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.WithStep(apperror.Wrap(apperror.KindValidation, err, "invalid request body"), service.ChatStepInit, apperror.KindValidation)
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return apperror.WithStep(err, service.ChatStepInit, apperror.KindValidation)
	}

	chatCtx, stop := serverutils.WatchDisconnect(ctx.UserContext(), ctx.Context().Conn())
	sink := stream.NewBufferedSink()
	_, err = c.chatService.Chat(chatCtx, userID, &req, sink)
	stop()
	if err != nil {
		if serverutils.StatusFor(err) != fiber.StatusInternalServerError {
			return err
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(stream.NewErrorFrame(err))
	}

	ctx.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	ctx.Set(fiber.HeaderCacheControl, "no-cache")
	ctx.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		if err := sink.WriteTo(w); err != nil {
			c.logger.Warn("CHAT", "Client went away while streaming", map[string]interface{}{
				"user_id": userID,
				"step":    service.ChatStepStream,
				"error":   err.Error(),
			})
		}
	})
	return nil
}

func (c *chatController) serveWs(conn *websocket.Conn) {
	userID, _ := conn.Locals("user_id").(string)
	ws.ServeWs(c.hub, conn, userID, func(ctx context.Context, userID string, req *dto.ChatRequest, sink stream.Sink) error {
		_, err := c.chatService.Chat(ctx, userID, req, sink)
		return err
	})
}
