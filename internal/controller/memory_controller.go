package controller

import (
	"ai-tutor-be/internal/dto"
	"ai-tutor-be/internal/pkg/apperror"
	"ai-tutor-be/internal/pkg/serverutils"
	"ai-tutor-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IMemoryController interface {
	RegisterRoutes(r fiber.Router, auth fiber.Handler)
	Command(ctx *fiber.Ctx) error
}

type memoryController struct {
	memoryService service.IMemoryService
}

func NewMemoryController(memoryService service.IMemoryService) IMemoryController {
	return &memoryController{memoryService: memoryService}
}

func (c *memoryController) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	h := r.Group("/memory")
	h.Use(auth)
	h.Post("", c.Command)
}

func (c *memoryController) Command(ctx *fiber.Ctx) error {
	userID, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	var req dto.MemoryCommandRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.Wrap(apperror.KindValidation, err, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.memoryService.Execute(ctx.UserContext(), userID, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}
