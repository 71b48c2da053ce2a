package controller

import (
	"ai-tutor-be/internal/dto"
	"ai-tutor-be/internal/pkg/apperror"
	"ai-tutor-be/internal/pkg/serverutils"
	"ai-tutor-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IProfileController interface {
	RegisterRoutes(r fiber.Router, auth fiber.Handler)
	Update(ctx *fiber.Ctx) error
}

type profileController struct {
	profileService service.IProfileService
}

func NewProfileController(profileService service.IProfileService) IProfileController {
	return &profileController{profileService: profileService}
}

func (c *profileController) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	h := r.Group("/profile")
	h.Use(auth)
	h.Put("", c.Update)
}

func (c *profileController) Update(ctx *fiber.Ctx) error {
	userID, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	var req dto.UpdateProfileRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.Wrap(apperror.KindValidation, err, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.profileService.Update(ctx.UserContext(), userID, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("profile updated", res))
}
