package controller

import (
	"io"
	"strconv"
	"strings"

	"ai-tutor-be/internal/dto"
	"ai-tutor-be/internal/pkg/apperror"
	"ai-tutor-be/internal/pkg/serverutils"
	"ai-tutor-be/internal/service"
	"ai-tutor-be/pkg/extract"

	"github.com/gofiber/fiber/v2"
)

type IKnowledgeController interface {
	RegisterRoutes(r fiber.Router, auth fiber.Handler)
	Upload(ctx *fiber.Ctx) error
	CreateNote(ctx *fiber.Ctx) error
	IngestURL(ctx *fiber.Ctx) error
	Search(ctx *fiber.Ctx) error
	Graph(ctx *fiber.Ctx) error
	CreateEdge(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
}

type knowledgeController struct {
	knowledgeService service.IKnowledgeService
	uploadMaxBytes   int
}

func NewKnowledgeController(knowledgeService service.IKnowledgeService, uploadMaxBytes int) IKnowledgeController {
	return &knowledgeController{
		knowledgeService: knowledgeService,
		uploadMaxBytes:   uploadMaxBytes,
	}
}

func (c *knowledgeController) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	h := r.Group("/knowledge")
	h.Use(auth)
	h.Post("upload", c.Upload)
	h.Post("notes", c.CreateNote)
	h.Post("urls", c.IngestURL)
	h.Get("search", c.Search)
	h.Get("graph", c.Graph)
	h.Post("graph", c.CreateEdge)
	h.Delete(":contentId", c.Delete)
}

func (c *knowledgeController) Upload(ctx *fiber.Ctx) error {
	userID, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	file, err := ctx.FormFile("file")
	if err != nil {
		return apperror.New(apperror.KindValidation, "a file field is required")
	}
	if c.uploadMaxBytes > 0 && file.Size > int64(c.uploadMaxBytes) {
		return apperror.Newf(apperror.KindValidation, "file exceeds the %d MiB limit", c.uploadMaxBytes>>20)
	}
	mimeType := file.Header.Get(fiber.HeaderContentType)
	if !extract.Allowed(mimeType) {
		return apperror.Newf(apperror.KindValidation, "unsupported file type %q", mimeType)
	}

	f, err := file.Open()
	if err != nil {
		return apperror.Wrap(apperror.KindValidation, err, "cannot read upload")
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return apperror.Wrap(apperror.KindValidation, err, "cannot read upload")
	}

	res, err := c.knowledgeService.Upload(ctx.UserContext(), userID, file.Filename, mimeType, data)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(res)
}

func (c *knowledgeController) CreateNote(ctx *fiber.Ctx) error {
	userID, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	var req dto.CreateNoteRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.Wrap(apperror.KindValidation, err, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.knowledgeService.CreateNote(ctx.UserContext(), userID, &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(res)
}

func (c *knowledgeController) IngestURL(ctx *fiber.Ctx) error {
	userID, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	var req dto.IngestURLRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.Wrap(apperror.KindValidation, err, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.knowledgeService.IngestURL(ctx.UserContext(), userID, &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(res)
}

func (c *knowledgeController) Search(ctx *fiber.Ctx) error {
	userID, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	req := dto.KnowledgeSearchRequest{Query: strings.TrimSpace(ctx.Query("q"))}
	if raw := ctx.Query("types"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				req.Types = append(req.Types, t)
			}
		}
	}
	if raw := ctx.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return apperror.New(apperror.KindValidation, "limit must be a number")
		}
		req.Limit = limit
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.knowledgeService.Search(ctx.UserContext(), userID, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success search knowledge", res))
}

func (c *knowledgeController) Graph(ctx *fiber.Ctx) error {
	userID, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	res, err := c.knowledgeService.Graph(ctx.UserContext(), userID, ctx.Query("seed"))
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

func (c *knowledgeController) CreateEdge(ctx *fiber.Ctx) error {
	userID, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	var req dto.CreateEdgeRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.Wrap(apperror.KindValidation, err, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if err := c.knowledgeService.CreateEdge(ctx.UserContext(), userID, &req); err != nil {
		return err
	}
	return ctx.JSON(fiber.Map{"success": true})
}

func (c *knowledgeController) Delete(ctx *fiber.Ctx) error {
	userID, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	if err := c.knowledgeService.Delete(ctx.UserContext(), userID, ctx.Params("contentId")); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Success delete content", nil))
}
