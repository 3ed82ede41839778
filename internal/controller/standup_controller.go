package controller

import (
	"errors"

	"startup-standup-be/internal/dto"
	"startup-standup-be/internal/pkg/serverutils"
	"startup-standup-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IStandupController interface {
	RegisterRoutes(r fiber.Router)
	Start(ctx *fiber.Ctx) error
	SendMessage(ctx *fiber.Ctx) error
	Voice(ctx *fiber.Ctx) error
	Config(ctx *fiber.Ctx) error
	Health(ctx *fiber.Ctx) error
}

type standupController struct {
	standupService service.IStandupService
}

func NewStandupController(standupService service.IStandupService) IStandupController {
	return &standupController{
		standupService: standupService,
	}
}

func (c *standupController) RegisterRoutes(r fiber.Router) {
	r.Post("/start", c.Start)
	r.Post("/message", c.SendMessage)
	r.Post("/voice", c.Voice)
	r.Get("/config", c.Config)
	r.Get("/health", c.Health)
}

// Bodies that fail to parse are treated as empty, so the usual field checks
// produce the error.

func (c *standupController) Start(ctx *fiber.Ctx) error {
	var req dto.StartSessionRequest
	if err := ctx.BodyParser(&req); err != nil {
		req = dto.StartSessionRequest{}
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.standupService.Start(ctx.UserContext(), &req)
	if err != nil {
		return mapError(err)
	}

	return ctx.JSON(res)
}

func (c *standupController) SendMessage(ctx *fiber.Ctx) error {
	var req dto.SendMessageRequest
	if err := ctx.BodyParser(&req); err != nil {
		req = dto.SendMessageRequest{}
	}

	res, err := c.standupService.SendMessage(ctx.UserContext(), &req)
	if err != nil {
		return mapError(err)
	}

	return ctx.JSON(res)
}

func (c *standupController) Voice(ctx *fiber.Ctx) error {
	var req dto.VoiceRequest
	if err := ctx.BodyParser(&req); err != nil {
		req = dto.VoiceRequest{}
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.standupService.Transcribe(ctx.UserContext(), &req)
	if err != nil {
		return mapError(err)
	}

	return ctx.JSON(res)
}

func (c *standupController) Config(ctx *fiber.Ctx) error {
	return ctx.JSON(c.standupService.Config(ctx.UserContext()))
}

func (c *standupController) Health(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Service is healthy", c.standupService.Health(ctx.UserContext())))
}

func mapError(err error) error {
	var sttErr *service.STTError
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		return fiber.NewError(fiber.StatusBadRequest, "Invalid session")
	case errors.Is(err, service.ErrEmptyInput):
		return fiber.NewError(fiber.StatusBadRequest, "Empty input")
	case errors.Is(err, service.ErrMissingAudio):
		return fiber.NewError(fiber.StatusBadRequest, "Missing audio")
	case errors.Is(err, service.ErrInvalidAudio):
		return fiber.NewError(fiber.StatusBadRequest, "Invalid audio encoding")
	case errors.Is(err, service.ErrRegistryFull):
		return fiber.NewError(fiber.StatusServiceUnavailable, "Too many active sessions, try again later")
	case errors.As(err, &sttErr):
		return fiber.NewError(fiber.StatusInternalServerError, "STT failed: "+sttErr.Err.Error())
	default:
		return err
	}
}
