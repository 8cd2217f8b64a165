package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/makeasinger/musicgen/internal/apierr"
	"github.com/makeasinger/musicgen/internal/feature"
	"github.com/makeasinger/musicgen/internal/model"
	"github.com/makeasinger/musicgen/pkg/response"
)

// SunoHandler serves the task proxy routes. They validate requests with the
// same rules as the adapters, forward them upstream and answer with the
// upstream {code, msg, data} envelope.
type SunoHandler struct {
	backend   feature.Backend
	validator *validator.Validate
}

func NewSunoHandler(backend feature.Backend, v *validator.Validate) *SunoHandler {
	return &SunoHandler{
		backend:   backend,
		validator: v,
	}
}

// Create handles POST /api/suno/:feature
// @Summary      Create a remote task
// @Description  Validate the request and create a generation, lyrics, extension, separation, WAV or MP4 task
// @Tags         Suno
// @Accept       json
// @Produce      json
// @Param        feature path string true "Feature" Enums(generate, lyrics, extend, vocal-separation, wav, mp4)
// @Success      200 {object} response.EnvelopeResponse
// @Failure      400 {object} response.EnvelopeResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Failure      502 {object} response.EnvelopeResponse
// @Security     BearerAuth
// @Router       /api/suno/{feature} [post]
func (h *SunoHandler) Create(c *fiber.Ctx) error {
	f, ok := model.ParseFeature(c.Params("feature"))
	if !ok {
		return response.EnvelopeError(c, apierr.Validation(map[string]string{"feature": "oneof"}))
	}

	body, err := feature.Prepare(h.validator, f, c.Body())
	if err != nil {
		return response.EnvelopeError(c, apierr.From(err))
	}

	taskID, err := h.backend.CreateTask(c.UserContext(), f, body)
	if err != nil {
		return response.EnvelopeError(c, apierr.From(err))
	}

	return response.EnvelopeOK(c, model.TaskCreated{TaskID: taskID})
}

// Status handles GET /api/suno/:feature/status
// @Summary      Get remote task status
// @Description  Read and normalize the status of a remote task
// @Tags         Suno
// @Produce      json
// @Param        feature path string true "Feature"
// @Param        taskId query string true "Task ID"
// @Success      200 {object} response.EnvelopeResponse
// @Failure      400 {object} response.EnvelopeResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      502 {object} response.EnvelopeResponse
// @Security     BearerAuth
// @Router       /api/suno/{feature}/status [get]
func (h *SunoHandler) Status(c *fiber.Ctx) error {
	f, ok := model.ParseFeature(c.Params("feature"))
	if !ok {
		return response.EnvelopeError(c, apierr.Validation(map[string]string{"feature": "oneof"}))
	}

	taskID := c.Query("taskId")
	if taskID == "" {
		return response.EnvelopeError(c, apierr.Validation(map[string]string{"taskId": "required"}))
	}

	st, err := h.backend.TaskStatus(c.UserContext(), f, taskID)
	if err != nil {
		return response.EnvelopeError(c, apierr.From(err))
	}

	return response.EnvelopeOK(c, st)
}
