package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/makeasinger/musicgen/internal/apierr"
	"github.com/makeasinger/musicgen/internal/model"
	"github.com/makeasinger/musicgen/internal/service"
	"github.com/makeasinger/musicgen/pkg/response"
)

type JobHandler struct {
	service *service.JobService
}

func NewJobHandler(svc *service.JobService) *JobHandler {
	return &JobHandler{service: svc}
}

// Start handles POST /api/jobs/:feature
// @Summary      Start a background job
// @Description  Queue a remote task that the worker drives to completion, streaming progress on /ws/jobs/{jobId}
// @Tags         Jobs
// @Accept       json
// @Produce      json
// @Param        feature path string true "Feature"
// @Success      202 {object} model.JobStartResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/jobs/{feature} [post]
func (h *JobHandler) Start(c *fiber.Ctx) error {
	f, ok := model.ParseFeature(c.Params("feature"))
	if !ok {
		return response.ValidationError(c, "Unknown feature", map[string]string{"feature": "oneof"})
	}

	userID, _ := c.Locals("userId").(string)
	result, err := h.service.StartJob(c.UserContext(), f, userID, c.Body())
	if err != nil {
		if e, ok := apierr.As(err); ok {
			return response.APIError(c, e)
		}
		return response.ServiceError(c, err.Error())
	}

	return response.Accepted(c, result)
}

// Status handles GET /api/jobs/:jobId
// @Summary      Get job status
// @Description  Get the current status, remote status and attempt count of a job
// @Tags         Jobs
// @Produce      json
// @Param        jobId path string true "Job ID"
// @Success      200 {object} model.Job
// @Failure      401 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/jobs/{jobId} [get]
func (h *JobHandler) Status(c *fiber.Ctx) error {
	job, err := h.service.GetJob(c.UserContext(), c.Params("jobId"))
	if err != nil {
		return jobError(c, err)
	}
	return response.OK(c, job)
}

// Result handles GET /api/jobs/:jobId/result
// @Summary      Get job result
// @Description  Get the result of a succeeded job
// @Tags         Jobs
// @Produce      json
// @Param        jobId path string true "Job ID"
// @Success      200 {object} object
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/jobs/{jobId}/result [get]
func (h *JobHandler) Result(c *fiber.Ctx) error {
	result, err := h.service.GetResult(c.UserContext(), c.Params("jobId"))
	if err != nil {
		return jobError(c, err)
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(result)
}

// Cancel handles POST /api/jobs/:jobId/cancel
// @Summary      Cancel job
// @Description  Cancel a queued or running job; polling stops on the next status check
// @Tags         Jobs
// @Produce      json
// @Param        jobId path string true "Job ID"
// @Success      200 {object} model.JobCancelResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/jobs/{jobId}/cancel [post]
func (h *JobHandler) Cancel(c *fiber.Ctx) error {
	result, err := h.service.CancelJob(c.UserContext(), c.Params("jobId"))
	if err != nil {
		return jobError(c, err)
	}
	return response.OK(c, result)
}

func jobError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrJobNotFound):
		return response.NotFound(c, "Job not found")
	case errors.Is(err, service.ErrJobNotCompleted):
		return response.ValidationError(c, "Job not completed yet", nil)
	case errors.Is(err, service.ErrJobFinished):
		return response.ValidationError(c, "Job already completed", nil)
	}
	return response.ServiceError(c, err.Error())
}
