package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/makeasinger/musicgen/internal/store"
	"github.com/makeasinger/musicgen/pkg/response"
)

type TaskHandler struct {
	store store.TaskStore
}

func NewTaskHandler(s store.TaskStore) *TaskHandler {
	return &TaskHandler{store: s}
}

// Get handles GET /api/tasks/:taskId
// @Summary      Get a finished task
// @Description  Get the persisted outcome of a finished remote task
// @Tags         Tasks
// @Produce      json
// @Param        taskId path string true "Task ID"
// @Success      200 {object} model.TaskRecord
// @Failure      401 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/tasks/{taskId} [get]
func (h *TaskHandler) Get(c *fiber.Ctx) error {
	rec, err := h.store.Load(c.UserContext(), c.Params("taskId"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Task not found")
		}
		return response.ServiceError(c, err.Error())
	}
	return response.OK(c, rec)
}
