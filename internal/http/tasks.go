package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"
)

const taskStatusTimeout = 5 * time.Second

var taskStatusNames = map[backlite.TaskStatus]string{
	backlite.TaskStatusPending: "pending",
	backlite.TaskStatusRunning: "running",
	backlite.TaskStatusSuccess: "success",
	backlite.TaskStatusFailure: "failure",
}

// TaskStatusResponse is the state of a queued maintenance task.
type TaskStatusResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// TasksController lets the admin client poll a sweep it queued.
type TasksController struct {
	queue TaskQueue
}

func NewTasksController(queue TaskQueue) *TasksController {
	return &TasksController{queue: queue}
}

// GetTaskStatus handles GET /api/tasks/:id
func (tc *TasksController) GetTaskStatus(c *gin.Context) {
	id := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request.Context(), taskStatusTimeout)
	defer cancel()

	status, err := tc.queue.Status(ctx, id)
	if err != nil {
		respondInternalError(c, err, "task status")
		return
	}
	if status == backlite.TaskStatusNotFound {
		respondNotFound(c, "task "+id)
		return
	}
	name, known := taskStatusNames[status]
	if !known {
		name = "unknown"
	}
	c.JSON(http.StatusOK, TaskStatusResponse{ID: id, Status: name})
}
