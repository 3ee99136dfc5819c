package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/librarian/internal/audit"
	"github.com/mrlokans/librarian/internal/tasks"
)

// TaskQueue is the part of tasks.Client the HTTP layer uses.
type TaskQueue interface {
	Enqueue(ctx context.Context, task backlite.Task) (string, error)
	Status(ctx context.Context, taskID string) (backlite.TaskStatus, error)
}

// ImagesController exposes image maintenance.
type ImagesController struct {
	queue   TaskQueue
	sweeper tasks.OrphanSweeper
	audit   *audit.Service
}

func NewImagesController(queue TaskQueue, sweeper tasks.OrphanSweeper, auditSvc *audit.Service) *ImagesController {
	return &ImagesController{queue: queue, sweeper: sweeper, audit: auditSvc}
}

// Sweep handles POST /api/admin/images/sweep
// With a task queue the sweep is enqueued and 202 is returned; otherwise it
// runs inline and the result is returned.
func (ic *ImagesController) Sweep(c *gin.Context) {
	if ic.queue != nil {
		id, err := ic.queue.Enqueue(c.Request.Context(), tasks.SweepOrphanImagesTask{Trigger: "admin"})
		if err != nil {
			respondInternalError(c, err, "enqueue image sweep")
			return
		}
		respondAccepted(c, "task enqueued", gin.H{"task_id": id, "type": tasks.SweepOrphanImagesTask{}.Config().Name})
		return
	}

	if ic.sweeper == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "image sweeper not configured"})
		return
	}
	result, err := tasks.RunSweep(c.Request.Context(), ic.sweeper, ic.audit, "admin")
	if err != nil {
		respondInternalError(c, err, "image sweep")
		return
	}
	respondSuccess(c, "sweep finished", result)
}
