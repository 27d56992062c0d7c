package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/weread-sync/internal/audit"
	"github.com/mrlokans/weread-sync/internal/entities"
)

type AuditController struct {
	auditService *audit.Service
}

func NewAuditController(auditService *audit.Service) *AuditController {
	return &AuditController{
		auditService: auditService,
	}
}

// GetAuditEvents returns paginated audit events as JSON
// GET /api/audit?type=sync&limit=25&offset=0
func (ac *AuditController) GetAuditEvents(c *gin.Context) {
	limit, offset := parsePagination(c)

	var events []entities.AuditEvent
	var total int64
	var err error

	if eventType := c.Query("type"); eventType != "" {
		events, total, err = ac.auditService.GetEventsByType(entities.AuditEventType(eventType), limit, offset)
	} else {
		events, total, err = ac.auditService.GetEvents(limit, offset)
	}
	if err != nil {
		respondInternalError(c, err, "load audit events")
		return
	}

	c.JSON(http.StatusOK, newPaginatedResponse(events, total, limit, offset))
}

// GetRunEvents returns every event recorded by one sync run, oldest first.
// GET /api/audit/runs/:runId
func (ac *AuditController) GetRunEvents(c *gin.Context) {
	runID := c.Param("runId")
	events, err := ac.auditService.GetRunEvents(runID)
	if err != nil {
		respondInternalError(c, err, "load run events")
		return
	}
	if len(events) == 0 {
		respondNotFound(c, "run")
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": runID, "events": events})
}
