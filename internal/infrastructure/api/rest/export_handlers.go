package rest

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/swsreview/engine/internal/application/export"
	"github.com/swsreview/engine/internal/infrastructure/logger"
)

// ExportHandlers streams the spreadsheet and Word issue exports
// (§1: GET|POST /api/versions/:id/export?type=issues.xlsx|issues.docx).
type ExportHandlers struct {
	renderer *export.Renderer
	logger   *logger.Logger
}

func NewExportHandlers(renderer *export.Renderer, log *logger.Logger) *ExportHandlers {
	return &ExportHandlers{renderer: renderer, logger: log}
}

func (h *ExportHandlers) HandleExport(c *gin.Context) {
	idStr, ok := getParam(c, "id")
	if !ok {
		return
	}
	versionID, err := uuid.Parse(idStr)
	if err != nil {
		respondAPIErrorWithRequestID(c, NewAPIError("INVALID_ID", "id must be a uuid", http.StatusBadRequest))
		return
	}

	filter := export.Filter{
		Status:   getQuery(c, "status", ""),
		Severity: getQuery(c, "severity", ""),
	}

	ctx := c.Request.Context()
	switch getQuery(c, "type", "issues.xlsx") {
	case "issues.docx":
		h.streamDocx(ctx, c, versionID, filter)
	case "issues.xlsx":
		h.streamXLSX(ctx, c, versionID, filter)
	default:
		respondAPIErrorWithRequestID(c, NewAPIError("INVALID_TYPE", "type must be issues.xlsx or issues.docx", http.StatusBadRequest))
	}
}

func (h *ExportHandlers) streamXLSX(ctx context.Context, c *gin.Context, versionID uuid.UUID, filter export.Filter) {
	data, err := h.renderer.RenderXLSX(ctx, versionID, filter)
	if err != nil {
		respondAPIErrorWithRequestID(c, err)
		return
	}
	filename := fmt.Sprintf("issues-%s.xlsx", versionID)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func (h *ExportHandlers) streamDocx(ctx context.Context, c *gin.Context, versionID uuid.UUID, filter export.Filter) {
	data, err := h.renderer.RenderDOCX(ctx, versionID, filter)
	if err != nil {
		respondAPIErrorWithRequestID(c, err)
		return
	}
	filename := fmt.Sprintf("issues-%s.docx", versionID)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.wordprocessingml.document", data)
}
