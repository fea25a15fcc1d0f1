package rest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/swsreview/engine/internal/application/progress"
	"github.com/swsreview/engine/internal/domain/repository"
	"github.com/swsreview/engine/internal/infrastructure/logger"
	"github.com/swsreview/engine/internal/infrastructure/objectstore"
	"github.com/swsreview/engine/internal/infrastructure/storage/models"
)

// PipelineRunner starts the ingestion pipeline for a Version, matching
// internal/application/pipeline.Pipeline.Run's signature.
type PipelineRunner interface {
	Run(ctx context.Context, versionID uuid.UUID) error
}

// VersionHandlers exposes upload and status endpoints for Versions
// (§1: POST /api/documents/:id/versions, GET /api/versions/:id).
type VersionHandlers struct {
	versions  repository.VersionRepository
	documents repository.DocumentRepository
	store     objectstore.Store
	pipeline  PipelineRunner
	logger    *logger.Logger
}

func NewVersionHandlers(
	versions repository.VersionRepository,
	documents repository.DocumentRepository,
	store objectstore.Store,
	pipeline PipelineRunner,
	log *logger.Logger,
) *VersionHandlers {
	return &VersionHandlers{versions: versions, documents: documents, store: store, pipeline: pipeline, logger: log}
}

const maxUploadSize = 100 << 20 // 100MiB, generous for a single DOCX plan

// HandleUploadVersion accepts a multipart "file" field containing a DOCX,
// stores it, creates a Version row, and kicks off the ingestion pipeline
// in the background.
func (h *VersionHandlers) HandleUploadVersion(c *gin.Context) {
	documentIDStr, ok := getParam(c, "document_id")
	if !ok {
		return
	}
	documentID, err := uuid.Parse(documentIDStr)
	if err != nil {
		respondAPIErrorWithRequestID(c, NewAPIError("INVALID_ID", "document_id must be a uuid", http.StatusBadRequest))
		return
	}

	doc, err := h.documents.FindByID(c.Request.Context(), documentID)
	if err != nil {
		respondAPIErrorWithRequestID(c, err)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondAPIErrorWithRequestID(c, NewAPIError("MISSING_FILE", "file is required", http.StatusBadRequest))
		return
	}
	if fileHeader.Size > maxUploadSize {
		respondAPIErrorWithRequestID(c, NewAPIError("FILE_TOO_LARGE", "file exceeds the upload size limit", http.StatusRequestEntityTooLarge))
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		respondAPIErrorWithRequestID(c, err)
		return
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		respondAPIErrorWithRequestID(c, err)
		return
	}

	existing, err := h.versions.FindByDocumentID(c.Request.Context(), doc.ID)
	if err != nil {
		respondAPIErrorWithRequestID(c, err)
		return
	}

	v := &models.Version{
		DocumentID: doc.ID,
		VersionNo:  len(existing) + 1,
		Status:     models.VersionStatusUploaded,
	}
	if err := h.versions.Create(c.Request.Context(), v); err != nil {
		respondAPIErrorWithRequestID(c, err)
		return
	}

	objectKey := fmt.Sprintf("documents/%s/versions/%s/source.docx", doc.ID, v.ID)
	if _, err := h.store.Put(c.Request.Context(), objectKey, bytes.NewReader(data)); err != nil {
		respondAPIErrorWithRequestID(c, err)
		return
	}
	v.SourceObjectKey = objectKey
	if err := h.versions.Update(c.Request.Context(), v); err != nil {
		respondAPIErrorWithRequestID(c, err)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
		defer cancel()
		if err := h.pipeline.Run(ctx, v.ID); err != nil {
			h.logger.Error("pipeline run failed", "version_id", v.ID, "error", err)
		}
	}()

	respondJSON(c, http.StatusAccepted, v)
}

// HandleGetVersion returns a Version's current status/progress.
func (h *VersionHandlers) HandleGetVersion(c *gin.Context) {
	idStr, ok := getParam(c, "id")
	if !ok {
		return
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		respondAPIErrorWithRequestID(c, NewAPIError("INVALID_ID", "id must be a uuid", http.StatusBadRequest))
		return
	}
	v, err := h.versions.FindByID(c.Request.Context(), id)
	if err != nil {
		respondAPIErrorWithRequestID(c, err)
		return
	}
	respondJSON(c, http.StatusOK, v)
}

// HandleStreamProgress serves an SSE stream of progress.Event updates
// scoped to subjectID (a Version or ReviewRun ID), registering a
// per-connection progress.Observer for the duration of the request.
func HandleStreamProgress(bus *progress.Bus) gin.HandlerFunc {
	return func(c *gin.Context) {
		subjectID, ok := getParam(c, "id")
		if !ok {
			return
		}

		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")

		events := make(chan progress.Event, 16)
		name := "sse-" + uuid.New().String()
		observer := &sseObserver{name: name, subjectID: subjectID, events: events}
		if err := bus.Register(observer); err != nil {
			respondAPIErrorWithRequestID(c, err)
			return
		}
		defer bus.Unregister(name)

		c.Stream(func(w io.Writer) bool {
			select {
			case ev, open := <-events:
				if !open {
					return false
				}
				fmt.Fprintf(w, "event: %s\ndata: {\"progress\":%d,\"stage\":%q,\"message\":%q}\n\n", ev.Type, ev.Progress, ev.Stage, ev.Message)
				return ev.Type != progress.EventRunCompleted && ev.Type != progress.EventRunFailed && ev.Type != progress.EventStageFailed
			case <-c.Request.Context().Done():
				return false
			}
		})
	}
}

type sseObserver struct {
	name      string
	subjectID string
	events    chan progress.Event
}

func (o *sseObserver) Name() string { return o.name }

func (o *sseObserver) OnEvent(event progress.Event) {
	if event.SubjectID != o.subjectID {
		return
	}
	select {
	case o.events <- event:
	default:
	}
}
