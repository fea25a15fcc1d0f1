package rest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/swsreview/engine/internal/application/export"
	"github.com/swsreview/engine/internal/infrastructure/storage/models"
)

type exportOutlineRepo struct {
	nodes []*models.OutlineNode
}

func (r *exportOutlineRepo) CreateBatch(ctx context.Context, nodes []*models.OutlineNode) error {
	return nil
}
func (r *exportOutlineRepo) FindByVersionID(ctx context.Context, versionID uuid.UUID) ([]*models.OutlineNode, error) {
	return r.nodes, nil
}

type exportBlockRepo struct {
	blocks []*models.Block
}

func (r *exportBlockRepo) CreateBatch(ctx context.Context, blocks []*models.Block) error { return nil }
func (r *exportBlockRepo) FindByVersionID(ctx context.Context, versionID uuid.UUID) ([]*models.Block, error) {
	return r.blocks, nil
}
func (r *exportBlockRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Block, error) {
	return nil, nil
}
func (r *exportBlockRepo) CreateAnchors(ctx context.Context, anchors []*models.PageAnchor) error {
	return nil
}
func (r *exportBlockRepo) FindAnchorsByBlockID(ctx context.Context, blockID uuid.UUID) ([]*models.PageAnchor, error) {
	return nil, nil
}
func (r *exportBlockRepo) SetPreferredAnchor(ctx context.Context, blockID, anchorID uuid.UUID) error {
	return nil
}

func newTestRenderer(versionID, docID uuid.UUID, issues []*models.Issue) *export.Renderer {
	versions := newFakeVersionRepo()
	versions.byID[versionID] = &models.Version{ID: versionID, DocumentID: docID}
	documents := &fakeDocumentRepo{byID: map[uuid.UUID]*models.Document{docID: {ID: docID, Name: "某水土保持方案"}}}
	outlineNode := &models.OutlineNode{ID: uuid.New(), NodeNo: "1", Title: "总论"}
	outlines := &exportOutlineRepo{nodes: []*models.OutlineNode{outlineNode}}
	blocks := &exportBlockRepo{}
	runs := newFakeReviewRunRepo()
	runs.issues = issues
	return export.New(versions, documents, outlines, blocks, runs)
}

func sampleIssue(versionID uuid.UUID) *models.Issue {
	return &models.Issue{
		ID:             uuid.New(),
		VersionID:      versionID,
		RunID:          uuid.New(),
		CheckpointCode: "SUM_MISMATCH",
		ReviewType:     models.ReviewTypeTech,
		IssueType:      "SUM_MISMATCH",
		Severity:       models.SeverityS2,
		Title:          "分项合计与总计不符",
		Status:         models.IssueStatusOpen,
		Confidence:     0.9,
	}
}

func TestHandleExport_DefaultsToXLSXAndReturnsNonEmptyBody(t *testing.T) {
	versionID, docID := uuid.New(), uuid.New()
	renderer := newTestRenderer(versionID, docID, []*models.Issue{sampleIssue(versionID)})
	h := NewExportHandlers(renderer, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/versions/"+versionID.String()+"/export", nil)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: versionID.String()}}

	h.HandleExport(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Body.Bytes())
	assert.Contains(t, rec.Header().Get("Content-Type"), "spreadsheetml")
}

func TestHandleExport_DocxTypeReturnsWordDocument(t *testing.T) {
	versionID, docID := uuid.New(), uuid.New()
	renderer := newTestRenderer(versionID, docID, []*models.Issue{sampleIssue(versionID)})
	h := NewExportHandlers(renderer, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/versions/"+versionID.String()+"/export?type=issues.docx", nil)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: versionID.String()}}

	h.HandleExport(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Body.Bytes())
	assert.Contains(t, rec.Header().Get("Content-Type"), "wordprocessingml")
}

func TestHandleExport_UnknownTypeReturnsBadRequest(t *testing.T) {
	versionID, docID := uuid.New(), uuid.New()
	renderer := newTestRenderer(versionID, docID, nil)
	h := NewExportHandlers(renderer, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/versions/"+versionID.String()+"/export?type=issues.csv", nil)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: versionID.String()}}

	h.HandleExport(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleExport_InvalidVersionIDReturnsBadRequest(t *testing.T) {
	h := NewExportHandlers(newTestRenderer(uuid.New(), uuid.New(), nil), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/versions/not-a-uuid/export", nil)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "not-a-uuid"}}

	h.HandleExport(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
