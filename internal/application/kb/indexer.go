package kb

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/google/uuid"

	"github.com/swsreview/engine/internal/domain/repository"
	"github.com/swsreview/engine/internal/infrastructure/logger"
	"github.com/swsreview/engine/internal/infrastructure/objectstore"
	"github.com/swsreview/engine/internal/infrastructure/storage/models"
)

// Indexer (re)builds a KBSource's chunk set. A DOCUMENT source's text is
// the plain-text object stored at the source's ObjectKey, read as-is; a
// WEB source is fetched and boilerplate-stripped at index time.
type Indexer struct {
	repo    repository.KBRepository
	store   objectstore.Store
	client  *http.Client
	logger  *logger.Logger
}

// NewIndexer wires a KB indexer against its repository and object store.
func NewIndexer(repo repository.KBRepository, store objectstore.Store, log *logger.Logger) *Indexer {
	return &Indexer{
		repo:   repo,
		store:  store,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: log,
	}
}

// IndexSource (re)chunks one source and replaces its chunk set.
func (idx *Indexer) IndexSource(ctx context.Context, source *models.KBSource) error {
	var text string
	var err error

	switch source.KBType {
	case models.KBSourceTypeWeb:
		text, err = idx.extractWeb(ctx, source.SourceURL)
	case models.KBSourceTypeDocument:
		text, err = idx.extractDocument(ctx, source.ObjectKey)
	default:
		err = fmt.Errorf("kb: unknown source type %q", source.KBType)
	}
	if err != nil {
		_ = idx.repo.UpdateSourceStatus(ctx, source.ID, models.KBSourceStatusFailed)
		return fmt.Errorf("kb: extract source %s: %w", source.ID, err)
	}

	chunks := Split(text, nil)
	rows := make([]*models.KBChunk, len(chunks))
	for i, c := range chunks {
		rows[i] = &models.KBChunk{
			ID:          uuid.New(),
			SourceID:    source.ID,
			ChunkIndex:  c.Index,
			Text:        c.Text,
			ContentHash: c.ContentHash,
			CharStart:   c.CharStart,
			CharEnd:     c.CharEnd,
			PageStart:   c.PageStart,
			PageEnd:     c.PageEnd,
		}
	}

	if err := idx.repo.ReplaceChunks(ctx, source.ID, rows); err != nil {
		_ = idx.repo.UpdateSourceStatus(ctx, source.ID, models.KBSourceStatusFailed)
		return fmt.Errorf("kb: replace chunks for source %s: %w", source.ID, err)
	}
	return idx.repo.UpdateSourceStatus(ctx, source.ID, models.KBSourceStatusReady)
}

// ReindexAll re-chunks every registered source; implements
// internal/application/sweep.KBReindexer for the periodic sweep.
func (idx *Indexer) ReindexAll(ctx context.Context) error {
	sources, err := idx.repo.FindAllSources(ctx)
	if err != nil {
		return fmt.Errorf("kb: list sources: %w", err)
	}
	for _, s := range sources {
		if err := idx.IndexSource(ctx, s); err != nil {
			idx.logger.Error("kb reindex failed", "source_id", s.ID, "error", err)
		}
	}
	return nil
}

// extractWeb fetches a page and strips chrome/boilerplate with
// go-readability, falling back to goquery's plain text extraction if
// readability can't find an article body.
func (idx *Indexer) extractWeb(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := idx.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	article, err := readability.FromReader(bytes.NewReader(body), nil)
	if err == nil && article.TextContent != "" {
		return article.TextContent, nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	return doc.Find("body").Text(), nil
}

// extractDocument reads the object at objectKey from the object store
// and returns its bytes as plain text; the ingestion pipeline does not
// produce this object.
func (idx *Indexer) extractDocument(ctx context.Context, objectKey string) (string, error) {
	r, err := idx.store.Get(ctx, objectKey)
	if err != nil {
		return "", err
	}
	defer r.Close()
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
