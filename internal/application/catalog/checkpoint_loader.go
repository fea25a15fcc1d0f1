// Package catalog seeds the checkpoint table from a YAML definition file
// bundled with a deployment, the way the teacher's YAML workflow importer
// turns a declarative file into persisted rows.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/swsreview/engine/internal/domain/repository"
	"github.com/swsreview/engine/internal/infrastructure/storage/models"
)

// checkpointDoc is the on-disk shape of one checkpoint entry.
type checkpointDoc struct {
	Code                string         `yaml:"code"`
	Name                string         `yaml:"name"`
	EngineType          string         `yaml:"engine_type"`
	ReviewType          string         `yaml:"review_type"`
	Enabled             *bool          `yaml:"enabled"`
	OrderIndex          int            `yaml:"order_index"`
	TargetOutlinePrefix string         `yaml:"target_outline_prefix"`
	PromptTemplate      string         `yaml:"prompt_template"`
	RuleConfig          map[string]any `yaml:"rule_config"`
}

type catalogDoc struct {
	Checkpoints []checkpointDoc `yaml:"checkpoints"`
}

// Loader parses a checkpoint catalog YAML file and upserts it via
// repository.CheckpointRepository.
type Loader struct {
	repo repository.CheckpointRepository
}

func NewLoader(repo repository.CheckpointRepository) *Loader {
	return &Loader{repo: repo}
}

// LoadFromReader parses r as a checkpoint catalog and upserts every entry.
func (l *Loader) LoadFromReader(ctx context.Context, r io.Reader) (int, error) {
	var doc catalogDoc
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("decode checkpoint catalog: %w", err)
	}

	for _, cd := range doc.Checkpoints {
		if cd.Code == "" {
			return 0, fmt.Errorf("checkpoint entry missing code")
		}
		enabled := true
		if cd.Enabled != nil {
			enabled = *cd.Enabled
		}
		cp := &models.Checkpoint{
			Code:                cd.Code,
			Name:                cd.Name,
			EngineType:          cd.EngineType,
			ReviewType:          cd.ReviewType,
			Enabled:             enabled,
			OrderIndex:          cd.OrderIndex,
			TargetOutlinePrefix: cd.TargetOutlinePrefix,
			PromptTemplate:      cd.PromptTemplate,
			RuleConfig:          models.JSONBMap(cd.RuleConfig),
		}
		if err := l.repo.Upsert(ctx, cp); err != nil {
			return 0, fmt.Errorf("upsert checkpoint %q: %w", cd.Code, err)
		}
	}
	return len(doc.Checkpoints), nil
}
