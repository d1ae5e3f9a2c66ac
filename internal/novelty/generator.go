package novelty

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/npatel023/tutorgraph/internal/generation"
	"github.com/npatel023/tutorgraph/internal/store"
)

// Config controls the Generator's retry behavior.
type Config struct {
	// MaxAttempts is the number of generation calls before a colliding
	// item is accepted as a flagged duplicate. Generation quality is
	// probabilistic; the learner is never blocked indefinitely.
	MaxAttempts int
}

// DefaultConfig returns a Config with recommended defaults.
func DefaultConfig() Config {
	return Config{MaxAttempts: 3}
}

// Generator produces practice items whose fingerprints are new to the
// session, retrying with a growing exclusion list on collision.
type Generator struct {
	svc      generation.Service
	items    store.ItemRepo
	registry store.RegistryRepo
	cfg      Config
	log      *zap.SugaredLogger
}

// NewGenerator creates a novelty-constrained generator. MaxAttempts is
// clamped to at least one call, so a zero-value Config still generates.
func NewGenerator(svc generation.Service, items store.ItemRepo, registry store.RegistryRepo, cfg Config, log *zap.SugaredLogger) *Generator {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Generator{svc: svc, items: items, registry: registry, cfg: cfg, log: log}
}

// GenerateItem produces and persists one item of the given kind for the
// session. The returned record's fingerprint is registered before the
// call returns, so a concurrent request for the same session cannot
// race to the same fingerprint. After MaxAttempts collisions the last
// candidate is accepted with Duplicate set.
func (g *Generator) GenerateItem(ctx context.Context, sessionID uuid.UUID, kind store.ItemKind, lesson generation.LessonContext) (*store.GeneratedItem, *generation.Item, error) {
	excluded, err := g.items.ListPrompts(ctx, sessionID, kind)
	if err != nil {
		return nil, nil, fmt.Errorf("load exclusion list: %w", err)
	}

	var candidate *generation.Item
	var fingerprint string

	for attempt := 0; attempt < g.cfg.MaxAttempts; attempt++ {
		candidate, err = g.generate(ctx, kind, lesson, excluded)
		if err != nil {
			return nil, nil, err
		}

		fingerprint = ItemFingerprint(candidate)
		inserted, err := g.registry.Insert(ctx, sessionID, kind, fingerprint)
		if err != nil {
			return nil, nil, fmt.Errorf("register fingerprint: %w", err)
		}
		if inserted {
			record, err := g.persist(ctx, sessionID, kind, candidate, fingerprint, false)
			if err != nil {
				return nil, nil, err
			}
			return record, candidate, nil
		}

		g.log.Debugw("generated item collided, retrying",
			"session_id", sessionID,
			"kind", kind,
			"attempt", attempt+1,
		)
		excluded = append(excluded, candidate.Prompt)
	}

	// Accept the duplicate rather than block the learner.
	g.log.Warnw("accepting duplicate item after exhausted attempts",
		"session_id", sessionID,
		"kind", kind,
		"attempts", g.cfg.MaxAttempts,
	)
	record, err := g.persist(ctx, sessionID, kind, candidate, fingerprint, true)
	if err != nil {
		return nil, nil, err
	}
	return record, candidate, nil
}

func (g *Generator) generate(ctx context.Context, kind store.ItemKind, lesson generation.LessonContext, excluded []string) (*generation.Item, error) {
	if kind == store.KindAssessmentQuestion {
		return g.svc.GenerateAssessmentQuestion(ctx, lesson, excluded)
	}
	return g.svc.GenerateExercise(ctx, lesson, excluded)
}

func (g *Generator) persist(ctx context.Context, sessionID uuid.UUID, kind store.ItemKind, item *generation.Item, fingerprint string, duplicate bool) (*store.GeneratedItem, error) {
	payload, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("marshal item payload: %w", err)
	}

	record := &store.GeneratedItem{
		SessionID:   sessionID,
		Kind:        kind,
		ItemType:    string(item.ItemType),
		Payload:     datatypes.JSON(payload),
		Fingerprint: fingerprint,
		Duplicate:   duplicate,
	}
	if err := g.items.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("persist item: %w", err)
	}
	return record, nil
}
