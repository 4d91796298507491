package vectorindex

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/craftedsignal/attackmap/catalog"
	"github.com/craftedsignal/attackmap/embed"
)

// Writer is an index that can be populated with technique entries.
type Writer interface {
	Upsert(ctx context.Context, entries []Entry) error
}

// populateBatchSize bounds memory while embedding the full catalog.
const populateBatchSize = 100

// Populate embeds every technique in the catalog and writes the entries to
// the index. The searchable text is the technique name followed by its
// description, matching what retrieval queries are compared against.
func Populate(ctx context.Context, w Writer, cat *catalog.Catalog, embedder embed.Embedder, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	ids := cat.IDs()
	logger.Info("populating vector index", "techniques", len(ids), "model", embedder.Model())

	batch := make([]Entry, 0, populateBatchSize)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}

		tech, err := cat.Get(id)
		if err != nil {
			return err
		}

		vec, err := embedder.Embed(ctx, tech.Name+". "+tech.Description)
		if err != nil {
			return fmt.Errorf("vectorindex: embed %s: %w", id, err)
		}

		batch = append(batch, Entry{
			TechniqueID: id,
			Tactics:     tech.Tactics,
			Vector:      vec,
		})
		if len(batch) == populateBatchSize {
			if err := w.Upsert(ctx, batch); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}

	if len(batch) > 0 {
		if err := w.Upsert(ctx, batch); err != nil {
			return err
		}
	}

	logger.Info("vector index populated", "techniques", len(ids))
	return nil
}

// Upsert implements Writer for MemoryIndex.
func (m *MemoryIndex) Upsert(ctx context.Context, entries []Entry) error {
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := m.Add(e); err != nil {
			return err
		}
	}
	return nil
}
