// Package memory maintains a semantic index of recorded corrections so the
// processor can surface similar past corrections as context for new turns.
package memory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	chromem "github.com/philippgille/chromem-go"

	"github.com/addestra-labs/addestra/internal/embeddings"
)

const collectionName = "corrections"

// Entry is a correction as stored in the semantic index.
type Entry struct {
	ID             string
	TenantID       string
	Module         string
	EntityType     string
	EntityID       string
	FieldPath      string
	OriginalValue  string
	CorrectedValue string
	RuleSummary    string
}

// Result is a search hit with its similarity score.
type Result struct {
	Entry      Entry
	Content    string
	Similarity float32
}

// Store is a chromem-backed index of correction entries.
type Store struct {
	db         *chromem.DB
	collection *chromem.Collection
	embedder   embeddings.Embedder
}

// NewStore creates a new in-memory correction index.
func NewStore(embedder embeddings.Embedder) (*Store, error) {
	db := chromem.NewDB()
	ef := embeddings.ToChromemFunc(embedder)

	col, err := db.GetOrCreateCollection(collectionName, nil, ef)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	return &Store{
		db:         db,
		collection: col,
		embedder:   embedder,
	}, nil
}

// Add indexes a correction entry.
func (s *Store) Add(ctx context.Context, e Entry) error {
	doc := chromem.Document{
		ID:      e.ID,
		Content: renderContent(e),
		Metadata: map[string]string{
			"tenant_id":   e.TenantID,
			"module":      e.Module,
			"entity_type": e.EntityType,
			"entity_id":   e.EntityID,
			"field_path":  e.FieldPath,
		},
	}
	return s.collection.AddDocuments(ctx, []chromem.Document{doc}, 1)
}

// SearchSimilar returns corrections for the tenant most similar to the query
// text. Results are always scoped to one tenant.
func (s *Store) SearchSimilar(ctx context.Context, tenantID, query string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 5
	}

	// chromem-go requires nResults <= collection size.
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if limit > count {
		limit = count
	}

	where := map[string]string{"tenant_id": tenantID}

	results, err := s.collection.Query(ctx, query, limit, where, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	out := make([]Result, len(results))
	for i, r := range results {
		out[i] = Result{
			Entry: Entry{
				ID:         r.ID,
				TenantID:   r.Metadata["tenant_id"],
				Module:     r.Metadata["module"],
				EntityType: r.Metadata["entity_type"],
				EntityID:   r.Metadata["entity_id"],
				FieldPath:  r.Metadata["field_path"],
			},
			Content:    r.Content,
			Similarity: r.Similarity,
		}
	}
	return out, nil
}

// Count returns the number of indexed corrections.
func (s *Store) Count() int {
	return s.collection.Count()
}

// Persist writes the index to disk.
func (s *Store) Persist(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create memory dir: %w", err)
	}
	return s.db.ExportToFile(filepath.Join(dir, "corrections.gob.gz"), true, "")
}

// Load restores a persisted index. A missing file is not an error; the
// index simply starts empty.
func (s *Store) Load(dir string) error {
	path := filepath.Join(dir, "corrections.gob.gz")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := s.db.ImportFromFile(path, ""); err != nil {
		return fmt.Errorf("import memory index: %w", err)
	}

	// The import replaces collection state inside the DB; re-resolve the
	// handle so reads see the restored documents.
	col, err := s.db.GetOrCreateCollection(collectionName, nil, embeddings.ToChromemFunc(s.embedder))
	if err != nil {
		return fmt.Errorf("reopen collection: %w", err)
	}
	s.collection = col
	return nil
}

func renderContent(e Entry) string {
	content := fmt.Sprintf("[%s] %s %s: field %s changed from %q to %q",
		e.Module, e.EntityType, e.EntityID, e.FieldPath, e.OriginalValue, e.CorrectedValue)
	if e.RuleSummary != "" {
		content += ". " + e.RuleSummary
	}
	return content
}
