package vectorstore

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/vtc-digital/rag-orchestrator/internal/model"
)

// vectorColumn is the name of the pgvector column on both collections.
const vectorColumn = "embedding"

// Store queries the documents and FAQ collections. Both collections live in
// the same Postgres database, one table each, each with a fixed-size
// pgvector column indexed for cosine distance. The two columns are not
// guaranteed to share a declared dimension — a document collection reindexed
// against a newer embedding model can disagree with the FAQ collection's
// dimension — so each collection's dimension is looked up and cached
// independently rather than assumed to match a single configured value.
type Store struct {
	pool          *pgxpool.Pool
	documentTable string
	faqTable      string

	// fallbackDimension is used when a collection's own dimension can't be
	// determined from pg_attribute (e.g. the lookup query fails), so a
	// transient catalog error doesn't make every search a hard failure.
	fallbackDimension int

	mu   sync.Mutex
	dims map[string]int
}

// New creates a Store. fallbackDimension is only used if the per-collection
// pg_attribute lookup (see CollectionDimension) cannot be completed.
func New(pool *pgxpool.Pool, documentTable, faqTable string, fallbackDimension int) *Store {
	return &Store{
		pool:              pool,
		documentTable:     documentTable,
		faqTable:          faqTable,
		fallbackDimension: fallbackDimension,
		dims:              make(map[string]int, 2),
	}
}

// WarmDimensions looks up and caches the declared vector dimension of both
// collections up front, so the first request against each doesn't pay for
// the catalog query and so a startup log line records what was found. A
// failed lookup (e.g. the table doesn't exist yet) falls back to the
// configured embedding dimension and is logged, rather than aborting
// startup — the per-request reconciliation in ReconcileDimension already
// covers the case where that fallback turns out to be wrong.
func (s *Store) WarmDimensions(ctx context.Context) {
	for _, table := range []string{s.documentTable, s.faqTable} {
		dim, err := s.CollectionDimension(ctx, table, vectorColumn)
		if err != nil {
			slog.Warn("vectorstore: collection dimension lookup failed at startup, using configured fallback",
				"table", table, "field", vectorColumn, "fallback", s.fallbackDimension, "error", err)
			s.cacheDimension(table, vectorColumn, s.fallbackDimension)
			continue
		}
		slog.Info("vectorstore: collection dimension resolved", "table", table, "field", vectorColumn, "dimension", dim)
	}
}

// CollectionDimension returns the declared dimension of a collection's
// vector column, reading pg_attribute's atttypmod (where pgvector stores a
// fixed-size column's declared dimension directly, unlike varchar's
// length-plus-header encoding) the first time it's asked about a given
// (table, field) pair and caching the result for every call after that.
func (s *Store) CollectionDimension(ctx context.Context, table, field string) (int, error) {
	key := dimensionKey(table, field)

	s.mu.Lock()
	if dim, ok := s.dims[key]; ok {
		s.mu.Unlock()
		return dim, nil
	}
	s.mu.Unlock()

	var typmod int
	err := s.pool.QueryRow(ctx, `
		SELECT a.atttypmod
		FROM pg_attribute a
		JOIN pg_class c ON a.attrelid = c.oid
		WHERE c.relname = $1 AND a.attname = $2 AND a.attnum > 0 AND NOT a.attisdropped`,
		table, field,
	).Scan(&typmod)
	if err != nil {
		return 0, fmt.Errorf("vectorstore: collection dimension lookup %s.%s: %w", table, field, err)
	}
	if typmod <= 0 {
		return 0, fmt.Errorf("vectorstore: collection dimension lookup %s.%s: column has no fixed dimension", table, field)
	}

	s.cacheDimension(table, field, typmod)
	return typmod, nil
}

func (s *Store) cacheDimension(table, field string, dim int) {
	s.mu.Lock()
	s.dims[dimensionKey(table, field)] = dim
	s.mu.Unlock()
}

func dimensionKey(table, field string) string {
	return table + "." + field
}

// dimensionFor returns the cached dimension for table, falling back to the
// configured default if it hasn't been resolved (or failed to resolve) yet.
func (s *Store) dimensionFor(table string) int {
	s.mu.Lock()
	dim, ok := s.dims[dimensionKey(table, vectorColumn)]
	s.mu.Unlock()
	if !ok {
		return s.fallbackDimension
	}
	return dim
}

// ReconcileDimension pads queryVec with zeros or truncates it so its length
// matches target, the declared dimension of the collection it's about to be
// searched against. A mismatch is logged at Warn since it usually indicates
// the embedding model was swapped without a matching re-index of that
// collection.
func (s *Store) ReconcileDimension(queryVec []float32, target int) []float32 {
	if len(queryVec) == target {
		return queryVec
	}

	slog.Warn("vectorstore: query vector dimension mismatch, reconciling",
		"got", len(queryVec), "want", target)

	if len(queryVec) > target {
		return queryVec[:target]
	}
	padded := make([]float32, target)
	copy(padded, queryVec)
	return padded
}

// SearchDocuments returns the topK nearest document chunks to queryVec by
// cosine similarity, highest similarity first.
func (s *Store) SearchDocuments(ctx context.Context, queryVec []float32, topK int) ([]model.SearchCandidate, error) {
	return s.search(ctx, s.documentTable, queryVec, topK, false)
}

// SearchFAQ returns the topK nearest FAQ entries to queryVec by cosine
// similarity, highest similarity first. FAQ rows carry separate question
// and answer text used later for multi-variant reranking.
func (s *Store) SearchFAQ(ctx context.Context, queryVec []float32, topK int) ([]model.SearchCandidate, error) {
	return s.search(ctx, s.faqTable, queryVec, topK, true)
}

func (s *Store) search(ctx context.Context, table string, queryVec []float32, topK int, isFAQ bool) ([]model.SearchCandidate, error) {
	reconciled := s.ReconcileDimension(queryVec, s.dimensionFor(table))
	vec := pgvector.NewVector(reconciled)

	var query string
	if isFAQ {
		query = fmt.Sprintf(`
			SELECT id, question, answer, 1 - (embedding <=> $1) AS similarity
			FROM %s
			ORDER BY embedding <=> $1
			LIMIT $2`, table)
	} else {
		query = fmt.Sprintf(`
			SELECT id, content, 1 - (embedding <=> $1) AS similarity
			FROM %s
			ORDER BY embedding <=> $1
			LIMIT $2`, table)
	}

	rows, err := s.pool.Query(ctx, query, vec, topK)
	if err != nil {
		return nil, fmt.Errorf("vectorstore.search %s: %w", table, err)
	}
	defer rows.Close()

	var out []model.SearchCandidate
	for rows.Next() {
		var c model.SearchCandidate
		if isFAQ {
			if err := rows.Scan(&c.ID, &c.Question, &c.Answer, &c.SimilarityScore); err != nil {
				return nil, fmt.Errorf("vectorstore.search %s: scan: %w", table, err)
			}
			c.PayloadText = c.Question + "\n" + c.Answer
		} else {
			if err := rows.Scan(&c.ID, &c.PayloadText, &c.SimilarityScore); err != nil {
				return nil, fmt.Errorf("vectorstore.search %s: scan: %w", table, err)
			}
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vectorstore.search %s: rows: %w", table, err)
	}

	return out, nil
}

// IsLive probes the connection pool with a short-lived query. It is used by
// the health handler and by the classifier's liveness gate: when the vector
// store is unreachable, every request is routed to the REPORTER responder
// rather than failing outright.
func (s *Store) IsLive(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	var one int
	err := s.pool.QueryRow(probeCtx, "SELECT 1").Scan(&one)
	return err == nil && one == 1
}
