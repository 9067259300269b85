package services

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"alfredoptarigan/hiring-evaluator/internal/logger"
)

// Rubric document types stored in the collection.
const (
	DocTypeScoringRubric  = "scoring_rubric"
	DocTypeRoleProfile    = "role_profile"
	DocTypeInterviewGuide = "interview_guide"
)

const defaultVectorSize = 768 // text-embedding-004

// Passage is one embedded chunk of a reference document.
type Passage struct {
	ID      string
	Source  string
	DocType string
	Text    string
}

type QdrantService interface {
	InitCollection(ctx context.Context) error
	UpsertPassage(ctx context.Context, passage Passage, embedding []float32) error
	SearchSimilar(ctx context.Context, queryEmbedding []float32, docType string, limit int) ([]SearchResult, error)
	DeleteSource(ctx context.Context, source string) error
}

type SearchResult struct {
	ID      string
	Score   float32
	Text    string
	DocType string
}

type qdrantService struct {
	client         *qdrant.Client
	collectionName string
	vectorSize     uint64
	logger         *zap.Logger
}

func NewQdrantService(urlStr, apiKey, collectionName string, log *zap.Logger) (QdrantService, error) {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsed.Hostname()
	if host == "" {
		return nil, fmt.Errorf("invalid Qdrant URL %q: missing host", urlStr)
	}
	useTLS := parsed.Scheme == "https"

	// The Go client speaks gRPC, which Qdrant serves on 6334 by default.
	port := 6334
	if p := parsed.Port(); p != "" {
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &qdrantService{
		client:         client,
		collectionName: collectionName,
		vectorSize:     defaultVectorSize,
		logger:         logger.OrNop(log).With(zap.String("collection", collectionName)),
	}, nil
}

// InitCollection implements QdrantService.
func (q *qdrantService) InitCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if exists {
		q.logger.Info("qdrant collection already exists")
		return nil
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     q.vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	q.logger.Info("qdrant collection created", zap.Uint64("vector_size", q.vectorSize))
	return nil
}

// UpsertPassage implements QdrantService. Point ids derive from the passage
// id, so ingesting the same document twice overwrites instead of duplicating.
func (q *qdrantService) UpsertPassage(ctx context.Context, passage Passage, embedding []float32) error {
	pointID := uuid.NewSHA1(uuid.NameSpaceOID, []byte(q.collectionName+"/"+passage.ID))

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collectionName,
		Wait:           qdrant.PtrOf(true),
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewID(pointID.String()),
			Vectors: qdrant.NewVectors(embedding...),
			Payload: qdrant.NewValueMap(map[string]any{
				"doc_id":   passage.ID,
				"source":   passage.Source,
				"doc_type": passage.DocType,
				"text":     passage.Text,
			}),
		}},
	})
	if err != nil {
		return fmt.Errorf("failed to upsert passage %s: %w", passage.ID, err)
	}

	return nil
}

// SearchSimilar implements QdrantService.
func (q *qdrantService) SearchSimilar(ctx context.Context, queryEmbedding []float32, docType string, limit int) ([]SearchResult, error) {
	var filter *qdrant.Filter
	if docType != "" {
		filter = &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("doc_type", docType),
			},
		}
	}

	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collectionName,
		Query:          qdrant.NewQuery(queryEmbedding...),
		Filter:         filter,
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	results := make([]SearchResult, 0, len(points))
	for _, point := range points {
		results = append(results, SearchResult{
			ID:      payloadString(point.Payload, "doc_id"),
			Score:   point.Score,
			Text:    payloadString(point.Payload, "text"),
			DocType: payloadString(point.Payload, "doc_type"),
		})
	}

	return results, nil
}

func payloadString(payload map[string]*qdrant.Value, key string) string {
	value, ok := payload[key]
	if !ok {
		return ""
	}
	if s, ok := value.GetKind().(*qdrant.Value_StringValue); ok {
		return s.StringValue
	}
	return ""
}

// DeleteSource implements QdrantService by removing every passage of one
// reference document.
func (q *qdrantService) DeleteSource(ctx context.Context, source string) error {
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collectionName,
		Wait:           qdrant.PtrOf(true),
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("source", source),
			},
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to delete passages of %s: %w", source, err)
	}

	q.logger.Debug("removed previous passages", zap.String("source", source))
	return nil
}

// RubricRetriever supplies scoring guidance for the evaluation prompt.
type RubricRetriever interface {
	Retrieve(ctx context.Context, query string) (string, error)
}

// VectorSearcher is the part of QdrantService the retriever needs.
type VectorSearcher interface {
	SearchSimilar(ctx context.Context, queryEmbedding []float32, docType string, limit int) ([]SearchResult, error)
}

type rubricRetriever struct {
	store    VectorSearcher
	embedder Embedder
	docTypes []string
	limit    int
}

// NewRubricRetriever searches each document type for the closest passages.
func NewRubricRetriever(store VectorSearcher, embedder Embedder, limit int, docTypes ...string) RubricRetriever {
	if limit <= 0 {
		limit = 3
	}
	if len(docTypes) == 0 {
		docTypes = []string{DocTypeScoringRubric, DocTypeRoleProfile}
	}
	return &rubricRetriever{store: store, embedder: embedder, docTypes: docTypes, limit: limit}
}

func (r *rubricRetriever) Retrieve(ctx context.Context, query string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", nil
	}

	embedding, err := r.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		return "", fmt.Errorf("failed to embed rubric query: %w", err)
	}

	var all []SearchResult
	for _, docType := range r.docTypes {
		results, err := r.store.SearchSimilar(ctx, embedding, docType, r.limit)
		if err != nil {
			return "", fmt.Errorf("failed to search %s: %w", docType, err)
		}
		all = append(all, results...)
	}

	return FormatRAGContext(all), nil
}
