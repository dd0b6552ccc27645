package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/quarry/internal/core/domain"
	"github.com/custodia-labs/quarry/internal/core/ports/driven"
	"github.com/custodia-labs/quarry/internal/core/ports/driving"
	"github.com/custodia-labs/quarry/internal/logger"
)

// Ensure QueryService implements the interface.
var _ driving.QueryService = (*QueryService)(nil)

const (
	// DefaultMaxContextChars bounds the context text passed to generation.
	DefaultMaxContextChars = 8000

	// ExtractivePrefix marks answers quoted directly from a document.
	ExtractivePrefix = "From the documents: "

	// NoInformationAnswer is returned when no context was found.
	NoInformationAnswer = "I could not find any relevant information to answer that question."

	answerMaxTokens = 1024
)

// QueryService answers questions by retrieval and generation.
type QueryService struct {
	embedder driven.EmbeddingService
	store    driven.VectorStore
	llm      driven.LLMService
	history  driven.HistoryStore
	tools    driven.ToolCaller
	prompts  driven.PromptStore

	maxContextChars int
	now             func() time.Time
}

// NewQueryService creates a query service.
// The llm and history parameters are optional (can be nil).
func NewQueryService(
	embedder driven.EmbeddingService,
	store driven.VectorStore,
	llm driven.LLMService,
	history driven.HistoryStore,
) *QueryService {
	return &QueryService{
		embedder:        embedder,
		store:           store,
		llm:             llm,
		history:         history,
		maxContextChars: DefaultMaxContextChars,
		now:             time.Now,
	}
}

// SetToolCaller enables live context from tool providers.
func (s *QueryService) SetToolCaller(tools driven.ToolCaller) {
	s.tools = tools
}

// SetPromptStore sets where answer prompts are loaded from.
func (s *QueryService) SetPromptStore(prompts driven.PromptStore) {
	s.prompts = prompts
}

// SetMaxContextChars sets the context character budget.
func (s *QueryService) SetMaxContextChars(n int) {
	if n > 0 {
		s.maxContextChars = n
	}
}

// Query answers a question and records it in history.
func (s *QueryService) Query(ctx context.Context, text string, opts domain.QueryOptions) (*domain.QueryRecord, error) {
	logger.Section("Query")

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: query text is empty", domain.ErrInvalidInput)
	}
	opts = opts.WithDefaults()
	logger.Debug("Query: %q (max=%d, temperature=%.2f, document=%q)",
		text, opts.MaxResults, opts.Temperature, opts.DocumentID)

	hits := s.retrieve(ctx, text, opts.DocumentID, 2*opts.MaxResults)
	candidates := make([]domain.SourceRef, 0, len(hits))
	for _, hit := range hits {
		candidates = append(candidates, domain.SourceRef{
			RecordID:   hit.Record.ID,
			DocumentID: hit.Record.DocumentID(),
			Title:      hit.Record.Title(),
			Text:       hit.Record.Text,
			Similarity: hit.Similarity,
		})
	}
	candidates = append(candidates, s.liveItems(ctx, text, opts)...)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	used := s.assemble(candidates, opts.MaxResults)
	logger.Debug("Candidates: %d, context items: %d", len(candidates), len(used))

	rec := &domain.QueryRecord{
		ID:         uuid.NewString(),
		Query:      text,
		Answer:     s.answer(ctx, text, used, opts.Temperature),
		Sources:    used,
		Confidence: confidence(used),
		CreatedAt:  s.now().UTC(),
		Settings: domain.QuerySettings{
			Temperature: opts.Temperature,
			MaxResults:  opts.MaxResults,
		},
	}

	if s.history != nil {
		if err := s.history.Save(ctx, rec); err != nil {
			logger.Warn("Failed to record query history: %v", err)
		}
	}
	return rec, nil
}

// Search returns the best matching records without generating an answer.
func (s *QueryService) Search(ctx context.Context, text string, opts domain.QueryOptions) ([]domain.VectorHit, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: query text is empty", domain.ErrInvalidInput)
	}
	opts = opts.WithDefaults()

	hits := s.retrieve(ctx, text, opts.DocumentID, opts.MaxResults)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return hits, nil
}

// retrieve embeds the query and searches the store. Failures degrade to no
// hits.
func (s *QueryService) retrieve(ctx context.Context, text, documentID string, limit int) []domain.VectorHit {
	if s.embedder == nil || s.store == nil {
		return nil
	}
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		logger.Warn("Query embedding failed, continuing without retrieval: %v", err)
		return nil
	}
	if len(vec) == 0 {
		return nil
	}

	hits, err := s.store.Search(ctx, vec, domain.SearchFilter{DocumentID: documentID}, limit)
	if err != nil {
		logger.Warn("Vector search failed, continuing without document context: %v", err)
		return nil
	}
	logger.Debug("Vector search returned %d hits", len(hits))
	return hits
}

// liveItems asks each live source for items relevant to the query.
// Live items are skipped when retrieval is scoped to one document.
func (s *QueryService) liveItems(ctx context.Context, text string, opts domain.QueryOptions) []domain.SourceRef {
	if s.tools == nil || opts.DocumentID != "" || len(opts.LiveSources) == 0 {
		return nil
	}

	var refs []domain.SourceRef
	for _, source := range opts.LiveSources {
		raw, err := s.tools.CallTool(ctx, source, driven.ToolLiveItems, map[string]any{
			"query": text,
			"limit": opts.LiveLimit,
		})
		if err != nil {
			logger.Warn("Live items from %s unavailable: %v", source, err)
			continue
		}
		items, err := parseToolItems(raw)
		if err != nil {
			logger.Warn("Live items from %s unreadable: %v", source, err)
			continue
		}
		if len(items) > opts.LiveLimit {
			items = items[:opts.LiveLimit]
		}
		for _, item := range items {
			body := strings.TrimSpace(item.Body)
			if body == "" {
				body = strings.TrimSpace(item.Title)
			}
			if body == "" {
				continue
			}
			refs = append(refs, domain.SourceRef{
				RecordID:   source + ":" + item.ID,
				Title:      item.Title,
				Text:       body,
				Similarity: domain.LiveSimilarity,
				Live:       true,
			})
		}
		logger.Debug("Live items from %s: %d", source, len(items))
	}
	return refs
}

// assemble orders candidates by similarity and applies the item and
// character budgets. The first item is always kept.
func (s *QueryService) assemble(candidates []domain.SourceRef, maxResults int) []domain.SourceRef {
	sorted := make([]domain.SourceRef, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Similarity > sorted[j].Similarity
	})

	used := make([]domain.SourceRef, 0, min(len(sorted), maxResults))
	chars := 0
	for _, ref := range sorted {
		if len(used) == maxResults {
			break
		}
		if len(used) > 0 && chars+len(ref.Text) > s.maxContextChars {
			break
		}
		chars += len(ref.Text)
		used = append(used, ref)
	}
	return used
}

// answer generates a response, falling back to an extractive answer when
// generation is unavailable or fails.
func (s *QueryService) answer(ctx context.Context, question string, used []domain.SourceRef, temperature float64) string {
	if len(used) == 0 {
		return NoInformationAnswer
	}
	if s.llm == nil {
		logger.Debug("No generator configured, answering extractively")
		return extractiveAnswer(question, used)
	}

	prompt := fmt.Sprintf(s.prompt(driven.PromptAnswerUser, driven.DefaultAnswerUserPrompt),
		formatContext(used), question)
	out, err := s.llm.Generate(ctx, prompt, driven.GenerateOptions{
		System:      s.prompt(driven.PromptAnswerSystem, driven.DefaultAnswerSystemPrompt),
		MaxTokens:   answerMaxTokens,
		Temperature: temperature,
	})
	if err == nil && strings.TrimSpace(out) == "" {
		err = errors.New("empty response")
	}
	if err != nil {
		logger.Warn("Generation failed, answering extractively: %v", err)
		return extractiveAnswer(question, used)
	}
	return strings.TrimSpace(out)
}

func (s *QueryService) prompt(name, fallback string) string {
	if s.prompts == nil {
		return fallback
	}
	p, err := s.prompts.Load(name)
	if err != nil || p == "" {
		return fallback
	}
	return p
}

// formatContext numbers context items for the user prompt.
func formatContext(used []domain.SourceRef) string {
	var b strings.Builder
	for i, ref := range used {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%d]", i+1)
		if ref.Title != "" {
			b.WriteString(" " + ref.Title)
		}
		b.WriteString("\n" + ref.Text)
	}
	return b.String()
}

// extractiveAnswer quotes the first matching sentence of the context item
// with the most query-word occurrences.
func extractiveAnswer(question string, used []domain.SourceRef) string {
	if len(used) == 0 {
		return NoInformationAnswer
	}
	words := queryWords(question)
	best, bestCount := 0, -1
	for i, ref := range used {
		if n := countMatches(ref.Text, words); n > bestCount {
			best, bestCount = i, n
		}
	}
	sentence := firstMatchingSentence(used[best].Text, words)
	if sentence == "" {
		return NoInformationAnswer
	}
	return ExtractivePrefix + sentence
}

// confidence is the mean similarity of the used items rounded to 2 decimals.
func confidence(used []domain.SourceRef) float64 {
	if len(used) == 0 {
		return 0
	}
	var sum float64
	for _, ref := range used {
		sum += ref.Similarity
	}
	return math.Round(sum/float64(len(used))*100) / 100
}
