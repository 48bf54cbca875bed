// Package rank orders catalog items against a query, by embedding cosine
// similarity when the capability answers and by keyword overlap otherwise.
package rank

import (
	"context"
	"encoding/binary"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/aretw0/conserje/internal/logging"
	"github.com/aretw0/conserje/internal/text"
	"github.com/aretw0/conserje/pkg/domain"
	"github.com/aretw0/conserje/pkg/ports"
)

// Path names the scoring method behind a Ranking. Scores of different paths
// are on different scales and must never be compared.
type Path string

const (
	PathEmbedding Path = "embedding"
	PathKeyword   Path = "keyword"
)

// Acceptance thresholds per path.
const (
	EmbeddingResolution = 0.22
	KeywordResolution   = 2
	EmbeddingShortlist  = 0.20
	KeywordShortlist    = 1
)

// Entry is a scored item.
type Entry struct {
	Item  domain.CatalogItem
	Score float64
}

// Ranking is an ordered list of entries plus the path that produced it.
type Ranking struct {
	Entries []Entry
	Path    Path
}

// Top returns the best entry.
func (r Ranking) Top() (Entry, bool) {
	if len(r.Entries) == 0 {
		return Entry{}, false
	}
	return r.Entries[0], true
}

// Items returns at most n ranked items (n <= 0 means all).
func (r Ranking) Items(n int) []domain.CatalogItem {
	if n <= 0 || n > len(r.Entries) {
		n = len(r.Entries)
	}
	out := make([]domain.CatalogItem, 0, n)
	for _, e := range r.Entries[:n] {
		out = append(out, e.Item)
	}
	return out
}

// ResolutionThreshold is the score the top entry needs to become the active item.
func (r Ranking) ResolutionThreshold() float64 {
	if r.Path == PathEmbedding {
		return EmbeddingResolution
	}
	return KeywordResolution
}

// ShortlistThreshold is the score the top entry needs for a shortlist answer.
func (r Ranking) ShortlistThreshold() float64 {
	if r.Path == PathEmbedding {
		return EmbeddingShortlist
	}
	return KeywordShortlist
}

// Resolved returns the top item when it clears the resolution threshold.
func (r Ranking) Resolved() (domain.CatalogItem, bool) {
	top, ok := r.Top()
	if !ok || top.Score < r.ResolutionThreshold() {
		return domain.CatalogItem{}, false
	}
	return top.Item, true
}

// Ranker scores items. It is safe for concurrent use; the caches it reads
// through must be too.
type Ranker struct {
	embedder ports.Embedder
	vectors  ports.KVCache
	texts    ports.KVCache
	version  string
	model    string
	logger   *slog.Logger
}

// Option configures a Ranker.
type Option func(*Ranker)

// WithEmbedder enables the embedding path.
func WithEmbedder(e ports.Embedder) Option {
	return func(r *Ranker) {
		r.embedder = e
		if m, ok := e.(ports.ModelNamer); ok {
			r.model = m.Model()
		}
	}
}

// WithVectorCache sets the read-through cache for embedding vectors.
func WithVectorCache(c ports.KVCache) Option {
	return func(r *Ranker) { r.vectors = c }
}

// WithTextCache sets the read-through cache for derived item texts.
func WithTextCache(c ports.KVCache) Option {
	return func(r *Ranker) { r.texts = c }
}

// WithLogger sets the logger used for degradations.
func WithLogger(l *slog.Logger) Option {
	return func(r *Ranker) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a Ranker for one catalog version.
func New(catalogVersion string, opts ...Option) *Ranker {
	r := &Ranker{version: catalogVersion, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rank orders items against query. It never mutates items.
func (r *Ranker) Rank(ctx context.Context, query string, items []domain.CatalogItem) Ranking {
	if len(items) == 0 {
		return Ranking{Entries: []Entry{}, Path: PathKeyword}
	}
	texts := make([]string, len(items))
	for i, item := range items {
		texts[i] = r.itemText(ctx, item)
	}

	entries := make([]Entry, len(items))
	path := PathKeyword
	if vecs, ok := r.embed(ctx, append([]string{query}, texts...)); ok {
		path = PathEmbedding
		for i, item := range items {
			entries[i] = Entry{Item: item, Score: Cosine(vecs[0], vecs[i+1])}
		}
	} else {
		for i, item := range items {
			entries[i] = Entry{Item: item, Score: float64(keywordScore(query, texts[i]))}
		}
	}

	sort.SliceStable(entries, func(a, b int) bool { return entries[a].Score > entries[b].Score })
	return Ranking{Entries: entries, Path: path}
}

func (r *Ranker) embed(ctx context.Context, texts []string) ([][]float32, bool) {
	if r.embedder == nil {
		return nil, false
	}
	out := make([][]float32, len(texts))
	var missing []string
	var missingAt []int
	for i, t := range texts {
		if v, ok := r.cachedVector(ctx, t); ok {
			out[i] = v
			continue
		}
		missing = append(missing, t)
		missingAt = append(missingAt, i)
	}
	if len(missing) == 0 {
		return out, true
	}

	vecs, err := r.embedder.Embed(ctx, missing)
	if err != nil {
		r.logger.Warn("embedding unavailable, using keyword ranking", "err", err)
		return nil, false
	}
	if len(vecs) != len(missing) {
		r.logger.Warn("embedding count mismatch, using keyword ranking", "want", len(missing), "got", len(vecs))
		return nil, false
	}
	for j, v := range vecs {
		out[missingAt[j]] = v
		r.storeVector(ctx, missing[j], v)
	}
	return out, true
}

func (r *Ranker) vectorKey(t string) string {
	d := xxhash.New()
	_, _ = d.WriteString(r.model)
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(t)
	return "emb:" + strconv.FormatUint(d.Sum64(), 16)
}

func (r *Ranker) cachedVector(ctx context.Context, t string) ([]float32, bool) {
	if r.vectors == nil {
		return nil, false
	}
	raw, ok, err := r.vectors.Get(ctx, r.vectorKey(t))
	if err != nil {
		r.logger.Warn("vector cache read failed", "err", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	v, ok := decodeVector(raw)
	return v, ok
}

func (r *Ranker) storeVector(ctx context.Context, t string, v []float32) {
	if r.vectors == nil {
		return
	}
	if err := r.vectors.Put(ctx, r.vectorKey(t), encodeVector(v)); err != nil {
		r.logger.Warn("vector cache write failed", "err", err)
	}
}

func (r *Ranker) itemText(ctx context.Context, item domain.CatalogItem) string {
	if r.texts == nil {
		return ItemText(item)
	}
	key := "txt:" + r.version + ":" + item.ID
	if raw, ok, err := r.texts.Get(ctx, key); err == nil && ok {
		return string(raw)
	}
	t := ItemText(item)
	if err := r.texts.Put(ctx, key, []byte(t)); err != nil {
		r.logger.Warn("text cache write failed", "err", err)
	}
	return t
}

// ItemText concatenates the descriptive fields of an item.
func ItemText(item domain.CatalogItem) string {
	return text.JoinNonEmpty(" ",
		item.Name,
		item.Subcategory,
		item.Factual,
		item.Experiential,
		strings.Join(item.Restrictions, " "),
		strings.Join(item.Conditions, " "),
		strings.Join(item.Phrases, " "),
	)
}

// KeywordScore counts the distinct query tokens (4+ chars) found in the item text.
func KeywordScore(query string, item domain.CatalogItem) int {
	return keywordScore(query, ItemText(item))
}

func keywordScore(query, itemText string) int {
	haystack := text.Normalize(itemText)
	seen := make(map[string]bool)
	hits := 0
	for _, term := range text.Tokens(query) {
		if len(term) < 4 || seen[term] {
			continue
		}
		seen[term] = true
		if strings.Contains(haystack, term) {
			hits++
		}
	}
	return hits
}

// Cosine returns the cosine similarity of a and b, 0 for empty or mismatched vectors.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) ([]float32, bool) {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, false
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, true
}
