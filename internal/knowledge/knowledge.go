// Package knowledge loads the mission corpus and answers full-text lookups
// against an in-memory bluge index.
package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/blugelabs/bluge"
	"github.com/blugelabs/bluge/analysis"
	"github.com/blugelabs/bluge/analysis/lang/en"
	"github.com/blugelabs/bluge/search"
	"github.com/samber/lo"

	"github.com/comigor/astro-go/internal/errs"
	"github.com/comigor/astro-go/internal/logger"
)

const detailsField = "details"

// Mission is one record of mission_data.json. Only details is indexed.
type Mission struct {
	Name    string `json:"name,omitempty"`
	Details string `json:"details"`
}

// Hit is a ranked search result.
type Hit struct {
	Index   int
	Details string
	// Score is the raw BM25 score. Similarity is Score over the best score
	// each query term reaches anywhere in the corpus, so a query whose terms
	// all peak in this mission scores 1.
	Score      float64
	Similarity float64
}

// Base is an immutable, indexed mission corpus.
type Base struct {
	missions  []Mission
	greetings map[string]string
	analyzer  *analysis.Analyzer
	writer    *bluge.Writer
	reader    *bluge.Reader
}

type customResponses struct {
	Greetings map[string]string `json:"greetings"`
}

// Load reads the mission file and the optional custom responses file.
func Load(missionPath, customPath string) (*Base, error) {
	raw, err := os.ReadFile(missionPath)
	if err != nil {
		return nil, fmt.Errorf("read mission data: %w", err)
	}
	var missions []Mission
	if err := json.Unmarshal(raw, &missions); err != nil {
		return nil, fmt.Errorf("decode mission data %s: %w", missionPath, err)
	}

	greetings := map[string]string{}
	if customPath != "" {
		raw, err := os.ReadFile(customPath)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			logger.L.Info("no custom responses file", "path", customPath)
		case err != nil:
			return nil, fmt.Errorf("read custom responses: %w", err)
		default:
			var custom customResponses
			if err := json.Unmarshal(raw, &custom); err != nil {
				return nil, fmt.Errorf("decode custom responses %s: %w", customPath, err)
			}
			for k, v := range custom.Greetings {
				greetings[Normalize(k)] = v
			}
		}
	}

	return New(missions, greetings)
}

// New indexes the given missions.
func New(missions []Mission, greetings map[string]string) (*Base, error) {
	missions = lo.Filter(missions, func(m Mission, _ int) bool {
		return strings.TrimSpace(m.Details) != ""
	})
	if len(missions) == 0 {
		return nil, errs.ErrEmptyCorpus
	}

	writer, err := bluge.OpenWriter(bluge.InMemoryOnlyConfig())
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}

	analyzer := en.NewAnalyzer()
	batch := bluge.NewBatch()
	for i, m := range missions {
		doc := bluge.NewDocument(strconv.Itoa(i)).
			AddField(bluge.NewTextField(detailsField, m.Details).WithAnalyzer(analyzer))
		batch.Update(doc.ID(), doc)
	}
	if err := writer.Batch(batch); err != nil {
		_ = writer.Close()
		return nil, fmt.Errorf("index missions: %w", err)
	}

	reader, err := writer.Reader()
	if err != nil {
		_ = writer.Close()
		return nil, fmt.Errorf("open index reader: %w", err)
	}

	if greetings == nil {
		greetings = map[string]string{}
	}
	logger.L.Info("mission index built", "missions", len(missions), "custom_greetings", len(greetings))
	return &Base{missions: missions, greetings: greetings, analyzer: analyzer, writer: writer, reader: reader}, nil
}

// Len is the number of indexed missions.
func (b *Base) Len() int { return len(b.missions) }

// GreetingReply returns a configured reply for a greeting keyword.
func (b *Base) GreetingReply(query string) (string, bool) {
	reply, ok := b.greetings[Normalize(query)]
	return reply, ok
}

// Search returns up to k missions ranked by relevance to query, best first.
// Stop words are ignored, and a query sharing no terms with the corpus
// yields no hits.
func (b *Base) Search(ctx context.Context, query string, k int) ([]Hit, error) {
	if k <= 0 || strings.TrimSpace(query) == "" {
		return nil, nil
	}
	terms := lo.Map(b.analyzer.Analyze([]byte(query)), func(tok *analysis.Token, _ int) string {
		return string(tok.Term)
	})
	if len(terms) == 0 {
		return nil, nil
	}

	q := bluge.NewMatchQuery(query).SetField(detailsField).SetAnalyzer(b.analyzer)
	it, err := b.reader.Search(ctx, bluge.NewTopNSearch(k, q))
	if err != nil {
		return nil, fmt.Errorf("search missions: %w", err)
	}

	var hits []Hit
	match, err := it.Next()
	for err == nil && match != nil {
		idx, verr := b.docIndex(match)
		if verr != nil {
			return nil, verr
		}
		hits = append(hits, Hit{Index: idx, Details: b.missions[idx].Details, Score: match.Score})
		match, err = it.Next()
	}
	if err != nil {
		return nil, fmt.Errorf("iterate hits: %w", err)
	}
	if len(hits) == 0 {
		return nil, nil
	}

	ceiling, err := b.ceiling(ctx, terms)
	if err != nil {
		return nil, err
	}
	for i := range hits {
		if ceiling > 0 {
			hits[i].Similarity = min(hits[i].Score/ceiling, 1)
		}
	}
	return hits, nil
}

// ceiling is the highest score the analyzed terms can reach together: the
// sum of each term's best single-mission score. A term found nowhere adds 0.
func (b *Base) ceiling(ctx context.Context, terms []string) (float64, error) {
	best := map[string]float64{}
	var total float64
	for _, term := range terms {
		score, seen := best[term]
		if !seen {
			q := bluge.NewTermQuery(term).SetField(detailsField)
			it, err := b.reader.Search(ctx, bluge.NewTopNSearch(1, q))
			if err != nil {
				return 0, fmt.Errorf("score term %q: %w", term, err)
			}
			match, err := it.Next()
			if err != nil {
				return 0, fmt.Errorf("score term %q: %w", term, err)
			}
			if match != nil {
				score = match.Score
			}
			best[term] = score
		}
		total += score
	}
	return total, nil
}

func (b *Base) docIndex(match *search.DocumentMatch) (int, error) {
	var id string
	err := match.VisitStoredFields(func(field string, value []byte) bool {
		if field == "_id" {
			id = string(value)
			return false
		}
		return true
	})
	if err != nil {
		return 0, fmt.Errorf("read hit: %w", err)
	}
	idx, err := strconv.Atoi(id)
	if err != nil || idx < 0 || idx >= len(b.missions) {
		return 0, fmt.Errorf("read hit: bad document id %q", id)
	}
	return idx, nil
}

// Best returns the top hit, or errs.ErrNoMatch.
func (b *Base) Best(ctx context.Context, query string) (Hit, error) {
	hits, err := b.Search(ctx, query, 1)
	if err != nil {
		return Hit{}, err
	}
	if len(hits) == 0 {
		return Hit{}, errs.ErrNoMatch
	}
	return hits[0], nil
}

// Close releases the index.
func (b *Base) Close() error {
	rerr := b.reader.Close()
	werr := b.writer.Close()
	return errors.Join(rerr, werr)
}
