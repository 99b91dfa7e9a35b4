package headhunter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/mitchellh/mapstructure"
	"golang.org/x/sync/errgroup"
)

const searchPath = "/vacancies"

// VacancySummary is a search hit
type VacancySummary struct {
	ID          string  `mapstructure:"id"`
	Name        string  `mapstructure:"name"`
	Experience  *IDName `mapstructure:"experience"`
	Area        *IDName `mapstructure:"area"`
	Employer    *IDName `mapstructure:"employer"`
	Salary      *Salary `mapstructure:"salary"`
	PublishedAt string  `mapstructure:"published_at"`
	Archived    bool    `mapstructure:"archived"`
}

func (s VacancySummary) ExperienceID() string {
	if s.Experience == nil {
		return ""
	}
	return s.Experience.ID
}

// SearchResult aggregates all fetched pages, in page order
type SearchResult struct {
	Items []VacancySummary
	Found int
	Pages int
}

type itemResponse struct {
	Items   []map[string]any `json:"items"`
	Found   int              `json:"found"`
	Pages   int              `json:"pages"`
	Page    int              `json:"page"`
	PerPage int              `json:"per_page"`
}

// Search runs a text search. The first page tells how many pages exist; the
// rest are fetched concurrently, capped at MaxPages.
func (c *Client) Search(ctx context.Context, text string) (*SearchResult, error) {
	first, err := c.searchPage(ctx, text, 0)
	if err != nil {
		return nil, err
	}

	pages := min(first.Pages, c.cfg.MaxPages)
	results := make([]*itemResponse, max(pages, 1))
	results[0] = first

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Concurrency)
	for page := 1; page < pages; page++ {
		g.Go(func() error {
			resp, err := c.searchPage(gctx, text, page)
			if err != nil {
				return err
			}
			results[page] = resp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &SearchResult{Found: first.Found, Pages: pages}
	for _, resp := range results {
		items, err := decodeItems(resp.Items)
		if err != nil {
			return nil, err
		}
		out.Items = append(out.Items, items...)
	}

	c.logger.Debug("HeadHunter search finished",
		slog.String("text", text),
		slog.Int("found", out.Found),
		slog.Int("pages", pages),
		slog.Int("items", len(out.Items)),
	)

	return out, nil
}

func (c *Client) searchPage(ctx context.Context, text string, page int) (*itemResponse, error) {
	q := url.Values{}
	q.Set("text", text)
	q.Set("per_page", strconv.Itoa(c.cfg.PerPage))
	q.Set("page", strconv.Itoa(page))

	body, err := c.get(ctx, searchPath, q)
	if err != nil {
		return nil, fmt.Errorf("failed to search vacancies (page %d): %w", page, err)
	}

	var resp itemResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode search page %d: %w", page, err)
	}
	return &resp, nil
}

func decodeItems(raw []map[string]any) ([]VacancySummary, error) {
	items := make([]VacancySummary, 0, len(raw))
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &items,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode search items: %w", err)
	}
	return items, nil
}
