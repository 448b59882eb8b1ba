package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// maxPages stops listing when the API keeps announcing a next page.
const maxPages int = 1000

// Page is one page of a paginated list. Plain arrays are read as a single complete page.
type Page[T any] struct {
	Count    int    `json:"count"`
	Next     string `json:"next"`
	Previous string `json:"previous"`
	Results  []T    `json:"results"`
}

func (p Page[T]) HasNext() bool {
	return p.Next != ""
}

// TotalPages returns the number of pages of pageSize items needed for all the results.
func (p Page[T]) TotalPages(pageSize int) int {
	if pageSize <= 0 || p.Count == 0 {
		return 0
	}
	return (p.Count + pageSize - 1) / pageSize
}

func decodePage[T any](body []byte) (Page[T], error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		results := []T{}
		if err := json.Unmarshal(trimmed, &results); err != nil {
			return Page[T]{}, err
		}
		return Page[T]{Count: len(results), Results: results}, nil
	}
	page := Page[T]{}
	if len(trimmed) > 0 {
		if err := json.Unmarshal(trimmed, &page); err != nil {
			return Page[T]{}, err
		}
	}
	if page.Results == nil {
		page.Results = []T{}
	}
	return page, nil
}

func getPage[T any](ctx context.Context, t *Tracker, path string) (Page[T], error) {
	res, err := t.gateway.Request(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return Page[T]{}, err
	}
	page, err := decodePage[T](res.Body)
	if err != nil {
		return Page[T]{}, fmt.Errorf("cannot parse the page returned by %s: %w", path, err)
	}
	return page, nil
}

// listAll follows the pages of a list until the last one.
func listAll[T any](ctx context.Context, t *Tracker, path string) ([]T, error) {
	output := []T{}
	for pageNumber := 1; pageNumber <= maxPages; pageNumber++ {
		query := newQuery()
		if pageNumber > 1 {
			query.Set("page", strconv.Itoa(pageNumber))
		}
		page, err := getPage[T](ctx, t, withQuery(path, query))
		if err != nil {
			return nil, err
		}
		output = append(output, page.Results...)
		if !page.HasNext() {
			return output, nil
		}
	}
	return nil, fmt.Errorf("%s returned more than %d pages", path, maxPages)
}

// query keeps the parameters in insertion order.
type query = orderedmap.OrderedMap[string, string]

func newQuery() *query {
	return orderedmap.New[string, string]()
}

func withQuery(path string, params *query) string {
	if params.Len() == 0 {
		return path
	}
	parts := make([]string, 0, params.Len())
	for pair := params.Oldest(); pair != nil; pair = pair.Next() {
		parts = append(parts, url.QueryEscape(pair.Key)+"="+url.QueryEscape(pair.Value))
	}
	return path + "?" + strings.Join(parts, "&")
}
