package tracker

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
)

// IssueFilter narrows the issues of a project. Zero values are left out of the query.
type IssueFilter struct {
	Page     int
	Search   string
	Status   Status
	Priority Priority
}

func (f IssueFilter) Validate() error {
	if f.Page < 0 {
		return invalid("the page cannot be negative")
	}
	return validateEnums(f.Status, f.Priority)
}

func (f IssueFilter) query() *query {
	params := newQuery()
	if f.Page > 0 {
		params.Set("page", strconv.Itoa(f.Page))
	}
	if f.Search != "" {
		params.Set("search", f.Search)
	}
	if f.Status != "" {
		params.Set("status", string(f.Status))
	}
	if f.Priority != "" {
		params.Set("priority", string(f.Priority))
	}
	return params
}

func issuePath(id int) string {
	return fmt.Sprintf("/issues/%d/", id)
}

func projectIssuesPath(projectID int) string {
	return fmt.Sprintf("/projects/%d/issues/", projectID)
}

func (t *Tracker) ListProjectIssues(ctx context.Context, projectID int, filter IssueFilter) (Page[Issue], error) {
	if err := filter.Validate(); err != nil {
		return Page[Issue]{}, err
	}
	return getPage[Issue](ctx, t, withQuery(projectIssuesPath(projectID), filter.query()))
}

func (t *Tracker) GetIssue(ctx context.Context, id int) (Issue, error) {
	output := Issue{}
	err := t.call(ctx, http.MethodGet, issuePath(id), nil, &output)
	return output, err
}

func (t *Tracker) CreateIssue(ctx context.Context, projectID int, input IssueInput) (Issue, error) {
	if err := input.Validate(); err != nil {
		return Issue{}, err
	}
	output := Issue{}
	err := t.call(ctx, http.MethodPost, projectIssuesPath(projectID), input, &output)
	return output, err
}

func (t *Tracker) UpdateIssue(ctx context.Context, id int, update IssueUpdate) (Issue, error) {
	if err := update.Validate(); err != nil {
		return Issue{}, err
	}
	output := Issue{}
	err := t.call(ctx, http.MethodPatch, issuePath(id), update, &output)
	return output, err
}

// IssuePager loads the issues of a project one page at a time, for infinite scrolling.
type IssuePager struct {
	tracker   *Tracker
	projectID int
	filter    IssueFilter
	started   bool
	last      Page[Issue]
	loaded    int
}

// Issues returns a pager starting at filter.Page, or at the first page when it is not set.
func (t *Tracker) Issues(projectID int, filter IssueFilter) *IssuePager {
	if filter.Page < 1 {
		filter.Page = 1
	}
	return &IssuePager{tracker: t, projectID: projectID, filter: filter}
}

func (p *IssuePager) HasNext() bool {
	return !p.started || p.last.HasNext()
}

// Next loads the following page. It returns an empty slice when there are no more pages.
func (p *IssuePager) Next(ctx context.Context) ([]Issue, error) {
	if !p.HasNext() {
		return []Issue{}, nil
	}
	filter := p.filter
	if p.started {
		filter.Page++
	}
	page, err := p.tracker.ListProjectIssues(ctx, p.projectID, filter)
	if err != nil {
		return nil, err
	}
	p.filter = filter
	p.started = true
	p.last = page
	p.loaded += len(page.Results)
	return page.Results, nil
}

// Count is the total number of matching issues reported by the last page.
func (p *IssuePager) Count() int {
	return p.last.Count
}

func (p *IssuePager) Loaded() int {
	return p.loaded
}
