package tracker

import (
	"context"
	"fmt"
	"net/http"
)

func projectPath(id int) string {
	return fmt.Sprintf("/projects/%d/", id)
}

// ListProjects returns all projects, newest first.
func (t *Tracker) ListProjects(ctx context.Context) ([]Project, error) {
	return listAll[Project](ctx, t, "/projects/")
}

func (t *Tracker) GetProject(ctx context.Context, id int) (Project, error) {
	output := Project{}
	err := t.call(ctx, http.MethodGet, projectPath(id), nil, &output)
	return output, err
}

func (t *Tracker) CreateProject(ctx context.Context, input ProjectInput) (Project, error) {
	if err := input.Validate(); err != nil {
		return Project{}, err
	}
	output := Project{}
	err := t.call(ctx, http.MethodPost, "/projects/", input, &output)
	return output, err
}

func (t *Tracker) UpdateProject(ctx context.Context, id int, input ProjectInput) (Project, error) {
	if err := input.Validate(); err != nil {
		return Project{}, err
	}
	output := Project{}
	err := t.call(ctx, http.MethodPut, projectPath(id), input, &output)
	return output, err
}

func (t *Tracker) DeleteProject(ctx context.Context, id int) error {
	return t.call(ctx, http.MethodDelete, projectPath(id), nil, nil)
}
