package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/bugreporter/bugreporter-gateway/internal/gwerrors"
	"github.com/bugreporter/bugreporter-gateway/internal/tracker"
	"github.com/bugreporter/bugreporter-gateway/internal/utils"
	"github.com/labstack/echo/v4"
)

const (
	totalCountHeader string = "X-Total-Count"
	totalPagesHeader string = "X-Total-Pages"
	// maxIssuePages bounds the pages read to collect the users of a project
	maxIssuePages int = 100
)

func pathID(c echo.Context) (int, error) {
	id := 0
	err := echo.PathParamsBinder(c).MustInt("id", &id).BindError()
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "the id in the path has to be a positive integer")
	}
	return id, nil
}

func (s *Server) ListProjects(c echo.Context) error {
	t, err := s.signedInTracker(c)
	if err != nil {
		return err
	}
	projects, err := t.ListProjects(utils.RequestContext(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, projects)
}

func (s *Server) CreateProject(c echo.Context) error {
	t, err := s.signedInTracker(c)
	if err != nil {
		return err
	}
	input := tracker.ProjectInput{}
	if err = c.Bind(&input); err != nil {
		return err
	}
	project, err := t.CreateProject(utils.RequestContext(c), input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, project)
}

func (s *Server) GetProject(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	t, err := s.signedInTracker(c)
	if err != nil {
		return err
	}
	project, err := t.GetProject(utils.RequestContext(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, project)
}

func (s *Server) UpdateProject(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	t, err := s.signedInTracker(c)
	if err != nil {
		return err
	}
	input := tracker.ProjectInput{}
	if err = c.Bind(&input); err != nil {
		return err
	}
	project, err := t.UpdateProject(utils.RequestContext(c), id, input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, project)
}

func (s *Server) DeleteProject(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	t, err := s.signedInTracker(c)
	if err != nil {
		return err
	}
	if err = t.DeleteProject(utils.RequestContext(c), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ListProjectIssues returns one page of the issues of a project, filtered by the page, search, status
// and priority query parameters.
func (s *Server) ListProjectIssues(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var search, status, priority string
	filter := tracker.IssueFilter{}
	err = echo.QueryParamsBinder(c).
		Int("page", &filter.Page).
		String("search", &search).
		String("status", &status).
		String("priority", &priority).
		BindError()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "the page has to be an integer")
	}
	filter.Search = search
	filter.Status = tracker.Status(status)
	filter.Priority = tracker.Priority(priority)
	t, err := s.signedInTracker(c)
	if err != nil {
		return err
	}
	page, err := t.ListProjectIssues(utils.RequestContext(c), id, filter)
	if err != nil {
		return err
	}
	c.Response().Header().Set(totalCountHeader, strconv.Itoa(page.Count))
	c.Response().Header().Set(totalPagesHeader, strconv.Itoa(page.TotalPages(s.pageSize)))
	return c.JSON(http.StatusOK, page)
}

func (s *Server) CreateIssue(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	t, err := s.signedInTracker(c)
	if err != nil {
		return err
	}
	input := tracker.IssueInput{}
	if err = c.Bind(&input); err != nil {
		return err
	}
	issue, err := t.CreateIssue(utils.RequestContext(c), id, input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, issue)
}

func (s *Server) GetIssue(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	t, err := s.signedInTracker(c)
	if err != nil {
		return err
	}
	issue, err := t.GetIssue(utils.RequestContext(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, issue)
}

func (s *Server) UpdateIssue(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	t, err := s.signedInTracker(c)
	if err != nil {
		return err
	}
	update := tracker.IssueUpdate{}
	if err = c.Bind(&update); err != nil {
		return err
	}
	issue, err := t.UpdateIssue(utils.RequestContext(c), id, update)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, issue)
}

type commentRequest struct {
	Content       string `json:"content"`
	ParentComment *int   `json:"parent_comment"`
}

func (s *Server) ListComments(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	t, err := s.signedInTracker(c)
	if err != nil {
		return err
	}
	thread, err := t.ListComments(utils.RequestContext(c), id)
	if err != nil {
		return err
	}
	c.Response().Header().Set(totalCountHeader, strconv.Itoa(thread.Total()))
	return c.JSON(http.StatusOK, thread)
}

func (s *Server) AddComment(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	t, err := s.signedInTracker(c)
	if err != nil {
		return err
	}
	input := commentRequest{}
	if err = c.Bind(&input); err != nil {
		return err
	}
	comment, err := t.AddComment(utils.RequestContext(c), id, input.Content, input.ParentComment)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, comment)
}

// ListUsers returns all the users. When the API does not let the user list them and the project query
// parameter is set, the reporters and assignees of the issues of that project are returned instead.
func (s *Server) ListUsers(c echo.Context) error {
	projectID := 0
	err := echo.QueryParamsBinder(c).Int("project", &projectID).BindError()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "the project has to be an integer")
	}
	t, err := s.signedInTracker(c)
	if err != nil {
		return err
	}
	users, err := t.ListUsers(utils.RequestContext(c))
	var reqErr *gwerrors.RequestFailedError
	if errors.As(err, &reqErr) && reqErr.Status == http.StatusForbidden && projectID > 0 {
		slog.Debug("SERVER", "message", "the user list is forbidden, falling back to the users of the project issues", "requestID", utils.GetRequestID(c))
		users, err = s.projectUsers(c, t, projectID)
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, users)
}

// ListProjectUsers returns the reporters and assignees of the issues of a project.
func (s *Server) ListProjectUsers(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	t, err := s.signedInTracker(c)
	if err != nil {
		return err
	}
	users, err := s.projectUsers(c, t, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, users)
}

func (s *Server) projectUsers(c echo.Context, t *tracker.Tracker, projectID int) ([]tracker.User, error) {
	ctx := utils.RequestContext(c)
	pager := t.Issues(projectID, tracker.IssueFilter{})
	issues := []tracker.Issue{}
	for pages := 0; pager.HasNext(); pages++ {
		if pages == maxIssuePages {
			return nil, fmt.Errorf("project %d has more than %d pages of issues", projectID, maxIssuePages)
		}
		page, err := pager.Next(ctx)
		if err != nil {
			return nil, err
		}
		issues = append(issues, page...)
	}
	slog.Debug(
		"SERVER",
		"message",
		fmt.Sprintf("collected the users of %d of %d issues of project %d", pager.Loaded(), pager.Count(), projectID),
		"requestID",
		utils.GetRequestID(c),
	)
	return tracker.UsersFromIssues(issues), nil
}
