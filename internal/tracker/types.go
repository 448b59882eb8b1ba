package tracker

import (
	"strings"
	"time"
)

type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type Project struct {
	ID               int       `json:"id"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	CreatedAt        time.Time `json:"created_at"`
	Owner            *User     `json:"owner"`
	IssueCount       int       `json:"issue_count"`
	OpenIssues       int       `json:"open_issues"`
	InProgressIssues int       `json:"in_progress_issues"`
	ClosedIssues     int       `json:"closed_issues"`
}

type ProjectInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (p ProjectInput) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return invalid("the project name is required")
	}
	return nil
}

type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusClosed     Status = "closed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusClosed:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

type Issue struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	Priority    Priority  `json:"priority"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Project     *Project  `json:"project"`
	Reporter    *User     `json:"reporter"`
	Assignee    *User     `json:"assignee"`
}

// IssueInput creates an issue. A nil AssigneeID is sent as null.
type IssueInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Status      Status   `json:"status,omitempty"`
	Priority    Priority `json:"priority,omitempty"`
	AssigneeID  *int     `json:"assignee_id"`
}

func (i IssueInput) Validate() error {
	if strings.TrimSpace(i.Title) == "" {
		return invalid("the issue title is required")
	}
	return validateEnums(i.Status, i.Priority)
}

// IssueUpdate changes the fields that are set. An AssigneeID of 0 removes the assignee.
type IssueUpdate struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Status      *Status   `json:"status,omitempty"`
	Priority    *Priority `json:"priority,omitempty"`
	AssigneeID  *int      `json:"assignee_id,omitempty"`
}

func (u IssueUpdate) Validate() error {
	if u.Title == nil && u.Description == nil && u.Status == nil && u.Priority == nil && u.AssigneeID == nil {
		return invalid("the issue update is empty")
	}
	if u.Title != nil && strings.TrimSpace(*u.Title) == "" {
		return invalid("the issue title cannot be empty")
	}
	if u.AssigneeID != nil && *u.AssigneeID < 0 {
		return invalid("the assignee ID cannot be negative")
	}
	var status Status
	var priority Priority
	if u.Status != nil {
		if *u.Status == "" {
			return invalid("the issue status cannot be empty")
		}
		status = *u.Status
	}
	if u.Priority != nil {
		if *u.Priority == "" {
			return invalid("the issue priority cannot be empty")
		}
		priority = *u.Priority
	}
	return validateEnums(status, priority)
}

func validateEnums(status Status, priority Priority) error {
	if status != "" && !status.Valid() {
		return invalid("unknown issue status %q", status)
	}
	if priority != "" && !priority.Valid() {
		return invalid("unknown issue priority %q", priority)
	}
	return nil
}

type Comment struct {
	ID            int       `json:"id"`
	Content       string    `json:"content"`
	CreatedAt     time.Time `json:"created_at"`
	Issue         int       `json:"issue"`
	Author        *User     `json:"author"`
	ParentComment *int      `json:"parent_comment"`
	Replies       []Comment `json:"replies"`
	ReplyCount    int       `json:"reply_count"`
}

type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r RegisterInput) Validate() error {
	if strings.TrimSpace(r.Username) == "" {
		return invalid("the username is required")
	}
	if r.Password == "" {
		return invalid("the password is required")
	}
	return nil
}
