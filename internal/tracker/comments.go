package tracker

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Thread is a list of top level comments, each carrying its replies.
type Thread []Comment

// Walk visits every comment depth first, top level comments have depth 0.
func (t Thread) Walk(fn func(comment Comment, depth int)) {
	var walk func(comments []Comment, depth int)
	walk = func(comments []Comment, depth int) {
		for _, comment := range comments {
			fn(comment, depth)
			walk(comment.Replies, depth+1)
		}
	}
	walk(t, 0)
}

// Total counts the comments including all the replies.
func (t Thread) Total() int {
	total := 0
	t.Walk(func(Comment, int) { total++ })
	return total
}

func issueCommentsPath(issueID int) string {
	return fmt.Sprintf("/issues/%d/comments/", issueID)
}

// ListComments returns the top level comments of an issue, oldest first.
func (t *Tracker) ListComments(ctx context.Context, issueID int) (Thread, error) {
	comments, err := listAll[Comment](ctx, t, issueCommentsPath(issueID))
	if err != nil {
		return nil, err
	}
	return Thread(comments), nil
}

type commentInput struct {
	Content       string `json:"content"`
	ParentComment *int   `json:"parent_comment"`
}

// AddComment comments an issue, or replies to parentID when it is set.
func (t *Tracker) AddComment(ctx context.Context, issueID int, content string, parentID *int) (Comment, error) {
	if strings.TrimSpace(content) == "" {
		return Comment{}, invalid("the comment cannot be empty")
	}
	output := Comment{}
	err := t.call(
		ctx,
		http.MethodPost,
		issueCommentsPath(issueID),
		commentInput{Content: content, ParentComment: parentID},
		&output,
	)
	return output, err
}
