package tracker

import "context"

func (t *Tracker) ListUsers(ctx context.Context) ([]User, error) {
	return listAll[User](ctx, t, "/users/")
}

// UsersFromIssues collects the reporters and assignees of the issues, each user once,
// in the order they first appear.
func UsersFromIssues(issues []Issue) []User {
	seen := map[int]bool{}
	output := []User{}
	add := func(user *User) {
		if user == nil || seen[user.ID] {
			return
		}
		seen[user.ID] = true
		output = append(output, *user)
	}
	for _, issue := range issues {
		add(issue.Reporter)
		add(issue.Assignee)
	}
	return output
}
