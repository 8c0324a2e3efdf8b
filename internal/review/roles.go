package review

import "github.com/wangchlxt/Swarm-sub001/internal/directory"

// Role is what the workflow knows about a caller relative to one review.
type Role struct {
	User string

	IsAuthenticated bool
	IsAuthor        bool

	// IsMember is set for members or owners of any affected project.
	IsMember bool

	// IsModerator is set for moderators of any affected moderated branch.
	IsModerator bool

	IsSuper bool
}

// RoleFor derives user's role on r. An empty user is anonymous.
func RoleFor(user string, r *Review, dir directory.Directory) Role {
	if user == "" {
		return Role{}
	}

	role := Role{
		User:            user,
		IsAuthenticated: true,
		IsAuthor:        user == r.Author,
		IsSuper:         dir.IsSuper(user),
	}

	for projectID, branchIDs := range r.Projects {
		project, ok := dir.Project(projectID)
		if !ok {
			continue
		}

		if directory.IsMember(dir, project, user) {
			role.IsMember = true
		}

		for _, branchID := range branchIDs {
			branch, ok := project.Branch(branchID)
			if ok && branch.Moderated() &&
				directory.IsModerator(dir, branch, user) {

				role.IsModerator = true
			}
		}
	}

	return role
}

// moderated reports whether any branch the review touches has moderators.
func moderated(r *Review, dir directory.Directory) bool {
	for projectID, branchIDs := range r.Projects {
		project, ok := dir.Project(projectID)
		if !ok {
			continue
		}

		for _, branchID := range branchIDs {
			branch, ok := project.Branch(branchID)
			if ok && branch.Moderated() {
				return true
			}
		}
	}

	return false
}
