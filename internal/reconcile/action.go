package reconcile

import "strings"

// Action is the normalised effect a change has on a file.
type Action uint8

const (
	ActionEdit Action = iota
	ActionAdd
	ActionDelete
)

// String returns the action name.
func (a Action) String() string {
	switch a {
	case ActionAdd:
		return "add"
	case ActionDelete:
		return "delete"
	default:
		return "edit"
	}
}

// MarshalText lets FileDiff carry the action name in JSON.
func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// actionTable maps the version server's action vocabulary.
var actionTable = map[string]Action{
	"add":         ActionAdd,
	"branch":      ActionAdd,
	"import":      ActionAdd,
	"move/add":    ActionAdd,
	"edit":        ActionEdit,
	"integrate":   ActionEdit,
	"archive":     ActionEdit,
	"delete":      ActionDelete,
	"move/delete": ActionDelete,
	"purge":       ActionDelete,
}

// ClassifyAction maps a server action verb to an Action. Verbs outside the
// known vocabulary fall back to substring matching: anything mentioning
// delete is a delete, add, branch or import is an add, the rest are edits.
func ClassifyAction(verb string) Action {
	verb = strings.ToLower(strings.TrimSpace(verb))
	if a, ok := actionTable[verb]; ok {
		return a
	}

	switch {
	case strings.Contains(verb, "delete"):
		return ActionDelete

	case strings.Contains(verb, "add"),
		strings.Contains(verb, "branch"),
		strings.Contains(verb, "import"):

		return ActionAdd

	default:
		return ActionEdit
	}
}
