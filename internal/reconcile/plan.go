package reconcile

import (
	"fmt"

	"github.com/lorea/bootstrap/internal/manifest"
)

// Action is what the reconciler does for one package.
type Action string

// Actions.
const (
	ActionInstall   Action = "install"
	ActionUpdate    Action = "update"
	ActionUninstall Action = "uninstall"
	ActionSkip      Action = "skip"
	ActionNone      Action = "none"
)

// Plan returns the action for a package in state whose directory
// presence is dirExists. Unknown states yield manifest.ErrUnknownState.
func Plan(state manifest.State, dirExists bool) (Action, error) {
	switch state {
	case manifest.StateAbsent:
		// Cloning into an existing directory fails; updating it does not.
		if dirExists {
			return ActionUpdate, nil
		}
		return ActionInstall, nil
	case manifest.StateInstalled:
		return ActionUpdate, nil
	case manifest.StateSkip:
		return ActionSkip, nil
	case manifest.StateRemove:
		return ActionUninstall, nil
	}
	return ActionNone, fmt.Errorf("%w %q", manifest.ErrUnknownState, string(state))
}
