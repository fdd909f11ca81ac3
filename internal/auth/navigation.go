package auth

import "github.com/calbec/lessonmarket/internal/model"

// Navigation targets for session transitions.
const (
	SignedInPath  = "/profile"
	SignedOutPath = "/auth/login"
)

// ReactToTransitions wires the single navigation subscriber: signed-in
// transitions navigate to the profile page, signed-out transitions to the
// login page. Call sites never navigate themselves, so a transition
// produces exactly one navigation regardless of how many components
// triggered the operation. Returns the unsubscribe function.
func ReactToTransitions(store *Store, navigate func(target string)) func() {
	return store.Subscribe(func(ev Event, _ *model.Session) {
		switch ev {
		case EventSignedIn:
			navigate(SignedInPath)
		case EventSignedOut:
			navigate(SignedOutPath)
		}
	})
}
