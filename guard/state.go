package guard

import (
	"encoding/json"
	"fmt"
)

// Status is the guard's verdict for the current evaluation cycle.
type Status int

const (
	// StatusOK allows the content to render.
	StatusOK Status = iota
	// StatusPending blocks content while verification is outstanding.
	StatusPending
	// StatusError blocks content and shows an explanation. Terminal for
	// the cycle; a new navigation or identity change is required to leave
	// it.
	StatusError
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusPending:
		return "pending"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the status as its name.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a status name.
func (s *Status) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	switch name {
	case "ok":
		*s = StatusOK
	case "pending":
		*s = StatusPending
	case "error":
		*s = StatusError
	default:
		return fmt.Errorf("guard: unknown status %q", name)
	}
	return nil
}

// State is the guard's current observable state. Title and Message are only
// set for StatusError and are user-facing French copy.
type State struct {
	Status  Status `json:"status"`
	Title   string `json:"title,omitempty"`
	Message string `json:"message,omitempty"`
}

// User-facing copy. The title distinguishes a missing store from a refused
// access and from an infrastructure failure.
const (
	TitleStoreNotFound = "Boutique non trouvée"
	TitleAccessDenied  = "Accès refusé"
	TitleError         = "Erreur"

	msgMissingSlug  = "slug manquant"
	msgRetryLater   = "Une erreur est survenue. Veuillez réessayer."
	msgNotOwner     = "Vous n'avez pas accès au tableau de bord de cette boutique."
	msgNoStoreMatch = "Aucune boutique ne correspond à « %s »."
)

func okState() State      { return State{Status: StatusOK} }
func pendingState() State { return State{Status: StatusPending} }

func errorState(title, message string) State {
	return State{Status: StatusError, Title: title, Message: message}
}
