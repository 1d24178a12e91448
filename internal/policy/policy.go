// Package policy derives what a session may do from its identity snapshot.
package policy

import "github.com/spec-kit/credit-ledger/internal/domain"

// AccessState is the standing of an account toward the generation area.
type AccessState string

const (
	AccessGranted         AccessState = "granted"
	AccessFormRequired    AccessState = "form_required"
	AccessPendingApproval AccessState = "pending_approval"
)

// Block explains why generation cannot run even though the area is reachable.
type Block string

const (
	BlockNone        Block = ""
	BlockNoCredits   Block = "no_credits"
	BlockMaintenance Block = "maintenance"
)

// Capabilities is the outcome of Evaluate.
type Capabilities struct {
	IsAdmin         bool        `json:"isAdmin"`
	AdminArea       bool        `json:"adminArea"`
	GenerationArea  AccessState `json:"generationArea"`
	CanGenerate     bool        `json:"canGenerate"`
	GenerationBlock Block       `json:"generationBlock,omitempty"`
}

// Evaluate is a pure function of the snapshot and the maintenance flag.
// Administrators bypass every gate, maintenance included.
func Evaluate(identity *domain.PublicIdentity, maintenance bool) Capabilities {
	if identity == nil {
		return Capabilities{GenerationArea: AccessFormRequired}
	}

	caps := Capabilities{IsAdmin: identity.IsAdmin()}
	caps.AdminArea = caps.IsAdmin

	switch {
	case caps.IsAdmin, identity.FormSubmitted && identity.CodeGenerationEnabled:
		caps.GenerationArea = AccessGranted
	case !identity.FormSubmitted:
		caps.GenerationArea = AccessFormRequired
	default:
		caps.GenerationArea = AccessPendingApproval
	}

	if caps.GenerationArea != AccessGranted {
		return caps
	}

	switch {
	case caps.IsAdmin:
		caps.CanGenerate = true
	case maintenance:
		caps.GenerationBlock = BlockMaintenance
	case identity.Credits <= 0:
		caps.GenerationBlock = BlockNoCredits
	default:
		caps.CanGenerate = true
	}
	return caps
}
