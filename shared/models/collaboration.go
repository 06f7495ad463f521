package models

import (
	"time"

	"github.com/google/uuid"
)

// CollaborationStatus defines the lifecycle status of a creator-campaign
// collaboration. Matches the ENUM 'collaboration_status' in the DB.
type CollaborationStatus string

const (
	StatusPending            CollaborationStatus = "pending"              // Invitation sent, waiting for creator
	StatusCreatorAccepted    CollaborationStatus = "creator_accepted"     // Creator accepted (directly or via negotiation)
	StatusBrandConfirmed     CollaborationStatus = "brand_confirmed"      // Brand confirmed, budget withheld, content stage open
	StatusContentSubmitted   CollaborationStatus = "content_submitted"    // Script or video draft awaiting brand review
	StatusContentApproved    CollaborationStatus = "content_approved"     // Video approved, waiting for final link
	StatusFinalLinkSubmitted CollaborationStatus = "final_link_submitted" // Final link received, payout in flight
	StatusCompleted          CollaborationStatus = "completed"            // Done, budget released
	StatusRejected           CollaborationStatus = "rejected"             // Creator declined or negotiation failed
	StatusBrandRejected      CollaborationStatus = "brand_rejected"       // Brand rejected the creator
	StatusWithdrawn          CollaborationStatus = "withdrawn"            // Creator withdrew after accepting
)

// IsTerminal reports whether no further status or content mutation is allowed.
func (s CollaborationStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusRejected, StatusBrandRejected, StatusWithdrawn:
		return true
	}
	return false
}

// InvitationType determines replacement eligibility when a collaboration
// terminates with a rejection.
type InvitationType string

const (
	InvitationAuto             InvitationType = "auto"
	InvitationAutoReinvite     InvitationType = "auto_reinvite"
	InvitationAutoAdditional   InvitationType = "auto_additional"
	InvitationAutoConservative InvitationType = "auto_conservative"
	InvitationManual           InvitationType = "manual"
)

// EligibleForReplacement reports whether a terminal rejection of this
// invitation should trigger an automatic replacement invite. Manual invites
// never do: the brand picked the creator by hand and decides the follow-up.
func (t InvitationType) EligibleForReplacement() bool {
	return t != InvitationManual && t != ""
}

// ArtifactStatus is the review status of a single content artifact
// (script, video draft, final link).
type ArtifactStatus string

const (
	ArtifactPending          ArtifactStatus = "pending"
	ArtifactSubmitted        ArtifactStatus = "submitted"
	ArtifactApproved         ArtifactStatus = "approved"
	ArtifactChangesRequested ArtifactStatus = "changes_requested"
)

// MaxArtifactVersions caps total submissions per artifact. The 4th submission
// is forced-final: the brand may only approve it.
const MaxArtifactVersions = 4

// Placement describes the content slot a creator delivers for.
type Placement struct {
	Type         string   `json:"type"`
	Deliverables []string `json:"deliverables,omitempty"`
}

// ScriptVersion is one submitted script revision.
type ScriptVersion struct {
	Version     int       `json:"version"`
	Text        string    `json:"text,omitempty"`
	FileURL     string    `json:"file_url,omitempty"`
	Feedback    string    `json:"feedback,omitempty"` // brand feedback on this version, if changes were requested
	SubmittedAt time.Time `json:"submitted_at"`
}

// VideoDraft is one submitted video draft.
type VideoDraft struct {
	Version     int       `json:"version"`
	URL         string    `json:"url"`
	Feedback    string    `json:"feedback,omitempty"`
	Approved    bool      `json:"approved"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// ScriptState is the script stage of the delivery sub-state machine.
type ScriptState struct {
	Status         ArtifactStatus  `json:"status"`
	Versions       []ScriptVersion `json:"versions,omitempty"`
	CurrentVersion int             `json:"current_version"`
}

// VideoState is the video stage of the delivery sub-state machine.
type VideoState struct {
	Status ArtifactStatus `json:"status"`
	Drafts []VideoDraft   `json:"drafts,omitempty"`
}

// FinalLinkState is the published-link stage. The link always requires an
// explicit creator submission; it is never backfilled from an approved draft.
type FinalLinkState struct {
	Status      ArtifactStatus `json:"status"`
	URL         string         `json:"url,omitempty"`
	SubmittedAt *time.Time     `json:"submitted_at,omitempty"`
}

// ContentState bundles the nested delivery sub-state that runs between
// brand_confirmed and content_approved.
type ContentState struct {
	Script    ScriptState    `json:"script"`
	Video     VideoState     `json:"video"`
	FinalLink FinalLinkState `json:"final_link"`
}

// NewContentState returns the initial delivery sub-state for a fresh
// collaboration.
func NewContentState() ContentState {
	return ContentState{
		Script:    ScriptState{Status: ArtifactPending},
		Video:     VideoState{Status: ArtifactPending},
		FinalLink: FinalLinkState{Status: ArtifactPending},
	}
}

// Collaboration is one creator x campaign x platform relationship.
// Terminal collaborations are never deleted; budget history must stay
// auditable.
type Collaboration struct {
	ID              uuid.UUID           `json:"id" db:"id"`
	CampaignID      uuid.UUID           `json:"campaign_id" db:"campaign_id"`
	CreatorID       uuid.UUID           `json:"creator_id" db:"creator_id"`
	CreatorCategory string              `json:"creator_category,omitempty" db:"creator_category"`
	TargetPlatform  string              `json:"target_platform" db:"target_platform"`
	Placement       Placement           `json:"selected_placement" db:"-"`
	Status          CollaborationStatus `json:"status" db:"status"`
	InvitationType  InvitationType      `json:"invitation_type" db:"invitation_type"`

	// ProposedRate is the agreed base rate in minor currency units.
	// Immutable once the matching budget moves to withheld.
	ProposedRate int64 `json:"proposed_rate" db:"proposed_rate"`
	// BufferAmount is the negotiation-margin amount reserved alongside the
	// base rate. Captured at reserve time so a later release returns exactly
	// what was taken.
	BufferAmount int64 `json:"buffer_amount" db:"buffer_amount"`

	Negotiation *Negotiation `json:"negotiation,omitempty" db:"-"`
	Content     ContentState `json:"content" db:"-"`

	RejectReason string `json:"reject_reason,omitempty" db:"reject_reason"`

	InvitedAt   time.Time  `json:"invited_at" db:"invited_at"`
	RespondedAt *time.Time `json:"responded_at,omitempty" db:"responded_at"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty" db:"confirmed_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// TotalReserved is the full amount this collaboration holds in the ledger
// (base + buffer).
func (c *Collaboration) TotalReserved() int64 {
	return c.ProposedRate + c.BufferAmount
}
