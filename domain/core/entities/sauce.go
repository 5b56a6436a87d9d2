package entities

import (
	"time"

	"piiquante/domain/config"
	"piiquante/domain/core/validators"
	"piiquante/domain/core/valueobjects"
	"piiquante/domain/events"
	pkgerrors "piiquante/pkg/errors"
)

// SauceDetails holds the descriptive fields an owner may edit
type SauceDetails struct {
	Name         string `json:"name"`
	Manufacturer string `json:"manufacturer"`
	Description  string `json:"description"`
	MainPepper   string `json:"mainPepper"`
	Heat         int    `json:"heat"`
}

// Validate checks the details against the default domain rules
func (d SauceDetails) Validate() error {
	return d.ValidateWithConfig(config.DefaultDomainConfig())
}

// ValidateWithConfig checks the details against the given domain rules
func (d SauceDetails) ValidateWithConfig(cfg *config.DomainConfig) error {
	return validators.NewSauceValidator(cfg).Validate(validators.DetailFields{
		Name:         d.Name,
		Manufacturer: d.Manufacturer,
		Description:  d.Description,
		MainPepper:   d.MainPepper,
		Heat:         d.Heat,
	})
}

// SaucePatch is a set of requested detail changes.
// A nil field was not sent by the client. There is deliberately no way
// to express a change of id, owner, counters or voters.
type SaucePatch struct {
	Name         *string `json:"name,omitempty"`
	Manufacturer *string `json:"manufacturer,omitempty"`
	Description  *string `json:"description,omitempty"`
	MainPepper   *string `json:"mainPepper,omitempty"`
	Heat         *int    `json:"heat,omitempty"`
}

// IsEmpty reports whether the patch changes nothing
func (p SaucePatch) IsEmpty() bool {
	return len(p.Fields()) == 0
}

// Fields lists the names of the fields present in the patch
func (p SaucePatch) Fields() []string {
	fields := make([]string, 0, 5)
	if p.Name != nil {
		fields = append(fields, "name")
	}
	if p.Manufacturer != nil {
		fields = append(fields, "manufacturer")
	}
	if p.Description != nil {
		fields = append(fields, "description")
	}
	if p.MainPepper != nil {
		fields = append(fields, "mainPepper")
	}
	if p.Heat != nil {
		fields = append(fields, "heat")
	}
	return fields
}

// Merge applies the present fields on top of current
func (p SaucePatch) Merge(current SauceDetails) SauceDetails {
	next := current
	if p.Name != nil {
		next.Name = *p.Name
	}
	if p.Manufacturer != nil {
		next.Manufacturer = *p.Manufacturer
	}
	if p.Description != nil {
		next.Description = *p.Description
	}
	if p.MainPepper != nil {
		next.MainPepper = *p.MainPepper
	}
	if p.Heat != nil {
		next.Heat = *p.Heat
	}
	return next
}

// ReplaceAll builds a complete set of details from the patch alone.
// Absent fields take their zero value.
func (p SaucePatch) ReplaceAll() SauceDetails {
	return p.Merge(SauceDetails{})
}

// VoteTally is the like/dislike state of a sauce.
// Counters always equal the size of their voter set.
type VoteTally struct {
	UsersLiked    valueobjects.UserSet
	UsersDisliked valueobjects.UserSet
}

// NewVoteTally builds a tally from voter lists
func NewVoteTally(liked, disliked []string) VoteTally {
	return VoteTally{
		UsersLiked:    valueobjects.NewUserSet(liked...),
		UsersDisliked: valueobjects.NewUserSet(disliked...),
	}
}

// Likes returns the number of users who like the sauce
func (t VoteTally) Likes() int {
	return t.UsersLiked.Len()
}

// Dislikes returns the number of users who dislike the sauce
func (t VoteTally) Dislikes() int {
	return t.UsersDisliked.Len()
}

// Sauce is the aggregate for a user-submitted rated record
type Sauce struct {
	id        valueobjects.SauceID
	ownerID   string
	details   SauceDetails
	imageRef  valueobjects.ImageRef
	tally     VoteTally
	createdAt time.Time
	updatedAt time.Time

	events []events.DomainEvent
}

// NewSauce creates a sauce owned by ownerID with no votes
func NewSauce(ownerID string, details SauceDetails, image valueobjects.ImageRef) (*Sauce, error) {
	return NewSauceWithConfig(ownerID, details, image, config.DefaultDomainConfig())
}

// NewSauceWithConfig creates a sauce validated against the given rules
func NewSauceWithConfig(ownerID string, details SauceDetails, image valueobjects.ImageRef, cfg *config.DomainConfig) (*Sauce, error) {
	if ownerID == "" {
		return nil, pkgerrors.NewValidationError("userID cannot be empty")
	}
	if image.IsZero() {
		return nil, pkgerrors.NewValidationError("image is required")
	}
	if err := details.ValidateWithConfig(cfg); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	sauce := &Sauce{
		id:        valueobjects.NewSauceID(),
		ownerID:   ownerID,
		details:   details,
		imageRef:  image,
		tally:     NewVoteTally(nil, nil),
		createdAt: now,
		updatedAt: now,
		events:    []events.DomainEvent{},
	}

	sauce.addEvent(events.NewSauceCreated(sauce.id, ownerID, details.Name, image, now))

	return sauce, nil
}

// ReconstructSauce rebuilds a sauce from stored data
func ReconstructSauce(
	id valueobjects.SauceID,
	ownerID string,
	details SauceDetails,
	image valueobjects.ImageRef,
	tally VoteTally,
	createdAt, updatedAt time.Time,
) (*Sauce, error) {
	if id.IsZero() {
		return nil, pkgerrors.NewValidationError("sauce ID cannot be empty")
	}
	if ownerID == "" {
		return nil, pkgerrors.NewValidationError("userID cannot be empty")
	}

	return &Sauce{
		id:        id,
		ownerID:   ownerID,
		details:   details,
		imageRef:  image,
		tally:     tally,
		createdAt: createdAt,
		updatedAt: updatedAt,
		events:    []events.DomainEvent{},
	}, nil
}

// ID returns the sauce's unique identifier
func (s *Sauce) ID() valueobjects.SauceID {
	return s.id
}

// OwnerID returns the id of the user who created the sauce
func (s *Sauce) OwnerID() string {
	return s.ownerID
}

// IsOwnedBy reports whether userID may mutate the sauce
func (s *Sauce) IsOwnedBy(userID string) bool {
	return userID != "" && s.ownerID == userID
}

// Details returns the descriptive fields
func (s *Sauce) Details() SauceDetails {
	return s.details
}

// ImageRef returns the reference to the sauce's live image
func (s *Sauce) ImageRef() valueobjects.ImageRef {
	return s.imageRef
}

// Tally returns the vote state
func (s *Sauce) Tally() VoteTally {
	return s.tally
}

func (s *Sauce) Likes() int    { return s.tally.Likes() }
func (s *Sauce) Dislikes() int { return s.tally.Dislikes() }

// CreatedAt returns when the sauce was created
func (s *Sauce) CreatedAt() time.Time {
	return s.createdAt
}

// UpdatedAt returns when the sauce was last changed
func (s *Sauce) UpdatedAt() time.Time {
	return s.updatedAt
}

// ApplyPatch merges the present fields into the current details.
// The image is left untouched.
func (s *Sauce) ApplyPatch(patch SaucePatch, cfg *config.DomainConfig) error {
	next := patch.Merge(s.details)
	if err := next.ValidateWithConfig(cfg); err != nil {
		return err
	}

	s.details = next
	s.updatedAt = time.Now().UTC()
	s.addEvent(events.NewSauceUpdated(s.id, s.ownerID, patch.Fields(), s.updatedAt))

	return nil
}

// ReplaceWith overwrites every detail from the patch and adopts a new image.
// It returns the image the sauce referenced before.
func (s *Sauce) ReplaceWith(patch SaucePatch, image valueobjects.ImageRef, cfg *config.DomainConfig) (valueobjects.ImageRef, error) {
	if image.IsZero() {
		return valueobjects.ImageRef{}, pkgerrors.NewValidationError("image is required")
	}

	next := patch.ReplaceAll()
	if err := next.ValidateWithConfig(cfg); err != nil {
		return valueobjects.ImageRef{}, err
	}

	previous := s.imageRef
	s.details = next
	s.imageRef = image
	s.updatedAt = time.Now().UTC()

	s.addEvent(events.NewSauceUpdated(s.id, s.ownerID, []string{"name", "manufacturer", "description", "mainPepper", "heat"}, s.updatedAt))
	s.addEvent(events.NewSauceImageReplaced(s.id, previous, image, s.updatedAt))

	return previous, nil
}

// RecordVote adopts a vote state computed by the vote engine and persisted by the store
func (s *Sauce) RecordVote(userID string, intent valueobjects.VoteIntent, tally VoteTally) {
	s.tally = tally
	s.updatedAt = time.Now().UTC()
	s.addEvent(events.NewSauceVoted(s.id, userID, intent, tally.Likes(), tally.Dislikes(), s.updatedAt))
}

// MarkDeleted records the removal of the sauce
func (s *Sauce) MarkDeleted() {
	s.addEvent(events.NewSauceDeleted(s.id, s.ownerID, s.imageRef, time.Now().UTC()))
}

// GetUncommittedEvents returns all uncommitted domain events
func (s *Sauce) GetUncommittedEvents() []events.DomainEvent {
	return s.events
}

// MarkEventsAsCommitted clears the uncommitted events
func (s *Sauce) MarkEventsAsCommitted() {
	s.events = []events.DomainEvent{}
}

func (s *Sauce) addEvent(event events.DomainEvent) {
	s.events = append(s.events, event)
}
