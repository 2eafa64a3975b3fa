package models

import (
	"fmt"

	"github.com/google/uuid"
)

// ReactionKind is either a like or a dislike
type ReactionKind string

const (
	Like    ReactionKind = "like"
	Dislike ReactionKind = "dislike"
)

// ParseReactionKind converts a route segment into a ReactionKind
func ParseReactionKind(s string) (ReactionKind, error) {
	switch ReactionKind(s) {
	case Like, Dislike:
		return ReactionKind(s), nil
	}
	return "", fmt.Errorf("unknown reaction %q", s)
}

// Opposite returns the other side of the like/dislike pair
func (k ReactionKind) Opposite() ReactionKind {
	if k == Like {
		return Dislike
	}
	return Like
}

// Reactable is content that users can like or dislike. ReactionField names the
// gorm association holding the users that applied the given kind.
type Reactable interface {
	ReactionField(kind ReactionKind) string
	OwnerProfileID() uuid.UUID
}

// Authored is any content owned by a profile
type Authored interface {
	OwnerProfileID() uuid.UUID
}
