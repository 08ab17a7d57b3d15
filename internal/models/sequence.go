package models

import "time"

// Sequence is an ordered composition of Techniques. TechniqueRefs keeps
// execution order; each referenced Technique mirrors this Sequence's id in
// its own SequenceRefs.
type Sequence struct {
	ID            string    `json:"id"         bson:"_id,omitempty"`
	Name          string    `json:"name"       bson:"name"`
	OwnerID       string    `json:"owner"      bson:"owner"`
	TechniqueRefs []string  `json:"techniques" bson:"techniques"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" bson:"updated_at"`
}

// OwnerRef implements the ownership check.
func (s *Sequence) OwnerRef() string { return s.OwnerID }

// SequencePatch is the mutable subset of Sequence fields accepted by update.
// A non-nil TechniqueRefs replaces the whole ordered list; mirrors on the
// added/removed Techniques are reconciled by the catalog service.
type SequencePatch struct {
	Name          *string   `json:"name"`
	TechniqueRefs *[]string `json:"techniques"`
}

// CreateSequenceRequest is the JSON body for POST /api/sequences.
type CreateSequenceRequest struct {
	Name       string   `json:"name"`
	Techniques []string `json:"techniques"`
}
