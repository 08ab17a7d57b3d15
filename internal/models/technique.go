package models

import "time"

// Technique is a single named movement recorded by a user. It lives in the
// MongoDB `techniques` collection; SequenceRefs mirrors every Sequence that
// includes it.
type Technique struct {
	ID                   string    `json:"id"                    bson:"_id,omitempty"`
	Name                 string    `json:"name"                  bson:"name"`
	Timing               string    `json:"timing"                bson:"timing"`
	Direction            string    `json:"direction"             bson:"direction"`
	Description          string    `json:"description"           bson:"description"`
	Demonstration        string    `json:"demonstration"         bson:"demonstration"`
	DemonstrationComment string    `json:"demonstration_comment" bson:"demonstration_comment"`
	OwnerID              string    `json:"owner"                 bson:"owner"`
	SequenceRefs         []string  `json:"sequences"             bson:"sequences"`
	CreatedAt            time.Time `json:"created_at"            bson:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"            bson:"updated_at"`
}

// OwnerRef implements the ownership check.
func (t *Technique) OwnerRef() string { return t.OwnerID }

// TechniquePatch is the mutable subset of Technique fields accepted by
// update. Nil means "leave unchanged". Owner and mirror fields are not
// patchable by design of the API contract.
type TechniquePatch struct {
	Name                 *string `json:"name"`
	Timing               *string `json:"timing"`
	Direction            *string `json:"direction"`
	Description          *string `json:"description"`
	Demonstration        *string `json:"demonstration"`
	DemonstrationComment *string `json:"demonstration_comment"`
}

// CreateTechniqueRequest is the JSON body for POST /api/techniques.
type CreateTechniqueRequest struct {
	Name                 string `json:"name"`
	Timing               string `json:"timing"`
	Direction            string `json:"direction"`
	Description          string `json:"description"`
	Demonstration        string `json:"demonstration"`
	DemonstrationComment string `json:"demonstration_comment"`
}
