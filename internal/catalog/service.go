package catalog

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/dojoflow/backend/internal/domain"
	"github.com/dojoflow/backend/internal/models"
)

// TechniqueStore defines technique persistence plus the idempotent mirror
// primitives. Push of a present id and pull of an absent id are no-ops, as
// is any mirror mutation against a missing document.
type TechniqueStore interface {
	InsertTechnique(ctx context.Context, t *models.Technique) (*models.Technique, error)
	GetTechnique(ctx context.Context, id string) (*models.Technique, error)
	ListTechniques(ctx context.Context) ([]models.Technique, error)
	SaveTechnique(ctx context.Context, t *models.Technique) error
	DeleteTechnique(ctx context.Context, id string) error
	PushTechniqueSequence(ctx context.Context, techniqueID, sequenceID string) error
	PullTechniqueSequence(ctx context.Context, techniqueID, sequenceID string) error
}

// SequenceStore defines sequence persistence. The techniques list is
// ordered; saves write it verbatim.
type SequenceStore interface {
	InsertSequence(ctx context.Context, s *models.Sequence) (*models.Sequence, error)
	GetSequence(ctx context.Context, id string) (*models.Sequence, error)
	ListSequences(ctx context.Context) ([]models.Sequence, error)
	SaveSequence(ctx context.Context, s *models.Sequence) error
	DeleteSequence(ctx context.Context, id string) error
	PullSequenceTechnique(ctx context.Context, sequenceID, techniqueID string) error
}

// UserStore is the user-side mirror surface the synchronizer needs.
type UserStore interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	PushUserTechnique(ctx context.Context, userID, techniqueID string) error
	PullUserTechnique(ctx context.Context, userID, techniqueID string) error
	PushUserSequence(ctx context.Context, userID, sequenceID string) error
	PullUserSequence(ctx context.Context, userID, sequenceID string) error
}

// Service is the relationship synchronizer: it keeps the mirrored reference
// arrays on User, Technique and Sequence consistent as entities are created,
// updated and deleted.
//
// Writes within one operation are issued in a fixed order: primary entity
// first, then the owner mirror, then peer mirrors. The writes are not
// mutually atomic; a mirror failure after a successful primary write is
// logged as reconciliation debt and repaired by any later idempotent
// mutation touching the same mirror.
type Service struct {
	techniques TechniqueStore
	sequences  SequenceStore
	users      UserStore
	strict     bool
	log        *slog.Logger
}

// NewService builds the synchronizer. strict makes timing and direction
// required on technique creation.
func NewService(t TechniqueStore, s SequenceStore, u UserStore, strict bool, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{techniques: t, sequences: s, users: u, strict: strict, log: log}
}

func (s *Service) validateTechnique(req models.CreateTechniqueRequest) error {
	if req.Name == "" {
		return domain.Validation("name is required")
	}
	if s.strict {
		if req.Timing == "" {
			return domain.Validation("timing is required")
		}
		if req.Direction == "" {
			return domain.Validation("direction is required")
		}
	}
	return nil
}

// CreateTechnique creates a technique owned by owner and mirrors its id
// into the owner's technique list.
func (s *Service) CreateTechnique(ctx context.Context, owner *models.User, req models.CreateTechniqueRequest) (*models.Technique, error) {
	if err := s.validateTechnique(req); err != nil {
		return nil, err
	}

	created, err := s.techniques.InsertTechnique(ctx, &models.Technique{
		Name:                 req.Name,
		Timing:               req.Timing,
		Direction:            req.Direction,
		Description:          req.Description,
		Demonstration:        req.Demonstration,
		DemonstrationComment: req.DemonstrationComment,
		OwnerID:              owner.ID,
	})
	if err != nil {
		return nil, err
	}

	// Owner mirror. The technique already exists; a failure here leaves it
	// unlinked but recoverable, so it is debt, not an error.
	if err := s.users.PushUserTechnique(ctx, owner.ID, created.ID); err != nil {
		s.debt("create technique: owner mirror", err, "technique", created.ID)
	}
	return created, nil
}

// GetTechnique returns one technique.
func (s *Service) GetTechnique(ctx context.Context, id string) (*models.Technique, error) {
	return s.techniques.GetTechnique(ctx, id)
}

// ListTechniques returns all techniques.
func (s *Service) ListTechniques(ctx context.Context) ([]models.Technique, error) {
	return s.techniques.ListTechniques(ctx)
}

// UpdateTechnique applies the patch to a technique the actor owns. The
// owner and the sequence mirror are not patchable.
func (s *Service) UpdateTechnique(ctx context.Context, actor *models.User, id string, patch models.TechniquePatch) (*models.Technique, error) {
	t, err := s.techniques.GetTechnique(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := RequireOwnership(actor, t); err != nil {
		return nil, err
	}

	if patch.Name != nil {
		t.Name = *patch.Name
	}
	if patch.Timing != nil {
		t.Timing = *patch.Timing
	}
	if patch.Direction != nil {
		t.Direction = *patch.Direction
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.Demonstration != nil {
		t.Demonstration = *patch.Demonstration
	}
	if patch.DemonstrationComment != nil {
		t.DemonstrationComment = *patch.DemonstrationComment
	}
	if t.Name == "" {
		return nil, domain.Validation("name is required")
	}

	if err := s.techniques.SaveTechnique(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// DeleteTechnique removes the technique and pulls its id from every
// sequence that referenced it and from the owner's mirror. Sequences are
// never deleted as a result; a sequence that is already gone is skipped.
// Returns the deleted technique so callers can clean up attachments.
func (s *Service) DeleteTechnique(ctx context.Context, actor *models.User, id string) (*models.Technique, error) {
	t, err := s.techniques.GetTechnique(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := RequireOwnership(actor, t); err != nil {
		return nil, err
	}

	if err := s.techniques.DeleteTechnique(ctx, id); err != nil {
		return nil, err
	}

	// Complete traversal: every referencing sequence gets the pull, no
	// early return on individual failures.
	var debts []error
	for _, seqID := range t.SequenceRefs {
		if err := s.sequences.PullSequenceTechnique(ctx, seqID, id); err != nil {
			debts = append(debts, err)
		}
	}
	if err := s.users.PullUserTechnique(ctx, t.OwnerID, id); err != nil {
		debts = append(debts, err)
	}
	if err := errors.Join(debts...); err != nil {
		s.debt("delete technique: mirror cleanup", err, "technique", id)
	}
	return t, nil
}

// CreateSequence validates every technique id, then creates the sequence
// with the given order, mirrors its id onto the owner and onto each
// referenced technique. Validation happens strictly before any write so a
// failed create never leaves a partially linked sequence.
func (s *Service) CreateSequence(ctx context.Context, owner *models.User, name string, techniqueIDs []string) (*models.Sequence, error) {
	for _, tid := range techniqueIDs {
		if _, err := s.techniques.GetTechnique(ctx, tid); err != nil {
			return nil, err
		}
	}

	created, err := s.sequences.InsertSequence(ctx, &models.Sequence{
		Name:          name,
		OwnerID:       owner.ID,
		TechniqueRefs: slices.Clone(techniqueIDs),
	})
	if err != nil {
		return nil, err
	}

	var debts []error
	if err := s.users.PushUserSequence(ctx, owner.ID, created.ID); err != nil {
		debts = append(debts, err)
	}
	for _, tid := range dedupe(techniqueIDs) {
		if err := s.techniques.PushTechniqueSequence(ctx, tid, created.ID); err != nil {
			debts = append(debts, err)
		}
	}
	if err := errors.Join(debts...); err != nil {
		s.debt("create sequence: mirrors", err, "sequence", created.ID)
	}
	return created, nil
}

// GetSequence returns one sequence.
func (s *Service) GetSequence(ctx context.Context, id string) (*models.Sequence, error) {
	return s.sequences.GetSequence(ctx, id)
}

// ListSequences returns all sequences.
func (s *Service) ListSequences(ctx context.Context) ([]models.Sequence, error) {
	return s.sequences.ListSequences(ctx)
}

// UpdateSequence applies the patch to a sequence the actor owns. Owner is
// structurally absent from the patch type (immutable post-creation). When
// the techniques list changes, the symmetric difference against the current
// list drives the mirror reconciliation: removed ids lose this sequence,
// added ids gain it, unchanged ids are untouched. The new order is taken
// verbatim from the patch.
func (s *Service) UpdateSequence(ctx context.Context, actor *models.User, id string, patch models.SequencePatch) (*models.Sequence, error) {
	seq, err := s.sequences.GetSequence(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := RequireOwnership(actor, seq); err != nil {
		return nil, err
	}

	var added, removed []string
	if patch.TechniqueRefs != nil {
		next := *patch.TechniqueRefs
		added = diff(next, seq.TechniqueRefs)
		removed = diff(seq.TechniqueRefs, next)

		// Newly added ids must resolve before anything is written.
		for _, tid := range added {
			if _, err := s.techniques.GetTechnique(ctx, tid); err != nil {
				return nil, err
			}
		}
		seq.TechniqueRefs = slices.Clone(next)
	}
	if patch.Name != nil {
		seq.Name = *patch.Name
	}

	if err := s.sequences.SaveSequence(ctx, seq); err != nil {
		return nil, err
	}

	var debts []error
	for _, tid := range removed {
		if err := s.techniques.PullTechniqueSequence(ctx, tid, id); err != nil {
			debts = append(debts, err)
		}
	}
	for _, tid := range added {
		if err := s.techniques.PushTechniqueSequence(ctx, tid, id); err != nil {
			debts = append(debts, err)
		}
	}
	if err := errors.Join(debts...); err != nil {
		s.debt("update sequence: mirrors", err, "sequence", id)
	}
	return seq, nil
}

// DeleteSequence removes the sequence, pulls its id from every technique
// that mirrored it (skipping techniques that are already gone) and from the
// owner's mirror.
func (s *Service) DeleteSequence(ctx context.Context, actor *models.User, id string) error {
	seq, err := s.sequences.GetSequence(ctx, id)
	if err != nil {
		return err
	}
	if err := RequireOwnership(actor, seq); err != nil {
		return err
	}

	if err := s.sequences.DeleteSequence(ctx, id); err != nil {
		return err
	}

	var debts []error
	for _, tid := range dedupe(seq.TechniqueRefs) {
		if err := s.techniques.PullTechniqueSequence(ctx, tid, id); err != nil {
			debts = append(debts, err)
		}
	}
	if err := s.users.PullUserSequence(ctx, seq.OwnerID, id); err != nil {
		debts = append(debts, err)
	}
	if err := errors.Join(debts...); err != nil {
		s.debt("delete sequence: mirror cleanup", err, "sequence", id)
	}
	return nil
}

// FollowSequence records the sequence in the user's list. Asymmetric: the
// sequence record is not touched and ownership is not required.
func (s *Service) FollowSequence(ctx context.Context, user *models.User, sequenceID string) error {
	if _, err := s.sequences.GetSequence(ctx, sequenceID); err != nil {
		return err
	}
	return s.users.PushUserSequence(ctx, user.ID, sequenceID)
}

// UnfollowSequence removes the sequence from the user's list. No existence
// check: unfollowing a dangling id is how stale follows get cleaned up.
func (s *Service) UnfollowSequence(ctx context.Context, user *models.User, sequenceID string) error {
	return s.users.PullUserSequence(ctx, user.ID, sequenceID)
}

// LinkTechnique records the technique in the user's list. Asymmetric, like
// FollowSequence.
func (s *Service) LinkTechnique(ctx context.Context, user *models.User, techniqueID string) error {
	if _, err := s.techniques.GetTechnique(ctx, techniqueID); err != nil {
		return err
	}
	return s.users.PushUserTechnique(ctx, user.ID, techniqueID)
}

// debt logs a mirror write that failed after the primary write succeeded.
// The state is partially applied but idempotently repairable, so it is not
// surfaced to the caller.
func (s *Service) debt(op string, err error, args ...any) {
	s.log.Warn("mirror reconciliation debt: "+op, append([]any{"err", err}, args...)...)
}

// diff returns the elements of a that are not in b, deduplicated, keeping
// a's order.
func diff(a, b []string) []string {
	var out []string
	for _, v := range a {
		if !slices.Contains(b, v) && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

func dedupe(ids []string) []string {
	var out []string
	for _, v := range ids {
		if !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}
