package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dojoflow/backend/internal/domain"
	"github.com/dojoflow/backend/internal/models"
)

// MongoStore handles technique and sequence CRUD in MongoDB. Mirror-array
// mutations use $addToSet / $pull so that pushing a present id or pulling an
// absent one is always a no-op, and a mutation against a missing document
// silently matches nothing (orphan tolerance).
type MongoStore struct {
	techniques *mongo.Collection
	sequences  *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		techniques: db.Collection("techniques"),
		sequences:  db.Collection("sequences"),
	}
}

// techniqueDoc is the BSON shape of a technique; _id is an ObjectID inside
// Mongo and a hex string everywhere else.
type techniqueDoc struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty"`
	Name                 string             `bson:"name"`
	Timing               string             `bson:"timing"`
	Direction            string             `bson:"direction"`
	Description          string             `bson:"description"`
	Demonstration        string             `bson:"demonstration"`
	DemonstrationComment string             `bson:"demonstration_comment"`
	OwnerID              string             `bson:"owner"`
	SequenceRefs         []string           `bson:"sequences"`
	CreatedAt            time.Time          `bson:"created_at"`
	UpdatedAt            time.Time          `bson:"updated_at"`
}

func (d *techniqueDoc) model() *models.Technique {
	return &models.Technique{
		ID:                   d.ID.Hex(),
		Name:                 d.Name,
		Timing:               d.Timing,
		Direction:            d.Direction,
		Description:          d.Description,
		Demonstration:        d.Demonstration,
		DemonstrationComment: d.DemonstrationComment,
		OwnerID:              d.OwnerID,
		SequenceRefs:         d.SequenceRefs,
		CreatedAt:            d.CreatedAt,
		UpdatedAt:            d.UpdatedAt,
	}
}

type sequenceDoc struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	Name          string             `bson:"name"`
	OwnerID       string             `bson:"owner"`
	TechniqueRefs []string           `bson:"techniques"`
	CreatedAt     time.Time          `bson:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at"`
}

func (d *sequenceDoc) model() *models.Sequence {
	return &models.Sequence{
		ID:            d.ID.Hex(),
		Name:          d.Name,
		OwnerID:       d.OwnerID,
		TechniqueRefs: d.TechniqueRefs,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

func (s *MongoStore) InsertTechnique(ctx context.Context, t *models.Technique) (*models.Technique, error) {
	now := time.Now().UTC()
	doc := techniqueDoc{
		ID:                   primitive.NewObjectID(),
		Name:                 t.Name,
		Timing:               t.Timing,
		Direction:            t.Direction,
		Description:          t.Description,
		Demonstration:        t.Demonstration,
		DemonstrationComment: t.DemonstrationComment,
		OwnerID:              t.OwnerID,
		SequenceRefs:         []string{},
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if _, err := s.techniques.InsertOne(ctx, doc); err != nil {
		return nil, domain.Internal(err)
	}
	return doc.model(), nil
}

func (s *MongoStore) GetTechnique(ctx context.Context, id string) (*models.Technique, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.NotFound("technique", id)
	}
	var doc techniqueDoc
	if err := s.techniques.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.NotFound("technique", id)
		}
		return nil, domain.Internal(err)
	}
	return doc.model(), nil
}

func (s *MongoStore) ListTechniques(ctx context.Context) ([]models.Technique, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.techniques.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, domain.Internal(err)
	}
	defer cur.Close(ctx)

	var docs []techniqueDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, domain.Internal(err)
	}
	out := make([]models.Technique, 0, len(docs))
	for i := range docs {
		out = append(out, *docs[i].model())
	}
	return out, nil
}

// SaveTechnique overwrites the mutable fields of the document. The mirror
// array is written as-is: callers must only change it through push/pull.
func (s *MongoStore) SaveTechnique(ctx context.Context, t *models.Technique) error {
	oid, err := primitive.ObjectIDFromHex(t.ID)
	if err != nil {
		return domain.NotFound("technique", t.ID)
	}
	res, err := s.techniques.UpdateByID(ctx, oid, bson.M{"$set": bson.M{
		"name":                  t.Name,
		"timing":                t.Timing,
		"direction":             t.Direction,
		"description":           t.Description,
		"demonstration":         t.Demonstration,
		"demonstration_comment": t.DemonstrationComment,
		"sequences":             t.SequenceRefs,
		"updated_at":            time.Now().UTC(),
	}})
	if err != nil {
		return domain.Internal(err)
	}
	if res.MatchedCount == 0 {
		return domain.NotFound("technique", t.ID)
	}
	return nil
}

// DeleteTechnique removes the document; deleting an already-missing
// technique is not an error.
func (s *MongoStore) DeleteTechnique(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil
	}
	if _, err := s.techniques.DeleteOne(ctx, bson.M{"_id": oid}); err != nil {
		return domain.Internal(err)
	}
	return nil
}

// PushTechniqueSequence adds sequenceID to the technique's mirror array.
func (s *MongoStore) PushTechniqueSequence(ctx context.Context, techniqueID, sequenceID string) error {
	return s.mutateRef(ctx, s.techniques, techniqueID, bson.M{"$addToSet": bson.M{"sequences": sequenceID}})
}

// PullTechniqueSequence removes sequenceID from the technique's mirror array.
func (s *MongoStore) PullTechniqueSequence(ctx context.Context, techniqueID, sequenceID string) error {
	return s.mutateRef(ctx, s.techniques, techniqueID, bson.M{"$pull": bson.M{"sequences": sequenceID}})
}

func (s *MongoStore) InsertSequence(ctx context.Context, seq *models.Sequence) (*models.Sequence, error) {
	now := time.Now().UTC()
	refs := seq.TechniqueRefs
	if refs == nil {
		refs = []string{}
	}
	doc := sequenceDoc{
		ID:            primitive.NewObjectID(),
		Name:          seq.Name,
		OwnerID:       seq.OwnerID,
		TechniqueRefs: refs,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if _, err := s.sequences.InsertOne(ctx, doc); err != nil {
		return nil, domain.Internal(err)
	}
	return doc.model(), nil
}

func (s *MongoStore) GetSequence(ctx context.Context, id string) (*models.Sequence, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.NotFound("sequence", id)
	}
	var doc sequenceDoc
	if err := s.sequences.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.NotFound("sequence", id)
		}
		return nil, domain.Internal(err)
	}
	return doc.model(), nil
}

func (s *MongoStore) ListSequences(ctx context.Context) ([]models.Sequence, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.sequences.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, domain.Internal(err)
	}
	defer cur.Close(ctx)

	var docs []sequenceDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, domain.Internal(err)
	}
	out := make([]models.Sequence, 0, len(docs))
	for i := range docs {
		out = append(out, *docs[i].model())
	}
	return out, nil
}

// SaveSequence overwrites the mutable fields of the document, including the
// ordered techniques list (order is meaningful and taken verbatim).
func (s *MongoStore) SaveSequence(ctx context.Context, seq *models.Sequence) error {
	oid, err := primitive.ObjectIDFromHex(seq.ID)
	if err != nil {
		return domain.NotFound("sequence", seq.ID)
	}
	res, err := s.sequences.UpdateByID(ctx, oid, bson.M{"$set": bson.M{
		"name":       seq.Name,
		"techniques": seq.TechniqueRefs,
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return domain.Internal(err)
	}
	if res.MatchedCount == 0 {
		return domain.NotFound("sequence", seq.ID)
	}
	return nil
}

// DeleteSequence removes the document; deleting an already-missing sequence
// is not an error.
func (s *MongoStore) DeleteSequence(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil
	}
	if _, err := s.sequences.DeleteOne(ctx, bson.M{"_id": oid}); err != nil {
		return domain.Internal(err)
	}
	return nil
}

// PullSequenceTechnique removes techniqueID from the sequence's ordered
// techniques list.
func (s *MongoStore) PullSequenceTechnique(ctx context.Context, sequenceID, techniqueID string) error {
	return s.mutateRef(ctx, s.sequences, sequenceID, bson.M{"$pull": bson.M{"techniques": techniqueID}})
}

// mutateRef applies an idempotent mirror mutation. An unparseable or missing
// target id matches no document and is a no-op, never an error.
func (s *MongoStore) mutateRef(ctx context.Context, col *mongo.Collection, id string, update bson.M) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil
	}
	if _, err := col.UpdateByID(ctx, oid, update); err != nil {
		return domain.Internal(err)
	}
	return nil
}
