package database

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/satyamkes/JanSahyog/internal/models"
)

const schemesCollection = "schemes"

// MongoStore keeps the scheme catalog in a MongoDB collection using the
// document layout shared with the Node backend.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
	now    func() time.Time
}

type schemeDocument struct {
	ID                  primitive.ObjectID `bson:"_id,omitempty"`
	Name                string             `bson:"name"`
	Description         string             `bson:"description"`
	Category            string             `bson:"category"`
	Benefits            string             `bson:"benefits"`
	Duration            string             `bson:"duration"`
	OfficialWebsite     string             `bson:"officialWebsite,omitempty"`
	EligibilityCriteria criteriaDocument   `bson:"eligibilityCriteria"`
	Requirements        []string           `bson:"requirements"`
	ApplicationDeadline *time.Time         `bson:"applicationDeadline,omitempty"`
	IsActive            bool               `bson:"isActive"`
	CreatedAt           time.Time          `bson:"createdAt"`
	UpdatedAt           time.Time          `bson:"updatedAt"`
}

type criteriaDocument struct {
	MinAge     int      `bson:"minAge"`
	MaxAge     int      `bson:"maxAge"`
	MinIncome  float64  `bson:"minIncome"`
	MaxIncome  *float64 `bson:"maxIncome,omitempty"`
	Categories []string `bson:"categories"`
	Gender     string   `bson:"gender"`
	States     []string `bson:"states"`
}

// NewMongoStore connects to MongoDB and ensures the unique name index.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	store := &MongoStore{
		client: client,
		coll:   client.Database(database).Collection(schemesCollection),
		now:    time.Now,
	}

	_, err = store.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "isActive", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to create scheme indexes: %w", err)
	}

	return store, nil
}

// Close disconnects the client.
func (m *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

// Ping checks that the primary is reachable.
func (m *MongoStore) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

// CreateScheme inserts a new scheme, assigning its id and timestamps.
func (m *MongoStore) CreateScheme(ctx context.Context, scheme models.Scheme) (models.Scheme, error) {
	now := m.now().UTC().Truncate(time.Millisecond)
	scheme.CreatedAt = now
	scheme.UpdatedAt = now

	doc := toDocument(scheme)
	doc.ID = primitive.NewObjectID()

	if _, err := m.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.Scheme{}, ErrDuplicateName
		}
		return models.Scheme{}, fmt.Errorf("failed to insert scheme: %w", err)
	}

	return fromDocument(doc), nil
}

// GetScheme returns the scheme with the given id. Ids that are not valid
// ObjectIDs are reported as not found.
func (m *MongoStore) GetScheme(ctx context.Context, id string) (models.Scheme, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.Scheme{}, ErrNotFound
	}

	var doc schemeDocument
	err = m.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Scheme{}, ErrNotFound
	}
	if err != nil {
		return models.Scheme{}, fmt.Errorf("failed to find scheme: %w", err)
	}

	return fromDocument(doc), nil
}

// ListActiveSchemes returns all active schemes, newest first.
func (m *MongoStore) ListActiveSchemes(ctx context.Context) ([]models.Scheme, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})

	cur, err := m.coll.Find(ctx, bson.M{"isActive": true}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query active schemes: %w", err)
	}
	defer cur.Close(ctx)

	var docs []schemeDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode schemes: %w", err)
	}

	schemes := make([]models.Scheme, 0, len(docs))
	for _, d := range docs {
		schemes = append(schemes, fromDocument(d))
	}
	return schemes, nil
}

func toDocument(s models.Scheme) schemeDocument {
	c := s.EligibilityCriteria
	return schemeDocument{
		Name:            s.Name,
		Description:     s.Description,
		Category:        s.Category,
		Benefits:        s.Benefits,
		Duration:        s.Duration,
		OfficialWebsite: s.OfficialWebsite,
		EligibilityCriteria: criteriaDocument{
			MinAge:     c.MinAge,
			MaxAge:     c.MaxAge,
			MinIncome:  c.MinIncome,
			MaxIncome:  c.MaxIncome,
			Categories: nonNil(c.Categories),
			Gender:     c.Gender,
			States:     nonNil(c.States),
		},
		Requirements:        nonNil(s.Requirements),
		ApplicationDeadline: s.ApplicationDeadline,
		IsActive:            s.IsActive,
		CreatedAt:           s.CreatedAt,
		UpdatedAt:           s.UpdatedAt,
	}
}

// fromDocument converts a stored document. Older writers store an
// unbounded income ceiling as +Infinity.
func fromDocument(d schemeDocument) models.Scheme {
	c := d.EligibilityCriteria
	maxIncome := c.MaxIncome
	if maxIncome != nil && math.IsInf(*maxIncome, 1) {
		maxIncome = nil
	}
	gender := c.Gender
	if gender == "" {
		gender = models.GenderAll
	}
	duration := d.Duration
	if duration == "" {
		duration = models.DefaultDuration
	}

	return models.Scheme{
		ID:              d.ID.Hex(),
		Name:            d.Name,
		Description:     d.Description,
		Category:        d.Category,
		Benefits:        d.Benefits,
		Duration:        duration,
		OfficialWebsite: d.OfficialWebsite,
		EligibilityCriteria: models.EligibilityCriteria{
			MinAge:     c.MinAge,
			MaxAge:     c.MaxAge,
			MinIncome:  c.MinIncome,
			MaxIncome:  maxIncome,
			Categories: nonNil(c.Categories),
			Gender:     gender,
			States:     nonNil(c.States),
		},
		Requirements:        nonNil(d.Requirements),
		ApplicationDeadline: d.ApplicationDeadline,
		IsActive:            d.IsActive,
		CreatedAt:           d.CreatedAt.UTC(),
		UpdatedAt:           d.UpdatedAt.UTC(),
	}
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
