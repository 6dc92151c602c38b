package donors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	// MongoCollection is the collection holding donor documents.
	MongoCollection = "users"

	mongoEmailIndex        = "email_unique"
	mongoReferralCodeIndex = "referral_code_unique"
	mongoLeaderboardIndex  = "donations_leaderboard"
)

var errMissingMongoDatabase = errors.New("mongo database handle is required")

type donorDocument struct {
	ID              string                 `bson:"_id"`
	Name            string                 `bson:"name"`
	Email           string                 `bson:"email"`
	ReferralCode    string                 `bson:"referralCode"`
	Donations       float64                `bson:"donations"`
	Rewards         []string               `bson:"rewards"`
	DonationHistory []contributionDocument `bson:"donationHistory,omitempty"`
	Version         int64                  `bson:"version"`
	CreatedAt       time.Time              `bson:"createdAt"`
	UpdatedAt       time.Time              `bson:"updatedAt"`
}

type contributionDocument struct {
	Amount float64   `bson:"amount"`
	Date   time.Time `bson:"date"`
}

type mongoBucket struct {
	Label string  `bson:"_id"`
	Total float64 `bson:"totalDonations"`
}

// MongoIndexModels lists the indexes the donor collection relies on.
func MongoIndexModels() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName(mongoEmailIndex).SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "referralCode", Value: 1}},
			Options: options.Index().SetName(mongoReferralCodeIndex).SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "donations", Value: -1}, {Key: "createdAt", Value: 1}},
			Options: options.Index().SetName(mongoLeaderboardIndex),
		},
	}
}

// MongoStore implements Store on a MongoDB collection with embedded donation history.
type MongoStore struct {
	database   *mongo.Database
	collection *mongo.Collection
}

// NewMongoStore binds the store to the donor collection of database.
func NewMongoStore(database *mongo.Database) (*MongoStore, error) {
	if database == nil {
		return nil, errMissingMongoDatabase
	}
	return &MongoStore{
		database:   database,
		collection: database.Collection(MongoCollection),
	}, nil
}

func (s *MongoStore) FindByEmail(ctx context.Context, email string) (Donor, error) {
	return s.findOne(ctx, bson.D{{Key: "email", Value: email}})
}

func (s *MongoStore) FindByReferralCode(ctx context.Context, code string) (Donor, error) {
	return s.findOne(ctx, bson.D{{Key: "referralCode", Value: code}})
}

func (s *MongoStore) findOne(ctx context.Context, filter bson.D) (Donor, error) {
	var document donorDocument
	err := s.collection.FindOne(ctx, filter).Decode(&document)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Donor{}, ErrDonorNotFound
	}
	if err != nil {
		return Donor{}, err
	}
	return document.toDonor(), nil
}

func (s *MongoStore) ReferralCodeTaken(ctx context.Context, code string) (bool, error) {
	count, err := s.collection.CountDocuments(ctx,
		bson.D{{Key: "referralCode", Value: code}},
		options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *MongoStore) Insert(ctx context.Context, donor Donor) error {
	document := donorDocument{
		ID:              donor.ID,
		Name:            donor.Name,
		Email:           donor.Email,
		ReferralCode:    donor.ReferralCode,
		Donations:       donor.Donations,
		Rewards:         donor.Rewards,
		DonationHistory: make([]contributionDocument, 0, len(donor.History)),
		Version:         donor.Version,
		CreatedAt:       donor.CreatedAt,
		UpdatedAt:       donor.UpdatedAt,
	}
	for _, entry := range donor.History {
		document.DonationHistory = append(document.DonationHistory, contributionDocument{
			Amount: entry.Amount,
			Date:   entry.DonatedAt,
		})
	}
	if _, err := s.collection.InsertOne(ctx, document); err != nil {
		return classifyDuplicateKey(err)
	}
	return nil
}

func (s *MongoStore) ApplyDonation(ctx context.Context, update DonationUpdate) error {
	filter := bson.D{
		{Key: "_id", Value: update.DonorID},
		{Key: "version", Value: update.ExpectedVersion},
	}
	change := bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "donations", Value: update.Donations},
			{Key: "rewards", Value: update.Rewards},
			{Key: "updatedAt", Value: update.UpdatedAt},
		}},
		{Key: "$inc", Value: bson.D{{Key: "version", Value: 1}}},
		{Key: "$push", Value: bson.D{{Key: "donationHistory", Value: contributionDocument{
			Amount: update.Entry.Amount,
			Date:   update.Entry.DonatedAt,
		}}}},
	}
	result, err := s.collection.UpdateOne(ctx, filter, change)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrVersionConflict
	}
	return nil
}

func (s *MongoStore) ListByDonations(ctx context.Context) ([]Donor, error) {
	findOptions := options.Find().
		SetSort(bson.D{{Key: "donations", Value: -1}, {Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}).
		SetProjection(bson.D{{Key: "donationHistory", Value: 0}})
	cursor, err := s.collection.Find(ctx, bson.D{}, findOptions)
	if err != nil {
		return nil, err
	}
	var documents []donorDocument
	if err := cursor.All(ctx, &documents); err != nil {
		return nil, err
	}
	donors := make([]Donor, 0, len(documents))
	for _, document := range documents {
		donors = append(donors, document.toDonor())
	}
	return donors, nil
}

func (s *MongoStore) SumByPeriod(ctx context.Context, query BucketQuery) ([]Bucket, error) {
	cursor, err := s.collection.Aggregate(ctx, buildMongoPipeline(query))
	if err != nil {
		return nil, err
	}
	var rows []mongoBucket
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	buckets := make([]Bucket, 0, len(rows))
	for _, row := range rows {
		buckets = append(buckets, Bucket{Label: row.Label, Total: row.Total})
	}
	return buckets, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.database.RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err()
}

// buildMongoPipeline unwinds the embedded history, filters it by the optional window,
// groups by the formatted date and sorts labels ascending.
func buildMongoPipeline(query BucketQuery) mongo.Pipeline {
	pipeline := mongo.Pipeline{
		{{Key: "$unwind", Value: "$donationHistory"}},
	}
	if query.Window != nil {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: bson.D{
			{Key: "donationHistory.date", Value: bson.D{
				{Key: "$gte", Value: query.Window.Start},
				{Key: "$lt", Value: query.Window.End},
			}},
		}}})
	}
	pipeline = append(pipeline,
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{{Key: "$dateToString", Value: bson.D{
				{Key: "format", Value: query.Range.dateFormat()},
				{Key: "date", Value: "$donationHistory.date"},
			}}}},
			{Key: "totalDonations", Value: bson.D{{Key: "$sum", Value: "$donationHistory.amount"}}},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	)
	return pipeline
}

func classifyDuplicateKey(err error) error {
	if !mongo.IsDuplicateKeyError(err) {
		return err
	}
	if strings.Contains(err.Error(), mongoReferralCodeIndex) {
		return fmt.Errorf("%w: %v", ErrDuplicateReferralCode, err)
	}
	return fmt.Errorf("%w: %v", ErrDuplicateEmail, err)
}

func (d donorDocument) toDonor() Donor {
	history := make([]Contribution, 0, len(d.DonationHistory))
	for _, entry := range d.DonationHistory {
		history = append(history, Contribution{Amount: entry.Amount, DonatedAt: entry.Date.UTC()})
	}
	return Donor{
		ID:           d.ID,
		Name:         d.Name,
		Email:        d.Email,
		ReferralCode: d.ReferralCode,
		Donations:    d.Donations,
		Rewards:      d.Rewards,
		History:      history,
		Version:      d.Version,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
}
