package database

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"confidence-pickem/logging"
	"confidence-pickem/models"
)

// MongoWeeklyScoreRepository implements services.ScoreStore using MongoDB
type MongoWeeklyScoreRepository struct {
	collection *mongo.Collection
}

// NewMongoWeeklyScoreRepository creates a new MongoDB weekly score repository
func NewMongoWeeklyScoreRepository(db *MongoDB) *MongoWeeklyScoreRepository {
	collection := db.GetCollection("weekly_scores")

	ctx, cancel := WithShortTimeout()
	defer cancel()

	indexModel := mongo.IndexModel{
		Keys: bson.D{
			{Key: "user_id", Value: 1},
			{Key: "week", Value: 1},
			{Key: "season", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	}
	if _, err := collection.Indexes().CreateOne(ctx, indexModel); err != nil {
		logging.WithPrefix("mongo_score_repo").Warnf("Could not create weekly score index: %v", err)
	}

	return &MongoWeeklyScoreRepository{collection: collection}
}

// Upsert replaces the row for (user, week, season) with the given totals
func (r *MongoWeeklyScoreRepository) Upsert(ctx context.Context, score *models.WeeklyScore) error {
	filter := bson.M{
		"user_id": score.UserID,
		"week":    score.Week,
		"season":  score.Season,
	}

	_, err := r.collection.ReplaceOne(ctx, filter, score, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert weekly score for user %d: %w", score.UserID, err)
	}
	return nil
}

// FindBySeasonWeek finds all weekly scores for a specific season and week
func (r *MongoWeeklyScoreRepository) FindBySeasonWeek(ctx context.Context, season, week int) ([]*models.WeeklyScore, error) {
	filter := bson.M{
		"season": season,
		"week":   week,
	}

	opts := options.Find().SetSort(bson.D{{Key: "points", Value: -1}, {Key: "user_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find weekly scores: %w", err)
	}
	defer cursor.Close(ctx)

	var weeklyScores []*models.WeeklyScore
	if err := cursor.All(ctx, &weeklyScores); err != nil {
		return nil, fmt.Errorf("failed to decode weekly scores: %w", err)
	}

	return weeklyScores, nil
}
