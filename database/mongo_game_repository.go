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

type MongoGameRepository struct {
	collection *mongo.Collection
	logger     *logging.Logger
}

func NewMongoGameRepository(db *MongoDB) *MongoGameRepository {
	collection := db.GetCollection("games")
	logger := logging.WithPrefix("mongo_game_repo")

	ctx, cancel := WithShortTimeout()
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "season", Value: 1}, {Key: "week", Value: 1}, {Key: "start_time", Value: 1}},
		},
	}
	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		logger.Errorf("Failed to create index on games collection: %v", err)
	}

	return &MongoGameRepository{
		collection: collection,
		logger:     logger,
	}
}

// Upsert replaces the game document keyed by its feed id
func (r *MongoGameRepository) Upsert(ctx context.Context, game *models.Game) error {
	_, err := r.collection.ReplaceOne(ctx, bson.M{"id": game.ID}, game, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert game %d: %w", game.ID, err)
	}
	return nil
}

func (r *MongoGameRepository) FindByID(ctx context.Context, gameID int) (*models.Game, error) {
	var game models.Game
	err := r.collection.FindOne(ctx, bson.M{"id": gameID}).Decode(&game)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find game %d: %w", gameID, err)
	}
	return &game, nil
}

func (r *MongoGameRepository) FindByWeek(ctx context.Context, season, week int) ([]*models.Game, error) {
	games, err := r.find(ctx, bson.M{"season": season, "week": week})
	if err != nil {
		return nil, fmt.Errorf("failed to find games for season %d week %d: %w", season, week, err)
	}
	return games, nil
}

func (r *MongoGameRepository) FindBySeason(ctx context.Context, season int) ([]*models.Game, error) {
	games, err := r.find(ctx, bson.M{"season": season})
	if err != nil {
		return nil, fmt.Errorf("failed to find games for season %d: %w", season, err)
	}
	return games, nil
}

func (r *MongoGameRepository) find(ctx context.Context, filter bson.M) ([]*models.Game, error) {
	opts := options.Find().SetSort(bson.D{{Key: "start_time", Value: 1}, {Key: "id", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var games []*models.Game
	if err := cursor.All(ctx, &games); err != nil {
		return nil, fmt.Errorf("failed to decode games: %w", err)
	}
	return games, nil
}

// WatchFinalGames opens a change stream on the games collection and calls
// handle for every written document whose status is final. It blocks until
// ctx is done or the stream fails, and returns the stream error.
func (r *MongoGameRepository) WatchFinalGames(ctx context.Context, handle func(*models.Game)) error {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"operationType":       bson.M{"$in": []string{"insert", "replace", "update"}},
			"fullDocument.status": string(models.GameStatusFinal),
		}}},
	}
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)

	stream, err := r.collection.Watch(ctx, pipeline, opts)
	if err != nil {
		return fmt.Errorf("failed to open games change stream: %w", err)
	}
	defer stream.Close(context.Background())

	r.logger.Info("Watching games collection for final results")

	for stream.Next(ctx) {
		var event struct {
			OperationType string       `bson:"operationType"`
			FullDocument  *models.Game `bson:"fullDocument"`
		}
		if err := stream.Decode(&event); err != nil {
			r.logger.Warnf("Error decoding change event: %v", err)
			continue
		}
		if event.FullDocument == nil {
			continue
		}
		r.logger.Debugf("Game %d %s (%s), week %d", event.FullDocument.ID, event.OperationType,
			event.FullDocument.Matchup(), event.FullDocument.Week)
		handle(event.FullDocument)
	}

	if err := stream.Err(); err != nil {
		return fmt.Errorf("games change stream: %w", err)
	}
	return ctx.Err()
}
