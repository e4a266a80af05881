package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"confidence-pickem/logging"
	"confidence-pickem/models"
	"confidence-pickem/services"
)

const (
	picksCollection  = "picks"
	guardsCollection = "pick_guards"
)

// MongoPickRepository implements services.PickStore for MongoDB.
//
// Every write runs in a transaction that first bumps a guard document for
// the (user, season, week). Two submissions for the same user-week therefore
// write-conflict on the guard and exactly one of them commits.
type MongoPickRepository struct {
	client     *mongo.Client
	collection *mongo.Collection
	guards     *mongo.Collection
	logger     *logging.Logger
}

// NewMongoPickRepository creates a new MongoDB pick repository
func NewMongoPickRepository(db *MongoDB) *MongoPickRepository {
	logger := logging.WithPrefix("mongo_pick_repo")
	collection := db.GetCollection(picksCollection)

	ctx, cancel := WithMediumTimeout()
	defer cancel()

	db.ensureCollection(ctx, picksCollection)
	db.ensureCollection(ctx, guardsCollection)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "game_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("user_game_unique"),
		},
		{
			// A confidence value above zero is held by at most one pick per user-week
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "season", Value: 1},
				{Key: "week", Value: 1},
				{Key: "confidence_points", Value: 1},
			},
			Options: options.Index().
				SetUnique(true).
				SetName("user_week_confidence_unique").
				SetPartialFilterExpression(bson.M{"confidence_points": bson.M{"$gt": 0}}),
		},
		{
			Keys: bson.D{{Key: "season", Value: 1}, {Key: "week", Value: 1}},
		},
	}

	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		logger.Warnf("Could not create pick indexes: %v", err)
	}

	return &MongoPickRepository{
		client:     db.client,
		collection: collection,
		guards:     db.GetCollection(guardsCollection),
		logger:     logger,
	}
}

// FindByUserAndWeek retrieves all picks for a user in a specific season/week
func (r *MongoPickRepository) FindByUserAndWeek(ctx context.Context, userID, season, week int) ([]*models.Pick, error) {
	picks, err := findPicks(ctx, r.collection, bson.M{"user_id": userID, "season": season, "week": week})
	if err != nil {
		return nil, fmt.Errorf("failed to find picks by user and week: %w", err)
	}
	return picks, nil
}

// FindByWeek retrieves all picks for a specific season/week
func (r *MongoPickRepository) FindByWeek(ctx context.Context, season, week int) ([]*models.Pick, error) {
	picks, err := findPicks(ctx, r.collection, bson.M{"season": season, "week": week})
	if err != nil {
		return nil, fmt.Errorf("failed to find picks by week: %w", err)
	}
	return picks, nil
}

// FindByGame retrieves every user's pick on a game
func (r *MongoPickRepository) FindByGame(ctx context.Context, gameID int) ([]*models.Pick, error) {
	picks, err := findPicks(ctx, r.collection, bson.M{"game_id": gameID})
	if err != nil {
		return nil, fmt.Errorf("failed to find picks by game: %w", err)
	}
	return picks, nil
}

// WithinUserWeek runs fn inside a snapshot transaction. A rule error from
// fn aborts and is returned unchanged. Losing a race to another writer is
// reported as services.ErrConcurrentUpdate; the transaction is not retried.
func (r *MongoPickRepository) WithinUserWeek(ctx context.Context, userID, season, week int, fn func(tx services.PickTx) error) error {
	session, err := r.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(context.Background())

	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	sc := mongo.NewSessionContext(ctx, session)
	if err := session.StartTransaction(txnOpts); err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	abort := func() {
		abortCtx, cancel := WithShortTimeout()
		defer cancel()
		if err := session.AbortTransaction(abortCtx); err != nil {
			r.logger.Debugf("Abort for user %d week %d: %v", userID, week, err)
		}
	}

	if err := r.bumpGuard(sc, userID, season, week); err != nil {
		abort()
		return r.storeErr("failed to lock user week", err)
	}

	tx := &mongoPickTx{
		repo:    r,
		session: session,
		userID:  userID,
		season:  season,
		week:    week,
	}
	if err := fn(tx); err != nil {
		abort()
		return err
	}

	if err := session.CommitTransaction(sc); err != nil {
		abort()
		return r.storeErr("failed to commit pick transaction", err)
	}
	return nil
}

func (r *MongoPickRepository) bumpGuard(ctx context.Context, userID, season, week int) error {
	_, err := r.guards.UpdateOne(ctx,
		bson.M{"_id": guardKey(userID, season, week)},
		bson.M{
			"$inc": bson.M{"version": 1},
			"$set": bson.M{"updated_at": time.Now().UTC()},
		},
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *MongoPickRepository) storeErr(msg string, err error) error {
	if isTransactionConflict(err) {
		return fmt.Errorf("%s: %w", msg, services.ErrConcurrentUpdate)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func guardKey(userID, season, week int) string {
	return fmt.Sprintf("%d:%d:%d", userID, season, week)
}

// mongoPickTx binds the caller's context to the open session on every call
type mongoPickTx struct {
	repo    *MongoPickRepository
	session mongo.Session
	userID  int
	season  int
	week    int
}

func (t *mongoPickTx) Picks(ctx context.Context) ([]*models.Pick, error) {
	sc := mongo.NewSessionContext(ctx, t.session)
	picks, err := findPicks(sc, t.repo.collection, bson.M{"user_id": t.userID, "season": t.season, "week": t.week})
	if err != nil {
		return nil, t.repo.storeErr("failed to read picks in transaction", err)
	}
	return picks, nil
}

func (t *mongoPickTx) Demote(ctx context.Context, pick *models.Pick, expected int) error {
	sc := mongo.NewSessionContext(ctx, t.session)
	res, err := t.repo.collection.UpdateOne(sc,
		bson.M{"user_id": pick.UserID, "game_id": pick.GameID, "confidence_points": expected},
		bson.M{"$set": bson.M{"confidence_points": 0, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return t.repo.storeErr("failed to demote pick", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("pick for game %d no longer holds %d: %w", pick.GameID, expected, services.ErrConcurrentUpdate)
	}
	return nil
}

func (t *mongoPickTx) Save(ctx context.Context, pick *models.Pick) error {
	sc := mongo.NewSessionContext(ctx, t.session)
	_, err := t.repo.collection.ReplaceOne(sc,
		bson.M{"user_id": pick.UserID, "game_id": pick.GameID},
		pick,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return t.repo.storeErr("failed to save pick", err)
	}
	return nil
}

func findPicks(ctx context.Context, collection *mongo.Collection, filter bson.M) ([]*models.Pick, error) {
	opts := options.Find().SetSort(bson.D{{Key: "game_id", Value: 1}})
	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var picks []*models.Pick
	if err := cursor.All(ctx, &picks); err != nil {
		return nil, fmt.Errorf("failed to decode picks: %w", err)
	}
	return picks, nil
}
