package database

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"confidence-pickem/logging"
	"confidence-pickem/models"
)

// MongoUserRepository implements services.UserRepository for MongoDB
type MongoUserRepository struct {
	collection *mongo.Collection
}

// NewMongoUserRepository creates a new MongoDB user repository
func NewMongoUserRepository(db *MongoDB) *MongoUserRepository {
	r := &MongoUserRepository{
		collection: db.GetCollection("users"),
	}
	if err := r.EnsureIndexes(); err != nil {
		logging.WithPrefix("mongo_user_repo").Warnf("Could not create user indexes: %v", err)
	}
	return r
}

// GetUserByEmail retrieves a user by their email address (case-insensitive)
func (r *MongoUserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	pattern := "^" + regexp.QuoteMeta(strings.TrimSpace(email)) + "$"
	filter := bson.M{"email": bson.M{"$regex": pattern, "$options": "i"}}
	err := r.collection.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return &user, nil
}

// GetUserByID retrieves a user by their ID
func (r *MongoUserRepository) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find user %d: %w", id, err)
	}
	return &user, nil
}

// CreateUser inserts a user. A zero ID is replaced by the next free one.
func (r *MongoUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == 0 {
		var last models.User
		opts := options.FindOne().SetSort(bson.D{{Key: "_id", Value: -1}})
		err := r.collection.FindOne(ctx, bson.M{}, opts).Decode(&last)
		switch {
		case err == nil:
			user.ID = last.ID + 1
		case err == mongo.ErrNoDocuments:
			user.ID = 1
		default:
			return fmt.Errorf("failed to allocate user id: %w", err)
		}
	}

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, user); err != nil {
		return fmt.Errorf("failed to create user %s: %w", user.Email, err)
	}
	return nil
}

// GetAllUsers retrieves all users ordered by ID
func (r *MongoUserRepository) GetAllUsers(ctx context.Context) ([]*models.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer cursor.Close(ctx)

	var users []*models.User
	if err = cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	return users, nil
}

// EnsureIndexes creates necessary indexes for the users collection
func (r *MongoUserRepository) EnsureIndexes() error {
	ctx, cancel := WithMediumTimeout()
	defer cancel()

	emailIndexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}

	_, err := r.collection.Indexes().CreateOne(ctx, emailIndexModel)
	return err
}
