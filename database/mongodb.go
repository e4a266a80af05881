package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"confidence-pickem/logging"
)

type Config struct {
	Host       string
	Port       string
	Username   string
	Password   string
	Database   string
	ReplicaSet string
	// Timeout bounds connect and the initial ping; zero means MediumTimeout
	Timeout time.Duration
}

// URI builds the connection string for the configured deployment
func (c Config) URI() string {
	var uri string
	if c.Username != "" && c.Password != "" {
		uri = fmt.Sprintf("mongodb://%s:%s@%s:%s/%s?authSource=%s",
			c.Username, c.Password, c.Host, c.Port, c.Database, c.Database)
	} else {
		uri = fmt.Sprintf("mongodb://%s:%s/%s", c.Host, c.Port, c.Database)
	}
	if c.ReplicaSet != "" {
		sep := "?"
		if c.Username != "" && c.Password != "" {
			sep = "&"
		}
		uri += sep + "replicaSet=" + c.ReplicaSet
	}
	return uri
}

type MongoDB struct {
	client   *mongo.Client
	database *mongo.Database
	logger   *logging.Logger
}

// NewMongoConnection connects and pings. Pick transactions and change
// streams need a replica set deployment.
func NewMongoConnection(config Config) (*MongoDB, error) {
	logger := logging.WithPrefix("MongoDB")
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = MediumTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if config.Username != "" && config.Password != "" {
		logger.Infof("Connecting with authentication as user: %s", config.Username)
	} else {
		logger.Info("Connecting without authentication")
	}

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(config.URI()).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout))
	if err != nil {
		logger.Errorf("Failed to connect: %v", err)
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		logger.Errorf("Failed to ping: %v", err)
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.Infof("Successfully connected to %s:%s database=%s", config.Host, config.Port, config.Database)

	return &MongoDB{
		client:   client,
		database: client.Database(config.Database),
		logger:   logger,
	}, nil
}

func (m *MongoDB) Close() error {
	ctx, cancel := WithShortTimeout()
	defer cancel()

	err := m.client.Disconnect(ctx)
	if err != nil {
		m.logger.Errorf("Error disconnecting: %v", err)
	} else {
		m.logger.Info("Connection closed successfully")
	}
	return err
}

// Ping is used by the health endpoint
func (m *MongoDB) Ping(ctx context.Context) error {
	if err := m.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("MongoDB ping failed: %w", err)
	}
	return nil
}

func (m *MongoDB) GetCollection(name string) *mongo.Collection {
	return m.database.Collection(name)
}

// ensureCollection creates a collection up front. Servers before 4.4
// refuse to create collections implicitly inside a transaction.
func (m *MongoDB) ensureCollection(ctx context.Context, name string) {
	err := m.database.CreateCollection(ctx, name)
	if err == nil {
		return
	}
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Name == "NamespaceExists" {
		return
	}
	m.logger.Warnf("Could not create collection %s: %v", name, err)
}
