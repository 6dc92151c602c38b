package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/VaishnaviDS/Intern-dashboard-server/internal/donors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const mongoConnectTimeout = 10 * time.Second

// OpenMongo connects to MongoDB, verifies the connection and ensures the donor indexes.
// The caller owns the returned client and must disconnect it.
func OpenMongo(ctx context.Context, uri, databaseName string, logger *zap.Logger) (*mongo.Client, *mongo.Database, error) {
	if strings.TrimSpace(uri) == "" {
		return nil, nil, fmt.Errorf("mongo uri is required")
	}
	if strings.TrimSpace(databaseName) == "" {
		return nil, nil, fmt.Errorf("mongo database name is required")
	}

	connectCtx, cancel := context.WithTimeout(ctx, mongoConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}
	database := client.Database(databaseName)

	if err := database.RunCommand(connectCtx, bson.D{{Key: "ping", Value: 1}}).Err(); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}

	if _, err := database.Collection(donors.MongoCollection).Indexes().CreateMany(connectCtx, donors.MongoIndexModels()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("create donor indexes: %w", err)
	}

	if logger != nil {
		logger.Info("database initialized", zap.String("driver", "mongo"), zap.String("database", databaseName))
	}
	return client, database, nil
}
