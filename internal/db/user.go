package db

import (
	"context"
	"fmt"

	"github.com/Shahid-khan015/FarmTrack/internal/models"
	"go.mongodb.org/mongo-driver/bson"
)

// InsertUser inserts a new user into the database
func (s *MongoStore) InsertUser(ctx context.Context, user models.User) error {
	user.CreatedAt = bsonTime(user.CreatedAt)
	if _, err := s.users.InsertOne(ctx, user); err != nil {
		return fmt.Errorf("failed to insert user: %w", translateMongoError(err))
	}
	return nil
}

// FindUserByID finds a user by their ID
func (s *MongoStore) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := findOne(ctx, s.users, bson.M{"_id": id}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindUserByUsername finds a user by their username
func (s *MongoStore) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := findOne(ctx, s.users, bson.M{"username": username}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
