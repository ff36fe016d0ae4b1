package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// RoomMember records that a user participates in a room. Membership CRUD
// itself belongs to the membership service; the delivery core only needs
// fast answers to "which rooms does this subscriber care about" and "may
// this caller touch this room".
type RoomMember struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RoomID   string             `bson:"room_id" json:"room_id"`
	UserID   string             `bson:"user_id" json:"user_id"`
	JoinedAt time.Time          `bson:"joined_at" json:"joined_at"`
}

type MembershipRepository interface {
	AddMember(ctx context.Context, roomID, userID string) error
	RemoveMember(ctx context.Context, roomID, userID string) error
	RoomsForUser(ctx context.Context, userID string) ([]string, error)
	IsMember(ctx context.Context, roomID, userID string) (bool, error)
}

type membershipRepo struct {
	collection *mongo.Collection
}

func NewMembershipRepository(db *DB) MembershipRepository {
	repo := &membershipRepo{
		collection: db.Database.Collection("room_members"),
	}

	go repo.createIndexes(context.Background())

	return repo
}

func (r *membershipRepo) createIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "room_id", Value: 1},
				{Key: "user_id", Value: 1},
			},
			Options: options.Index().
				SetUnique(true).
				SetName("room_user"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetName("user_rooms"),
		},
	}

	if _, err := r.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		fmt.Printf("Failed to create membership indexes: %v\n", err)
	}
}

func (r *membershipRepo) AddMember(ctx context.Context, roomID, userID string) error {
	filter := bson.M{"room_id": roomID, "user_id": userID}
	update := bson.M{
		"$setOnInsert": bson.M{
			"room_id":   roomID,
			"user_id":   userID,
			"joined_at": time.Now(),
		},
	}

	opts := options.Update().SetUpsert(true)
	if _, err := r.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("add member %s to room %s: %w", userID, roomID, err)
	}
	return nil
}

func (r *membershipRepo) RemoveMember(ctx context.Context, roomID, userID string) error {
	filter := bson.M{"room_id": roomID, "user_id": userID}
	if _, err := r.collection.DeleteOne(ctx, filter); err != nil {
		return fmt.Errorf("remove member %s from room %s: %w", userID, roomID, err)
	}
	return nil
}

func (r *membershipRepo) RoomsForUser(ctx context.Context, userID string) ([]string, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "joined_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find rooms for user %s: %w", userID, err)
	}
	defer cursor.Close(ctx)

	var rooms []string
	for cursor.Next(ctx) {
		var member RoomMember
		if err := cursor.Decode(&member); err != nil {
			return nil, fmt.Errorf("decode room member: %w", err)
		}
		rooms = append(rooms, member.RoomID)
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return rooms, nil
}

func (r *membershipRepo) IsMember(ctx context.Context, roomID, userID string) (bool, error) {
	filter := bson.M{"room_id": roomID, "user_id": userID}
	count, err := r.collection.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("check membership %s/%s: %w", userID, roomID, err)
	}
	return count > 0, nil
}
