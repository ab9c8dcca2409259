package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/sparkmatch/messaging-service/internal/models"
)

// NewMongoClient connects and pings within a bounded context.
func NewMongoClient(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	return client, nil
}

// MongoStore implements ConversationStore, MessageAppender and
// ReadReceiptStore on two collections.
type MongoStore struct {
	convCol *mongo.Collection
	msgCol  *mongo.Collection
	log     *zap.SugaredLogger
}

func NewMongoStore(db *mongo.Database, log *zap.SugaredLogger) *MongoStore {
	return &MongoStore{
		convCol: db.Collection("conversations"),
		msgCol:  db.Collection("messages"),
		log:     log,
	}
}

// EnsureIndexes creates the unique canonical-pair index that resolves the
// concurrent find-or-create race, and the message pagination index.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.convCol.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "participants", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("participants_unique"),
	})
	if err != nil {
		return err
	}
	_, err = s.msgCol.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "conversation_id", Value: 1},
			{Key: "created_at", Value: -1},
			{Key: "_id", Value: -1},
		},
		Options: options.Index().SetName("conversation_page_idx"),
	})
	return err
}

func (s *MongoStore) FindByParticipants(ctx context.Context, participants []string) (*models.Conversation, error) {
	pair := models.CanonicalPair(participants[0], participants[1])
	var conv models.Conversation
	if err := s.convCol.FindOne(ctx, bson.M{"participants": pair}).Decode(&conv); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &conv, nil
}

func (s *MongoStore) Create(ctx context.Context, participants []string) (*models.Conversation, error) {
	now := time.Now().UTC()
	conv := &models.Conversation{
		ID:           primitive.NewObjectID().Hex(),
		Participants: models.CanonicalPair(participants[0], participants[1]),
		ReadReceipts: []models.ReadReceipt{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := s.convCol.InsertOne(ctx, conv); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// lost the create race, the winner's row is authoritative
			return s.FindByParticipants(ctx, participants)
		}
		return nil, err
	}
	return conv, nil
}

func (s *MongoStore) FindByID(ctx context.Context, id string, opts PageOpts) (*models.Conversation, Page, error) {
	var conv models.Conversation
	if err := s.convCol.FindOne(ctx, bson.M{"_id": id}).Decode(&conv); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, Page{}, ErrNotFound
		}
		return nil, Page{}, err
	}

	limit := ClampLimit(opts.Limit)
	filter := bson.M{"conversation_id": id}
	if opts.Cursor != "" {
		var anchor models.Message
		if err := s.msgCol.FindOne(ctx, bson.M{"_id": opts.Cursor, "conversation_id": id}).Decode(&anchor); err != nil {
			if err == mongo.ErrNoDocuments {
				return nil, Page{}, ErrInvalidCursor
			}
			return nil, Page{}, err
		}
		filter["$or"] = bson.A{
			bson.M{"created_at": bson.M{"$lt": anchor.CreatedAt}},
			bson.M{"created_at": anchor.CreatedAt, "_id": bson.M{"$lt": anchor.ID}},
		}
	}

	findOpts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))
	cur, err := s.msgCol.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, Page{}, err
	}
	defer cur.Close(ctx)

	var msgs []*models.Message
	for cur.Next(ctx) {
		var m models.Message
		if err := cur.Decode(&m); err != nil {
			return nil, Page{}, err
		}
		msgs = append(msgs, &m)
	}
	if err := cur.Err(); err != nil {
		return nil, Page{}, err
	}
	conv.Messages = msgs
	return &conv, BuildPage(msgs, limit), nil
}

func (s *MongoStore) ListByParticipant(ctx context.Context, profileID string) ([]*models.Conversation, error) {
	findOpts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	cur, err := s.convCol.Find(ctx, bson.M{"participants": profileID}, findOpts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []*models.Conversation
	for cur.Next(ctx) {
		var conv models.Conversation
		if err := cur.Decode(&conv); err != nil {
			return nil, err
		}
		out = append(out, &conv)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}

	// embed only the single most recent message per conversation
	for _, conv := range out {
		var last models.Message
		err := s.msgCol.FindOne(ctx, bson.M{"conversation_id": conv.ID},
			options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}),
		).Decode(&last)
		if err == mongo.ErrNoDocuments {
			continue
		}
		if err != nil {
			return nil, err
		}
		conv.Messages = []*models.Message{&last}
	}
	return out, nil
}

func (s *MongoStore) Append(ctx context.Context, conversationID, writerID, text, msgType string) (*models.Message, error) {
	now := time.Now().UTC()
	msg := &models.Message{
		ID:             primitive.NewObjectID().Hex(),
		ConversationID: conversationID,
		WriterID:       writerID,
		Text:           text,
		MsgType:        msgType,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if _, err := s.msgCol.InsertOne(ctx, msg); err != nil {
		return nil, err
	}
	if _, err := s.convCol.UpdateOne(ctx,
		bson.M{"_id": conversationID},
		bson.M{"$set": bson.M{"updated_at": now}},
	); err != nil {
		s.log.Errorw("refresh conversation updated_at", "conversation_id", conversationID, "error", err)
	}
	return msg, nil
}

func (s *MongoStore) UpsertReadReceipt(ctx context.Context, conversationID, profileID string, lastViewedAt time.Time) (*models.Conversation, error) {
	// The push matches only while no receipt exists for the profile. A
	// concurrent first write that loses the race matches nothing here and
	// falls through to the positional $set.
	receipt := models.ReadReceipt{
		ID:           primitive.NewObjectID().Hex(),
		ProfileID:    profileID,
		LastViewedAt: lastViewedAt,
	}
	res, err := s.convCol.UpdateOne(ctx,
		bson.M{"_id": conversationID, "read_receipts.profile_id": bson.M{"$ne": profileID}},
		bson.M{"$push": bson.M{"read_receipts": receipt}},
	)
	if err != nil {
		return nil, err
	}
	if res.MatchedCount == 0 {
		if _, err := s.convCol.UpdateOne(ctx,
			bson.M{"_id": conversationID, "read_receipts.profile_id": profileID},
			bson.M{"$set": bson.M{"read_receipts.$.last_viewed_at": lastViewedAt}},
		); err != nil {
			return nil, err
		}
	}

	var conv models.Conversation
	if err := s.convCol.FindOne(ctx, bson.M{"_id": conversationID}).Decode(&conv); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &conv, nil
}
