package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names used by MongoStore.
const (
	usersCollection    = "users"
	groupsCollection   = "groups"
	messagesCollection = "messages"
	callsCollection    = "calls"
	countersCollection = "counters"
)

const defaultOperationTimeout = 5 * time.Second

// MongoStore implements Store on top of MongoDB. Numeric record ids come from
// an atomically incremented counters document, so they stay compatible with
// the numeric identifiers the realtime core routes on.
type MongoStore struct {
	client  *mongo.Client
	db      *mongo.Database
	timeout time.Duration
}

// ConnectMongo dials MongoDB, verifies the connection with a ping, and
// prepares the indexes the store relies on.
func ConnectMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	clientOptions := options.Client().ApplyURI(uri).SetAppName("chatwave-backend")

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("connecting to mongodb: %w", err)
	}
	if err = client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging mongodb: %w", err)
	}

	s := &MongoStore{
		client:  client,
		db:      client.Database(database),
		timeout: defaultOperationTimeout,
	}

	if err = s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.db.Collection(messagesCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "receiver_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "group_id", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("creating message indexes: %w", err)
	}

	_, err = s.db.Collection(groupsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "members", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("creating group index: %w", err)
	}
	return nil
}

func (s *MongoStore) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// nextID returns the next value of a named sequence, creating the counter
// document on first use.
func (s *MongoStore) nextID(ctx context.Context, sequence string) (int64, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var counter struct {
		Value int64 `bson:"value"`
	}
	err := s.db.Collection(countersCollection).FindOneAndUpdate(
		ctx,
		bson.D{{Key: "_id", Value: sequence}},
		bson.D{{Key: "$inc", Value: bson.D{{Key: "value", Value: int64(1)}}}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("allocating %s id: %w", sequence, err)
	}
	return counter.Value, nil
}

func (s *MongoStore) UserExists(ctx context.Context, userID int64) (bool, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	n, err := s.db.Collection(usersCollection).CountDocuments(ctx, bson.D{{Key: "_id", Value: userID}})
	if err != nil {
		return false, fmt.Errorf("looking up user %d: %w", userID, err)
	}
	return n > 0, nil
}

func (s *MongoStore) TouchLastSeen(ctx context.Context, userID int64) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	res, err := s.db.Collection(usersCollection).UpdateByID(
		ctx,
		userID,
		bson.D{{Key: "$set", Value: bson.D{{Key: "last_seen", Value: time.Now().UTC()}}}},
	)
	if err != nil {
		return fmt.Errorf("updating last_seen for user %d: %w", userID, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) GroupExists(ctx context.Context, groupID int64) (bool, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	n, err := s.db.Collection(groupsCollection).CountDocuments(ctx, bson.D{{Key: "_id", Value: groupID}})
	if err != nil {
		return false, fmt.Errorf("looking up group %d: %w", groupID, err)
	}
	return n > 0, nil
}

func (s *MongoStore) IsGroupMember(ctx context.Context, groupID, userID int64) (bool, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	filter := bson.D{
		{Key: "_id", Value: groupID},
		{Key: "members", Value: userID},
	}
	n, err := s.db.Collection(groupsCollection).CountDocuments(ctx, filter)
	if err != nil {
		return false, fmt.Errorf("checking membership of user %d in group %d: %w", userID, groupID, err)
	}
	return n > 0, nil
}

func (s *MongoStore) CreateMessage(ctx context.Context, m Message) (Message, error) {
	id, err := s.nextID(ctx, "messages")
	if err != nil {
		return Message{}, err
	}
	m.ID = id
	m.CreatedAt = time.Now().UTC()

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if _, err = s.db.Collection(messagesCollection).InsertOne(ctx, m); err != nil {
		return Message{}, fmt.Errorf("inserting message: %w", err)
	}
	return m, nil
}

func (s *MongoStore) GetMessage(ctx context.Context, messageID int64) (Message, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var m Message
	err := s.db.Collection(messagesCollection).
		FindOne(ctx, bson.D{{Key: "_id", Value: messageID}}).
		Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Message{}, ErrNotFound
	}
	if err != nil {
		return Message{}, fmt.Errorf("fetching message %d: %w", messageID, err)
	}
	return m, nil
}

func (s *MongoStore) UpdateMessageContent(ctx context.Context, messageID int64, content string) (Message, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "content", Value: content},
		{Key: "is_edited", Value: true},
	}}}

	var m Message
	err := s.db.Collection(messagesCollection).
		FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: messageID}}, update, opts).
		Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Message{}, ErrNotFound
	}
	if err != nil {
		return Message{}, fmt.Errorf("updating message %d: %w", messageID, err)
	}
	return m, nil
}

func (s *MongoStore) DeleteMessage(ctx context.Context, messageID int64) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	res, err := s.db.Collection(messagesCollection).DeleteOne(ctx, bson.D{{Key: "_id", Value: messageID}})
	if err != nil {
		return fmt.Errorf("deleting message %d: %w", messageID, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) CreateCall(ctx context.Context, c Call) (Call, error) {
	id, err := s.nextID(ctx, "calls")
	if err != nil {
		return Call{}, err
	}
	c.ID = id
	c.StartedAt = time.Now().UTC()
	if c.Status == "" {
		c.Status = CallInitiated
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if _, err = s.db.Collection(callsCollection).InsertOne(ctx, c); err != nil {
		return Call{}, fmt.Errorf("inserting call: %w", err)
	}
	return c, nil
}

func (s *MongoStore) GetCall(ctx context.Context, callID int64) (Call, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var c Call
	err := s.db.Collection(callsCollection).
		FindOne(ctx, bson.D{{Key: "_id", Value: callID}}).
		Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Call{}, ErrNotFound
	}
	if err != nil {
		return Call{}, fmt.Errorf("fetching call %d: %w", callID, err)
	}
	return c, nil
}

func (s *MongoStore) UpdateCallStatus(ctx context.Context, callID int64, status string) (Call, error) {
	set := bson.D{{Key: "status", Value: status}}
	now := time.Now().UTC()
	switch status {
	case CallAccepted:
		set = append(set, bson.E{Key: "answered_at", Value: now})
	case CallCompleted, CallDeclined, CallMissed:
		set = append(set, bson.E{Key: "ended_at", Value: now})
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var c Call
	err := s.db.Collection(callsCollection).
		FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: callID}}, bson.D{{Key: "$set", Value: set}}, opts).
		Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Call{}, ErrNotFound
	}
	if err != nil {
		return Call{}, fmt.Errorf("updating call %d: %w", callID, err)
	}
	return c, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()
	return s.client.Ping(ctx, nil)
}

func (s *MongoStore) Close(ctx context.Context) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()
	return s.client.Disconnect(ctx)
}
