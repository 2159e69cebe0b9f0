package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"authd/internal/domain/models"
	"authd/internal/storage"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type Storage struct {
	client   *mongo.Client
	database *mongo.Database
	users    *mongo.Collection
	counters *mongo.Collection
}

// Todos live inside the user document, so deleting the account is a single
// DeleteOne and can never leave todos or a session fingerprint behind.
type userDoc struct {
	ID                 int64     `bson:"_id"`
	FirstName          string    `bson:"first_name"`
	MiddleName         string    `bson:"middle_name,omitempty"`
	LastName           string    `bson:"last_name"`
	Username           string    `bson:"username"`
	Email              string    `bson:"email"`
	PassHash           []byte    `bson:"pass_hash"`
	RefreshFingerprint *string   `bson:"refresh_fingerprint,omitempty"`
	Todos              []todoDoc `bson:"todos,omitempty"`
	CreatedAt          time.Time `bson:"created_at"`
}

type todoDoc struct {
	ID        int64  `bson:"id"`
	Task      string `bson:"task"`
	Completed bool   `bson:"completed"`
}

type counterDoc struct {
	ID    string `bson:"_id"`
	Value int64  `bson:"value"`
}

// New connects to MongoDB and sets up indexes.
func New(ctx context.Context, uri, database string) (*Storage, error) {
	const op = "storage.mongodb.New"

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("%s: connect: %w", op, err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("%s: ping: %w", op, err)
	}

	db := client.Database(database)
	s := &Storage{
		client:   client,
		database: db,
		users:    db.Collection("users"),
		counters: db.Collection("counters"),
	}

	if err := s.ensureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("%s: indexes: %w", op, err)
	}

	return s, nil
}

func (s *Storage) ensureIndexes(ctx context.Context) error {
	for _, im := range []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "refresh_fingerprint", Value: 1}},
			Options: options.Index().SetUnique(true).SetPartialFilterExpression(
				bson.D{{Key: "refresh_fingerprint", Value: bson.D{{Key: "$type", Value: "string"}}}},
			),
		},
	} {
		if _, err := s.users.Indexes().CreateOne(ctx, im); err != nil {
			return fmt.Errorf("users index: %w", err)
		}
	}
	return nil
}

// Close disconnects from MongoDB.
func (s *Storage) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// nextID atomically increments and returns the next ID for a sequence.
func (s *Storage) nextID(ctx context.Context, sequence string) (int64, error) {
	filter := bson.D{{Key: "_id", Value: sequence}}
	update := bson.D{{Key: "$inc", Value: bson.D{{Key: "value", Value: int64(1)}}}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var counter counterDoc
	if err := s.counters.FindOneAndUpdate(ctx, filter, update, opts).Decode(&counter); err != nil {
		return 0, err
	}
	return counter.Value, nil
}

func (s *Storage) SaveUser(
	ctx context.Context,
	firstName, middleName, lastName, username, email string,
	passHash []byte,
) (int64, error) {
	const op = "storage.mongodb.SaveUser"

	id, err := s.nextID(ctx, "users")
	if err != nil {
		return 0, fmt.Errorf("%s: nextID: %w", op, err)
	}

	doc := userDoc{
		ID:         id,
		FirstName:  firstName,
		MiddleName: middleName,
		LastName:   lastName,
		Username:   username,
		Email:      email,
		PassHash:   passHash,
		CreatedAt:  time.Now(),
	}

	if _, err := s.users.InsertOne(ctx, doc); err != nil {
		if isDuplicateKeyError(err) {
			return 0, fmt.Errorf("%s: %w", op, storage.ErrUserAlreadyExists)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (s *Storage) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	const op = "storage.mongodb.UserByUsername"
	return s.user(ctx, op, bson.D{{Key: "username", Value: username}})
}

func (s *Storage) UserByID(ctx context.Context, userID int64) (*models.User, error) {
	const op = "storage.mongodb.UserByID"
	return s.user(ctx, op, bson.D{{Key: "_id", Value: userID}})
}

func (s *Storage) UserByRefreshFingerprint(ctx context.Context, fingerprint string) (*models.User, error) {
	const op = "storage.mongodb.UserByRefreshFingerprint"
	return s.user(ctx, op, bson.D{{Key: "refresh_fingerprint", Value: fingerprint}})
}

func (s *Storage) user(ctx context.Context, op string, filter bson.D) (*models.User, error) {
	var doc userDoc
	if err := s.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.User{
		ID:                 doc.ID,
		FirstName:          doc.FirstName,
		MiddleName:         doc.MiddleName,
		LastName:           doc.LastName,
		Username:           doc.Username,
		Email:              doc.Email,
		PassHash:           doc.PassHash,
		RefreshFingerprint: doc.RefreshFingerprint,
	}, nil
}

func (s *Storage) SetRefreshFingerprint(ctx context.Context, userID int64, fingerprint *string) error {
	const op = "storage.mongodb.SetRefreshFingerprint"

	var update bson.D
	if fingerprint != nil {
		update = bson.D{{Key: "$set", Value: bson.D{{Key: "refresh_fingerprint", Value: *fingerprint}}}}
	} else {
		update = bson.D{{Key: "$unset", Value: bson.D{{Key: "refresh_fingerprint", Value: ""}}}}
	}

	result, err := s.users.UpdateOne(ctx, bson.D{{Key: "_id", Value: userID}}, update)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}
	return nil
}

// RotateRefreshFingerprint is a compare-and-set: the filter pins the current
// fingerprint, so a rotation that lost the race matches nothing.
func (s *Storage) RotateRefreshFingerprint(ctx context.Context, userID int64, oldFingerprint, newFingerprint string) error {
	const op = "storage.mongodb.RotateRefreshFingerprint"

	result, err := s.users.UpdateOne(ctx,
		bson.D{
			{Key: "_id", Value: userID},
			{Key: "refresh_fingerprint", Value: oldFingerprint},
		},
		bson.D{{Key: "$set", Value: bson.D{{Key: "refresh_fingerprint", Value: newFingerprint}}}},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrSessionRotated)
	}
	return nil
}

func (s *Storage) ClearRefreshFingerprint(ctx context.Context, fingerprint string) (bool, error) {
	const op = "storage.mongodb.ClearRefreshFingerprint"

	result, err := s.users.UpdateOne(ctx,
		bson.D{{Key: "refresh_fingerprint", Value: fingerprint}},
		bson.D{{Key: "$unset", Value: bson.D{{Key: "refresh_fingerprint", Value: ""}}}},
	)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return result.MatchedCount > 0, nil
}

func (s *Storage) UpdateProfile(ctx context.Context, userID int64, firstName, middleName, lastName, email string) error {
	const op = "storage.mongodb.UpdateProfile"

	set := bson.D{
		{Key: "first_name", Value: firstName},
		{Key: "last_name", Value: lastName},
		{Key: "email", Value: email},
	}
	update := bson.D{{Key: "$set", Value: set}}
	if middleName != "" {
		set = append(set, bson.E{Key: "middle_name", Value: middleName})
		update = bson.D{{Key: "$set", Value: set}}
	} else {
		update = append(update, bson.E{Key: "$unset", Value: bson.D{{Key: "middle_name", Value: ""}}})
	}

	result, err := s.users.UpdateOne(ctx, bson.D{{Key: "_id", Value: userID}}, update)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("%s: %w", op, storage.ErrUserAlreadyExists)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}
	return nil
}

func (s *Storage) UpdatePassword(ctx context.Context, userID int64, passHash []byte) error {
	const op = "storage.mongodb.UpdatePassword"

	result, err := s.users.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: userID}},
		bson.D{
			{Key: "$set", Value: bson.D{{Key: "pass_hash", Value: passHash}}},
			{Key: "$unset", Value: bson.D{{Key: "refresh_fingerprint", Value: ""}}},
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}
	return nil
}

func (s *Storage) DeleteUser(ctx context.Context, userID int64) error {
	const op = "storage.mongodb.DeleteUser"

	result, err := s.users.DeleteOne(ctx, bson.D{{Key: "_id", Value: userID}})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}
	return nil
}

func (s *Storage) Todos(ctx context.Context, userID int64) ([]models.Todo, error) {
	const op = "storage.mongodb.Todos"

	var doc userDoc
	err := s.users.FindOne(ctx, bson.D{{Key: "_id", Value: userID}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	todos := make([]models.Todo, 0, len(doc.Todos))
	for _, t := range doc.Todos {
		todos = append(todos, models.Todo{
			ID:        t.ID,
			UserID:    userID,
			Task:      t.Task,
			Completed: t.Completed,
		})
	}
	return todos, nil
}

func (s *Storage) SaveTodo(ctx context.Context, userID int64, task string) (int64, error) {
	const op = "storage.mongodb.SaveTodo"

	id, err := s.nextID(ctx, "todos")
	if err != nil {
		return 0, fmt.Errorf("%s: nextID: %w", op, err)
	}

	result, err := s.users.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: userID}},
		bson.D{{Key: "$push", Value: bson.D{{Key: "todos", Value: todoDoc{ID: id, Task: task}}}}},
	)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if result.MatchedCount == 0 {
		return 0, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}
	return id, nil
}

func (s *Storage) ToggleTodo(ctx context.Context, userID, todoID int64) (*models.Todo, error) {
	const op = "storage.mongodb.ToggleTodo"

	filter := bson.D{
		{Key: "_id", Value: userID},
		{Key: "todos.id", Value: todoID},
	}
	update := bson.A{
		bson.D{{Key: "$set", Value: bson.D{{Key: "todos", Value: bson.D{
			{Key: "$map", Value: bson.D{
				{Key: "input", Value: "$todos"},
				{Key: "as", Value: "t"},
				{Key: "in", Value: bson.D{{Key: "$cond", Value: bson.A{
					bson.D{{Key: "$eq", Value: bson.A{"$$t.id", todoID}}},
					bson.D{{Key: "$mergeObjects", Value: bson.A{
						"$$t",
						bson.D{{Key: "completed", Value: bson.D{{Key: "$not", Value: "$$t.completed"}}}},
					}}},
					"$$t",
				}}}},
			}},
		}}}}},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc userDoc
	if err := s.users.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrTodoNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for _, t := range doc.Todos {
		if t.ID == todoID {
			return &models.Todo{ID: t.ID, UserID: userID, Task: t.Task, Completed: t.Completed}, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", op, storage.ErrTodoNotFound)
}

func (s *Storage) DeleteTodo(ctx context.Context, userID, todoID int64) error {
	const op = "storage.mongodb.DeleteTodo"

	result, err := s.users.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: userID}},
		bson.D{{Key: "$pull", Value: bson.D{{Key: "todos", Value: bson.D{{Key: "id", Value: todoID}}}}}},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if result.ModifiedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrTodoNotFound)
	}
	return nil
}

// isDuplicateKeyError checks for a MongoDB duplicate key error (code 11000).
func isDuplicateKeyError(err error) bool {
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	return false
}
