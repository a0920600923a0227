package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/annel0/voxel-builder/internal/logging"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoConfig содержит настройки подключения к MongoDB
type MongoConfig struct {
	URI        string // например mongodb://localhost:27017
	Database   string
	Collection string
}

// DefaultMongoConfig возвращает конфигурацию по умолчанию
func DefaultMongoConfig() *MongoConfig {
	return &MongoConfig{
		URI:        "mongodb://localhost:27017",
		Database:   "voxel",
		Collection: "slots",
	}
}

// slotDocument документ слота: имя слота служит _id
type slotDocument struct {
	Name      string    `bson:"_id"`
	Data      []byte    `bson:"data"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// MongoSlotStore хранит слоты документами MongoDB, по одному документу на слот
type MongoSlotStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	ctxTimeout time.Duration

	mu     sync.RWMutex
	closed bool
}

// NewMongoSlotStore подключается к MongoDB и проверяет соединение
func NewMongoSlotStore(ctx context.Context, config *MongoConfig) (*MongoSlotStore, error) {
	def := DefaultMongoConfig()
	if config == nil {
		config = def
	}
	if config.URI == "" {
		config.URI = def.URI
	}
	if config.Database == "" {
		config.Database = def.Database
	}
	if config.Collection == "" {
		config.Collection = def.Collection
	}

	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(cctx, options.Client().ApplyURI(config.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(cctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logging.GetStorageLogger().Info("🍃 Connected to MongoDB at %s (%s.%s)", config.URI, config.Database, config.Collection)
	return &MongoSlotStore{
		client:     client,
		collection: client.Database(config.Database).Collection(config.Collection),
		ctxTimeout: 5 * time.Second,
	}, nil
}

func (s *MongoSlotStore) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrNotReady
	}
	return nil
}

func (s *MongoSlotStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.ctxTimeout)
}

// Put заменяет документ слота или создаёт его
func (s *MongoSlotStore) Put(ctx context.Context, name string, data []byte) error {
	if err := ValidateSlotName(name); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	if err := checkContext(ctx); err != nil {
		return err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	doc := slotDocument{Name: name, Data: data, UpdatedAt: time.Now().UTC()}
	_, err := s.collection.ReplaceOne(ctx, bson.M{"_id": name}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save slot %s: %w", name, err)
	}
	return nil
}

// Get читает данные слота
func (s *MongoSlotStore) Get(ctx context.Context, name string) ([]byte, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	var doc slotDocument
	err := s.collection.FindOne(ctx, bson.M{"_id": name}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrSlotNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to get slot %s: %w", name, err)
	}
	if doc.Data == nil {
		doc.Data = []byte{}
	}
	return doc.Data, nil
}

// Delete удаляет документ слота
func (s *MongoSlotStore) Delete(ctx context.Context, name string) error {
	if err := s.ready(); err != nil {
		return err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	res, err := s.collection.DeleteOne(ctx, bson.M{"_id": name})
	if err != nil {
		return fmt.Errorf("failed to delete slot %s: %w", name, err)
	}
	if res.DeletedCount == 0 {
		return ErrSlotNotFound
	}
	return nil
}

// List возвращает имена слотов, сортировку делает сервер по _id
func (s *MongoSlotStore) List(ctx context.Context) ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	opts := options.Find().
		SetProjection(bson.M{"_id": 1}).
		SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := s.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}
	defer cur.Close(ctx)

	names := []string{}
	for cur.Next(ctx) {
		var doc struct {
			Name string `bson:"_id"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode slot: %w", err)
		}
		names = append(names, doc.Name)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}
	return names, nil
}

// Drop удаляет коллекцию слотов целиком
func (s *MongoSlotStore) Drop(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.collection.Drop(ctx)
}

// Close разрывает соединение с MongoDB
func (s *MongoSlotStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
