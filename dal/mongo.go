package dal

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"niverbot/models"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// DefaultMongoDatabase is used when no database name is configured.
const DefaultMongoDatabase = "powerniver"

const (
	birthdaysCollection = "aniversarios"
	guildsCollection    = "config"
)

// MongoStore keeps birthdays in MongoDB. User ids are stored as integers
// under "id" to stay compatible with existing collections.
type MongoStore struct {
	client    *mongo.Client
	birthdays *mongo.Collection
	guilds    *mongo.Collection
}

type birthdayDocument struct {
	ID   int64  `bson:"id"`
	Name string `bson:"nome"`
	Date string `bson:"data"`
}

func (d birthdayDocument) model() models.Birthday {
	return models.Birthday{
		UserID: strconv.FormatInt(d.ID, 10),
		Name:   d.Name,
		Date:   d.Date,
	}
}

func userKey(userID string) (int64, error) {
	id, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("dal: invalid user id %q: %w", userID, err)
	}
	return id, nil
}

// OpenMongo connects to uri and checks the server is reachable.
func OpenMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	if database == "" {
		database = DefaultMongoDatabase
	}

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(10*time.Second))
	if err != nil {
		return nil, unavailable(err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, unavailable(err)
	}
	log.WithField("database", database).Println("Connected to database.")

	db := client.Database(database)
	s := &MongoStore{
		client:    client,
		birthdays: db.Collection(birthdaysCollection),
		guilds:    db.Collection(guildsCollection),
	}

	indexes := []struct {
		collection *mongo.Collection
		key        string
	}{
		{s.birthdays, "id"},
		{s.guilds, "guild_id"},
	}
	for _, index := range indexes {
		_, err := index.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: index.key, Value: 1}},
			Options: options.Index().SetUnique(true),
		})
		if err != nil {
			// Older collections may already hold duplicates; keep serving them.
			log.WithError(err).
				WithField("collection", index.collection.Name()).
				Warn("Failed to create unique index")
		}
	}

	return s, nil
}

func (s *MongoStore) UpsertBirthday(ctx context.Context, b models.Birthday) error {
	id, err := userKey(b.UserID)
	if err != nil {
		return err
	}

	_, err = s.birthdays.UpdateOne(
		ctx,
		bson.M{"id": id},
		bson.M{"$set": bson.M{"nome": b.Name, "data": b.Date}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *MongoStore) RemoveBirthday(ctx context.Context, userID string) (bool, error) {
	id, err := userKey(userID)
	if err != nil {
		return false, err
	}

	result, err := s.birthdays.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return false, unavailable(err)
	}
	return result.DeletedCount > 0, nil
}

func (s *MongoStore) GetBirthday(ctx context.Context, userID string) (*models.Birthday, error) {
	id, err := userKey(userID)
	if err != nil {
		return nil, err
	}

	var doc birthdayDocument
	err = s.birthdays.FindOne(ctx, bson.M{"id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable(err)
	}

	birthday := doc.model()
	return &birthday, nil
}

func (s *MongoStore) Birthdays(ctx context.Context) ([]models.Birthday, error) {
	cursor, err := s.birthdays.Find(ctx, bson.D{})
	if err != nil {
		return nil, unavailable(err)
	}

	var docs []birthdayDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, unavailable(err)
	}

	birthdays := make([]models.Birthday, len(docs))
	for i, doc := range docs {
		birthdays[i] = doc.model()
	}
	return birthdays, nil
}

func (s *MongoStore) GuildConfig(ctx context.Context, guildID string) (*models.GuildConfig, error) {
	var config models.GuildConfig
	err := s.guilds.FindOne(ctx, bson.M{"guild_id": guildID}).Decode(&config)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable(err)
	}
	return &config, nil
}

func (s *MongoStore) GuildConfigs(ctx context.Context) ([]models.GuildConfig, error) {
	cursor, err := s.guilds.Find(ctx, bson.D{})
	if err != nil {
		return nil, unavailable(err)
	}

	var configs []models.GuildConfig
	if err := cursor.All(ctx, &configs); err != nil {
		return nil, unavailable(err)
	}
	return configs, nil
}

func (s *MongoStore) SetChannel(ctx context.Context, guildID, channelID string) error {
	return s.setGuildField(ctx, guildID, "channel_id", channelID)
}

func (s *MongoStore) SetRole(ctx context.Context, guildID, roleID string) error {
	return s.setGuildField(ctx, guildID, "role_id", roleID)
}

func (s *MongoStore) MarkAnnounced(ctx context.Context, guildID, date string) error {
	return s.setGuildField(ctx, guildID, "last_announcement_date", date)
}

func (s *MongoStore) setGuildField(ctx context.Context, guildID, field, value string) error {
	_, err := s.guilds.UpdateOne(
		ctx,
		bson.M{"guild_id": guildID},
		bson.M{"$set": bson.M{field: value}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
