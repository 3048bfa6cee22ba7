package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"torrenthub/internal/domain"
)

// PreferencesRepository stores the singleton preferences record. Get
// creates the defaults on first access.
type PreferencesRepository struct {
	collection          *mongo.Collection
	defaultDownloadPath string

	Now func() time.Time
}

type preferencesDoc struct {
	ID                     string    `bson:"_id"`
	DefaultDownloadPath    string    `bson:"defaultDownloadPath"`
	FavoritePaths          []string  `bson:"favoritePaths,omitempty"`
	FavoriteSources        []string  `bson:"favoriteSources,omitempty"`
	MaxConcurrentDownloads int       `bson:"maxConcurrentDownloads"`
	AutoStartDownloads     bool      `bson:"autoStartDownloads"`
	DateCreated            time.Time `bson:"dateCreated"`
	DateModified           time.Time `bson:"dateModified"`
}

func NewPreferencesRepository(client *mongo.Client, dbName, collectionName, defaultDownloadPath string) *PreferencesRepository {
	return &PreferencesRepository{
		collection:          client.Database(dbName).Collection(collectionName),
		defaultDownloadPath: defaultDownloadPath,
	}
}

func (r *PreferencesRepository) Get(ctx context.Context) (domain.UserPreferences, error) {
	var doc preferencesDoc
	err := r.collection.FindOne(ctx, bson.M{"_id": domain.PreferencesID.String()}).Decode(&doc)
	if err == nil {
		return fromPreferencesDoc(doc), nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return domain.UserPreferences{}, err
	}

	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	prefs := domain.DefaultPreferences(r.defaultDownloadPath, now())
	if _, err := r.collection.InsertOne(ctx, toPreferencesDoc(prefs)); err != nil {
		// A concurrent first access may have won the insert.
		if mongo.IsDuplicateKeyError(err) {
			if rerr := r.collection.FindOne(ctx, bson.M{"_id": domain.PreferencesID.String()}).Decode(&doc); rerr == nil {
				return fromPreferencesDoc(doc), nil
			}
		}
		return domain.UserPreferences{}, err
	}
	return prefs, nil
}

func (r *PreferencesRepository) Save(ctx context.Context, prefs domain.UserPreferences) error {
	if err := prefs.Validate(); err != nil {
		return err
	}
	doc := toPreferencesDoc(prefs)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	return err
}

func toPreferencesDoc(p domain.UserPreferences) preferencesDoc {
	return preferencesDoc{
		ID:                     p.ID.String(),
		DefaultDownloadPath:    p.DefaultDownloadPath,
		FavoritePaths:          p.FavoritePaths,
		FavoriteSources:        p.FavoriteSources,
		MaxConcurrentDownloads: p.MaxConcurrentDownloads,
		AutoStartDownloads:     p.AutoStartDownloads,
		DateCreated:            p.DateCreated.UTC(),
		DateModified:           p.DateModified.UTC(),
	}
}

func fromPreferencesDoc(doc preferencesDoc) domain.UserPreferences {
	return domain.UserPreferences{
		ID:                     domain.PreferencesID,
		DefaultDownloadPath:    doc.DefaultDownloadPath,
		FavoritePaths:          doc.FavoritePaths,
		FavoriteSources:        doc.FavoriteSources,
		MaxConcurrentDownloads: doc.MaxConcurrentDownloads,
		AutoStartDownloads:     doc.AutoStartDownloads,
		DateCreated:            doc.DateCreated.UTC(),
		DateModified:           doc.DateModified.UTC(),
	}
}
