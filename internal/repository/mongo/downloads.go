// Package mongo persists downloads and user preferences in MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"torrenthub/internal/domain"
)

type DownloadRepository struct {
	collection *mongo.Collection
}

type downloadDoc struct {
	ID            string     `bson:"_id"`
	Link          string     `bson:"link"`
	LinkKey       string     `bson:"linkKey"`
	InfoHash      string     `bson:"infoHash,omitempty"`
	Title         string     `bson:"title"`
	SavePath      string     `bson:"savePath"`
	Source        string     `bson:"source"`
	SizeBytes     int64      `bson:"sizeBytes"`
	Status        string     `bson:"status"`
	DateAdded     time.Time  `bson:"dateAdded"`
	DateCompleted *time.Time `bson:"dateCompleted,omitempty"`
}

func Connect(ctx context.Context, uri string, extra ...*options.ClientOptions) (*mongo.Client, error) {
	opts := append([]*options.ClientOptions{options.Client().ApplyURI(uri)}, extra...)
	return mongo.Connect(ctx, opts...)
}

func NewDownloadRepository(client *mongo.Client, dbName, collectionName string) *DownloadRepository {
	return &DownloadRepository{collection: client.Database(dbName).Collection(collectionName)}
}

func (r *DownloadRepository) EnsureIndexes(ctx context.Context) error {
	if r == nil || r.collection == nil {
		return nil
	}
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "linkKey", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "dateAdded", Value: -1}}},
	}
	_, err := r.collection.Indexes().CreateMany(ctx, models)
	return err
}

// Save upserts the record keyed by id. A duplicate-key failure means
// another record already claims the same link identity.
func (r *DownloadRepository) Save(ctx context.Context, d domain.Download) error {
	if err := d.Validate(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	doc := toDownloadDoc(d)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *DownloadRepository) FindByID(ctx context.Context, id uuid.UUID) (domain.Download, error) {
	return r.findOne(ctx, bson.M{"_id": id.String()})
}

func (r *DownloadRepository) FindByLink(ctx context.Context, link domain.TorrentLink) (domain.Download, error) {
	return r.findOne(ctx, bson.M{"linkKey": link.Key()})
}

func (r *DownloadRepository) findOne(ctx context.Context, filter bson.M) (domain.Download, error) {
	var doc downloadDoc
	if err := r.collection.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Download{}, domain.ErrNotFound
		}
		return domain.Download{}, err
	}
	return fromDownloadDoc(doc)
}

func (r *DownloadRepository) FindAll(ctx context.Context, status *domain.DownloadState) ([]domain.Download, error) {
	query := bson.M{}
	if status != nil {
		query["status"] = string(*status)
	}

	opts := options.Find().SetSort(bson.D{{Key: "dateAdded", Value: -1}})
	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []downloadDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	downloads := make([]domain.Download, 0, len(docs))
	for _, doc := range docs {
		d, err := fromDownloadDoc(doc)
		if err != nil {
			return nil, err
		}
		downloads = append(downloads, d)
	}
	return downloads, nil
}

func (r *DownloadRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (r *DownloadRepository) ExistsByLink(ctx context.Context, link domain.TorrentLink) (bool, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"linkKey": link.Key()}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func toDownloadDoc(d domain.Download) downloadDoc {
	doc := downloadDoc{
		ID:        d.ID.String(),
		Link:      d.Link.String(),
		LinkKey:   d.Link.Key(),
		InfoHash:  d.Link.InfoHash(),
		Title:     d.Title,
		SavePath:  d.SavePath,
		Source:    d.Source,
		SizeBytes: int64(d.Size),
		Status:    string(d.Status),
		DateAdded: d.DateAdded.UTC(),
	}
	if d.DateCompleted != nil {
		completed := d.DateCompleted.UTC()
		doc.DateCompleted = &completed
	}
	return doc
}

func fromDownloadDoc(doc downloadDoc) (domain.Download, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return domain.Download{}, fmt.Errorf("corrupt download record %q: %w", doc.ID, err)
	}
	link, err := domain.ParseLink(doc.Link)
	if err != nil {
		return domain.Download{}, fmt.Errorf("corrupt download record %q: %w", doc.ID, err)
	}
	status, ok := domain.ParseDownloadState(doc.Status)
	if !ok {
		return domain.Download{}, fmt.Errorf("corrupt download record %q: unknown status %q", doc.ID, doc.Status)
	}

	d := domain.Download{
		ID:        id,
		Link:      link,
		Title:     doc.Title,
		SavePath:  doc.SavePath,
		Source:    doc.Source,
		Size:      domain.ByteSize(doc.SizeBytes),
		Status:    status,
		DateAdded: doc.DateAdded.UTC(),
	}
	if doc.DateCompleted != nil {
		completed := doc.DateCompleted.UTC()
		d.DateCompleted = &completed
	}
	return d, nil
}
