package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	collectionCategories = "catalog_categories"
	collectionItems      = "catalog_items"
)

// NewMongoClient connects and pings a MongoDB deployment.
func NewMongoClient(ctx context.Context, url string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(url).
		SetMaxPoolSize(50).
		SetMaxConnIdleTime(30 * time.Second)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("catalog: connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("catalog: ping mongo: %w", err)
	}
	return client, nil
}

// MongoStore persists the catalog in MongoDB.
type MongoStore struct {
	categories *mongo.Collection
	items      *mongo.Collection
}

// NewMongoStore wraps the catalog collections of db.
func NewMongoStore(db *mongo.Database) *MongoStore {
	if db == nil {
		panic("catalog: mongo database required")
	}
	return &MongoStore{
		categories: db.Collection(collectionCategories),
		items:      db.Collection(collectionItems),
	}
}

// EnsureIndexes creates the lookup and uniqueness indexes.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.categories.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "org_id", Value: 1}, {Key: "slug", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
	if err != nil {
		return fmt.Errorf("catalog: category indexes: %w", err)
	}
	_, err = s.items.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "org_id", Value: 1}, {Key: "category_id", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("catalog: item indexes: %w", err)
	}
	return nil
}

type categoryDocument struct {
	ID          string    `bson:"_id"`
	OrgID       string    `bson:"org_id"`
	Name        string    `bson:"name"`
	Slug        string    `bson:"slug"`
	Description string    `bson:"description,omitempty"`
	CreatedAt   time.Time `bson:"created_at"`
}

func (d categoryDocument) toCategory() Category {
	return Category{
		ID:          d.ID,
		OrgID:       d.OrgID,
		Name:        d.Name,
		Slug:        d.Slug,
		Description: d.Description,
		CreatedAt:   d.CreatedAt,
	}
}

type itemDocument struct {
	ID          string    `bson:"_id"`
	OrgID       string    `bson:"org_id"`
	Title       string    `bson:"title"`
	Kind        string    `bson:"kind"`
	CategoryID  string    `bson:"category_id"`
	Category    string    `bson:"category"`
	Description string    `bson:"description,omitempty"`
	Price       *float64  `bson:"price,omitempty"`
	CreatedAt   time.Time `bson:"created_at"`
}

func (d itemDocument) toItem() Item {
	return Item{
		ID:          d.ID,
		OrgID:       d.OrgID,
		Title:       d.Title,
		Kind:        d.Kind,
		CategoryID:  d.CategoryID,
		Category:    d.Category,
		Description: d.Description,
		Price:       d.Price,
		CreatedAt:   d.CreatedAt,
	}
}

// Snapshot loads every category and item of an org.
func (s *MongoStore) Snapshot(ctx context.Context, orgID string) (*Snapshot, error) {
	if orgID == "" {
		return nil, ErrMissingOrgID
	}
	filter := bson.M{"org_id": orgID}

	catCur, err := s.categories.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("catalog: find categories: %w", err)
	}
	var catDocs []categoryDocument
	if err := catCur.All(ctx, &catDocs); err != nil {
		return nil, fmt.Errorf("catalog: decode categories: %w", err)
	}

	itemCur, err := s.items.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "title", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("catalog: find items: %w", err)
	}
	var itemDocs []itemDocument
	if err := itemCur.All(ctx, &itemDocs); err != nil {
		return nil, fmt.Errorf("catalog: decode items: %w", err)
	}

	snap := &Snapshot{
		OrgID:      orgID,
		Categories: make([]Category, 0, len(catDocs)),
		Items:      make([]Item, 0, len(itemDocs)),
	}
	for _, d := range catDocs {
		snap.Categories = append(snap.Categories, d.toCategory())
	}
	for _, d := range itemDocs {
		snap.Items = append(snap.Items, d.toItem())
	}
	return snap, nil
}

// CreateItem inserts an item after checking its category exists.
func (s *MongoStore) CreateItem(ctx context.Context, draft ItemDraft) (*Item, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	var cat categoryDocument
	err := s.categories.FindOne(ctx, bson.M{"_id": draft.CategoryID, "org_id": draft.OrgID}).Decode(&cat)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUnknownCategory
		}
		return nil, fmt.Errorf("catalog: load category: %w", err)
	}

	doc := itemDocument{
		ID:          uuid.NewString(),
		OrgID:       draft.OrgID,
		Title:       strings.TrimSpace(draft.Title),
		Kind:        draft.Kind,
		CategoryID:  cat.ID,
		Category:    cat.Name,
		Description: strings.TrimSpace(draft.Description),
		Price:       draft.Price,
		CreatedAt:   time.Now().UTC(),
	}
	if _, err := s.items.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("catalog: insert item: %w", err)
	}
	item := doc.toItem()
	return &item, nil
}

// CreateCategory inserts a category; the unique index rejects duplicate slugs.
func (s *MongoStore) CreateCategory(ctx context.Context, draft CategoryDraft) (*Category, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	doc := categoryDocument{
		ID:          uuid.NewString(),
		OrgID:       draft.OrgID,
		Name:        strings.TrimSpace(draft.Name),
		Slug:        Slugify(draft.Name),
		Description: strings.TrimSpace(draft.Description),
		CreatedAt:   time.Now().UTC(),
	}
	if _, err := s.categories.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicateCategory
		}
		return nil, fmt.Errorf("catalog: insert category: %w", err)
	}
	cat := doc.toCategory()
	return &cat, nil
}
