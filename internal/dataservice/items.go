package dataservice

import (
	"context"
	"fmt"

	"realtime-gateway/internal/gateway"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ItemsStore is the MongoDB-backed implementation of gateway.ItemsService.
// Every write is collection-addressed the way MongoAuthRepository addresses
// users/sessions: one *mongo.Collection per named collection, resolved
// lazily from the database handle rather than pre-declared, since the
// gateway's collection set is open-ended (grounded on
// internal/auth/adapter/persistence/mongodb/user_repo.go's db.Collection
// pattern).
type ItemsStore struct {
	db *mongo.Database
}

func NewItemsStore(db *mongo.Database) *ItemsStore {
	return &ItemsStore{db: db}
}

func (s *ItemsStore) collection(name string) *mongo.Collection {
	return s.db.Collection(name)
}

// buildFilter turns a sanitized gateway.Query into a MongoDB filter
// document. It takes no accountability and does no row-level scoping;
// access control is enforced upstream by the registry's schema and CEL
// permission checks before a read ever reaches the store.
func buildFilter(key interface{}, q *gateway.Query) bson.M {
	filter := bson.M{}
	if key != nil {
		filter["_id"] = key
	}
	if q != nil {
		for k, v := range q.Filter {
			filter[k] = v
		}
	}
	return filter
}

func findOptions(q *gateway.Query) *options.FindOptions {
	opts := options.Find()
	if q == nil {
		return opts
	}
	if len(q.Fields) > 0 {
		projection := bson.M{}
		for _, f := range q.Fields {
			projection[f] = 1
		}
		opts.SetProjection(projection)
	}
	if len(q.Sort) > 0 {
		sort := bson.D{}
		for _, field := range q.Sort {
			order := 1
			name := field
			if len(field) > 0 && field[0] == '-' {
				order = -1
				name = field[1:]
			}
			sort = append(sort, bson.E{Key: name, Value: order})
		}
		opts.SetSort(sort)
	}
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}
	if q.Offset > 0 {
		opts.SetSkip(int64(q.Offset))
	}
	return opts
}

func (s *ItemsStore) ReadOne(ctx context.Context, collection string, key interface{}, query *gateway.Query, acc gateway.Accountability) (map[string]interface{}, error) {
	var doc bson.M
	err := s.collection(collection).FindOne(ctx, buildFilter(key, query), options.FindOne().SetProjection(findOptions(query).Projection)).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, gateway.NewError(gateway.CodeInvalidCollection, fmt.Sprintf("item %v not found in %s", key, collection), err)
	}
	if err != nil {
		return nil, fmt.Errorf("read one from %s: %w", collection, err)
	}
	return doc, nil
}

func (s *ItemsStore) ReadMany(ctx context.Context, collection string, keys []interface{}, query *gateway.Query, acc gateway.Accountability) ([]map[string]interface{}, error) {
	cur, err := s.collection(collection).Find(ctx, bson.M{"_id": bson.M{"$in": keys}}, findOptions(query))
	if err != nil {
		return nil, fmt.Errorf("read many from %s: %w", collection, err)
	}
	return decodeAll(ctx, cur)
}

func (s *ItemsStore) ReadByQuery(ctx context.Context, collection string, query *gateway.Query, acc gateway.Accountability) ([]map[string]interface{}, error) {
	cur, err := s.collection(collection).Find(ctx, buildFilter(nil, query), findOptions(query))
	if err != nil {
		return nil, fmt.Errorf("read by query from %s: %w", collection, err)
	}
	return decodeAll(ctx, cur)
}

func decodeAll(ctx context.Context, cur *mongo.Cursor) ([]map[string]interface{}, error) {
	defer cur.Close(ctx)
	docs := make([]map[string]interface{}, 0)
	for cur.Next(ctx) {
		var doc bson.M
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, cur.Err()
}

func (s *ItemsStore) CreateOne(ctx context.Context, collection string, payload map[string]interface{}, acc gateway.Accountability) (interface{}, error) {
	res, err := s.collection(collection).InsertOne(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("create one in %s: %w", collection, err)
	}
	return res.InsertedID, nil
}

func (s *ItemsStore) CreateMany(ctx context.Context, collection string, payloads []map[string]interface{}, acc gateway.Accountability) ([]interface{}, error) {
	docs := make([]interface{}, len(payloads))
	for i, p := range payloads {
		docs[i] = p
	}
	res, err := s.collection(collection).InsertMany(ctx, docs)
	if err != nil {
		return nil, fmt.Errorf("create many in %s: %w", collection, err)
	}
	return res.InsertedIDs, nil
}

func (s *ItemsStore) UpdateOne(ctx context.Context, collection string, key interface{}, payload map[string]interface{}, acc gateway.Accountability) error {
	_, err := s.collection(collection).UpdateOne(ctx, bson.M{"_id": key}, bson.M{"$set": payload})
	if err != nil {
		return fmt.Errorf("update one in %s: %w", collection, err)
	}
	return nil
}

func (s *ItemsStore) UpdateMany(ctx context.Context, collection string, keys []interface{}, payload map[string]interface{}, acc gateway.Accountability) error {
	_, err := s.collection(collection).UpdateMany(ctx, bson.M{"_id": bson.M{"$in": keys}}, bson.M{"$set": payload})
	if err != nil {
		return fmt.Errorf("update many in %s: %w", collection, err)
	}
	return nil
}

func (s *ItemsStore) DeleteOne(ctx context.Context, collection string, key interface{}, acc gateway.Accountability) error {
	_, err := s.collection(collection).DeleteOne(ctx, bson.M{"_id": key})
	if err != nil {
		return fmt.Errorf("delete one in %s: %w", collection, err)
	}
	return nil
}

func (s *ItemsStore) DeleteMany(ctx context.Context, collection string, keys []interface{}, acc gateway.Accountability) error {
	_, err := s.collection(collection).DeleteMany(ctx, bson.M{"_id": bson.M{"$in": keys}})
	if err != nil {
		return fmt.Errorf("delete many in %s: %w", collection, err)
	}
	return nil
}

// GetMetaForQuery implements gateway.MetaService by counting documents
// matching the same filter a ReadByQuery would use, the way a SUBSCRIBE
// with query.meta = ["filter_count"] expects.
func (s *ItemsStore) GetMetaForQuery(ctx context.Context, collection string, query *gateway.Query, acc gateway.Accountability) (map[string]interface{}, error) {
	count, err := s.collection(collection).CountDocuments(ctx, buildFilter(nil, query))
	if err != nil {
		return nil, fmt.Errorf("count documents in %s: %w", collection, err)
	}
	return map[string]interface{}{"filter_count": count}, nil
}
