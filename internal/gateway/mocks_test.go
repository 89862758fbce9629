package gateway

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

type mockItemsService struct {
	mock.Mock
}

func (m *mockItemsService) ReadOne(ctx context.Context, collection string, key interface{}, query *Query, acc Accountability) (map[string]interface{}, error) {
	args := m.Called(ctx, collection, key, query, acc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]interface{}), args.Error(1)
}

func (m *mockItemsService) ReadMany(ctx context.Context, collection string, keys []interface{}, query *Query, acc Accountability) ([]map[string]interface{}, error) {
	args := m.Called(ctx, collection, keys, query, acc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]map[string]interface{}), args.Error(1)
}

func (m *mockItemsService) ReadByQuery(ctx context.Context, collection string, query *Query, acc Accountability) ([]map[string]interface{}, error) {
	args := m.Called(ctx, collection, query, acc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]map[string]interface{}), args.Error(1)
}

func (m *mockItemsService) CreateOne(ctx context.Context, collection string, payload map[string]interface{}, acc Accountability) (interface{}, error) {
	args := m.Called(ctx, collection, payload, acc)
	return args.Get(0), args.Error(1)
}

func (m *mockItemsService) CreateMany(ctx context.Context, collection string, payloads []map[string]interface{}, acc Accountability) ([]interface{}, error) {
	args := m.Called(ctx, collection, payloads, acc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]interface{}), args.Error(1)
}

func (m *mockItemsService) UpdateOne(ctx context.Context, collection string, key interface{}, payload map[string]interface{}, acc Accountability) error {
	args := m.Called(ctx, collection, key, payload, acc)
	return args.Error(0)
}

func (m *mockItemsService) UpdateMany(ctx context.Context, collection string, keys []interface{}, payload map[string]interface{}, acc Accountability) error {
	args := m.Called(ctx, collection, keys, payload, acc)
	return args.Error(0)
}

func (m *mockItemsService) DeleteOne(ctx context.Context, collection string, key interface{}, acc Accountability) error {
	args := m.Called(ctx, collection, key, acc)
	return args.Error(0)
}

func (m *mockItemsService) DeleteMany(ctx context.Context, collection string, keys []interface{}, acc Accountability) error {
	args := m.Called(ctx, collection, keys, acc)
	return args.Error(0)
}

type mockMetaService struct {
	mock.Mock
}

func (m *mockMetaService) GetMetaForQuery(ctx context.Context, collection string, query *Query, acc Accountability) (map[string]interface{}, error) {
	args := m.Called(ctx, collection, query, acc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]interface{}), args.Error(1)
}

type mockSchemaOverview struct {
	collections map[string]bool
}

func (m *mockSchemaOverview) HasCollection(collection string) bool {
	return m.collections[collection]
}

type mockSchemaResolver struct {
	mock.Mock
}

func (m *mockSchemaResolver) ResolveSchema(ctx context.Context, acc Accountability) (SchemaOverview, error) {
	args := m.Called(ctx, acc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(SchemaOverview), args.Error(1)
}

type mockAccountabilityResolver struct {
	mock.Mock
}

func (m *mockAccountabilityResolver) ResolveForToken(ctx context.Context, token string) (Accountability, *time.Time, error) {
	args := m.Called(ctx, token)
	var exp *time.Time
	if args.Get(1) != nil {
		exp = args.Get(1).(*time.Time)
	}
	return args.Get(0).(Accountability), exp, args.Error(2)
}

func (m *mockAccountabilityResolver) Refresh(ctx context.Context, acc Accountability) (Accountability, error) {
	args := m.Called(ctx, acc)
	return args.Get(0).(Accountability), args.Error(1)
}

type mockAuthenticationService struct {
	mock.Mock
}

func (m *mockAuthenticationService) Login(ctx context.Context, email, password string) (string, *time.Time, error) {
	args := m.Called(ctx, email, password)
	var exp *time.Time
	if args.Get(1) != nil {
		exp = args.Get(1).(*time.Time)
	}
	return args.String(0), exp, args.Error(2)
}

func (m *mockAuthenticationService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	args := m.Called(ctx, refreshToken)
	return args.String(0), args.Error(1)
}
