// Code generated manually. DO NOT EDIT.

package mocks

import (
	"context"

	"github.com/guttosm/shell-cache/internal/domain/model"
	"github.com/guttosm/shell-cache/internal/repository"
	"github.com/stretchr/testify/mock"
)

type MockCacheStorage struct {
	mock.Mock
}

func (m *MockCacheStorage) Open(ctx context.Context, name string) (repository.Store, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(repository.Store), args.Error(1)
}

func (m *MockCacheStorage) Has(ctx context.Context, name string) (bool, error) {
	args := m.Called(ctx, name)
	return args.Bool(0), args.Error(1)
}

func (m *MockCacheStorage) Keys(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockCacheStorage) Delete(ctx context.Context, name string) (bool, error) {
	args := m.Called(ctx, name)
	return args.Bool(0), args.Error(1)
}

func (m *MockCacheStorage) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockCacheStorage) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockCacheStorage) Backend() string {
	args := m.Called()
	return args.String(0)
}

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockStore) Match(ctx context.Context, id model.RequestIdentity) (*model.Snapshot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Snapshot), args.Error(1)
}

func (m *MockStore) Put(ctx context.Context, id model.RequestIdentity, snap *model.Snapshot) error {
	args := m.Called(ctx, id, snap)
	return args.Error(0)
}

func (m *MockStore) Keys(ctx context.Context) ([]model.RequestIdentity, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.RequestIdentity), args.Error(1)
}

func (m *MockStore) Delete(ctx context.Context, id model.RequestIdentity) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}
