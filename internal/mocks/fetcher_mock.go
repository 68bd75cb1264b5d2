// Code generated manually. DO NOT EDIT.

package mocks

import (
	"context"
	"net/http"

	"github.com/guttosm/shell-cache/internal/domain/model"
	"github.com/stretchr/testify/mock"
)

type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) Fetch(ctx context.Context, req *http.Request) (*model.Snapshot, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Snapshot), args.Error(1)
}
