package storagemock

import (
	"context"

	"github.com/contaluz/contaluz/pkg/storage"
	"github.com/contaluz/contaluz/pkg/types"
	"github.com/stretchr/testify/mock"
)

type MockDatabase struct {
	mock.Mock
}

var _ storage.Database = (*MockDatabase)(nil)

func (m *MockDatabase) LoadState(ctx context.Context, householdID string) (types.State, int, error) {
	args := m.Called(ctx, householdID)
	// return not found if not specified
	if len(args) > 0 {
		return args.Get(0).(types.State), args.Int(1), args.Error(2)
	}
	return types.State{}, 0, storage.ErrStateNotFound
}

func (m *MockDatabase) SaveState(ctx context.Context, householdID string, state types.State, version int) error {
	args := m.Called(ctx, householdID, state, version)
	return args.Error(0)
}

func (m *MockDatabase) DeleteState(ctx context.Context, householdID string) error {
	args := m.Called(ctx, householdID)
	return args.Error(0)
}

func (m *MockDatabase) Close() error {
	args := m.Called()
	return args.Error(0)
}
