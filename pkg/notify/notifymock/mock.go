package notifymock

import (
	"context"

	"github.com/contaluz/contaluz/pkg/notify"
	"github.com/stretchr/testify/mock"
)

type MockNotifier struct {
	mock.Mock
}

var _ notify.Notifier = (*MockNotifier)(nil)

func (m *MockNotifier) Permission(ctx context.Context) notify.Permission {
	args := m.Called(ctx)
	return args.Get(0).(notify.Permission)
}

func (m *MockNotifier) RequestPermission(ctx context.Context) notify.Permission {
	args := m.Called(ctx)
	return args.Get(0).(notify.Permission)
}

func (m *MockNotifier) Dispatch(ctx context.Context, title, body string) error {
	args := m.Called(ctx, title, body)
	return args.Error(0)
}

func (m *MockNotifier) Close() error {
	args := m.Called()
	return args.Error(0)
}
