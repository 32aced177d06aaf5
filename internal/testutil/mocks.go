package testutil

import (
	"context"

	"switchboard/internal/domain"

	"github.com/stretchr/testify/mock"
)

// MockStateRepository is a mock for StateRepository
type MockStateRepository struct {
	mock.Mock
}

func (m *MockStateRepository) CurrentFunction(ctx context.Context, userID string) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

func (m *MockStateRepository) SwitchFunction(ctx context.Context, userID, fromFunction, toFunction string) error {
	args := m.Called(ctx, userID, fromFunction, toFunction)
	return args.Error(0)
}

func (m *MockStateRepository) TouchLastActive(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// MockPermissionRepository is a mock for PermissionRepository
type MockPermissionRepository struct {
	mock.Mock
}

func (m *MockPermissionRepository) IsAllowed(ctx context.Context, userID, functionName string) (bool, error) {
	args := m.Called(ctx, userID, functionName)
	return args.Bool(0), args.Error(1)
}

func (m *MockPermissionRepository) IsAdmin(ctx context.Context, userID string) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockPermissionRepository) AllowedFunctions(ctx context.Context, userID string, all []string) ([]string, error) {
	args := m.Called(ctx, userID, all)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockPermissionRepository) SyncRules(ctx context.Context, rules domain.AccessRules) error {
	args := m.Called(ctx, rules)
	return args.Error(0)
}

// MockUsageRepository is a mock for UsageRepository
type MockUsageRepository struct {
	mock.Mock
}

func (m *MockUsageRepository) Append(ctx context.Context, entry domain.UsageEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockUsageRepository) UserStats(ctx context.Context, userID string) (domain.UserStats, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(domain.UserStats), args.Error(1)
}

func (m *MockUsageRepository) FunctionStats(ctx context.Context, functionName string) (domain.FunctionStats, error) {
	args := m.Called(ctx, functionName)
	return args.Get(0).(domain.FunctionStats), args.Error(1)
}
