// Package mocks provides testify mocks for the application ports.
package mocks

import (
	"context"
	"io"

	"piiquante/domain/core/entities"
	"piiquante/domain/core/valueobjects"
	"piiquante/domain/events"
	"piiquante/domain/services"

	"github.com/stretchr/testify/mock"
)

// MockSauceRepository is a mock implementation of ports.SauceRepository
type MockSauceRepository struct {
	mock.Mock
}

func (m *MockSauceRepository) Insert(ctx context.Context, sauce *entities.Sauce) error {
	args := m.Called(ctx, sauce)
	return args.Error(0)
}

func (m *MockSauceRepository) GetByID(ctx context.Context, id valueobjects.SauceID) (*entities.Sauce, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Sauce), args.Error(1)
}

func (m *MockSauceRepository) List(ctx context.Context) ([]*entities.Sauce, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Sauce), args.Error(1)
}

func (m *MockSauceRepository) UpdateDetails(ctx context.Context, id valueobjects.SauceID, details entities.SauceDetails, image, current valueobjects.ImageRef) error {
	args := m.Called(ctx, id, details, image, current)
	return args.Error(0)
}

func (m *MockSauceRepository) Delete(ctx context.Context, id valueobjects.SauceID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockSauceRepository) ApplyVote(ctx context.Context, id valueobjects.SauceID, outcome services.VoteOutcome) (entities.VoteTally, error) {
	args := m.Called(ctx, id, outcome)
	return args.Get(0).(entities.VoteTally), args.Error(1)
}

// MockBlobStore is a mock implementation of ports.BlobStore
type MockBlobStore struct {
	mock.Mock
}

func (m *MockBlobStore) Save(ctx context.Context, originalName, contentType string, body io.Reader) (valueobjects.ImageRef, error) {
	args := m.Called(ctx, originalName, contentType, body)
	return args.Get(0).(valueobjects.ImageRef), args.Error(1)
}

func (m *MockBlobStore) Delete(ctx context.Context, ref valueobjects.ImageRef) error {
	args := m.Called(ctx, ref)
	return args.Error(0)
}

// MockEventPublisher is a mock implementation of ports.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishBatch(ctx context.Context, evts []events.DomainEvent) error {
	args := m.Called(ctx, evts)
	return args.Error(0)
}
