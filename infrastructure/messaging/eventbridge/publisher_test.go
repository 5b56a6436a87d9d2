package eventbridge

import (
	"context"
	"errors"
	"testing"
	"time"

	"piiquante/domain/core/valueobjects"
	"piiquante/domain/events"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockPutEvents struct {
	mock.Mock
}

func (m *mockPutEvents) PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*eventbridge.PutEventsOutput), args.Error(1)
}

func votedEvents(n int) []events.DomainEvent {
	id := valueobjects.NewSauceID()
	out := make([]events.DomainEvent, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, events.NewSauceVoted(id, "u1", valueobjects.VoteLike, 1, 0, time.Now()))
	}
	return out
}

func TestPublishBatch_ChunksByApiLimit(t *testing.T) {
	client := new(mockPutEvents)
	publisher := NewPublisher(client, "sauces", zap.NewNop())

	var sizes []int
	client.On("PutEvents", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			sizes = append(sizes, len(args.Get(1).(*eventbridge.PutEventsInput).Entries))
		}).
		Return(&eventbridge.PutEventsOutput{}, nil)

	err := publisher.PublishBatch(context.Background(), votedEvents(23))

	require.NoError(t, err)
	assert.Equal(t, []int{10, 10, 3}, sizes)
}

func TestPublish_EntryShape(t *testing.T) {
	client := new(mockPutEvents)
	publisher := NewPublisher(client, "sauces", zap.NewNop())
	evt := votedEvents(1)[0]

	client.On("PutEvents", mock.Anything, mock.MatchedBy(func(in *eventbridge.PutEventsInput) bool {
		e := in.Entries[0]
		return aws.ToString(e.EventBusName) == "sauces" &&
			aws.ToString(e.Source) == Source &&
			aws.ToString(e.DetailType) == events.TypeSauceVoted &&
			e.Resources[0] == "sauce/"+evt.GetAggregateID()
	})).Return(&eventbridge.PutEventsOutput{}, nil)

	require.NoError(t, publisher.PublishBatch(context.Background(), []events.DomainEvent{evt}))
	client.AssertExpectations(t)
}

func TestPublish_FailedEntries(t *testing.T) {
	client := new(mockPutEvents)
	publisher := NewPublisher(client, "sauces", zap.NewNop())

	client.On("PutEvents", mock.Anything, mock.Anything).Return(&eventbridge.PutEventsOutput{
		FailedEntryCount: 1,
		Entries:          []types.PutEventsResultEntry{{ErrorCode: aws.String("ThrottlingException")}},
	}, nil)

	err := publisher.PublishBatch(context.Background(), votedEvents(1))

	assert.EqualError(t, err, "1 events failed to publish")
}

func TestPublish_TransportError(t *testing.T) {
	client := new(mockPutEvents)
	publisher := NewPublisher(client, "sauces", zap.NewNop())

	client.On("PutEvents", mock.Anything, mock.Anything).Return(nil, errors.New("no route"))

	err := publisher.PublishBatch(context.Background(), votedEvents(1))

	assert.ErrorContains(t, err, "no route")
}

func TestPublishBatch_Empty(t *testing.T) {
	client := new(mockPutEvents)
	publisher := NewPublisher(client, "sauces", zap.NewNop())

	require.NoError(t, publisher.PublishBatch(context.Background(), nil))
	client.AssertNotCalled(t, "PutEvents", mock.Anything, mock.Anything)
}
