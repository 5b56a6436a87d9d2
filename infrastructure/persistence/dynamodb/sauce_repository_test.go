package dynamodb

import (
	"context"
	"errors"
	"testing"
	"time"

	"piiquante/application/ports"
	"piiquante/domain/core/entities"
	"piiquante/domain/core/valueobjects"
	"piiquante/domain/services"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dynamodb.GetItemOutput), args.Error(1)
}

func (m *mockAPI) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dynamodb.PutItemOutput), args.Error(1)
}

func (m *mockAPI) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dynamodb.UpdateItemOutput), args.Error(1)
}

func (m *mockAPI) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dynamodb.DeleteItemOutput), args.Error(1)
}

func (m *mockAPI) Scan(ctx context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dynamodb.ScanOutput), args.Error(1)
}

func newTestSauce(t *testing.T) *entities.Sauce {
	t.Helper()
	image, err := valueobjects.NewImageRef("http://localhost:3000", "ketchup.jpg")
	require.NoError(t, err)
	sauce, err := entities.NewSauce("user1", entities.SauceDetails{Name: "Ketchup", Heat: 2}, image)
	require.NoError(t, err)
	return sauce
}

func storedItem(id valueobjects.SauceID, liked, disliked []string) map[string]types.AttributeValue {
	item := map[string]types.AttributeValue{
		"PK":         &types.AttributeValueMemberS{Value: "SAUCE#" + id.String()},
		"SK":         &types.AttributeValueMemberS{Value: "METADATA"},
		"EntityType": &types.AttributeValueMemberS{Value: "SAUCE"},
		"SauceID":    &types.AttributeValueMemberS{Value: id.String()},
		"UserID":     &types.AttributeValueMemberS{Value: "user1"},
		"Name":       &types.AttributeValueMemberS{Value: "Ketchup"},
		"ImageURL":   &types.AttributeValueMemberS{Value: "http://localhost:3000/images/ketchup.jpg"},
		"Heat":       &types.AttributeValueMemberN{Value: "2"},
		"Likes":      &types.AttributeValueMemberN{Value: "0"},
		"Dislikes":   &types.AttributeValueMemberN{Value: "0"},
		"CreatedAt":  &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339Nano)},
		"UpdatedAt":  &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339Nano)},
	}
	if len(liked) > 0 {
		item["UsersLiked"] = &types.AttributeValueMemberSS{Value: liked}
	}
	if len(disliked) > 0 {
		item["UsersDisliked"] = &types.AttributeValueMemberSS{Value: disliked}
	}
	return item
}

func TestSauceRepository_Insert(t *testing.T) {
	ctx := context.Background()
	api := new(mockAPI)
	repo := NewSauceRepository(api, "sauces", zap.NewNop())
	sauce := newTestSauce(t)

	api.On("PutItem", ctx, mock.MatchedBy(func(in *dynamodb.PutItemInput) bool {
		pk, ok := in.Item["PK"].(*types.AttributeValueMemberS)
		_, hasLiked := in.Item["UsersLiked"]
		return ok && pk.Value == "SAUCE#"+sauce.ID().String() &&
			!hasLiked &&
			in.ConditionExpression != nil
	})).Return(&dynamodb.PutItemOutput{}, nil)

	err := repo.Insert(ctx, sauce)

	assert.NoError(t, err)
	api.AssertExpectations(t)
}

func TestSauceRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	id := valueobjects.NewSauceID()

	t.Run("found", func(t *testing.T) {
		api := new(mockAPI)
		repo := NewSauceRepository(api, "sauces", zap.NewNop())
		api.On("GetItem", ctx, mock.Anything).
			Return(&dynamodb.GetItemOutput{Item: storedItem(id, []string{"u2"}, nil)}, nil)

		sauce, err := repo.GetByID(ctx, id)

		require.NoError(t, err)
		assert.True(t, sauce.ID().Equals(id))
		assert.Equal(t, "user1", sauce.OwnerID())
		assert.Equal(t, "ketchup.jpg", sauce.ImageRef().FileName())
		assert.Equal(t, 1, sauce.Likes())
		assert.True(t, sauce.Tally().UsersLiked.Has("u2"))
	})

	t.Run("missing", func(t *testing.T) {
		api := new(mockAPI)
		repo := NewSauceRepository(api, "sauces", zap.NewNop())
		api.On("GetItem", ctx, mock.Anything).Return(&dynamodb.GetItemOutput{}, nil)

		_, err := repo.GetByID(ctx, id)

		assert.ErrorIs(t, err, ports.ErrSauceNotFound)
	})
}

func TestSauceRepository_UpdateDetailsNeverTouchesVotes(t *testing.T) {
	ctx := context.Background()
	api := new(mockAPI)
	repo := NewSauceRepository(api, "sauces", zap.NewNop())
	id := valueobjects.NewSauceID()
	image, _ := valueobjects.NewImageRef("http://localhost:3000", "new.png")
	current, _ := valueobjects.NewImageRef("http://localhost:3000", "old.png")

	var captured *dynamodb.UpdateItemInput
	api.On("UpdateItem", ctx, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(1).(*dynamodb.UpdateItemInput) }).
		Return(&dynamodb.UpdateItemOutput{}, nil)

	err := repo.UpdateDetails(ctx, id, entities.SauceDetails{Name: "Mustard"}, image, current)

	require.NoError(t, err)
	require.NotNil(t, captured)
	assert.Contains(t, *captured.ConditionExpression, "attribute_exists")
	var pinned bool
	for _, v := range captured.ExpressionAttributeValues {
		if s, ok := v.(*types.AttributeValueMemberS); ok && s.Value == current.URL() {
			pinned = true
		}
	}
	assert.True(t, pinned, "the condition pins the image the update was computed from")
	for _, name := range captured.ExpressionAttributeNames {
		assert.NotContains(t, []string{"Likes", "Dislikes", "UsersLiked", "UsersDisliked", "UserID", "SauceID"}, name)
	}
}

func TestSauceRepository_UpdateDetailsMissing(t *testing.T) {
	ctx := context.Background()
	api := new(mockAPI)
	repo := NewSauceRepository(api, "sauces", zap.NewNop())
	api.On("UpdateItem", ctx, mock.Anything).Return(nil, &types.ConditionalCheckFailedException{})

	err := repo.UpdateDetails(ctx, valueobjects.NewSauceID(), entities.SauceDetails{Name: "x"}, valueobjects.ImageRef{}, valueobjects.ImageRef{})

	assert.ErrorIs(t, err, ports.ErrSauceNotFound)
}

func TestSauceRepository_UpdateDetailsImageChanged(t *testing.T) {
	ctx := context.Background()
	api := new(mockAPI)
	repo := NewSauceRepository(api, "sauces", zap.NewNop())
	id := valueobjects.NewSauceID()
	image, _ := valueobjects.NewImageRef("http://localhost:3000", "b2.png")
	stale, _ := valueobjects.NewImageRef("http://localhost:3000", "b0.png")
	api.On("UpdateItem", ctx, mock.MatchedBy(func(in *dynamodb.UpdateItemInput) bool {
		return in.ReturnValuesOnConditionCheckFailure == types.ReturnValuesOnConditionCheckFailureAllOld
	})).Return(nil, &types.ConditionalCheckFailedException{Item: storedItem(id, nil, nil)})

	err := repo.UpdateDetails(ctx, id, entities.SauceDetails{Name: "x"}, image, stale)

	assert.ErrorIs(t, err, ports.ErrImageChanged)
}

func TestSauceRepository_Delete(t *testing.T) {
	ctx := context.Background()
	api := new(mockAPI)
	repo := NewSauceRepository(api, "sauces", zap.NewNop())
	id := valueobjects.NewSauceID()
	api.On("DeleteItem", ctx, mock.Anything).Return(&dynamodb.DeleteItemOutput{}, nil).Once()
	api.On("DeleteItem", ctx, mock.Anything).Return(nil, &types.ConditionalCheckFailedException{}).Once()

	assert.NoError(t, repo.Delete(ctx, id))
	assert.ErrorIs(t, repo.Delete(ctx, id), ports.ErrSauceNotFound)
}

func TestSauceRepository_ApplyVote(t *testing.T) {
	ctx := context.Background()
	id := valueobjects.NewSauceID()

	like, err := services.ApplyVote(entities.NewVoteTally(nil, nil), "u2", valueobjects.VoteLike)
	require.NoError(t, err)
	removeDislike, err := services.ApplyVote(entities.NewVoteTally(nil, []string{"u2"}), "u2", valueobjects.VoteRemove)
	require.NoError(t, err)

	t.Run("like adds to set and counter", func(t *testing.T) {
		api := new(mockAPI)
		repo := NewSauceRepository(api, "sauces", zap.NewNop())
		api.On("UpdateItem", ctx, mock.MatchedBy(func(in *dynamodb.UpdateItemInput) bool {
			return *in.UpdateExpression == "SET UpdatedAt = :now ADD Likes :delta, UsersLiked :voter" &&
				*in.ConditionExpression == "attribute_exists(PK) AND NOT contains(UsersLiked, :uid) AND NOT contains(UsersDisliked, :uid)"
		})).Return(&dynamodb.UpdateItemOutput{Attributes: storedItem(id, []string{"u2"}, nil)}, nil)

		tally, err := repo.ApplyVote(ctx, id, like)

		require.NoError(t, err)
		assert.Equal(t, 1, tally.Likes())
		api.AssertExpectations(t)
	})

	t.Run("remove dislike deletes from set", func(t *testing.T) {
		api := new(mockAPI)
		repo := NewSauceRepository(api, "sauces", zap.NewNop())
		api.On("UpdateItem", ctx, mock.MatchedBy(func(in *dynamodb.UpdateItemInput) bool {
			delta := in.ExpressionAttributeValues[":delta"].(*types.AttributeValueMemberN)
			return *in.UpdateExpression == "SET UpdatedAt = :now ADD Dislikes :delta DELETE UsersDisliked :voter" &&
				delta.Value == "-1"
		})).Return(&dynamodb.UpdateItemOutput{Attributes: storedItem(id, nil, nil)}, nil)

		tally, err := repo.ApplyVote(ctx, id, removeDislike)

		require.NoError(t, err)
		assert.Equal(t, 0, tally.Dislikes())
	})

	t.Run("lost race", func(t *testing.T) {
		api := new(mockAPI)
		repo := NewSauceRepository(api, "sauces", zap.NewNop())
		api.On("UpdateItem", ctx, mock.Anything).
			Return(nil, &types.ConditionalCheckFailedException{Item: storedItem(id, []string{"u2"}, nil)})

		_, err := repo.ApplyVote(ctx, id, like)

		assert.ErrorIs(t, err, ports.ErrVotePreconditionFailed)
	})

	t.Run("missing sauce", func(t *testing.T) {
		api := new(mockAPI)
		repo := NewSauceRepository(api, "sauces", zap.NewNop())
		api.On("UpdateItem", ctx, mock.Anything).Return(nil, &types.ConditionalCheckFailedException{})

		_, err := repo.ApplyVote(ctx, id, like)

		assert.ErrorIs(t, err, ports.ErrSauceNotFound)
	})

	t.Run("transport failure", func(t *testing.T) {
		api := new(mockAPI)
		repo := NewSauceRepository(api, "sauces", zap.NewNop())
		api.On("UpdateItem", ctx, mock.Anything).Return(nil, errors.New("throttled"))

		_, err := repo.ApplyVote(ctx, id, like)

		assert.Error(t, err)
		assert.False(t, errors.Is(err, ports.ErrVotePreconditionFailed))
	})
}

func TestSauceRepository_List(t *testing.T) {
	ctx := context.Background()
	api := new(mockAPI)
	repo := NewSauceRepository(api, "sauces", zap.NewNop())
	first, second := valueobjects.NewSauceID(), valueobjects.NewSauceID()

	api.On("Scan", mock.Anything, mock.MatchedBy(func(in *dynamodb.ScanInput) bool { return in.ExclusiveStartKey == nil })).
		Return(&dynamodb.ScanOutput{
			Items:            []map[string]types.AttributeValue{storedItem(first, nil, nil)},
			LastEvaluatedKey: map[string]types.AttributeValue{"PK": &types.AttributeValueMemberS{Value: "SAUCE#" + first.String()}},
		}, nil).Once()
	api.On("Scan", mock.Anything, mock.MatchedBy(func(in *dynamodb.ScanInput) bool { return in.ExclusiveStartKey != nil })).
		Return(&dynamodb.ScanOutput{Items: []map[string]types.AttributeValue{storedItem(second, nil, nil)}}, nil).Once()

	sauces, err := repo.List(ctx)

	require.NoError(t, err)
	require.Len(t, sauces, 2)
	assert.True(t, sauces[0].ID().Equals(first))
	assert.True(t, sauces[1].ID().Equals(second))
}
