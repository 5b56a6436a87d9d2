package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"piiquante/application/ports"
	"piiquante/domain/core/entities"
	"piiquante/domain/core/valueobjects"
	"piiquante/domain/services"
	"piiquante/pkg/utils"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

const (
	sauceEntityType = "SAUCE"
	sauceSortKey    = "METADATA"
)

// API is the part of the DynamoDB client the repository uses
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// SauceRepository implements ports.SauceRepository using a single DynamoDB table
type SauceRepository struct {
	client    API
	tableName string
	logger    *zap.Logger
}

// NewSauceRepository creates a new DynamoDB sauce repository
func NewSauceRepository(client API, tableName string, logger *zap.Logger) *SauceRepository {
	return &SauceRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

var _ ports.SauceRepository = (*SauceRepository)(nil)

// sauceItem is the stored form of a sauce.
// Voter sets are string sets; DynamoDB cannot store an empty set so they
// are omitted when empty.
type sauceItem struct {
	PK            string   `dynamodbav:"PK"` // SAUCE#<id>
	SK            string   `dynamodbav:"SK"` // METADATA
	EntityType    string   `dynamodbav:"EntityType"`
	SauceID       string   `dynamodbav:"SauceID"`
	UserID        string   `dynamodbav:"UserID"`
	Name          string   `dynamodbav:"Name"`
	Manufacturer  string   `dynamodbav:"Manufacturer"`
	Description   string   `dynamodbav:"Description"`
	MainPepper    string   `dynamodbav:"MainPepper"`
	ImageURL      string   `dynamodbav:"ImageURL"`
	Heat          int      `dynamodbav:"Heat"`
	Likes         int      `dynamodbav:"Likes"`
	Dislikes      int      `dynamodbav:"Dislikes"`
	UsersLiked    []string `dynamodbav:"UsersLiked,stringset,omitempty"`
	UsersDisliked []string `dynamodbav:"UsersDisliked,stringset,omitempty"`
	CreatedAt     string   `dynamodbav:"CreatedAt"`
	UpdatedAt     string   `dynamodbav:"UpdatedAt"`
}

func sauceKey(id valueobjects.SauceID) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("SAUCE#%s", id.String())},
		"SK": &types.AttributeValueMemberS{Value: sauceSortKey},
	}
}

// Insert stores a new sauce; an existing item with the same id is never overwritten
func (r *SauceRepository) Insert(ctx context.Context, sauce *entities.Sauce) error {
	details := sauce.Details()
	tally := sauce.Tally()

	item := sauceItem{
		PK:            fmt.Sprintf("SAUCE#%s", sauce.ID().String()),
		SK:            sauceSortKey,
		EntityType:    sauceEntityType,
		SauceID:       sauce.ID().String(),
		UserID:        sauce.OwnerID(),
		Name:          details.Name,
		Manufacturer:  details.Manufacturer,
		Description:   details.Description,
		MainPepper:    details.MainPepper,
		ImageURL:      sauce.ImageRef().URL(),
		Heat:          details.Heat,
		Likes:         tally.Likes(),
		Dislikes:      tally.Dislikes(),
		UsersLiked:    tally.UsersLiked.Members(),
		UsersDisliked: tally.UsersDisliked.Members(),
		CreatedAt:     utils.FormatTimestamp(sauce.CreatedAt()),
		UpdatedAt:     utils.FormatTimestamp(sauce.UpdatedAt()),
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal sauce: %w", err)
	}

	expr, err := expression.NewBuilder().
		WithCondition(expression.AttributeNotExists(expression.Name("PK"))).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build insert condition: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(r.tableName),
		Item:                     av,
		ConditionExpression:      expr.Condition(),
		ExpressionAttributeNames: expr.Names(),
	})
	if err != nil {
		var conditionalCheckFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionalCheckFailed) {
			return fmt.Errorf("sauce %s already exists", sauce.ID().String())
		}
		r.logger.Error("Failed to insert sauce",
			zap.String("sauceID", sauce.ID().String()),
			zap.Error(err),
		)
		return fmt.Errorf("failed to insert sauce: %w", err)
	}

	r.logger.Debug("Inserted sauce",
		zap.String("sauceID", sauce.ID().String()),
		zap.String("PK", item.PK),
	)
	return nil
}

// GetByID retrieves a sauce with a strongly consistent read
func (r *SauceRepository) GetByID(ctx context.Context, id valueobjects.SauceID) (*entities.Sauce, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            sauceKey(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get sauce: %w", err)
	}
	if len(result.Item) == 0 {
		return nil, ports.ErrSauceNotFound
	}

	return r.toEntity(result.Item)
}

// List returns every sauce in the table
func (r *SauceRepository) List(ctx context.Context) ([]*entities.Sauce, error) {
	expr, err := expression.NewBuilder().
		WithFilter(expression.Name("EntityType").Equal(expression.Value(sauceEntityType))).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build list filter: %w", err)
	}

	paginator := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
		TableName:                 aws.String(r.tableName),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})

	var sauces []*entities.Sauce
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sauces: %w", err)
		}
		for _, av := range page.Items {
			sauce, err := r.toEntity(av)
			if err != nil {
				r.logger.Warn("Skipping unreadable sauce item", zap.Error(err))
				continue
			}
			sauces = append(sauces, sauce)
		}
	}

	return sauces, nil
}

// UpdateDetails writes the descriptive attributes and the image URL only.
// Vote attributes are untouched so concurrent votes are never clobbered.
// The write is conditioned on the stored image URL so two image swaps
// computed from the same record cannot both win.
func (r *SauceRepository) UpdateDetails(ctx context.Context, id valueobjects.SauceID, details entities.SauceDetails, image, current valueobjects.ImageRef) error {
	update := expression.
		Set(expression.Name("Name"), expression.Value(details.Name)).
		Set(expression.Name("Manufacturer"), expression.Value(details.Manufacturer)).
		Set(expression.Name("Description"), expression.Value(details.Description)).
		Set(expression.Name("MainPepper"), expression.Value(details.MainPepper)).
		Set(expression.Name("Heat"), expression.Value(details.Heat)).
		Set(expression.Name("ImageURL"), expression.Value(image.URL())).
		Set(expression.Name("UpdatedAt"), expression.Value(utils.FormatTimestamp(time.Now())))

	condition := expression.AttributeExists(expression.Name("PK")).
		And(expression.Name("ImageURL").Equal(expression.Value(current.URL())))

	expr, err := expression.NewBuilder().
		WithUpdate(update).
		WithCondition(condition).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build update expression: %w", err)
	}

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                           aws.String(r.tableName),
		Key:                                 sauceKey(id),
		UpdateExpression:                    expr.Update(),
		ConditionExpression:                 expr.Condition(),
		ExpressionAttributeNames:            expr.Names(),
		ExpressionAttributeValues:           expr.Values(),
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err != nil {
		var conditionalCheckFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionalCheckFailed) {
			if len(conditionalCheckFailed.Item) == 0 {
				return ports.ErrSauceNotFound
			}
			return ports.ErrImageChanged
		}
		return fmt.Errorf("failed to update sauce: %w", err)
	}

	return nil
}

// Delete removes a sauce
func (r *SauceRepository) Delete(ctx context.Context, id valueobjects.SauceID) error {
	expr, err := expression.NewBuilder().
		WithCondition(expression.AttributeExists(expression.Name("PK"))).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build delete condition: %w", err)
	}

	_, err = r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                aws.String(r.tableName),
		Key:                      sauceKey(id),
		ConditionExpression:      expr.Condition(),
		ExpressionAttributeNames: expr.Names(),
	})
	if err != nil {
		var conditionalCheckFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionalCheckFailed) {
			return ports.ErrSauceNotFound
		}
		return fmt.Errorf("failed to delete sauce: %w", err)
	}

	return nil
}

// ApplyVote applies one vote transition in a single conditional UpdateItem.
// The counter and the voter set move together and the condition pins the
// voter's prior standing, so a concurrent vote by the same user fails the
// write instead of double counting.
func (r *SauceRepository) ApplyVote(ctx context.Context, id valueobjects.SauceID, outcome services.VoteOutcome) (entities.VoteTally, error) {
	input, err := r.voteUpdate(id, outcome)
	if err != nil {
		return entities.VoteTally{}, err
	}

	result, err := r.client.UpdateItem(ctx, input)
	if err != nil {
		var conditionalCheckFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionalCheckFailed) {
			if len(conditionalCheckFailed.Item) == 0 {
				return entities.VoteTally{}, ports.ErrSauceNotFound
			}
			return entities.VoteTally{}, ports.ErrVotePreconditionFailed
		}
		return entities.VoteTally{}, fmt.Errorf("failed to apply vote: %w", err)
	}

	var item sauceItem
	if err := attributevalue.UnmarshalMap(result.Attributes, &item); err != nil {
		return entities.VoteTally{}, fmt.Errorf("failed to unmarshal voted sauce: %w", err)
	}

	r.logger.Debug("Applied vote",
		zap.String("sauceID", id.String()),
		zap.String("userID", outcome.UserID),
		zap.Int("likes", item.Likes),
		zap.Int("dislikes", item.Dislikes),
	)

	return entities.NewVoteTally(item.UsersLiked, item.UsersDisliked), nil
}

func (r *SauceRepository) voteUpdate(id valueobjects.SauceID, outcome services.VoteOutcome) (*dynamodb.UpdateItemInput, error) {
	var counter, set, op, delta string
	switch {
	case outcome.LikeDelta != 0:
		counter, set, delta = "Likes", "UsersLiked", strconv.Itoa(outcome.LikeDelta)
		if outcome.LikeDelta > 0 {
			op = "ADD"
		} else {
			op = "DELETE"
		}
	case outcome.DislikeDelta != 0:
		counter, set, delta = "Dislikes", "UsersDisliked", strconv.Itoa(outcome.DislikeDelta)
		if outcome.DislikeDelta > 0 {
			op = "ADD"
		} else {
			op = "DELETE"
		}
	default:
		return nil, fmt.Errorf("vote outcome for %s changes nothing", id.String())
	}

	var condition string
	switch outcome.Prior {
	case services.StandingNeutral:
		condition = "attribute_exists(PK) AND NOT contains(UsersLiked, :uid) AND NOT contains(UsersDisliked, :uid)"
	case services.StandingLiked:
		condition = "attribute_exists(PK) AND contains(UsersLiked, :uid)"
	case services.StandingDisliked:
		condition = "attribute_exists(PK) AND contains(UsersDisliked, :uid)"
	default:
		return nil, fmt.Errorf("unknown prior standing %q", outcome.Prior)
	}

	var update string
	if op == "ADD" {
		update = fmt.Sprintf("SET UpdatedAt = :now ADD %s :delta, %s :voter", counter, set)
	} else {
		update = fmt.Sprintf("SET UpdatedAt = :now ADD %s :delta DELETE %s :voter", counter, set)
	}

	return &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 sauceKey(id),
		UpdateExpression:    aws.String(update),
		ConditionExpression: aws.String(condition),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now":   &types.AttributeValueMemberS{Value: utils.FormatTimestamp(time.Now())},
			":delta": &types.AttributeValueMemberN{Value: delta},
			":voter": &types.AttributeValueMemberSS{Value: []string{outcome.UserID}},
			":uid":   &types.AttributeValueMemberS{Value: outcome.UserID},
		},
		ReturnValues:                        types.ReturnValueAllNew,
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	}, nil
}

func (r *SauceRepository) toEntity(av map[string]types.AttributeValue) (*entities.Sauce, error) {
	var item sauceItem
	if err := attributevalue.UnmarshalMap(av, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sauce: %w", err)
	}

	id, err := valueobjects.NewSauceIDFromString(item.SauceID)
	if err != nil {
		return nil, fmt.Errorf("invalid stored sauce id: %w", err)
	}

	image, err := valueobjects.ParseImageRef(item.ImageURL)
	if err != nil {
		// A record must stay readable even if its image URL is malformed
		r.logger.Warn("Stored sauce has an unreadable image URL",
			zap.String("sauceID", item.SauceID),
			zap.String("imageURL", item.ImageURL),
		)
		image = valueobjects.ImageRef{}
	}

	createdAt, _ := utils.ParseTimestamp(item.CreatedAt)
	updatedAt, _ := utils.ParseTimestamp(item.UpdatedAt)

	return entities.ReconstructSauce(
		id,
		item.UserID,
		entities.SauceDetails{
			Name:         item.Name,
			Manufacturer: item.Manufacturer,
			Description:  item.Description,
			MainPepper:   item.MainPepper,
			Heat:         item.Heat,
		},
		image,
		entities.NewVoteTally(item.UsersLiked, item.UsersDisliked),
		createdAt,
		updatedAt,
	)
}
