package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"go-shortlink/types"
)

// DynamoDBAPI is the subset of the DynamoDB client used by DynamoDBStorage.
type DynamoDBAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// DynamoDBOptions configures the DynamoDB client.
type DynamoDBOptions struct {
	Region          string
	Endpoint        string // optional, e.g. DynamoDB Local
	AccessKeyID     string // optional static credentials
	SecretAccessKey string
}

// NewDynamoDBClient builds a client from the default AWS config chain.
func NewDynamoDBClient(ctx context.Context, opts DynamoDBOptions) (*dynamodb.Client, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, unavailable("aws config", err)
	}

	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	}), nil
}

// DynamoDBStorage implements the Storage interface on a DynamoDB table keyed by "id".
type DynamoDBStorage struct {
	client     DynamoDBAPI
	table      string
	visitsMode types.VisitsMode
	logger     *zap.Logger
}

// NewDynamoDBStorage stores links in table.
func NewDynamoDBStorage(client DynamoDBAPI, table string, visitsMode types.VisitsMode, logger *zap.Logger) *DynamoDBStorage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DynamoDBStorage{client: client, table: table, visitsMode: visitsMode, logger: logger}
}

// PutIfAbsent writes the record guarded by attribute_not_exists(id).
func (s *DynamoDBStorage) PutIfAbsent(ctx context.Context, link types.ShortLink) (types.ShortLink, error) {
	if s.table == "" {
		return types.ShortLink{}, unavailable("put", errors.New("table name not configured"))
	}

	item, err := attributevalue.MarshalMap(types.NewRecord(link, s.visitsMode))
	if err != nil {
		return types.ShortLink{}, err
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		var conditionFailed *ddbtypes.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			s.logger.Warn("Attempt to create duplicate id", zap.String("id", link.ID))
			return types.ShortLink{}, ErrIDExists
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return types.ShortLink{}, ctxErr
		}
		s.logger.Error("PutItem failed", zap.String("id", link.ID), zap.Error(err))
		return types.ShortLink{}, unavailable("put", err)
	}
	return link, nil
}

// Get loads the item keyed by id.
func (s *DynamoDBStorage) Get(ctx context.Context, id string) (types.ShortLink, bool, error) {
	if s.table == "" {
		return types.ShortLink{}, false, unavailable("get", errors.New("table name not configured"))
	}

	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]ddbtypes.AttributeValue{
			"id": &ddbtypes.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return types.ShortLink{}, false, ctxErr
		}
		return types.ShortLink{}, false, unavailable("get", err)
	}
	if len(out.Item) == 0 {
		return types.ShortLink{}, false, nil
	}

	var record types.Record
	if err := attributevalue.UnmarshalMap(out.Item, &record); err != nil {
		return types.ShortLink{}, false, fmt.Errorf("decoding item %q: %w", id, err)
	}
	link, err := record.ShortLink()
	if err != nil {
		return types.ShortLink{}, false, fmt.Errorf("decoding item %q: %w", id, err)
	}
	return link, true, nil
}
