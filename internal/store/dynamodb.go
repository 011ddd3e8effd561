package store

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	apperrors "carelink-backend/pkg/errors"
)

// Key attribute names of the single-table layout. A document at
// collection/a/b is stored as PK="collection#a", SK="b"; the remaining item
// attributes are the document itself.
const (
	attrPK = "PK"
	attrSK = "SK"
)

// DynamoDBStore reads documents out of a single DynamoDB table.
type DynamoDBStore struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewDynamoDBStore creates a read-only store over the given table.
func NewDynamoDBStore(client *dynamodb.Client, tableName string, logger *zap.Logger) *DynamoDBStore {
	return &DynamoDBStore{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// Get retrieves the single document at path.
func (s *DynamoDBStore) Get(ctx context.Context, path ...string) (Document, error) {
	if err := validatePath(path); err != nil {
		return nil, apperrors.NewValidation(err.Error())
	}
	if len(path) < 2 {
		return nil, apperrors.NewValidation("document path needs a collection and a key")
	}

	pk := strings.Join(path[:len(path)-1], "#")
	sk := path[len(path)-1]

	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			attrPK: &types.AttributeValueMemberS{Value: pk},
			attrSK: &types.AttributeValueMemberS{Value: sk},
		},
	})
	if err != nil {
		return nil, s.classify(err, path)
	}
	if result.Item == nil {
		return nil, ErrDocumentNotFound
	}

	return s.toDocument(result.Item)
}

// List retrieves every child document one level beneath path, keyed by its
// final path segment.
func (s *DynamoDBStore) List(ctx context.Context, path ...string) (map[string]Document, error) {
	if err := validatePath(path); err != nil {
		return nil, apperrors.NewValidation(err.Error())
	}

	pk := strings.Join(path, "#")
	keyCond := expression.Key(attrPK).Equal(expression.Value(pk))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, apperrors.NewInternal("failed to build store query", err)
	}

	docs := make(map[string]Document)
	var lastKey map[string]types.AttributeValue

	for {
		out, err := s.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(s.tableName),
			KeyConditionExpression:    expr.KeyCondition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         lastKey,
		})
		if err != nil {
			return nil, s.classify(err, path)
		}

		for _, item := range out.Items {
			sk := ""
			if av, ok := item[attrSK].(*types.AttributeValueMemberS); ok {
				sk = av.Value
			}
			if sk == "" {
				continue
			}
			doc, err := s.toDocument(item)
			if err != nil {
				// One malformed item must not fail the listing.
				s.logger.Warn("skipping unparseable document",
					zap.String("path", JoinPath(path)),
					zap.String("key", sk),
					zap.Error(err),
				)
				continue
			}
			docs[sk] = doc
		}

		lastKey = out.LastEvaluatedKey
		if len(lastKey) == 0 {
			break
		}
	}

	return docs, nil
}

// toDocument converts a table item into a Document, dropping key attributes.
func (s *DynamoDBStore) toDocument(item map[string]types.AttributeValue) (Document, error) {
	var doc map[string]any
	if err := attributevalue.UnmarshalMap(item, &doc); err != nil {
		return nil, apperrors.NewInternal("failed to unmarshal document", err)
	}
	delete(doc, attrPK)
	delete(doc, attrSK)
	return Document(doc), nil
}

// classify maps a DynamoDB error to the application taxonomy.
func (s *DynamoDBStore) classify(err error, path []string) error {
	var notFound *types.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return apperrors.NewUnavailable("store table missing", err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		s.logger.Warn("store read failed",
			zap.String("path", JoinPath(path)),
			zap.String("code", apiErr.ErrorCode()),
			zap.Error(err),
		)
		return apperrors.NewUnavailable("store read failed", err)
	}

	return apperrors.NewInternal("store read failed", err)
}
