package repository

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sirupsen/logrus"
	"github.com/vendora/vendora-edge/internal/models"
)

// DynamoPutter is the subset of *dynamodb.Client the audit trail needs.
type DynamoPutter interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

type AuditRepository struct {
	client    DynamoPutter
	tableName string
	logger    *logrus.Logger
}

func NewAuditRepository(client DynamoPutter, tableName string, logger *logrus.Logger) *AuditRepository {
	return &AuditRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// Store writes one audit event with a TTL so DynamoDB expires it.
func (r *AuditRepository) Store(ctx context.Context, event models.AuditEvent) error {
	item, err := attributevalue.MarshalMap(event)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}

	item["PK"] = &types.AttributeValueMemberS{Value: event.GetPK()}
	item["SK"] = &types.AttributeValueMemberS{Value: event.GetSK()}
	item["TTL"] = &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", event.ExpiresAt.Unix())}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})

	if err != nil {
		r.logger.WithError(err).Error("Failed to store audit event in DynamoDB")
		return fmt.Errorf("failed to store audit event: %w", err)
	}

	return nil
}
