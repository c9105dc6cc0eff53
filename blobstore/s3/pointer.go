package s3

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ErrConcurrentModification is returned when a pointer update loses a race
// against another writer.
var ErrConcurrentModification = errors.New("concurrent pointer modification detected")

// DDBClient is the subset of the DynamoDB API the pointer uses.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// CurrentPointer tracks which snapshot blob is current, with DynamoDB
// conditional writes providing the compare-and-swap that S3 lacks. Safe
// for multiple concurrent writers: a stale writer gets
// ErrConcurrentModification instead of clobbering a newer snapshot.
//
// Table schema: partition key "vault" (string); attributes "current"
// (string, blob name) and "version" (number, monotonically increasing).
type CurrentPointer struct {
	client DDBClient
	table  string
	vault  string
}

// NewCurrentPointer creates a pointer for one vault identity within a table.
func NewCurrentPointer(client DDBClient, table, vault string) *CurrentPointer {
	return &CurrentPointer{client: client, table: table, vault: vault}
}

// Get returns the current snapshot blob name and pointer version.
// A version of 0 means no snapshot has been published yet.
func (p *CurrentPointer) Get(ctx context.Context) (string, int64, error) {
	out, err := p.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(p.table),
		Key:            map[string]types.AttributeValue{"vault": &types.AttributeValueMemberS{Value: p.vault}},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return "", 0, fmt.Errorf("get current pointer: %w", err)
	}
	if len(out.Item) == 0 {
		return "", 0, nil
	}

	name, ok := out.Item["current"].(*types.AttributeValueMemberS)
	if !ok {
		return "", 0, fmt.Errorf("malformed pointer item: missing current attribute")
	}
	versionAttr, ok := out.Item["version"].(*types.AttributeValueMemberN)
	if !ok {
		return "", 0, fmt.Errorf("malformed pointer item: missing version attribute")
	}
	version, err := strconv.ParseInt(versionAttr.Value, 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("malformed pointer version: %w", err)
	}
	return name.Value, version, nil
}

// Set publishes name as the current snapshot, expecting the pointer to
// still be at expectedVersion (0 for the first publish). The write is
// conditional; losing the race returns ErrConcurrentModification.
func (p *CurrentPointer) Set(ctx context.Context, name string, expectedVersion int64) error {
	item := map[string]types.AttributeValue{
		"vault":   &types.AttributeValueMemberS{Value: p.vault},
		"current": &types.AttributeValueMemberS{Value: name},
		"version": &types.AttributeValueMemberN{Value: strconv.FormatInt(expectedVersion+1, 10)},
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(p.table),
		Item:      item,
	}
	if expectedVersion == 0 {
		input.ConditionExpression = aws.String("attribute_not_exists(vault)")
	} else {
		input.ConditionExpression = aws.String("version = :expected")
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":expected": &types.AttributeValueMemberN{Value: strconv.FormatInt(expectedVersion, 10)},
		}
	}

	if _, err := p.client.PutItem(ctx, input); err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("%w: %w", ErrConcurrentModification, err)
		}
		return fmt.Errorf("set current pointer: %w", err)
	}
	return nil
}
