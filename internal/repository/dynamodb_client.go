package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	skState     = "STATE#"
	ttlDuration = 30 * 24 * time.Hour // 30-day TTL
)

// dynamodbAPI is the minimal DynamoDB interface required by DynamoStateStore.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

var now = time.Now

// DynamoStateStore keeps one state snapshot per session in a single-table
// layout. Items expire through the table's TTL attribute.
type DynamoStateStore struct {
	api       dynamodbAPI
	tableName string
}

func NewDynamoStateStore(api dynamodbAPI, tableName string) (*DynamoStateStore, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &DynamoStateStore{api: api, tableName: tableName}, nil
}

func sessionPK(sessionID string) string {
	return "SESSION#" + sessionID
}

func stateKey(sessionID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: sessionPK(sessionID)},
		"SK": &types.AttributeValueMemberS{Value: skState},
	}
}

// ttlValue returns a Unix timestamp 30 days in the future.
func ttlValue() int64 {
	return now().Add(ttlDuration).Unix()
}

// Load returns the stored snapshot, or nil when the session has none.
func (c *DynamoStateStore) Load(ctx context.Context, sessionID string) ([]byte, error) {
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(c.tableName),
		Key:            stateKey(sessionID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("repository: Load get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return nil, nil
	}

	payload, err := strAttr(out.Item, "payload")
	if err != nil {
		return nil, fmt.Errorf("repository: Load decode payload: %w", err)
	}
	return []byte(payload), nil
}

// Save replaces the session's snapshot and refreshes its TTL.
func (c *DynamoStateStore) Save(ctx context.Context, sessionID string, payload []byte) error {
	item := stateKey(sessionID)
	item["payload"] = &types.AttributeValueMemberS{Value: string(payload)}
	item["version"] = &types.AttributeValueMemberN{Value: strconv.Itoa(snapshotVersion(payload))}
	item["updatedAt"] = &types.AttributeValueMemberS{Value: now().UTC().Format(time.RFC3339)}
	item["ttl"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(ttlValue(), 10)}

	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("repository: Save: %w", err)
	}
	return nil
}

func (c *DynamoStateStore) Delete(ctx context.Context, sessionID string) error {
	_, err := c.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(c.tableName),
		Key:       stateKey(sessionID),
	})
	if err != nil {
		return fmt.Errorf("repository: Delete: %w", err)
	}
	return nil
}

// snapshotVersion reads the version field of a snapshot so it can be queried
// without decoding the payload. Unreadable payloads report 0.
func snapshotVersion(payload []byte) int {
	var head struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(payload, &head); err != nil {
		return 0
	}
	return head.Version
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}
