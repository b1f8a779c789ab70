package backend

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const ddbBatchSize = 25 // BatchWriteItem limit

// ddbItem is the table row layout. The table needs a string partition key
// named "k". Point the table's TTL attribute at "exp" to let DynamoDB reap
// expired rows; expiry is checked on read regardless, since DynamoDB TTL
// deletion is lazy.
type ddbItem struct {
	Key       string `dynamodbav:"k"`
	Value     []byte `dynamodbav:"v"`
	ExpiresAt int64  `dynamodbav:"exp,omitempty"` // unix seconds, 0 = no expiry
}

// DynamoDB is a Backend backed by a DynamoDB table.
type DynamoDB struct {
	client *dynamodb.Client
	table  string
	cfg    config
}

var _ Backend = (*DynamoDB)(nil)

// NewDynamoDB returns a new Backend storing entries in the named table.
func NewDynamoDB(client *dynamodb.Client, table string, opts ...Option) *DynamoDB {
	return &DynamoDB{
		client: client,
		table:  table,
		cfg:    applyOptions(opts),
	}
}

func (b *DynamoDB) keyAttr(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"k": &types.AttributeValueMemberS{Value: key},
	}
}

func (b *DynamoDB) getItem(ctx context.Context, key string) (*ddbItem, error) {
	qctx, cancel := b.cfg.queryCtx(ctx)
	defer cancel()
	out, err := b.client.GetItem(qctx, &dynamodb.GetItemInput{
		TableName: aws.String(b.table),
		Key:       b.keyAttr(key),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, nil
	}
	var item ddbItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, err
	}
	if item.ExpiresAt > 0 && time.Now().Unix() >= item.ExpiresAt {
		return nil, nil
	}
	return &item, nil
}

func (b *DynamoDB) Get(ctx context.Context, key string) ([]byte, error) {
	item, err := b.getItem(ctx, key)
	if err != nil || item == nil {
		return nil, err
	}
	return item.Value, nil
}

func (b *DynamoDB) GetWithTTL(ctx context.Context, key string) ([]byte, time.Duration, error) {
	item, err := b.getItem(ctx, key)
	if err != nil || item == nil {
		return nil, 0, err
	}
	if item.ExpiresAt == 0 {
		return item.Value, TTLUnknown, nil
	}
	return item.Value, time.Until(time.Unix(item.ExpiresAt, 0)), nil
}

func (b *DynamoDB) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	item := ddbItem{Key: key, Value: value}
	if ttl > 0 {
		item.ExpiresAt = time.Now().Add(ttl).Unix()
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return err
	}
	qctx, cancel := b.cfg.queryCtx(ctx)
	defer cancel()
	_, err = b.client.PutItem(qctx, &dynamodb.PutItemInput{
		TableName: aws.String(b.table),
		Item:      av,
	})
	return err
}

func (b *DynamoDB) Clear(ctx context.Context, prefix string) (int, error) {
	var count int
	var startKey map[string]types.AttributeValue
	for {
		qctx, cancel := b.cfg.queryCtx(ctx)
		out, err := b.client.Scan(qctx, &dynamodb.ScanInput{
			TableName:                aws.String(b.table),
			FilterExpression:         aws.String("begins_with(#k, :p)"),
			ProjectionExpression:     aws.String("#k"),
			ExpressionAttributeNames: map[string]string{"#k": "k"},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":p": &types.AttributeValueMemberS{Value: prefix},
			},
			ExclusiveStartKey: startKey,
		})
		cancel()
		if err != nil {
			return count, err
		}
		deleted, err := b.deleteItems(ctx, out.Items)
		count += deleted
		if err != nil {
			return count, err
		}
		if out.LastEvaluatedKey == nil {
			return count, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

func (b *DynamoDB) deleteItems(ctx context.Context, items []map[string]types.AttributeValue) (int, error) {
	var count int
	for start := 0; start < len(items); start += ddbBatchSize {
		end := min(start+ddbBatchSize, len(items))
		requests := make([]types.WriteRequest, 0, end-start)
		for _, item := range items[start:end] {
			requests = append(requests, types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{Key: item},
			})
		}
		qctx, cancel := b.cfg.queryCtx(ctx)
		_, err := b.client.BatchWriteItem(qctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{b.table: requests},
		})
		cancel()
		if err != nil {
			return count, err
		}
		count += end - start
	}
	return count, nil
}
