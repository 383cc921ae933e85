package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	AttrPartitionKey = "PartitionKey"
	AttrRowKey       = "RowKey"
	AttrVersion      = "Version"

	tableWaitTimeout = 2 * time.Minute
)

var (
	// ErrNotFound is returned when no row exists for the key.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when an insert hits an existing key or a replace
	// carries a stale concurrency token.
	ErrConflict = errors.New("concurrency conflict")
)

// API is the subset of the DynamoDB client used by Table.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// Entity holds the attributes every row carries. Version is the concurrency token:
// it starts at 1 on insert and is incremented by every successful Replace.
type Entity struct {
	PartitionKey string    `dynamodbav:"PartitionKey" json:"partitionKey"`
	RowKey       string    `dynamodbav:"RowKey" json:"rowKey"`
	Timestamp    time.Time `dynamodbav:"Timestamp" json:"timestamp"`
	Version      int64     `dynamodbav:"Version" json:"version"`
}

// Base gives Table access to the embedded keys and token.
func (e *Entity) Base() *Entity { return e }

// Record is any row struct embedding Entity.
type Record interface {
	Base() *Entity
}

// Table is a two-part-key row store over one DynamoDB table.
type Table struct {
	client API
	name   string
}

func NewTable(client API, name string) *Table {
	return &Table{client: client, name: name}
}

func (t *Table) Name() string { return t.name }

func keyOf(pk, rk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		AttrPartitionKey: &types.AttributeValueMemberS{Value: pk},
		AttrRowKey:       &types.AttributeValueMemberS{Value: rk},
	}
}

// Get loads a row into out.
func (t *Table) Get(ctx context.Context, pk, rk string, out Record) error {
	res, err := t.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      &t.name,
		Key:            keyOf(pk, rk),
		ConsistentRead: boolPtr(true),
	})
	if err != nil {
		return fmt.Errorf("dynamodb GetItem %s failed: %w", t.name, err)
	}
	if len(res.Item) == 0 {
		return ErrNotFound
	}
	if err := attributevalue.UnmarshalMap(res.Item, out); err != nil {
		return fmt.Errorf("unmarshal item: %w", err)
	}
	return nil
}

// List loads every row of a partition into out (a pointer to a slice of row structs).
// An empty partition scans the whole table.
func (t *Table) List(ctx context.Context, pk string, out interface{}) error {
	var items []map[string]types.AttributeValue
	if pk == "" {
		paginator := dynamodb.NewScanPaginator(t.client, &dynamodb.ScanInput{TableName: &t.name})
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				return fmt.Errorf("scan page failed: %w", err)
			}
			items = append(items, page.Items...)
		}
	} else {
		paginator := dynamodb.NewQueryPaginator(t.client, t.partitionQuery(pk, ""))
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				return fmt.Errorf("query page failed: %w", err)
			}
			items = append(items, page.Items...)
		}
	}
	if err := attributevalue.UnmarshalListOfMaps(items, out); err != nil {
		return fmt.Errorf("unmarshal items: %w", err)
	}
	return nil
}

// Count returns the number of rows in a partition, or in the table when pk is empty.
func (t *Table) Count(ctx context.Context, pk string) (int, error) {
	total := 0
	if pk == "" {
		paginator := dynamodb.NewScanPaginator(t.client, &dynamodb.ScanInput{TableName: &t.name, Select: types.SelectCount})
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				return 0, fmt.Errorf("scan count failed: %w", err)
			}
			total += int(page.Count)
		}
		return total, nil
	}
	paginator := dynamodb.NewQueryPaginator(t.client, t.partitionQuery(pk, types.SelectCount))
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return 0, fmt.Errorf("query count failed: %w", err)
		}
		total += int(page.Count)
	}
	return total, nil
}

func (t *Table) partitionQuery(pk string, sel types.Select) *dynamodb.QueryInput {
	expr := AttrPartitionKey + " = :pk"
	return &dynamodb.QueryInput{
		TableName:                 &t.name,
		KeyConditionExpression:    &expr,
		ExpressionAttributeValues: map[string]types.AttributeValue{":pk": &types.AttributeValueMemberS{Value: pk}},
		ConsistentRead:            boolPtr(true),
		Select:                    sel,
	}
}

// Insert writes a new row with Version 1. It fails with ErrConflict if the key exists.
func (t *Table) Insert(ctx context.Context, rec Record) error {
	base := rec.Base()
	prevVersion, prevTS := base.Version, base.Timestamp
	base.Version = 1
	base.Timestamp = time.Now().UTC()

	cond := "attribute_not_exists(" + AttrPartitionKey + ")"
	if err := t.put(ctx, rec, &cond, nil); err != nil {
		base.Version, base.Timestamp = prevVersion, prevTS
		return err
	}
	return nil
}

// Replace overwrites a row only if its stored Version still equals rec's Version.
// On success rec carries the new Version.
func (t *Table) Replace(ctx context.Context, rec Record) error {
	base := rec.Base()
	expected, prevTS := base.Version, base.Timestamp
	base.Version = expected + 1
	base.Timestamp = time.Now().UTC()

	cond := AttrVersion + " = :expected"
	values := map[string]types.AttributeValue{
		":expected": &types.AttributeValueMemberN{Value: strconv.FormatInt(expected, 10)},
	}
	if err := t.put(ctx, rec, &cond, values); err != nil {
		base.Version, base.Timestamp = expected, prevTS
		return err
	}
	return nil
}

func (t *Table) put(ctx context.Context, rec Record, cond *string, values map[string]types.AttributeValue) error {
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("marshal item: %w", err)
	}
	_, err = t.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 &t.name,
		Item:                      item,
		ConditionExpression:       cond,
		ExpressionAttributeValues: values,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrConflict
		}
		return fmt.Errorf("dynamodb PutItem %s failed: %w", t.name, err)
	}
	return nil
}

// Delete removes a row. It returns ErrNotFound when nothing was deleted.
func (t *Table) Delete(ctx context.Context, pk, rk string) error {
	out, err := t.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    &t.name,
		Key:          keyOf(pk, rk),
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return fmt.Errorf("dynamodb DeleteItem %s failed: %w", t.name, err)
	}
	if len(out.Attributes) == 0 {
		return ErrNotFound
	}
	return nil
}

func boolPtr(b bool) *bool { return &b }
