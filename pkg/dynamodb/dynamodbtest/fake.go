// Package dynamodbtest provides an in-memory stand-in for the DynamoDB calls made by
// dynamodb.Table, for use in tests.
package dynamodbtest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type item = map[string]types.AttributeValue

// Fake implements dynamodb.API over in-memory tables. It understands the key and
// condition expressions that dynamodb.Table issues and nothing more.
type Fake struct {
	mu     sync.Mutex
	tables map[string]map[string]item

	// PutHook, when set, runs before every PutItem. A non-nil error fails the call.
	PutHook func(table string, it map[string]types.AttributeValue) error
	Puts    int
	Deletes int
}

func NewFake() *Fake {
	return &Fake{tables: make(map[string]map[string]item)}
}

func str(av types.AttributeValue) string {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return v.Value
	case *types.AttributeValueMemberN:
		return v.Value
	}
	return ""
}

func rowID(it item) string {
	return str(it["PartitionKey"]) + "\x00" + str(it["RowKey"])
}

func (f *Fake) table(name string) map[string]item {
	t, ok := f.tables[name]
	if !ok {
		t = make(map[string]item)
		f.tables[name] = t
	}
	return t
}

// Len returns the number of rows stored in a table.
func (f *Fake) Len(table string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tables[table])
}

func (f *Fake) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	it, ok := f.table(aws.ToString(in.TableName))[rowID(in.Key)]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: copyItem(it)}, nil
}

func (f *Fake) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	name := aws.ToString(in.TableName)
	if f.PutHook != nil {
		if err := f.PutHook(name, in.Item); err != nil {
			return nil, err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.table(name)
	id := rowID(in.Item)
	existing, exists := t[id]

	switch cond := aws.ToString(in.ConditionExpression); {
	case cond == "":
	case strings.HasPrefix(cond, "attribute_not_exists("):
		if exists {
			return nil, conditionFailed()
		}
	case strings.HasPrefix(cond, "Version = "):
		placeholder := strings.TrimSpace(strings.TrimPrefix(cond, "Version = "))
		if !exists || str(existing["Version"]) != str(in.ExpressionAttributeValues[placeholder]) {
			return nil, conditionFailed()
		}
	default:
		return nil, fmt.Errorf("dynamodbtest: unsupported condition %q", cond)
	}

	t[id] = copyItem(in.Item)
	f.Puts++
	return &dynamodb.PutItemOutput{}, nil
}

func (f *Fake) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.table(aws.ToString(in.TableName))
	id := rowID(in.Key)
	old, ok := t[id]
	if !ok {
		return &dynamodb.DeleteItemOutput{}, nil
	}
	delete(t, id)
	f.Deletes++
	return &dynamodb.DeleteItemOutput{Attributes: old}, nil
}

func (f *Fake) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	pk := str(in.ExpressionAttributeValues[":pk"])
	items := f.matching(aws.ToString(in.TableName), func(it item) bool { return str(it["PartitionKey"]) == pk })
	if in.Select == types.SelectCount {
		return &dynamodb.QueryOutput{Count: int32(len(items))}, nil
	}
	return &dynamodb.QueryOutput{Items: items, Count: int32(len(items))}, nil
}

func (f *Fake) Scan(ctx context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	items := f.matching(aws.ToString(in.TableName), func(item) bool { return true })
	if in.Select == types.SelectCount {
		return &dynamodb.ScanOutput{Count: int32(len(items))}, nil
	}
	return &dynamodb.ScanOutput{Items: items, Count: int32(len(items))}, nil
}

func (f *Fake) matching(table string, keep func(item) bool) []item {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.table(table)
	ids := make([]string, 0, len(t))
	for id, it := range t {
		if keep(it) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	out := make([]item, 0, len(ids))
	for _, id := range ids {
		out = append(out, copyItem(t[id]))
	}
	return out
}

func copyItem(it item) item {
	out := make(item, len(it))
	for k, v := range it {
		out[k] = v
	}
	return out
}

func conditionFailed() error {
	return &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
}
