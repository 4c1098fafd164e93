package database

import (
	"context"
	"testing"
	"time"

	"example.com/sttpipeline/internal/types"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
)

type fakeDynamo struct {
	dynamodbiface.DynamoDBAPI
	items   map[string]map[string]*dynamodb.AttributeValue
	updates []*dynamodb.UpdateItemInput
}

func (f *fakeDynamo) PutItemWithContext(ctx aws.Context, in *dynamodb.PutItemInput, opts ...request.Option) (*dynamodb.PutItemOutput, error) {
	f.items[*in.Item["file_id"].S] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) UpdateItemWithContext(ctx aws.Context, in *dynamodb.UpdateItemInput, opts ...request.Option) (*dynamodb.UpdateItemOutput, error) {
	f.updates = append(f.updates, in)
	return &dynamodb.UpdateItemOutput{}, nil
}

func (f *fakeDynamo) GetItemWithContext(ctx aws.Context, in *dynamodb.GetItemInput, opts ...request.Option) (*dynamodb.GetItemOutput, error) {
	return &dynamodb.GetItemOutput{Item: f.items[*in.Key["file_id"].S]}, nil
}

func newLedger() (*DynamoLedger, *fakeDynamo) {
	db := &fakeDynamo{items: make(map[string]map[string]*dynamodb.AttributeValue)}
	l := NewDynamoLedger(db, "jobs")
	l.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	return l, db
}

func TestCreateAndGet(t *testing.T) {
	l, _ := newLedger()
	ctx := context.Background()
	err := l.Create(ctx, types.JobRecord{FileID: "123", FileName: "meeting.mp3", RunID: "run-1", JobStatus: types.StatusAccepted})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	rec, err := l.Get(ctx, "123")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.FileName != "meeting.mp3" || rec.RunID != "run-1" || rec.JobStatus != "accepted" {
		t.Fatalf("record = %+v", rec)
	}
	if rec.UpdatedAt != "2024-01-02T03:04:05Z" {
		t.Fatalf("updated_at = %q", rec.UpdatedAt)
	}
}

func TestGetMissing(t *testing.T) {
	l, _ := newLedger()
	if _, err := l.Get(context.Background(), "nope"); err != ErrNoRecord {
		t.Fatalf("err = %v, want ErrNoRecord", err)
	}
}

func TestSetStatus(t *testing.T) {
	l, db := newLedger()
	if err := l.SetStatus(context.Background(), "123", types.StatusFailed, "status: failed"); err != nil {
		t.Fatalf("set status: %v", err)
	}
	if len(db.updates) != 1 {
		t.Fatalf("updates = %d", len(db.updates))
	}
	in := db.updates[0]
	if *in.Key["file_id"].S != "123" || *in.ExpressionAttributeValues[":s"].S != "failed" || *in.TableName != "jobs" {
		t.Fatalf("update = %+v", in)
	}
}
