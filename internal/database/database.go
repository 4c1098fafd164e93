package database

import (
	"context"
	"time"

	"example.com/sttpipeline/internal/types"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/pkg/errors"
)

var ErrNoRecord = errors.New("database: no record")

// Ledger records job progress keyed by file ID. It is informational only:
// nothing in the pipeline reads it back to make decisions.
type Ledger interface {
	Create(ctx context.Context, rec types.JobRecord) error
	SetStatus(ctx context.Context, fileID, status, detail string) error
	Get(ctx context.Context, fileID string) (*types.JobRecord, error)
}

type DynamoLedger struct {
	svc   dynamodbiface.DynamoDBAPI
	table string
	now   func() time.Time
}

func NewDynamoLedger(svc dynamodbiface.DynamoDBAPI, table string) *DynamoLedger {
	return &DynamoLedger{svc: svc, table: table, now: time.Now}
}

func (l *DynamoLedger) stamp() string {
	return l.now().UTC().Format(time.RFC3339)
}

func (l *DynamoLedger) Create(ctx context.Context, rec types.JobRecord) error {
	rec.UpdatedAt = l.stamp()
	av, err := dynamodbattribute.MarshalMap(rec)
	if err != nil {
		return errors.Wrap(err, "marshal record")
	}
	_, err = l.svc.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		Item:      av,
		TableName: aws.String(l.table),
	})
	return errors.Wrapf(err, "put record %s", rec.FileID)
}

func (l *DynamoLedger) SetStatus(ctx context.Context, fileID, status, detail string) error {
	_, err := l.svc.UpdateItemWithContext(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(l.table),
		Key: map[string]*dynamodb.AttributeValue{
			"file_id": {S: aws.String(fileID)},
		},
		ExpressionAttributeNames: map[string]*string{
			"#d": aws.String("detail"),
		},
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":s": {S: aws.String(status)},
			":d": {S: aws.String(detail)},
			":u": {S: aws.String(l.stamp())},
		},
		UpdateExpression: aws.String("set job_status = :s, #d = :d, updated_at = :u"),
	})
	return errors.Wrapf(err, "set status of %s", fileID)
}

func (l *DynamoLedger) Get(ctx context.Context, fileID string) (*types.JobRecord, error) {
	out, err := l.svc.GetItemWithContext(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(l.table),
		Key: map[string]*dynamodb.AttributeValue{
			"file_id": {S: aws.String(fileID)},
		},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "get record %s", fileID)
	}
	if out.Item == nil {
		return nil, ErrNoRecord
	}
	rec := new(types.JobRecord)
	if err := dynamodbattribute.UnmarshalMap(out.Item, rec); err != nil {
		return nil, errors.Wrapf(err, "unmarshal record %s", fileID)
	}
	return rec, nil
}

// Nop is the ledger used when no table is configured.
type Nop struct{}

func (Nop) Create(context.Context, types.JobRecord) error            { return nil }
func (Nop) SetStatus(context.Context, string, string, string) error { return nil }
func (Nop) Get(context.Context, string) (*types.JobRecord, error)   { return nil, ErrNoRecord }
