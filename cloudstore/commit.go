package cloudstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DDBClient is the subset of *dynamodb.Client CommitStore needs.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// ErrConcurrentCommit is returned by Commit when another writer published a
// version first.
var ErrConcurrentCommit = errors.New("cloudstore: concurrent commit detected")

// CommitStore layers an atomic "which segstore file is current" pointer on
// top of a Store. Segstore files are themselves written once and never
// mutated in place — republishing a dataset means saving a new file under a
// new name and then committing a pointer to it. This is an optional,
// disabled-by-default convenience for callers who want multiple writers to
// coordinate; nothing in this package requires it.
//
// Table schema: partition key base_uri (S), sort key version (N).
type CommitStore struct {
	blobs     Store
	ddb       DDBClient
	tableName string
	baseURI   string
}

// NewCommitStore returns a CommitStore. baseURI identifies this dataset's
// partition in the table (e.g. the bucket+prefix backing blobs).
func NewCommitStore(blobs Store, ddb DDBClient, tableName, baseURI string) *CommitStore {
	return &CommitStore{blobs: blobs, ddb: ddb, tableName: tableName, baseURI: baseURI}
}

// Current returns the name of the currently committed segstore file, or
// ErrNotFound if nothing has been committed yet.
func (c *CommitStore) Current(ctx context.Context) (string, error) {
	_, name, err := c.latest(ctx)
	if err != nil {
		return "", err
	}
	if name == "" {
		return "", ErrNotFound
	}
	return name, nil
}

// Commit atomically advances the pointer to name, provided no other writer
// has committed a newer version in the meantime.
func (c *CommitStore) Commit(ctx context.Context, name string) error {
	version, _, err := c.latest(ctx)
	if err != nil {
		return err
	}
	newVersion := version + 1

	_, err = c.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item: map[string]types.AttributeValue{
			"base_uri": &types.AttributeValueMemberS{Value: c.baseURI},
			"version":  &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", newVersion)},
			"name":     &types.AttributeValueMemberS{Value: name},
		},
		ConditionExpression: aws.String("attribute_not_exists(version)"),
	})
	if err != nil {
		var cond *types.ConditionalCheckFailedException
		if errors.As(err, &cond) {
			return ErrConcurrentCommit
		}
		return fmt.Errorf("cloudstore: commit: %w", err)
	}
	return nil
}

func (c *CommitStore) latest(ctx context.Context) (version uint64, name string, err error) {
	resp, err := c.ddb.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		KeyConditionExpression: aws.String("base_uri = :uri"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uri": &types.AttributeValueMemberS{Value: c.baseURI},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return 0, "", fmt.Errorf("cloudstore: query commit table: %w", err)
	}
	if len(resp.Items) == 0 {
		return 0, "", nil
	}

	item := resp.Items[0]
	versionAttr, ok := item["version"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, "", errors.New("cloudstore: invalid version attribute")
	}
	nameAttr, ok := item["name"].(*types.AttributeValueMemberS)
	if !ok {
		return 0, "", errors.New("cloudstore: invalid name attribute")
	}
	if _, err := fmt.Sscanf(versionAttr.Value, "%d", &version); err != nil {
		return 0, "", fmt.Errorf("cloudstore: parse version: %w", err)
	}
	return version, nameAttr.Value, nil
}
