package remote

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"

	"catalog-sync-service/internal/config"
	"catalog-sync-service/internal/logger"
)

// DynamoAPI is the subset of the DynamoDB client used by DynamoTable.
type DynamoAPI interface {
	dynamodb.ScanAPIClient
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// NewDynamoClient builds a client from the default AWS credential chain, or
// from static keys when both are configured. A non-empty endpoint points the
// client at DynamoDB Local or another compatible server.
func NewDynamoClient(ctx context.Context, cfg config.RemoteConfig) (*dynamodb.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	logger.Log.Info("DynamoDB client ready",
		zap.String("region", cfg.Region),
		zap.String("endpoint", cfg.Endpoint),
	)
	return client, nil
}

type DynamoTable struct {
	api  DynamoAPI
	name string
}

func NewDynamoTable(api DynamoAPI, name string) *DynamoTable {
	return &DynamoTable{api: api, name: name}
}

func (t *DynamoTable) Name() string {
	return t.name
}

func (t *DynamoTable) Ping(ctx context.Context) error {
	_, err := t.api.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(t.name)})
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnreachable, t.name, err)
	}
	return nil
}

func (t *DynamoTable) Put(ctx context.Context, item Item) error {
	_, err := t.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(t.name),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put into %s: %w", t.name, err)
	}
	return nil
}

func (t *DynamoTable) Delete(ctx context.Context, key Item) error {
	_, err := t.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(t.name),
		Key:       key,
	})
	if err != nil {
		return fmt.Errorf("delete from %s: %w", t.name, err)
	}
	return nil
}

func (t *DynamoTable) Scan(ctx context.Context) ([]Item, error) {
	paginator := dynamodb.NewScanPaginator(t.api, &dynamodb.ScanInput{
		TableName: aws.String(t.name),
	})

	var items []Item
	pages := 0
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan %s (page %d): %w", t.name, pages+1, err)
		}
		pages++
		items = append(items, page.Items...)
	}

	logger.Log.Debug("Scanned remote table",
		zap.String("table", t.name),
		zap.Int("pages", pages),
		zap.Int("items", len(items)),
	)
	return items, nil
}
