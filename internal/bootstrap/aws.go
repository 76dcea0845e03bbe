// NovaTune - Self-Hosted Audio Streaming Platform
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/novatune/backend

package bootstrap

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/novatune/backend/internal/config"
)

// NewDynamoDBClient loads the default AWS credential chain and returns a
// client pointed at cfg.Endpoint when set, for local DynamoDB-compatible
// testing against a self-hosted deployment without a real AWS account.
func NewDynamoDBClient(ctx context.Context, cfg config.DynamoDBConfig) (*dynamodb.Client, error) {
	awsCfg, err := loadAWSConfig(ctx, cfg.Region, cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: load aws config for dynamodb: %w", err)
	}
	opts := []func(*dynamodb.Options){}
	if cfg.Endpoint != "" {
		opts = append(opts, func(o *dynamodb.Options) { o.BaseEndpoint = &cfg.Endpoint })
	}
	return dynamodb.NewFromConfig(awsCfg, opts...), nil
}

// NewS3Client loads the default AWS credential chain and returns a client
// pointed at cfg.Endpoint when set, path-style addressed when
// cfg.ForcePathStyle is true (required by most self-hosted S3-compatible
// object stores, e.g. MinIO).
func NewS3Client(ctx context.Context, cfg config.S3Config) (*s3.Client, error) {
	awsCfg, err := loadAWSConfig(ctx, cfg.Region, cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: load aws config for s3: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = &cfg.Endpoint
		}
		o.UsePathStyle = cfg.ForcePathStyle
	}), nil
}

func loadAWSConfig(ctx context.Context, region, endpoint string) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if endpoint != "" {
		// Self-hosted deployments pointing at a local DynamoDB/S3-compatible
		// endpoint rarely have real AWS credentials configured; static
		// placeholder creds satisfy SigV4 signing without requiring one.
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("local", "local", ""),
		))
	}
	return awsconfig.LoadDefaultConfig(ctx, opts...)
}
