package sts

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/stscreds/assume-role/internal/cache"
)

// API is the slice of the STS surface the invoker needs. The real
// sts.Client satisfies it; tests script it.
type API interface {
	AssumeRole(ctx context.Context, params *sts.AssumeRoleInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleOutput, error)
}

// NewAPI builds an STS client that signs with the given upstream session
// credentials. Each hop needs its own client because the signing identity
// changes per hop.
func NewAPI(region string, upstream cache.Credentials) API {
	if region == "" {
		region = "us-east-1"
	}

	cfg := aws.Config{
		Region: region,
		Credentials: credentials.NewStaticCredentialsProvider(
			upstream.AccessKeyID,
			upstream.SecretAccessKey,
			upstream.SessionToken,
		),
	}
	return sts.NewFromConfig(cfg)
}
