// Package sts executes individual AssumeRole hops against AWS STS, retrying
// transient failures with exponential backoff and jitter while surfacing
// fatal failures immediately.
package sts

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/cenkalti/backoff/v4"

	"github.com/stscreds/assume-role/internal/cache"
	"github.com/stscreds/assume-role/internal/config"
)

const (
	defaultMaxAttempts     = 4
	defaultInitialInterval = 500 * time.Millisecond
)

// Invoker executes one AssumeRole call per hop. It keeps no local state:
// caching is the caller's concern, so the invoker stays a pure function of
// its inputs plus network I/O.
type Invoker struct {
	// NewAPI builds the wire client for a hop's region and signing identity.
	// Tests replace it with a scripted stub.
	NewAPI func(region string, upstream cache.Credentials) API

	// MaxAttempts caps total attempts per hop, retries included.
	MaxAttempts int
	// InitialInterval seeds the exponential backoff; jitter is applied on top.
	InitialInterval time.Duration

	Verbose bool
}

// NewInvoker returns an Invoker wired to the real STS client with retry
// knobs taken from settings where set.
func NewInvoker(settings config.Settings, verbose bool) *Invoker {
	inv := &Invoker{NewAPI: NewAPI, Verbose: verbose}
	if settings.RetryMaxAttempts > 0 {
		inv.MaxAttempts = settings.RetryMaxAttempts
	}
	if settings.RetryInitialDelay != "" {
		if d, err := time.ParseDuration(settings.RetryInitialDelay); err == nil {
			inv.InitialInterval = d
		}
	}
	return inv
}

// Assume performs the hop's AssumeRole call using upstream as the signing
// identity. Retryable failures back off exponentially with jitter until the
// attempt budget runs out; fatal failures return at once.
func (iv *Invoker) Assume(ctx context.Context, hop config.Profile, upstream cache.Credentials, mfaCode string) (cache.Credentials, error) {
	api := iv.NewAPI(hop.Region, upstream)

	input := &sts.AssumeRoleInput{
		RoleArn:         aws.String(hop.RoleArn),
		RoleSessionName: aws.String(fmt.Sprintf("assume-role-%d-session", time.Now().UnixMilli())),
		DurationSeconds: aws.Int32(int32(hop.Duration())),
	}
	if hop.ExternalID != "" {
		input.ExternalId = aws.String(hop.ExternalID)
	}
	if hop.MFASerial != "" && mfaCode != "" {
		input.SerialNumber = aws.String(hop.MFASerial)
		input.TokenCode = aws.String(mfaCode)
	}

	var out *sts.AssumeRoleOutput
	attempt := 0
	operation := func() error {
		attempt++
		var err error
		out, err = api.AssumeRole(ctx, input)
		if err == nil {
			return nil
		}
		if !Retryable(err) {
			return backoff.Permanent(describe(err, hop.RoleArn))
		}
		if iv.Verbose {
			fmt.Fprintf(os.Stderr, "# Attempt %d for %s failed, backing off: %v\n", attempt, hop.RoleArn, err)
		}
		return err
	}

	policy := iv.backoffPolicy(ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		if Retryable(err) {
			return cache.Credentials{}, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempt, err)
		}
		return cache.Credentials{}, err
	}

	if out.Credentials == nil || out.Credentials.Expiration == nil {
		return cache.Credentials{}, fmt.Errorf("STS returned no credentials for %s", hop.RoleArn)
	}

	return cache.Credentials{
		AccessKeyID:     aws.ToString(out.Credentials.AccessKeyId),
		SecretAccessKey: aws.ToString(out.Credentials.SecretAccessKey),
		SessionToken:    aws.ToString(out.Credentials.SessionToken),
		Expiration:      out.Credentials.Expiration.UTC(),
	}, nil
}

func (iv *Invoker) backoffPolicy(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = defaultInitialInterval
	if iv.InitialInterval > 0 {
		b.InitialInterval = iv.InitialInterval
	}

	attempts := defaultMaxAttempts
	if iv.MaxAttempts > 0 {
		attempts = iv.MaxAttempts
	}

	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)
}
