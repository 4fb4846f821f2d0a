// Package credentials glues the config store, chain resolver, credential
// cache, MFA provider and STS invoker into the end-to-end resolution flow:
// one call in, the target profile's session credentials out.
package credentials

import (
	"context"
	"fmt"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/stscreds/assume-role/internal/cache"
	"github.com/stscreds/assume-role/internal/chain"
	"github.com/stscreds/assume-role/internal/config"
	"github.com/stscreds/assume-role/internal/mfa"
	"github.com/stscreds/assume-role/internal/sts"
)

// Driver walks a resolution chain hop by hop. Hops are inherently
// sequential: each hop signs with the previous hop's output.
type Driver struct {
	Store   *config.Store
	Cache   *cache.Store
	Invoker *sts.Invoker

	// MFAProvider picks the code source for a hop that requires MFA.
	// Injected so tests stay prompt-free.
	MFAProvider func(hop config.Profile) mfa.Provider

	// PreferEnv seeds hop 0 from the process environment even when the
	// base profile carries static keys.
	PreferEnv bool

	Verbose bool
}

// Resolve obtains session credentials for the target profile. Cached hops
// are reused as signing identities without touching STS; forceRefresh evicts
// each hop's entry first so the whole chain is re-fetched.
func (d *Driver) Resolve(ctx context.Context, target string, forceRefresh bool) (cache.Credentials, error) {
	hops, err := chain.Resolve(target, d.Store.Profiles, d.Store.Settings.HopLimit())
	if err != nil {
		return cache.Credentials{}, err
	}

	current, err := d.baseCredentials(ctx, hops[0])
	if err != nil {
		return cache.Credentials{}, d.hopError(hops[0], 0, len(hops), err)
	}

	for i, hop := range hops[1:] {
		position := i + 1

		sig := cache.Signature(hop.Name, hop.RoleArn, hop.ExternalID, hop.MFASerial != "", hop.Duration())
		if forceRefresh {
			if err := d.Cache.Invalidate(sig); err != nil {
				return cache.Credentials{}, d.hopError(hop, position, len(hops), err)
			}
		}

		if cached, ok := d.Cache.Get(sig); ok {
			if d.Verbose {
				fmt.Fprintf(os.Stderr, "# Reusing cached session for profile %s (expires %s)\n", hop.Name, cached.Expiration)
			}
			current = *cached
			continue
		}

		var code string
		if hop.MFASerial != "" {
			code, err = d.MFAProvider(hop).Provide(hop.MFASerial)
			if err != nil {
				return cache.Credentials{}, d.hopError(hop, position, len(hops), err)
			}
		}

		if d.Verbose {
			fmt.Fprintf(os.Stderr, "# Assuming %s via profile %s\n", hop.RoleArn, hop.SourceProfile)
		}
		creds, err := d.Invoker.Assume(ctx, hop, current, code)
		if err != nil {
			return cache.Credentials{}, d.hopError(hop, position, len(hops), err)
		}

		if err := d.Cache.Put(sig, creds); err != nil {
			// A failed cache write costs a future round-trip, not correctness
			fmt.Fprintf(os.Stderr, "# Warning: could not cache session for profile %s: %v\n", hop.Name, err)
		}
		current = creds
	}

	return current, nil
}

// baseCredentials seeds the chain from the base profile's static keys, the
// process environment, or the SDK's default chain for that profile. No STS
// call is made for this hop.
func (d *Driver) baseCredentials(ctx context.Context, base config.Profile) (cache.Credentials, error) {
	if d.PreferEnv {
		creds, ok := envCredentials()
		if !ok {
			return cache.Credentials{}, fmt.Errorf("--env requested but AWS_ACCESS_KEY_ID is not set")
		}
		return creds, nil
	}

	if base.HasStaticCredentials() {
		return cache.Credentials{
			AccessKeyID:     base.AccessKeyID,
			SecretAccessKey: base.SecretAccessKey,
			SessionToken:    base.SessionToken,
		}, nil
	}

	if creds, ok := envCredentials(); ok {
		return creds, nil
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithSharedConfigProfile(base.Name))
	if err != nil {
		return cache.Credentials{}, fmt.Errorf("loading credentials for base profile: %w", err)
	}
	creds, err := cfg.Credentials.Retrieve(ctx)
	if err != nil {
		return cache.Credentials{}, fmt.Errorf("no usable credentials for base profile: %w", err)
	}

	return cache.Credentials{
		AccessKeyID:     creds.AccessKeyID,
		SecretAccessKey: creds.SecretAccessKey,
		SessionToken:    creds.SessionToken,
		Expiration:      creds.Expires,
	}, nil
}

// envCredentials reads the signing identity from the process environment
func envCredentials() (cache.Credentials, bool) {
	key := os.Getenv("AWS_ACCESS_KEY_ID")
	if key == "" {
		return cache.Credentials{}, false
	}
	return cache.Credentials{
		AccessKeyID:     key,
		SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
	}, true
}

func (d *Driver) hopError(hop config.Profile, position, total int, err error) error {
	if position == 0 {
		return fmt.Errorf("resolving base profile %q: %w", hop.Name, err)
	}
	return fmt.Errorf("assuming role for profile %q (hop %d of %d): %w", hop.Name, position, total, err)
}
