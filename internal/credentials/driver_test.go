package credentials

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssts "github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/aws-sdk-go-v2/service/sts/types"
	"github.com/aws/smithy-go"

	"github.com/stscreds/assume-role/internal/cache"
	"github.com/stscreds/assume-role/internal/config"
	"github.com/stscreds/assume-role/internal/mfa"
	"github.com/stscreds/assume-role/internal/sts"
)

// fakeSTS issues per-role scripted credentials and records every call
type fakeSTS struct {
	calls       []string
	signingKeys []string
	expirations map[string]time.Time
	failWith    map[string]error
}

func (f *fakeSTS) api(upstream cache.Credentials) sts.API {
	return &fakeSTSConn{parent: f, upstream: upstream}
}

type fakeSTSConn struct {
	parent   *fakeSTS
	upstream cache.Credentials
}

func (c *fakeSTSConn) AssumeRole(_ context.Context, input *awssts.AssumeRoleInput, _ ...func(*awssts.Options)) (*awssts.AssumeRoleOutput, error) {
	role := aws.ToString(input.RoleArn)
	c.parent.calls = append(c.parent.calls, role)
	c.parent.signingKeys = append(c.parent.signingKeys, c.upstream.AccessKeyID)

	if err := c.parent.failWith[role]; err != nil {
		return nil, err
	}

	expiration, ok := c.parent.expirations[role]
	if !ok {
		expiration = time.Now().Add(time.Hour)
	}
	return &awssts.AssumeRoleOutput{
		Credentials: &types.Credentials{
			AccessKeyId:     aws.String("AKIA-" + role),
			SecretAccessKey: aws.String("secret-" + role),
			SessionToken:    aws.String("token-" + role),
			Expiration:      &expiration,
		},
	}, nil
}

const (
	midRole    = "arn:aws:iam::111111111111:role/Mid"
	targetRole = "arn:aws:iam::222222222222:role/Target"
	mfaSerial  = "arn:aws:iam::111111111111:mfa/user"
)

func testStore() *config.Store {
	return &config.Store{
		Profiles: map[string]config.Profile{
			"base": {Name: "base", AccessKeyID: "AKIA-base", SecretAccessKey: "s", Region: "eu-west-1"},
			"mid":  {Name: "mid", RoleArn: midRole, SourceProfile: "base"},
			"target": {
				Name:          "target",
				RoleArn:       targetRole,
				SourceProfile: "mid",
				MFASerial:     mfaSerial,
			},
		},
	}
}

type countingMFA struct {
	code  string
	calls int
}

func (m *countingMFA) Provide(string) (string, error) {
	m.calls++
	return m.code, nil
}

func newDriver(t *testing.T, fake *fakeSTS, provider mfa.Provider) *Driver {
	t.Helper()
	store := testStore()
	return &Driver{
		Store: store,
		Cache: cache.New(filepath.Join(t.TempDir(), "cache.json"), time.Minute),
		Invoker: &sts.Invoker{
			NewAPI:          func(_ string, upstream cache.Credentials) sts.API { return fake.api(upstream) },
			MaxAttempts:     2,
			InitialInterval: time.Millisecond,
		},
		MFAProvider: func(config.Profile) mfa.Provider { return provider },
	}
}

func TestResolveFullChain(t *testing.T) {
	fake := &fakeSTS{}
	provider := &countingMFA{code: "123456"}
	driver := newDriver(t, fake, provider)

	creds, err := driver.Resolve(context.Background(), "target", false)
	if err != nil {
		t.Fatalf("Resolve() unexpected error: %v", err)
	}

	if len(fake.calls) != 2 {
		t.Fatalf("AssumeRole calls = %v, want [mid target]", fake.calls)
	}
	if fake.calls[0] != midRole || fake.calls[1] != targetRole {
		t.Errorf("hops out of order: %v", fake.calls)
	}
	// Each hop signs with the previous hop's output
	if fake.signingKeys[0] != "AKIA-base" {
		t.Errorf("mid hop signed with %q, want base credentials", fake.signingKeys[0])
	}
	if fake.signingKeys[1] != "AKIA-"+midRole {
		t.Errorf("target hop signed with %q, want mid's output", fake.signingKeys[1])
	}
	if provider.calls != 1 {
		t.Errorf("MFA provider calls = %d, want 1 (only target has mfa_serial)", provider.calls)
	}
	if creds.AccessKeyID != "AKIA-"+targetRole {
		t.Errorf("final credentials = %q, want target's", creds.AccessKeyID)
	}

	// The cache entry for target carries the STS-reported expiration
	sig := cache.Signature("target", targetRole, "", true, 3600)
	cached, ok := driver.Cache.Get(sig)
	if !ok {
		t.Fatal("target's session should be cached")
	}
	if !cached.Expiration.Equal(creds.Expiration) {
		t.Errorf("cached expiration = %v, want %v", cached.Expiration, creds.Expiration)
	}
}

func TestResolveReusesCache(t *testing.T) {
	fake := &fakeSTS{}
	provider := &countingMFA{code: "123456"}
	driver := newDriver(t, fake, provider)

	if _, err := driver.Resolve(context.Background(), "target", false); err != nil {
		t.Fatal(err)
	}
	if _, err := driver.Resolve(context.Background(), "target", false); err != nil {
		t.Fatal(err)
	}

	if len(fake.calls) != 2 {
		t.Errorf("second run should hit the cache for both hops, calls = %v", fake.calls)
	}
	if provider.calls != 1 {
		t.Errorf("cached hops must not prompt for MFA again, provider calls = %d", provider.calls)
	}
}

func TestResolvePartialCacheExpiry(t *testing.T) {
	// Only mid's session is cached and valid; target must be re-fetched
	// using mid's cached output as the signing identity.
	fake := &fakeSTS{}
	provider := &countingMFA{code: "123456"}
	driver := newDriver(t, fake, provider)

	sigMid := cache.Signature("mid", midRole, "", false, 3600)
	if err := driver.Cache.Put(sigMid, cache.Credentials{
		AccessKeyID:     "AKIA-" + midRole,
		SecretAccessKey: "s",
		SessionToken:    "t",
		Expiration:      time.Now().Add(2 * time.Hour),
	}); err != nil {
		t.Fatal(err)
	}

	if _, err := driver.Resolve(context.Background(), "target", false); err != nil {
		t.Fatal(err)
	}

	if len(fake.calls) != 1 || fake.calls[0] != targetRole {
		t.Fatalf("only target should be re-fetched, calls = %v", fake.calls)
	}
	if fake.signingKeys[0] != "AKIA-"+midRole {
		t.Errorf("target must sign with mid's cached output, signed with %q", fake.signingKeys[0])
	}
}

func TestResolveForceRefresh(t *testing.T) {
	fake := &fakeSTS{}
	provider := &countingMFA{code: "123456"}
	driver := newDriver(t, fake, provider)

	if _, err := driver.Resolve(context.Background(), "target", false); err != nil {
		t.Fatal(err)
	}
	if _, err := driver.Resolve(context.Background(), "target", true); err != nil {
		t.Fatal(err)
	}

	if len(fake.calls) != 4 {
		t.Errorf("forced refresh should re-fetch every hop, calls = %v", fake.calls)
	}
}

func TestResolveBaseProfileOnly(t *testing.T) {
	fake := &fakeSTS{}
	driver := newDriver(t, fake, &countingMFA{})

	creds, err := driver.Resolve(context.Background(), "base", false)
	if err != nil {
		t.Fatalf("Resolve() unexpected error: %v", err)
	}
	if len(fake.calls) != 0 {
		t.Errorf("a base target must not call STS, calls = %v", fake.calls)
	}
	if creds.AccessKeyID != "AKIA-base" {
		t.Errorf("credentials = %q, want the base profile's static keys", creds.AccessKeyID)
	}
}

func TestResolveHopErrorNamesProfile(t *testing.T) {
	fake := &fakeSTS{failWith: map[string]error{
		targetRole: &smithy.GenericAPIError{
			Code:    "AccessDenied",
			Message: "MultiFactorAuthentication failed with invalid MFA one time pass code.",
		},
	}}
	driver := newDriver(t, fake, &countingMFA{code: "000000"})

	_, err := driver.Resolve(context.Background(), "target", false)
	if err == nil {
		t.Fatal("Resolve() should surface the hop failure")
	}
	msg := err.Error()
	if !strings.Contains(msg, `"target"`) {
		t.Errorf("error should name the failing profile, got: %s", msg)
	}
	if !strings.Contains(msg, "hop 2 of 3") {
		t.Errorf("error should identify the hop position, got: %s", msg)
	}
	if !strings.Contains(msg, "MFA code rejected") {
		t.Errorf("error should carry the underlying cause, got: %s", msg)
	}
}

func TestResolveMFAFailureAborts(t *testing.T) {
	fake := &fakeSTS{}
	driver := newDriver(t, fake, &countingMFA{})
	driver.MFAProvider = func(config.Profile) mfa.Provider {
		return failingMFA{}
	}

	_, err := driver.Resolve(context.Background(), "target", false)
	if !errors.Is(err, mfa.ErrUserCancelled) {
		t.Fatalf("Resolve() error = %v, want ErrUserCancelled", err)
	}
	// mid was already assumed before the MFA prompt; target must not be
	for _, call := range fake.calls {
		if call == targetRole {
			t.Error("target must not be assumed after a cancelled MFA prompt")
		}
	}
}

type failingMFA struct{}

func (failingMFA) Provide(string) (string, error) { return "", mfa.ErrUserCancelled }

func TestResolvePreferEnv(t *testing.T) {
	fake := &fakeSTS{}
	driver := newDriver(t, fake, &countingMFA{code: "123456"})
	driver.PreferEnv = true
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIA-env")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "env-secret")
	t.Setenv("AWS_SESSION_TOKEN", "")

	if _, err := driver.Resolve(context.Background(), "target", false); err != nil {
		t.Fatalf("Resolve() unexpected error: %v", err)
	}
	// base carries static keys, but --env seeds hop 0 from the environment
	if fake.signingKeys[0] != "AKIA-env" {
		t.Errorf("first hop signed with %q, want the environment key", fake.signingKeys[0])
	}
}

func TestResolvePreferEnvWithoutEnvironment(t *testing.T) {
	fake := &fakeSTS{}
	driver := newDriver(t, fake, &countingMFA{code: "123456"})
	driver.PreferEnv = true
	t.Setenv("AWS_ACCESS_KEY_ID", "")

	_, err := driver.Resolve(context.Background(), "target", false)
	if err == nil || !strings.Contains(err.Error(), "AWS_ACCESS_KEY_ID") {
		t.Fatalf("Resolve() error = %v, want a missing AWS_ACCESS_KEY_ID complaint", err)
	}
	if len(fake.calls) != 0 {
		t.Errorf("no hop should be assumed without base credentials, calls = %v", fake.calls)
	}
}
