package sts

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/aws/smithy-go"
)

// ErrRetriesExhausted wraps the last retryable error once the attempt budget
// is spent.
var ErrRetriesExhausted = errors.New("retries exhausted")

// retryableCodes are STS failures worth another attempt: throttling and
// service-side hiccups.
var retryableCodes = map[string]bool{
	"Throttling":               true,
	"ThrottlingException":      true,
	"TooManyRequestsException": true,
	"RequestLimitExceeded":     true,
	"ServiceUnavailable":       true,
	"InternalFailure":          true,
	"InternalError":            true,
	"InternalServiceError":     true,
	"RequestTimeout":           true,
}

// Retryable classifies an AssumeRole failure. Access denials, malformed
// ARNs, rejected MFA codes and expired upstream credentials are fatal:
// retrying cannot change the outcome, and a stale MFA code must not be
// resubmitted. Throttling, internal service errors and transient network
// failures are retryable.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return retryableCodes[apiErr.ErrorCode()]
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	errStr := err.Error()
	return strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "timeout")
}

// describe converts an AWS SDK error into a message that names the likely
// cause instead of echoing raw SDK noise.
func describe(err error, roleArn string) error {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return err
	}

	code := apiErr.ErrorCode()
	message := apiErr.ErrorMessage()

	switch code {
	case "AccessDenied", "AccessDeniedException":
		if strings.Contains(message, "MultiFactorAuthentication") {
			return errors.New("MFA code rejected by STS")
		}
		return errors.New("access denied: check the role trust policy and the signing identity's permissions")
	case "MalformedPolicyDocument":
		return errors.New("malformed policy document attached to the role")
	case "ValidationError":
		return errors.New("STS rejected the request: " + message)
	case "ExpiredToken", "ExpiredTokenException":
		return errors.New("upstream credentials have expired")
	case "InvalidClientTokenId":
		return errors.New("upstream credentials are not valid")
	case "RegionDisabledException":
		return errors.New("STS is not activated in the requested region")
	default:
		if message != "" {
			return errors.New("STS error [" + code + "]: " + message)
		}
		return errors.New("STS error [" + code + "] assuming " + roleArn)
	}
}
