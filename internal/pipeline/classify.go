package pipeline

import (
	"errors"
	"strings"

	"google.golang.org/genai"
)

// ErrorKind is the closed set of edit failure categories surfaced to the
// user, each with its own remedy text.
type ErrorKind string

const (
	KindQuotaExhausted    ErrorKind = "quota_exhausted"
	KindRateLimited       ErrorKind = "rate_limited"
	KindInvalidCredential ErrorKind = "invalid_credential"
	KindUnknown           ErrorKind = "unknown"
)

// Remedy text per failure kind. The invalid-credential case passes the raw
// message through instead (it already names the actionable problem).
const (
	quotaRemedy = "API quota exceeded. The free tier limit has been reached. " +
		"Please try again in a few minutes, or upgrade your API key at Google AI Studio. " +
		"Free tier: 60 requests per minute."
	rateLimitRemedy = "Rate limit reached. Too many requests — please wait a moment and try again."
	unknownRemedy   = "Failed to apply style. Please try again."
)

// Classification is the user-facing view of a failed edit.
type Classification struct {
	Kind ErrorKind `json:"kind"`
	// Message is the remedy text shown to the user.
	Message string `json:"message"`
	// Detail is the raw service error, logged but only shown for credential
	// failures (where the raw message is the remedy).
	Detail string `json:"-"`
}

// Classify maps a raw service failure onto the closed error taxonomy.
//
// Ordering matters and is part of the contract: quota and rate-limit markers
// are checked before the credential fallback, because quota messages often
// also carry generic numeric codes that would otherwise misclassify.
func Classify(err error) Classification {
	if err == nil {
		return Classification{}
	}

	detail := err.Error()
	lower := strings.ToLower(detail)

	var apiErr *genai.APIError
	hasAPIErr := errors.As(err, &apiErr)

	switch {
	case strings.Contains(detail, "RESOURCE_EXHAUSTED") ||
		strings.Contains(lower, "quota") ||
		(hasAPIErr && apiErr.Status == "RESOURCE_EXHAUSTED"):
		return Classification{Kind: KindQuotaExhausted, Message: quotaRemedy, Detail: detail}

	case strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "429") ||
		(hasAPIErr && apiErr.Code == 429):
		return Classification{Kind: KindRateLimited, Message: rateLimitRemedy, Detail: detail}

	case strings.Contains(lower, "api key") ||
		strings.Contains(lower, "api_key_invalid") ||
		strings.Contains(lower, "permission denied"):
		// Pass the original message through: it names the credential problem.
		return Classification{Kind: KindInvalidCredential, Message: detail, Detail: detail}

	default:
		return Classification{Kind: KindUnknown, Message: unknownRemedy, Detail: detail}
	}
}
