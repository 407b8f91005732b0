package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/aws/smithy-go"
)

// WebhookURLKey is the JSON key inside the secret that holds the Slack webhook URL.
const WebhookURLKey = "anomaly-detection-slack-webhook-url"

var (
	// ErrSecretUnavailable is returned when Secrets Manager cannot return the secret.
	ErrSecretUnavailable = errors.New("secret unavailable")

	// ErrMalformedSecret is returned when the secret value does not carry a webhook URL.
	ErrMalformedSecret = errors.New("malformed secret")
)

// GetSecretValueAPI is the subset of the Secrets Manager client used here.
type GetSecretValueAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// Resolver fetches the webhook URL from Secrets Manager. The secret is read
// on every call.
type Resolver struct {
	client     GetSecretValueAPI
	secretName string
}

// NewResolver creates a resolver for the named secret.
func NewResolver(client GetSecretValueAPI, secretName string) *Resolver {
	return &Resolver{client: client, secretName: secretName}
}

// ResolveWebhookURL reads the secret and returns the webhook URL stored under WebhookURLKey.
func (r *Resolver) ResolveWebhookURL(ctx context.Context) (string, error) {
	out, err := r.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(r.secretName),
	})
	if err != nil {
		return "", fmt.Errorf("%w: get secret %s (%s): %w", ErrSecretUnavailable, r.secretName, errorCode(err), err)
	}

	var raw []byte
	switch {
	case out.SecretString != nil && *out.SecretString != "":
		raw = []byte(*out.SecretString)
	case len(out.SecretBinary) > 0:
		raw = out.SecretBinary
	default:
		return "", fmt.Errorf("%w: secret %s has no value", ErrMalformedSecret, r.secretName)
	}

	return parseWebhookURL(raw)
}

func parseWebhookURL(raw []byte) (string, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return "", fmt.Errorf("%w: parse secret: %v", ErrMalformedSecret, err)
	}

	value, ok := fields[WebhookURLKey]
	if !ok {
		return "", fmt.Errorf("%w: key %q not found", ErrMalformedSecret, WebhookURLKey)
	}

	var url string
	if err := json.Unmarshal(value, &url); err != nil || url == "" {
		return "", fmt.Errorf("%w: key %q is not a non-empty string", ErrMalformedSecret, WebhookURLKey)
	}
	return url, nil
}

// errorCode names the Secrets Manager failure for log and error messages.
func errorCode(err error) string {
	var (
		decryption *types.DecryptionFailure
		internal   *types.InternalServiceError
		param      *types.InvalidParameterException
		request    *types.InvalidRequestException
		notFound   *types.ResourceNotFoundException
		apiErr     smithy.APIError
	)
	switch {
	case errors.As(err, &decryption):
		return "DecryptionFailure"
	case errors.As(err, &internal):
		return "InternalServiceError"
	case errors.As(err, &param):
		return "InvalidParameterException"
	case errors.As(err, &request):
		return "InvalidRequestException"
	case errors.As(err, &notFound):
		return "ResourceNotFoundException"
	case errors.As(err, &apiErr):
		return apiErr.ErrorCode()
	default:
		return "unknown"
	}
}
