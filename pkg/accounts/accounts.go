package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/organizations"
)

// ErrAccountLookupFailed is returned when an account id cannot be resolved to a name.
var ErrAccountLookupFailed = errors.New("account lookup failed")

// Resolver maps an AWS account id to its display name.
type Resolver interface {
	AccountName(ctx context.Context, accountID string) (string, error)
}

// DescribeAccountAPI is the subset of the Organizations client used here.
type DescribeAccountAPI interface {
	DescribeAccount(ctx context.Context, params *organizations.DescribeAccountInput, optFns ...func(*organizations.Options)) (*organizations.DescribeAccountOutput, error)
}

// Organizations resolves account names through AWS Organizations.
// Every call hits the API; nothing is cached.
type Organizations struct {
	client DescribeAccountAPI
}

// NewOrganizations creates a resolver backed by the given Organizations client.
func NewOrganizations(client DescribeAccountAPI) *Organizations {
	return &Organizations{client: client}
}

func (o *Organizations) AccountName(ctx context.Context, accountID string) (string, error) {
	out, err := o.client.DescribeAccount(ctx, &organizations.DescribeAccountInput{
		AccountId: aws.String(accountID),
	})
	if err != nil {
		return "", fmt.Errorf("%w: describe account %s: %w", ErrAccountLookupFailed, accountID, err)
	}
	if out == nil || out.Account == nil || aws.ToString(out.Account.Name) == "" {
		return "", fmt.Errorf("%w: account %s has no name", ErrAccountLookupFailed, accountID)
	}
	return aws.ToString(out.Account.Name), nil
}

// Static resolves names from a fixed id to name map.
type Static map[string]string

func (s Static) AccountName(_ context.Context, accountID string) (string, error) {
	name, ok := s[accountID]
	if !ok || name == "" {
		return "", fmt.Errorf("%w: account %s not found", ErrAccountLookupFailed, accountID)
	}
	return name, nil
}
