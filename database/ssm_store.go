package database

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

const DefaultSSMParameterPrefix = "/inkwell/"

// SSMParameterAPI is the part of the SSM client the store needs
type SSMParameterAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
	PutParameter(ctx context.Context, params *ssm.PutParameterInput, optFns ...func(*ssm.Options)) (*ssm.PutParameterOutput, error)
}

// SSMStore keeps each record as an encrypted Parameter Store value.
// Parameters are limited to 4KB, so it only holds small records such as the credential.
type SSMStore struct {
	client SSMParameterAPI
	prefix string
}

func NewSSMStore(client SSMParameterAPI, prefix string) *SSMStore {
	if prefix == "" {
		prefix = DefaultSSMParameterPrefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &SSMStore{client: client, prefix: prefix}
}

func (s *SSMStore) name(key string) string {
	return s.prefix + key
}

func (s *SSMStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	out, err := s.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(s.name(key)),
		WithDecryption: aws.Bool(true),
	})
	var notFound *ssmtypes.ParameterNotFound
	if errors.As(err, &notFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return nil, false, nil
	}
	return []byte(*out.Parameter.Value), true, nil
}

func (s *SSMStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.client.PutParameter(ctx, &ssm.PutParameterInput{
		Name:      aws.String(s.name(key)),
		Value:     aws.String(string(value)),
		Type:      ssmtypes.ParameterTypeSecureString,
		Overwrite: aws.Bool(true),
	})
	return err
}
