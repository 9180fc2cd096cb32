// Package secrets reads source database credentials from AWS Secrets Manager.
package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/secretsmanager"
	"github.com/aws/aws-sdk-go/service/secretsmanager/secretsmanageriface"

	"github.com/BartekS5/totesys-etl/pkg/utils"
)

var (
	ErrSecretNotFound  = errors.New("secret not found")
	ErrSecretBinary    = errors.New("secret is stored as binary; expected a JSON string")
	ErrSecretMalformed = errors.New("secret is not valid credentials JSON")
	ErrSecretRetrieval = errors.New("failed to retrieve secret")
)

// Credentials are the connection settings stored in the secret.
type Credentials struct {
	User     string
	Database string
	Password string
	Host     string
	Port     int
}

type Fetcher struct {
	client secretsmanageriface.SecretsManagerAPI
}

func NewFetcher(client secretsmanageriface.SecretsManagerAPI) *Fetcher {
	return &Fetcher{client: client}
}

// GetCredentials fetches the named secret and decodes it.
func (f *Fetcher) GetCredentials(ctx context.Context, name string) (*Credentials, error) {
	out, err := f.client.GetSecretValueWithContext(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && aerr.Code() == secretsmanager.ErrCodeResourceNotFoundException {
			return nil, fmt.Errorf("%w: %s", ErrSecretNotFound, name)
		}
		return nil, fmt.Errorf("%w %s: %v", ErrSecretRetrieval, name, err)
	}
	if out.SecretString == nil {
		return nil, fmt.Errorf("%w: %s", ErrSecretBinary, name)
	}
	return ParseCredentials([]byte(aws.StringValue(out.SecretString)))
}

// ParseCredentials decodes the secret JSON. The port may be a number or
// a numeric string.
func ParseCredentials(data []byte) (*Credentials, error) {
	var raw struct {
		User     string      `json:"user"`
		Database string      `json:"database"`
		Password string      `json:"password"`
		Host     string      `json:"host"`
		Port     interface{} `json:"port"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSecretMalformed, err)
	}
	if raw.User == "" || raw.Database == "" || raw.Host == "" {
		return nil, fmt.Errorf("%w: user, database and host are required", ErrSecretMalformed)
	}

	port := 0
	if raw.Port != nil {
		p, err := utils.ConvertToInt(raw.Port)
		if err != nil {
			return nil, fmt.Errorf("%w: port: %v", ErrSecretMalformed, err)
		}
		port = p
	}

	return &Credentials{
		User:     raw.User,
		Database: raw.Database,
		Password: raw.Password,
		Host:     raw.Host,
		Port:     port,
	}, nil
}
