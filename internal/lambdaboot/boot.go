// Package lambdaboot provides shared Lambda cold-start bootstrap logic.
//
// Every Lambda in the project needs some subset of: AWS config, DynamoDB,
// SSM parameter fetch, and startup logging. This package extracts the
// common init patterns so each Lambda's init() is a short composition of
// helpers.
package lambdaboot

import (
	"context"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"

	"github.com/fpang/ig-link-hub/internal/logging"
	"github.com/fpang/ig-link-hub/internal/store"
)

// AWSClients holds the core AWS SDK clients used across Lambdas.
type AWSClients struct {
	Config aws.Config
	SSM    *ssm.Client
}

// InitAWS loads the default AWS config and returns it along with common clients.
func InitAWS() AWSClients {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load AWS config")
	}
	log.Debug().Str("region", cfg.Region).Msg("AWS config loaded")
	return AWSClients{
		Config: cfg,
		SSM:    ssm.NewFromConfig(cfg),
	}
}

// InitDynamo creates the DynamoDB-backed store from the given config and
// table name environment variable. Fatals if the env var is empty.
func InitDynamo(cfg aws.Config, tableEnvVar string) *store.DynamoStore {
	tableName := os.Getenv(tableEnvVar)
	if tableName == "" {
		log.Fatal().Str("envVar", tableEnvVar).Msg("DynamoDB table environment variable is required")
	}
	ddbClient := dynamodb.NewFromConfig(cfg)
	return store.NewDynamoStore(ddbClient, tableName)
}

// LoadSecret resolves a secret with env-first, SSM-fallback semantics:
// if envVar is already set its value wins; otherwise the named parameter
// is fetched (decrypted) from SSM Parameter Store and exported back into
// the environment so later lookups skip the network. Fatals on SSM error
// since a Lambda without its secrets cannot serve anything.
func LoadSecret(ssmClient *ssm.Client, envVar, paramEnvVar, defaultParam string) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	paramName := os.Getenv(paramEnvVar)
	if paramName == "" {
		paramName = defaultParam
	}
	ssmStart := time.Now()
	result, err := ssmClient.GetParameter(context.Background(), &ssm.GetParameterInput{
		Name:           &paramName,
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		log.Fatal().Err(err).Str("param", paramName).Str("envVar", envVar).
			Msg("Failed to read secret from SSM")
	}
	value := *result.Parameter.Value
	os.Setenv(envVar, value)
	log.Debug().Str("param", paramName).Dur("elapsed", time.Since(ssmStart)).
		Msg("Secret loaded from SSM")
	return value
}

// StartupLog is a convenience wrapper for the startup logger.
func StartupLog(name string, initStart time.Time) *logging.StartupLogger {
	return logging.NewStartupLogger(name).InitDuration(time.Since(initStart))
}
