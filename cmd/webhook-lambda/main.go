// Package main provides the Lambda entry point for the Instagram webhook
// handler.
//
// This is a lightweight Lambda (128 MB, 10s timeout) that handles:
//   - GET /webhook — Meta verification handshake
//   - POST /webhook — Meta event notifications with HMAC-SHA256 validation
//
// Credentials are loaded from SSM Parameter Store at cold start:
//   - /ig-link-hub/prod/instagram-webhook-verify-token
//   - /ig-link-hub/prod/instagram-app-secret
//
// Comment events on tracked media trigger an automated private reply to
// the commenter; all other events are classified and logged.
package main

import (
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/rs/zerolog/log"

	"github.com/fpang/ig-link-hub/internal/config"
	"github.com/fpang/ig-link-hub/internal/lambdaboot"
	"github.com/fpang/ig-link-hub/internal/logging"
	"github.com/fpang/ig-link-hub/internal/reply"
	"github.com/fpang/ig-link-hub/internal/webhook"
)

var webhookHandler *webhook.Handler

func init() {
	initStart := time.Now()
	logging.Init()

	aws := lambdaboot.InitAWS()
	dataStore := lambdaboot.InitDynamo(aws.Config, "LINKHUB_TABLE")

	verifyToken := lambdaboot.LoadSecret(aws.SSM,
		"INSTAGRAM_VERIFY_TOKEN", "SSM_WEBHOOK_VERIFY_TOKEN_PARAM",
		"/ig-link-hub/prod/instagram-webhook-verify-token")
	appSecret := lambdaboot.LoadSecret(aws.SSM,
		"INSTAGRAM_APP_SECRET", "SSM_APP_SECRET_PARAM",
		"/ig-link-hub/prod/instagram-app-secret")

	cfg := config.FromEnv()
	cfg.ApplyDefaults()

	dispatcher := reply.NewDispatcher(dataStore, cfg.GraphBaseURL, cfg.ReplyMessage)
	webhookHandler = webhook.NewHandler(verifyToken, appSecret, dispatcher)

	lambdaboot.StartupLog("webhook-lambda", initStart).
		DynamoTable("links", cfg.TableName).
		Config("graphBaseUrl", cfg.GraphBaseURL).
		Log()
	log.Info().Msg("Webhook handler initialized")
}

func main() {
	mux := http.NewServeMux()
	mux.Handle("/webhook", webhookHandler)

	adapter := httpadapter.NewV2(mux)
	lambda.Start(adapter.ProxyWithContext)
}
