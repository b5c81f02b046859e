// Package main provides the Lambda entry point for the Instagram OAuth
// callback handler.
//
// This is a lightweight Lambda (128 MB, 10s timeout) that handles:
//   - GET /oauth/callback?code=AUTH_CODE — exchange code, persist identity,
//     redirect to the front end with the access token
//   - GET /oauth/callback?error=... — user denied access
//
// Credentials are loaded from SSM Parameter Store at cold start:
//   - /ig-link-hub/prod/instagram-app-id
//   - /ig-link-hub/prod/instagram-app-secret
//   - /ig-link-hub/prod/instagram-oauth-redirect-uri
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
	"github.com/fpang/ig-link-hub/internal/oauthflow"
)

var callbackHandler *oauthflow.Handler

func init() {
	initStart := time.Now()
	logging.Init()

	aws := lambdaboot.InitAWS()
	dataStore := lambdaboot.InitDynamo(aws.Config, "LINKHUB_TABLE")

	lambdaboot.LoadSecret(aws.SSM,
		"INSTAGRAM_APP_ID", "SSM_APP_ID_PARAM",
		"/ig-link-hub/prod/instagram-app-id")
	lambdaboot.LoadSecret(aws.SSM,
		"INSTAGRAM_APP_SECRET", "SSM_APP_SECRET_PARAM",
		"/ig-link-hub/prod/instagram-app-secret")
	lambdaboot.LoadSecret(aws.SSM,
		"INSTAGRAM_REDIRECT_URI", "SSM_REDIRECT_URI_PARAM",
		"/ig-link-hub/prod/instagram-oauth-redirect-uri")

	cfg := config.FromEnv()
	cfg.ApplyDefaults()
	if err := cfg.Require("appId", "appSecret", "redirectUri", "frontendUrl"); err != nil {
		log.Fatal().Err(err).Msg("OAuth Lambda configuration incomplete")
	}

	callbackHandler = oauthflow.NewHandler(cfg, dataStore)

	lambdaboot.StartupLog("oauth-lambda", initStart).
		DynamoTable("links", cfg.TableName).
		Config("frontendUrl", cfg.FrontendURL).
		Config("oauthBaseUrl", cfg.OAuthBaseURL).
		Log()
	log.Info().Msg("OAuth Lambda initialized")
}

func main() {
	mux := http.NewServeMux()
	mux.Handle("/oauth/callback", callbackHandler)

	adapter := httpadapter.NewV2(mux)
	lambda.Start(adapter.ProxyWithContext)
}
