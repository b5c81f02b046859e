// Package main provides the Lambda entry point for the link hub API.
//
// Endpoints:
//
//	POST /api/save-post — mark media as tracked for comment auto-reply
//	GET  /api/user-data — caller profile plus recent media
//	POST /api/shorten   — create a short link
//	GET  /api/links     — list the caller's short links with click counts
//
// All endpoints except /api/shorten require an Instagram access token in
// the Authorization header (Bearer scheme); the Graph API is the authority
// on token validity.
package main

import (
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/rs/zerolog/log"

	"github.com/fpang/ig-link-hub/internal/api"
	"github.com/fpang/ig-link-hub/internal/config"
	"github.com/fpang/ig-link-hub/internal/lambdaboot"
	"github.com/fpang/ig-link-hub/internal/logging"
	"github.com/fpang/ig-link-hub/internal/shortlink"
)

var server *api.Server

func init() {
	initStart := time.Now()
	logging.Init()

	aws := lambdaboot.InitAWS()
	dataStore := lambdaboot.InitDynamo(aws.Config, "LINKHUB_TABLE")

	cfg := config.FromEnv()
	cfg.ApplyDefaults()

	linkSvc := shortlink.NewService(dataStore, func() int64 { return time.Now().Unix() })
	server = api.NewServer(dataStore, linkSvc, cfg.GraphBaseURL)

	lambdaboot.StartupLog("api-lambda", initStart).
		DynamoTable("links", cfg.TableName).
		Config("graphBaseUrl", cfg.GraphBaseURL).
		Log()
	log.Info().Msg("API Lambda initialized")
}

func main() {
	adapter := httpadapter.NewV2(api.NewMux(server))
	lambda.Start(adapter.ProxyWithContext)
}
