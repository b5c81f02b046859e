// Package main provides the Lambda entry point for short link redirects.
//
// Every GET /{code} resolves the code against the link store, records the
// click, and issues a 302 to the destination. Unknown codes and invalid
// destinations render generic error pages.
package main

import (
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/rs/zerolog/log"

	"github.com/fpang/ig-link-hub/internal/lambdaboot"
	"github.com/fpang/ig-link-hub/internal/logging"
	"github.com/fpang/ig-link-hub/internal/shortlink"
)

var redirectHandler *shortlink.Handler

func init() {
	initStart := time.Now()
	logging.Init()

	aws := lambdaboot.InitAWS()
	dataStore := lambdaboot.InitDynamo(aws.Config, "LINKHUB_TABLE")

	svc := shortlink.NewService(dataStore, func() int64 { return time.Now().Unix() })
	redirectHandler = shortlink.NewHandler(svc)

	lambdaboot.StartupLog("redirect-lambda", initStart).
		DynamoTable("links", logging.EnvOrDefault("LINKHUB_TABLE", "")).
		Log()
	log.Info().Msg("Redirect Lambda initialized")
}

func main() {
	// The handler owns the whole path space: every path is a candidate code.
	adapter := httpadapter.NewV2(redirectHandler)
	lambda.Start(adapter.ProxyWithContext)
}
