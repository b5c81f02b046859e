// Package config defines the explicit configuration struct shared by every
// entry point. It is constructed once at cold start (environment first,
// SSM Parameter Store fallback — see lambdaboot) and passed by reference
// into each component's constructor; no component reads ambient process
// state directly.
package config

import (
	"os"

	"github.com/fpang/ig-link-hub/internal/errutil"
)

// Production Instagram API endpoints. Overridable for tests.
const (
	DefaultOAuthBaseURL = "https://api.instagram.com"
	DefaultGraphBaseURL = "https://graph.instagram.com"
)

// DefaultReplyMessage is the acknowledgment sent as a private reply to
// comments on tracked media when no custom message is configured.
const DefaultReplyMessage = "Thanks for your comment! Check the link in our bio."

// Config holds every recognized setting. Zero values mean "not configured";
// each entry point calls Require with the subset it needs and fails fast.
type Config struct {
	// Instagram app credentials.
	AppID       string
	AppSecret   string
	RedirectURI string

	// VerifyToken is the static webhook subscription secret. Distinct from
	// AppSecret, which signs per-delivery payloads.
	VerifyToken string

	// FrontendURL is the post-OAuth redirect target.
	FrontendURL string

	// TableName is the DynamoDB table backing all collections.
	TableName string

	// ReplyMessage overrides DefaultReplyMessage when set.
	ReplyMessage string

	// API base URLs, defaulted by ApplyDefaults. Tests point these at
	// httptest servers.
	OAuthBaseURL string
	GraphBaseURL string
}

// FromEnv builds a Config from environment variables. Values left empty
// here may be filled from SSM by lambdaboot before validation.
func FromEnv() *Config {
	return &Config{
		AppID:        os.Getenv("INSTAGRAM_APP_ID"),
		AppSecret:    os.Getenv("INSTAGRAM_APP_SECRET"),
		RedirectURI:  os.Getenv("INSTAGRAM_REDIRECT_URI"),
		VerifyToken:  os.Getenv("INSTAGRAM_VERIFY_TOKEN"),
		FrontendURL:  os.Getenv("FRONTEND_URL"),
		TableName:    os.Getenv("LINKHUB_TABLE"),
		ReplyMessage: os.Getenv("LINKHUB_REPLY_MESSAGE"),
	}
}

// ApplyDefaults fills optional settings that have sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.OAuthBaseURL == "" {
		c.OAuthBaseURL = DefaultOAuthBaseURL
	}
	if c.GraphBaseURL == "" {
		c.GraphBaseURL = DefaultGraphBaseURL
	}
	if c.ReplyMessage == "" {
		c.ReplyMessage = DefaultReplyMessage
	}
}

// Require verifies that the named settings are present, returning a
// ConfigError naming the first missing one.
func (c *Config) Require(names ...string) error {
	for _, name := range names {
		if c.value(name) == "" {
			return errutil.New(errutil.KindConfig, "missing required configuration: "+name)
		}
	}
	return nil
}

func (c *Config) value(name string) string {
	switch name {
	case "appId":
		return c.AppID
	case "appSecret":
		return c.AppSecret
	case "redirectUri":
		return c.RedirectURI
	case "verifyToken":
		return c.VerifyToken
	case "frontendUrl":
		return c.FrontendURL
	case "tableName":
		return c.TableName
	default:
		return ""
	}
}
