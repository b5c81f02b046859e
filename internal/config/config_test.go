package config

import (
	"errors"
	"testing"

	"github.com/fpang/ig-link-hub/internal/errutil"
)

func TestFromEnv(t *testing.T) {
	t.Setenv("INSTAGRAM_APP_ID", "app-1")
	t.Setenv("INSTAGRAM_APP_SECRET", "secret-1")
	t.Setenv("FRONTEND_URL", "https://links.example.com")
	t.Setenv("LINKHUB_TABLE", "linkhub-prod")

	c := FromEnv()
	if c.AppID != "app-1" || c.AppSecret != "secret-1" {
		t.Errorf("unexpected credentials: %q / %q", c.AppID, c.AppSecret)
	}
	if c.FrontendURL != "https://links.example.com" {
		t.Errorf("unexpected frontend URL: %q", c.FrontendURL)
	}
	if c.TableName != "linkhub-prod" {
		t.Errorf("unexpected table: %q", c.TableName)
	}
}

func TestApplyDefaults(t *testing.T) {
	c := &Config{}
	c.ApplyDefaults()

	if c.OAuthBaseURL != DefaultOAuthBaseURL {
		t.Errorf("expected default OAuth base URL, got %q", c.OAuthBaseURL)
	}
	if c.GraphBaseURL != DefaultGraphBaseURL {
		t.Errorf("expected default Graph base URL, got %q", c.GraphBaseURL)
	}
	if c.ReplyMessage != DefaultReplyMessage {
		t.Errorf("expected default reply message, got %q", c.ReplyMessage)
	}

	// Explicit values survive.
	c2 := &Config{OAuthBaseURL: "http://127.0.0.1:9999", ReplyMessage: "hi"}
	c2.ApplyDefaults()
	if c2.OAuthBaseURL != "http://127.0.0.1:9999" || c2.ReplyMessage != "hi" {
		t.Error("ApplyDefaults must not overwrite explicit values")
	}
}

func TestRequire(t *testing.T) {
	c := &Config{AppID: "app-1", AppSecret: "s"}

	if err := c.Require("appId", "appSecret"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	err := c.Require("appId", "frontendUrl")
	if err == nil {
		t.Fatal("expected error for missing frontendUrl")
	}

	var e *errutil.Error
	if !errors.As(err, &e) || e.Kind != errutil.KindConfig {
		t.Errorf("expected a ConfigError, got %v", err)
	}
}
