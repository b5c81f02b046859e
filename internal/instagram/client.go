// Package instagram provides a client for the Instagram Graph API
// endpoints this service needs: basic profile and media reads, and
// private replies to comments via the messaging endpoint.
//
// The client requires an Instagram access token and user ID, both loaded
// from the document store or supplied by the caller after an OAuth
// exchange. Every call is bounded by a 10 second timeout; nothing here
// retries — callers decide whether a failure is fatal.
package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// defaultTimeout bounds every outbound Graph API call.
const defaultTimeout = 10 * time.Second

// sharedHTTPClient is used by the package-level OAuth exchange functions
// and by clients created without an explicit http.Client.
var sharedHTTPClient = &http.Client{Timeout: defaultTimeout}

// UserFields are the profile fields requested from /me.
const UserFields = "id,username,account_type,media_count"

// MediaFields are the fields requested for each item of a media listing.
const MediaFields = "id,caption,media_type,media_url,permalink,thumbnail_url,timestamp"

// Client provides methods for reading profile data and sending private
// replies via the Instagram Graph API.
type Client struct {
	httpClient  *http.Client
	accessToken string
	userID      string
	baseURL     string
}

// NewClient creates an Instagram API client. baseURL is
// https://graph.instagram.com in production; tests pass a local server URL.
// userID may be empty for calls that only use /me.
func NewClient(accessToken, userID, baseURL string) *Client {
	return &Client{
		httpClient:  sharedHTTPClient,
		accessToken: accessToken,
		userID:      userID,
		baseURL:     baseURL,
	}
}

// --- API response types ---

// apiResponse is the generic Instagram Graph API write response.
type apiResponse struct {
	ID          string  `json:"id,omitempty"`
	MessageID   string  `json:"message_id,omitempty"`
	RecipientID string  `json:"recipient_id,omitempty"`
	Error       *apiErr `json:"error,omitempty"`
}

type apiErr struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	Code      int    `json:"code"`
	FBTraceID string `json:"fbtrace_id,omitempty"`
}

// Profile is the basic account profile returned by /me.
type Profile struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	AccountType string `json:"account_type,omitempty"`
	MediaCount  int64  `json:"media_count,omitempty"`
}

// MediaItem is one entry of an account's media listing.
type MediaItem struct {
	ID           string `json:"id"`
	Caption      string `json:"caption,omitempty"`
	MediaType    string `json:"media_type,omitempty"`
	MediaURL     string `json:"media_url,omitempty"`
	Permalink    string `json:"permalink,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	Timestamp    string `json:"timestamp,omitempty"`
}

// mediaListResponse is the paged media listing envelope.
type mediaListResponse struct {
	Data  []MediaItem `json:"data"`
	Error *apiErr     `json:"error,omitempty"`
}

// --- Profile and media reads ---

// Profile fetches the token owner's basic profile from /me.
func (c *Client) Profile(ctx context.Context) (*Profile, error) {
	endpoint := fmt.Sprintf("/me?fields=%s&access_token=%s",
		UserFields, url.QueryEscape(c.accessToken))

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}

	var profile Profile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}
	if profile.ID == "" {
		return nil, fmt.Errorf("no user id in profile response: %s", truncate(string(body), 200))
	}
	return &profile, nil
}

// RecentMedia fetches the account's recent media listing.
func (c *Client) RecentMedia(ctx context.Context) ([]MediaItem, error) {
	endpoint := fmt.Sprintf("/%s/media?fields=%s&access_token=%s",
		c.userID, MediaFields, url.QueryEscape(c.accessToken))

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetch media: %w", err)
	}

	var list mediaListResponse
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("parse media listing: %w", err)
	}
	if list.Error != nil {
		return nil, fmt.Errorf("Instagram API error: %s (type: %s, code: %d)",
			list.Error.Message, list.Error.Type, list.Error.Code)
	}
	return list.Data, nil
}

// --- Private replies ---

// SendPrivateReply sends a one-time private reply to the author of a
// comment. Meta permits exactly one private reply per comment, within
// seven days of its creation.
//
// Endpoint: POST /{ig-user-id}/messages with recipient={"comment_id":...}
func (c *Client) SendPrivateReply(ctx context.Context, commentID, text string) error {
	recipient, err := json.Marshal(map[string]string{"comment_id": commentID})
	if err != nil {
		return fmt.Errorf("marshal recipient: %w", err)
	}
	message, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	params := url.Values{
		"recipient":    {string(recipient)},
		"message":      {string(message)},
		"access_token": {c.accessToken},
	}

	resp, err := c.postForm(ctx, fmt.Sprintf("/%s/messages", c.userID), params)
	if err != nil {
		return fmt.Errorf("send private reply to comment %s: %w", commentID, err)
	}
	if resp.MessageID == "" && resp.ID == "" {
		return fmt.Errorf("unexpected reply response: no message id")
	}
	return nil
}

// --- Internal helpers ---

// get issues a GET request and returns the response body, surfacing
// non-2xx statuses as errors with a truncated body preview.
func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", httpResp.StatusCode, truncate(string(body), 200))
	}
	return body, nil
}

// postForm sends a POST request with form-encoded parameters to the Instagram API.
func (c *Client) postForm(ctx context.Context, endpoint string, params url.Values) (*apiResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint,
		strings.NewReader(params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w (body: %s)", err, truncate(string(body), 200))
	}

	if resp.Error != nil {
		return nil, fmt.Errorf("Instagram API error: %s (type: %s, code: %d)",
			resp.Error.Message, resp.Error.Type, resp.Error.Code)
	}

	return &resp, nil
}

// truncate returns the first n characters of s, appending "..." if truncated.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
