// Package line talks to the LINE Platform: it verifies LIFF ID tokens, reads
// user profiles and pushes text messages through the Messaging API.
package line

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	DefaultAPIBaseURL = "https://api.line.me"
	IDTokenIssuer     = "https://access.line.me"
)

var (
	ErrNotConfigured  = errors.New("line channel not configured")
	ErrInvalidIDToken = errors.New("invalid line id token")
)

type Config struct {
	ChannelID          string
	ChannelSecret      string
	ChannelAccessToken string
	APIBaseURL         string
	HTTPClient         *http.Client
}

type Client struct {
	channelID          string
	channelSecret      string
	channelAccessToken string
	baseURL            string
	httpClient         *http.Client
	now                func() time.Time
}

type IDTokenClaims struct {
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

type Profile struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	PictureURL  string `json:"pictureUrl,omitempty"`
}

func NewClient(cfg Config) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 8 * time.Second}
	}
	return &Client{
		channelID:          strings.TrimSpace(cfg.ChannelID),
		channelSecret:      cfg.ChannelSecret,
		channelAccessToken: strings.TrimSpace(cfg.ChannelAccessToken),
		baseURL:            baseURL,
		httpClient:         httpClient,
		now:                time.Now,
	}
}

func (client *Client) CanVerify() bool {
	return client != nil && client.channelID != "" && client.channelSecret != ""
}

func (client *Client) CanPush() bool {
	return client != nil && client.channelAccessToken != ""
}

// VerifyIDToken checks an HS256 LIFF ID token signed with the channel secret
// and issued for this channel. The subject is the LINE user id.
func (client *Client) VerifyIDToken(raw string) (IDTokenClaims, error) {
	if !client.CanVerify() {
		return IDTokenClaims{}, ErrNotConfigured
	}

	claims := IDTokenClaims{}
	token, err := jwt.ParseWithClaims(
		strings.TrimSpace(raw),
		&claims,
		func(token *jwt.Token) (any, error) {
			return []byte(client.channelSecret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(IDTokenIssuer),
		jwt.WithAudience(client.channelID),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(client.now),
	)
	if err != nil || !token.Valid {
		return IDTokenClaims{}, ErrInvalidIDToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return IDTokenClaims{}, ErrInvalidIDToken
	}
	return claims, nil
}

// FetchProfile reads the profile of the user that owns accessToken.
func (client *Client) FetchProfile(ctx context.Context, accessToken string) (Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, client.baseURL+"/v2/profile", nil)
	if err != nil {
		return Profile{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(accessToken))

	resp, err := client.httpClient.Do(req)
	if err != nil {
		return Profile{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return Profile{}, statusError(resp)
	}

	profile := Profile{}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(&profile); err != nil {
		return Profile{}, fmt.Errorf("decode profile: %w", err)
	}
	return profile, nil
}

type pushMessageRequest struct {
	To       string        `json:"to"`
	Messages []textMessage `json:"messages"`
}

type textMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (client *Client) PushMessage(ctx context.Context, to string, text string) error {
	if !client.CanPush() {
		return ErrNotConfigured
	}

	body, err := json.Marshal(pushMessageRequest{
		To:       to,
		Messages: []textMessage{{Type: "text", Text: text}},
	})
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, client.baseURL+"/v2/bot/message/push", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+client.channelAccessToken)

	resp, err := client.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return statusError(resp)
	}
	return nil
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return fmt.Errorf("line status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}
