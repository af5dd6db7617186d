// Package client talks to the portal's REST API: the presence snapshot side
// channel used by the realtime channel, plus the message CRUD endpoints the
// chat surfaces call directly.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/worklane/portal-realtime/internal/config"
	"github.com/worklane/portal-realtime/internal/models"
)

const requestTimeout = 10 * time.Second

type PortalAPI interface {
	Statuses(ctx context.Context) ([]models.UserStatus, error)
	Channels(ctx context.Context, identity string) ([]string, error)
	ChannelHistory(ctx context.Context, channel string, limit int) ([]models.Message, error)
	DirectHistory(ctx context.Context, identity, peer string, limit int) ([]models.Message, error)
	DeleteForMe(ctx context.Context, identity, messageID string) error
	DeleteForEveryone(ctx context.Context, identity, messageID string) error
	ClearChannel(ctx context.Context, identity, channel string) error
	ClearDirectThread(ctx context.Context, identity, peer string) error
}

type portalAPI struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
}

func New(conf *config.Config) PortalAPI {
	return &portalAPI{
		baseURL:   conf.Portal.BaseURL,
		authToken: conf.Portal.AuthToken,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

func (c *portalAPI) Statuses(ctx context.Context) ([]models.UserStatus, error) {
	var statuses []models.UserStatus
	if err := c.getJSON(ctx, "/users/status", nil, &statuses); err != nil {
		return nil, fmt.Errorf("fetch presence snapshot: %w", err)
	}
	return statuses, nil
}

func (c *portalAPI) Channels(ctx context.Context, identity string) ([]string, error) {
	query := url.Values{"member": {identity}}
	var channels []string
	if err := c.getJSON(ctx, "/channels", query, &channels); err != nil {
		return nil, fmt.Errorf("fetch channel membership: %w", err)
	}
	return channels, nil
}

func (c *portalAPI) ChannelHistory(ctx context.Context, channel string, limit int) ([]models.Message, error) {
	query := url.Values{"limit": {strconv.Itoa(limit)}}
	var messages []models.Message
	path := "/channels/" + url.PathEscape(channel) + "/messages"
	if err := c.getJSON(ctx, path, query, &messages); err != nil {
		return nil, fmt.Errorf("fetch channel history: %w", err)
	}
	return messages, nil
}

func (c *portalAPI) DirectHistory(ctx context.Context, identity, peer string, limit int) ([]models.Message, error) {
	query := url.Values{
		"user":  {identity},
		"peer":  {peer},
		"limit": {strconv.Itoa(limit)},
	}
	var messages []models.Message
	if err := c.getJSON(ctx, "/messages", query, &messages); err != nil {
		return nil, fmt.Errorf("fetch direct history: %w", err)
	}
	return messages, nil
}

func (c *portalAPI) DeleteForMe(ctx context.Context, identity, messageID string) error {
	path := "/messages/" + url.PathEscape(messageID) + "/delete-for-me"
	if err := c.postJSON(ctx, path, map[string]string{"user_id": identity}); err != nil {
		return fmt.Errorf("delete message for me: %w", err)
	}
	return nil
}

func (c *portalAPI) DeleteForEveryone(ctx context.Context, identity, messageID string) error {
	path := "/messages/" + url.PathEscape(messageID) + "/delete-for-everyone"
	if err := c.postJSON(ctx, path, map[string]string{"user_id": identity}); err != nil {
		return fmt.Errorf("delete message for everyone: %w", err)
	}
	return nil
}

func (c *portalAPI) ClearChannel(ctx context.Context, identity, channel string) error {
	path := "/channels/" + url.PathEscape(channel) + "/clear"
	if err := c.postJSON(ctx, path, map[string]string{"user_id": identity}); err != nil {
		return fmt.Errorf("clear channel: %w", err)
	}
	return nil
}

func (c *portalAPI) ClearDirectThread(ctx context.Context, identity, peer string) error {
	body := map[string]string{"user_id": identity, "peer": peer}
	if err := c.postJSON(ctx, "/messages/clear", body); err != nil {
		return fmt.Errorf("clear direct thread: %w", err)
	}
	return nil
}

func (c *portalAPI) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.do(req, out)
}

func (c *portalAPI) postJSON(ctx context.Context, path string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, nil)
}

func (c *portalAPI) do(req *http.Request, out any) error {
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("portal API returned status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
