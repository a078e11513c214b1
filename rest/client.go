// Package rest consumes the REST collaborators: thread listing,
// get-or-create, and message history. These are opaque HTTP calls; no
// timeout is set beyond the transport default, and a failure here never
// touches the sockets.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"lovewire/contract"
	"lovewire/domain"
	"lovewire/errors"
	"lovewire/wire"
)

type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     contract.TokenSource
	log        *slog.Logger
}

func NewClient(baseURL string, tokens contract.TokenSource, log *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{},
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokens:     tokens,
		log:        log,
	}
}

type participantDTO struct {
	UserID   string `json:"user_id"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar"`
	IsOnline bool   `json:"is_online"`
}

type threadDTO struct {
	ID          string         `json:"id"`
	Participant participantDTO `json:"participant"`
	LastMessage *string        `json:"last_message"`
	UpdatedAt   string         `json:"updated_at"`
}

// Threads fetches the conversation list.
func (c *Client) Threads(ctx context.Context) ([]domain.Thread, error) {
	var dtos []threadDTO
	if err := c.get(ctx, "/threads/", nil, &dtos); err != nil {
		return nil, err
	}
	threads := make([]domain.Thread, 0, len(dtos))
	for _, dto := range dtos {
		threads = append(threads, dto.toDomain())
	}
	return threads, nil
}

// Thread fetches a single conversation by id.
func (c *Client) Thread(ctx context.Context, threadID string) (domain.Thread, error) {
	var dto threadDTO
	query := url.Values{"thread_id": {threadID}}
	if err := c.get(ctx, "/threads/", query, &dto); err != nil {
		return domain.Thread{}, err
	}
	return dto.toDomain(), nil
}

// GetOrCreateThread returns the thread pairing the session with
// otherUserID, creating it server-side if none exists yet.
func (c *Client) GetOrCreateThread(ctx context.Context, otherUserID string) (domain.Thread, error) {
	body := map[string]string{"user_id": otherUserID}
	var dto threadDTO
	if err := c.post(ctx, "/threads/get-or-create/", body, &dto); err != nil {
		return domain.Thread{}, err
	}
	return dto.toDomain(), nil
}

// History fetches the message history of a conversation. Rows share the
// wire shape of inbound chat frames.
func (c *Client) History(ctx context.Context, conversationID string) ([]domain.Message, error) {
	var rows []wire.ChatMessage
	path := fmt.Sprintf("/chat/%s/history", conversationID)
	if err := c.get(ctx, path, nil, &rows); err != nil {
		return nil, err
	}
	messages := make([]domain.Message, 0, len(rows))
	for _, row := range rows {
		msg, err := row.ToDomain(conversationID)
		if err != nil {
			c.log.Warn("skipping malformed history row", "err", err)
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	token := c.tokens.AccessToken()
	if token == "" {
		return errors.ErrNoAccessToken
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%s %s: unexpected status %d", req.Method, req.URL.Path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", req.Method, req.URL.Path, err)
	}
	return nil
}

func (dto threadDTO) toDomain() domain.Thread {
	updatedAt, err := time.Parse(time.RFC3339Nano, dto.UpdatedAt)
	if err != nil {
		updatedAt = time.Time{}
	}
	return domain.Thread{
		ID: dto.ID,
		Participant: domain.Participant{
			UserID:   dto.Participant.UserID,
			Name:     dto.Participant.Name,
			Avatar:   dto.Participant.Avatar,
			IsOnline: dto.Participant.IsOnline,
		},
		LastMessage: dto.LastMessage,
		UpdatedAt:   updatedAt,
	}
}
