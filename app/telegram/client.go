package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"
)

const defaultEndpoint = "https://api.telegram.org"

// Client talks to the Telegram Bot API over plain HTTP.
type Client struct {
	token      string
	endpoint   string
	httpClient *http.Client
}

// Button is an inline keyboard button attached below a message.
type Button struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

func NewClient(token string) *Client {
	return NewClientWithEndpoint(token, defaultEndpoint)
}

func NewClientWithEndpoint(token, endpoint string) *Client {
	return &Client{
		token:    token,
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type apiResponse struct {
	OK     bool `json:"ok"`
	Result struct {
		MessageID int64 `json:"message_id"`
	} `json:"result"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
	Parameters  *struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

// SendPhoto posts an image to a chat, optionally with a single URL button,
// and returns the delivered message ID. Rate limiting surfaces as
// *FloodError, other rejections as *APIError, transport problems as plain
// wrapped errors.
func (c *Client) SendPhoto(ctx context.Context, chatID string, photo []byte, button *Button) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if err := writer.WriteField("chat_id", chatID); err != nil {
		return "", fmt.Errorf("failed to write chat_id field: %w", err)
	}

	if button != nil {
		markup, err := json.Marshal(map[string]any{
			"inline_keyboard": [][]Button{{*button}},
		})
		if err != nil {
			return "", fmt.Errorf("failed to marshal reply markup: %w", err)
		}
		if err := writer.WriteField("reply_markup", string(markup)); err != nil {
			return "", fmt.Errorf("failed to write reply_markup field: %w", err)
		}
	}

	part, err := writer.CreateFormFile("photo", "news.png")
	if err != nil {
		return "", fmt.Errorf("failed to create photo part: %w", err)
	}
	if _, err := part.Write(photo); err != nil {
		return "", fmt.Errorf("failed to write photo bytes: %w", err)
	}

	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendPhoto", c.endpoint, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send photo: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var parsed apiResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode response (HTTP %d): %w", resp.StatusCode, err)
	}

	if !parsed.OK {
		if isFloodDescription(parsed.ErrorCode, parsed.Description) {
			fe := &FloodError{Description: parsed.Description}
			if parsed.Parameters != nil && parsed.Parameters.RetryAfter > 0 {
				fe.RetryAfter = parsed.Parameters.RetryAfter
			} else {
				fe.RetryAfter = parseRetryAfter(parsed.Description)
			}
			return "", fe
		}
		return "", &APIError{Code: parsed.ErrorCode, Description: parsed.Description}
	}

	return strconv.FormatInt(parsed.Result.MessageID, 10), nil
}
