package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// Client talks to the transactional email provider's HTTP API. Every send
// is rate limited through the shared limiter channel so a burst of outbox
// deliveries can't trip the provider's quota.
type Client struct {
	baseURL   string
	apiKey    string
	apiKeyHdr string
	fromName  string
	fromEmail string
	http      *http.Client
	limiter   <-chan time.Time
}

func NewClient() (*Client, error) {
	baseURL := strings.TrimSpace(os.Getenv("MAIL_API_BASE_URL"))
	if baseURL == "" {
		return nil, errors.New("MAIL_API_BASE_URL is empty")
	}
	apiKey := strings.TrimSpace(os.Getenv("MAIL_API_KEY"))
	if apiKey == "" {
		return nil, errors.New("MAIL_API_KEY is empty")
	}
	apiKeyHeader := strings.TrimSpace(os.Getenv("MAIL_API_KEY_HEADER"))
	if apiKeyHeader == "" {
		apiKeyHeader = "X-API-Key"
	}
	fromEmail := strings.TrimSpace(os.Getenv("MAIL_FROM_EMAIL"))
	if fromEmail == "" {
		return nil, errors.New("MAIL_FROM_EMAIL is empty")
	}
	fromName := strings.TrimSpace(os.Getenv("MAIL_FROM_NAME"))
	if fromName == "" {
		fromName = "Camp Registration"
	}
	rateLimitPerMin := int64(60)
	if v := strings.TrimSpace(os.Getenv("MAIL_RATE_LIMIT_PER_MIN")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			rateLimitPerMin = n
		}
	}
	interval := time.Minute / time.Duration(rateLimitPerMin)

	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		apiKeyHdr: apiKeyHeader,
		fromName:  fromName,
		fromEmail: fromEmail,
		http:      &http.Client{Timeout: 30 * time.Second},
		limiter:   time.Tick(interval),
	}, nil
}

// Enabled reports whether the provider is configured at all. With mail
// disabled, Email-channel outbox rows park as FAILED and can be replayed
// once configuration lands.
func Enabled() bool {
	return strings.TrimSpace(os.Getenv("MAIL_API_BASE_URL")) != "" &&
		strings.TrimSpace(os.Getenv("MAIL_API_KEY")) != ""
}

// Message is one transactional email. Attachments carry base64 content
// (the QR code image on ID cards).
type Message struct {
	To          string       `json:"to"`
	Subject     string       `json:"subject"`
	Body        string       `json:"body"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

type Attachment struct {
	Filename      string `json:"filename"`
	ContentType   string `json:"content_type"`
	ContentBase64 string `json:"content"`
}

type sendRequest struct {
	FromName    string       `json:"from_name"`
	FromEmail   string       `json:"from_email"`
	To          string       `json:"to"`
	Subject     string       `json:"subject"`
	TextBody    string       `json:"text_body"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

type sendResponse struct {
	MessageId string `json:"message_id"`
	Id        string `json:"id"`
}

// Send delivers one message and returns the provider's message id.
func (c *Client) Send(ctx context.Context, msg Message) (string, error) {
	if strings.TrimSpace(msg.To) == "" {
		return "", errors.New("recipient is empty")
	}

	<-c.limiter

	payload := sendRequest{
		FromName:    c.fromName,
		FromEmail:   c.fromEmail,
		To:          msg.To,
		Subject:     msg.Subject,
		TextBody:    msg.Body,
		Attachments: msg.Attachments,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/send", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set(c.apiKeyHdr, c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("mail api error %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed sendResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", err
	}
	messageId := parsed.MessageId
	if messageId == "" {
		messageId = parsed.Id
	}
	if messageId == "" {
		return "", errors.New("mail api returned no message id")
	}
	return messageId, nil
}
