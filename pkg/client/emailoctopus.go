package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// AlreadySubscribedMessage is returned when the contact exists
const AlreadySubscribedMessage = "You're already subscribed!"

// CaptureEmailInput is a waitlist signup
type CaptureEmailInput struct {
	Email  string                 `json:"email" validate:"required,email"`
	Fields map[string]interface{} `json:"fields,omitempty"`
	Tags   []string               `json:"tags,omitempty"`
	Status string                 `json:"status,omitempty" validate:"omitempty,oneof=subscribed pending unsubscribed"`
}

// CaptureEmailResult reports the outcome of a signup
type CaptureEmailResult struct {
	AlreadySubscribed bool   `json:"alreadySubscribed"`
	Message           string `json:"message,omitempty"`
}

type contactRequest struct {
	EmailAddress string                 `json:"email_address"`
	Fields       map[string]interface{} `json:"fields"`
	Tags         []string               `json:"tags"`
	Status       string                 `json:"status"`
}

// EmailOctopusClient adds contacts to a mailing list
type EmailOctopusClient struct {
	baseURL string
	apiKey  string
	listID  string
	http    httpDoer
}

// NewEmailOctopusClient creates an EmailOctopus client
func NewEmailOctopusClient(baseURL, apiKey, listID string, logger *zap.Logger) *EmailOctopusClient {
	return &EmailOctopusClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		listID:  listID,
		http:    newHTTPDoer("emailoctopus", logger),
	}
}

// Configured reports whether key and list are set
func (c *EmailOctopusClient) Configured() bool {
	return c.apiKey != "" && c.listID != ""
}

// CaptureEmail subscribes in.Email. A 409 from upstream is not an error.
func (c *EmailOctopusClient) CaptureEmail(ctx context.Context, in CaptureEmailInput) (*CaptureEmailResult, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("emailoctopus: %w", ErrNotConfigured)
	}

	req := contactRequest{
		EmailAddress: in.Email,
		Fields:       in.Fields,
		Tags:         in.Tags,
		Status:       in.Status,
	}
	if req.Fields == nil {
		req.Fields = map[string]interface{}{}
	}
	if req.Tags == nil {
		req.Tags = []string{}
	}
	if req.Status == "" {
		req.Status = "subscribed"
	}

	body, status, err := c.http.do(ctx, http.MethodPost, c.baseURL+"/lists/"+c.listID+"/contacts", bearer(c.apiKey), req)
	if err == nil {
		return &CaptureEmailResult{}, nil
	}
	if status == http.StatusConflict {
		return &CaptureEmailResult{AlreadySubscribed: true, Message: AlreadySubscribedMessage}, nil
	}

	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		upstream.Body = emailOctopusMessage(body, status)
		return nil, upstream
	}
	return nil, err
}

func emailOctopusMessage(body []byte, status int) string {
	var payload struct {
		Error   interface{} `json:"error"`
		Message string      `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if s, ok := payload.Error.(string); ok && s != "" {
			return s
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return fmt.Sprintf("EmailOctopus error %d", status)
}
