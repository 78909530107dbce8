package smm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"autoorderbot/internal/pkg/httpclient"
)

// ErrAPIRejected is returned when the panel answers with status=false.
// The response body is untrusted until status=true has been checked.
var ErrAPIRejected = errors.New("smm api rejected request")

// Client talks to the SMM panel's single JSON endpoint. Every request
// carries api_key/secret_key plus an `action` discriminator.
type Client struct {
	apiURL    string
	apiKey    string
	secretKey string
	http      *httpclient.Client
}

// NewClient creates a panel client with a per-call timeout. One slow call
// must fail that call only, never hang a whole batch.
func NewClient(apiURL, apiKey, secretKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		apiURL:    apiURL,
		apiKey:    apiKey,
		secretKey: secretKey,
		http:      httpclient.New().WithTimeout(timeout),
	}
}

// Service is one entry of the panel's service catalog.
type Service struct {
	ID    string
	Name  string
	Price float64
}

// OrderStatus is the panel's view of one placed sub-order.
type OrderStatus struct {
	Status     string
	StartCount int
	Remains    int
}

// flexString tolerates the panel sending ids and counts as either JSON
// strings or numbers.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

func (f flexString) Int() int {
	v, _ := strconv.Atoi(string(f))
	return v
}

func (f flexString) Float() float64 {
	v, _ := strconv.ParseFloat(string(f), 64)
	return v
}

type envelope struct {
	Status bool            `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error"`
}

func (c *Client) call(ctx context.Context, action string, extra map[string]interface{}) (json.RawMessage, error) {
	body := map[string]interface{}{
		"api_key":    c.apiKey,
		"secret_key": c.secretKey,
		"action":     action,
	}
	for k, v := range extra {
		body[k] = v
	}

	resp, err := c.http.Request().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(c.apiURL)
	if err != nil {
		return nil, fmt.Errorf("smm %s call failed: %w", action, err)
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return nil, fmt.Errorf("smm %s parse error: %w", action, err)
	}
	if !env.Status {
		if env.Error != "" {
			return nil, fmt.Errorf("%w: %s: %s", ErrAPIRejected, action, env.Error)
		}
		return nil, fmt.Errorf("%w: %s", ErrAPIRejected, action)
	}
	return env.Data, nil
}

// Services fetches the full service catalog.
func (c *Client) Services(ctx context.Context) ([]Service, error) {
	data, err := c.call(ctx, "services", nil)
	if err != nil {
		return nil, err
	}

	var raw []struct {
		ID    flexString `json:"id"`
		Name  string     `json:"name"`
		Price flexString `json:"price"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("smm services parse error: %w", err)
	}

	services := make([]Service, 0, len(raw))
	for _, s := range raw {
		services = append(services, Service{
			ID:    string(s.ID),
			Name:  s.Name,
			Price: s.Price.Float(),
		})
	}
	return services, nil
}

// PlaceOrder submits one order for a link and returns the panel's order ID.
func (c *Client) PlaceOrder(ctx context.Context, serviceID, link string, quantity int) (string, error) {
	data, err := c.call(ctx, "order", map[string]interface{}{
		"service":  serviceID,
		"data":     link,
		"quantity": quantity,
	})
	if err != nil {
		return "", err
	}

	var result struct {
		ID flexString `json:"id"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("smm order parse error: %w", err)
	}
	if result.ID == "" {
		return "", fmt.Errorf("%w: order accepted without id", ErrAPIRejected)
	}
	return string(result.ID), nil
}

// GetOrderStatus queries the status of one placed order.
func (c *Client) GetOrderStatus(ctx context.Context, orderID string) (*OrderStatus, error) {
	data, err := c.call(ctx, "status", map[string]interface{}{
		"id": orderID,
	})
	if err != nil {
		return nil, err
	}

	var result struct {
		Status     string     `json:"status"`
		StartCount flexString `json:"start_count"`
		Remains    flexString `json:"remains"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("smm status parse error: %w", err)
	}

	return &OrderStatus{
		Status:     result.Status,
		StartCount: result.StartCount.Int(),
		Remains:    result.Remains.Int(),
	}, nil
}
