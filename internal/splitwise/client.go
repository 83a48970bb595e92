// Package splitwise provides a client for the Splitwise REST API.
package splitwise

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"

	"github.com/splitwarden/splitwarden/internal/common"
	"github.com/splitwarden/splitwarden/internal/service"
)

const defaultBaseURL = "https://secure.splitwise.com/api/v3.0"

// Config holds Splitwise API configuration.
type Config struct {
	// APIKey is a personal access token from the Splitwise developer
	// portal. It is sent as a bearer token on every request.
	APIKey string
	// BaseURL overrides the production API endpoint; used by tests.
	BaseURL string
	Timeout time.Duration
}

// Validate ensures all required fields are present.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("splitwise API key is required")
	}
	return nil
}

// Client implements the Ledger interface against the Splitwise API.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	retryOpts  *service.RetryOptions
	baseURL    string
}

// NewClient creates a new Splitwise client with the given configuration.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.APIKey})
	httpClient := oauth2.NewClient(context.Background(), src)
	httpClient.Timeout = timeout

	retryOpts := service.DefaultRetryOptions()

	return &Client{
		httpClient: httpClient,
		logger:     slog.Default().With("component", "splitwise"),
		retryOpts:  &retryOpts,
		baseURL:    baseURL,
	}, nil
}

// GetExpense fetches a single expense by ID. Deleted expenses are
// reported as not found.
func (c *Client) GetExpense(ctx context.Context, expenseID int64) (*Expense, error) {
	var envelope struct {
		Expense *Expense `json:"expense"`
	}

	err := common.WithRetry(ctx, func() error {
		return c.get(ctx, fmt.Sprintf("/get_expense/%d", expenseID), nil, &envelope)
	}, *c.retryOpts)
	if err != nil {
		return nil, err
	}

	if envelope.Expense == nil || envelope.Expense.ID == 0 {
		return nil, fmt.Errorf("expense %d: %w", expenseID, common.ErrNotFound)
	}
	if envelope.Expense.DeletedAt != nil {
		return nil, fmt.Errorf("expense %d is deleted: %w", expenseID, common.ErrNotFound)
	}
	return envelope.Expense, nil
}

// GetExpenses lists expenses, optionally scoped to a group. A limit of 0
// asks the API for its maximum page size.
func (c *Client) GetExpenses(ctx context.Context, groupID int64, limit int) ([]Expense, error) {
	params := url.Values{}
	if groupID != 0 {
		params.Set("group_id", strconv.FormatInt(groupID, 10))
	}
	params.Set("limit", strconv.Itoa(limit))

	var envelope struct {
		Expenses []Expense `json:"expenses"`
	}

	err := common.WithRetry(ctx, func() error {
		return c.get(ctx, "/get_expenses", params, &envelope)
	}, *c.retryOpts)
	if err != nil {
		return nil, err
	}

	expenses := make([]Expense, 0, len(envelope.Expenses))
	for _, e := range envelope.Expenses {
		if e.DeletedAt != nil {
			continue
		}
		expenses = append(expenses, e)
	}
	return expenses, nil
}

// UpdateExpense rewrites an expense's cost, note, and shares.
//
// This call is deliberately never retried: a timeout can mean the write
// landed, and replaying it would double-apply. Callers treat any error
// here as "ledger state unknown" and leave their own state untouched.
func (c *Client) UpdateExpense(ctx context.Context, expenseID int64, update ExpenseUpdate) error {
	payload := map[string]any{
		"cost":        update.Cost,
		"description": update.Description,
		"details":     update.Details,
		"group_id":    update.GroupID,
	}
	for i, u := range update.Users {
		prefix := fmt.Sprintf("users__%d__", i)
		payload[prefix+"user_id"] = u.UserID
		payload[prefix+"paid_share"] = u.PaidShare
		payload[prefix+"owed_share"] = u.OwedShare
	}

	var envelope struct {
		apiError
		Expenses []Expense `json:"expenses"`
	}

	if err := c.post(ctx, fmt.Sprintf("/update_expense/%d", expenseID), payload, &envelope); err != nil {
		return &common.LedgerError{Err: err, ExpenseID: expenseID}
	}
	if envelope.hasErrors() {
		return &common.LedgerError{
			Err:       fmt.Errorf("splitwise rejected update: %s", formatAPIError(envelope.apiError)),
			ExpenseID: expenseID,
		}
	}
	if len(envelope.Expenses) == 0 {
		return &common.LedgerError{
			Err:       fmt.Errorf("splitwise returned no updated expense"),
			ExpenseID: expenseID,
		}
	}

	c.logger.Info("updated ledger expense",
		"expense_id", expenseID,
		"cost", update.Cost,
		"users", len(update.Users))
	return nil
}

// GetCurrentUser returns the account that owns the API key.
func (c *Client) GetCurrentUser(ctx context.Context) (*User, error) {
	var envelope struct {
		User *User `json:"user"`
	}

	err := common.WithRetry(ctx, func() error {
		return c.get(ctx, "/get_current_user", nil, &envelope)
	}, *c.retryOpts)
	if err != nil {
		return nil, err
	}
	if envelope.User == nil {
		return nil, fmt.Errorf("splitwise returned no current user")
	}
	return envelope.User, nil
}

// GetFriends returns the current user's friend list.
func (c *Client) GetFriends(ctx context.Context) ([]User, error) {
	var envelope struct {
		Friends []User `json:"friends"`
	}

	err := common.WithRetry(ctx, func() error {
		return c.get(ctx, "/get_friends", nil, &envelope)
	}, *c.retryOpts)
	if err != nil {
		return nil, err
	}
	return envelope.Friends, nil
}

// GetGroups returns the current user's groups.
func (c *Client) GetGroups(ctx context.Context) ([]Group, error) {
	var envelope struct {
		Groups []Group `json:"groups"`
	}

	err := common.WithRetry(ctx, func() error {
		return c.get(ctx, "/get_groups", nil, &envelope)
	}, *c.retryOpts)
	if err != nil {
		return nil, err
	}
	return envelope.Groups, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %w", path, err)
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request for %s: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("splitwise request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("failed to read splitwise response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return &common.RetryableError{
			Err:       fmt.Errorf("splitwise rate limit: %w", common.ErrRateLimit),
			Retryable: true,
		}
	case resp.StatusCode >= 500:
		return &common.RetryableError{
			Err:       fmt.Errorf("splitwise server error: status %d", resp.StatusCode),
			Retryable: true,
		}
	case resp.StatusCode == http.StatusNotFound:
		return &common.RetryableError{
			Err: fmt.Errorf("%s: %w", req.URL.Path, common.ErrNotFound),
		}
	case resp.StatusCode != http.StatusOK:
		return &common.RetryableError{
			Err: fmt.Errorf("splitwise returned status %d: %s", resp.StatusCode, truncate(string(body), 200)),
		}
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to decode splitwise response: %w", err)
		}
	}
	return nil
}

func formatAPIError(e apiError) string {
	if e.Error != "" {
		return e.Error
	}
	raw, err := json.Marshal(e.Errors)
	if err != nil {
		return "unknown error"
	}
	return string(raw)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
