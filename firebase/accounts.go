package firebase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// DefaultIdentityToolkitURL is the Identity Toolkit v1 REST endpoint
const DefaultIdentityToolkitURL = "https://identitytoolkit.googleapis.com/v1"

var (
	// ErrEmailExists is returned when an account with the email already exists
	ErrEmailExists = errors.New("email already exists")

	// ErrAccountNotFound is returned when the uid is unknown to the provider
	ErrAccountNotFound = errors.New("account not found")
)

var scopes = []string{
	"https://www.googleapis.com/auth/identitytoolkit",
	"https://www.googleapis.com/auth/cloud-platform",
}

// AccountClient manages provider accounts through the Identity Toolkit admin API
type AccountClient struct {
	baseURL    string
	projectID  string
	httpClient *http.Client
}

// NewAccountClient creates a client. httpClient must attach credentials.
func NewAccountClient(baseURL, projectID string, httpClient *http.Client) *AccountClient {
	if baseURL == "" {
		baseURL = DefaultIdentityToolkitURL
	}
	return &AccountClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		projectID:  projectID,
		httpClient: httpClient,
	}
}

// NewAccountClientFromServiceAccount builds an authenticated client from a
// service-account JSON key.
func NewAccountClientFromServiceAccount(ctx context.Context, baseURL, projectID string, serviceAccountJSON []byte) (*AccountClient, error) {
	creds, err := google.CredentialsFromJSON(ctx, serviceAccountJSON, scopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account: %w", err)
	}
	if projectID == "" {
		projectID = creds.ProjectID
	}
	if projectID == "" {
		return nil, errors.New("firebase project ID is required")
	}

	return NewAccountClient(baseURL, projectID, oauth2.NewClient(ctx, creds.TokenSource)), nil
}

// CreateAccount creates an email/password account and returns its uid
func (c *AccountClient) CreateAccount(ctx context.Context, email, password string) (string, error) {
	var out struct {
		LocalID string `json:"localId"`
	}
	body := map[string]any{"email": email, "password": password}
	if err := c.call(ctx, "accounts", body, &out); err != nil {
		return "", err
	}
	if out.LocalID == "" {
		return "", errors.New("identity toolkit returned no localId")
	}
	return out.LocalID, nil
}

// UpdateEmail changes the email of an existing account
func (c *AccountClient) UpdateEmail(ctx context.Context, uid, email string) error {
	body := map[string]any{"localId": uid, "email": email}
	return c.call(ctx, "accounts:update", body, nil)
}

// DeleteAccount removes an account
func (c *AccountClient) DeleteAccount(ctx context.Context, uid string) error {
	body := map[string]any{"localId": uid}
	return c.call(ctx, "accounts:delete", body, nil)
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *AccountClient) call(ctx context.Context, method string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/projects/%s/%s", c.baseURL, c.projectID, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("identity toolkit %s: %w", method, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		_ = json.Unmarshal(data, &apiErr)
		code := apiErr.Error.Message
		switch {
		case strings.HasPrefix(code, "EMAIL_EXISTS"), strings.HasPrefix(code, "DUPLICATE_EMAIL"):
			return ErrEmailExists
		case strings.HasPrefix(code, "USER_NOT_FOUND"):
			return ErrAccountNotFound
		}
		return fmt.Errorf("identity toolkit %s: status %d: %s", method, resp.StatusCode, code)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// LocalAccounts is an in-process account registry for development when no
// service account is configured. Uids are random UUIDs.
type LocalAccounts struct {
	mu     sync.Mutex
	emails map[string]string // uid -> email
	logger *zap.Logger
}

// NewLocalAccounts creates an empty registry
func NewLocalAccounts(logger *zap.Logger) *LocalAccounts {
	return &LocalAccounts{emails: make(map[string]string), logger: logger}
}

// CreateAccount registers email and returns a new uid
func (l *LocalAccounts) CreateAccount(_ context.Context, email, _ string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, existing := range l.emails {
		if strings.EqualFold(existing, email) {
			return "", ErrEmailExists
		}
	}
	uid := uuid.NewString()
	l.emails[uid] = email
	l.logger.Warn("created local account, no identity provider configured", zap.String("uid", uid))
	return uid, nil
}

// UpdateEmail changes the email of a registered uid
func (l *LocalAccounts) UpdateEmail(_ context.Context, uid, email string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.emails[uid]; !ok {
		return ErrAccountNotFound
	}
	l.emails[uid] = email
	return nil
}

// DeleteAccount forgets uid
func (l *LocalAccounts) DeleteAccount(_ context.Context, uid string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.emails[uid]; !ok {
		return ErrAccountNotFound
	}
	delete(l.emails, uid)
	return nil
}
