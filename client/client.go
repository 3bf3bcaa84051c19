package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/memoryvault/vault"
)

const defaultTimeout = 30 * time.Second

// WalletHeader matches the header the server reads the caller identity from.
const WalletHeader = "X-Wallet-Address"

// Client talks to a vault server on behalf of one wallet.
type Client struct {
	client  *http.Client
	cache   *cache.Cache
	baseURL string
	wallet  string
}

func New(baseURL string, wallet string) *Client {
	return &Client{
		client:  &http.Client{Timeout: defaultTimeout},
		cache:   cache.New(time.Minute, 5*time.Minute),
		baseURL: baseURL,
		wallet:  wallet,
	}
}

// Request mirrors the server's access request resource.
type Request struct {
	ID              string    `json:"id"`
	RequesterWallet string    `json:"requesterWallet"`
	OwnerWallet     string    `json:"ownerWallet"`
	ContentRef      string    `json:"contentRef"`
	Message         string    `json:"message,omitempty"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// SharedAccess mirrors the server's shared access resource, including the
// descriptive fields joined from the current grant document.
type SharedAccess struct {
	OwnerWallet  string    `json:"ownerWallet"`
	ViewerWallet string    `json:"viewerWallet"`
	ContentRef   string    `json:"contentRef"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
	Name         string    `json:"name,omitempty"`
	Description  string    `json:"description,omitempty"`
	Image        string    `json:"image,omitempty"`
}

// PublishResult reports where published content landed.
type PublishResult struct {
	ContentRef      string              `json:"contentRef"`
	DocumentAddress string              `json:"documentAddress"`
	ContentAddress  string              `json:"contentAddress"`
	Document        vault.GrantDocument `json:"document"`
}

// Publish uploads plaintext content for encryption and storage.
func (c *Client) Publish(ctx context.Context, content []byte, name string, description string) (PublishResult, error) {

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		return PublishResult{}, err
	}
	if _, err := part.Write(content); err != nil {
		return PublishResult{}, err
	}
	writer.WriteField("name", name)
	if description != "" {
		writer.WriteField("description", description)
	}
	if err := writer.Close(); err != nil {
		return PublishResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/publish", &body)
	if err != nil {
		return PublishResult{}, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var result PublishResult
	if err := c.do(req, &result); err != nil {
		return PublishResult{}, err
	}
	return result, nil
}

// View downloads and decrypts content the wallet can unwrap a grant for.
func (c *Client) View(ctx context.Context, contentRef string, asOwner bool) ([]byte, error) {
	target := c.baseURL + "/api/v1/content/" + url.PathEscape(contentRef)
	if asOwner {
		target += "?role=owner"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set(WalletHeader, c.wallet)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}
	return io.ReadAll(resp.Body)
}

// Document fetches the current grant document without touching any content.
// Results cache briefly; grants issued elsewhere show up after the entry
// expires.
func (c *Client) Document(ctx context.Context, contentRef string) (vault.GrantDocument, error) {

	cacheKey := "document:" + contentRef
	if x, found := c.cache.Get(cacheKey); found {
		return x.(vault.GrantDocument), nil
	}

	var result struct {
		Document vault.GrantDocument `json:"document"`
	}
	if err := c.get(ctx, "/api/v1/documents/"+url.PathEscape(contentRef), &result); err != nil {
		return vault.GrantDocument{}, err
	}

	c.cache.Set(cacheKey, result.Document, cache.DefaultExpiration)
	return result.Document, nil
}

// Grant issues a viewer a wrapped copy of the content key.
func (c *Client) Grant(ctx context.Context, contentRef, viewerWallet string, expiresIn time.Duration, viewLimit uint) error {
	payload := map[string]any{
		"contentRef":   contentRef,
		"viewerWallet": viewerWallet,
		"viewLimit":    viewLimit,
	}
	if expiresIn > 0 {
		payload["expiresInSeconds"] = int64(expiresIn / time.Second)
	}
	err := c.post(ctx, "/api/v1/grants", payload, nil)
	if err == nil {
		c.cache.Delete("document:" + contentRef)
	}
	return err
}

// RequestAccess asks a content owner for a grant.
func (c *Client) RequestAccess(ctx context.Context, ownerWallet, contentRef, message string) (Request, error) {
	var result Request
	err := c.post(ctx, "/api/v1/requests", map[string]any{
		"ownerWallet": ownerWallet,
		"contentRef":  contentRef,
		"message":     message,
	}, &result)
	return result, err
}

// Respond answers a pending request with "approve" or "deny".
func (c *Client) Respond(ctx context.Context, requestID, decision string) (Request, error) {
	var result Request
	err := c.post(ctx, "/api/v1/requests/"+url.PathEscape(requestID)+"/respond", map[string]any{
		"decision": decision,
	}, &result)
	return result, err
}

// ListRequests lists requests visible to the wallet. Role is "owner" for
// requests against the wallet's content, "requester" for its own asks.
func (c *Client) ListRequests(ctx context.Context, role string) ([]Request, error) {
	var result []Request
	err := c.get(ctx, "/api/v1/requests?role="+url.QueryEscape(role), &result)
	return result, err
}

// RequestStatus polls the wallet's request for one piece of content.
func (c *Client) RequestStatus(ctx context.Context, contentRef string) (Request, error) {
	var result Request
	err := c.get(ctx, "/api/v1/requests/status?contentRef="+url.QueryEscape(contentRef), &result)
	return result, err
}

// SharedWithMe lists content other wallets have shared with this one.
func (c *Client) SharedWithMe(ctx context.Context) ([]SharedAccess, error) {
	var result []SharedAccess
	err := c.get(ctx, "/api/v1/shared", &result)
	return result, err
}

// CheckShared reports whether the wallet holds active shared access.
func (c *Client) CheckShared(ctx context.Context, contentRef string) (bool, error) {
	var result struct {
		Shared bool `json:"shared"`
	}
	err := c.get(ctx, "/api/v1/shared/check?contentRef="+url.QueryEscape(contentRef), &result)
	return result.Shared, err
}

func (c *Client) get(ctx context.Context, path string, response any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, response)
}

func (c *Client) post(ctx context.Context, path string, payload any, response any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, response)
}

func (c *Client) do(req *http.Request, response any) error {
	req.Header.Set(WalletHeader, c.wallet)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}

	if response == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(response)
}

func decodeError(resp *http.Response) error {
	var parsed struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err == nil {
		if parsed.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, parsed.Error)
		}
		if parsed.Message != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, parsed.Message)
		}
	}
	return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
}
