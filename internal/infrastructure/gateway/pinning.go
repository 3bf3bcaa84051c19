package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/memoryvault/vault/internal/usecase"
)

const uploadTimeout = 60 * time.Second

// PinningService uploads bytes to a pinning provider and returns the
// resulting content address. The endpoint follows the common pinFileToIPFS
// shape: multipart form upload, bearer token, JSON response carrying the
// hash.
type PinningService struct {
	client   *http.Client
	endpoint string
	token    string
}

func NewPinningService(endpoint string, token string) *PinningService {
	return &PinningService{
		client:   &http.Client{Timeout: uploadTimeout},
		endpoint: endpoint,
		token:    token,
	}
}

type pinResponse struct {
	IpfsHash string `json:"IpfsHash"`
}

func (s *PinningService) Put(ctx context.Context, data []byte, name string) (string, error) {

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		return "", errors.Wrap(err, "failed to build upload form")
	}
	if _, err := part.Write(data); err != nil {
		return "", errors.Wrap(err, "failed to build upload form")
	}
	if err := writer.Close(); err != nil {
		return "", errors.Wrap(err, "failed to build upload form")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "upload request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("upload rejected with status %d: %s", resp.StatusCode, string(detail))
	}

	var parsed pinResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", errors.Wrap(err, "failed to parse upload response")
	}
	if parsed.IpfsHash == "" {
		return "", fmt.Errorf("upload response carried no hash")
	}

	return parsed.IpfsHash, nil
}

var _ usecase.ContentStore = (*PinningService)(nil)
