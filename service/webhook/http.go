package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/khaledhikmat/dfd-go/service/config"
)

type httpService struct {
	url    string
	client *http.Client
}

// NewHTTP posts payloads as JSON to the configured URL. With no URL set,
// Post does nothing.
func NewHTTP(cfgsvc config.IService) IService {
	return &httpService{
		url: cfgsvc.GetWebhookURL(),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (svc *httpService) Post(ctx context.Context, payload map[string]interface{}) error {
	if svc.url == "" {
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, svc.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := svc.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
