package directory

// Read-only client for the external institution directory service.

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Institution is a directory entry for a collaborating institution.
type Institution struct {
	ShortName          string `json:"short_name"`
	LongName           string `json:"long_name"`
	IsUS               bool   `json:"is_us"`
	HasMOU             bool   `json:"has_mou"`
	InstitutionLeadUID string `json:"institution_lead_uid"`
}

// Client returns the current-day institution list.
type Client interface {
	TodaysInstitutions(ctx context.Context) ([]Institution, error)
}

type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *HTTPClient) TodaysInstitutions(ctx context.Context) ([]Institution, error) {
	url := fmt.Sprintf("%s/institutions", c.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf(
			"institution directory error: status=%d body=%s",
			resp.StatusCode,
			string(b),
		)
	}

	var institutions []Institution
	if err := json.NewDecoder(resp.Body).Decode(&institutions); err != nil {
		return nil, err
	}

	return institutions, nil
}
