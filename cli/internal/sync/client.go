// Package sync uploads exported usage datasets to a cxusage server.
// Each upload replaces the client's previous dataset server-side, so
// re-syncing the same machine never double counts.
package sync

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cxusage/cxusage/cli/internal/config"
)

// Client handles syncing to the server
type Client struct {
	cfg        *config.Config
	httpClient *http.Client
}

// SyncResponse represents the sync API response
type SyncResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Days    int    `json:"days,omitempty"`
	Error   string `json:"error,omitempty"`
}

// SyncStatusResponse represents the sync status response
type SyncStatusResponse struct {
	LastSyncAt *time.Time `json:"last_sync_at,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// NewClient creates a new sync client
func NewClient(cfg *config.Config) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// GetSyncStatus gets the last sync time from the server
func (c *Client) GetSyncStatus() (*time.Time, error) {
	url := fmt.Sprintf("%s/api/sync/status?client_id=%s", c.cfg.Server, c.cfg.ClientID)

	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("X-API-Key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	var status SyncStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, err
	}

	if status.Error != "" {
		return nil, fmt.Errorf("%s", status.Error)
	}

	return status.LastSyncAt, nil
}

// Sync uploads an exported dataset document. The server replaces
// whatever this client uploaded before. Returns the number of days the
// server now holds for this client.
func (c *Client) Sync(exportDoc []byte) (int, error) {
	url := fmt.Sprintf("%s/api/sync?client_id=%s", c.cfg.Server, c.cfg.ClientID)
	req, err := http.NewRequest("POST", url, bytes.NewReader(exportDoc))
	if err != nil {
		return 0, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	var syncResp SyncResponse
	if err := json.NewDecoder(resp.Body).Decode(&syncResp); err != nil {
		return 0, err
	}

	if !syncResp.Success {
		errMsg := syncResp.Error
		if errMsg == "" {
			errMsg = syncResp.Message
		}
		return 0, fmt.Errorf("%s", errMsg)
	}

	return syncResp.Days, nil
}
