package resync

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"homesync/internal/application/entity"
	"homesync/pkg/config"
	"homesync/pkg/httpclient"

	"go.uber.org/zap"
)

// Client дозагружает дом из авторитетного house-сервиса, когда room-событие
// приехало раньше своего house_created.
type Client struct {
	http    httpclient.HTTPClient
	baseURL string
	timeout time.Duration
	logger  *zap.SugaredLogger
}

func NewClient(http httpclient.HTTPClient, cfg config.ReplicaConfig, logger *zap.SugaredLogger) *Client {
	timeout := cfg.ResyncTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Client{
		http:    http,
		baseURL: strings.TrimRight(cfg.ResyncBaseURL, "/"),
		timeout: timeout,
		logger:  logger,
	}
}

// FetchHouse возвращает (house, true, nil) если дом существует,
// (nil, false, nil) если источник ответил 404 - дом уже удалён.
func (c *Client) FetchHouse(ctx context.Context, houseID int64) (*entity.HouseResponse, bool, error) {
	url := fmt.Sprintf("%s/v1/houses/%d", c.baseURL, houseID)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("build resync request: %w", err)
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, false, fmt.Errorf("resync request: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch resp.StatusCode {
	case http.StatusOK:
		var house entity.HouseResponse
		if err := json.NewDecoder(resp.Body).Decode(&house); err != nil {
			return nil, false, fmt.Errorf("decode resync response: %w", err)
		}
		c.logger.Infof("[house: %d] fetched from source for resync", houseID)
		return &house, true, nil
	case http.StatusNotFound:
		return nil, false, nil
	default:
		return nil, false, fmt.Errorf("resync: unexpected status %d from %s", resp.StatusCode, url)
	}
}
