// Package backend talks to the iMPS REST backend that receives finished
// reports and knows the stations.
package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/mbolis/pmdraft/model"
)

var (
	ErrNotConfigured   = errors.New("backend url not configured")
	ErrStationNotFound = errors.New("station not found")
)

// StatusError is a non 2xx answer of the backend.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("backend answered %d", e.Code)
	}
	return fmt.Sprintf("backend answered %d: %s", e.Code, e.Body)
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

// Submit posts one report. Only a 2xx answer counts as success.
func (c *Client) Submit(ctx context.Context, formType string, payload model.Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	req, err := c.request(ctx, http.MethodPost, "/api/pm-reports/"+url.PathEscape(formType), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send report: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type station struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Location    string `json:"location"`
	EquipmentID string `json:"equipment_id"`
	SerialNo    string `json:"serial_no"`
}

// Station returns the head fields known for a station.
func (c *Client) Station(ctx context.Context, stationID string) (model.Head, error) {
	req, err := c.request(ctx, http.MethodGet, "/api/stations/"+url.PathEscape(stationID), nil)
	if err != nil {
		return model.Head{}, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return model.Head{}, fmt.Errorf("lookup station: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return model.Head{}, fmt.Errorf("%w: %s", ErrStationNotFound, stationID)
	}
	if err := checkStatus(resp); err != nil {
		return model.Head{}, err
	}

	var s station
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return model.Head{}, fmt.Errorf("decode station: %w", err)
	}
	return model.Head{
		StationName: s.Name,
		Location:    s.Location,
		EquipmentID: s.EquipmentID,
		SerialNo:    s.SerialNo,
	}, nil
}

func (c *Client) request(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	if c.baseURL == "" {
		return nil, ErrNotConfigured
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
}
