package walletadapterclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// WalletStatus mirrors one entry of the admin /status response.
type WalletStatus struct {
	Currency      string    `json:"currency"`
	Backend       string    `json:"backend"`
	Description   string    `json:"description"`
	Locked        bool      `json:"locked"`
	BlockHeight   uint64    `json:"block_height"`
	Version       string    `json:"version"`
	Balance       uint64    `json:"balance"`
	LockedBalance uint64    `json:"locked_balance"`
	ExtraField    string    `json:"extra_field"`
	Message       string    `json:"message"`
	LastChecked   time.Time `json:"last_checked"`
}

type statusResponse struct {
	Wallets []WalletStatus `json:"wallets"`
}

// Field mirrors a backend settings descriptor from /schema/{backend}.
type Field struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Default     string `json:"default"`
	Required    bool   `json:"required"`
	Options     []struct {
		Value string `json:"value"`
		Label string `json:"label"`
	} `json:"options"`
}

type schemaResponse struct {
	Backend string  `json:"backend"`
	Fields  []Field `json:"fields"`
}

// Statuses fetches every wallet's last observed state from an admin server,
// e.g. baseURL "http://127.0.0.1:8080".
func Statuses(ctx context.Context, baseURL string) ([]WalletStatus, error) {
	base, err := cleanBase(baseURL)
	if err != nil {
		return nil, err
	}
	body, err := httpGet(ctx, base+"/status")
	if err != nil {
		return nil, err
	}
	var resp statusResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	return resp.Wallets, nil
}

// Status fetches one currency's state.
func Status(ctx context.Context, baseURL, currency string) (WalletStatus, error) {
	base, err := cleanBase(baseURL)
	if err != nil {
		return WalletStatus{}, err
	}
	currency = strings.TrimSpace(currency)
	if currency == "" {
		return WalletStatus{}, errors.New("currency is required")
	}
	body, err := httpGet(ctx, base+"/status/"+url.PathEscape(currency))
	if err != nil {
		return WalletStatus{}, err
	}
	var resp statusResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return WalletStatus{}, err
	}
	if len(resp.Wallets) != 1 {
		return WalletStatus{}, fmt.Errorf("expected one wallet for %s, got %d", currency, len(resp.Wallets))
	}
	return resp.Wallets[0], nil
}

// Schema fetches the settings fields a backend accepts.
func Schema(ctx context.Context, baseURL, backend string) ([]Field, error) {
	base, err := cleanBase(baseURL)
	if err != nil {
		return nil, err
	}
	body, err := httpGet(ctx, base+"/schema/"+url.PathEscape(backend))
	if err != nil {
		return nil, err
	}
	var resp schemaResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	return resp.Fields, nil
}

func cleanBase(baseURL string) (string, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return "", errors.New("base url is required")
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("base url must be http or https, got %q", u.Scheme)
	}
	return base, nil
}

func httpGet(ctx context.Context, urlStr string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("request failed %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
