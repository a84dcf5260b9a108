package striperepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"libraryrental/util/httpx"

	"github.com/shopspring/decimal"
)

const baseURL = "https://api.stripe.com/v1"

var decimal100 = decimal.NewFromInt(100)

type httpRepo struct {
	apiKey     string
	successURL string
	cancelURL  string
	client     *http.Client
}

func NewHTTP(apiKey, successURL, cancelURL string) Repo {
	return &httpRepo{
		apiKey:     apiKey,
		successURL: successURL,
		cancelURL:  cancelURL,
		client:     httpx.Client(),
	}
}

func (r *httpRepo) CreateSession(ctx context.Context, req CreateSessionReq) (*CreateSessionResp, error) {
	// Amount is sent in the smallest currency unit.
	cents := req.Amount.Mul(decimal100).IntPart()

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("client_reference_id", req.Reference)
	form.Set("success_url", r.successURL+"?session_id={CHECKOUT_SESSION_ID}")
	form.Set("cancel_url", r.cancelURL+"?session_id={CHECKOUT_SESSION_ID}")
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", "usd")
	form.Set("line_items[0][price_data][unit_amount]", fmt.Sprintf("%d", cents))
	form.Set("line_items[0][price_data][product_data][name]", req.Description)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/checkout/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+r.apiKey)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("stripe create session failed: %s", resp.Status)
	}

	var out struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, errors.New("stripe: empty session id")
	}

	return &CreateSessionResp{SessionID: out.ID, SessionURL: out.URL}, nil
}

func (r *httpRepo) GetSessionStatus(ctx context.Context, sessionID string) (SessionStatus, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/checkout/sessions/"+url.PathEscape(sessionID), nil)
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("stripe get session failed: %s", resp.Status)
	}

	var out struct {
		Status        string `json:"status"`         // open | complete | expired
		PaymentStatus string `json:"payment_status"` // paid | unpaid
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}

	switch {
	case out.PaymentStatus == "paid" || out.Status == "complete":
		return StatusPaid, nil
	case out.Status == "expired":
		return StatusExpired, nil
	default:
		return StatusOpen, nil
	}
}
