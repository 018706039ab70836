package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shinyyama/voxelhub-backend/internal/model"
	"github.com/shopspring/decimal"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// PayPalProvider talks to the PayPal Payouts and Orders REST APIs. Access tokens come
// from the client-credentials grant and are cached until they expire.
type PayPalProvider struct {
	baseURL string
	client  *http.Client
}

func NewPayPalProvider(ctx context.Context, baseURL, clientID, clientSecret string) *PayPalProvider {
	base := strings.TrimRight(baseURL, "/")
	cc := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     base + "/v1/oauth2/token",
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	return &PayPalProvider{baseURL: base, client: cc.Client(ctx)}
}

type paypalAmount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type paypalItem struct {
	RecipientType string       `json:"recipient_type"`
	Amount        paypalAmount `json:"amount"`
	Receiver      string       `json:"receiver"`
	SenderItemID  string       `json:"sender_item_id"`
}

type paypalBatchRequest struct {
	SenderBatchHeader struct {
		SenderBatchID string `json:"sender_batch_id"`
		EmailSubject  string `json:"email_subject"`
	} `json:"sender_batch_header"`
	Items []paypalItem `json:"items"`
}

type paypalBatchResponse struct {
	BatchHeader struct {
		PayoutBatchID string `json:"payout_batch_id"`
		BatchStatus   string `json:"batch_status"`
	} `json:"batch_header"`
}

func (p *PayPalProvider) CreatePayout(ctx context.Context, req Request) (Result, error) {
	dest, ok := req.Destination.(model.PayPalDestination)
	if !ok {
		return Result{}, ErrUnsupportedDestination
	}
	var body paypalBatchRequest
	body.SenderBatchHeader.SenderBatchID = fmt.Sprintf("voxelhub_%d_%s", req.PayoutID, uuid.NewString()[:8])
	body.SenderBatchHeader.EmailSubject = "You have a payout from VoxelHub"
	recipient := "PAYPAL_ID"
	if strings.Contains(dest.AccountID, "@") {
		recipient = "EMAIL"
	}
	body.Items = []paypalItem{{
		RecipientType: recipient,
		Amount: paypalAmount{
			Value:    req.Amount.StringFixed(2),
			Currency: strings.ToUpper(req.Currency),
		},
		Receiver:     dest.AccountID,
		SenderItemID: "payout_" + strconv.FormatUint(req.PayoutID, 10),
	}}
	var out paypalBatchResponse
	if err := p.do(ctx, http.MethodPost, "/v1/payments/payouts", body, &out); err != nil {
		return Result{}, err
	}
	if out.BatchHeader.PayoutBatchID == "" {
		return Result{}, fmt.Errorf("paypal payout: missing batch id")
	}
	return Result{
		ExternalID: out.BatchHeader.PayoutBatchID,
		Status:     PayPalStatus(out.BatchHeader.BatchStatus),
	}, nil
}

func (p *PayPalProvider) FetchStatus(ctx context.Context, req StatusRequest) (model.PayoutStatus, error) {
	var out paypalBatchResponse
	if err := p.do(ctx, http.MethodGet, "/v1/payments/payouts/"+url.PathEscape(req.ExternalID), nil, &out); err != nil {
		return "", err
	}
	return PayPalStatus(out.BatchHeader.BatchStatus), nil
}

type paypalMoney struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type paypalCapture struct {
	ID     string      `json:"id"`
	Status string      `json:"status"`
	Amount paypalMoney `json:"amount"`
}

type paypalPurchaseUnit struct {
	ReferenceID string       `json:"reference_id,omitempty"`
	CustomID    string       `json:"custom_id,omitempty"`
	Description string       `json:"description,omitempty"`
	Amount      *paypalMoney `json:"amount,omitempty"`
	Payments    *struct {
		Captures []paypalCapture `json:"captures"`
	} `json:"payments,omitempty"`
}

type paypalOrderRequest struct {
	Intent        string               `json:"intent"`
	PurchaseUnits []paypalPurchaseUnit `json:"purchase_units"`
}

type paypalOrder struct {
	ID            string               `json:"id"`
	Status        string               `json:"status"`
	PurchaseUnits []paypalPurchaseUnit `json:"purchase_units"`
	Links         []struct {
		Href string `json:"href"`
		Rel  string `json:"rel"`
	} `json:"links"`
}

func (p *PayPalProvider) CreateCheckout(ctx context.Context, req CheckoutRequest) (CheckoutSession, error) {
	ref := "design_purchase_" + strconv.FormatUint(req.PurchaseID, 10)
	body := paypalOrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []paypalPurchaseUnit{{
			ReferenceID: ref,
			CustomID:    ref,
			Description: req.Description,
			Amount: &paypalMoney{
				CurrencyCode: strings.ToUpper(req.Currency),
				Value:        req.Amount.StringFixed(2),
			},
		}},
	}
	var order paypalOrder
	if err := p.do(ctx, http.MethodPost, "/v2/checkout/orders", body, &order); err != nil {
		return CheckoutSession{}, err
	}
	if order.ID == "" {
		return CheckoutSession{}, fmt.Errorf("paypal order: missing id")
	}
	sess := CheckoutSession{Reference: order.ID}
	for _, l := range order.Links {
		if l.Rel == "approve" || l.Rel == "payer-action" {
			sess.ClientToken = l.Href
		}
	}
	return sess, nil
}

// FetchCheckout reads the order and captures it once the buyer has approved it.
func (p *PayPalProvider) FetchCheckout(ctx context.Context, q CheckoutQuery) (CheckoutState, error) {
	path := "/v2/checkout/orders/" + url.PathEscape(q.Reference)
	var order paypalOrder
	if err := p.do(ctx, http.MethodGet, path, nil, &order); err != nil {
		return CheckoutState{}, err
	}
	if strings.EqualFold(order.Status, "APPROVED") {
		order = paypalOrder{}
		if err := p.do(ctx, http.MethodPost, path+"/capture", struct{}{}, &order); err != nil {
			return CheckoutState{}, err
		}
	}
	return paypalCheckoutState(order)
}

func paypalCheckoutState(order paypalOrder) (CheckoutState, error) {
	switch strings.ToUpper(order.Status) {
	case "VOIDED":
		return CheckoutState{Status: CheckoutFailed}, nil
	case "COMPLETED":
	default:
		return CheckoutState{Status: CheckoutPending}, nil
	}
	state := CheckoutState{Status: CheckoutPending, Amount: decimal.Zero}
	failed, total := 0, 0
	for _, pu := range order.PurchaseUnits {
		if pu.Payments == nil {
			continue
		}
		for _, c := range pu.Payments.Captures {
			total++
			switch strings.ToUpper(c.Status) {
			case "COMPLETED":
				v, err := decimal.NewFromString(c.Amount.Value)
				if err != nil {
					return CheckoutState{}, fmt.Errorf("paypal capture %s amount: %w", c.ID, err)
				}
				state.Status = CheckoutPaid
				state.Amount = state.Amount.Add(v)
				state.Currency = strings.ToLower(c.Amount.CurrencyCode)
			case "DECLINED", "FAILED":
				failed++
			}
		}
	}
	if state.Status != CheckoutPaid && total > 0 && failed == total {
		state.Status = CheckoutFailed
	}
	return state, nil
}

func (p *PayPalProvider) do(ctx context.Context, method, path string, in, out interface{}) error {
	var rd io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("paypal %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("paypal %s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func PayPalStatus(s string) model.PayoutStatus {
	switch strings.ToUpper(s) {
	case "SUCCESS":
		return model.PayoutStatusCompleted
	case "DENIED", "CANCELED", "FAILED":
		return model.PayoutStatusFailed
	}
	return model.PayoutStatusProcessing
}
