package payhere

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mpspetcare/petcare-backend/pkg/config"
	"github.com/mpspetcare/petcare-backend/pkg/db/models"
	"github.com/mpspetcare/petcare-backend/pkg/enums"
	pkgerrors "github.com/mpspetcare/petcare-backend/pkg/errors"
)

const (
	sandboxCheckoutURL = "https://sandbox.payhere.lk/pay/checkout"
	liveCheckoutURL    = "https://www.payhere.lk/pay/checkout"
)

// Gateway status codes, delivered as strings on the notify callback.
const (
	StatusCodeSuccess     = "2"
	StatusCodePending     = "0"
	StatusCodeCancelled   = "-1"
	StatusCodeFailed      = "-2"
	StatusCodeChargedback = "-3"
)

// Client signs outbound checkout handoffs and verifies inbound notifications.
// All operations are pure computations over the merchant credentials.
type Client struct {
	cfg          config.PayHereConfig
	hashedSecret string
}

// BuyerContact is the customer identity forwarded to the gateway's checkout page.
type BuyerContact struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Address   string
	City      string
}

// Handoff is the signed form payload the frontend posts to the gateway. It is
// built fresh per initiation and never persisted.
type Handoff struct {
	GatewayURL string `json:"payhere_url"`
	MerchantID string `json:"merchant_id"`
	ReturnURL  string `json:"return_url"`
	CancelURL  string `json:"cancel_url"`
	NotifyURL  string `json:"notify_url"`
	OrderID    string `json:"order_id"`
	Items      string `json:"items"`
	Currency   string `json:"currency"`
	Amount     string `json:"amount"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	Country    string `json:"country"`
	Hash       string `json:"hash"`
}

// Notification is the untrusted callback payload, straight off the form body.
type Notification struct {
	MerchantID string
	OrderID    string
	Amount     string
	Currency   string
	StatusCode string
	PaymentID  string
	MD5Sig     string
}

// NewClient validates the merchant credentials and precomputes the secret
// digest folded into every signature.
func NewClient(cfg config.PayHereConfig) (*Client, error) {
	if cfg.MerchantID == "" {
		return nil, fmt.Errorf("payhere merchant id required")
	}
	if cfg.MerchantSecret == "" {
		return nil, fmt.Errorf("payhere merchant secret required")
	}
	return &Client{
		cfg:          cfg,
		hashedSecret: md5Upper(cfg.MerchantSecret),
	}, nil
}

// CheckoutURL returns the gateway endpoint for the configured mode.
func (c *Client) CheckoutURL() string {
	if c.cfg.Live() {
		return liveCheckoutURL
	}
	return sandboxCheckoutURL
}

// FormatAmount renders cents as the fixed two-decimal string the gateway
// hashes. Initiation and verification must format identically or signatures
// diverge for equal values.
func FormatAmount(cents int) string {
	return decimal.NewFromInt(int64(cents)).Div(decimal.NewFromInt(100)).StringFixed(2)
}

// ComputeHandoffHash signs the checkout payload: the merchant secret is
// digested alone first, then folded into a second digest over the public
// fields. The raw secret never leaves the process.
func (c *Client) ComputeHandoffHash(orderID, amount string) string {
	return md5Upper(c.cfg.MerchantID + orderID + amount + c.cfg.Currency + c.hashedSecret)
}

// BuildHandoff assembles the signed checkout form for the order. Pure; the
// order is not touched.
func (c *Client) BuildHandoff(order *models.Order, buyer BuyerContact) (*Handoff, error) {
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order required")
	}
	orderID := order.ID.String()
	amount := FormatAmount(order.TotalCents)

	firstName := buyer.FirstName
	if firstName == "" {
		firstName = "Customer"
	}
	phone := buyer.Phone
	if phone == "" {
		phone = order.ShippingAddress.Phone
	}
	address := buyer.Address
	if address == "" {
		address = order.ShippingAddress.Street
	}
	city := buyer.City
	if city == "" {
		city = order.ShippingAddress.City
	}

	return &Handoff{
		GatewayURL: c.CheckoutURL(),
		MerchantID: c.cfg.MerchantID,
		ReturnURL:  c.cfg.ReturnURL,
		CancelURL:  c.cfg.CancelURL,
		NotifyURL:  c.cfg.NotifyURL,
		OrderID:    orderID,
		Items:      fmt.Sprintf("PetCare Order #%s", shortID(orderID)),
		Currency:   c.cfg.Currency,
		Amount:     amount,
		FirstName:  firstName,
		LastName:   buyer.LastName,
		Email:      buyer.Email,
		Phone:      phone,
		Address:    address,
		City:       city,
		Country:    "Sri Lanka",
		Hash:       c.ComputeHandoffHash(orderID, amount),
	}, nil
}

// VerifyNotification recomputes the callback signature over the posted fields
// with the status code folded into the tuple, and compares case-insensitively.
func (c *Client) VerifyNotification(n Notification) error {
	expected := md5Upper(n.MerchantID + n.OrderID + n.Amount + n.Currency + n.StatusCode + c.hashedSecret)
	if !strings.EqualFold(expected, n.MD5Sig) {
		return pkgerrors.New(pkgerrors.CodeSignatureMismatch, "notification signature mismatch")
	}
	return nil
}

// Outcome maps a gateway status code to its settlement outcome. The second
// return reports whether the code is one the gateway documents; anything else
// is treated as failed so an unknown code can never mark an order paid.
func Outcome(statusCode string) (enums.PaymentStatus, bool) {
	switch statusCode {
	case StatusCodeSuccess:
		return enums.PaymentStatusCompleted, true
	case StatusCodePending:
		return enums.PaymentStatusPending, true
	case StatusCodeCancelled, StatusCodeFailed, StatusCodeChargedback:
		return enums.PaymentStatusFailed, true
	default:
		return enums.PaymentStatusFailed, false
	}
}

func md5Upper(value string) string {
	sum := md5.Sum([]byte(value))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[len(id)-8:]
}
