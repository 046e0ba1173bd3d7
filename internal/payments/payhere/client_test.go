package payhere

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/mpspetcare/petcare-backend/pkg/config"
	"github.com/mpspetcare/petcare-backend/pkg/db/models"
	"github.com/mpspetcare/petcare-backend/pkg/enums"
	pkgerrors "github.com/mpspetcare/petcare-backend/pkg/errors"
	"github.com/mpspetcare/petcare-backend/pkg/types"
)

// Golden values computed with the reference two-layer MD5 chain for
// merchant M1, order O1, amount 250.00, currency LKR and this secret.
const (
	testMerchantID = "M1"
	testSecret     = "pc_test_secret_8431"

	goldenHandoffHash   = "208C8DBB0AF3F427D2CEF3A495D8FF2E"
	goldenNotifySuccess = "B676F9DE1D36325B0EA41FA766B64166"
	goldenNotifyPending = "1299317877B8436B6FD5F34A0AC56440"
)

func newTestClient(t *testing.T, mode string) *Client {
	t.Helper()
	client, err := NewClient(config.PayHereConfig{
		MerchantID:     testMerchantID,
		MerchantSecret: testSecret,
		Mode:           mode,
		Currency:       "LKR",
		ReturnURL:      "http://localhost:3000/payment/success",
		CancelURL:      "http://localhost:3000/payment/cancel",
		NotifyURL:      "http://localhost:8080/api/payments/notify",
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestComputeHandoffHashGolden(t *testing.T) {
	client := newTestClient(t, "sandbox")
	if got := client.ComputeHandoffHash("O1", "250.00"); got != goldenHandoffHash {
		t.Fatalf("hash = %s, want %s", got, goldenHandoffHash)
	}
}

func TestFormatAmount(t *testing.T) {
	cases := map[int]string{
		25000:   "250.00",
		25:      "0.25",
		160500:  "1605.00",
		1:       "0.01",
		1234567: "12345.67",
	}
	for cents, want := range cases {
		if got := FormatAmount(cents); got != want {
			t.Errorf("FormatAmount(%d) = %s, want %s", cents, got, want)
		}
	}
}

func TestBuildHandoff(t *testing.T) {
	client := newTestClient(t, "sandbox")
	order := &models.Order{
		ID:         uuid.New(),
		TotalCents: 160000,
		ShippingAddress: types.ShippingAddress{
			Street: "12 Lake Rd",
			City:   "Colombo",
			Phone:  "0771234567",
		},
	}

	handoff, err := client.BuildHandoff(order, BuyerContact{
		FirstName: "Nimal",
		LastName:  "Perera",
		Email:     "nimal@example.com",
	})
	if err != nil {
		t.Fatalf("build handoff: %v", err)
	}

	if handoff.GatewayURL != "https://sandbox.payhere.lk/pay/checkout" {
		t.Fatalf("gateway url = %s", handoff.GatewayURL)
	}
	if handoff.Amount != "1600.00" {
		t.Fatalf("amount = %s", handoff.Amount)
	}
	wantItems := "PetCare Order #" + order.ID.String()[len(order.ID.String())-8:]
	if handoff.Items != wantItems {
		t.Fatalf("items = %s, want %s", handoff.Items, wantItems)
	}
	if handoff.Phone != "0771234567" || handoff.City != "Colombo" || handoff.Address != "12 Lake Rd" {
		t.Fatalf("contact fallback not applied: %+v", handoff)
	}
	if handoff.Country != "Sri Lanka" {
		t.Fatalf("country = %s", handoff.Country)
	}
	if handoff.Hash != client.ComputeHandoffHash(order.ID.String(), "1600.00") {
		t.Fatal("handoff hash does not match recomputation")
	}
	if strings.Contains(handoff.Hash, testSecret) {
		t.Fatal("raw secret leaked into payload")
	}
}

func TestCheckoutURLByMode(t *testing.T) {
	if got := newTestClient(t, "live").CheckoutURL(); got != "https://www.payhere.lk/pay/checkout" {
		t.Fatalf("live url = %s", got)
	}
	if got := newTestClient(t, "sandbox").CheckoutURL(); got != "https://sandbox.payhere.lk/pay/checkout" {
		t.Fatalf("sandbox url = %s", got)
	}
}

func TestVerifyNotification(t *testing.T) {
	client := newTestClient(t, "sandbox")

	valid := Notification{
		MerchantID: testMerchantID,
		OrderID:    "O1",
		Amount:     "250.00",
		Currency:   "LKR",
		StatusCode: StatusCodeSuccess,
		MD5Sig:     goldenNotifySuccess,
	}
	if err := client.VerifyNotification(valid); err != nil {
		t.Fatalf("valid signature rejected: %v", err)
	}

	// Case-insensitive comparison.
	lower := valid
	lower.MD5Sig = strings.ToLower(goldenNotifySuccess)
	if err := client.VerifyNotification(lower); err != nil {
		t.Fatalf("lowercase signature rejected: %v", err)
	}

	// The status code is part of the signed tuple.
	tampered := valid
	tampered.StatusCode = StatusCodePending
	err := client.VerifyNotification(tampered)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeSignatureMismatch {
		t.Fatalf("tampered status accepted: %v", err)
	}

	pending := valid
	pending.StatusCode = StatusCodePending
	pending.MD5Sig = goldenNotifyPending
	if err := client.VerifyNotification(pending); err != nil {
		t.Fatalf("pending signature rejected: %v", err)
	}

	forged := valid
	forged.Amount = "999.00"
	err = client.VerifyNotification(forged)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeSignatureMismatch {
		t.Fatalf("forged amount accepted: %v", err)
	}
}

func TestOutcomeMapping(t *testing.T) {
	cases := []struct {
		code       string
		want       enums.PaymentStatus
		recognized bool
	}{
		{StatusCodeSuccess, enums.PaymentStatusCompleted, true},
		{StatusCodePending, enums.PaymentStatusPending, true},
		{StatusCodeCancelled, enums.PaymentStatusFailed, true},
		{StatusCodeFailed, enums.PaymentStatusFailed, true},
		{StatusCodeChargedback, enums.PaymentStatusFailed, true},
		{"7", enums.PaymentStatusFailed, false},
		{"", enums.PaymentStatusFailed, false},
	}
	for _, tc := range cases {
		got, recognized := Outcome(tc.code)
		if got != tc.want || recognized != tc.recognized {
			t.Errorf("Outcome(%q) = (%s, %v), want (%s, %v)", tc.code, got, recognized, tc.want, tc.recognized)
		}
	}
}
