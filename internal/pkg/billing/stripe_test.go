package billing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
)

type capturedRequest struct {
	path           string
	authorization  string
	idempotencyKey string
	form           map[string]string
}

func newStripeBackend(t *testing.T, status int, body string) (*httptest.Server, *[]capturedRequest) {
	t.Helper()
	var (
		mu       sync.Mutex
		captured []capturedRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		form := map[string]string{}
		for k := range r.PostForm {
			form[k] = r.PostForm.Get(k)
		}
		mu.Lock()
		captured = append(captured, capturedRequest{
			path:           r.URL.Path,
			authorization:  r.Header.Get("Authorization"),
			idempotencyKey: r.Header.Get("Idempotency-Key"),
			form:           form,
		})
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &captured
}

func testSessionRequest() SessionRequest {
	return SessionRequest{
		Item: LineItem{
			Name:        "Pro",
			Description: "Pro plan",
			UnitAmount:  1999,
			Currency:    "usd",
		},
		CustomerEmail:  "ana@example.com",
		Metadata:       Metadata{MembershipID: 3, MembershipName: "Pro", UserID: 7, UserEmail: "ana@example.com"},
		IdempotencyKey: "idem-1",
	}
}

func TestStripeGatewayCreatesCheckoutSession(t *testing.T) {
	srv, captured := newStripeBackend(t, http.StatusOK,
		`{"id":"cs_test_1","object":"checkout.session","url":"https://checkout.stripe.com/c/pay/cs_test_1"}`)

	gw := NewStripeGateway(StripeConfig{
		SecretKey:  "sk_test_123",
		SuccessURL: "https://app.example.com/success",
		CancelURL:  "https://app.example.com/cancel",
		Timeout:    2 * time.Second,
		APIURL:     srv.URL,
	})

	sess, err := gw.CreateCheckoutSession(context.Background(), testSessionRequest())
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", sess.ID)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_1", sess.URL)

	require.Len(t, *captured, 1)
	req := (*captured)[0]
	assert.Equal(t, "/v1/checkout/sessions", req.path)
	assert.Equal(t, "Bearer sk_test_123", req.authorization)
	assert.Equal(t, "idem-1", req.idempotencyKey)
	assert.Equal(t, "payment", req.form["mode"])
	assert.Equal(t, "ana@example.com", req.form["customer_email"])
	assert.Equal(t, "1999", req.form["line_items[0][price_data][unit_amount]"])
	assert.Equal(t, "usd", req.form["line_items[0][price_data][currency]"])
	assert.Equal(t, "Pro", req.form["line_items[0][price_data][product_data][name]"])
	assert.Equal(t, "1", req.form["line_items[0][quantity]"])
	assert.Equal(t, "3", req.form["metadata[membresia_id]"])
	assert.Equal(t, "7", req.form["metadata[usuario_id]"])
	assert.Equal(t, "3", req.form["payment_intent_data[metadata][membresia_id]"])
	assert.Equal(t, "7", req.form["payment_intent_data[metadata][usuario_id]"])
}

func TestStripeGatewayUsesStoredPrice(t *testing.T) {
	srv, captured := newStripeBackend(t, http.StatusOK,
		`{"id":"cs_test_2","object":"checkout.session","url":"https://checkout.stripe.com/c/pay/cs_test_2"}`)
	gw := NewStripeGateway(StripeConfig{SecretKey: "sk_test_123", APIURL: srv.URL})

	req := testSessionRequest()
	req.Item.PriceRef = "price_pro"
	_, err := gw.CreateCheckoutSession(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, *captured, 1)
	form := (*captured)[0].form
	assert.Equal(t, "price_pro", form["line_items[0][price]"])
	_, hasInline := form["line_items[0][price_data][unit_amount]"]
	assert.False(t, hasInline)
}

func TestStripeGatewayMapsErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		code   string
		http   int
	}{
		{
			name:   "card declined",
			status: http.StatusPaymentRequired,
			body:   `{"error":{"type":"card_error","code":"card_declined","message":"Your card was declined."}}`,
			code:   CodeCardDeclined,
			http:   http.StatusPaymentRequired,
		},
		{
			name:   "rate limited",
			status: http.StatusTooManyRequests,
			body:   `{"error":{"type":"invalid_request_error","code":"rate_limit","message":"Too many requests"}}`,
			code:   CodeRateLimited,
			http:   http.StatusTooManyRequests,
		},
		{
			name:   "bad key",
			status: http.StatusUnauthorized,
			body:   `{"error":{"type":"invalid_request_error","message":"Invalid API Key provided"}}`,
			code:   CodeAuthenticationFailed,
			http:   http.StatusBadGateway,
		},
		{
			name:   "invalid request",
			status: http.StatusBadRequest,
			body:   `{"error":{"type":"invalid_request_error","code":"parameter_missing","message":"Missing required param"}}`,
			code:   CodeInvalidRequest,
			http:   http.StatusBadRequest,
		},
		{
			name:   "stripe outage",
			status: http.StatusInternalServerError,
			body:   `{"error":{"type":"api_error","message":"Something went wrong"}}`,
			code:   CodeGatewayUnavailable,
			http:   http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, captured := newStripeBackend(t, tt.status, tt.body)
			gw := NewStripeGateway(StripeConfig{SecretKey: "sk_test_123", APIURL: srv.URL})

			_, err := gw.CreateCheckoutSession(context.Background(), testSessionRequest())
			require.Error(t, err)
			assert.Equal(t, KindGateway, KindOf(err))
			assert.Equal(t, tt.code, Code(err))
			assert.Equal(t, tt.http, HTTPStatus(err))
			assert.Len(t, *captured, 1, "gateway calls must not be retried")
		})
	}
}

func TestMapGatewayErrorTransportFailure(t *testing.T) {
	err := mapGatewayError(context.DeadlineExceeded)
	assert.Equal(t, CodeGatewayUnavailable, Code(err))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	err = mapGatewayError(&stripe.Error{Type: stripe.ErrorTypeCard, Msg: "declined"})
	assert.Equal(t, CodeCardDeclined, Code(err))
}
