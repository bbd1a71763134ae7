package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/restock-systems/stockwatch/common/logging"
	"github.com/restock-systems/stockwatch/common/messaging"
	"github.com/restock-systems/stockwatch/internal/models"
)

type mockDispatcher struct {
	mock.Mock
}

func (m *mockDispatcher) Dispatch(ctx context.Context, msg *models.NotificationMessage) (*models.DeliveryResult, error) {
	args := m.Called(ctx, msg)
	res, _ := args.Get(0).(*models.DeliveryResult)
	return res, args.Error(1)
}

func sugarAlert() *models.NotificationMessage {
	return &models.NotificationMessage{
		Title: "ALERT STOCK",
		Body:  "Bos, Sugar sisa 2 kg. Restock segera!",
		Topic: models.DefaultTopic,
		Data:  map[string]string{"product_id": "42", "status": "CRITICAL"},
	}
}

func TestDirectRelay(t *testing.T) {
	d := &mockDispatcher{}
	d.On("Dispatch", mock.Anything, sugarAlert()).Return(&models.DeliveryResult{Name: "m/1"}, nil)

	res, err := NewDirectRelay(d).Relay(context.Background(), sugarAlert())
	require.NoError(t, err)
	assert.Equal(t, "m/1", res.Name)
	d.AssertExpectations(t)
}

func TestHTTPRelay(t *testing.T) {
	var got models.PushRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer service-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"success":true,"fcm_response":{"name":"projects/p/messages/9"}}`))
	}))
	defer srv.Close()

	res, err := NewHTTPRelay(srv.URL, "service-key", time.Second).Relay(context.Background(), sugarAlert())
	require.NoError(t, err)
	assert.Equal(t, "projects/p/messages/9", res.Name)

	assert.Equal(t, "stock_alerts", got.Topic)
	assert.Equal(t, map[string]any{"product_id": "42", "status": "CRITICAL"}, got.Data)
}

func TestHTTPRelayFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		payload string
	}{
		{"server error", http.StatusInternalServerError, `{"error":"Missing FIREBASE_SERVICE_ACCOUNT"}`},
		{"unauthorized", http.StatusUnauthorized, `{"error":"unauthorized"}`},
		{"reported failure", http.StatusOK, `{"success":false,"error":"nope"}`},
		{"garbage", http.StatusOK, `<html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.payload))
			}))
			defer srv.Close()

			_, err := NewHTTPRelay(srv.URL, "k", time.Second).Relay(context.Background(), sugarAlert())
			assert.ErrorIs(t, err, models.ErrDelivery)
		})
	}
}

// memBus is an in-memory messaging.Client with synchronous request/reply.
type memBus struct {
	mu       sync.Mutex
	handlers map[string]messaging.MessageHandler
	replies  map[string]*messaging.Message
	seq      int
}

var _ messaging.Client = (*memBus)(nil)

func newMemBus() *memBus {
	return &memBus{handlers: map[string]messaging.MessageHandler{}, replies: map[string]*messaging.Message{}}
}

func (b *memBus) PublishMsg(_ context.Context, msg *messaging.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.replies[msg.Subject] = msg
	return nil
}

func (b *memBus) Request(ctx context.Context, subject string, data []byte, _ time.Duration) (*messaging.Message, error) {
	b.mu.Lock()
	h, ok := b.handlers[subject]
	b.seq++
	inbox := fmt.Sprintf("_INBOX.%d", b.seq)
	b.mu.Unlock()
	if !ok {
		return nil, errors.New("nats: no responders available for request")
	}

	if err := h(ctx, &messaging.Message{Subject: subject, Data: data, Reply: inbox}); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	reply, ok := b.replies[inbox]
	if !ok {
		return nil, context.DeadlineExceeded
	}
	return reply, nil
}

func (b *memBus) QueueSubscribe(subject, _ string, handler messaging.MessageHandler) (messaging.Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[subject] = handler
	return &memSub{bus: b, subject: subject}, nil
}

func (b *memBus) Drain() error      { return nil }
func (b *memBus) IsConnected() bool { return true }
func (b *memBus) Close() error      { return nil }

type memSub struct {
	bus     *memBus
	subject string
}

func (s *memSub) Unsubscribe() error {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	delete(s.bus.handlers, s.subject)
	return nil
}


func TestNATSRelayWithWorker(t *testing.T) {
	bus := newMemBus()
	d := &mockDispatcher{}
	d.On("Dispatch", mock.Anything, sugarAlert()).Return(&models.DeliveryResult{Name: "m/2", Attempts: 1}, nil).Once()

	w := NewWorker(bus, d, logging.Discard())
	require.NoError(t, w.Start())

	res, err := NewNATSRelay(bus, time.Second).Relay(context.Background(), sugarAlert())
	require.NoError(t, err)
	assert.Equal(t, "m/2", res.Name)
	d.AssertExpectations(t)

	require.NoError(t, w.Stop())
	_, err = NewNATSRelay(bus, time.Second).Relay(context.Background(), sugarAlert())
	assert.ErrorIs(t, err, models.ErrDelivery)
}

func TestNATSRelayPreservesErrorKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"delivery", &models.DeliveryError{StatusCode: 404, Body: "topic not found"}, models.ErrDelivery},
		{"exchange", fmt.Errorf("%w: invalid_grant", models.ErrAuthExchange), models.ErrAuthExchange},
		{"validation", fmt.Errorf("%w: title and body required", models.ErrValidation), models.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := newMemBus()
			d := &mockDispatcher{}
			d.On("Dispatch", mock.Anything, mock.Anything).Return(nil, tt.err)

			require.NoError(t, NewWorker(bus, d, logging.Discard()).Start())

			_, err := NewNATSRelay(bus, time.Second).Relay(context.Background(), sugarAlert())
			require.ErrorIs(t, err, tt.want)
			assert.Contains(t, err.Error(), tt.err.Error())
		})
	}
}

func TestWorkerRejectsMalformedRequest(t *testing.T) {
	bus := newMemBus()
	d := &mockDispatcher{}
	require.NoError(t, NewWorker(bus, d, logging.Discard()).Start())

	resp, err := bus.Request(context.Background(), messaging.SubjectStockAlertsDispatch, []byte(`{nope`), time.Second)
	require.NoError(t, err)

	var reply dispatchReply
	require.NoError(t, json.Unmarshal(resp.Data, &reply))
	assert.False(t, reply.Success)
	assert.Equal(t, kindValidation, reply.Kind)
	d.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
}
