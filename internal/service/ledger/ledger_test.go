package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

func testLogger() *log.Entry {
	logger := log.New()
	logger.SetLevel(log.PanicLevel)
	return logger.WithField("component", "ledger-test")
}

func sampleOrder(id string) domain.Order {
	customer := "1"
	return domain.Order{
		ID:   id,
		Date: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Items: []domain.OrderItem{
			{ProductID: "5", Title: "Lamp", Price: decimal.RequireFromString("25.00"), Quantity: 2},
		},
		Total:         decimal.RequireFromString("50.00"),
		Status:        domain.OrderStatusProcessing,
		PaymentMethod: domain.PaymentMethodPayPal,
		PaymentStatus: domain.PaymentStatusPending,
		CustomerID:    &customer,
		ShippingInfo:  domain.ShippingInfo{FirstName: "John", LastName: "Doe", Email: "john@example.com"},
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.OrderEvent
	err    error
}

func (p *recordingPublisher) PublishOrderEvent(_ context.Context, event domain.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

type failingBlobs struct {
	domain.BlobStore
	putErr error
}

func (f *failingBlobs) Put(context.Context, string, []byte) error {
	return f.putErr
}

func TestLedger_AddAndGet(t *testing.T) {
	ctx := context.Background()
	l := New(memory.NewBlobStore(), testLogger())

	require.NoError(t, l.Add(ctx, sampleOrder("ORD-1")))

	got, err := l.GetByID("ORD-1")
	require.NoError(t, err)
	assert.Equal(t, "ORD-1", got.ID)
	assert.True(t, got.Total.Equal(decimal.NewFromInt(50)))

	_, err = l.GetByID("ORD-404")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestLedger_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	l := New(nil, testLogger())

	require.NoError(t, l.Add(ctx, sampleOrder("ORD-1")))
	require.NoError(t, l.Add(ctx, sampleOrder("ORD-2")))
	require.NoError(t, l.Add(ctx, sampleOrder("ORD-3")))

	ids := make([]string, 0, 3)
	for _, o := range l.List() {
		ids = append(ids, o.ID)
	}
	assert.Equal(t, []string{"ORD-3", "ORD-2", "ORD-1"}, ids)
}

func TestLedger_DuplicateIDKeepsFirst(t *testing.T) {
	ctx := context.Background()
	l := New(memory.NewBlobStore(), testLogger())

	first := sampleOrder("ORD-1")
	require.NoError(t, l.Add(ctx, first))

	second := sampleOrder("ORD-1")
	second.Notes = "second"
	err := l.Add(ctx, second)

	assert.ErrorIs(t, err, domain.ErrOrderAlreadyExists)
	assert.Equal(t, 1, l.Len())
	got, _ := l.GetByID("ORD-1")
	assert.Empty(t, got.Notes)
}

func TestLedger_AddRejectsInvalidShape(t *testing.T) {
	ctx := context.Background()
	l := New(nil, testLogger())

	noID := sampleOrder("")
	noDate := sampleOrder("ORD-1")
	noDate.Date = time.Time{}
	noItems := sampleOrder("ORD-2")
	noItems.Items = nil

	for _, order := range []domain.Order{noID, noDate, noItems} {
		assert.ErrorIs(t, l.Add(ctx, order), domain.ErrInvalidOrder)
	}
	assert.Zero(t, l.Len())
}

func TestLedger_AddPersistFailureRollsBack(t *testing.T) {
	blobs := &failingBlobs{BlobStore: memory.NewBlobStore(), putErr: errors.New("quota exceeded")}
	l := New(blobs, testLogger())

	err := l.Add(context.Background(), sampleOrder("ORD-1"))

	assert.ErrorIs(t, err, domain.ErrPersistence)
	assert.Zero(t, l.Len())
	_, err = l.GetByID("ORD-1")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestLedger_ReturnedOrdersAreCopies(t *testing.T) {
	ctx := context.Background()
	l := New(nil, testLogger())

	order := sampleOrder("ORD-1")
	require.NoError(t, l.Add(ctx, order))
	order.Items[0].Quantity = 100

	got, _ := l.GetByID("ORD-1")
	got.Items[0].Title = "changed"
	*got.CustomerID = "other"

	again, _ := l.GetByID("ORD-1")
	assert.Equal(t, 2, again.Items[0].Quantity)
	assert.Equal(t, "Lamp", again.Items[0].Title)
	assert.Equal(t, "1", *again.CustomerID)
}

func TestLedger_PersistedLayout(t *testing.T) {
	ctx := context.Background()
	blobs := memory.NewBlobStore()
	l := New(blobs, testLogger())

	require.NoError(t, l.Add(ctx, sampleOrder("ORD-1")))

	raw, err := blobs.Get(ctx, domain.BlobKeyOrders)
	require.NoError(t, err)

	var records []map[string]any
	require.NoError(t, json.Unmarshal(raw, &records))
	require.Len(t, records, 1)
	assert.Equal(t, "ORD-1", records[0]["id"])
	assert.Equal(t, float64(50), records[0]["total"], "total must be stored as a JSON number")
	assert.Equal(t, "processing", records[0]["status"])

	items := records[0]["items"].([]any)
	assert.Equal(t, float64(25), items[0].(map[string]any)["price"])
}

func TestLedger_LoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	blobs := memory.NewBlobStore()

	first := New(blobs, testLogger())
	require.NoError(t, first.Add(ctx, sampleOrder("ORD-1")))
	require.NoError(t, first.Add(ctx, sampleOrder("ORD-2")))

	second := New(blobs, testLogger())
	require.NoError(t, second.Load(ctx))

	orders := second.List()
	require.Len(t, orders, 2)
	assert.Equal(t, "ORD-2", orders[0].ID)
	assert.True(t, orders[1].Total.Equal(decimal.NewFromInt(50)))
	assert.Empty(t, second.Notice())
}

func TestLedger_LoadCorruptDiscardsEverything(t *testing.T) {
	ctx := context.Background()

	cases := map[string]string{
		"not json":       `[{"id":`,
		"not an array":   `{"id":"ORD-1"}`,
		"missing date":   `[{"id":"ORD-1","items":[],"total":1}]`,
		"missing items":  `[{"id":"ORD-1","date":"2026-03-01T12:00:00Z","total":1}]`,
		"string total":   `[{"id":"ORD-1","date":"2026-03-01T12:00:00Z","items":[],"total":"1"}]`,
		"one bad of two": `[{"id":"ORD-2","date":"2026-03-01T12:00:00Z","items":[],"total":0},{"date":"2026-03-01T12:00:00Z","items":[],"total":1}]`,
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			blobs := memory.NewBlobStore()
			require.NoError(t, blobs.Put(ctx, domain.BlobKeyOrders, []byte(raw)))

			l := New(blobs, testLogger())
			err := l.Load(ctx)

			assert.ErrorIs(t, err, domain.ErrPersistence)
			assert.Empty(t, l.List())
			assert.Equal(t, NoticeHistoryUnavailable, l.Notice())

			_, getErr := blobs.Get(ctx, domain.BlobKeyOrders)
			assert.ErrorIs(t, getErr, domain.ErrBlobNotFound)
		})
	}
}

func TestLedger_LoadSkipsDuplicates(t *testing.T) {
	ctx := context.Background()
	blobs := memory.NewBlobStore()
	raw := `[
		{"id":"ORD-1","date":"2026-03-01T12:00:00Z","items":[],"total":0,"notes":"first"},
		{"id":"ORD-1","date":"2026-03-01T12:00:00Z","items":[],"total":0,"notes":"second"}
	]`
	require.NoError(t, blobs.Put(ctx, domain.BlobKeyOrders, []byte(raw)))

	l := New(blobs, testLogger())
	require.NoError(t, l.Load(ctx))

	orders := l.List()
	require.Len(t, orders, 1)
	assert.Equal(t, "first", orders[0].Notes)
}

func TestLedger_LoadMissingBlob(t *testing.T) {
	l := New(memory.NewBlobStore(), testLogger())

	require.NoError(t, l.Load(context.Background()))
	assert.Zero(t, l.Len())
	assert.Empty(t, l.Notice())
}

func TestLedger_UpdateStatus(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		path    []domain.OrderStatus
		wantErr error
	}{
		{name: "forward", path: []domain.OrderStatus{domain.OrderStatusShipped, domain.OrderStatusDelivered}},
		{name: "same status is noop", path: []domain.OrderStatus{domain.OrderStatusProcessing}},
		{name: "cancel from shipped", path: []domain.OrderStatus{domain.OrderStatusShipped, domain.OrderStatusCancelled}},
		{name: "backwards", path: []domain.OrderStatus{domain.OrderStatusShipped, domain.OrderStatusProcessing}, wantErr: domain.ErrInvalidStatusTransition},
		{name: "cancel delivered", path: []domain.OrderStatus{domain.OrderStatusShipped, domain.OrderStatusDelivered, domain.OrderStatusCancelled}, wantErr: domain.ErrInvalidStatusTransition},
		{name: "unknown status", path: []domain.OrderStatus{"lost"}, wantErr: domain.ErrInvalidStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New(memory.NewBlobStore(), testLogger())
			require.NoError(t, l.Add(ctx, sampleOrder("ORD-1")))

			var err error
			for _, status := range tt.path {
				if _, err = l.UpdateStatus(ctx, "ORD-1", status); err != nil {
					break
				}
			}

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			got, _ := l.GetByID("ORD-1")
			assert.Equal(t, tt.path[len(tt.path)-1], got.Status)
		})
	}
}

func TestLedger_UpdateStatusUnknownOrder(t *testing.T) {
	l := New(nil, testLogger())

	_, err := l.Cancel(context.Background(), "ORD-404")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestLedger_UpdateStatusPersists(t *testing.T) {
	ctx := context.Background()
	blobs := memory.NewBlobStore()
	l := New(blobs, testLogger())
	require.NoError(t, l.Add(ctx, sampleOrder("ORD-1")))

	_, err := l.Cancel(ctx, "ORD-1")
	require.NoError(t, err)

	reloaded := New(blobs, testLogger())
	require.NoError(t, reloaded.Load(ctx))
	got, err := reloaded.GetByID("ORD-1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, got.Status)
}

func TestLedger_ListByCustomer(t *testing.T) {
	ctx := context.Background()
	l := New(nil, testLogger())

	guest := sampleOrder("ORD-guest")
	guest.CustomerID = nil
	require.NoError(t, l.Add(ctx, sampleOrder("ORD-1")))
	require.NoError(t, l.Add(ctx, guest))

	mine := l.ListByCustomer("1")
	require.Len(t, mine, 1)
	assert.Equal(t, "ORD-1", mine[0].ID)
	assert.Empty(t, l.ListByCustomer("2"))
}

func TestLedger_Clear(t *testing.T) {
	ctx := context.Background()
	blobs := memory.NewBlobStore()
	l := New(blobs, testLogger())
	require.NoError(t, l.Add(ctx, sampleOrder("ORD-1")))

	require.NoError(t, l.Clear(ctx))

	assert.Zero(t, l.Len())
	_, err := blobs.Get(ctx, domain.BlobKeyOrders)
	assert.ErrorIs(t, err, domain.ErrBlobNotFound)
}

func TestLedger_EventsAndSubscribers(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	publisher := &recordingPublisher{err: errors.New("broker down")}
	l := New(nil, testLogger(), WithPublisher(publisher), WithClock(func() time.Time { return fixed }))

	var seen []domain.OrderEventType
	unsubscribe := l.Subscribe(func(e domain.OrderEvent) { seen = append(seen, e.Type) })

	require.NoError(t, l.Add(ctx, sampleOrder("ORD-1")))
	_, err := l.UpdateStatus(ctx, "ORD-1", domain.OrderStatusShipped)
	require.NoError(t, err)
	_, err = l.Cancel(ctx, "ORD-1")
	require.NoError(t, err)
	unsubscribe()
	require.NoError(t, l.Clear(ctx))

	assert.Equal(t, []domain.OrderEventType{
		domain.OrderEventCreated,
		domain.OrderEventStatusChanged,
		domain.OrderEventCanceled,
	}, seen)

	require.Len(t, publisher.events, 4)
	created := publisher.events[0]
	assert.Equal(t, "ORD-1", created.OrderID)
	assert.Equal(t, "1", created.CustomerID)
	assert.Equal(t, "50.00", created.Total)
	assert.Equal(t, fixed, created.OccurredAt)
	assert.Equal(t, domain.OrderEventsCleared, publisher.events[3].Type)
}

func TestLedger_ConcurrentReadsDuringWrites(t *testing.T) {
	ctx := context.Background()
	l := New(memory.NewBlobStore(), testLogger())
	require.NoError(t, l.Add(ctx, sampleOrder("ORD-0")))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			_ = l.Add(ctx, sampleOrder("ORD-"+string(rune('A'+n))))
		}(i)
		go func() {
			defer wg.Done()
			_, _ = l.GetByID("ORD-0")
			_ = l.List()
		}()
	}
	wg.Wait()

	assert.Equal(t, 21, l.Len())
}
