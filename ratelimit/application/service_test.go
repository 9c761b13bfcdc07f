package application

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"crpt-gateway/ratelimit/domain"
	"crpt-gateway/ratelimit/infra"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeGate struct {
	mu       sync.Mutex
	err      error
	acquired int
	events   *[]string
}

func (g *fakeGate) Acquire(context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.acquired++
	if g.events != nil {
		*g.events = append(*g.events, "acquire")
	}
	return g.err
}

func (g *fakeGate) Shutdown() {}

type fakeTransport struct {
	res       domain.Result
	err       error
	calls     int
	payload   []byte
	signature string
	events    *[]string
}

func (f *fakeTransport) Send(_ context.Context, payload []byte, signature string) (domain.Result, error) {
	f.calls++
	f.payload = payload
	f.signature = signature
	if f.events != nil {
		*f.events = append(*f.events, "send")
	}
	return f.res, f.err
}

type failingStats struct{ calls int }

func (s *failingStats) Record(context.Context, domain.StatsEvent) error {
	s.calls++
	return errors.New("redis down")
}

func sampleDocument() domain.Document {
	return domain.Document{
		Description:    domain.Description{ParticipantINN: "string"},
		DocID:          "string",
		DocStatus:      "string",
		DocType:        "LP_INTRODUCE_GOODS",
		ImportRequest:  true,
		OwnerINN:       "string",
		ParticipantINN: "string",
		ProducerINN:    "string",
		ProductionDate: "2020-01-23",
		ProductionType: "string",
		Products: []domain.Product{{
			CertificateDocument:       "string",
			CertificateDocumentDate:   "2020-01-23",
			CertificateDocumentNumber: "string",
			OwnerINN:                  "string",
			ProducerINN:               "string",
			ProductionDate:            "2020-01-23",
			TnvedCode:                 "string",
			UitCode:                   "string",
			UituCode:                  "string",
		}},
		RegDate:   "2020-01-23",
		RegNumber: "string",
	}
}

func TestDocumentService_Create_AcquiresThenSendsOnce(t *testing.T) {
	var events []string
	gate := &fakeGate{events: &events}
	tr := &fakeTransport{res: domain.Result{StatusCode: 200}, events: &events}
	core, logs := observer.New(zap.InfoLevel)

	svc := DocumentService{Gate: gate, Transport: tr, Logger: zap.New(core)}
	res, err := svc.Create(context.Background(), sampleDocument(), "test-signature")
	require.NoError(t, err)
	assert.Equal(t, 200, res.StatusCode)

	assert.Equal(t, []string{"acquire", "send"}, events)
	assert.Equal(t, 1, tr.calls)
	assert.Equal(t, "test-signature", tr.signature)
	assert.Contains(t, string(tr.payload), `"doc_type":"LP_INTRODUCE_GOODS"`)
	assert.Contains(t, string(tr.payload), `"participantInn":"string"`)
	assert.Contains(t, string(tr.payload), `"importRequest":true`)

	assert.Equal(t, 1, logs.FilterMessage("attempting to create document").Len())
	assert.Equal(t, 1, logs.FilterMessage("document created successfully").Len())
}

func TestDocumentService_Create_NonSuccessStatus(t *testing.T) {
	tr := &fakeTransport{res: domain.Result{StatusCode: 500, Body: []byte("Internal Server Error")}}
	core, logs := observer.New(zap.InfoLevel)

	svc := DocumentService{Gate: &fakeGate{}, Transport: tr, Logger: zap.New(core)}
	res, err := svc.Create(context.Background(), sampleDocument(), "sig")

	var statusErr *domain.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 500, statusErr.StatusCode)
	assert.Equal(t, "failed to create document: Internal Server Error", err.Error())
	assert.Equal(t, 500, res.StatusCode)
	assert.Equal(t, 1, logs.FilterMessage("failed to create document: Internal Server Error").Len())
}

func TestDocumentService_Create_TransportErrorPropagates(t *testing.T) {
	ioErr := errors.New("connection refused")
	tr := &fakeTransport{err: ioErr}

	svc := DocumentService{Gate: &fakeGate{}, Transport: tr}
	_, err := svc.Create(context.Background(), sampleDocument(), "sig")
	require.ErrorIs(t, err, ioErr)
	assert.Equal(t, 1, tr.calls, "no automatic retry")
}

func TestDocumentService_Create_InvalidDocumentNeverReachesGate(t *testing.T) {
	gate := &fakeGate{}
	tr := &fakeTransport{}

	doc := sampleDocument()
	doc.DocType = ""
	svc := DocumentService{Gate: gate, Transport: tr}
	_, err := svc.Create(context.Background(), doc, "sig")
	require.ErrorIs(t, err, domain.ErrInvalidDocument)
	assert.Zero(t, gate.acquired)
	assert.Zero(t, tr.calls)
}

func TestDocumentService_Create_AcquireErrorSkipsTransport(t *testing.T) {
	gate := &fakeGate{err: domain.ErrGateClosed}
	tr := &fakeTransport{}
	stats := &failingStats{}

	svc := DocumentService{Gate: gate, Transport: tr, Stats: stats}
	_, err := svc.Create(context.Background(), sampleDocument(), "sig")
	require.ErrorIs(t, err, domain.ErrGateClosed)
	assert.Zero(t, tr.calls)
	assert.Equal(t, 1, stats.calls, "stats failures are best-effort")
}

func TestDocumentService_Create_RequiresTransport(t *testing.T) {
	svc := DocumentService{Gate: &fakeGate{}}
	_, err := svc.Create(context.Background(), sampleDocument(), "sig")
	require.Error(t, err)
}

func TestDocumentService_Create_RequiresGate(t *testing.T) {
	tr := &fakeTransport{res: domain.Result{StatusCode: 200}}
	svc := DocumentService{Transport: tr}
	_, err := svc.Create(context.Background(), sampleDocument(), "sig")
	require.Error(t, err)
	assert.Zero(t, tr.calls, "unthrottled send must not happen")
}

func TestDocumentService_Create_NoSlotLeavesGateUntouched(t *testing.T) {
	gate := &fakeGate{}
	tr := &fakeTransport{res: domain.Result{StatusCode: 200}}
	svc := DocumentService{
		Gate:      gate,
		Transport: tr,
		InFlight:  ConcurrencyService{Pool: &blockingPool{}, AcquireTimeout: 5 * time.Millisecond},
	}
	_, err := svc.Create(context.Background(), sampleDocument(), "sig")
	require.ErrorIs(t, err, ErrNoSlot)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, gate.acquired, "slot is taken before admission")
	assert.Zero(t, tr.calls)
}

type slowTransport struct {
	sends atomic.Int32
	delay time.Duration
}

func (s *slowTransport) Send(ctx context.Context, _ []byte, _ string) (domain.Result, error) {
	s.sends.Add(1)
	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
	}
	return domain.Result{StatusCode: 200}, nil
}

func TestDocumentService_Create_EveryAdmissionIsSent(t *testing.T) {
	gate, err := infra.NewWindowGate(time.Hour, 2)
	require.NoError(t, err)
	defer gate.Shutdown()

	tr := &slowTransport{delay: 100 * time.Millisecond}
	svc := DocumentService{
		Gate:      gate,
		Transport: tr,
		InFlight:  ConcurrencyService{Pool: infra.NewChanPool(1), AcquireTimeout: 20 * time.Millisecond},
	}

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Create(context.Background(), sampleDocument(), "sig")
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, gate.Count(), tr.sends.Load(), "admissions and sends must match")
	assert.EqualValues(t, 1, tr.sends.Load())

	var failed int
	for _, err := range errs {
		if err != nil {
			failed++
			assert.ErrorIs(t, err, ErrNoSlot)
		}
	}
	assert.Equal(t, 1, failed)
}
