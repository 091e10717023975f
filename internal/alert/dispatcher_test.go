package alert

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/quocanhngo/otpwatch/internal/model"
	"github.com/quocanhngo/otpwatch/internal/repository"
	"github.com/quocanhngo/otpwatch/pkg/docstore"
	"github.com/quocanhngo/otpwatch/pkg/notification"
	"github.com/quocanhngo/otpwatch/pkg/sms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	got []notification.Message
	err error
}

func (r *recordingNotifier) Send(ctx context.Context, msg notification.Message) error {
	r.got = append(r.got, msg)
	return r.err
}

type fakeSMS struct {
	numbers  []string
	messages []string
	result   *sms.Result
	err      error
}

func (f *fakeSMS) Send(ctx context.Context, number, message string) (*sms.Result, error) {
	f.numbers = append(f.numbers, number)
	f.messages = append(f.messages, message)
	return f.result, f.err
}

func TestIsCritical(t *testing.T) {
	critical := []model.ErrorKind{
		model.ErrorKindSMSSendFailure,
		model.ErrorKindStoreConnection,
		model.ErrorKindAPIOutage,
		model.ErrorKindServiceUnavailable,
	}
	for _, k := range critical {
		assert.True(t, IsCritical(k), k)
	}
	assert.False(t, IsCritical(model.ErrorKindClient))
	assert.False(t, IsCritical(model.ErrorKindServer))
}

func TestRaiseCriticalAlert(t *testing.T) {
	store := docstore.NewMemoryStore()
	notifier := &recordingNotifier{}
	smsClient := &fakeSMS{result: &sms.Result{Success: true}}
	d := NewDispatcher(Config{
		Notifier:   notifier,
		SMS:        smsClient,
		Logs:       repository.NewHealthLogRepository(store),
		AdminPhone: "+8801700000000",
	})

	d.RaiseCriticalAlert(context.Background(), model.ErrorKindSMSSendFailure,
		errors.New("gateway timed out"), model.ErrorContext{PhoneNumber: "+15551234567", SessionID: "s-1"})

	require.Len(t, notifier.got, 1)
	msg := notifier.got[0]
	assert.Equal(t, "🚨 CRITICAL ERROR ALERT", msg.Title)
	assert.Equal(t, notification.ColorRed, msg.Color)
	require.Len(t, msg.Fields, 4)
	assert.Equal(t, "sms_send_failure", msg.Fields[0].Value)
	assert.Contains(t, msg.Fields[3].Value, "s-1")

	d.Wait(context.Background())
	assert.Equal(t, []string{"+8801700000000"}, smsClient.numbers)
	assert.Equal(t, "[OTP Server Alert] sms_send_failure: gateway timed out", smsClient.messages[0])
	assert.Equal(t, 1, store.Count("health_logs"))
}

func TestRaiseCriticalAlert_FailuresAreSwallowed(t *testing.T) {
	store := docstore.NewMemoryStore()
	d := NewDispatcher(Config{
		Notifier:   &recordingNotifier{err: errors.New("webhook down")},
		SMS:        &fakeSMS{err: sms.ErrTransport},
		Logs:       repository.NewHealthLogRepository(store),
		AdminPhone: "+8801700000000",
	})

	assert.NotPanics(t, func() {
		d.RaiseCriticalAlert(context.Background(), model.ErrorKindAPIOutage, errors.New("502"), model.ErrorContext{})
	})
	d.Wait(context.Background())
	assert.Equal(t, 1, store.Count("health_logs"), "alert is persisted even when delivery fails")
}

func TestRaiseCriticalAlert_DetachedFromCallerCancellation(t *testing.T) {
	notifier := &recordingNotifier{}
	var sawCanceled bool
	d := NewDispatcher(Config{Notifier: notificationFunc(func(ctx context.Context, msg notification.Message) error {
		sawCanceled = ctx.Err() != nil
		return notifier.Send(ctx, msg)
	})})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.RaiseCriticalAlert(ctx, model.ErrorKindStoreConnection, errors.New("unavailable"), model.ErrorContext{})

	assert.False(t, sawCanceled)
	assert.Len(t, notifier.got, 1)
}

type blockingSMS struct {
	release chan struct{}
	sent    chan string
}

func (b *blockingSMS) Send(ctx context.Context, number, message string) (*sms.Result, error) {
	select {
	case <-b.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	b.sent <- message
	return &sms.Result{Success: true}, nil
}

func TestRaiseCriticalAlert_AdminSMSDoesNotBlockCaller(t *testing.T) {
	store := docstore.NewMemoryStore()
	smsClient := &blockingSMS{release: make(chan struct{}), sent: make(chan string, 1)}
	d := NewDispatcher(Config{
		Notifier:   &recordingNotifier{},
		SMS:        smsClient,
		Logs:       repository.NewHealthLogRepository(store),
		AdminPhone: "+8801700000000",
		Timeout:    5 * time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	returned := make(chan struct{})
	go func() {
		d.RaiseCriticalAlert(ctx, model.ErrorKindSMSSendFailure, errors.New("gateway down"), model.ErrorContext{})
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("RaiseCriticalAlert waited for the admin SMS")
	}
	assert.Equal(t, 1, store.Count("health_logs"))

	cancel()
	close(smsClient.release)
	d.Wait(context.Background())
	assert.Equal(t, "[OTP Server Alert] sms_send_failure: gateway down", <-smsClient.sent,
		"caller cancellation does not abort the admin SMS")
}

func TestWait_HonorsContext(t *testing.T) {
	smsClient := &blockingSMS{release: make(chan struct{}), sent: make(chan string, 1)}
	d := NewDispatcher(Config{SMS: smsClient, AdminPhone: "+8801700000000"})
	d.RaiseCriticalAlert(context.Background(), model.ErrorKindAPIOutage, errors.New("x"), model.ErrorContext{})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	d.Wait(ctx)
	assert.Less(t, time.Since(start), time.Second)

	close(smsClient.release)
	d.Wait(context.Background())
}

func TestRaiseCriticalAlert_NoAdminPhone(t *testing.T) {
	smsClient := &fakeSMS{result: &sms.Result{Success: true}}
	d := NewDispatcher(Config{Notifier: &recordingNotifier{}, SMS: smsClient})

	d.RaiseCriticalAlert(context.Background(), model.ErrorKindAPIOutage, errors.New("x"), model.ErrorContext{})
	assert.Empty(t, smsClient.numbers)
}

func TestRaiseCriticalAlert_Cooldown(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	notifier := &recordingNotifier{}
	store := docstore.NewMemoryStore()
	d := NewDispatcher(Config{
		Notifier: notifier,
		Logs:     repository.NewHealthLogRepository(store),
		Cooldown: time.Minute,
		Now:      func() time.Time { return now },
	})
	ctx := context.Background()

	d.RaiseCriticalAlert(ctx, model.ErrorKindAPIOutage, errors.New("a"), model.ErrorContext{})
	d.RaiseCriticalAlert(ctx, model.ErrorKindAPIOutage, errors.New("b"), model.ErrorContext{})
	d.RaiseCriticalAlert(ctx, model.ErrorKindStoreConnection, errors.New("c"), model.ErrorContext{})
	assert.Len(t, notifier.got, 2, "second api_outage inside the cooldown is suppressed")

	now = now.Add(time.Minute)
	d.RaiseCriticalAlert(ctx, model.ErrorKindAPIOutage, errors.New("d"), model.ErrorContext{})
	assert.Len(t, notifier.got, 3)
	assert.Equal(t, 4, store.Count("health_logs"), "suppressed alerts are still persisted")
}

func TestRaiseCriticalAlert_NoCooldownSendsEvery(t *testing.T) {
	notifier := &recordingNotifier{}
	d := NewDispatcher(Config{Notifier: notifier})

	for i := 0; i < 3; i++ {
		d.RaiseCriticalAlert(context.Background(), model.ErrorKindAPIOutage, errors.New("x"), model.ErrorContext{})
	}
	assert.Len(t, notifier.got, 3)
}

type notificationFunc func(ctx context.Context, msg notification.Message) error

func (f notificationFunc) Send(ctx context.Context, msg notification.Message) error {
	return f(ctx, msg)
}
