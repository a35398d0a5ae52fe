package worker

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendlog/internal/amqp"
	"spendlog/internal/core"
	"spendlog/internal/ports/memory"
)

type fakeExporter struct {
	mu       sync.Mutex
	exported []string
	removed  []string
	err      error
	active   atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
}

func (f *fakeExporter) ExportLog(_ context.Context, l core.Log) error {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(f.delay)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.exported = append(f.exported, l.Title)
	return nil
}

func (f *fakeExporter) RemoveLog(_ context.Context, logID, title string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.removed = append(f.removed, logID+"/"+title)
	return nil
}

func seed(t *testing.T, repo *memory.Store, owner string, titles ...string) []string {
	t.Helper()
	var ids []string
	for _, title := range titles {
		l, err := core.NewLog(title, owner, time.Now())
		require.NoError(t, err)
		id, err := repo.Create(context.Background(), owner, l)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func TestHandleChange(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	exp := &fakeExporter{}
	w := NewExportWorker(repo, exp, 1, nil)
	ids := seed(t, repo, "u1", "Trip")

	require.NoError(t, w.HandleChange(ctx, core.LogChange{LogID: ids[0], Kind: core.LogUpdated}))
	assert.Equal(t, []string{"Trip"}, exp.exported)

	require.NoError(t, w.HandleChange(ctx, core.LogChange{LogID: ids[0], Title: "Trip", Kind: core.LogDeleted}))
	assert.Equal(t, []string{ids[0] + "/Trip"}, exp.removed)

	// vanished logs are skipped, not retried
	require.NoError(t, w.HandleChange(ctx, core.LogChange{LogID: "gone", Kind: core.LogCreated}))
	assert.Len(t, exp.exported, 1)

	exp.err = errors.New("quota exceeded")
	err := w.HandleChange(ctx, core.LogChange{LogID: ids[0], Kind: core.LogUpdated})
	assert.ErrorIs(t, err, exp.err)
}

func TestBackfillExportsEveryOwnersLogsWithinLimit(t *testing.T) {
	repo := memory.New()
	seed(t, repo, "u1", "A", "B", "C")
	seed(t, repo, "u2", "D", "E")
	seed(t, repo, "u3", "ignored")

	exp := &fakeExporter{delay: 10 * time.Millisecond}
	w := NewExportWorker(repo, exp, 2, nil)
	require.NoError(t, w.Backfill(context.Background(), []string{"u1", "u2"}))

	got := append([]string(nil), exp.exported...)
	sort.Strings(got)
	assert.Equal(t, []string{"A", "B", "C", "D", "E"}, got)
	assert.LessOrEqual(t, exp.peak.Load(), int32(2))
}

func TestBackfillReturnsExportError(t *testing.T) {
	repo := memory.New()
	seed(t, repo, "u1", "A")
	exp := &fakeExporter{err: errors.New("boom")}

	err := NewExportWorker(repo, exp, 4, nil).Backfill(context.Background(), []string{"u1"})
	assert.ErrorIs(t, err, exp.err)
}

type fakeConsumer struct {
	messages []*amqp.LogChangeMessage
	errs     []error
}

func (c *fakeConsumer) ConsumeLogChanges(ctx context.Context, handler amqp.Handler) error {
	for _, m := range c.messages {
		c.errs = append(c.errs, handler(ctx, m))
	}
	return context.Canceled
}

func TestRunBackfillsThenConsumes(t *testing.T) {
	repo := memory.New()
	ids := seed(t, repo, "u1", "A")
	exp := &fakeExporter{}
	consumer := &fakeConsumer{messages: []*amqp.LogChangeMessage{
		{LogID: ids[0], OwnerID: "u1", Kind: core.LogUpdated},
	}}

	err := NewExportWorker(repo, exp, 1, nil).Run(context.Background(), consumer, []string{"u1"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"A", "A"}, exp.exported)
	assert.Equal(t, []error{nil}, consumer.errs)
}
