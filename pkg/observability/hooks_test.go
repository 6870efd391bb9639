package observability

import (
	"context"
	"testing"
	"time"
)

type recordingArrangeHooks struct {
	NoopArrangeHooks
	starts    int
	completes int
}

func (h *recordingArrangeHooks) OnArrangeStart(ctx context.Context, mode string, groupCount int) {
	h.starts++
}

func (h *recordingArrangeHooks) OnArrangeComplete(ctx context.Context, mode string, columns, restarts int, duration time.Duration, err error) {
	h.completes++
}

type recordingCacheHooks struct {
	NoopCacheHooks
	hits   int
	misses int
}

func (h *recordingCacheHooks) OnCacheHit(ctx context.Context, keyType string)  { h.hits++ }
func (h *recordingCacheHooks) OnCacheMiss(ctx context.Context, keyType string) { h.misses++ }

func TestHookRegistration(t *testing.T) {
	t.Cleanup(Reset)

	ctx := context.Background()

	rec := &recordingArrangeHooks{}
	SetArrangeHooks(rec)

	Arrange().OnArrangeStart(ctx, "columns", 4)
	Arrange().OnArrangeComplete(ctx, "columns", 3, 0, time.Millisecond, nil)

	if rec.starts != 1 || rec.completes != 1 {
		t.Errorf("starts=%d completes=%d, want 1 and 1", rec.starts, rec.completes)
	}

	crec := &recordingCacheHooks{}
	SetCacheHooks(crec)
	Cache().OnCacheHit(ctx, "layout")
	Cache().OnCacheMiss(ctx, "artifact")
	if crec.hits != 1 || crec.misses != 1 {
		t.Errorf("hits=%d misses=%d, want 1 and 1", crec.hits, crec.misses)
	}
}

func TestSetNilHooksKeepsCurrent(t *testing.T) {
	t.Cleanup(Reset)

	rec := &recordingArrangeHooks{}
	SetArrangeHooks(rec)
	SetArrangeHooks(nil)

	Arrange().OnArrangeStart(context.Background(), "columns", 1)
	if rec.starts != 1 {
		t.Errorf("starts=%d, want 1 (nil registration must not replace hooks)", rec.starts)
	}
}

func TestResetRestoresNoops(t *testing.T) {
	rec := &recordingArrangeHooks{}
	SetArrangeHooks(rec)
	Reset()

	Arrange().OnArrangeStart(context.Background(), "columns", 1)
	if rec.starts != 0 {
		t.Errorf("starts=%d, want 0 after Reset", rec.starts)
	}
}
