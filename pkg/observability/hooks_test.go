package observability

import (
	"context"
	"testing"
	"time"
)

type recordingGeneration struct {
	NoopGenerationHooks
	stages []string
}

func (r *recordingGeneration) OnStageStart(_ context.Context, stage string) {
	r.stages = append(r.stages, stage)
}

type recordingCache struct {
	NoopCacheHooks
	hits, misses int
}

func (r *recordingCache) OnCacheHit(context.Context, string)  { r.hits++ }
func (r *recordingCache) OnCacheMiss(context.Context, string) { r.misses++ }

func TestDefaultsAreNoop(t *testing.T) {
	Reset()
	ctx := context.Background()
	// Must not panic.
	Generation().OnGenerateStart(ctx, "id", 42)
	Generation().OnStageStart(ctx, "partition")
	Generation().OnStageComplete(ctx, "partition", time.Millisecond, nil)
	Generation().OnGenerateComplete(ctx, "id", 8, 9, time.Millisecond, nil)
	Cache().OnCacheHit(ctx, "layout")
	Cache().OnCacheMiss(ctx, "layout")
	Cache().OnCacheSet(ctx, "layout", 128)
}

func TestRegisteredHooksReceiveEvents(t *testing.T) {
	defer Reset()
	gen := &recordingGeneration{}
	ca := &recordingCache{}
	SetGenerationHooks(gen)
	SetCacheHooks(ca)

	ctx := context.Background()
	Generation().OnStageStart(ctx, "partition")
	Generation().OnStageStart(ctx, "classify")
	Cache().OnCacheHit(ctx, "layout")
	Cache().OnCacheMiss(ctx, "layout")
	Cache().OnCacheMiss(ctx, "layout")

	if len(gen.stages) != 2 || gen.stages[0] != "partition" || gen.stages[1] != "classify" {
		t.Fatalf("stages: %v", gen.stages)
	}
	if ca.hits != 1 || ca.misses != 2 {
		t.Fatalf("cache counts: hits=%d misses=%d", ca.hits, ca.misses)
	}
}

func TestNilRegistrationIgnored(t *testing.T) {
	defer Reset()
	SetGenerationHooks(nil)
	SetCacheHooks(nil)
	if Generation() == nil || Cache() == nil {
		t.Fatal("nil registration replaced the defaults")
	}
}

func TestResetRestoresDefaults(t *testing.T) {
	gen := &recordingGeneration{}
	SetGenerationHooks(gen)
	Reset()
	Generation().OnStageStart(context.Background(), "partition")
	if len(gen.stages) != 0 {
		t.Fatal("reset did not detach the custom hooks")
	}
}
