package observability

import (
	"context"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	p := NoopPipelineHooks{}
	p.OnResolveStart(ctx, "app")
	p.OnResolveComplete(ctx, "app", 12, time.Second, nil)
	p.OnOptimizeComplete(ctx, 12, 9, time.Millisecond)
	p.OnLinkStart(ctx, 9)
	p.OnLinkComplete(ctx, 9, time.Second, nil)

	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "left-pad/1.3.0.tgz")
	c.OnCacheMiss(ctx, "left-pad/1.3.0.tgz")
	c.OnCacheSet(ctx, "left-pad/1.3.0.tgz", 1024)

	h := NoopHTTPHooks{}
	h.OnRequest(ctx, "GET", "registry.npmjs.org", "/left-pad")
	h.OnResponse(ctx, "GET", "registry.npmjs.org", "/left-pad", 200, time.Second)
	h.OnError(ctx, "GET", "registry.npmjs.org", "/left-pad", nil)
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()
	defer Reset()

	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Pipeline() should return NoopPipelineHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should return NoopHTTPHooks by default")
	}

	customPipeline := &testPipelineHooks{}
	SetPipelineHooks(customPipeline)
	if Pipeline() != customPipeline {
		t.Error("SetPipelineHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	customHTTP := &testHTTPHooks{}
	SetHTTPHooks(customHTTP)
	if HTTP() != customHTTP {
		t.Error("SetHTTPHooks should set custom hooks")
	}

	// nil is ignored
	SetHTTPHooks(nil)
	if HTTP() != customHTTP {
		t.Error("SetHTTPHooks(nil) should keep existing hooks")
	}

	Reset()
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("Reset() should restore defaults")
	}
}

func TestCustomHooksReceiveEvents(t *testing.T) {
	Reset()
	defer Reset()

	hooks := &testCacheHooks{}
	SetCacheHooks(hooks)

	ctx := context.Background()
	Cache().OnCacheHit(ctx, "a")
	Cache().OnCacheMiss(ctx, "b")
	Cache().OnCacheSet(ctx, "b", 10)

	if hooks.hits != 1 || hooks.misses != 1 || hooks.sets != 1 {
		t.Errorf("got hits=%d misses=%d sets=%d, want 1 each", hooks.hits, hooks.misses, hooks.sets)
	}
}

type testPipelineHooks struct{ NoopPipelineHooks }

type testCacheHooks struct {
	hits, misses, sets int
}

func (h *testCacheHooks) OnCacheHit(context.Context, string)      { h.hits++ }
func (h *testCacheHooks) OnCacheMiss(context.Context, string)     { h.misses++ }
func (h *testCacheHooks) OnCacheSet(context.Context, string, int) { h.sets++ }

type testHTTPHooks struct{ NoopHTTPHooks }
