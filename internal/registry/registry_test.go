package registry

import (
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/DeusData/schemamemo/internal/schemawrap"
)

func TestRegisterWithoutInstall(t *testing.T) {
	Reset()
	if Installed() {
		t.Fatal("Installed() = true after Reset")
	}
	_, err := Register("k", func() any { return 1 })
	if !errors.Is(err, ErrNotInstalled) {
		t.Fatalf("err = %v, want ErrNotInstalled", err)
	}
	if !strings.Contains(err.Error(), "no schema-builder registration function installed") {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestRegisterForwardsToInstalled(t *testing.T) {
	t.Cleanup(Reset)
	var seen []string
	Install(func(key string, build Thunk) any {
		seen = append(seen, key)
		return build()
	})

	v, err := Register("abc", func() any { return "schema" })
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if v != "schema" {
		t.Errorf("value = %v, want schema", v)
	}
	if len(seen) != 1 || seen[0] != "abc" {
		t.Errorf("installed function saw %v", seen)
	}
}

func TestCacheBuildsOncePerKey(t *testing.T) {
	t.Cleanup(Reset)
	c := NewCache()
	Install(c.Build)

	var builds atomic.Int32
	build := func() any {
		builds.Add(1)
		return &struct{ n int }{n: 1}
	}

	first, _ := Register("k1", build)
	second, _ := Register("k1", build)
	if first != second {
		t.Error("same key returned different values")
	}
	if _, err := Register("k2", build); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if got := builds.Load(); got != 2 {
		t.Errorf("builds = %d, want 2", got)
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
	if v, ok := c.Get("k1"); !ok || v != first {
		t.Errorf("Get(k1) = %v, %v", v, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Error("Get(missing) reported a value")
	}
}

func TestCacheConcurrentRegistrations(t *testing.T) {
	c := NewCache()
	var builds atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Build("shared", func() any {
				builds.Add(1)
				return "v"
			})
		}()
	}
	wg.Wait()
	if got := builds.Load(); got != 1 {
		t.Errorf("builds = %d, want 1", got)
	}
}

func TestCacheGetDuringBuild(t *testing.T) {
	c := NewCache()
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan any)
	go func() {
		done <- c.Build("k", func() any {
			close(started)
			<-release
			return "schema"
		})
	}()

	<-started
	if v, ok := c.Get("k"); ok {
		t.Errorf("Get during build = %v, true; want false", v)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
	close(release)

	if v := <-done; v != "schema" {
		t.Errorf("Build = %v, want schema", v)
	}
	if v, ok := c.Get("k"); !ok || v != "schema" {
		t.Errorf("Get after build = %v, %v", v, ok)
	}
}

func TestCacheWaitersShareBuild(t *testing.T) {
	c := NewCache()
	started := make(chan struct{})
	release := make(chan struct{})
	go c.Build("k", func() any {
		close(started)
		<-release
		return 42
	})
	<-started

	var wg sync.WaitGroup
	results := make([]any, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = c.Build("k", func() any { return -1 })
		}()
	}
	close(release)
	wg.Wait()
	for i, v := range results {
		if v != 42 {
			t.Errorf("waiter %d got %v, want 42", i, v)
		}
	}
}

func TestCachePanickingBuildIsRetried(t *testing.T) {
	c := NewCache()
	func() {
		defer func() {
			if r := recover(); r != "boom" {
				t.Errorf("recovered %v, want boom", r)
			}
		}()
		c.Build("k", func() any { panic("boom") })
	}()

	if _, ok := c.Get("k"); ok {
		t.Error("Get reported a value for a failed build")
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d after failed build, want 0", c.Len())
	}
	if v := c.Build("k", func() any { return "ok" }); v != "ok" {
		t.Errorf("retry = %v, want ok", v)
	}
}

func TestHelperScript(t *testing.T) {
	script := HelperScript(schemawrap.DefaultOptions())
	for _, want := range []string{
		"export const defineBuildZodSchema = (build = memoize) => {",
		"globalThis._buildZodSchema = build;",
		"cache.set(key, build());",
	} {
		if !strings.Contains(script, want) {
			t.Errorf("helper missing %q:\n%s", want, script)
		}
	}

	custom := HelperScript(schemawrap.Options{Registration: "__memo", GlobalObject: "window"})
	if !strings.Contains(custom, "window.__memo = build;") || !strings.Contains(custom, "defineMemo") {
		t.Errorf("custom helper:\n%s", custom)
	}
}
