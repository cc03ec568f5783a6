package backend

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	apperrors "github.com/deploymenttheory/go-app-walkthrough/internal/utils/errors"
	"github.com/deploymenttheory/go-app-walkthrough/internal/utils/osutil"
)

// fakeAppium answers the subset of the W3C protocol the client uses
type fakeAppium struct {
	mu       sync.Mutex
	caps     map[string]interface{}
	requests []string
	values   []string
	known    map[string]string // "using|value" -> element id
}

func (f *fakeAppium) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)

	var body map[string]interface{}
	_ = json.NewDecoder(r.Body).Decode(&body)

	reply := func(status int, value interface{}) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"value": value})
	}

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/session":
		f.caps = body["capabilities"].(map[string]interface{})["alwaysMatch"].(map[string]interface{})
		reply(http.StatusOK, map[string]interface{}{"sessionId": "s1", "capabilities": f.caps})
	case r.Method == http.MethodPost && r.URL.Path == "/session/s1/element":
		key := body["using"].(string) + "|" + body["value"].(string)
		if id, ok := f.known[key]; ok {
			reply(http.StatusOK, map[string]string{webElementKey: id})
			return
		}
		reply(http.StatusNotFound, map[string]string{"error": "no such element", "message": "not found"})
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/value"):
		f.values = append(f.values, body["text"].(string))
		reply(http.StatusOK, nil)
	case r.Method == http.MethodPost:
		reply(http.StatusOK, nil)
	case r.Method == http.MethodGet && r.URL.Path == "/session/s1/screenshot":
		var buf bytes.Buffer
		_ = png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 3, 2)))
		reply(http.StatusOK, base64.StdEncoding.EncodeToString(buf.Bytes()))
	case r.Method == http.MethodDelete && r.URL.Path == "/session/s1":
		reply(http.StatusOK, nil)
	default:
		reply(http.StatusNotFound, map[string]string{"error": "unknown command", "message": r.URL.Path})
	}
}

func TestWebDriverSession(t *testing.T) {
	fake := &fakeAppium{known: map[string]string{
		"name|Create New Wallet": "e1",
		"xpath|//XCUIElementTypeTextField[1]": "e2",
	}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	c := NewWebDriverClient(srv.URL+"/", srv.Client())
	ctx := context.Background()

	if _, err := c.Find(ctx, "Create New Wallet"); !errors.Is(err, apperrors.ErrSessionNotOpen) {
		t.Fatalf("expected ErrSessionNotOpen before Open, got %v", err)
	}

	app := App{Name: "Sparrow", Path: "/Applications/Sparrow.app", BundleID: "com.sparrowwallet.sparrow", Platform: osutil.PlatformMacOS}
	if err := c.Open(ctx, app); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if fake.caps["appium:bundleId"] != "com.sparrowwallet.sparrow" || fake.caps["appium:automationName"] != "mac2" {
		t.Errorf("unexpected capabilities %v", fake.caps)
	}

	// accessibility id misses, name matches
	el, err := c.Find(ctx, "Create New Wallet")
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if err := el.Click(ctx, 2); err != nil {
		t.Fatalf("Click failed: %v", err)
	}

	field, err := c.Find(ctx, "//XCUIElementTypeTextField[1]")
	if err != nil {
		t.Fatalf("xpath Find failed: %v", err)
	}
	if err := field.SetText(ctx, "Savings"); err != nil {
		t.Fatalf("SetText failed: %v", err)
	}
	if len(fake.values) != 1 || fake.values[0] != "Savings" {
		t.Errorf("unexpected typed values %v", fake.values)
	}

	if _, err := c.Find(ctx, "Nope"); !errors.Is(err, apperrors.ErrElementNotFound) {
		t.Errorf("expected ErrElementNotFound, got %v", err)
	}

	img, err := c.Screenshot(ctx)
	if err != nil || img.Bounds().Dx() != 3 {
		t.Errorf("unexpected screenshot %v, %v", img, err)
	}

	if err := c.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}

	clicks := 0
	for _, req := range fake.requests {
		if req == "POST /session/s1/element/e1/click" {
			clicks++
		}
	}
	if clicks != 2 {
		t.Errorf("expected two click commands, got %d in %v", clicks, fake.requests)
	}
	if last := fake.requests[len(fake.requests)-1]; last != "DELETE /session/s1" {
		t.Errorf("expected session delete last, got %s", last)
	}
}

func TestBundleIDFallback(t *testing.T) {
	got := bundleID(App{Path: "/nonexistent/Electrum.app"})
	if got != "com.electrum.app" {
		t.Errorf("bundleID fallback = %q", got)
	}
}
