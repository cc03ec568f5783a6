package backend

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/deploymenttheory/go-app-walkthrough/internal/logger"
	"github.com/deploymenttheory/go-app-walkthrough/internal/utils/errors"
	"github.com/deploymenttheory/go-app-walkthrough/internal/utils/osutil"
	"github.com/deploymenttheory/go-app-walkthrough/internal/utils/plistutil"
)

// webElementKey is the W3C element reference key
const webElementKey = "element-6066-11e4-a52e-4f735466cecf"

// Lookup strategies tried in order for a plain selector
var lookupStrategies = []string{"accessibility id", "name", "class name"}

// WebDriverClient implements ElementDriver against a W3C WebDriver server,
// typically Appium with the mac2 driver
type WebDriverClient struct {
	baseURL    string
	httpClient *http.Client
	sessionID  string
}

// NewWebDriverClient creates a client for the server at baseURL
func NewWebDriverClient(baseURL string, httpClient *http.Client) *WebDriverClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &WebDriverClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

type wdError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Open creates a session for the application
func (c *WebDriverClient) Open(ctx context.Context, app App) error {
	caps := map[string]interface{}{}
	switch app.Platform {
	case osutil.PlatformMacOS, "":
		caps["platformName"] = "mac"
		caps["appium:automationName"] = "mac2"
		caps["appium:bundleId"] = bundleID(app)
	case osutil.PlatformWindows:
		caps["platformName"] = "windows"
		caps["appium:automationName"] = "windows"
		caps["appium:app"] = app.Path
	default:
		caps["platformName"] = app.Platform
		caps["appium:app"] = app.Path
	}

	var resp struct {
		SessionID string `json:"sessionId"`
	}
	body := map[string]interface{}{
		"capabilities": map[string]interface{}{"alwaysMatch": caps},
	}
	if err := c.do(ctx, http.MethodPost, "/session", body, &resp); err != nil {
		return err
	}
	if resp.SessionID == "" {
		return fmt.Errorf("webdriver returned no session id")
	}
	c.sessionID = resp.SessionID

	logger.LogInfo("WebDriver session open", map[string]interface{}{
		"app":     app.Name,
		"session": c.sessionID,
	})
	return nil
}

// bundleID prefers the declared id, then Info.plist, then a derived guess
func bundleID(app App) string {
	if app.BundleID != "" {
		return app.BundleID
	}
	if id, err := plistutil.BundleIdentifier(app.Path); err == nil {
		return id
	}
	name := strings.TrimSuffix(filepath.Base(app.Path), filepath.Ext(app.Path))
	return fmt.Sprintf("com.%s.app", strings.ToLower(name))
}

// Find tries each lookup strategy once
func (c *WebDriverClient) Find(ctx context.Context, selector string) (Element, error) {
	if c.sessionID == "" {
		return nil, errors.ErrSessionNotOpen
	}

	for _, using := range strategiesFor(selector) {
		var ref map[string]string
		err := c.do(ctx, http.MethodPost, c.sessionPath("/element"), map[string]string{
			"using": using,
			"value": selector,
		}, &ref)
		if err == nil {
			if id := ref[webElementKey]; id != "" {
				return &wdElement{client: c, id: id}, nil
			}
			continue
		}
		if !isNotFound(err) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: %q", errors.ErrElementNotFound, selector)
}

func strategiesFor(selector string) []string {
	if strings.HasPrefix(selector, "/") || strings.HasPrefix(selector, "(") {
		return []string{"xpath"}
	}
	return lookupStrategies
}

// Screenshot captures the screen as a PNG
func (c *WebDriverClient) Screenshot(ctx context.Context) (image.Image, error) {
	if c.sessionID == "" {
		return nil, errors.ErrSessionNotOpen
	}
	var encoded string
	if err := c.do(ctx, http.MethodGet, c.sessionPath("/screenshot"), nil, &encoded); err != nil {
		return nil, err
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decoding screenshot: %w", err)
	}
	return png.Decode(bytes.NewReader(data))
}

// Close deletes the session
func (c *WebDriverClient) Close() error {
	if c.sessionID == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := c.do(ctx, http.MethodDelete, c.sessionPath(""), nil, nil)
	c.sessionID = ""
	return err
}

func (c *WebDriverClient) sessionPath(suffix string) string {
	return "/session/" + c.sessionID + suffix
}

// do sends a WebDriver command and decodes the "value" member into out
func (c *WebDriverClient) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webdriver %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var envelope struct {
			Value wdError `json:"value"`
		}
		_ = json.Unmarshal(respBody, &envelope)
		return &webDriverError{Status: resp.StatusCode, Code: envelope.Value.Error, Message: envelope.Value.Message}
	}

	if out == nil {
		return nil
	}
	var envelope struct {
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if err := json.Unmarshal(envelope.Value, out); err != nil {
		return fmt.Errorf("decode value: %w", err)
	}
	return nil
}

type webDriverError struct {
	Status  int
	Code    string
	Message string
}

func (e *webDriverError) Error() string {
	return fmt.Sprintf("webdriver returned %d %s: %s", e.Status, e.Code, e.Message)
}

func isNotFound(err error) bool {
	wdErr, ok := err.(*webDriverError)
	return ok && wdErr.Code == "no such element"
}

type wdElement struct {
	client *WebDriverClient
	id     string
}

func (e *wdElement) Click(ctx context.Context, clicks int) error {
	for i := 0; i < clicks; i++ {
		if err := e.client.do(ctx, http.MethodPost, e.path("/click"), struct{}{}, nil); err != nil {
			return err
		}
	}
	return nil
}

func (e *wdElement) SetText(ctx context.Context, text string) error {
	if err := e.client.do(ctx, http.MethodPost, e.path("/clear"), struct{}{}, nil); err != nil {
		return err
	}
	return e.client.do(ctx, http.MethodPost, e.path("/value"), map[string]string{"text": text}, nil)
}

func (e *wdElement) path(suffix string) string {
	return e.client.sessionPath("/element/" + e.id + suffix)
}
