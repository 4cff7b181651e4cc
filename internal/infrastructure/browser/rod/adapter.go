package rod

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"strings"
	"sync"
	"time"

	"siteqa/internal/application/port/output"
	"siteqa/internal/domain/entity"

	"github.com/disintegration/imaging"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"
)

var _ output.BrowserPort = (*BrowserAdapter)(nil)

// BrowserAdapter drives one Chromium page over the DevTools protocol.
// Not safe for concurrent use; the scanner owns one adapter per viewport.
type BrowserAdapter struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	page     *rod.Page
	timeout  time.Duration
	stopEvts func()

	mu            sync.Mutex
	sink          func(entity.BrowserEvent)
	docStatus     int
	consoleErrors []string
	networkErrors []string
	requestCount  int
	transferBytes int64
}

type BrowserConfig struct {
	Headless   bool
	SlowMotion time.Duration
	Timeout    time.Duration
	NoSandbox  bool
	UserAgent  string
}

func DefaultConfig() BrowserConfig {
	return BrowserConfig{
		Headless:   true,
		SlowMotion: 0,
		Timeout:    10 * time.Second,
		NoSandbox:  true,
	}
}

func NewBrowserAdapter(ctx context.Context, cfg BrowserConfig) (*BrowserAdapter, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox).
		Delete("use-mock-keychain").
		Set("disable-web-security").
		Set("allow-running-insecure-content").
		Set("disable-setuid-sandbox")

	url, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().
		ControlURL(url).
		SlowMotion(cfg.SlowMotion).
		MustConnect()

	page := browser.MustPage("about:blank")

	if cfg.UserAgent != "" {
		_ = page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: cfg.UserAgent})
	}

	b := &BrowserAdapter{
		browser:  browser,
		launcher: l,
		page:     page,
		timeout:  cfg.Timeout,
	}
	b.startEventLoop()

	return b, nil
}

// startEventLoop subscribes to console, exception and network events for
// the page's lifetime and fans them out to the registered sink.
func (b *BrowserAdapter) startEventLoop() {
	wait := b.page.EachEvent(
		func(e *proto.RuntimeConsoleAPICalled) {
			if e.Type != proto.RuntimeConsoleAPICalledTypeError {
				return
			}
			parts := make([]string, 0, len(e.Args))
			for _, arg := range e.Args {
				parts = append(parts, arg.Value.String())
			}
			b.record(entity.BrowserEvent{
				Type:      entity.EventConsoleError,
				PageURL:   b.CurrentURL(),
				Text:      strings.Join(parts, " "),
				Timestamp: time.Now(),
			})
		},
		func(e *proto.RuntimeExceptionThrown) {
			text := e.ExceptionDetails.Text
			if e.ExceptionDetails.Exception != nil {
				text = e.ExceptionDetails.Exception.Description
			}
			b.record(entity.BrowserEvent{
				Type:      entity.EventPageError,
				PageURL:   b.CurrentURL(),
				Text:      text,
				Timestamp: time.Now(),
			})
		},
		func(e *proto.NetworkResponseReceived) {
			b.mu.Lock()
			b.requestCount++
			b.transferBytes += int64(e.Response.EncodedDataLength)
			if e.Type == proto.NetworkResourceTypeDocument {
				b.docStatus = e.Response.Status
			}
			b.mu.Unlock()

			b.record(entity.BrowserEvent{
				Type:      entity.EventNetworkResponse,
				PageURL:   b.CurrentURL(),
				URL:       e.Response.URL,
				Status:    e.Response.Status,
				Resource:  string(e.Type),
				Timestamp: time.Now(),
			})
		},
	)
	done := make(chan struct{})
	b.stopEvts = func() { close(done) }
	go func() {
		go wait()
		<-done
	}()
}

func (b *BrowserAdapter) record(evt entity.BrowserEvent) {
	b.mu.Lock()
	switch evt.Type {
	case entity.EventConsoleError, entity.EventPageError:
		b.consoleErrors = append(b.consoleErrors, evt.Text)
	case entity.EventNetworkResponse:
		if evt.Status >= 400 {
			b.networkErrors = append(b.networkErrors, fmt.Sprintf("%d %s", evt.Status, evt.URL))
		}
	}
	sink := b.sink
	b.mu.Unlock()

	if sink != nil {
		sink(evt)
	}
}

func (b *BrowserAdapter) SetEventSink(sink func(entity.BrowserEvent)) {
	b.mu.Lock()
	b.sink = sink
	b.mu.Unlock()
}

func (b *BrowserAdapter) Navigate(ctx context.Context, url string) (*entity.PageState, error) {
	b.mu.Lock()
	b.docStatus = 0
	b.requestCount = 0
	b.transferBytes = 0
	b.mu.Unlock()

	page := b.page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return nil, fmt.Errorf("navigation failed: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("page load failed: %w", err)
	}
	_ = page.WaitIdle(5 * time.Second)

	info, err := page.Info()
	if err != nil {
		return nil, fmt.Errorf("page info failed: %w", err)
	}

	b.mu.Lock()
	status := b.docStatus
	b.mu.Unlock()

	return &entity.PageState{URL: info.URL, Title: info.Title, Status: status}, nil
}

func (b *BrowserAdapter) Reload(ctx context.Context) error {
	page := b.page.Context(ctx)
	if err := page.Reload(); err != nil {
		return fmt.Errorf("reload failed: %w", err)
	}
	_ = page.WaitLoad()
	_ = page.WaitIdle(5 * time.Second)
	return nil
}

func (b *BrowserAdapter) Back(ctx context.Context) error {
	if err := b.page.Context(ctx).NavigateBack(); err != nil {
		return fmt.Errorf("history back failed: %w", err)
	}
	_ = b.page.WaitIdle(3 * time.Second)
	return nil
}

func (b *BrowserAdapter) CurrentURL() string {
	info, err := b.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (b *BrowserAdapter) Title() string {
	info, err := b.page.Info()
	if err != nil {
		return ""
	}
	return info.Title
}

func (b *BrowserAdapter) Click(ctx context.Context, selector string) error {
	el, err := b.page.Context(ctx).Timeout(b.timeout).Element(selector)
	if err != nil {
		return fmt.Errorf("element not found: %s: %w", selector, err)
	}

	if err := el.ScrollIntoView(); err == nil {
		_ = el.WaitVisible()
	}

	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click failed: %w", err)
	}

	_ = b.page.WaitIdle(2 * time.Second)
	return nil
}

func (b *BrowserAdapter) Fill(ctx context.Context, selector, text string) error {
	el, err := b.page.Context(ctx).Timeout(b.timeout).Element(selector)
	if err != nil {
		return fmt.Errorf("field not found: %s: %w", selector, err)
	}

	if err := el.SelectAllText(); err == nil {
		_ = el.Input("")
	}

	if err := el.Input(text); err != nil {
		return fmt.Errorf("input failed: %w", err)
	}

	return nil
}

func (b *BrowserAdapter) Press(ctx context.Context, key string) error {
	switch strings.ToLower(key) {
	case "enter":
		el, err := b.page.Context(ctx).Element("body")
		if err != nil {
			return fmt.Errorf("body not found: %w", err)
		}
		if err := el.Input("\r"); err != nil {
			return fmt.Errorf("failed to press Enter: %w", err)
		}
	case "escape":
		if err := b.page.Keyboard.Press(input.Escape); err != nil {
			return fmt.Errorf("failed to press Escape: %w", err)
		}
	default:
		return fmt.Errorf("unsupported key: %s", key)
	}
	_ = b.page.WaitIdle(1 * time.Second)
	return nil
}

func (b *BrowserAdapter) ScrollBy(ctx context.Context, pixels int) error {
	_, err := b.page.Context(ctx).Eval(`(px) => window.scrollBy(0, px)`, pixels)
	if err != nil {
		return fmt.Errorf("scroll failed: %w", err)
	}
	_ = b.page.WaitIdle(800 * time.Millisecond)
	return nil
}

func (b *BrowserAdapter) ScrollTop(ctx context.Context) error {
	_, err := b.page.Context(ctx).Eval(`() => window.scrollTo(0, 0)`)
	if err != nil {
		return fmt.Errorf("scroll failed: %w", err)
	}
	return nil
}

func (b *BrowserAdapter) SelectOption(ctx context.Context, selector, value string) error {
	el, err := b.page.Context(ctx).Timeout(b.timeout).Element(selector)
	if err != nil {
		return fmt.Errorf("select not found: %s: %w", selector, err)
	}
	if err := el.Select([]string{value}, true, rod.SelectorTypeText); err != nil {
		return fmt.Errorf("select option failed: %w", err)
	}
	return nil
}

func (b *BrowserAdapter) WaitStable(ctx context.Context) error {
	page := b.page.Context(ctx)
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("wait load: %w", err)
	}
	_ = page.WaitIdle(5 * time.Second)
	_ = page.WaitDOMStable(300*time.Millisecond, 0)
	return nil
}

func (b *BrowserAdapter) Screenshot(ctx context.Context) (*entity.Screenshot, error) {
	imgBytes, err := b.page.Context(ctx).Screenshot(true, &proto.PageCaptureScreenshot{
		Format:  proto.PageCaptureScreenshotFormatJpeg,
		Quality: gson.Int(80),
	})
	if err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(imgBytes))
	if err != nil {
		return nil, fmt.Errorf("image decode failed: %w", err)
	}

	if img.Bounds().Dx() > 1024 {
		img = imaging.Resize(img, 1024, 0, imaging.Lanczos)
	}

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: 75}); err != nil {
		return nil, fmt.Errorf("jpeg encode failed: %w", err)
	}

	return &entity.Screenshot{
		Data:   buf.Bytes(),
		Format: "jpeg",
		Width:  img.Bounds().Dx(),
		Height: img.Bounds().Dy(),
	}, nil
}

func (b *BrowserAdapter) Cookies(ctx context.Context) ([]entity.Cookie, error) {
	raw, err := b.page.Context(ctx).Cookies(nil)
	if err != nil {
		return nil, fmt.Errorf("cookies failed: %w", err)
	}
	cookies := make([]entity.Cookie, 0, len(raw))
	for _, c := range raw {
		cookies = append(cookies, entity.Cookie{Name: c.Name, Domain: c.Domain})
	}
	return cookies, nil
}

func (b *BrowserAdapter) Storage(ctx context.Context) (map[string]string, map[string]string, error) {
	obj, err := b.page.Context(ctx).Eval(jsDumpStorage)
	if err != nil {
		return nil, nil, fmt.Errorf("storage dump failed: %w", err)
	}
	var out struct {
		Local   map[string]string `json:"local"`
		Session map[string]string `json:"session"`
	}
	if err := unmarshalEval(obj, &out); err != nil {
		return nil, nil, err
	}
	return out.Local, out.Session, nil
}

func (b *BrowserAdapter) StateSnapshot(ctx context.Context) (*entity.StateSnapshot, error) {
	cookies, err := b.Cookies(ctx)
	if err != nil {
		cookies = nil
	}
	local, session, err := b.Storage(ctx)
	if err != nil {
		local, session = nil, nil
	}
	fp, err := b.StructuralFingerprint(ctx)
	var hash uint64
	if err == nil {
		hash = fp.Hash
	}

	b.mu.Lock()
	consoleErrs := append([]string(nil), b.consoleErrors...)
	networkErrs := append([]string(nil), b.networkErrors...)
	b.mu.Unlock()

	return &entity.StateSnapshot{
		URL:            b.CurrentURL(),
		Cookies:        cookies,
		LocalStorage:   local,
		SessionStorage: session,
		ConsoleErrors:  consoleErrs,
		NetworkErrors:  networkErrs,
		DOMHash:        hash,
	}, nil
}

func (b *BrowserAdapter) SetViewport(ctx context.Context, vp entity.Viewport) error {
	err := b.page.Context(ctx).SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             vp.Width,
		Height:            vp.Height,
		DeviceScaleFactor: 1,
		Mobile:            vp.Mobile,
	})
	if err != nil {
		return fmt.Errorf("set viewport failed: %w", err)
	}
	return nil
}

func (b *BrowserAdapter) Close() {
	if b.stopEvts != nil {
		b.stopEvts()
	}
	if b.browser != nil {
		_ = b.browser.Close()
	}
	if b.launcher != nil {
		b.launcher.Kill()
		b.launcher.Cleanup()
	}
}

// unmarshalEval decodes the JSON value of an Eval result into out.
func unmarshalEval(obj *proto.RuntimeRemoteObject, out any) error {
	data := obj.Value.JSON("", "")
	if err := json.Unmarshal([]byte(data), out); err != nil {
		return fmt.Errorf("decode eval result: %w", err)
	}
	return nil
}
