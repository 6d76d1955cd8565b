package indicator

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
)

// DefaultSIIURL is the yearly UF table published by the tax service.
// %d is replaced with the year.
const DefaultSIIURL = "https://www.sii.cl/valores_y_fechas/uf/uf%d.htm"

var monthIDs = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// PageLoader returns the HTML of a page.
type PageLoader interface {
	Load(ctx context.Context, url string) (string, error)
}

// HTTPLoader fetches pages with a plain GET.
type HTTPLoader struct {
	Client    *http.Client
	UserAgent string
}

func (l *HTTPLoader) Load(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	if l.UserAgent != "" {
		req.Header.Set("User-Agent", l.UserAgent)
	}

	resp, err := l.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return "", &StatusError{Provider: "sii", Code: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// BrowserLoader renders pages in headless Chrome, for when the plain client
// gets blocked.
type BrowserLoader struct {
	ExecPath  string
	UserAgent string
}

func (l *BrowserLoader) Load(ctx context.Context, url string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if l.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(l.ExecPath))
	}
	if l.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(l.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitVisible(`body`, chromedp.ByQuery),
		chromedp.OuterHTML(`html`, &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", url, err)
	}
	return html, nil
}

// SII reads today's UF from the yearly HTML table.
type SII struct {
	urlTemplate string
	loader      PageLoader
	loc         *time.Location
	now         func() time.Time
}

func NewSII(urlTemplate string, loader PageLoader, loc *time.Location) *SII {
	if urlTemplate == "" {
		urlTemplate = DefaultSIIURL
	}
	if loc == nil {
		loc = time.UTC
	}
	return &SII{
		urlTemplate: urlTemplate,
		loader:      loader,
		loc:         loc,
		now:         time.Now,
	}
}

func (s *SII) Name() string { return "sii" }

func (s *SII) FetchUF(ctx context.Context) (float64, error) {
	today := s.now().In(s.loc)

	url := s.urlTemplate
	if strings.Contains(url, "%d") {
		url = fmt.Sprintf(url, today.Year())
	}

	html, err := s.loader.Load(ctx, url)
	if err != nil {
		return 0, err
	}
	return parseSIITable(html, today.Month(), today.Day())
}

// parseSIITable finds the value for a day in the month block. Each month is a
// container "#mes_<name>" whose rows alternate day headers and value cells.
func parseSIITable(html string, month time.Month, day int) (float64, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return 0, fmt.Errorf("parse sii page: %w", err)
	}

	block := doc.Find("#mes_" + monthIDs[month-1])
	if block.Length() == 0 {
		return 0, ErrNoValue
	}

	value := 0.0
	block.Find("th").EachWithBreak(func(i int, th *goquery.Selection) bool {
		d, err := strconv.Atoi(strings.TrimSpace(th.Text()))
		if err != nil || d != day {
			return true
		}
		if v, err := parseCLPNumber(th.Next().Text()); err == nil {
			value = v
		}
		return false
	})

	if value <= 0 {
		return 0, ErrNoValue
	}
	return value, nil
}
