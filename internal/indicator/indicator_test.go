package indicator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestParseCLPNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"37.517,25", 37517.25},
		{" $ 38.001,02 ", 38001.02},
		{"39000", 39000},
	}
	for _, tt := range tests {
		got, err := parseCLPNumber(tt.in)
		if err != nil {
			t.Fatalf("parseCLPNumber(%q) error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("parseCLPNumber(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if _, err := parseCLPNumber("  "); err == nil {
		t.Error("expected error for blank input")
	}
}

func TestMindicadorPicksLatestValue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"codigo":"uf","serie":[
			{"fecha":"2026-10-16T03:00:00.000Z","valor":39480.11},
			{"fecha":"2026-10-18T03:00:00.000Z","valor":39490.55},
			{"fecha":"2026-10-17T03:00:00.000Z","valor":39485.00}
		]}`)
	}))
	defer srv.Close()

	m := NewMindicador(srv.URL, time.Second)
	got, err := m.FetchUF(context.Background())
	if err != nil {
		t.Fatalf("FetchUF: %v", err)
	}
	if got != 39490.55 {
		t.Errorf("FetchUF = %v, want 39490.55", got)
	}
}

func TestMindicadorStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewMindicador(srv.URL, time.Second).FetchUF(context.Background())
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected StatusError 503, got %v", err)
	}
}

func TestMindicadorEmptySeries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"codigo":"uf","serie":[]}`)
	}))
	defer srv.Close()

	_, err := NewMindicador(srv.URL, time.Second).FetchUF(context.Background())
	if !errors.Is(err, ErrNoValue) {
		t.Fatalf("expected ErrNoValue, got %v", err)
	}
}

const siiPage = `<html><body>
<div id="mes_septiembre"><table>
<tr><th>18</th><td>39.200,00</td></tr>
</table></div>
<div id="mes_octubre"><table>
<tr><th>17</th><td>39.485,00</td><th>18</th><td>39.490,55</td></tr>
<tr><th>19</th><td>39.495,10</td></tr>
</table></div>
</body></html>`

func TestSIIReadsTodaysValue(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		fmt.Fprint(w, siiPage)
	}))
	defer srv.Close()

	loader := &HTTPLoader{Client: srv.Client()}
	s := NewSII(srv.URL+"/uf%d.htm", loader, time.UTC)
	s.now = func() time.Time { return time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC) }

	got, err := s.FetchUF(context.Background())
	if err != nil {
		t.Fatalf("FetchUF: %v", err)
	}
	if got != 39490.55 {
		t.Errorf("FetchUF = %v, want 39490.55", got)
	}
	if gotPath != "/uf2026.htm" {
		t.Errorf("requested %q, want /uf2026.htm", gotPath)
	}
}

func TestParseSIITableMissingDay(t *testing.T) {
	if _, err := parseSIITable(siiPage, time.October, 30); !errors.Is(err, ErrNoValue) {
		t.Errorf("missing day: expected ErrNoValue, got %v", err)
	}
	if _, err := parseSIITable(siiPage, time.March, 1); !errors.Is(err, ErrNoValue) {
		t.Errorf("missing month: expected ErrNoValue, got %v", err)
	}
}

type stubProvider struct {
	name  string
	value float64
	err   error
	calls int
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) FetchUF(ctx context.Context) (float64, error) {
	s.calls++
	return s.value, s.err
}

func TestChainFallsThrough(t *testing.T) {
	first := &stubProvider{name: "a", err: errors.New("down")}
	second := &stubProvider{name: "b", value: 39000}
	third := &stubProvider{name: "c", value: 1}

	got, err := Chain{first, second, third}.FetchUF(context.Background())
	if err != nil {
		t.Fatalf("FetchUF: %v", err)
	}
	if got != 39000 {
		t.Errorf("FetchUF = %v, want 39000", got)
	}
	if third.calls != 0 {
		t.Errorf("third provider called %d times, want 0", third.calls)
	}
}

func TestChainAllFail(t *testing.T) {
	boom := errors.New("boom")
	_, err := Chain{
		&stubProvider{name: "a", err: ErrNoValue},
		&stubProvider{name: "b", err: boom},
	}.FetchUF(context.Background())
	if !errors.Is(err, ErrNoValue) || !errors.Is(err, boom) {
		t.Fatalf("expected joined errors, got %v", err)
	}
}

func TestGuardedOpensAfterThreshold(t *testing.T) {
	now := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(3, time.Minute)
	cb.now = func() time.Time { return now }

	stub := &stubProvider{name: "a", err: errors.New("timeout")}
	g := &Guarded{Provider: stub, Breaker: cb}

	for i := 0; i < 3; i++ {
		g.FetchUF(context.Background())
	}
	if _, err := g.FetchUF(context.Background()); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if stub.calls != 3 {
		t.Errorf("provider called %d times, want 3", stub.calls)
	}

	now = now.Add(2 * time.Minute)
	stub.err = nil
	stub.value = 39000
	got, err := g.FetchUF(context.Background())
	if err != nil || got != 39000 {
		t.Fatalf("after reset: got %v, %v", got, err)
	}
	if open, _, _ := cb.GetStatus(); open {
		t.Error("breaker still open after success")
	}
}

func TestGuardedOpensFastOnThrottle(t *testing.T) {
	cb := NewCircuitBreaker(5, time.Hour)
	g := &Guarded{
		Provider: &stubProvider{name: "a", err: &StatusError{Provider: "a", Code: http.StatusTooManyRequests}},
		Breaker:  cb,
	}

	g.FetchUF(context.Background())
	g.FetchUF(context.Background())
	if cb.CanProceed() {
		t.Fatal("breaker should open after two 429 responses")
	}
}
