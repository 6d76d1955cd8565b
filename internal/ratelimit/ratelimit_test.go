package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func clock(start time.Time) (*time.Time, func() time.Time) {
	now := start
	return &now, func() time.Time { return now }
}

func TestMinuteWindowSlides(t *testing.T) {
	now, fn := clock(time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC))
	k := NewKeyedLimiter(2, 10, 0, 0, true)
	k.now = fn

	if !k.Allow("a") || !k.Allow("a") {
		t.Fatal("first two requests should pass")
	}
	if k.Allow("a") {
		t.Fatal("third request in the same minute should be refused")
	}

	*now = now.Add(61 * time.Second)
	if !k.Allow("a") {
		t.Fatal("window should slide after a minute")
	}

	stats := k.ClientStats("a")
	if len(stats.Windows) != 2 {
		t.Fatalf("windows = %+v", stats.Windows)
	}
	minute, hour := stats.Windows[0], stats.Windows[1]
	if minute.Requests != 1 || hour.Requests != 3 || hour.Remaining != 7 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestDisabled(t *testing.T) {
	k := NewKeyedLimiter(1, 1, 1, 1, false)
	for i := 0; i < 5; i++ {
		if !k.Allow("a") {
			t.Fatal("disabled limiter refused a request")
		}
	}
	if k.GetStats().Enabled || k.ClientStats("a").Enabled {
		t.Error("stats should report disabled")
	}
}

func TestSeparatesClients(t *testing.T) {
	k := NewKeyedLimiter(1, 0, 0, 0, true)

	if !k.Allow("1.1.1.1") {
		t.Fatal("first request refused")
	}
	if k.Allow("1.1.1.1") {
		t.Error("second request from same client allowed")
	}
	if !k.Allow("2.2.2.2") {
		t.Error("other client should not be affected")
	}
	if got := k.GetStats().Clients; got != 2 {
		t.Errorf("clients = %d", got)
	}
}

func TestGlobalCapDoesNotChargeRefusedClient(t *testing.T) {
	k := NewKeyedLimiter(0, 2, 0, 2, true)

	if !k.Allow("a") || !k.Allow("b") {
		t.Fatal("first two requests should pass")
	}
	if k.Allow("a") {
		t.Fatal("global cap should refuse the third request")
	}
	if got := k.ClientStats("a").Windows[0].Requests; got != 1 {
		t.Errorf("client a charged %d requests, want 1", got)
	}
	if got := k.GetStats().Global.Windows[0].Requests; got != 2 {
		t.Errorf("global requests = %d, want 2", got)
	}
}

func TestDayWindow(t *testing.T) {
	now, fn := clock(time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC))
	k := NewKeyedLimiter(0, 0, 2, 0, true)
	k.now = fn

	k.Allow("a")
	*now = now.Add(12 * time.Hour)
	k.Allow("a")
	if k.Allow("a") {
		t.Fatal("day limit should refuse the third request")
	}
	*now = now.Add(12*time.Hour + time.Second)
	if !k.Allow("a") {
		t.Error("oldest request should have expired")
	}
}

func TestPrune(t *testing.T) {
	now, fn := clock(time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC))
	k := NewKeyedLimiter(5, 0, 0, 0, true)
	k.now = fn

	k.Allow("a")
	*now = now.Add(25 * time.Hour)
	k.Allow("b")

	if n := k.Prune(); n != 1 {
		t.Errorf("Prune removed %d, want 1", n)
	}
	if got := k.GetStats().Clients; got != 1 {
		t.Errorf("clients = %d", got)
	}
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	k := NewKeyedLimiter(1, 0, 0, 0, true)

	r := gin.New()
	r.POST("/lead", k.Middleware(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	codes := make([]int, 2)
	for i := range codes {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/lead", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(w, req)
		codes[i] = w.Code
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Errorf("codes = %v", codes)
	}
}
