package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"PatternSentinel/internal/model"
)

func TestTelegramNotifier_Send(t *testing.T) {
	var (
		mu   sync.Mutex
		sent []map[string]string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/bottoken/sendMessage") {
			t.Errorf("path = %s", r.URL.Path)
		}
		var payload map[string]string
		json.NewDecoder(r.Body).Decode(&payload)
		mu.Lock()
		sent = append(sent, payload)
		mu.Unlock()
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier("token", "42", "", nil)
	n.APIBase = srv.URL
	if err := n.Send(context.Background(), "hello"); err != nil {
		t.Fatal(err)
	}
	if len(sent) != 1 || sent[0]["chat_id"] != "42" || sent[0]["parse_mode"] != "HTML" {
		t.Errorf("sent = %v", sent)
	}
}

func TestTelegramNotifier_SendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"ok":false}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	n := NewTelegramNotifier("token", "42", "", nil)
	n.APIBase = srv.URL
	if err := n.Send(context.Background(), "hello"); err == nil || !strings.Contains(err.Error(), "400") {
		t.Errorf("err = %v", err)
	}
}

func TestStartPolling(t *testing.T) {
	var (
		mu      sync.Mutex
		replies []string
		calls   int
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			mu.Lock()
			calls++
			first := calls == 1
			mu.Unlock()
			if first {
				w.Write([]byte(`{"ok":true,"result":[
					{"update_id":7,"message":{"text":"/status","chat":{"id":42}}},
					{"update_id":8,"message":{"text":"/scan","chat":{"id":99}}}]}`))
				return
			}
			if got := r.URL.Query().Get("offset"); got != "9" {
				t.Errorf("offset = %s, want 9", got)
			}
			w.Write([]byte(`{"ok":true,"result":[]}`))
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			var payload map[string]string
			json.NewDecoder(r.Body).Decode(&payload)
			mu.Lock()
			replies = append(replies, payload["text"])
			mu.Unlock()
			w.Write([]byte(`{"ok":true}`))
		}
	}))
	defer srv.Close()

	n := NewTelegramNotifier("token", "42", "", nil)
	n.APIBase = srv.URL

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		n.StartPolling(ctx, func(_ context.Context, cmd string) string { return "ack " + cmd })
		close(done)
	}()

	deadline := time.After(5 * time.Second)
	for {
		mu.Lock()
		ready := calls >= 2
		mu.Unlock()
		if ready {
			break
		}
		select {
		case <-deadline:
			t.Fatal("polling did not advance")
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	if len(replies) != 1 || replies[0] != "ack /status" {
		t.Errorf("replies = %v (commands from other chats must be ignored)", replies)
	}
}

func TestSplitMessage(t *testing.T) {
	text := strings.Repeat("贵州茅台 600519\n", 400)
	parts := SplitMessage(text, 4096)
	if len(parts) < 2 {
		t.Fatalf("parts = %d", len(parts))
	}
	var joined int
	for _, p := range parts {
		if len(p) > 4096 {
			t.Errorf("part of %d bytes", len(p))
		}
		joined += strings.Count(p, "600519")
	}
	if joined != 400 {
		t.Errorf("lost lines: %d", joined)
	}
	if got := SplitMessage("short", 4096); len(got) != 1 {
		t.Errorf("short message split into %d", len(got))
	}
}

func TestFormatScanReport(t *testing.T) {
	start := time.Date(2024, 5, 6, 15, 0, 0, 0, time.UTC)
	sum := model.NewScanSummary("run-1", start)
	sum.FinishedAt = start.Add(90 * time.Second)
	sum.Source = "eastmoney"
	sum.Period = "daily"
	sum.Total = 5123
	sum.Counts[model.StatusMatched] = 3
	sum.Hits[model.MacdGoldenCross] = []model.Hit{{Code: "000001", Name: "平安银行"}, {Code: "600519", Name: "贵州茅台"}}
	sum.Hits[model.ThreeLimitUp] = []model.Hit{{Code: "300750", Name: "宁德<时代>"}}

	fresh := map[model.Category][]model.Hit{model.MacdGoldenCross: {{Code: "600519"}}}
	msg := FormatScanReport(sum, fresh, 1)

	for _, want := range []string{"5,123", "1m30s", "新增 1", "另有 1 只", "宁德&lt;时代&gt;"} {
		if !strings.Contains(msg, want) {
			t.Errorf("report missing %q:\n%s", want, msg)
		}
	}
	if strings.Index(msg, model.ThreeLimitUp.Label()) > strings.Index(msg, model.MacdGoldenCross.Label()) {
		t.Error("categories not in catalog order")
	}
}

func TestFormatCheckResult(t *testing.T) {
	bars := []model.Bar{{Date: time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC), Close: 1712.5, PctChg: 1.25}}
	s := model.NewSeries("600519", "贵州茅台", bars)

	msg := FormatCheckResult(s, model.Result{Symbol: "600519", Name: "贵州茅台"})
	if !strings.Contains(msg, "1,712.50") || !strings.Contains(msg, model.NoMatch.Label()) {
		t.Errorf("no-match message:\n%s", msg)
	}

	r := model.Result{Symbol: "600519", Name: "贵州茅台", Matches: []model.Match{{Category: model.DoubleBottom, Index: 0, Date: bars[0].Date}}}
	msg = FormatCheckResult(s, r)
	if !strings.Contains(msg, model.DoubleBottom.Label()+" @ 2024-05-06") {
		t.Errorf("match message:\n%s", msg)
	}
}
