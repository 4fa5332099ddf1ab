package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func heroPage(amount, quantity string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html><head><title>hero</title></head>
<body>
<section>
  <div class="header"></div>
  <div class="hero">
    <div class="image"></div>
    <div class="meta"></div>
    <div class="counters">
      <div class="amount"><dl><dt>集まっている金額</dt><dd>%s</dd></dl></div>
      <div class="goal"></div>
      <div class="supporters">
        <div class="count"><dl><dt>サポーター</dt><dd>%s</dd></dl></div>
      </div>
    </div>
  </div>
</section>
</body></html>`, amount, quantity)
}

func TestParseMetrics(t *testing.T) {
	t.Run("widget layout", func(t *testing.T) {
		amount, quantity, err := ParseMetrics(heroPage("10,890,000<span>円</span>", "1,024人"))
		require.NoError(t, err)
		assert.Equal(t, int64(10_890_000), amount)
		assert.Equal(t, int64(1024), quantity)
	})

	t.Run("layout changed", func(t *testing.T) {
		_, _, err := ParseMetrics(`<html><body><section><div>nothing here</div></section></body></html>`)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnexpectedLayout)
	})

	t.Run("node without digits", func(t *testing.T) {
		_, _, err := ParseMetrics(heroPage("非公開", "1,024人"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "amount")
	})
}

func TestParseDigits(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int64
		wantErr  bool
	}{
		{name: "yen with separators", input: " 12,345,678円 ", expected: 12345678},
		{name: "people count", input: "1,024人", expected: 1024},
		{name: "full width digits", input: "１２３", expected: 123},
		{name: "plain", input: "0", expected: 0},
		{name: "no digits", input: "円", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "overflow", input: "99999999999999999999", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDigits(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestFetcher_FetchPage(t *testing.T) {
	t.Run("sends browser user agent", func(t *testing.T) {
		var gotUA string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUA = r.Header.Get("User-Agent")
			_, _ = w.Write([]byte("ok"))
		}))
		defer server.Close()

		body, err := NewFetcher(time.Second).FetchPage(context.Background(), server.URL)
		require.NoError(t, err)
		assert.Equal(t, "ok", body)
		assert.Equal(t, DefaultUserAgent, gotUA)
	})

	t.Run("non-2xx is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		_, err := NewFetcher(time.Second).FetchPage(context.Background(), server.URL)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "503")
	})

	t.Run("timeout", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer server.Close()

		_, err := NewFetcher(20*time.Millisecond).FetchPage(context.Background(), server.URL)
		assert.Error(t, err)
	})
}

func TestRetryPolicy_Do(t *testing.T) {
	ctx := context.Background()

	t.Run("stops after max attempts", func(t *testing.T) {
		calls := 0
		err := RetryPolicy{MaxAttempts: 3}.Do(ctx, func() error {
			calls++
			return errors.New("boom")
		})
		require.Error(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("succeeds on a later attempt", func(t *testing.T) {
		calls := 0
		err := RetryPolicy{MaxAttempts: 3, InitialInterval: time.Millisecond}.Do(ctx, func() error {
			calls++
			if calls < 2 {
				return errors.New("transient")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("single attempt", func(t *testing.T) {
		calls := 0
		_ = RetryPolicy{MaxAttempts: 1}.Do(ctx, func() error {
			calls++
			return errors.New("boom")
		})
		assert.Equal(t, 1, calls)
	})

	t.Run("cancelled context stops retrying", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		calls := 0
		err := RetryPolicy{MaxAttempts: 5, InitialInterval: time.Millisecond}.Do(cancelled, func() error {
			calls++
			return errors.New("boom")
		})
		require.Error(t, err)
		assert.LessOrEqual(t, calls, 1)
	})
}

func TestHTTPSource_Fetch(t *testing.T) {
	ctx := context.Background()

	t.Run("retries transient failures", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&calls, 1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			_, _ = w.Write([]byte(heroPage("10,000,000円", "1,000人")))
		}))
		defer server.Close()

		source := NewHTTPSource(server.URL, NewFetcher(time.Second), DefaultRetryPolicy())
		amount, quantity, err := source.Fetch(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(10_000_000), amount)
		assert.Equal(t, int64(1000), quantity)
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	})

	t.Run("gives up after the policy is exhausted", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		source := NewHTTPSource(server.URL, NewFetcher(time.Second), DefaultRetryPolicy())
		_, _, err := source.Fetch(ctx)
		require.Error(t, err)
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	})

	t.Run("parse failures are not retried", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			_, _ = w.Write([]byte("<html><body>maintenance</body></html>"))
		}))
		defer server.Close()

		source := NewHTTPSource(server.URL, NewFetcher(time.Second), DefaultRetryPolicy())
		_, _, err := source.Fetch(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnexpectedLayout)
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})
}
