package source

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"msecli/internal/config"
	apperrors "msecli/internal/errors"
	"msecli/internal/infrastructure"
	"msecli/internal/shared/testutil"
	"msecli/pkg/contracts/domain"
)

const historyPage = `<html><body>
<table class="table">
  <thead><tr><th>Датум</th><th>Цена</th><th>Количина</th><th>Промена</th></tr></thead>
  <tbody>
    <tr><td>01.03.2024</td><td>100,00</td><td>10</td><td>+1%</td></tr>
    <tr><td>29.02.2024</td><td> 21.500,00 </td><td>1.250</td><td>-0,5%</td></tr>
    <tr><td colspan="4">Нема податоци</td></tr>
  </tbody>
</table>
<table class="table"><tr><td>x</td></tr><tr><td>a</td><td>b</td><td>c</td><td>d</td></tr></table>
</body></html>`

const listingPage = `<html><body><form>
<select name="symbol">
  <option value="ALK">ALK</option>
  <option value="KMB"> KMB </option>
  <option value="RMDEN21">RMDEN21</option>
  <option value=""></option>
  <option value="ALK">ALK</option>
  <option value="TEL">TEL</option>
</select>
<select name="other"><option>ZZZ</option></select>
</form></body></html>`

func testClient(t *testing.T, srv *httptest.Server, opts ...ClientOption) *Client {
	t.Helper()
	cfg := config.SourceConfig{
		ListingURL: srv.URL + "/mk/stats/symbolhistory",
		HistoryURL: srv.URL + "/mk/stats/symbolhistory",
		Timeout:    5 * time.Second,
		RateLimit:  1000,
		UserAgent:  "msecli-test",
	}
	opts = append([]ClientOption{
		WithRetries(3, time.Millisecond),
		WithLogger(infrastructure.NewLogger(&bytes.Buffer{}, "debug")),
	}, opts...)
	return NewClient(cfg, opts...)
}

func testWindow() domain.DateWindow {
	return domain.DateWindow{
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
	}
}

func TestFetchWindow(t *testing.T) {
	var gotPath string
	var gotForm map[string]string
	var gotUA, gotContentType string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, r.ParseForm())
		gotPath = r.URL.Path
		gotUA = r.UserAgent()
		gotContentType = r.Header.Get("Content-Type")
		gotForm = map[string]string{
			"fromDate": r.PostForm.Get("fromDate"),
			"toDate":   r.PostForm.Get("toDate"),
			"symbol":   r.PostForm.Get("symbol"),
			"action":   r.PostForm.Get("action"),
		}
		w.Write([]byte(historyPage))
	}))
	defer srv.Close()

	result, err := testClient(t, srv).FetchWindow(context.Background(), "ALK", testWindow())
	require.NoError(t, err)

	assert.Equal(t, "/mk/stats/symbolhistory/ALK", gotPath)
	assert.Equal(t, "msecli-test", gotUA)
	assert.Equal(t, "application/x-www-form-urlencoded", gotContentType)
	assert.Equal(t, map[string]string{
		"fromDate": "01.01.2024",
		"toDate":   "31.12.2024",
		"symbol":   "ALK",
		"action":   "fetchData",
	}, gotForm)

	assert.True(t, result.TableFound)
	assert.Equal(t, []domain.RawRow{
		{Date: "01.03.2024", Price: "100,00", Volume: "10", Change: "+1%"},
		{Date: "29.02.2024", Price: "21.500,00", Volume: "1.250", Change: "-0,5%"},
	}, result.Rows)
	assert.NotEmpty(t, result.Preview)
}

func TestParseHistory(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantFound bool
		wantRows  int
	}{
		{name: "no table", body: `<html><body><p>Нема податоци</p></body></html>`, wantFound: false},
		{name: "table without class", body: `<table><tr><th>h</th></tr><tr><td>1</td><td>2</td><td>3</td><td>4</td></tr></table>`, wantFound: false},
		{name: "header only", body: `<table class="table"><tr><th>Датум</th></tr></table>`, wantFound: true},
		{name: "extra classes", body: `<table class="table table-striped"><tr><th>h</th></tr><tr><td>1</td><td>2</td><td>3</td><td>4</td><td>5</td></tr></table>`, wantFound: true, wantRows: 1},
		{name: "empty body", body: ``, wantFound: false},
		{name: "no data notice", body: testutil.EmptyHistoryPage(), wantFound: false},
		{name: "rendered page", body: testutil.HistoryPage(
			domain.RawRow{Date: "02.01.2025", Price: "1.234,50", Volume: "100", Change: "0,5"},
			domain.RawRow{Date: "03.01.2025", Price: "1.240,00", Volume: "40", Change: "0,45"},
		), wantFound: true, wantRows: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseHistory([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.wantFound, result.TableFound)
			assert.Len(t, result.Rows, tt.wantRows)
		})
	}
}

func TestParseHistory_PreviewIsBounded(t *testing.T) {
	body := bytes.Repeat([]byte("ш"), 600)
	result, err := ParseHistory(body)
	require.NoError(t, err)
	assert.False(t, result.TableFound)
	assert.LessOrEqual(t, len(result.Preview), previewBytes)
	assert.NotEmpty(t, result.Preview)
}

func TestFetchWindow_Retries(t *testing.T) {
	tests := []struct {
		name         string
		statuses     []int
		wantErr      bool
		wantStatus   int
		wantRequests int32
	}{
		{name: "recovers after server error", statuses: []int{503, 200}, wantRequests: 2},
		{name: "recovers after rate limiting", statuses: []int{429, 429, 200}, wantRequests: 3},
		{name: "gives up after max attempts", statuses: []int{500, 502, 503, 200}, wantErr: true, wantStatus: 503, wantRequests: 3},
		{name: "client error is not retried", statuses: []int{404, 200}, wantErr: true, wantStatus: 404, wantRequests: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var requests int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := atomic.AddInt32(&requests, 1)
				status := tt.statuses[n-1]
				if status != http.StatusOK {
					w.WriteHeader(status)
					return
				}
				w.Write([]byte(historyPage))
			}))
			defer srv.Close()

			result, err := testClient(t, srv).FetchWindow(context.Background(), "ALK", testWindow())

			assert.Equal(t, tt.wantRequests, atomic.LoadInt32(&requests))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.IsType(err, apperrors.ErrTypeTransport))
				assert.Equal(t, tt.wantStatus, apperrors.StatusCode(err))
				return
			}
			require.NoError(t, err)
			assert.Len(t, result.Rows, 2)
		})
	}
}

func TestFetchWindow_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := testClient(t, srv)
	srv.Close()

	_, err := client.FetchWindow(context.Background(), "ALK", testWindow())
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeTransport))
	assert.Equal(t, 0, apperrors.StatusCode(err))
}

func TestFetchWindow_Cancelled(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testClient(t, srv).FetchWindow(ctx, "ALK", testWindow())
	require.Error(t, err)
	assert.Equal(t, int32(0), atomic.LoadInt32(&requests))
}

func TestFetchWindow_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client := testClient(t, srv, WithTimeout(20*time.Millisecond), WithRetries(1, 0))
	_, err := client.FetchWindow(context.Background(), "ALK", testWindow())
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeTransport))
}

func TestListIssuers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/mk/stats/symbolhistory", r.URL.Path)
		w.Write([]byte(listingPage))
	}))
	defer srv.Close()

	codes, err := testClient(t, srv).ListIssuers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"ALK", "KMB", "TEL"}, codes)
}

func TestListIssuers_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := testClient(t, srv).ListIssuers(context.Background())
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, apperrors.StatusCode(err))
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(config.SourceConfig{ListingURL: "http://example.test"})
	assert.Equal(t, config.DefaultHTTPTimeout, c.httpClient.Timeout)
	assert.Equal(t, config.DefaultMaxAttempts, c.maxAttempts)
	assert.Equal(t, config.DefaultRetryBackoff, c.retryBackoff)
}
