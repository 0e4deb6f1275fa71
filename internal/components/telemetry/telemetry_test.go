package telemetry

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

func TestScopedAPI(t *testing.T) {
	rec := NewRecorder()
	scoped := NewScopedAPI("session", rec)

	scoped.ReportBroken("establish", fmt.Errorf("boom"))
	scoped.ReportWarning("consent")
	scoped.ReportCount("written", 3)

	require.True(t, rec.Has("broken", "session: establish"))
	require.True(t, rec.Has("warning", "session: consent"))
	counts := rec.Reports("count")
	require.Len(t, counts, 1)
	require.Equal(t, int64(3), counts[0].Count)
	require.Len(t, rec.Reports(""), 3)
}

func TestInstrumentResty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	rec := NewRecorder()
	client := resty.New().SetBaseURL(server.URL)
	InstrumentResty(client, rec)

	_, err := client.R().Get("/")
	require.NoError(t, err)
	require.False(t, rec.Has("warning", report_resty_response))
	require.True(t, rec.Has("debug", report_resty_response))

	_, err = client.R().Get("/missing")
	require.NoError(t, err)
	require.True(t, rec.Has("warning", report_resty_response))
}
