package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gielenor/launcher/src/pkg/models"
)

type release struct {
	TagName string `json:"tag_name"`
}

func TestFetchJSON(t *testing.T) {
	var gotUA, gotAccept string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"tag_name":"v1.2.3"}`)
	}))
	defer server.Close()

	client := NewClient(WithUserAgent("Gielenor-Launcher/test"))
	var out release
	resp, err := client.FetchJSON(context.Background(), server.URL, nil, &out)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "v1.2.3", out.TagName)
	assert.Equal(t, "Gielenor-Launcher/test", gotUA)
	assert.Equal(t, "application/json", gotAccept)
}

func TestFetchJSONStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "2")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"message":"API rate limit exceeded"}`)
	}))
	defer server.Close()

	client := NewClient()
	resp, err := client.FetchJSON(context.Background(), server.URL, nil, &release{})
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
	assert.Equal(t, "2", statusErr.Header.Get("Retry-After"))
	assert.ErrorIs(t, err, models.ErrNetwork)
	require.NotNil(t, resp)
	assert.Contains(t, string(resp.Body), "rate limit")
}

func TestFetchJSONInvalidBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html>not json</html>`)
	}))
	defer server.Close()

	client := NewClient()
	_, err := client.FetchJSON(context.Background(), server.URL, nil, &release{})
	assert.ErrorIs(t, err, models.ErrNetwork)

	_, err = client.FetchJSON(context.Background(), server.URL, nil, nil)
	assert.ErrorIs(t, err, models.ErrNetwork)
}

func TestFetchJSONTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	client := NewClient(WithTimeout(50 * time.Millisecond))
	_, err := client.FetchJSON(context.Background(), server.URL, nil, &release{})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrTimeout)
	assert.ErrorIs(t, err, models.ErrNetwork)
}

func TestFetchJSONTokenOnlyForGitHub(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{}`)
	}))
	defer server.Close()

	client := NewClient(WithToken("secret"))
	_, err := client.FetchJSON(context.Background(), server.URL, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

// redirectBodySize is large enough that counting the redirect hop would
// push the first progress report past one chunk of the final body
const redirectBodySize = 60000

func newPayloadServer(t *testing.T, payload []byte) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/file", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		_, _ = w.Write(payload)
	})
	mux.HandleFunc("/redirect", func(w http.ResponseWriter, r *http.Request) {
		hop := bytes.Repeat([]byte("r"), redirectBodySize)
		w.Header().Set("Location", "/file")
		w.Header().Set("Content-Length", strconv.Itoa(len(hop)))
		w.WriteHeader(http.StatusFound)
		_, _ = w.Write(hop)
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestDownloadToFile(t *testing.T) {
	payload := bytes.Repeat([]byte("gielenor"), 20000)
	server := newPayloadServer(t, payload)
	dest := filepath.Join(t.TempDir(), "nested", "Gielenor_v1.0.0.jar")

	var progress []int
	client := NewClient()
	err := client.DownloadToFile(context.Background(), server.URL+"/file", dest, func(p int) {
		progress = append(progress, p)
	})
	require.NoError(t, err)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
	assert.NoFileExists(t, dest+partSuffix)

	require.NotEmpty(t, progress)
	assert.Equal(t, 100, progress[len(progress)-1])
	for i := 1; i < len(progress); i++ {
		assert.GreaterOrEqual(t, progress[i], progress[i-1])
		assert.LessOrEqual(t, progress[i], 100)
	}
}

func TestDownloadFollowsRedirect(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 100000)
	server := newPayloadServer(t, payload)
	dest := filepath.Join(t.TempDir(), "runtime.rar")

	var progress []int
	client := NewClient()
	err := client.DownloadToFile(context.Background(), server.URL+"/redirect", dest, func(p int) {
		progress = append(progress, p)
	})
	require.NoError(t, err)

	info, err := os.Stat(dest)
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), info.Size())

	require.Greater(t, len(progress), 1)
	assert.LessOrEqual(t, progress[0], chunkSize*100/len(payload))
	assert.Equal(t, 100, progress[len(progress)-1])
	for i := 1; i < len(progress); i++ {
		assert.GreaterOrEqual(t, progress[i], progress[i-1])
	}
}

func TestDownloadRedirectLimit(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Redirect(w, r, "/loop", http.StatusFound)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "loop.bin")
	client := NewClient(WithMaxRedirects(3))
	err := client.DownloadToFile(context.Background(), server.URL+"/loop", dest, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrNetwork)
	assert.Equal(t, int32(4), hits.Load())
	assert.NoFileExists(t, dest)
}

func TestDownloadRedirectWithoutLocation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusFound)
	}))
	defer server.Close()

	err := NewClient().DownloadToFile(context.Background(), server.URL, filepath.Join(t.TempDir(), "f"), nil)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusFound, statusErr.StatusCode)
}

func TestDownloadNotFound(t *testing.T) {
	server := newPayloadServer(t, []byte("data"))
	dest := filepath.Join(t.TempDir(), "missing.bin")

	err := NewClient().DownloadToFile(context.Background(), server.URL+"/missing", dest, nil)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.NoFileExists(t, dest)
	assert.NoFileExists(t, dest+partSuffix)
}

func TestDownloadCancelLeavesNoFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(1<<20))
		_, _ = w.Write(bytes.Repeat([]byte("a"), 64<<10))
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dest := filepath.Join(t.TempDir(), "Gielenor_v2.0.0.jar")
	err := NewClient().DownloadToFile(ctx, server.URL, dest, func(p int) {
		if p > 0 {
			cancel()
		}
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrCancelled)
	assert.NoFileExists(t, dest)
	assert.NoFileExists(t, dest+partSuffix)
}

func TestDownloadStalledBodyTimesOut(t *testing.T) {
	unblock := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000")
		_, _ = w.Write([]byte("abc"))
		w.(http.Flusher).Flush()
		select {
		case <-unblock:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(unblock)

	dest := filepath.Join(t.TempDir(), "Gielenor_v3.0.0.jar")
	started := time.Now()
	err := NewClient(WithTimeout(200*time.Millisecond)).DownloadToFile(context.Background(), server.URL, dest, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrTimeout)
	assert.NotErrorIs(t, err, models.ErrCancelled)
	assert.Less(t, time.Since(started), 3*time.Second)
	assert.NoFileExists(t, dest)
	assert.NoFileExists(t, dest+partSuffix)
}

func TestDownloadSlowBodyWithinIdleTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "5")
		for _, b := range []byte("abcde") {
			_, _ = w.Write([]byte{b})
			w.(http.Flusher).Flush()
			time.Sleep(100 * time.Millisecond)
		}
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "slow.bin")
	err := NewClient(WithTimeout(300*time.Millisecond)).DownloadToFile(context.Background(), server.URL, dest, nil)
	require.NoError(t, err)
	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "abcde", string(got))
}

func TestDownloadIsReentrant(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	payload := []byte("the jar contents")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			// Advertise more than is sent so the body ends early
			w.Header().Set("Content-Length", "1000")
			_, _ = w.Write(payload)
			return
		}
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "artifact.bin")
	client := NewClient()

	require.Error(t, client.DownloadToFile(context.Background(), server.URL, dest, nil))
	assert.NoFileExists(t, dest)
	assert.NoFileExists(t, dest+partSuffix)

	fail.Store(false)
	require.NoError(t, client.DownloadToFile(context.Background(), server.URL, dest, nil))
	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestDownloadUnknownLengthReportsCompletion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("chunk one "))
		w.(http.Flusher).Flush()
		_, _ = w.Write([]byte("chunk two"))
	}))
	defer server.Close()

	var progress []int
	dest := filepath.Join(t.TempDir(), "unknown.bin")
	require.NoError(t, NewClient().DownloadToFile(context.Background(), server.URL, dest, func(p int) {
		progress = append(progress, p)
	}))
	assert.Equal(t, []int{100}, progress)
}

func TestTaskPercent(t *testing.T) {
	task := NewTask("https://example.com/a", "/tmp/a")
	assert.Equal(t, -1, task.Percent())

	task.Total = 200
	task.Received = 50
	assert.Equal(t, 25, task.Percent())

	task.Received = 250
	assert.Equal(t, 100, task.Percent())
	assert.Equal(t, "/tmp/a.part", task.PartPath())
	assert.NotEmpty(t, task.ID)
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "https://objects.example.com/file.rar",
		redactURL("https://objects.example.com/file.rar?X-Amz-Signature=abc#frag"))
	assert.Equal(t, "<invalid-url>", redactURL("://bad"))
}
