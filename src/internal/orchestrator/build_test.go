package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gielenor/launcher/src/pkg/models"
)

type recordingLauncher struct {
	launched []models.Artifact
}

func (r *recordingLauncher) Launch(_ context.Context, artifact models.Artifact) error {
	r.launched = append(r.launched, artifact)
	return nil
}

type asset struct {
	Name string `json:"name"`
	URL  string `json:"browser_download_url"`
}

func releaseServer(t *testing.T, clientTag string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	var srv *httptest.Server

	mux.HandleFunc("/repos/client/latest", func(w http.ResponseWriter, r *http.Request) {
		version := clientTag[1:]
		name := "Gielenor_v" + version + ".jar"
		_ = json.NewEncoder(w).Encode(map[string]any{
			"tag_name": clientTag,
			"assets":   []asset{{Name: name, URL: srv.URL + "/download/" + name}},
		})
	})
	mux.HandleFunc("/repos/launcher/latest", func(w http.ResponseWriter, r *http.Request) {
		var assets []asset
		for _, goos := range []string{"windows", "darwin", "linux"} {
			name := fmt.Sprintf("GielenorLauncher_v9.0.0_%s_%s", goos, runtime.GOARCH)
			if goos == "windows" {
				name += ".exe"
			}
			assets = append(assets, asset{Name: name, URL: srv.URL + "/download/" + name})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"tag_name": "v9.0.0", "assets": assets})
	})
	mux.HandleFunc("/download/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("jar bytes"))
	})

	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, srv *httptest.Server) *models.Config {
	t.Helper()
	return &models.Config{
		DataDir: t.TempDir(),
		Network: models.NetworkConfig{RateLimitAttempts: 1, MaxRedirects: 5},
		SelfUpdate: models.SelfUpdateConfig{
			Enabled:     true,
			Endpoint:    srv.URL + "/repos/launcher/latest",
			AssetPrefix: "GielenorLauncher_v",
		},
		Client: models.ClientConfig{
			Endpoint:       srv.URL + "/repos/client/latest",
			AssetPrefix:    "Gielenor_v",
			AssetExtension: ".jar",
		},
		Runtime: models.RuntimeConfig{
			BaseURL:  srv.URL + "/download",
			Archives: map[models.Platform]string{models.HostPlatform(): "runtime.rar"},
		},
	}
}

func provisionRuntime(t *testing.T, c *Components) {
	t.Helper()
	java := c.RuntimeDir.EntryPoint()
	require.NoError(t, os.MkdirAll(filepath.Dir(java), 0755))
	require.NoError(t, os.WriteFile(java, []byte("#!/bin/sh\n"), 0755))
}

func TestComponentsRunEndToEnd(t *testing.T) {
	srv := releaseServer(t, "v2.0.0")
	c := NewComponents(testConfig(t, srv))
	provisionRuntime(t, c)

	launcher := &recordingLauncher{}
	client := c.ClientPipeline(nil)
	client.Launcher = launcher

	o := &Orchestrator{Runtime: c.RuntimePipeline(nil), Client: client}
	result, err := o.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, ResultLaunched, result)
	require.Len(t, launcher.launched, 1)
	assert.Equal(t, "2.0.0", launcher.launched[0].Version)
	assert.Equal(t, c.ClientStore.PathFor("2.0.0"), launcher.launched[0].Path)
	assert.FileExists(t, c.ClientStore.PathFor("2.0.0"))
}

func TestComponentsClientArgsUseRuntime(t *testing.T) {
	srv := releaseServer(t, "v2.0.0")
	cfg := testConfig(t, srv)
	cfg.Client.JavaArgs = []string{"-Xmx1G"}
	c := NewComponents(cfg)

	p := c.ClientPipeline(nil)
	assert.Equal(t, models.DomainClient, p.Domain)
	assert.NotNil(t, p.Launcher)

	rt := c.RuntimePipeline(nil)
	assert.True(t, rt.ProvisionOnce)
	assert.Equal(t, filepath.Join(cfg.DataDir, "runtime"), filepath.Dir(c.RuntimeDir.Path()))
}

func TestSelfUpdateDisabled(t *testing.T) {
	srv := releaseServer(t, "v2.0.0")
	cfg := testConfig(t, srv)
	c := NewComponents(cfg)

	// test binaries are development builds
	assert.True(t, c.SelfUpdateDisabled())

	cfg.ForceSelfUpdate = true
	assert.False(t, c.SelfUpdateDisabled())
	assert.False(t, c.SelfUpdatePipeline(nil).Disabled)

	cfg.SelfUpdate.Enabled = false
	assert.True(t, c.SelfUpdateDisabled())
}

func TestCheck(t *testing.T) {
	srv := releaseServer(t, "v2.0.0")
	c := NewComponents(testConfig(t, srv))
	provisionRuntime(t, c)

	path := c.ClientStore.PathFor("1.5.0")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("old jar"), 0644))

	statuses := c.Check(context.Background())
	require.Len(t, statuses, 3)

	assert.Equal(t, models.DomainLauncher, statuses[0].Domain)
	assert.Equal(t, "9.0.0", statuses[0].Remote)
	assert.NoError(t, statuses[0].Err)

	assert.Equal(t, models.DomainRuntime, statuses[1].Domain)
	assert.Equal(t, "installed", statuses[1].Local)

	assert.Equal(t, models.DomainClient, statuses[2].Domain)
	assert.Equal(t, "1.5.0", statuses[2].Local)
	assert.Equal(t, "2.0.0", statuses[2].Remote)
	assert.True(t, statuses[2].UpdateAvailable())

	assert.NoFileExists(t, c.ClientStore.PathFor("2.0.0"))
}
