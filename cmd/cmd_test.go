package cmd_test

import (
	"archive/tar"
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"sopdrop.com/cli/cmd/internal/test"
	"sopdrop.com/cli/internal/config"
	"sopdrop.com/cli/internal/pack"
	"sopdrop.com/cli/internal/registry"
)

// fixture is the in-memory registry the CLI under test talks to.
type fixture struct {
	asset    *registry.Asset
	versions []registry.Version
	payloads map[string]payloadFixture
	user     *registry.User
	token    string

	downloads atomic.Int32
}

type payloadFixture struct {
	data        []byte
	contentType string
}

func (f *fixture) authorized(r *http.Request) bool {
	return f.token != "" && r.Header.Get("Authorization") == "Bearer "+f.token
}

func (f *fixture) handler() http.Handler {
	writeJSON := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}
	unauthorized := func(w http.ResponseWriter) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "token rejected"})
	}
	notFound := func(w http.ResponseWriter) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/me", func(w http.ResponseWriter, r *http.Request) {
		if f.user == nil || !f.authorized(r) {
			unauthorized(w)
			return
		}
		writeJSON(w, http.StatusOK, f.user)
	})
	mux.HandleFunc("GET /api/v1/assets", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		assets := []registry.Asset{}
		if f.asset != nil && (q == "" || strings.Contains(f.asset.Slug, q) || strings.Contains(f.asset.Description, q)) {
			assets = append(assets, *f.asset)
		}
		writeJSON(w, http.StatusOK, map[string]any{"assets": assets, "total": len(assets)})
	})
	mux.HandleFunc("GET /api/v1/assets/{owner}/{name}", func(w http.ResponseWriter, r *http.Request) {
		slug := r.PathValue("owner") + "/" + r.PathValue("name")
		if f.asset == nil || f.asset.Slug != slug {
			notFound(w)
			return
		}
		writeJSON(w, http.StatusOK, f.asset)
	})
	mux.HandleFunc("GET /api/v1/assets/{owner}/{name}/versions", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"versions": f.versions})
	})
	mux.HandleFunc("GET /api/v1/assets/{owner}/{name}/download/{version}", func(w http.ResponseWriter, r *http.Request) {
		f.downloads.Add(1)
		p, ok := f.payloads[r.PathValue("version")]
		if !ok {
			notFound(w)
			return
		}
		w.Header().Set("Content-Type", p.contentType)
		_, _ = w.Write(p.data)
	})
	mux.HandleFunc("POST /api/v1/assets", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(r) {
			unauthorized(w)
			return
		}
		var req registry.PublishRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusCreated, &registry.Asset{
			Slug:  f.user.Username + "/" + req.Name,
			Owner: f.user.Username,
			Name:  req.Name,
		})
	})
	return mux
}

// startRegistry serves the fixture and points the environment at it,
// with a fresh sopdrop home per test. Every CLI execution in the test
// resolves server and home through these variables.
func startRegistry(t *testing.T, f *fixture) string {
	t.Helper()
	server := httptest.NewServer(f.handler())
	t.Cleanup(server.Close)

	home := t.TempDir()
	t.Setenv("SOPDROP_HOME", home)
	t.Setenv("SOPDROP_SERVER_URL", server.URL)
	t.Setenv("SOPDROP_TOKEN", "")
	return home
}

// storeToken fakes a prior login by writing the token file directly.
func storeToken(t *testing.T, home, token string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(home, config.TokenFileName), []byte(token+"\n"), 0o600))
}

func nodeAsset() *registry.Asset {
	return &registry.Asset{
		Slug:          "acme/scatter",
		Owner:         "acme",
		Name:          "scatter",
		Context:       "sop",
		Kind:          registry.KindNode,
		Description:   "poisson disk scatter",
		Tags:          []string{"scatter", "points"},
		Downloads:     5200,
		LatestVersion: "2.0.0",
		Publisher:     registry.Publisher{Username: "acme", EmailVerified: true},
	}
}

// buildNodePackage returns a marshaled node package whose embedded
// checksum matches its payload. mutate runs before marshaling.
func buildNodePackage(tb testing.TB, mutate func(*pack.Package)) []byte {
	tb.Helper()
	payload := []byte(`{"nodes": [{"name": "scatter1", "type": "scatter"}]}`)
	pkg := pack.Package{
		Format:   pack.FormatV2,
		Context:  "sop",
		Metadata: pack.Metadata{NodeCount: 1, NodeNames: []string{"scatter1"}},
		Data:     base64.StdEncoding.EncodeToString(payload),
		Checksum: pack.Sum(payload),
	}
	if mutate != nil {
		mutate(&pkg)
	}
	data, err := json.Marshal(pkg)
	require.NoError(tb, err)
	return data
}

// nodeFixture is a logged-out registry with one node asset in three
// versions, all of them downloadable.
func nodeFixture(tb testing.TB) *fixture {
	pkg := payloadFixture{data: buildNodePackage(tb, nil), contentType: "application/json"}
	return &fixture{
		asset: nodeAsset(),
		versions: []registry.Version{
			{Version: "2.0.0", Size: 420},
			{Version: "1.2.0", Size: 410},
			{Version: "1.0.0", Size: 400},
		},
		payloads: map[string]payloadFixture{
			"2.0.0": pkg,
			"1.2.0": pkg,
			"1.0.0": pkg,
		},
	}
}

func Test_Login_And_Logout(t *testing.T) {
	r := require.New(t)
	f := nodeFixture(t)
	f.token = "tok-123"
	f.user = &registry.User{Username: "jrivera", Email: "j@studio.example", EmailVerified: true}
	home := startRegistry(t, f)

	logs := test.NewJSONLogReader()
	_, err := test.Sopdrop(t,
		test.WithArgs("login"),
		test.WithOutput(logs),
		test.WithInput(strings.NewReader("tok-123\n")))
	r.NoError(err, "failed to log in")
	r.Contains(logs.GetDiscarded(), "Logged in as jrivera")

	token, err := os.ReadFile(filepath.Join(home, config.TokenFileName))
	r.NoError(err, "expected a stored token file")
	r.Equal("tok-123", strings.TrimSpace(string(token)))

	logs = test.NewJSONLogReader()
	_, err = test.Sopdrop(t, test.WithArgs("logout"), test.WithOutput(logs))
	r.NoError(err, "failed to log out")
	r.Contains(logs.GetDiscarded(), "Logged out.")

	_, err = os.Stat(filepath.Join(home, config.TokenFileName))
	r.True(os.IsNotExist(err), "logout must remove the token file")
}

func Test_Login_RejectedToken(t *testing.T) {
	r := require.New(t)
	f := nodeFixture(t)
	f.token = "tok-123"
	f.user = &registry.User{Username: "jrivera"}
	home := startRegistry(t, f)

	_, err := test.Sopdrop(t, test.WithArgs("login", "--token", "wrong"))
	r.Error(err, "a rejected token must fail the login")

	_, err = os.Stat(filepath.Join(home, config.TokenFileName))
	r.True(os.IsNotExist(err), "a rejected token must not stay stored")
}

func Test_Search_Formats(t *testing.T) {
	tests := []struct {
		name          string
		args          []string
		expectedError bool
		check         func(r *require.Assertions, logs *test.JSONLogReader)
	}{
		{
			name: "Default Options (Table)",
			args: []string{"search", "scatter"},
			check: func(r *require.Assertions, logs *test.JSONLogReader) {
				discarded := logs.GetDiscarded()
				r.Contains(discarded, "ASSET")
				r.Contains(discarded, "acme/scatter")
				r.Contains(discarded, "SOP")
				r.Contains(discarded, "2.0.0")
				r.Contains(discarded, "5200")
			},
		},
		{
			name: "JSON output",
			args: []string{"search", "scatter", "--output=json"},
			check: func(r *require.Assertions, logs *test.JSONLogReader) {
				var assets []registry.Asset
				r.NoError(json.Unmarshal([]byte(logs.GetDiscarded()), &assets))
				r.Len(assets, 1)
				r.Equal("acme/scatter", assets[0].Slug)
				r.Equal("2.0.0", assets[0].LatestVersion)
			},
		},
		{
			name: "YAML output",
			args: []string{"search", "scatter", "--output=yaml"},
			check: func(r *require.Assertions, logs *test.JSONLogReader) {
				r.Contains(logs.GetDiscarded(), "slug: acme/scatter")
			},
		},
		{
			name: "No results",
			args: []string{"search", "volumetric-clouds"},
			check: func(r *require.Assertions, logs *test.JSONLogReader) {
				r.Contains(logs.GetDiscarded(), `no assets matched "volumetric-clouds"`)
			},
		},
		{
			name:          "Invalid output format",
			args:          []string{"search", "scatter", "--output=invalid"},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := require.New(t)
			startRegistry(t, nodeFixture(t))

			logs := test.NewJSONLogReader()
			_, err := test.Sopdrop(t, test.WithArgs(tt.args...), test.WithOutput(logs))

			if tt.expectedError {
				r.Error(err, "expected error but got none")
				return
			}
			r.NoError(err, "failed to run command")
			tt.check(r, logs)
		})
	}
}

func Test_Info_Formats(t *testing.T) {
	f := nodeFixture(t)
	f.versions[1].Changelog = "fix seed handling"

	tests := []struct {
		name  string
		args  []string
		check func(r *require.Assertions, logs *test.JSONLogReader)
	}{
		{
			name: "Default Options (Text)",
			args: []string{"info", "acme/scatter"},
			check: func(r *require.Assertions, logs *test.JSONLogReader) {
				discarded := logs.GetDiscarded()
				r.Contains(discarded, "acme/scatter")
				r.Contains(discarded, "@acme")
				r.Contains(discarded, "2.0.0")
				r.Contains(discarded, "1.2.0")
				r.Contains(discarded, "fix seed handling")
			},
		},
		{
			name: "JSON output",
			args: []string{"info", "acme/scatter", "--output=json"},
			check: func(r *require.Assertions, logs *test.JSONLogReader) {
				var doc struct {
					Asset    registry.Asset     `json:"asset"`
					Versions []registry.Version `json:"versions"`
				}
				r.NoError(json.Unmarshal([]byte(logs.GetDiscarded()), &doc))
				r.Equal("acme/scatter", doc.Asset.Slug)
				r.Len(doc.Versions, 3)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := require.New(t)
			startRegistry(t, f)

			logs := test.NewJSONLogReader()
			_, err := test.Sopdrop(t, test.WithArgs(tt.args...), test.WithOutput(logs))
			r.NoError(err, "failed to run command")
			tt.check(r, logs)
		})
	}
}

func Test_Info_UnknownAsset(t *testing.T) {
	r := require.New(t)
	startRegistry(t, nodeFixture(t))

	_, err := test.Sopdrop(t, test.WithArgs("info", "ghost/nothere"))
	r.Error(err, "unknown assets must fail")
}

func Test_Preview_Resolution(t *testing.T) {
	tests := []struct {
		name           string
		reference      string
		expectedOutput string
		expectedError  bool
	}{
		{
			name:           "Omitted version resolves to the highest release",
			reference:      "acme/scatter",
			expectedOutput: "acme/scatter@2.0.0",
		},
		{
			name:           "latest resolves to the highest release",
			reference:      "acme/scatter@latest",
			expectedOutput: "acme/scatter@2.0.0",
		},
		{
			name:           "Exact version is used as is",
			reference:      "acme/scatter@1.2.0",
			expectedOutput: "acme/scatter@1.2.0",
		},
		{
			name:          "Malformed version",
			reference:     "acme/scatter@x",
			expectedError: true,
		},
		{
			name:          "Missing owner",
			reference:     "scatter",
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := require.New(t)
			startRegistry(t, nodeFixture(t))

			logs := test.NewJSONLogReader()
			_, err := test.Sopdrop(t, test.WithArgs("preview", tt.reference), test.WithOutput(logs))

			if tt.expectedError {
				r.Error(err, "expected error but got none")
				return
			}
			r.NoError(err, "failed to run command")
			r.Contains(logs.GetDiscarded(), tt.expectedOutput)
			r.Contains(logs.GetDiscarded(), "No warnings.")
		})
	}
}

func Test_Install_PromptFlow(t *testing.T) {
	pythonFixture := func(tb testing.TB) *fixture {
		f := nodeFixture(tb)
		data := buildNodePackage(tb, func(pkg *pack.Package) {
			pkg.Metadata.HasPythonSOPs = true
		})
		f.payloads["2.0.0"] = payloadFixture{data: data, contentType: "application/json"}
		return f
	}

	t.Run("declined at the prompt", func(t *testing.T) {
		r := require.New(t)
		home := startRegistry(t, pythonFixture(t))

		logs := test.NewJSONLogReader()
		_, err := test.Sopdrop(t,
			test.WithArgs("install", "acme/scatter"),
			test.WithOutput(logs),
			test.WithInput(strings.NewReader("n\n")))
		r.Error(err, "declining the prompt must fail the install")
		r.ErrorContains(err, "declined")

		_, err = os.Stat(filepath.Join(home, config.ClipboardFileName))
		r.True(os.IsNotExist(err), "declined assets must not reach the clipboard")
	})

	t.Run("accepted at the prompt", func(t *testing.T) {
		r := require.New(t)
		home := startRegistry(t, pythonFixture(t))

		logs := test.NewJSONLogReader()
		_, err := test.Sopdrop(t,
			test.WithArgs("install", "acme/scatter"),
			test.WithOutput(logs),
			test.WithInput(strings.NewReader("y\n")))
		r.NoError(err, "failed to install")
		r.Contains(logs.GetDiscarded(), "Python SOPs")
		r.Contains(logs.GetDiscarded(), "Package acme/scatter@2.0.0 staged at")
		r.Contains(logs.GetDiscarded(), "Recorded in the local library.")

		data, err := os.ReadFile(filepath.Join(home, config.ClipboardFileName))
		r.NoError(err, "expected a staged clipboard file")
		var doc struct {
			Slug    string `json:"slug"`
			Version string `json:"version"`
		}
		r.NoError(json.Unmarshal(data, &doc))
		r.Equal("acme/scatter", doc.Slug)
		r.Equal("2.0.0", doc.Version)
	})

	t.Run("trust skips the prompt but keeps the log", func(t *testing.T) {
		r := require.New(t)
		startRegistry(t, pythonFixture(t))

		logs := test.NewJSONLogReader()
		_, err := test.Sopdrop(t,
			test.WithArgs("install", "acme/scatter", "--trust", "--logoutput=stdout"),
			test.WithOutput(logs))
		r.NoError(err, "trusted installs must not prompt")

		entries, err := logs.List()
		r.NoError(err, "failed to list log entries")
		var warned bool
		for _, entry := range entries {
			if entry.Msg == "asset warning" {
				warned = true
				r.Equal("python-sops", entry.Extras["code"])
			}
		}
		r.True(warned, "the warning must be logged even when trusted")
	})
}

func Test_Install_HDA_AlwaysPrompts(t *testing.T) {
	hdaBytes := []byte("INDX\x00fake houdini asset definition")
	f := &fixture{
		asset: &registry.Asset{
			Slug:          "acme/flowfield",
			Owner:         "acme",
			Name:          "flowfield",
			Context:       "obj",
			Kind:          registry.KindHDA,
			Downloads:     900,
			LatestVersion: "1.0.0",
			Publisher:     registry.Publisher{Username: "acme", EmailVerified: true},
		},
		versions: []registry.Version{
			{Version: "1.0.0", Size: int64(len(hdaBytes)), Checksum: pack.Sum(hdaBytes)},
		},
		payloads: map[string]payloadFixture{
			"1.0.0": {data: hdaBytes, contentType: "application/octet-stream"},
		},
	}
	home := startRegistry(t, f)
	r := require.New(t)

	logs := test.NewJSONLogReader()
	_, err := test.Sopdrop(t,
		test.WithArgs("install", "acme/flowfield"),
		test.WithOutput(logs),
		test.WithInput(strings.NewReader("\n")))
	r.Error(err, "an unanswered HDA prompt must fail the install")

	logs = test.NewJSONLogReader()
	_, err = test.Sopdrop(t,
		test.WithArgs("install", "acme/flowfield"),
		test.WithOutput(logs),
		test.WithInput(strings.NewReader("y\n")))
	r.NoError(err, "failed to install the HDA")
	r.Contains(logs.GetDiscarded(), "HDA acme/flowfield@1.0.0 saved to")

	saved, err := os.ReadFile(filepath.Join(home, config.HDADirName, "acme_flowfield@1.0.0.hda"))
	r.NoError(err, "expected the saved asset definition")
	r.Equal(hdaBytes, saved)
}

func Test_Install_UsesCache(t *testing.T) {
	r := require.New(t)
	f := nodeFixture(t)
	startRegistry(t, f)

	_, err := test.Sopdrop(t, test.WithArgs("install", "acme/scatter", "--trust"))
	r.NoError(err)
	r.EqualValues(1, f.downloads.Load())

	_, err = test.Sopdrop(t, test.WithArgs("install", "acme/scatter", "--trust"))
	r.NoError(err)
	r.EqualValues(1, f.downloads.Load(), "the second install must be served from the cache")

	_, err = test.Sopdrop(t, test.WithArgs("install", "acme/scatter", "--trust", "--force"))
	r.NoError(err)
	r.EqualValues(2, f.downloads.Load(), "force must bypass the cache")
}

func Test_Code(t *testing.T) {
	r := require.New(t)
	f := nodeFixture(t)
	data := buildNodePackage(t, func(pkg *pack.Package) {
		pkg.Format = pack.FormatV1
		pkg.Code = "node = parent.createNode('scatter')"
	})
	f.payloads["2.0.0"] = payloadFixture{data: data, contentType: "application/json"}
	startRegistry(t, f)

	logs := test.NewJSONLogReader()
	_, err := test.Sopdrop(t, test.WithArgs("code", "acme/scatter"), test.WithOutput(logs))
	r.NoError(err, "failed to fetch code")
	r.Contains(logs.GetDiscarded(), "node = parent.createNode('scatter')")
}

func Test_Cache_Status_Clear_Seed(t *testing.T) {
	r := require.New(t)
	startRegistry(t, nodeFixture(t))

	logs := test.NewJSONLogReader()
	_, err := test.Sopdrop(t, test.WithArgs("cache"), test.WithOutput(logs))
	r.NoError(err)
	r.Contains(logs.GetDiscarded(), "Cache is empty.")

	_, err = test.Sopdrop(t, test.WithArgs("install", "acme/scatter", "--trust"))
	r.NoError(err)

	logs = test.NewJSONLogReader()
	_, err = test.Sopdrop(t, test.WithArgs("cache"), test.WithOutput(logs))
	r.NoError(err)
	r.Contains(logs.GetDiscarded(), "acme_scatter")
	r.Contains(logs.GetDiscarded(), "2.0.0")
	r.Contains(logs.GetDiscarded(), "1 entries")

	logs = test.NewJSONLogReader()
	_, err = test.Sopdrop(t, test.WithArgs("cache", "clear"), test.WithOutput(logs))
	r.NoError(err)
	r.Contains(logs.GetDiscarded(), "Cache cleared.")

	archive := filepath.Join(t.TempDir(), "team-cache.tar")
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	entry := buildNodePackage(t, nil)
	r.NoError(tw.WriteHeader(&tar.Header{Name: "acme_scatter@1.2.0.sopdrop", Mode: 0o644, Size: int64(len(entry))}))
	_, err = tw.Write(entry)
	r.NoError(err)
	r.NoError(tw.Close())
	r.NoError(os.WriteFile(archive, buf.Bytes(), 0o644))

	logs = test.NewJSONLogReader()
	_, err = test.Sopdrop(t, test.WithArgs("cache", "seed", archive), test.WithOutput(logs))
	r.NoError(err)
	r.Contains(logs.GetDiscarded(), "Imported 1 entries.")

	logs = test.NewJSONLogReader()
	_, err = test.Sopdrop(t, test.WithArgs("cache"), test.WithOutput(logs))
	r.NoError(err)
	r.Contains(logs.GetDiscarded(), "acme_scatter")
	r.Contains(logs.GetDiscarded(), "1.2.0")
}

func Test_Config_Show_And_SetServer(t *testing.T) {
	r := require.New(t)
	f := nodeFixture(t)
	home := startRegistry(t, f)

	logs := test.NewJSONLogReader()
	_, err := test.Sopdrop(t, test.WithArgs("config"), test.WithOutput(logs))
	r.NoError(err)
	r.Contains(logs.GetDiscarded(), "Server")
	r.Contains(logs.GetDiscarded(), "(env)", "the test server URL comes from the environment")
	r.Contains(logs.GetDiscarded(), "(not set)")

	storeToken(t, home, "tok-123")
	logs = test.NewJSONLogReader()
	_, err = test.Sopdrop(t, test.WithArgs("config"), test.WithOutput(logs))
	r.NoError(err)
	r.Contains(logs.GetDiscarded(), "***", "stored tokens must be masked")
	r.NotContains(logs.GetDiscarded(), "tok-123")

	logs = test.NewJSONLogReader()
	_, err = test.Sopdrop(t, test.WithArgs("config", "server", "https://reg.example.com/"), test.WithOutput(logs))
	r.NoError(err)
	r.Contains(logs.GetDiscarded(), "Server URL set to https://reg.example.com")

	data, err := os.ReadFile(filepath.Join(home, config.ConfigFileName))
	r.NoError(err, "expected a written config file")
	var file config.File
	r.NoError(json.Unmarshal(data, &file))
	r.Equal("https://reg.example.com", file.ServerURL)

	// the environment override still wins over the stored value
	logs = test.NewJSONLogReader()
	_, err = test.Sopdrop(t, test.WithArgs("config"), test.WithOutput(logs))
	r.NoError(err)
	r.Contains(logs.GetDiscarded(), "(env)")

	_, err = test.Sopdrop(t, test.WithArgs("config", "server", "not-a-url"))
	r.Error(err, "relative URLs must be rejected")
}

func Test_Library_List_And_Sync(t *testing.T) {
	r := require.New(t)
	f := nodeFixture(t)
	startRegistry(t, f)

	logs := test.NewJSONLogReader()
	_, err := test.Sopdrop(t, test.WithArgs("library", "list"), test.WithOutput(logs))
	r.NoError(err)
	r.Contains(logs.GetDiscarded(), "Library is empty.")

	_, err = test.Sopdrop(t, test.WithArgs("install", "acme/scatter@1.2.0", "--trust"))
	r.NoError(err)

	logs = test.NewJSONLogReader()
	_, err = test.Sopdrop(t, test.WithArgs("library", "list"), test.WithOutput(logs))
	r.NoError(err)
	r.Contains(logs.GetDiscarded(), "acme/scatter")
	r.Contains(logs.GetDiscarded(), "1.2.0")

	// the registry moves on, a sync picks the new latest up
	f.asset.LatestVersion = "3.0.0"
	logs = test.NewJSONLogReader()
	_, err = test.Sopdrop(t, test.WithArgs("library", "sync"), test.WithOutput(logs))
	r.NoError(err)
	r.Contains(logs.GetDiscarded(), "Synced 1 assets.")

	logs = test.NewJSONLogReader()
	_, err = test.Sopdrop(t, test.WithArgs("library", "list"), test.WithOutput(logs))
	r.NoError(err)
	r.Contains(logs.GetDiscarded(), "3.0.0 *")
	r.Contains(logs.GetDiscarded(), "newer version")
}

func Test_Publish(t *testing.T) {
	writeManifest := func(t *testing.T) string {
		t.Helper()
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "scatter.sopdrop"), buildNodePackage(t, nil), 0o644))
		manifest := filepath.Join(dir, "sopdrop.yaml")
		require.NoError(t, os.WriteFile(manifest, []byte(`name: scatter
context: sop
version: 1.0.0
description: poisson disk scatter
package: scatter.sopdrop
`), 0o644))
		return manifest
	}

	t.Run("requires a token", func(t *testing.T) {
		r := require.New(t)
		startRegistry(t, nodeFixture(t))

		_, err := test.Sopdrop(t, test.WithArgs("publish", "--manifest", writeManifest(t)))
		r.Error(err, "publishing must require auth")
		r.ErrorContains(err, "no token configured")
	})

	t.Run("publishes a node package", func(t *testing.T) {
		r := require.New(t)
		f := nodeFixture(t)
		f.token = "tok-123"
		f.user = &registry.User{Username: "jrivera"}
		home := startRegistry(t, f)
		storeToken(t, home, "tok-123")

		logs := test.NewJSONLogReader()
		_, err := test.Sopdrop(t, test.WithArgs("publish", "--manifest", writeManifest(t)), test.WithOutput(logs))
		r.NoError(err, "failed to publish")
		r.Contains(logs.GetDiscarded(), "Published jrivera/scatter@1.0.0")
	})

	t.Run("missing manifest", func(t *testing.T) {
		r := require.New(t)
		startRegistry(t, nodeFixture(t))

		_, err := test.Sopdrop(t, test.WithArgs("publish", "--manifest", filepath.Join(t.TempDir(), "nope.yaml")))
		r.Error(err, "a missing manifest must fail before any request")
	})
}

func Test_Version(t *testing.T) {
	r := require.New(t)
	startRegistry(t, nodeFixture(t))

	logs := test.NewJSONLogReader()
	_, err := test.Sopdrop(t, test.WithArgs("version"), test.WithOutput(logs))
	r.NoError(err)
	r.Contains(logs.GetDiscarded(), "sopdrop version")

	logs = test.NewJSONLogReader()
	_, err = test.Sopdrop(t, test.WithArgs("version", "--format", "gobuildinfojson"), test.WithOutput(logs))
	r.NoError(err)
	entries, err := logs.List()
	r.NoError(err)
	r.NotEmpty(entries, "the JSON build info must parse as a single JSON line")
	r.Contains(entries[len(entries)-1].Extras, "GoVersion")
}

func Test_Generate_Docs(t *testing.T) {
	r := require.New(t)
	startRegistry(t, nodeFixture(t))

	dir := t.TempDir()
	_, err := test.Sopdrop(t, test.WithArgs("generate", "docs", "--dir", dir))
	r.NoError(err, "failed to generate docs")

	r.FileExists(filepath.Join(dir, "sopdrop.md"))
	r.FileExists(filepath.Join(dir, "sopdrop_install.md"))
	r.FileExists(filepath.Join(dir, "sopdrop_cache_seed.md"))
}
