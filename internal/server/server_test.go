package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"myssh/internal/auth"
	"myssh/internal/gateway/gatewaytest"
	"myssh/internal/logging"
	"myssh/internal/models"
	"myssh/internal/session"
	"myssh/internal/transfer"
)

var seed = []models.Server{
	{ID: "s1", Name: "web", Host: "10.0.0.1", Port: 22, Username: "root", Group: "prod"},
	{ID: "s2", Name: "db", Host: "10.0.0.2", Port: 2222, Username: "admin", Password: "secret"},
	{ID: "s3", Name: "cache", Host: "10.0.0.3", Port: 22, Username: "root", Group: "dev"},
}

type harness struct {
	h       http.Handler
	orch    *session.Orchestrator
	fake    *gatewaytest.Fake
	cookie  *http.Cookie
	termIDs []string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	fake := gatewaytest.New(seed...)
	orch := session.New(fake, session.Options{Logger: logging.Nop()})
	require.NoError(t, orch.Load(context.Background()))
	xfer := transfer.New(fake, orch, transfer.Options{Logger: logging.Nop()})
	guard := auth.New(t.TempDir(), auth.WithCost(bcrypt.MinCost))
	require.NoError(t, guard.SetPassword("master-pass"))

	hs := &harness{orch: orch, fake: fake}
	open := func(id string) error {
		hs.termIDs = append(hs.termIDs, id)
		return nil
	}
	hs.h = New(orch, xfer, guard, Options{Logger: logging.Nop(), OpenTerminal: open}).Handler()

	rec := hs.raw(http.MethodPost, "/api/auth/login", `{"password":"master-pass"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	hs.cookie = cookies[0]
	return hs
}

func (hs *harness) raw(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if hs.cookie != nil {
		req.AddCookie(hs.cookie)
	}
	rec := httptest.NewRecorder()
	hs.h.ServeHTTP(rec, req)
	return rec
}

func (hs *harness) do(t *testing.T, method, path, body string, wantStatus int, out any) {
	t.Helper()
	rec := hs.raw(method, path, body)
	require.Equal(t, wantStatus, rec.Code, rec.Body.String())
	if out != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestRequiresLogin(t *testing.T) {
	hs := newHarness(t)
	hs.cookie = nil
	rec := hs.raw(http.MethodGet, "/api/servers", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = hs.raw(http.MethodGet, "/api/auth/status", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGroupServers(t *testing.T) {
	groups := GroupServers([]session.Server{
		{Profile: session.Profile{ID: "a", Group: "prod"}},
		{Profile: session.Profile{ID: "b"}},
		{Profile: session.Profile{ID: "c", Group: "dev"}},
		{Profile: session.Profile{ID: "d", Group: " prod "}},
	})
	require.Len(t, groups, 3)
	assert.Equal(t, "dev", groups[0].Name)
	assert.Equal(t, "prod", groups[1].Name)
	assert.Equal(t, Ungrouped, groups[2].Name)
	require.Len(t, groups[1].Servers, 2)
	assert.Equal(t, "a", groups[1].Servers[0].ID)
	assert.Equal(t, "d", groups[1].Servers[1].ID)

	assert.Equal(t, []Group{}, GroupServers(nil))
}

func TestListServersHidesPasswords(t *testing.T) {
	hs := newHarness(t)
	rec := hs.raw(http.MethodGet, "/api/servers", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret")

	var groups []Group
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &groups))
	require.Len(t, groups, 3)
	assert.Equal(t, Ungrouped, groups[2].Name)
	assert.True(t, groups[2].Servers[0].HasPassword)
	assert.False(t, groups[2].Servers[0].Connected)
}

func TestServerCRUD(t *testing.T) {
	hs := newHarness(t)

	var created map[string]string
	hs.do(t, http.MethodPost, "/api/servers", `{"name":" new ","host":"10.0.0.9","username":"ops"}`, http.StatusCreated, &created)
	id := created["id"]
	require.NotEmpty(t, id)

	srv, err := hs.orch.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "new", srv.Name)
	assert.Equal(t, 22, srv.Port)

	hs.do(t, http.MethodPut, "/api/servers/"+id, `{"group":"staging","port":2200}`, http.StatusOK, nil)
	srv, err = hs.orch.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "staging", srv.Group)
	assert.Equal(t, 2200, srv.Port)
	assert.Equal(t, "10.0.0.9", srv.Host)

	hs.do(t, http.MethodDelete, "/api/servers/"+id, "", http.StatusOK, nil)
	_, err = hs.orch.Get(id)
	assert.ErrorIs(t, err, session.ErrUnknownServer)
}

func TestServerValidation(t *testing.T) {
	hs := newHarness(t)
	hs.do(t, http.MethodPost, "/api/servers", `{"name":"x"}`, http.StatusBadRequest, nil)
	hs.do(t, http.MethodPost, "/api/servers", `{bad`, http.StatusBadRequest, nil)
	hs.do(t, http.MethodPut, "/api/servers/s1", `{"host":"  "}`, http.StatusBadRequest, nil)
	hs.do(t, http.MethodPut, "/api/servers/nope", `{"name":"x"}`, http.StatusNotFound, nil)
	hs.do(t, http.MethodDelete, "/api/servers/nope", "", http.StatusNotFound, nil)
}

func TestPersistFailureIsBadGateway(t *testing.T) {
	hs := newHarness(t)
	hs.fake.FailOn(gatewaytest.OpSaveProfile, nil)
	rec := hs.raw(http.MethodPost, "/api/servers", `{"host":"h","username":"u"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.NotEmpty(t, errorOf(t, rec))
}

func TestConnectLifecycle(t *testing.T) {
	hs := newHarness(t)

	var focus session.Context
	hs.do(t, http.MethodPost, "/api/servers/s1/connect", "", http.StatusOK, &focus)
	assert.Equal(t, "s1", focus.ActiveServerID)

	hs.do(t, http.MethodPost, "/api/servers/s2/connect", "", http.StatusOK, nil)
	hs.do(t, http.MethodPost, "/api/servers/s1/activate", "", http.StatusOK, &focus)
	assert.Equal(t, "s1", focus.ActiveServerID)

	hs.do(t, http.MethodPost, "/api/servers/s1/reconnect", "", http.StatusOK, nil)
	hs.do(t, http.MethodPost, "/api/servers/s1/disconnect", "", http.StatusOK, nil)

	var state StateResp
	hs.do(t, http.MethodGet, "/api/state", "", http.StatusOK, &state)
	assert.Equal(t, session.Context{}, state.Focus)
	require.Len(t, state.Servers, 3)
	assert.False(t, state.Servers[0].Connected)
	assert.True(t, state.Servers[1].Connected)

	hs.do(t, http.MethodPost, "/api/servers/s1/reconnect", "", http.StatusConflict, nil)
	hs.do(t, http.MethodPost, "/api/servers/s1/activate", "", http.StatusConflict, nil)
	hs.do(t, http.MethodPost, "/api/servers/zz/connect", "", http.StatusNotFound, nil)
}

func TestConnectFailure(t *testing.T) {
	hs := newHarness(t)
	hs.fake.FailOn(gatewaytest.OpConnect, nil)
	rec := hs.raw(http.MethodPost, "/api/servers/s1/connect", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, errorOf(t, rec), gatewaytest.ErrInjected.Error())
}

func TestForceDisconnect(t *testing.T) {
	hs := newHarness(t)
	hs.do(t, http.MethodPost, "/api/servers/s1/connect", "", http.StatusOK, nil)
	hs.fake.FailOn(gatewaytest.OpDisconnect, nil)
	hs.do(t, http.MethodPost, "/api/servers/s1/disconnect", "", http.StatusBadGateway, nil)

	srv, err := hs.orch.Get("s1")
	require.NoError(t, err)
	assert.True(t, srv.Connected)

	hs.do(t, http.MethodPost, "/api/servers/s1/disconnect?force=true", "", http.StatusOK, nil)
	srv, err = hs.orch.Get("s1")
	require.NoError(t, err)
	assert.False(t, srv.Connected)
}

func TestTabs(t *testing.T) {
	hs := newHarness(t)
	hs.do(t, http.MethodPost, "/api/servers/s1/tabs", `{"type":"terminal"}`, http.StatusConflict, nil)
	hs.do(t, http.MethodPost, "/api/servers/s1/connect", "", http.StatusOK, nil)

	var first, second map[string]string
	hs.do(t, http.MethodPost, "/api/servers/s1/tabs", `{"type":"terminal"}`, http.StatusCreated, &first)
	hs.do(t, http.MethodPost, "/api/servers/s1/tabs", `{"type":"monitor","data":{"interval":5}}`, http.StatusCreated, &second)

	var tabs []session.Tab
	hs.do(t, http.MethodGet, "/api/servers/s1/tabs", "", http.StatusOK, &tabs)
	require.Len(t, tabs, 2)
	assert.Equal(t, "Terminal", tabs[0].Title)
	assert.Equal(t, "Monitor", tabs[1].Title)

	var focus session.Context
	hs.do(t, http.MethodPost, "/api/servers/s1/tabs/"+first["id"]+"/focus", "", http.StatusOK, &focus)
	assert.Equal(t, first["id"], focus.ActiveTabID)

	hs.do(t, http.MethodDelete, "/api/servers/s1/tabs/"+first["id"], "", http.StatusOK, &focus)
	assert.Equal(t, second["id"], focus.ActiveTabID)

	hs.do(t, http.MethodPost, "/api/servers/s1/tabs/missing/focus", "", http.StatusNotFound, nil)
	hs.do(t, http.MethodDelete, "/api/servers/s1/tabs/missing", "", http.StatusOK, nil)
}

func TestFileOperations(t *testing.T) {
	hs := newHarness(t)
	hs.do(t, http.MethodGet, "/api/servers/s1/files?path=/tmp", "", http.StatusConflict, nil)
	hs.do(t, http.MethodPost, "/api/servers/s1/connect", "", http.StatusOK, nil)

	hs.fake.SetListing("s1", "/tmp", []models.FileEntry{{Name: "a.txt", Path: "/tmp/a.txt"}})
	var entries []models.FileEntry
	hs.do(t, http.MethodGet, "/api/servers/s1/files?path=/tmp", "", http.StatusOK, &entries)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.txt", entries[0].Name)

	hs.do(t, http.MethodGet, "/api/servers/s1/files", "", http.StatusOK, &entries)
	assert.Empty(t, entries)
	assert.Equal(t, []string{"."}, hs.fake.CallsTo(gatewaytest.OpListDirectory)[1].Args)

	hs.do(t, http.MethodPost, "/api/servers/s1/mkdir", `{"path":"/tmp/new"}`, http.StatusOK, nil)
	hs.do(t, http.MethodPost, "/api/servers/s1/delete", `{"paths":["/tmp/a","/tmp/b"]}`, http.StatusOK, nil)
	hs.do(t, http.MethodPost, "/api/servers/s1/rename", `{"oldPath":"/tmp/x","newPath":"/tmp/y"}`, http.StatusOK, nil)
	hs.do(t, http.MethodPost, "/api/servers/s1/chmod", `{"path":"/tmp/y","mode":"755"}`, http.StatusOK, nil)
	hs.do(t, http.MethodPost, "/api/servers/s1/rename", `{"oldPath":"/tmp/x"}`, http.StatusBadRequest, nil)

	assert.Equal(t, []string{"/tmp/a", "/tmp/b"}, hs.fake.CallsTo(gatewaytest.OpDelete)[0].Args)
	assert.Equal(t, []string{"/tmp/y", "755"}, hs.fake.CallsTo(gatewaytest.OpChmod)[0].Args)
}

func TestBatchUpload(t *testing.T) {
	hs := newHarness(t)
	hs.do(t, http.MethodPost, "/api/servers/s1/upload", `{"localPaths":["a"],"remotePath":"/srv"}`, http.StatusConflict, nil)
	hs.do(t, http.MethodPost, "/api/servers/s1/connect", "", http.StatusOK, nil)

	hs.fake.FailOnArg(gatewaytest.OpUpload, "/l/b", nil)
	var res transfer.Result
	hs.do(t, http.MethodPost, "/api/servers/s1/upload", `{"localPaths":["/l/a","/l/b","/l/c"],"remotePath":"/srv"}`, http.StatusOK, &res)
	assert.False(t, res.Success)
	assert.Equal(t, 2, res.Count)
	assert.Equal(t, 1, res.FailCount)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "/l/b", res.Failed[0].Path)

	hs.do(t, http.MethodPost, "/api/servers/s1/upload", `{"localPaths":["a"]}`, http.StatusBadRequest, nil)
}

func TestBatchDownload(t *testing.T) {
	hs := newHarness(t)
	hs.do(t, http.MethodPost, "/api/servers/s1/connect", "", http.StatusOK, nil)

	var res transfer.Result
	hs.do(t, http.MethodPost, "/api/servers/s1/download", `{"remotePaths":["/var/log/a.log"],"localPath":"/tmp/out"}`, http.StatusOK, &res)
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, "/var/log/a.log", hs.fake.CallsTo(gatewaytest.OpDownload)[0].Args[0])
}

func TestExecMonitorAndAssistant(t *testing.T) {
	hs := newHarness(t)
	hs.do(t, http.MethodPost, "/api/servers/s1/connect", "", http.StatusOK, nil)

	var res models.ExecResult
	hs.do(t, http.MethodPost, "/api/servers/s1/exec", `{"command":"uptime"}`, http.StatusOK, &res)
	assert.Equal(t, "uptime\n", res.Output)
	hs.do(t, http.MethodPost, "/api/servers/s1/exec", `{}`, http.StatusBadRequest, nil)

	var sample models.MonitorSample
	hs.do(t, http.MethodGet, "/api/servers/s1/monitor", "", http.StatusOK, &sample)
	assert.Equal(t, 2, sample.CPU.Cores)

	hs.do(t, http.MethodPost, "/api/servers/s1/ai/chat", `{"question":"why slow?"}`, http.StatusOK, nil)
	hs.do(t, http.MethodPost, "/api/servers/s1/ai/chat", `{"question":""}`, http.StatusBadRequest, nil)
	hs.do(t, http.MethodGet, "/api/servers/s1/ai/actions", "", http.StatusOK, nil)
	assert.Len(t, hs.fake.CallsTo(gatewaytest.OpAIChat), 1)
}

func TestOpenTerminal(t *testing.T) {
	hs := newHarness(t)
	hs.do(t, http.MethodPost, "/api/servers/s2/terminal", "", http.StatusOK, nil)
	hs.do(t, http.MethodPost, "/api/servers/nope/terminal", "", http.StatusNotFound, nil)
	assert.Equal(t, []string{"s2"}, hs.termIDs)
}

func TestConnectCommand(t *testing.T) {
	assert.Equal(t, "'/Applications/My App/myssh' connect s1", connectCommand("/Applications/My App/myssh", "s1"))
	assert.Equal(t, `say \"hi\" \\ bye`, escapeAppleScript(`say "hi" \ bye`))
}

func TestExportFormats(t *testing.T) {
	hs := newHarness(t)

	rec := hs.raw(http.MethodGet, "/api/export", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "myssh-servers.json")
	var cfg models.Config
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cfg))
	require.Len(t, cfg.Servers, 3)
	assert.Equal(t, "secret", cfg.Servers[1].Password)

	rec = hs.raw(http.MethodGet, "/api/export?format=yaml", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "yaml")
	cfg = models.Config{}
	require.NoError(t, yaml.Unmarshal(rec.Body.Bytes(), &cfg))
	assert.Equal(t, "10.0.0.2", cfg.Servers[1].Host)

	rec = hs.raw(http.MethodGet, "/api/export?format=toml", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "10.0.0.3")
	req, err := Unmarshal(rec.Body.Bytes(), FormatTOML)
	require.NoError(t, err)
	assert.Len(t, req.Servers, 3)

	rec = hs.raw(http.MethodGet, "/api/export?format=xml", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImportMerge(t *testing.T) {
	hs := newHarness(t)
	body := `{"servers":[
		{"id":"s1","name":"web-renamed","host":"10.0.0.1","port":22,"username":"root"},
		{"id":"s1","name":"dup","host":"","username":"x"},
		{"id":"unknown","name":"fresh","host":" 10.0.0.8 ","port":0,"username":"ops"}
	]}`
	var res ImportResult
	hs.do(t, http.MethodPost, "/api/import", body, http.StatusOK, &res)
	assert.Equal(t, ImportResult{Added: 1, Updated: 1, Total: 4}, res)

	srv, err := hs.orch.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, "web-renamed", srv.Name)
	assert.Empty(t, srv.Group)

	list := hs.orch.List()
	added := list[len(list)-1]
	assert.NotEqual(t, "unknown", added.ID)
	assert.Equal(t, "10.0.0.8", added.Host)
	assert.Equal(t, 22, added.Port)
}

func TestImportReplaceKeepsConnectedMatches(t *testing.T) {
	hs := newHarness(t)
	hs.do(t, http.MethodPost, "/api/servers/s2/connect", "", http.StatusOK, nil)

	body := "replace: true\nservers:\n  - id: s2\n    name: db\n    host: 10.0.0.2\n    port: 2222\n    username: admin\n"
	req := httptest.NewRequest(http.MethodPost, "/api/import?format=yaml", strings.NewReader(body))
	req.AddCookie(hs.cookie)
	rec := httptest.NewRecorder()
	hs.h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res ImportResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, ImportResult{Updated: 1, Removed: 2, Total: 1}, res)

	srv, err := hs.orch.Get("s2")
	require.NoError(t, err)
	assert.True(t, srv.Connected)
}

func TestImportStopsOnFailure(t *testing.T) {
	hs := newHarness(t)
	hs.fake.FailOn(gatewaytest.OpSaveProfile, nil)
	res, err := Import(context.Background(), hs.orch, []models.Server{{Host: "h", Username: "u"}}, false)
	require.ErrorIs(t, err, session.ErrPersistFailed)
	assert.Zero(t, res.Added)
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{session.ErrUnknownServer, http.StatusNotFound},
		{session.ErrUnknownTab, http.StatusNotFound},
		{session.ErrServerNotConnected, http.StatusConflict},
		{session.ErrTransitionInProgress, http.StatusConflict},
		{session.ErrIDPreassigned, http.StatusBadRequest},
		{session.ErrBackendUnavailable, http.StatusBadGateway},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, statusFor(c.err), c.err.Error())
	}
}
