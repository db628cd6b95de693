package web

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jerefrer/stacked-pdf-generator/internal/config"
)

func newTestWeb(t *testing.T, user, pass string) *httptest.Server {
	t.Helper()
	w := New(config.ServerConfig{WebUsername: user, WebPassword: pass})
	mux := http.NewServeMux()
	w.RegisterRoutes(mux)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

// noRedirectClient keeps redirects observable instead of following them.
func noRedirectClient() *http.Client {
	return &http.Client{CheckRedirect: func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}}
}

func TestLoginPageRenders(t *testing.T) {
	ts := newTestWeb(t, "admin", "secret")
	resp, err := http.Get(ts.URL + "/web/login")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Sign in")
}

func TestDashboardRequiresLogin(t *testing.T) {
	ts := newTestWeb(t, "admin", "secret")
	resp, err := noRedirectClient().Get(ts.URL + "/web/dashboard")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/web/login", resp.Header.Get("Location"))
}

func TestDashboardWithoutConfiguredCredentials(t *testing.T) {
	ts := newTestWeb(t, "", "")
	resp, err := noRedirectClient().Get(ts.URL + "/web/dashboard")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestLoginFlow(t *testing.T) {
	ts := newTestWeb(t, "admin", "secret")
	client := noRedirectClient()

	// wrong credentials bounce back to the form without a cookie
	resp, err := client.PostForm(ts.URL+"/web/login", url.Values{
		"username": {"admin"}, "password": {"nope"},
	})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Location"), "error=")
	assert.Empty(t, resp.Cookies())

	// right credentials set the auth cookie and land on the dashboard
	resp, err = client.PostForm(ts.URL+"/web/login", url.Values{
		"username": {"admin"}, "password": {"secret"},
	})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/web/dashboard", resp.Header.Get("Location"))
	require.NotEmpty(t, resp.Cookies())
	auth := resp.Cookies()[0]
	assert.Equal(t, "auth", auth.Name)

	// the cookie opens the dashboard, which greets the user
	req, err := http.NewRequest(http.MethodGet, ts.URL+"/web/dashboard", nil)
	require.NoError(t, err)
	req.AddCookie(auth)
	page, err := client.Do(req)
	require.NoError(t, err)
	defer page.Body.Close()
	require.Equal(t, http.StatusOK, page.StatusCode)
	body, err := io.ReadAll(page.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "admin")
}

func TestLogoutClearsCookie(t *testing.T) {
	ts := newTestWeb(t, "admin", "secret")
	resp, err := noRedirectClient().Get(ts.URL + "/web/logout")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.NotEmpty(t, resp.Cookies())
	assert.Equal(t, "auth", resp.Cookies()[0].Name)
	assert.Less(t, resp.Cookies()[0].MaxAge, 0)
}
