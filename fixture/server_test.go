package fixture_test

import (
	"context"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/browserstep/fixture"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func get(t *testing.T, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	fixture.NewRouter().ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	w := get(t, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestDelayed(t *testing.T) {
	w := get(t, "/delayed?ms=600&name=alias")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Regexp(t, `\},\s*600\s*\);`, body)
	assert.Contains(t, body, `"alias"`)

	assert.Equal(t, http.StatusBadRequest, get(t, "/delayed?ms=abc").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, "/delayed?ms=-1").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, "/delayed?ms=600000").Code)
}

func TestDelayedEscapesName(t *testing.T) {
	body := get(t, "/delayed?name=x%22%3Balert(1)%3B%2F%2F").Body.String()
	assert.NotContains(t, body, `"x";alert(1)`)
}

func TestOptional(t *testing.T) {
	shown := get(t, "/optional?show=1").Body.String()
	assert.Contains(t, shown, "Username Registration Failed")
	assert.Contains(t, shown, `id="continue"`)

	hidden := get(t, "/optional").Body.String()
	assert.NotContains(t, hidden, "Username Registration Failed")
	assert.Contains(t, hidden, `id="continue"`)
}

func TestMissingAndSpinner(t *testing.T) {
	assert.Contains(t, get(t, "/missing").Body.String(), `id="present"`)
	spinner := get(t, "/spinner?ms=250").Body.String()
	assert.Contains(t, spinner, "Loading, please wait")
	assert.Regexp(t, `\},\s*250\s*\);`, spinner)
	assert.Equal(t, http.StatusNotFound, get(t, "/nope").Code)
}

func TestStart(t *testing.T) {
	port, srv, err := fixture.Start("127.0.0.1:0")
	require.NoError(t, err)
	defer srv.Shutdown(context.Background())

	resp, err := http.Get("http://127.0.0.1:" + port + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := ioutil.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "ok"))
}
