package translate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func TestClientWithoutKeyIsNotConfigured(t *testing.T) {
	c, err := NewClient(context.Background(), "", "en")
	require.NoError(t, err)
	assert.False(t, c.IsConfigured())

	_, err = c.Translate(context.Background(), "Library", "es")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestClientTranslate(t *testing.T) {
	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotQuery = r.Form
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"translations": []map[string]string{{"translatedText": "Biblioteca &amp; sala"}},
			},
		})
	}))
	defer srv.Close()

	c, err := NewClient(context.Background(), "key", "en", option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	require.True(t, c.IsConfigured())

	out, err := c.Translate(context.Background(), "Library & room", "es")
	require.NoError(t, err)
	assert.Equal(t, "Biblioteca & sala", out)
	assert.Equal(t, []string{"es"}, gotQuery["target"])
	assert.Equal(t, []string{"en"}, gotQuery["source"])
	assert.Equal(t, []string{"Library & room"}, gotQuery["q"])
}

func TestClientTranslateServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":403,"message":"quota"}}`, http.StatusForbidden)
	}))
	defer srv.Close()

	c, err := NewClient(context.Background(), "key", "en", option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	_, err = c.Translate(context.Background(), "Library", "es")
	assert.Error(t, err)
}
