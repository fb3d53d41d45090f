package httpclient

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	client := New(nil)
	httpmock.ActivateNonDefault(client.HTTPClient())
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodGet, "https://example.org/model.json",
		httpmock.NewStringResponder(http.StatusOK, `{"ok":true}`))

	body, err := client.Get(context.Background(), "https://example.org/model.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))
}

func TestGetNonSuccessStatus(t *testing.T) {
	client := New(nil)
	httpmock.ActivateNonDefault(client.HTTPClient())
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodGet, "https://example.org/missing.json",
		httpmock.NewStringResponder(http.StatusNotFound, "not found"))

	_, err := client.Get(context.Background(), "https://example.org/missing.json")
	assert.ErrorContains(t, err, "unexpected status")
}

func TestGetHonorsContextCancellation(t *testing.T) {
	client := New(nil)
	httpmock.ActivateNonDefault(client.HTTPClient())
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodGet, "https://example.org/slow.json",
		func(req *http.Request) (*http.Response, error) {
			<-req.Context().Done()
			return nil, req.Context().Err()
		})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Get(ctx, "https://example.org/slow.json")
	assert.Error(t, err)
}

func TestNewConfigDefaults(t *testing.T) {
	t.Parallel()

	// Nil config and zero-valued config both fall back to defaults.
	assert.Equal(t, DefaultTimeout, New(nil).defaultTimeout)
	assert.Equal(t, DefaultTimeout, New(&Config{}).defaultTimeout)

	custom := New(&Config{DefaultTimeout: time.Second, UserAgent: "probe"})
	assert.Equal(t, time.Second, custom.defaultTimeout)
	assert.Equal(t, "probe", custom.userAgent)
}
