package upload

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pressdesk/brandbatch/internal/config"
)

func TestDeliverNoFTPConfigured(t *testing.T) {
	u := New(config.UploadConfig{})
	u.log = zap.NewNop()

	status := u.Deliver(context.Background(), "/tmp/nope.xlsx")
	require.NotNil(t, status)
	assert.False(t, status.Success)
	assert.Contains(t, status.Reason, "no ftp address")
}

func TestDeliverMissingFile(t *testing.T) {
	u := New(config.UploadConfig{FTPAddr: "ftp.example.com"})
	u.log = zap.NewNop()

	status := u.Deliver(context.Background(), filepath.Join(t.TempDir(), "absent.xlsx"))
	assert.False(t, status.Success)
	assert.NotEmpty(t, status.Reason)
}

func TestNotifyPostsOutcome(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &got))
	}))
	defer srv.Close()

	workbook := filepath.Join(t.TempDir(), "tabela.xlsx")
	require.NoError(t, os.WriteFile(workbook, []byte("x"), 0o644))

	u := New(config.UploadConfig{WebhookURL: srv.URL})
	u.log = zap.NewNop()

	// Deliver fails on FTP (none configured) but still notifies.
	status := u.Deliver(context.Background(), workbook)
	assert.False(t, status.Success)

	require.NotNil(t, got)
	assert.Equal(t, "tabela.xlsx", got["file"])
	assert.Equal(t, false, got["success"])
	assert.NotEmpty(t, got["reason"])
}

func TestNotifyToleratesDeadWebhook(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	u := New(config.UploadConfig{WebhookURL: srv.URL})
	u.log = zap.NewNop()

	status := u.Deliver(context.Background(), "/tmp/nope.xlsx")
	require.NotNil(t, status)
}
