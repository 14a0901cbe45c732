// Package upload hands the published workbook to the delivery sink: an
// FTP drop directory plus an optional webhook notification. Delivery is
// best effort; a failed hand-off is reported in the returned status and
// never fails the run that produced the workbook.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pressdesk/brandbatch/internal/config"
	"github.com/pressdesk/brandbatch/internal/model"
)

// Uploader delivers workbooks to the configured sink.
type Uploader struct {
	cfg  config.UploadConfig
	http *http.Client
	log  *zap.Logger
}

// New builds an Uploader from the upload config.
func New(cfg config.UploadConfig) *Uploader {
	return &Uploader{
		cfg:  cfg,
		http: &http.Client{Timeout: 30 * time.Second},
		log:  zap.L().With(zap.String("component", "upload")),
	}
}

// Deliver uploads the workbook over FTP and, when a webhook is
// configured, notifies it with the result. The returned status is
// always non-nil.
func (u *Uploader) Deliver(ctx context.Context, workbookPath string) *model.UploadStatus {
	status := &model.UploadStatus{}

	link, err := u.store(ctx, workbookPath)
	if err != nil {
		u.log.Warn("workbook delivery failed",
			zap.String("path", workbookPath), zap.Error(err))
		status.Reason = err.Error()
	} else {
		status.Success = true
		status.Link = link
		u.log.Info("workbook delivered", zap.String("link", link))
	}

	u.notify(ctx, workbookPath, status)
	return status
}

// store STORs the file into the configured FTP directory and returns
// the ftp:// link of the stored file.
func (u *Uploader) store(ctx context.Context, workbookPath string) (string, error) {
	if u.cfg.FTPAddr == "" {
		return "", eris.New("upload: no ftp address configured")
	}

	f, err := os.Open(workbookPath)
	if err != nil {
		return "", eris.Wrapf(err, "upload: open %s", workbookPath)
	}
	defer f.Close() //nolint:errcheck

	addr := u.cfg.FTPAddr
	if _, _, splitErr := net.SplitHostPort(addr); splitErr != nil {
		addr = net.JoinHostPort(addr, "21")
	}

	conn, err := ftp.Dial(addr, ftp.DialWithTimeout(30*time.Second), ftp.DialWithContext(ctx))
	if err != nil {
		return "", eris.Wrap(err, "upload: ftp dial")
	}
	defer conn.Quit() //nolint:errcheck

	user := u.cfg.FTPUser
	pass := u.cfg.FTPPass
	if user == "" {
		user = "anonymous"
		pass = "anonymous@"
	}
	if err := conn.Login(user, pass); err != nil {
		return "", eris.Wrap(err, "upload: ftp login")
	}

	remote := path.Join(u.cfg.FTPDir, filepath.Base(workbookPath))
	if err := conn.Stor(remote, f); err != nil {
		return "", eris.Wrapf(err, "upload: ftp stor %s", remote)
	}

	return "ftp://" + u.cfg.FTPAddr + remote, nil
}

// notify POSTs the delivery outcome to the webhook, if one is set.
// Notification failures only downgrade the status reason; the workbook
// itself is already delivered at this point.
func (u *Uploader) notify(ctx context.Context, workbookPath string, status *model.UploadStatus) {
	if u.cfg.WebhookURL == "" {
		return
	}

	payload, err := json.Marshal(map[string]any{
		"file":    filepath.Base(workbookPath),
		"success": status.Success,
		"link":    status.Link,
		"reason":  status.Reason,
	})
	if err != nil {
		u.log.Warn("webhook payload not encodable", zap.Error(err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		u.log.Warn("webhook request not built", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := u.http.Do(req)
	if err != nil {
		u.log.Warn("webhook notification failed", zap.Error(err))
		return
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 300 {
		u.log.Warn("webhook rejected notification", zap.Int("status", resp.StatusCode))
		return
	}
	u.log.Info("webhook notified", zap.String("url", u.cfg.WebhookURL))
}
