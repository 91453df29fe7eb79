package email

import (
	"os"
	"path/filepath"
	"testing"

	"PredictingPoints/src/config"
)

func reportConfig(t *testing.T, attachment string) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Email.Username = "analyst@example.com"
	cfg.SendEmail.Server = "smtp.example.com"
	cfg.SendEmail.Username = "pipeline@example.com"
	cfg.SendEmail.TargetSubject = "feature table ready"
	cfg.SendEmail.Attachment = attachment
	return cfg
}

func TestNewReportEmail(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "features.xlsx")
	if err := os.WriteFile(path, []byte("not really xlsx"), 0644); err != nil {
		t.Fatal(err)
	}

	e := newReportEmail(reportConfig(t, path))

	if e.Subject != "feature table ready" {
		t.Errorf("subject = %q", e.Subject)
	}
	if len(e.To) != 1 || e.To[0] != "analyst@example.com" {
		t.Errorf("recipients = %v", e.To)
	}
	if len(e.Attachments) != 1 {
		t.Fatalf("attachments = %d, want 1", len(e.Attachments))
	}
	if e.Attachments[0].Filename != "features.xlsx" {
		t.Errorf("attachment name = %q", e.Attachments[0].Filename)
	}
}

func TestNewReportEmailMissingAttachment(t *testing.T) {
	e := newReportEmail(reportConfig(t, filepath.Join(t.TempDir(), "nope.xlsx")))
	if len(e.Attachments) != 0 {
		t.Errorf("missing attachment should be skipped, got %d", len(e.Attachments))
	}
}

func TestSMTPAddress(t *testing.T) {
	addr, host := smtpAddress("smtp.example.com")
	if addr != "smtp.example.com:465" || host != "smtp.example.com" {
		t.Errorf("got %q / %q", addr, host)
	}
	addr, host = smtpAddress("smtp.example.com:587")
	if addr != "smtp.example.com:587" || host != "smtp.example.com" {
		t.Errorf("got %q / %q", addr, host)
	}
}
