// handler.go
package email

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"PredictingPoints/src/storage"
)

// AttachmentHandler saves data attachments (.csv or .xlsx) from matching
// messages into the data directory. UIDs are remembered so a re-delivered
// message is not processed twice within one service run.
type AttachmentHandler struct {
	TargetSubject string
	DataDir       string
	processedUIDs map[uint32]bool
	mu            sync.RWMutex
}

func NewAttachmentHandler(subject, dataDir string) *AttachmentHandler {
	return &AttachmentHandler{
		TargetSubject: subject,
		DataDir:       dataDir,
		processedUIDs: make(map[uint32]bool),
	}
}

func (h *AttachmentHandler) isProcessed(uid uint32) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.processedUIDs[uid]
}

func (h *AttachmentHandler) markAsProcessed(uid uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.processedUIDs[uid] = true
}

// Handle saves the message's data attachments and returns the saved paths.
func (h *AttachmentHandler) Handle(e *Email, logger *storage.Logger) ([]string, error) {
	if e == nil || h.isProcessed(e.UID) {
		return nil, nil
	}

	if !strings.Contains(e.Subject, h.TargetSubject) {
		logger.Debug("skipping mail with non-matching subject: " + e.Subject)
		return nil, nil
	}

	logger.Info(fmt.Sprintf("processing mail %q from %s (%s)",
		e.Subject, e.From, e.Date.Format("2006-01-02 15:04:05")))

	if err := os.MkdirAll(h.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	var saved []string
	for _, attachment := range e.Attachments {
		ext := strings.ToLower(filepath.Ext(attachment.Filename))
		if ext != ".csv" && ext != ".xlsx" {
			continue
		}

		filePath := filepath.Join(h.DataDir, filepath.Base(attachment.Filename))
		if err := os.WriteFile(filePath, attachment.Content, 0644); err != nil {
			return saved, fmt.Errorf("saving attachment: %w", err)
		}

		logger.Info("attachment saved to " + filePath)
		saved = append(saved, filePath)
	}

	if len(saved) > 0 {
		h.markAsProcessed(e.UID)
	}

	return saved, nil
}
