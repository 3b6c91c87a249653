package audit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/aretw0/orderdesk/pkg/domain"
)

// FileSink appends records to one text file per user in Dir.
type FileSink struct {
	Dir string
	mu  sync.Mutex
}

// NewFileSink creates a sink writing under dir.
func NewFileSink(dir string) *FileSink {
	if dir == "" {
		dir = filepath.Join(".orderdesk", "conversation_logs")
	}
	return &FileSink{Dir: dir}
}

func (s *FileSink) Append(ctx context.Context, rec domain.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("failed to ensure log directory: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(s.Dir, FileName(rec.UserID)), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open conversation log: %w", err)
	}
	if _, err := f.WriteString(Format(stamp(rec))); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to append conversation log: %w", err)
	}
	return f.Close()
}
