package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const spoolFile = "audit_spool.log"

var ErrSpoolFull = errors.New("audit spool full")

// Spooler appends events to a local JSONL file while the database is unavailable.
type Spooler struct {
	Dir      string
	MaxBytes int64

	mu sync.Mutex
}

func NewSpooler(dir string, maxMB int64) (*Spooler, error) {
	if dir == "" {
		return nil, errors.New("audit spool dir is empty")
	}
	if maxMB <= 0 {
		maxMB = 1024
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, err
	}
	return &Spooler{Dir: dir, MaxBytes: maxMB * 1024 * 1024}, nil
}

func (s *Spooler) Append(evt AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.size() >= s.MaxBytes {
		return ErrSpoolFull
	}

	line, err := json.Marshal(spooledEvent{
		EventID:   evt.EventID.String(),
		TenantID:  evt.TenantID.String(),
		Payload:   evt,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	f, err := os.OpenFile(filepath.Join(s.Dir, spoolFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(append(line, '\n'))
	return err
}

func (s *Spooler) size() int64 {
	var size int64
	_ = filepath.WalkDir(s.Dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			size += info.Size()
		}
		return nil
	})
	return size
}

// StartReplayer flushes the spool back through WriteEvent every interval until ctx ends.
func (s *Service) StartReplayer(ctx context.Context, interval time.Duration) {
	if s.Spool == nil {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.ReplaySpool(ctx)
			}
		}
	}()
}

// ReplaySpool moves the spool aside and rewrites each event. Events the database still
// rejects land back in a fresh spool file; inserts are idempotent on event_id.
func (s *Service) ReplaySpool(ctx context.Context) int {
	if s.Spool == nil {
		return 0
	}

	s.Spool.mu.Lock()
	filename := filepath.Join(s.Spool.Dir, spoolFile)
	info, err := os.Stat(filename)
	if err != nil || info.Size() == 0 {
		s.Spool.mu.Unlock()
		return 0
	}
	replayFile := filepath.Join(s.Spool.Dir, fmt.Sprintf("replay_%d.log", time.Now().UnixNano()))
	err = os.Rename(filename, replayFile)
	s.Spool.mu.Unlock()
	if err != nil {
		log.Printf("[AUDIT] rotate spool for replay: %v", err)
		return 0
	}

	f, err := os.Open(replayFile)
	if err != nil {
		return 0
	}

	var succeeded int
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var se spooledEvent
		if err := json.Unmarshal(scanner.Bytes(), &se); err != nil {
			continue
		}
		if err := s.insert(ctx, se.Payload); err != nil {
			if spoolErr := s.Spool.Append(se.Payload); spoolErr != nil {
				log.Printf("[AUDIT] re-spool event %s: %v", se.EventID, spoolErr)
			}
			continue
		}
		succeeded++
	}
	f.Close()
	os.Remove(replayFile)

	if succeeded > 0 {
		log.Printf("[AUDIT] replay flushed %d events", succeeded)
	}
	return succeeded
}
