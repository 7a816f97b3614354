package store

import (
	"context"
	"testing"
	"time"
)

type testConfig struct {
	path string
}

func (t testConfig) BasePath() string       { return t.path }
func (t testConfig) APIURL() string         { return DefaultAPIURL }
func (t testConfig) Timeout() time.Duration { return time.Second }
func (t testConfig) LogFile() string        { return "" }

func TestPersistenceWatchEmitsKeyChanges(t *testing.T) {
	base := t.TempDir()
	p, err := Load(testConfig{path: base})
	if err != nil {
		t.Fatalf("load persistence: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := p.Watch(ctx)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}

	// Allow watcher goroutine to subscribe before writing.
	time.Sleep(50 * time.Millisecond)

	if err := p.Write(KeyConversationID, []byte("abc")); err != nil {
		t.Fatalf("write: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case evt := <-ch:
			if evt.Type == EventInvalidated {
				return
			}
			if evt.Key != KeyConversationID {
				t.Fatalf("expected key %q, got %q", KeyConversationID, evt.Key)
			}
			if evt.Type != EventKeyWritten {
				t.Fatalf("expected written event, got %s", evt.Type)
			}
			return
		case <-deadline:
			t.Fatal("timed out waiting for key change event")
		}
	}
}

func TestKeyForPathIgnoresTempDir(t *testing.T) {
	base := t.TempDir()
	p, err := Load(testConfig{path: base})
	if err != nil {
		t.Fatalf("load persistence: %v", err)
	}
	if got := p.keyForPath(base + "/" + KeyMessages); got != KeyMessages {
		t.Fatalf("expected %q, got %q", KeyMessages, got)
	}
	if got := p.keyForPath(base + "/" + tempDirName + "/diskv-123"); got != "" {
		t.Fatalf("expected temp file to be ignored, got %q", got)
	}
	if got := p.keyForPath(base + "/" + tempDirName); got != "" {
		t.Fatalf("expected temp dir to be ignored, got %q", got)
	}
}
