package store

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
)

// memStore 是测试用内存存储，记录调用次数并可注入错误。
type memStore struct {
	mu       sync.Mutex
	docs     map[string][]byte
	messages []string
	gets     int
	getErr   error
}

func newMemStore() *memStore {
	return &memStore{docs: make(map[string][]byte)}
}

func (m *memStore) Get(ctx context.Context, path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if m.getErr != nil {
		return nil, m.getErr
	}
	data, ok := m.docs[path]
	if !ok {
		return nil, ErrNotFound
	}
	return data, nil
}

func (m *memStore) Put(ctx context.Context, path string, data []byte, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[path] = append([]byte(nil), data...)
	m.messages = append(m.messages, message)
	return nil
}

func TestLoadNotFound(t *testing.T) {
	var v []string
	found, err := Load(context.Background(), newMemStore(), "data/feeds.json", &v)
	if err != nil || found {
		t.Fatalf("Load() = %v, %v; want false, nil", found, err)
	}
}

func TestLoadFault(t *testing.T) {
	s := newMemStore()
	s.getErr = errors.New("connection reset")

	var v []string
	found, err := Load(context.Background(), s, "data/feeds.json", &v)
	if err == nil || found {
		t.Fatalf("Load() = %v, %v; want fault", found, err)
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("a backend fault must not look like a missing document")
	}
}

func TestLoadCorruptDocument(t *testing.T) {
	s := newMemStore()
	s.docs["data/feeds.json"] = []byte("{not json")

	var v []string
	if _, err := Load(context.Background(), s, "data/feeds.json", &v); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestLoadOrDefault(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()

	got, err := LoadOrDefault(ctx, s, "data/stats.json", map[string]int{"total_views": 0})
	if err != nil || got["total_views"] != 0 {
		t.Fatalf("missing document: got %v, %v", got, err)
	}

	if err := Save(ctx, s, "data/stats.json", map[string]int{"total_views": 7}, "Increment view count"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err = LoadOrDefault(ctx, s, "data/stats.json", map[string]int{"total_views": 0})
	if err != nil || got["total_views"] != 7 {
		t.Fatalf("stored document: got %v, %v", got, err)
	}
	if s.messages[0] != "Increment view count" {
		t.Errorf("message = %q", s.messages[0])
	}

	s.getErr = errors.New("boom")
	if _, err := LoadOrDefault(ctx, s, "data/stats.json", map[string]int{}); err == nil {
		t.Error("fault must be reported, not replaced by the default")
	}
}

func TestMarshalKeepsMarkup(t *testing.T) {
	data, err := Marshal(map[string]string{"2026-02-20 12:00": "## 토픽 <AI> & [링크](https://a.b/?x=1&y=2)"})
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)
	for _, want := range []string{"<AI>", "&", "토픽", "\n  \""} {
		if !strings.Contains(s, want) {
			t.Errorf("marshalled output missing %q: %s", want, s)
		}
	}
	if strings.HasSuffix(s, "\n") {
		t.Error("trailing newline should be trimmed")
	}
}

func TestLoadNullDocumentUsesDefault(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	s.docs["data/news_archive.json"] = []byte(" null\n")

	var v map[string]string
	found, err := Load(ctx, s, "data/news_archive.json", &v)
	if err != nil || found {
		t.Fatalf("Load() = %v, %v; want false, nil", found, err)
	}

	archive, err := LoadOrDefault(ctx, s, "data/news_archive.json", map[string]string{})
	if err != nil {
		t.Fatal(err)
	}
	if archive == nil {
		t.Fatal("null document must yield the default, not a nil map")
	}
	archive["2026-02-20 12:00"] = "report"
}
