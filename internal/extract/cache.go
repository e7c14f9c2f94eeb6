package extract

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"statuscomms/internal/gemini"
	"statuscomms/internal/incident"
)

// CachedExtraction is one validated extraction stored on disk.
type CachedExtraction struct {
	Model         string                     `json:"model"`
	PromptVersion string                     `json:"prompt_version"`
	Phase         incident.Phase             `json:"phase"`
	Evidence      incident.ExtractedEvidence `json:"evidence"`
	RawText       string                     `json:"raw_text"`
	Usage         *gemini.Usage              `json:"usage,omitempty"`
	CachedAt      string                     `json:"cached_at"`
}

// Cache stores validated extractions under dir/<key>/evidence.json.
type Cache struct {
	dir string
}

// NewCache returns nil when dir is empty, which disables caching.
func NewCache(dir string) *Cache {
	if dir == "" {
		return nil
	}
	return &Cache{dir: dir}
}

func cacheKey(sources []incident.RawSource, phase incident.Phase, model string) string {
	h := sha256.New()
	for _, s := range sources {
		h.Write([]byte(s.Kind))
		h.Write([]byte{0})
		h.Write([]byte(s.Text()))
		h.Write([]byte{0})
	}
	h.Write([]byte(phase))
	h.Write([]byte(model))
	h.Write([]byte(promptVersion))
	return hex.EncodeToString(h.Sum(nil))
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, key, "evidence.json")
}

func (c *Cache) Load(key string) (*CachedExtraction, error) {
	b, err := os.ReadFile(c.path(key))
	if err != nil {
		return nil, err
	}
	var out CachedExtraction
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Cache) Save(key string, out CachedExtraction) error {
	path := c.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	if out.CachedAt == "" {
		out.CachedAt = time.Now().UTC().Format(time.RFC3339)
	}
	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
