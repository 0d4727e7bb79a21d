package httpspeech

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tayaladitya/dyslexofly/internal/core/domain"
)

const (
	DefaultLanguage = "en-us"
	DefaultGender   = "female"
)

type voiceKey struct {
	language string
	gender   string
}

// Catalog resolves (language, gender) pairs to engine voice names.
type Catalog struct {
	voices   map[voiceKey]domain.Voice
	order    []domain.Voice
	fallback domain.Voice
}

func DefaultVoices() []domain.Voice {
	return []domain.Voice{
		{Language: "en-us", Gender: "female", Name: "en-US-JennyNeural"},
		{Language: "en-us", Gender: "male", Name: "en-US-GuyNeural"},
		{Language: "en-us", Gender: "child", Name: "en-US-AnaNeural"},
		{Language: "en-gb", Gender: "female", Name: "en-GB-LibbyNeural"},
		{Language: "en-gb", Gender: "male", Name: "en-GB-RyanNeural"},
		{Language: "hi-in", Gender: "female", Name: "hi-IN-SwaraNeural"},
		{Language: "hi-in", Gender: "male", Name: "hi-IN-MadhurNeural"},
	}
}

// NewCatalog indexes voices. The fallback is the en-us/female entry when present,
// otherwise the first voice.
func NewCatalog(voices []domain.Voice) (*Catalog, error) {
	if len(voices) == 0 {
		return nil, fmt.Errorf("voice catalogue is empty")
	}
	c := &Catalog{voices: make(map[voiceKey]domain.Voice, len(voices))}
	for _, v := range voices {
		v.Language = strings.ToLower(strings.TrimSpace(v.Language))
		v.Gender = strings.ToLower(strings.TrimSpace(v.Gender))
		if v.Language == "" || v.Gender == "" || v.Name == "" {
			return nil, fmt.Errorf("voice entry %+v is incomplete", v)
		}
		k := voiceKey{v.Language, v.Gender}
		if _, dup := c.voices[k]; dup {
			return nil, fmt.Errorf("duplicate voice for %s/%s", v.Language, v.Gender)
		}
		c.voices[k] = v
		c.order = append(c.order, v)
	}

	c.fallback = c.order[0]
	if v, ok := c.voices[voiceKey{DefaultLanguage, DefaultGender}]; ok {
		c.fallback = v
	}
	return c, nil
}

type catalogFile struct {
	Voices []domain.Voice `yaml:"voices"`
}

// LoadVoices reads a YAML catalogue of the form:
//
//	voices:
//	  - {language: en-us, gender: female, name: en-US-JennyNeural}
//
// An empty path yields the built-in catalogue.
func LoadVoices(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return NewCatalog(DefaultVoices())
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read voice catalogue: %w", err)
	}
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse voice catalogue: %w", err)
	}
	return NewCatalog(file.Voices)
}

func (c *Catalog) Resolve(language, gender string) domain.Voice {
	k := voiceKey{strings.ToLower(strings.TrimSpace(language)), strings.ToLower(strings.TrimSpace(gender))}
	if v, ok := c.voices[k]; ok {
		return v
	}
	return c.fallback
}

func (c *Catalog) List() []domain.Voice {
	return append([]domain.Voice(nil), c.order...)
}
