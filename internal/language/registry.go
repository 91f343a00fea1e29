package language

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/abadojack/whatlanggo"
	"gopkg.in/yaml.v3"
)

// ErrUnknownLanguage is returned when no profile is registered for a code.
var ErrUnknownLanguage = errors.New("unknown language")

// Registry maps two-letter language codes to profiles.
type Registry struct {
	mu       sync.RWMutex
	profiles map[string]*Profile
}

// NewRegistry creates a registry holding the given profiles.
func NewRegistry(profiles ...*Profile) *Registry {
	r := &Registry{profiles: make(map[string]*Profile)}
	for _, p := range profiles {
		r.Register(p)
	}
	return r
}

// DefaultRegistry returns a registry with the built-in profiles.
func DefaultRegistry() *Registry {
	return NewRegistry(builtins()...)
}

// Register adds or replaces a profile.
func (r *Registry) Register(p *Profile) {
	p = p.clone()
	p.Code = normalizeCode(p.Code)
	p.normalize()

	r.mu.Lock()
	r.profiles[p.Code] = p
	r.mu.Unlock()
}

// Lookup returns a copy of the profile for code.
func (r *Registry) Lookup(code string) (*Profile, error) {
	r.mu.RLock()
	p, ok := r.profiles[normalizeCode(code)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLanguage, code)
	}
	return p.clone(), nil
}

// Codes lists the registered codes in sorted order.
func (r *Registry) Codes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	codes := make([]string, 0, len(r.profiles))
	for c := range r.profiles {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

// Profiles returns copies of all registered profiles ordered by code.
func (r *Registry) Profiles() []*Profile {
	var out []*Profile
	for _, c := range r.Codes() {
		if p, err := r.Lookup(c); err == nil {
			out = append(out, p)
		}
	}
	return out
}

type profileFile struct {
	Profiles map[string]yaml.Node `yaml:"profiles"`
}

// LoadFile overlays profiles from a YAML file of the form
//
//	profiles:
//	  en:
//	    max_line_length: 42
//	  fr:
//	    name: French
//	    split_after: [",", "."]
//
// Fields present in the file replace those of an already registered profile;
// absent fields keep their current values. Unknown codes create new profiles.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read language profiles %s: %w", path, err)
	}
	return r.Load(data)
}

// Load is LoadFile on in-memory YAML.
func (r *Registry) Load(data []byte) error {
	var f profileFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse language profiles: %w", err)
	}
	for code, node := range f.Profiles {
		p, err := r.Lookup(code)
		if err != nil {
			p = &Profile{Code: code}
		}
		if err := node.Decode(p); err != nil {
			return fmt.Errorf("language profile %q: %w", code, err)
		}
		p.Code = code
		r.Register(p)
	}
	return nil
}

func normalizeCode(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if i := strings.IndexAny(code, "-_"); i > 0 {
		code = code[:i]
	}
	return code
}

// Detect guesses the two-letter code of the language text is written in.
// ok is false when the guess is unreliable or has no ISO 639-1 code.
func Detect(text string) (code string, ok bool) {
	info := whatlanggo.Detect(text)
	code = info.Lang.Iso6391()
	if code == "" || !info.IsReliable() {
		return code, false
	}
	return code, true
}
