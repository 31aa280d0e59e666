package capture

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// AppContext identifies the application being captured.
type AppContext interface {
	// ID is a unique application identifier used for caching and layout.
	ID() string
	// ContextName is the human-readable name used for directory layout.
	ContextName() string
	// StateHash summarises the current application state for caching.
	StateHash() string
	Metadata() map[string]any
	// Instance returns whatever the renderer needs to launch the application.
	Instance() any
}

// Command is the process a renderer launches for a BasicAppContext.
type Command struct {
	Path string
	Args []string
	Dir  string
	Env  []string
}

// String renders the command line with naive quoting.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, c.Path)
	for _, a := range c.Args {
		if strings.ContainsAny(a, " \t\"'") {
			a = fmt.Sprintf("%q", a)
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}

// BasicAppContext wraps a command line.
type BasicAppContext struct {
	name     string
	command  Command
	metadata map[string]any
	id       string

	now func() time.Time
}

// NewBasicAppContext creates a context for the given command. An empty name
// falls back to the base name of the executable.
func NewBasicAppContext(name string, command Command, metadata map[string]any) *BasicAppContext {
	if name == "" {
		name = baseName(command.Path)
	}
	if metadata == nil {
		metadata = map[string]any{}
	}

	sum := sha256.Sum256([]byte(command.String()))
	return &BasicAppContext{
		name:     name,
		command:  command,
		metadata: metadata,
		id:       fmt.Sprintf("%s_%s", name, hex.EncodeToString(sum[:4])),
		now:      time.Now,
	}
}

func (b *BasicAppContext) ID() string          { return b.id }
func (b *BasicAppContext) ContextName() string { return b.name }
func (b *BasicAppContext) Instance() any       { return b.command }

// StateHash hashes the command and metadata at minute precision, so repeated
// captures within the same minute share cache entries.
func (b *BasicAppContext) StateHash() string {
	state := map[string]any{
		"command":   b.command.String(),
		"metadata":  b.metadata,
		"timestamp": b.now().UTC().Format("2006-01-02T15:04"),
	}
	return shortHash(state)
}

// Metadata returns the context description merged with caller metadata.
func (b *BasicAppContext) Metadata() map[string]any {
	md := map[string]any{
		"command":      b.command.String(),
		"context_name": b.name,
		"app_id":       b.id,
		"timestamp":    b.now().UTC().Format(time.RFC3339),
	}
	maps.Copy(md, b.metadata)
	return md
}

// ContentKey derives the cache key for a capture of app under contextName
// in the given output format: the first 16 hex characters of a SHA-256 over
// the app id, context, format, state hash and the sorted metadata key names.
func ContentKey(app AppContext, contextName string, format Format) string {
	keys := slices.Sorted(maps.Keys(app.Metadata()))
	return shortHash(map[string]any{
		"app_id":           app.ID(),
		"context":          contextName,
		"format":           string(format),
		"state_hash":       app.StateHash(),
		"metadata_summary": keys,
	})
}

func shortHash(v any) string {
	// json.Marshal sorts map keys, so the encoding is stable.
	data, err := json.Marshal(v)
	if err != nil {
		data = []byte(fmt.Sprintf("%v", v))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:16]
}

func baseName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		path = path[i+1:]
	}
	if path == "" {
		return "app"
	}
	return path
}
