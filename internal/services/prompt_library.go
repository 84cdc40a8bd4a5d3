package services

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"text/template"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"sumup/internal/models"
)

//go:embed prompts.yaml
var defaultPrompts []byte

// ErrUnknownSummaryType is returned for a summary type with no template
var ErrUnknownSummaryType = errors.New("unknown summary type")

// promptFile mirrors prompts.yaml
type promptFile struct {
	Style       string            `yaml:"style"`
	PostsHeader string            `yaml:"posts_header"`
	Templates   map[string]string `yaml:"templates"`
}

// PromptSet is a parsed, immutable set of templates
type PromptSet struct {
	style       *template.Template
	postsHeader string
	templates   map[models.SummaryType]*template.Template
}

type promptData struct {
	DisplayName string
	Style       string
}

// ParsePromptSet parses a YAML prompt document. The funny and serious
// templates are required.
func ParsePromptSet(data []byte) (*PromptSet, error) {
	var file promptFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse prompts YAML: %w", err)
	}

	for _, required := range []models.SummaryType{models.SummaryTypeFunny, models.SummaryTypeSerious} {
		if strings.TrimSpace(file.Templates[string(required)]) == "" {
			return nil, fmt.Errorf("prompts: missing %q template", required)
		}
	}
	if strings.TrimSpace(file.Style) == "" {
		return nil, errors.New("prompts: missing style instruction")
	}

	set := &PromptSet{
		postsHeader: strings.TrimSpace(file.PostsHeader),
		templates:   make(map[models.SummaryType]*template.Template, len(file.Templates)),
	}

	style, err := template.New("style").Option("missingkey=error").Parse(strings.TrimSpace(file.Style))
	if err != nil {
		return nil, fmt.Errorf("prompts: invalid style template: %w", err)
	}
	set.style = style

	for name, body := range file.Templates {
		tmpl, err := template.New(name).Option("missingkey=error").Parse(strings.TrimSpace(body))
		if err != nil {
			return nil, fmt.Errorf("prompts: invalid %q template: %w", name, err)
		}
		set.templates[models.SummaryType(strings.ToLower(name))] = tmpl
	}

	return set, nil
}

// Types lists the summary types in the set, sorted
func (p *PromptSet) Types() []models.SummaryType {
	types := make([]models.SummaryType, 0, len(p.templates))
	for t := range p.templates {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Has reports whether the set has a template for summaryType
func (p *PromptSet) Has(summaryType models.SummaryType) bool {
	_, ok := p.templates[summaryType]
	return ok
}

// Build assembles the full instruction: the style directive first when
// present, then the tone template, then the delimited posts.
func (p *PromptSet) Build(postText, displayName string, summaryType models.SummaryType, style string) (string, error) {
	tmpl, ok := p.templates[summaryType]
	if !ok {
		return "", fmt.Errorf("%w %q", ErrUnknownSummaryType, summaryType)
	}

	data := promptData{DisplayName: displayName, Style: strings.TrimSpace(style)}
	var buf bytes.Buffer

	if data.Style != "" {
		if err := p.style.Execute(&buf, data); err != nil {
			return "", fmt.Errorf("failed to render style instruction: %w", err)
		}
		buf.WriteString("\n\n")
	}

	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s template: %w", summaryType, err)
	}

	buf.WriteString("\n\n")
	if p.postsHeader != "" {
		buf.WriteString(p.postsHeader)
		buf.WriteString("\n")
	}
	buf.WriteString(postText)

	return buf.String(), nil
}

// PromptLibrary holds the active PromptSet. It starts with the embedded
// defaults and can be switched to a file that is reloaded when it changes.
type PromptLibrary struct {
	current atomic.Pointer[PromptSet]
}

// NewPromptLibrary creates a library loaded with the embedded templates
func NewPromptLibrary() *PromptLibrary {
	set, err := ParsePromptSet(defaultPrompts)
	if err != nil {
		panic(fmt.Sprintf("embedded prompts are invalid: %v", err))
	}

	lib := &PromptLibrary{}
	lib.current.Store(set)
	return lib
}

// Current returns the active prompt set
func (l *PromptLibrary) Current() *PromptSet {
	return l.current.Load()
}

// LoadFile replaces the active set with the templates in path. The active
// set is kept when the file is invalid.
func (l *PromptLibrary) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read prompts file: %w", err)
	}

	set, err := ParsePromptSet(data)
	if err != nil {
		return err
	}

	l.current.Store(set)
	log.Printf("📝 [PROMPTS] Loaded %d templates from %s: %v", len(set.templates), path, set.Types())
	return nil
}

// Watch reloads path whenever it is written until ctx is done. The parent
// directory is watched so editors that replace the file are handled.
func (l *PromptLibrary) Watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create prompts watcher: %w", err)
	}

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	target := filepath.Clean(path)
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if err := l.LoadFile(path); err != nil {
					log.Printf("⚠️  [PROMPTS] Keeping previous templates, reload failed: %v", err)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("⚠️  [PROMPTS] Watcher error: %v", err)
			}
		}
	}()

	log.Printf("👀 [PROMPTS] Watching %s for changes", path)
	return nil
}
