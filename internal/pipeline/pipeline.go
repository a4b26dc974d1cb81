package pipeline

import (
	"log/slog"
	"strings"

	"github.com/citegrab/citegrab/internal/types"
)

// Middleware processes an article and returns the (possibly modified)
// article. Return nil to drop the article from the pipeline.
type Middleware interface {
	// Name returns the middleware's identifier.
	Name() string

	// Process transforms an article. Return nil to drop the article.
	Process(art *types.Article) (*types.Article, error)
}

// Pipeline chains middleware processors together.
type Pipeline struct {
	middlewares []Middleware
	logger      *slog.Logger
}

// New creates a new Pipeline.
func New(logger *slog.Logger) *Pipeline {
	return &Pipeline{
		logger: logger.With("component", "pipeline"),
	}
}

// Use adds a middleware to the pipeline chain.
func (p *Pipeline) Use(mw Middleware) {
	p.middlewares = append(p.middlewares, mw)
	p.logger.Debug("middleware added", "name", mw.Name(), "position", len(p.middlewares))
}

// Process runs the article through all middleware in order.
func (p *Pipeline) Process(art *types.Article) (*types.Article, error) {
	current := art

	for _, mw := range p.middlewares {
		result, err := mw.Process(current)
		if err != nil {
			return nil, &types.PipelineError{
				Stage:   mw.Name(),
				Article: current,
				Err:     err,
			}
		}
		if result == nil {
			// Article dropped by middleware
			p.logger.Debug("article dropped", "stage", mw.Name(), "title", art.Title())
			return nil, nil
		}
		current = result
	}

	return current, nil
}

// Len returns the number of middleware in the chain.
func (p *Pipeline) Len() int {
	return len(p.middlewares)
}

// --- Built-in Middleware ---

// TrimMiddleware trims whitespace from all string fields.
type TrimMiddleware struct{}

func (m *TrimMiddleware) Name() string { return "trim" }

func (m *TrimMiddleware) Process(art *types.Article) (*types.Article, error) {
	for _, key := range art.Keys() {
		if s := art.GetString(key); s != "" {
			art.Set(key, strings.TrimSpace(s))
		}
	}
	return art, nil
}

// RequiredFieldsMiddleware drops articles missing required fields.
type RequiredFieldsMiddleware struct {
	Fields []string
}

func (m *RequiredFieldsMiddleware) Name() string { return "required_fields" }

func (m *RequiredFieldsMiddleware) Process(art *types.Article) (*types.Article, error) {
	for _, field := range m.Fields {
		if !art.Has(field) {
			return nil, nil // Drop article
		}
		// Also drop if the field holds an empty string
		if s := art.GetString(field); s == "" {
			val, _ := art.Get(field)
			if val == nil {
				return nil, nil
			}
			if _, isString := val.(string); isString {
				return nil, nil
			}
		}
	}
	return art, nil
}

// FieldRenameMiddleware renames fields, for matching downstream schemas.
type FieldRenameMiddleware struct {
	Mapping map[string]string // old name -> new name
}

func (m *FieldRenameMiddleware) Name() string { return "field_rename" }

func (m *FieldRenameMiddleware) Process(art *types.Article) (*types.Article, error) {
	for oldKey, newKey := range m.Mapping {
		if val, ok := art.Get(oldKey); ok {
			art.Set(newKey, val)
			art.Delete(oldKey)
		}
	}
	return art, nil
}

// DefaultValueMiddleware sets default values for missing fields.
type DefaultValueMiddleware struct {
	Defaults map[string]any
}

func (m *DefaultValueMiddleware) Name() string { return "default_values" }

func (m *DefaultValueMiddleware) Process(art *types.Article) (*types.Article, error) {
	for key, defaultVal := range m.Defaults {
		if !art.Has(key) {
			art.Set(key, defaultVal)
		}
	}
	return art, nil
}
