package registry

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	"github.com/xeipuuv/gojsonschema"

	"github.com/Finmate-core-poc/server/internal/agent/model"
	"github.com/Finmate-core-poc/server/internal/collab/market"
	"github.com/Finmate-core-poc/server/internal/collab/persistence"
	"github.com/Finmate-core-poc/server/internal/collab/sandbox"
)

// Deps are the capabilities tools close over. Every tool reaches the outside
// world only through one of these.
type Deps struct {
	Ledger  *persistence.Ledger
	Rates   *market.Client
	Quotes  *market.QuoteClient
	Sandbox *sandbox.Client
}

// ToolEntry pairs an invokable tool with its metadata and the compiled
// argument schema the executor validates against.
type ToolEntry struct {
	Info   *schema.ToolInfo
	Tool   tool.InvokableTool
	Schema *gojsonschema.Schema
}

// Registry is the static catalog of tools and the intent table binding
// classifier intents to them. Read-only after Build.
type Registry struct {
	tools       map[string]*ToolEntry
	intents     map[string]*model.IntentSpec
	intentOrder []string
}

// Build assembles the full catalog. It fails fast on a malformed tool schema
// or an intent bound to a missing tool, since both are programming errors.
func Build(deps Deps) (*Registry, error) {
	r := &Registry{
		tools:   make(map[string]*ToolEntry),
		intents: make(map[string]*model.IntentSpec),
	}

	groups := [][]tool.BaseTool{
		ledgerTools(deps.Ledger),
		planningTools(deps.Ledger),
		marketTools(deps.Rates, deps.Quotes),
		utilityTools(deps.Sandbox),
	}
	for _, group := range groups {
		for _, t := range group {
			if err := r.register(t); err != nil {
				return nil, err
			}
		}
	}

	for i := range intentTable {
		spec := intentTable[i]
		if _, ok := r.tools[spec.Tool]; !ok {
			return nil, fmt.Errorf("intent %s bound to unknown tool %s", spec.Name, spec.Tool)
		}
		r.intents[spec.Name] = &spec
		r.intentOrder = append(r.intentOrder, spec.Name)
	}

	return r, nil
}

func (r *Registry) register(t tool.BaseTool) error {
	info, err := t.Info(context.Background())
	if err != nil {
		return fmt.Errorf("tool info: %w", err)
	}

	inv, ok := t.(tool.InvokableTool)
	if !ok {
		return fmt.Errorf("tool %s is not invokable", info.Name)
	}

	compiled, err := compileParamsSchema(info)
	if err != nil {
		return fmt.Errorf("compile schema for %s: %w", info.Name, err)
	}

	if _, exists := r.tools[info.Name]; exists {
		return fmt.Errorf("duplicate tool %s", info.Name)
	}
	r.tools[info.Name] = &ToolEntry{Info: info, Tool: inv, Schema: compiled}
	return nil
}

// Tool returns the entry for a tool name.
func (r *Registry) Tool(name string) (*ToolEntry, bool) {
	e, ok := r.tools[name]
	return e, ok
}

// Intent returns the spec for an intent name.
func (r *Registry) Intent(name string) (*model.IntentSpec, bool) {
	s, ok := r.intents[name]
	return s, ok
}

// Intents returns all intent specs in declaration order. Declaration order is
// the final tie-break between competing candidates.
func (r *Registry) Intents() []*model.IntentSpec {
	out := make([]*model.IntentSpec, 0, len(r.intentOrder))
	for _, name := range r.intentOrder {
		out = append(out, r.intents[name])
	}
	return out
}

// IntentRank returns the declaration position of an intent, or a large value
// for unknown names.
func (r *Registry) IntentRank(name string) int {
	for i, n := range r.intentOrder {
		if n == name {
			return i
		}
	}
	return len(r.intentOrder)
}

// compileParamsSchema converts the tool's parameter metadata into a JSON
// Schema document and compiles it for validation.
func compileParamsSchema(info *schema.ToolInfo) (*gojsonschema.Schema, error) {
	doc := map[string]any{
		"type":                 "object",
		"additionalProperties": true,
		"properties":           map[string]any{},
	}

	if info.ParamsOneOf != nil {
		open, err := info.ParamsOneOf.ToOpenAPIV3()
		if err != nil {
			return nil, err
		}
		if open != nil {
			props := map[string]any{}
			for name, p := range open.Properties {
				if p == nil || p.Value == nil {
					continue
				}
				prop := map[string]any{"type": p.Value.Type}
				if len(p.Value.Enum) > 0 {
					prop["enum"] = p.Value.Enum
				}
				if p.Value.Type == "array" && p.Value.Items != nil && p.Value.Items.Value != nil {
					prop["items"] = map[string]any{"type": p.Value.Items.Value.Type}
				}
				props[name] = prop
			}
			doc["properties"] = props
			if len(open.Required) > 0 {
				doc["required"] = open.Required
			}
		}
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
}
