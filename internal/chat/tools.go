package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
)

// SearchToolName is the single tool declared to search sessions today.
const SearchToolName = "search_google"

// Searcher runs a web search and returns a prompt-sized JSON observation.
type Searcher interface {
	Search(ctx context.Context, term string) (string, error)
}

// ToolHandler executes one tool call given the raw JSON arguments the model
// produced.
type ToolHandler func(ctx context.Context, arguments string) (string, error)

// Registry maps declared tool names to handlers. There is one entry today;
// adding a tool is a Register call, not a rewrite.
type Registry struct {
	infos    []*schema.ToolInfo
	handlers map[string]ToolHandler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]ToolHandler)}
}

func (r *Registry) Register(info *schema.ToolInfo, handler ToolHandler) {
	r.infos = append(r.infos, info)
	r.handlers[info.Name] = handler
}

// Declarations returns the tool schemas to offer on a completion call.
func (r *Registry) Declarations() []*schema.ToolInfo {
	return r.infos
}

func (r *Registry) Lookup(name string) (ToolHandler, bool) {
	h, ok := r.handlers[name]
	return h, ok
}

type searchArgs struct {
	Term string `json:"term"`
}

// NewSearchRegistry declares search_google backed by the given searcher.
func NewSearchRegistry(searcher Searcher) *Registry {
	r := NewRegistry()
	info := &schema.ToolInfo{
		Name: SearchToolName,
		Desc: "Searches Google for the given term and returns the result for real-time data.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"term": {
				Desc:     "The term/query to search for in Google.",
				Type:     schema.String,
				Required: true,
			},
		}),
	}
	r.Register(info, func(ctx context.Context, arguments string) (string, error) {
		var args searchArgs
		if err := json.Unmarshal([]byte(arguments), &args); err != nil {
			return "", fmt.Errorf("decode search arguments: %w", err)
		}
		if strings.TrimSpace(args.Term) == "" {
			return "", errors.New("search term must not be empty")
		}
		return searcher.Search(ctx, args.Term)
	})
	return r
}
