// Package mcp exposes the type hierarchy over the Model Context Protocol.
package mcp

import (
	"context"
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/Benny93/catgraph/internal/category"
	"github.com/Benny93/catgraph/internal/hierarchy"
	"github.com/Benny93/catgraph/internal/typecat"
	"github.com/Benny93/catgraph/internal/typesys"
)

// version is set by the linker at build time.
var version = "dev"

// Server is the MCP server.
type Server struct {
	svc    *hierarchy.Service
	server *mcp.Server
	log    zerolog.Logger
}

// NewServer creates an MCP server answering queries with svc.
func NewServer(svc *hierarchy.Service, log zerolog.Logger) *Server {
	s := &Server{
		svc: svc,
		log: log,
	}

	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    "catgraph",
		Version: version,
	}, nil)

	s.registerTools()
	s.registerResources()

	return s
}

// MCP returns the underlying go-sdk server.
func (s *Server) MCP() *mcp.Server {
	return s.server
}

// Reload swaps the served hierarchy for one built from catalog.
func (s *Server) Reload(catalog *typesys.Catalog) error {
	return s.svc.Reload(catalog)
}

// Run serves MCP over stdin/stdout until the client disconnects or ctx is
// cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.log.Info().Msg("serving MCP on stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Tool inputs and outputs.

// LinearizationInput is the input of type_ancestors and type_descendants.
type LinearizationInput struct {
	Type           string `json:"type"`
	Filter         string `json:"filter,omitempty"`
	IncludeSelf    bool   `json:"include_self,omitempty"`
	Priority       string `json:"priority,omitempty"`
	InterfaceOrder string `json:"interface_order,omitempty"`
	Strategy       string `json:"strategy,omitempty"`
}

// LinearizationOutput is the output of type_ancestors and type_descendants.
type LinearizationOutput struct {
	Type  string              `json:"type"`
	Types []hierarchy.TypeRef `json:"types"`
}

// InspectInput is the input of type_inspect.
type InspectInput struct {
	Type string `json:"type"`
}

// BoundsInput is the input of type_bounds.
type BoundsInput struct {
	Type   string   `json:"type"`
	Bounds []string `json:"bounds"`
}

// BoundsOutput is the output of type_bounds.
type BoundsOutput struct {
	Type     string   `json:"type"`
	Bounds   []string `json:"bounds"`
	InBounds bool     `json:"in_bounds"`
}

// PropertyGetInput is the input of property_get.
type PropertyGetInput struct {
	Type string `json:"type"`
	Key  string `json:"key"`
}

// PropertySetInput is the input of property_set.
type PropertySetInput struct {
	Type     string `json:"type"`
	Key      string `json:"key"`
	Value    any    `json:"value"`
	Override bool   `json:"override,omitempty"`
}

// PropertySetOutput is the output of property_set.
type PropertySetOutput struct {
	Type string `json:"type"`
	Key  string `json:"key"`
	Set  bool   `json:"set"`
}

func typeParam() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: "Type name, qualified (shapes.Circle) or short (Circle)"}
}

func linearizationSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"type":            typeParam(),
			"filter":          {Type: "string", Enum: []any{"all", "abstract", "classes", "interfaces"}, Description: "Keep only these types"},
			"include_self":    {Type: "boolean", Description: "Start the list with the queried type"},
			"priority":        {Type: "string", Enum: []any{"classes-first", "interfaces-first"}, Description: "Visit the superclass before or after the interfaces"},
			"interface_order": {Type: "string", Enum: []any{"declaration", "reverse"}, Description: "Order of the interfaces of each type"},
			"strategy":        {Type: "string", Enum: []any{"monotonic", "pre-order", "level-order"}, Description: "Traversal and duplicate elimination"},
		},
		Required: []string{"type"},
	}
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "type_ancestors",
		Description: "Bottom-up linearization of a type: its supertypes from the nearest to the root, each listed once.",
		InputSchema: linearizationSchema(),
	}, s.handleAncestors)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "type_descendants",
		Description: "Top-down linearization of a type: every known subtype, each listed once.",
		InputSchema: linearizationSchema(),
	}, s.handleDescendants)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "type_inspect",
		Description: "Show a type's kind, declaration site, direct parents and children, known subtypes and local properties.",
		InputSchema: &jsonschema.Schema{
			Type:       "object",
			Properties: map[string]*jsonschema.Schema{"type": typeParam()},
			Required:   []string{"type"},
		},
	}, s.handleInspect)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "type_bounds",
		Description: "Check whether a type is assignable to every given bound.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"type": typeParam(),
				"bounds": {
					Type:        "array",
					Items:       &jsonschema.Schema{Type: "string"},
					Description: "Upper bounds the type must satisfy",
				},
			},
			Required: []string{"type", "bounds"},
		},
	}, s.handleBounds)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "property_get",
		Description: "Look a property up on a type, falling back to its ancestors in bottom-up order.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"type": typeParam(),
				"key":  {Type: "string", Description: "Property name"},
			},
			Required: []string{"type", "key"},
		},
	}, s.handlePropertyGet)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "property_set",
		Description: "Store a property on a type. An existing local value is only replaced when override is true.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"type":     typeParam(),
				"key":      {Type: "string", Description: "Property name"},
				"value":    {Description: "Any JSON value"},
				"override": {Type: "boolean", Description: "Replace an existing local value"},
			},
			Required: []string{"type", "key", "value"},
		},
	}, s.handlePropertySet)
}

func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         "catgraph://stats",
		Name:        "Hierarchy statistics",
		Description: "Number of declared, placeholder, registered and rejected types",
		MIMEType:    "application/json",
	}, s.readStats)
}

func (s *Server) handleAncestors(ctx context.Context, _ *mcp.CallToolRequest, in LinearizationInput) (*mcp.CallToolResult, LinearizationOutput, error) {
	q, err := in.Query(s.svc.BottomUpPolicy())
	if err != nil {
		return nil, LinearizationOutput{}, err
	}
	types, err := s.svc.Ancestors(q)
	if err != nil {
		return nil, LinearizationOutput{}, err
	}
	return nil, LinearizationOutput{Type: in.Type, Types: types}, nil
}

func (s *Server) handleDescendants(ctx context.Context, _ *mcp.CallToolRequest, in LinearizationInput) (*mcp.CallToolResult, LinearizationOutput, error) {
	q, err := in.Query(s.svc.TopDownPolicy())
	if err != nil {
		return nil, LinearizationOutput{}, err
	}
	types, err := s.svc.Descendants(q)
	if err != nil {
		return nil, LinearizationOutput{}, err
	}
	return nil, LinearizationOutput{Type: in.Type, Types: types}, nil
}

// Query builds a hierarchy query. Policy fields left empty fall back to base.
func (in LinearizationInput) Query(base typecat.Policy) (hierarchy.Query, error) {
	filter, err := hierarchy.ParseFilter(in.Filter)
	if err != nil {
		return hierarchy.Query{}, err
	}
	q := hierarchy.Query{Type: in.Type, Filter: filter, IncludeSelf: in.IncludeSelf}

	if in.Priority == "" && in.InterfaceOrder == "" && in.Strategy == "" {
		return q, nil
	}
	p := base
	if in.Priority != "" {
		if p.Priority, err = typecat.ParsePriority(in.Priority); err != nil {
			return q, err
		}
	}
	if in.InterfaceOrder != "" {
		if p.InterfaceOrder, err = typecat.ParseInterfaceOrder(in.InterfaceOrder); err != nil {
			return q, err
		}
	}
	if in.Strategy != "" {
		if p.Strategy, err = category.ParseStrategy(in.Strategy); err != nil {
			return q, err
		}
	}
	q.Policy = &p
	return q, nil
}

func (s *Server) handleInspect(ctx context.Context, _ *mcp.CallToolRequest, in InspectInput) (*mcp.CallToolResult, hierarchy.TypeInfo, error) {
	info, err := s.svc.Inspect(in.Type)
	if err != nil {
		return nil, hierarchy.TypeInfo{}, err
	}
	return nil, *info, nil
}

func (s *Server) handleBounds(ctx context.Context, _ *mcp.CallToolRequest, in BoundsInput) (*mcp.CallToolResult, BoundsOutput, error) {
	ok, err := s.svc.InBounds(in.Type, in.Bounds)
	if err != nil {
		return nil, BoundsOutput{}, err
	}
	return nil, BoundsOutput{Type: in.Type, Bounds: in.Bounds, InBounds: ok}, nil
}

func (s *Server) handlePropertyGet(ctx context.Context, _ *mcp.CallToolRequest, in PropertyGetInput) (*mcp.CallToolResult, hierarchy.PropertyValue, error) {
	v, err := s.svc.Property(in.Type, in.Key)
	if err != nil {
		return nil, hierarchy.PropertyValue{}, err
	}
	return nil, v, nil
}

func (s *Server) handlePropertySet(ctx context.Context, _ *mcp.CallToolRequest, in PropertySetInput) (*mcp.CallToolResult, PropertySetOutput, error) {
	if err := s.svc.SetProperty(in.Type, in.Key, in.Value, in.Override); err != nil {
		return nil, PropertySetOutput{}, err
	}
	s.log.Info().Str("type", in.Type).Str("key", in.Key).Msg("property set over MCP")
	return nil, PropertySetOutput{Type: in.Type, Key: in.Key, Set: true}, nil
}

func (s *Server) readStats(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	data, err := json.Marshal(s.svc.Stats())
	if err != nil {
		return nil, err
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
