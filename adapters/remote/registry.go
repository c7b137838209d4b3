package remote

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/artpar/zentypes/core/merge"
	"github.com/artpar/zentypes/domain/zen"
	"github.com/artpar/zentypes/ports"
)

// Default RPC method names.
const (
	DefaultListMethod   = "relatient/zen-all-symbols"
	DefaultSymbolMethod = "aidbox.zen/symbol"
	DefaultTaggedMethod = "aidbox.zen/tagged-symbols"
)

// Registry reads zen symbols from the registry RPC endpoint.
//
// API Contract:
//
//	POST /rpc
//	Request:  {"method": "aidbox.zen/symbol", "params": {"name": "fhir/Patient"}}
//	Response: {"result": {...}}            null result means unknown symbol
//
//	POST /rpc
//	Request:  {"method": "relatient/zen-all-symbols"}
//	Response: {"result": {"ns/name": {...}, ...}}   or an array of names
//
//	POST /rpc
//	Request:  {"method": "aidbox.zen/tagged-symbols", "params": {"tag": "zen/schema"}}
//	Response: {"result": {"ns/name": {...}, ...}}
//
//	GET /__healthcheck
//	Response: healthy
type Registry struct {
	client *Client
	cfg    RegistryConfig
}

// RegistryConfig selects the RPC methods used by a Registry.
type RegistryConfig struct {
	ListMethod   string
	SymbolMethod string
	TaggedMethod string

	// Tags are listed with TaggedMethod and merged into the full listing.
	Tags []string
}

// NewRegistry creates a registry adapter. Empty method names get defaults.
func NewRegistry(client *Client, cfg RegistryConfig) *Registry {
	if cfg.ListMethod == "" {
		cfg.ListMethod = DefaultListMethod
	}
	if cfg.SymbolMethod == "" {
		cfg.SymbolMethod = DefaultSymbolMethod
	}
	if cfg.TaggedMethod == "" {
		cfg.TaggedMethod = DefaultTaggedMethod
	}
	return &Registry{client: client, cfg: cfg}
}

// RPCRequest is the body of a registry RPC call.
type RPCRequest struct {
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
}

// RPCError is an error reported inside a successful RPC response.
type RPCError struct {
	Method  string
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc %s: %s", e.Method, e.Message)
}

// Call invokes an RPC method and returns its result in the ordered
// representation of domain/zen.
func (r *Registry) Call(ctx context.Context, method string, params any) (any, error) {
	data, err := r.client.RequestRaw(ctx, http.MethodPost, "/rpc", RPCRequest{Method: method, Params: params})
	if err != nil {
		return nil, fmt.Errorf("rpc %s: %w", method, err)
	}

	envelope, err := zen.ParseObject(data)
	if err != nil {
		return nil, fmt.Errorf("rpc %s: decode response: %w", method, err)
	}
	if rpcErr, ok := envelope.Get("error"); ok && rpcErr != nil {
		return nil, &RPCError{Method: method, Message: errorMessage(rpcErr)}
	}
	result, _ := envelope.Get("result")
	return result, nil
}

// ListSymbolNames returns every symbol name, in registry order.
func (r *Registry) ListSymbolNames(ctx context.Context) ([]string, error) {
	names, _, err := r.ListSymbolDefinitions(ctx)
	return names, err
}

// ListSymbolDefinitions returns every symbol name and, when the list method
// returns them, the definitions. Tagged listings are merged in.
func (r *Registry) ListSymbolDefinitions(ctx context.Context) ([]string, map[string]*zen.Object, error) {
	result, err := r.Call(ctx, r.cfg.ListMethod, nil)
	if err != nil {
		return nil, nil, err
	}

	names, defs, err := listing(r.cfg.ListMethod, result)
	if err != nil {
		return nil, nil, err
	}

	seen := make(map[string]bool, len(names))
	for _, n := range names {
		seen[n] = true
	}
	for _, tag := range r.cfg.Tags {
		tagged, taggedDefs, err := r.TaggedSymbols(ctx, tag)
		if err != nil {
			return nil, nil, err
		}
		for _, n := range tagged {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
			if def, ok := taggedDefs[n]; ok {
				defs[n] = merge.Objects(defs[n], def)
			}
		}
	}
	return names, defs, nil
}

// TaggedSymbols returns the symbols carrying tag.
func (r *Registry) TaggedSymbols(ctx context.Context, tag string) ([]string, map[string]*zen.Object, error) {
	result, err := r.Call(ctx, r.cfg.TaggedMethod, map[string]string{"tag": tag})
	if err != nil {
		return nil, nil, err
	}
	return listing(r.cfg.TaggedMethod, result)
}

// GetSymbolDefinition returns one raw definition, or ports.ErrSymbolNotFound.
func (r *Registry) GetSymbolDefinition(ctx context.Context, name string) (*zen.Object, error) {
	result, err := r.Call(ctx, r.cfg.SymbolMethod, map[string]string{"name": name})
	if err != nil {
		if IsNotFound(err) {
			return nil, ports.ErrSymbolNotFound
		}
		return nil, err
	}
	switch v := result.(type) {
	case nil:
		return nil, ports.ErrSymbolNotFound
	case *zen.Object:
		return v, nil
	default:
		return nil, fmt.Errorf("rpc %s: expected object for %s, got %T", r.cfg.SymbolMethod, name, result)
	}
}

// HealthCheck reports whether the registry answers its health endpoint.
func (r *Registry) HealthCheck(ctx context.Context) error {
	data, err := r.client.RequestRaw(ctx, http.MethodGet, "/__healthcheck", nil)
	if err != nil {
		return fmt.Errorf("registry health: %w", err)
	}
	status := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if status != "healthy" {
		return fmt.Errorf("registry health: unexpected status %q", status)
	}
	return nil
}

// listing reads a name listing: either an array of names or an object of
// name to definition.
func listing(method string, result any) ([]string, map[string]*zen.Object, error) {
	defs := make(map[string]*zen.Object)
	switch v := result.(type) {
	case nil:
		return []string{}, defs, nil
	case []any:
		names := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, nil, fmt.Errorf("rpc %s: expected symbol name, got %T", method, item)
			}
			names = append(names, s)
		}
		return names, defs, nil
	case *zen.Object:
		names := v.Keys()
		for _, n := range names {
			if def := v.Object(n); def != nil {
				defs[n] = def
			}
		}
		return names, defs, nil
	default:
		return nil, nil, fmt.Errorf("rpc %s: unexpected result %T", method, result)
	}
}

func errorMessage(v any) string {
	switch e := v.(type) {
	case string:
		return e
	case *zen.Object:
		if msg := e.String("message"); msg != "" {
			return msg
		}
		b, _ := e.MarshalJSON()
		return string(b)
	default:
		return fmt.Sprintf("%v", v)
	}
}
