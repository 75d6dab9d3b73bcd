package workflow

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Constructor creates a node of one variant with a fresh ID and the
// variant's default parameters.
type Constructor func() Node

// Registry maps node type discriminators to constructors. Loading a
// persisted document uses it to rebuild each node as its concrete variant.
//
// A Registry is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	ctors map[string]Constructor
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{ctors: make(map[string]Constructor)}
}

// DefaultRegistry is used by LoadFromFile. The nodes package registers the
// built-in catalog into it on import.
var DefaultRegistry = NewRegistry()

// Register binds nodeType to c, replacing any earlier binding.
func (r *Registry) Register(nodeType string, c Constructor) error {
	if nodeType == "" {
		return &EngineError{Code: CodeInvalidOption, Message: "node type cannot be empty"}
	}
	if c == nil {
		return &EngineError{Code: CodeInvalidOption, Message: "constructor for " + nodeType + " cannot be nil"}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctors[nodeType] = c
	return nil
}

// New creates a node of the given type.
//
// Returns an error matching ErrUnknownNodeType when nodeType is not
// registered.
func (r *Registry) New(nodeType string) (Node, error) {
	r.mu.RLock()
	c, ok := r.ctors[nodeType]
	r.mu.RUnlock()
	if !ok {
		return nil, &EngineError{Code: CodeUnknownNodeType, Message: "unknown node type: " + nodeType}
	}
	n := c()
	if n == nil {
		return nil, &EngineError{Code: CodeInvalidOption, Message: "constructor for " + nodeType + " returned nil"}
	}
	if n.Type() != nodeType {
		return nil, &EngineError{Code: CodeInvalidOption, Message: fmt.Sprintf("constructor for %s built a %s node", nodeType, n.Type())}
	}
	return n, nil
}

// Types returns the registered discriminators, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.ctors))
	for t := range r.ctors {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Register binds nodeType to c in DefaultRegistry.
func Register(nodeType string, c Constructor) error {
	return DefaultRegistry.Register(nodeType, c)
}

// UnknownNode stands in for a persisted node whose type is not registered.
//
// It keeps the node's identity and parameters so the document can be saved
// again without loss, but it never validates and never executes.
type UnknownNode struct {
	Base
}

// NewUnknownNode creates a placeholder for nodeType.
func NewUnknownNode(nodeType string) *UnknownNode {
	return &UnknownNode{Base: NewBase(nodeType, nodeType)}
}

// Validate always fails.
func (n *UnknownNode) Validate() ValidationResult {
	return Invalid(fmt.Sprintf("Unknown node type '%s'", n.Type()))
}

// Execute always fails.
func (n *UnknownNode) Execute(ctx context.Context, ec *ExecutionContext) ExecutionResult {
	return Failed("Unknown node type '"+n.Type()+"'", ErrUnknownNodeType)
}
