package workflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Document is the persisted form of a Workflow.
//
// Field names are camelCase in both JSON and YAML:
//
//	{
//	  "id": "6f1c...",
//	  "name": "Morning routine",
//	  "createdDate": "2026-03-01T09:00:00Z",
//	  "nodes": [
//	    {"id": "wait", "nodeType": "Delay", "title": "Wait", "x": 40, "y": 80,
//	     "parameters": {"seconds": 1}, "status": "Ready"}
//	  ],
//	  "connections": [
//	    {"id": "c1", "sourceNodeId": "wait", "targetNodeId": "greet",
//	     "sourcePort": "Output", "targetPort": "Input"}
//	  ],
//	  "globalParameters": {"user": "sam"}
//	}
type Document struct {
	ID               string               `json:"id" yaml:"id"`
	Name             string               `json:"name" yaml:"name"`
	Description      string               `json:"description" yaml:"description"`
	CreatedDate      time.Time            `json:"createdDate" yaml:"createdDate"`
	ModifiedDate     time.Time            `json:"modifiedDate" yaml:"modifiedDate"`
	Nodes            []NodeDocument       `json:"nodes" yaml:"nodes"`
	Connections      []ConnectionDocument `json:"connections" yaml:"connections"`
	GlobalParameters Params               `json:"globalParameters" yaml:"globalParameters"`
}

// NodeDocument is the persisted form of a node.
type NodeDocument struct {
	ID         string  `json:"id" yaml:"id"`
	NodeType   string  `json:"nodeType" yaml:"nodeType"`
	Title      string  `json:"title" yaml:"title"`
	X          float64 `json:"x" yaml:"x"`
	Y          float64 `json:"y" yaml:"y"`
	Parameters Params  `json:"parameters" yaml:"parameters"`

	// Status is written as "Ready" for compatibility with editors that
	// display it. It is ignored on load.
	Status string `json:"status,omitempty" yaml:"status,omitempty"`
}

// ConnectionDocument is the persisted form of a connection.
type ConnectionDocument struct {
	ID           string `json:"id" yaml:"id"`
	SourceNodeID string `json:"sourceNodeId" yaml:"sourceNodeId"`
	TargetNodeID string `json:"targetNodeId" yaml:"targetNodeId"`
	SourcePort   string `json:"sourcePort" yaml:"sourcePort"`
	TargetPort   string `json:"targetPort" yaml:"targetPort"`
	Label        string `json:"label,omitempty" yaml:"label,omitempty"`
}

// Format is a workflow document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	// FormatHCL is read-only.
	FormatHCL Format = "hcl"
)

// FormatFromPath picks a Format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".hcl":
		return FormatHCL, nil
	default:
		return "", &EngineError{Code: CodeInvalidOption, Message: "unsupported workflow file extension: " + path}
	}
}

// Document converts w to its persisted form. Connections are written
// verbatim, dangling endpoints included.
func (w *Workflow) Document() *Document {
	doc := &Document{
		ID:               w.ID,
		Name:             w.Name,
		Description:      w.Description,
		CreatedDate:      w.CreatedAt,
		ModifiedDate:     w.ModifiedAt,
		Nodes:            make([]NodeDocument, 0, len(w.nodes)),
		Connections:      make([]ConnectionDocument, 0, len(w.connections)),
		GlobalParameters: w.GlobalParameters.Clone(),
	}
	if doc.GlobalParameters == nil {
		doc.GlobalParameters = make(Params)
	}
	for _, n := range w.nodes {
		b := n.base()
		doc.Nodes = append(doc.Nodes, NodeDocument{
			ID:         b.id,
			NodeType:   b.nodeType,
			Title:      b.title,
			X:          b.pos.X,
			Y:          b.pos.Y,
			Parameters: b.Params().Clone(),
			Status:     string(StatusReady),
		})
	}
	for _, c := range w.connections {
		doc.Connections = append(doc.Connections, ConnectionDocument{
			ID:           c.ID,
			SourceNodeID: c.SourceNodeID,
			TargetNodeID: c.TargetNodeID,
			SourcePort:   c.SourcePort,
			TargetPort:   c.TargetPort,
			Label:        c.Label,
		})
	}
	return doc
}

// FromDocument rebuilds a Workflow from doc.
//
// Each node is created by the constructor registered for its nodeType, so it
// starts with the variant's default parameters; the document's parameters
// are then laid over them. Unregistered types become *UnknownNode. Missing
// workflow metadata is filled in: a fresh ID, the default name and the
// current time.
func (r *Registry) FromDocument(doc *Document) (*Workflow, error) {
	if doc == nil {
		return nil, &EngineError{Code: CodeInvalidDocument, Message: "document is nil"}
	}

	wf := NewWorkflow(doc.Name)
	if doc.ID != "" {
		wf.ID = doc.ID
	}
	wf.Description = doc.Description
	if !doc.CreatedDate.IsZero() {
		wf.CreatedAt = doc.CreatedDate
	}
	if !doc.ModifiedDate.IsZero() {
		wf.ModifiedAt = doc.ModifiedDate
	}
	if doc.GlobalParameters != nil {
		wf.GlobalParameters = doc.GlobalParameters.Clone()
	}

	for i, nd := range doc.Nodes {
		if nd.ID == "" {
			return nil, &EngineError{Code: CodeInvalidDocument, Message: fmt.Sprintf("node %d has no id", i)}
		}
		if nd.NodeType == "" {
			return nil, &EngineError{Code: CodeInvalidDocument, Message: fmt.Sprintf("node %s has no nodeType", nd.ID)}
		}

		n, err := r.New(nd.NodeType)
		if errors.Is(err, ErrUnknownNodeType) {
			n = NewUnknownNode(nd.NodeType)
		} else if err != nil {
			return nil, err
		}

		b := n.base()
		b.id = nd.ID
		if nd.Title != "" {
			b.title = nd.Title
		}
		b.pos = Position{X: nd.X, Y: nd.Y}
		params := b.Params()
		for k, v := range nd.Parameters {
			params[k] = v
		}

		if err := wf.AddNode(n); err != nil {
			return nil, err
		}
	}

	for _, cd := range doc.Connections {
		wf.AddConnection(Connection{
			ID:           cd.ID,
			SourceNodeID: cd.SourceNodeID,
			TargetNodeID: cd.TargetNodeID,
			SourcePort:   cd.SourcePort,
			TargetPort:   cd.TargetPort,
			Label:        cd.Label,
		})
	}
	return wf, nil
}

// Encode serializes w. JSON output is indented.
func (w *Workflow) Encode(format Format) ([]byte, error) {
	doc := w.Document()
	switch format {
	case FormatJSON:
		return json.MarshalIndent(doc, "", "  ")
	case FormatYAML:
		return yaml.Marshal(doc)
	default:
		return nil, &EngineError{Code: CodeInvalidOption, Message: fmt.Sprintf("cannot encode workflow as %q", format)}
	}
}

// Decode parses a document and rebuilds its workflow. name is used in error
// messages and, for HCL, in diagnostics.
func (r *Registry) Decode(data []byte, format Format, name string) (*Workflow, error) {
	var (
		doc *Document
		err error
	)
	switch format {
	case FormatJSON:
		doc = &Document{}
		err = json.Unmarshal(data, doc)
	case FormatYAML:
		doc = &Document{}
		err = yaml.Unmarshal(data, doc)
	case FormatHCL:
		doc, err = decodeHCL(data, name)
	default:
		return nil, &EngineError{Code: CodeInvalidOption, Message: fmt.Sprintf("cannot decode workflow from %q", format)}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidDocument, name, err)
	}
	return r.FromDocument(doc)
}

// SaveToFile writes w to path, choosing JSON or YAML by extension, and
// refreshes ModifiedAt.
func (w *Workflow) SaveToFile(path string) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	w.Touch()
	data, err := w.Encode(format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write workflow %s: %w", path, err)
	}
	return nil
}

// LoadFromFile reads a workflow document from path, choosing the format by
// extension.
func (r *Registry) LoadFromFile(path string) (*Workflow, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow %s: %w", path, err)
	}
	return r.Decode(data, format, path)
}

// LoadFromFile reads a workflow document using DefaultRegistry.
func LoadFromFile(path string) (*Workflow, error) {
	return DefaultRegistry.LoadFromFile(path)
}
