package workflow

// Default port names used when a connection does not name its ports.
const (
	DefaultSourcePort = "Output"
	DefaultTargetPort = "Input"
)

// Connection is a directed dependency edge between two nodes.
//
// Edges point from prerequisite to dependent: the node named by SourceNodeID
// always executes before the node named by TargetNodeID.
//
// Both endpoints are expected to reference nodes of the same Workflow. The
// engine does not enforce this: a connection with an unknown endpoint is left
// out of the dependency graph entirely. Workflow.Validate reports such
// connections as warnings.
//
// Ports are labels reserved for multi-output nodes; the engine treats every
// node as having a single port and does not read them.
type Connection struct {
	// ID is the connection's unique identifier.
	ID string

	// SourceNodeID is the prerequisite node.
	SourceNodeID string

	// TargetNodeID is the dependent node.
	TargetNodeID string

	// SourcePort is the output port on the source node.
	SourcePort string

	// TargetPort is the input port on the target node.
	TargetPort string

	// Label is an optional caption displayed on the edge.
	Label string
}
