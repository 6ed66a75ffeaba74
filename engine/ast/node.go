package ast

import "github.com/flowscript/flowscript/engine/sourcemap"

// Kind tags which NodeAST variant a Node is.
type Kind string

const (
	KindSource     Kind = "source"
	KindTransform  Kind = "transform"
	KindSink       Kind = "sink"
	KindBranch     Kind = "branch"
	KindIf         Kind = "if"
	KindLoop       Kind = "loop"
	KindWhile      Kind = "while"
	KindForeach    Kind = "foreach"
	KindParallel   Kind = "parallel"
	KindCheckpoint Kind = "checkpoint"
	KindInclude    Kind = "include"
	KindCall       Kind = "call"
	KindPhase      Kind = "phase"
	KindContext    Kind = "context"
	KindSet        Kind = "set"
	KindDelay      Kind = "delay"
	KindTimeout    Kind = "timeout"
)

// BackoffStrategy enumerates the shapes of retry backoff a node can declare.
type BackoffStrategy string

const (
	BackoffFixed       BackoffStrategy = "fixed"
	BackoffLinear      BackoffStrategy = "linear"
	BackoffExponential BackoffStrategy = "exponential"
)

// RetryConfig is the <retry> child of <on-error>.
type RetryConfig struct {
	When    string // expression; empty means "always retryable per classification"
	Max     int
	Backoff BackoffStrategy
}

// ErrorConfig is the <on-error> child of a node.
type ErrorConfig struct {
	Retry    *RetryConfig
	Fallback string // node id, empty if unset
}

// Base holds the fields every node carries regardless of kind.
type Base struct {
	ID          string
	Loc         sourcemap.Location
	Input       string // referenced node id, empty if unset
	ErrorConfig *ErrorConfig
}

// Node is implemented by every NodeAST variant.
type Node interface {
	Kind() Kind
	Base() *Base
}

// --- data flow --------------------------------------------------------

// SourceNode pulls data into the graph (http, file, ...).
type SourceNode struct {
	Base
	SourceType string
	Config     map[string]any
}

func (n *SourceNode) Kind() Kind  { return KindSource }
func (n *SourceNode) Base() *Base { return &n.Base }

// TransformNode maps/filters/transforms data (ai, template, map, filter).
type TransformNode struct {
	Base
	TransformType string
	Config        map[string]any
}

func (n *TransformNode) Kind() Kind { return KindTransform }
func (n *TransformNode) Base() *Base { return &n.Base }

// SinkNode writes data out of the graph (http, file, email, database, ...).
type SinkNode struct {
	Base
	SinkType string
	Config   map[string]any
}

func (n *SinkNode) Kind() Kind { return KindSink }
func (n *SinkNode) Base() *Base { return &n.Base }

// --- control flow -------------------------------------------------------

// BranchCase is one <case> of a <branch>.
type BranchCase struct {
	When  string
	Nodes []Node
}

// BranchNode dispatches to the first case whose condition is truthy.
type BranchNode struct {
	Base
	Cases   []BranchCase
	Default []Node
}

func (n *BranchNode) Kind() Kind { return KindBranch }
func (n *BranchNode) Base() *Base { return &n.Base }

// IfNode is a single condition/then/else.
type IfNode struct {
	Base
	Condition string
	Then      []Node
	Else      []Node
}

func (n *IfNode) Kind() Kind { return KindIf }
func (n *IfNode) Base() *Base { return &n.Base }

// LoopNode iterates its body up to MaxIterations, evaluating
// BreakCondition (if set) between iterations.
type LoopNode struct {
	Base
	MaxIterations   int // 0 means unset
	BreakCondition  string
	Body            []Node
}

func (n *LoopNode) Kind() Kind { return KindLoop }
func (n *LoopNode) Base() *Base { return &n.Base }

// WhileNode evaluates Condition before each iteration.
type WhileNode struct {
	Base
	Condition string
	Body      []Node
}

func (n *WhileNode) Kind() Kind { return KindWhile }
func (n *WhileNode) Base() *Base { return &n.Base }

// ForeachNode iterates Collection, binding ItemVar (and $item/$index/...).
type ForeachNode struct {
	Base
	Collection      string
	ItemVar         string
	MaxConcurrency  int // 0 means unset -> defaults to 1 at execution time
	Body            []Node
}

func (n *ForeachNode) Kind() Kind { return KindForeach }
func (n *ForeachNode) Base() *Base { return &n.Base }

// ParallelNode runs each branch concurrently and joins on all completion.
type ParallelNode struct {
	Base
	Branches [][]Node
}

func (n *ParallelNode) Kind() Kind { return KindParallel }
func (n *ParallelNode) Base() *Base { return &n.Base }

// CheckpointDefaultAction enumerates the non-interactive fallback action.
type CheckpointDefaultAction string

const (
	CheckpointApprove CheckpointDefaultAction = "approve"
	CheckpointReject  CheckpointDefaultAction = "reject"
)

// CheckpointNode suspends for external approval or a timeout.
type CheckpointNode struct {
	Base
	Prompt        string
	Timeout       string // duration literal, empty if unset
	DefaultAction CheckpointDefaultAction
}

func (n *CheckpointNode) Kind() Kind { return KindCheckpoint }
func (n *CheckpointNode) Base() *Base { return &n.Base }

// --- composition / extension ---------------------------------------------

// Binding is a single key/value pair passed into an included workflow.
type Binding struct {
	Key   string
	Value string
}

// IncludeNode loads and executes another workflow file inline, inheriting
// the parent's config/secrets and merging Bindings into global context.
type IncludeNode struct {
	Base
	Workflow string
	Bindings []Binding
}

func (n *IncludeNode) Kind() Kind { return KindInclude }
func (n *IncludeNode) Base() *Base { return &n.Base }

// CallNode loads and executes another workflow file with a fully isolated
// state initialized only from Args.
type CallNode struct {
	Base
	Workflow string
	Args     map[string]any
}

func (n *CallNode) Kind() Kind { return KindCall }
func (n *CallNode) Base() *Base { return &n.Base }

// PhaseNode groups children under a named phase, adjusting phaseContext.
type PhaseNode struct {
	Base
	Name     string
	Children []Node
}

func (n *PhaseNode) Kind() Kind { return KindPhase }
func (n *PhaseNode) Base() *Base { return &n.Base }

// ContextEntry is a single key/value pair set by a <context> node.
type ContextEntry struct {
	Key   string
	Value string
}

// ContextNode merges Entries into the node context layer; an entry
// overwrites an existing key of the same name.
type ContextNode struct {
	Base
	Entries []ContextEntry
}

func (n *ContextNode) Kind() Kind { return KindContext }
func (n *ContextNode) Base() *Base { return &n.Base }

// SetNode assigns Value (an expression) to Var in the node context layer.
type SetNode struct {
	Base
	Var   string
	Value string
}

func (n *SetNode) Kind() Kind { return KindSet }
func (n *SetNode) Base() *Base { return &n.Base }

// DelayNode sleeps for Duration, passing its input through unchanged.
type DelayNode struct {
	Base
	Duration string
}

func (n *DelayNode) Kind() Kind { return KindDelay }
func (n *DelayNode) Base() *Base { return &n.Base }

// TimeoutNode wraps Children's execution in an abort signal of Duration,
// routing to OnTimeout (a node id) if the deadline is exceeded.
type TimeoutNode struct {
	Base
	Duration  string
	OnTimeout string
	Children  []Node
}

func (n *TimeoutNode) Kind() Kind { return KindTimeout }
func (n *TimeoutNode) Base() *Base { return &n.Base }

// Children returns the directly nested child node lists of a control-flow
// container, or nil for leaf (data-flow) nodes. Used by id-collection and
// validation passes that must recurse into the global id namespace.
func Children(n Node) [][]Node {
	switch v := n.(type) {
	case *BranchNode:
		out := make([][]Node, 0, len(v.Cases)+1)
		for _, c := range v.Cases {
			out = append(out, c.Nodes)
		}
		if v.Default != nil {
			out = append(out, v.Default)
		}
		return out
	case *IfNode:
		out := [][]Node{v.Then}
		if v.Else != nil {
			out = append(out, v.Else)
		}
		return out
	case *LoopNode:
		return [][]Node{v.Body}
	case *WhileNode:
		return [][]Node{v.Body}
	case *ForeachNode:
		return [][]Node{v.Body}
	case *ParallelNode:
		return v.Branches
	case *PhaseNode:
		return [][]Node{v.Children}
	case *TimeoutNode:
		return [][]Node{v.Children}
	default:
		return nil
	}
}
