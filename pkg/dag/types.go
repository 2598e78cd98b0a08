package dag

import (
	"cmp"
	"strings"
)

// NodeType classifies a workflow node.
type NodeType string

// Known node types. Hosts may declare other types; they order like
// [TypeProcess].
const (
	TypeStart         NodeType = "start"
	TypeEnd           NodeType = "end"
	TypeProcess       NodeType = "process"
	TypeAICall        NodeType = "ai-call"
	TypeManualCall    NodeType = "manual-call"
	TypeAudienceSplit NodeType = "audience-split"
	TypeCondition     NodeType = "condition"
	TypeDecision      NodeType = "decision"
	TypeAction        NodeType = "action"
	TypeTask          NodeType = "task"
	TypeOperation     NodeType = "operation"
	TypeTransform     NodeType = "transform"
	TypeFilter        NodeType = "filter"
)

// inferenceOrder lists the types recognized inside node ids, in match order.
// "ai-call" precedes "start" so that "ai-call-start" is an ai-call.
var inferenceOrder = []NodeType{
	TypeAICall,
	TypeManualCall,
	TypeAudienceSplit,
	TypeStart,
	TypeEnd,
	TypeCondition,
	TypeDecision,
	TypeProcess,
	TypeAction,
	TypeTask,
	TypeOperation,
	TypeTransform,
	TypeFilter,
}

// InferType derives a node type from its id by ordered substring match,
// falling back to [TypeProcess].
func InferType(id string) NodeType {
	lower := strings.ToLower(id)
	for _, t := range inferenceOrder {
		if strings.Contains(lower, string(t)) {
			return t
		}
	}
	return TypeProcess
}

// Priority orders node types within a layer: start nodes first, end nodes
// last, everything else in between.
func (t NodeType) Priority() int {
	switch t {
	case TypeStart:
		return 0
	case TypeEnd:
		return 2
	default:
		return 1
	}
}

// IsStart reports whether t is the start type.
func (t NodeType) IsStart() bool { return t == TypeStart }

// IsEnd reports whether t is the end type.
func (t NodeType) IsEnd() bool { return t == TypeEnd }

// ComparePriority orders two nodes by type priority, then by ID. It is the
// deterministic in-layer ordering used by every stage.
func ComparePriority(a, b *Node) int {
	if c := cmp.Compare(a.Priority(), b.Priority()); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}
