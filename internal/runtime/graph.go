package runtime

import "github.com/Lifelong-Learning-Assisttant/agent-service/pkg/domain"

// NodeID names a node of the orchestration graph.
type NodeID string

const (
	NodePlanner      NodeID = "planner"
	NodeRetrieve     NodeID = "retrieve"
	NodeDirectAnswer NodeID = "direct_answer"
	NodeRAGAnswer    NodeID = "rag_answer"
	NodeCreateQuiz   NodeID = "create_quiz"
	NodeEvaluateQuiz NodeID = "evaluate_quiz"

	// NodeEnd marks the end of an execution.
	NodeEnd NodeID = ""
)

// EntryNode is where every execution starts.
const EntryNode = NodePlanner

// RouteFromPlanner selects the node following planner.
func RouteFromPlanner(intent domain.Intent) NodeID {
	switch intent {
	case domain.IntentEvaluateQuiz:
		return NodeEvaluateQuiz
	case domain.IntentRAGAnswer, domain.IntentGenerateQuiz:
		return NodeRetrieve
	default:
		return NodeDirectAnswer
	}
}

// RouteFromRetrieve selects the node following retrieve.
func RouteFromRetrieve(intent domain.Intent) NodeID {
	if intent == domain.IntentGenerateQuiz {
		return NodeCreateQuiz
	}
	return NodeRAGAnswer
}

// Path lists the nodes an execution visits for intent, in order.
func Path(intent domain.Intent) []NodeID {
	path := []NodeID{NodePlanner}
	next := RouteFromPlanner(intent)
	path = append(path, next)
	if next == NodeRetrieve {
		path = append(path, RouteFromRetrieve(intent))
	}
	return path
}

// Nodes lists every node of the graph, entry first.
func Nodes() []NodeID {
	return []NodeID{NodePlanner, NodeRetrieve, NodeDirectAnswer, NodeRAGAnswer, NodeCreateQuiz, NodeEvaluateQuiz}
}

// Edge is a transition of the graph and the intents that take it.
type Edge struct {
	From    NodeID
	To      NodeID
	Intents []domain.Intent
}

// Edges derives every transition from the routers, in routing order.
func Edges() []Edge {
	var edges []Edge
	add := func(from, to NodeID, intent domain.Intent) {
		for i := range edges {
			if edges[i].From == from && edges[i].To == to {
				edges[i].Intents = append(edges[i].Intents, intent)
				return
			}
		}
		edges = append(edges, Edge{From: from, To: to, Intents: []domain.Intent{intent}})
	}

	for _, intent := range domain.Intents {
		next := RouteFromPlanner(intent)
		add(NodePlanner, next, intent)
		if next == NodeRetrieve {
			add(NodeRetrieve, RouteFromRetrieve(intent), intent)
		}
	}
	return edges
}
