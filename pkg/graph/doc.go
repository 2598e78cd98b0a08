// Package graph defines the adapter contract between the layout engine and
// a diagramming host, plus the JSON interchange formats built on it.
//
// # Architecture
//
// The engine never owns nodes or edges. It reads structure through the
// [Graph], [Node] and [Edge] interfaces and writes back coordinates with
// [Node.SetPosition]. Hosts implement the interfaces over their own objects;
// [Memory] is a ready-made implementation used by the CLI, the HTTP service
// and tests.
//
// # Core Types
//
//   - [Graph], [Node], [Edge]: the adapter contract
//   - [Memory]: concurrency-safe in-memory adapter
//   - [Document]: JSON interchange format for input graphs
//   - [Layout]: JSON format for computed layouts
//
// # Document Serialization
//
// Documents are validated against an embedded JSON Schema before decoding:
//
//	{
//	  "nodes": [{"id": "start", "type": "start"}, {"id": "task-1"}],
//	  "edges": [{"id": "e1", "source": "start", "target": "task-1"}]
//	}
//
// Common operations:
//
//	doc, err := graph.ReadDocumentFile("flow.json") // File → Document
//	g, err := doc.ToMemory()                        // Document → *Memory
//	out := graph.FromGraph(g)                       // Graph → Document
//	graph.WriteDocumentFile(out, "flow.out.json")   // Document → File
//
// # Node Data
//
// The data map is free-form. Keys the engine reads:
//
//	type         declared node type (start, end, process, ...)
//	nodeType     fallback for type
//	isPreview    preview-line artifact, excluded from layout
//	isVirtual    virtual helper node, excluded from layout
//	isTemporary  temporary edge, excluded from layout
//	isHint       hint node, never written back
//
// # Concurrency
//
// [Memory] and its nodes are safe for concurrent use. The serialization
// functions are stateless.
package graph
