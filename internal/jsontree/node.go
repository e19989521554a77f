// Package jsontree holds an order-preserving, untyped JSON tree used by the
// category extractor. Objects keep their members in document order because
// the extraction policy walks properties in the order the upstream sent them.
package jsontree

import (
	"encoding/json"
)

type Kind int

const (
	Null Kind = iota
	Bool
	Number
	String
	Array
	Object
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return "unknown"
	}
}

// Member is a single key/value pair of an object node.
type Member struct {
	Key   string
	Value *Node
}

// Node is one value of a parsed JSON document. A nil *Node behaves like JSON null.
type Node struct {
	kind    Kind
	text    string // string value or number literal
	boolean bool
	items   []*Node
	members []Member
}

func NewNull() *Node { return &Node{kind: Null} }

func NewBool(v bool) *Node { return &Node{kind: Bool, boolean: v} }

func NewNumber(n json.Number) *Node { return &Node{kind: Number, text: n.String()} }

func NewString(s string) *Node { return &Node{kind: String, text: s} }

func NewArray(items ...*Node) *Node { return &Node{kind: Array, items: items} }

func NewObject(members ...Member) *Node { return &Node{kind: Object, members: members} }

func (n *Node) Kind() Kind {
	if n == nil {
		return Null
	}
	return n.kind
}

func (n *Node) IsObject() bool { return n.Kind() == Object }

func (n *Node) IsArray() bool { return n.Kind() == Array }

// Str returns the value of a string node.
func (n *Node) Str() (string, bool) {
	if n.Kind() != String {
		return "", false
	}
	return n.text, true
}

// Num returns the literal of a number node exactly as it appeared in the document.
func (n *Node) Num() (json.Number, bool) {
	if n.Kind() != Number {
		return "", false
	}
	return json.Number(n.text), true
}

func (n *Node) BoolValue() (bool, bool) {
	if n.Kind() != Bool {
		return false, false
	}
	return n.boolean, true
}

// Items returns the elements of an array node, nil for any other kind.
func (n *Node) Items() []*Node {
	if n.Kind() != Array {
		return nil
	}
	return n.items
}

// Members returns the members of an object node in document order.
func (n *Node) Members() []Member {
	if n.Kind() != Object {
		return nil
	}
	return n.members
}

// Get looks up a member of an object node. With duplicated keys the last
// occurrence wins.
func (n *Node) Get(key string) (*Node, bool) {
	members := n.Members()
	for i := len(members) - 1; i >= 0; i-- {
		if members[i].Key == key {
			return members[i].Value, true
		}
	}
	return nil, false
}

// Len is the number of items or members of a container node.
func (n *Node) Len() int {
	switch n.Kind() {
	case Array:
		return len(n.items)
	case Object:
		return len(n.members)
	default:
		return 0
	}
}
