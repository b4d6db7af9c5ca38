package model

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Node is the YAML form of a component tree. Scenario files and saved
// artifacts share it.
//
//	kind: group
//	name: module
//	topology: series
//	members:
//	  - kind: cell
//	    name: cell
//	    repeat: 60
//	    params: {IL: 7.0, I01: 1e-12, I02: 1e-8, Rshunt: 1000, Rs: 0.003, area: 166}
type Node struct {
	Kind     string      `yaml:"kind"`
	Name     string      `yaml:"name"`
	Params   *CellParams `yaml:"params,omitempty"`
	Topology string      `yaml:"topology,omitempty"`
	Members  []Node      `yaml:"members,omitempty"`
	// Repeat makes a group member stand for that many consecutive copies.
	Repeat int `yaml:"repeat,omitempty"`
}

// DefaultArea is the cell area used when params omit it.
const DefaultArea = 1.0

// Build constructs a component tree from n.
func Build(n Node, solver Solver) (Component, error) {
	if n.Repeat > 1 {
		return nil, fmt.Errorf("%s: repeat is only valid on group members", n.Name)
	}
	return build(n, solver)
}

func build(n Node, solver Solver) (Component, error) {
	if n.Name == "" {
		return nil, fmt.Errorf("%s node without a name", n.Kind)
	}

	switch n.Kind {
	case KindCell:
		if n.Params == nil {
			return nil, fmt.Errorf("cell %s: params required", n.Name)
		}
		if len(n.Members) > 0 || n.Topology != "" {
			return nil, fmt.Errorf("cell %s: cells take no topology or members", n.Name)
		}
		params := *n.Params
		if params.Area == 0 {
			params.Area = DefaultArea
		}
		return NewCell(n.Name, params, solver)

	case KindGroup:
		if n.Params != nil {
			return nil, fmt.Errorf("group %s: groups take no params", n.Name)
		}
		topology, err := ParseTopology(n.Topology)
		if err != nil {
			return nil, fmt.Errorf("group %s: %w", n.Name, err)
		}

		var members []Component
		for k, m := range n.Members {
			if m.Repeat < 0 {
				return nil, fmt.Errorf("group %s member %d: negative repeat", n.Name, k)
			}
			copies := max(m.Repeat, 1)
			for c := 0; c < copies; c++ {
				member, err := build(m, solver)
				if err != nil {
					return nil, fmt.Errorf("group %s member %d: %w", n.Name, k, err)
				}
				members = append(members, member)
			}
		}
		return NewGroup(n.Name, topology, members, solver)

	default:
		return nil, fmt.Errorf("%s: unknown kind %q (want cell or group)", n.Name, n.Kind)
	}
}

// ToNode converts a component tree to its YAML form. Runs of equal
// consecutive members collapse into one node with a repeat count.
func ToNode(c Component) Node {
	switch v := c.(type) {
	case *Cell:
		params := v.Params
		return Node{Kind: KindCell, Name: v.name, Params: &params}
	case *Group:
		n := Node{Kind: KindGroup, Name: v.name, Topology: string(v.Topology)}
		for k := 0; k < len(v.Members); {
			run := 1
			for k+run < len(v.Members) && v.Members[k].Equal(v.Members[k+run]) {
				run++
			}
			member := ToNode(v.Members[k])
			if run > 1 {
				member.Repeat = run
			}
			n.Members = append(n.Members, member)
			k += run
		}
		return n
	}
	return Node{}
}

// Artifact is the saved form of a component tree and its solver settings.
type Artifact struct {
	Solver Solver `yaml:"solver"`
	Device Node   `yaml:"device"`
}

// Marshal serializes c as a YAML artifact.
func Marshal(c Component) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(Artifact{Solver: c.Solver(), Device: ToNode(c)}); err != nil {
		return nil, fmt.Errorf("encode artifact: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode artifact: %w", err)
	}
	return buf.Bytes(), nil
}

// Unmarshal rebuilds a component tree from a YAML artifact.
func Unmarshal(data []byte) (Component, error) {
	var a Artifact
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&a); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	if err := a.Solver.Check(); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	return Build(a.Device, a.Solver)
}
