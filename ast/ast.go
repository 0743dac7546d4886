// Package ast turns a flat opcode.Program into a tree the JIT code
// generator walks, and applies peephole optimisations that the flat
// opcode stream cannot express (zeroing idioms folded into "Set" nodes,
// copy loops folded into single "AddTo" nodes).
package ast

import (
	"fmt"
	"strings"

	"github.com/csork/brainfuck/codegen"
	"github.com/csork/brainfuck/opcode"
)

// Kind identifies an AST node. Loop is the only kind with children;
// Set and AddTo are the only kinds optimize ever introduces.
type Kind int

const (
	IncDataPtr Kind = iota
	DecDataPtr
	IncValue
	DecValue
	Input
	Output
	Loop
	Set
	AddTo
)

// Node is a single tree element. Which of N/Offset/Children is
// meaningful depends on Kind:
//   - IncDataPtr/DecDataPtr/IncValue/DecValue: N is the fold count.
//   - Set: N is the byte value to store (always 0 in current patterns).
//   - AddTo: Offset is the cell offset relative to the current data
//     pointer that receives the current cell's value; N is unused.
//   - Loop: Children is the loop body.
type Node struct {
	Kind     Kind
	N        int
	Offset   int
	Children []*Node
}

// New converts program into an unoptimised tree, then applies peephole
// rewrites until none apply.
func New(program *opcode.Program) []*Node {
	nodes, _ := convert(program.Code, 0)
	return optimize(nodes)
}

// convert walks code starting at index, stopping at a LoopEnd or the end
// of the slice, and returns the nodes produced plus the index just past
// what was consumed.
func convert(code []opcode.OpCode, index int) ([]*Node, int) {
	var nodes []*Node
	for index < len(code) {
		op := code[index]
		switch op.Kind {
		case opcode.IncDataPtr:
			nodes = append(nodes, &Node{Kind: IncDataPtr, N: op.N})
		case opcode.DecDataPtr:
			nodes = append(nodes, &Node{Kind: DecDataPtr, N: op.N})
		case opcode.IncValue:
			nodes = append(nodes, &Node{Kind: IncValue, N: op.N})
		case opcode.DecValue:
			nodes = append(nodes, &Node{Kind: DecValue, N: op.N})
		case opcode.Input:
			nodes = append(nodes, &Node{Kind: Input})
		case opcode.Output:
			nodes = append(nodes, &Node{Kind: Output})
		case opcode.LoopStart:
			body, next := convert(code, index+1)
			nodes = append(nodes, &Node{Kind: Loop, Children: body})
			index = next
			continue
		case opcode.LoopEnd:
			return nodes, index + 1
		}
		index++
	}
	return nodes, index
}

// optimize recognises two peephole idioms, bottom-up, recursing into
// loop bodies first:
//
//   - `[-]` or `[+]`: a loop body that is exactly one IncValue/DecValue
//     node, regardless of its fold count, zeroes the current cell.
//     Rewritten to Set{N: 0}.
//   - `[->+<]`-shaped copy loops: a body of DecValue(1) plus IncValue(1)
//     between a pointer move of k and the opposite move of k, in one of
//     the four orders asAddToLoop accepts, so it nets zero pointer
//     movement and decrements the origin cell by exactly one, adding its
//     value to one other cell. Rewritten to AddTo{Offset: k} when the
//     first move goes right and AddTo{Offset: -k} when it goes left.
func optimize(nodes []*Node) []*Node {
	out := make([]*Node, 0, len(nodes))
	for _, n := range nodes {
		if n.Kind == Loop {
			n.Children = optimize(n.Children)
			if zeroing := asZeroingLoop(n.Children); zeroing != nil {
				out = append(out, zeroing)
				continue
			}
			if addTo := asAddToLoop(n.Children); addTo != nil {
				out = append(out, addTo)
				continue
			}
		}
		out = append(out, n)
	}
	return out
}

func asZeroingLoop(body []*Node) *Node {
	if len(body) != 1 {
		return nil
	}
	switch body[0].Kind {
	case IncValue, DecValue:
		return &Node{Kind: Set, N: 0}
	}
	return nil
}

// asAddToLoop recognises the four rotations of the "copy current cell
// into another cell" idiom: a DecValue(1) and a matched pair of opposite
// pointer moves of equal magnitude around a single IncValue(1), in any
// of the four orders a loop unroller might produce.
func asAddToLoop(body []*Node) *Node {
	if len(body) != 4 {
		return nil
	}
	a, b, c, d := body[0], body[1], body[2], body[3]

	isDec1 := func(n *Node) bool { return n.Kind == DecValue && n.N == 1 }
	isInc1 := func(n *Node) bool { return n.Kind == IncValue && n.N == 1 }
	matchedMoves := func(first, second *Node) (offset int, ok bool) {
		switch {
		case first.Kind == IncDataPtr && second.Kind == DecDataPtr && first.N == second.N:
			return first.N, true
		case first.Kind == DecDataPtr && second.Kind == IncDataPtr && first.N == second.N:
			return -first.N, true
		}
		return 0, false
	}

	// DecValue(1), move, IncValue(1), move-back
	if isDec1(a) && isInc1(c) {
		if offset, ok := matchedMoves(b, d); ok {
			return &Node{Kind: AddTo, Offset: offset}
		}
	}
	// move, IncValue(1), move-back, DecValue(1)
	if isInc1(b) && isDec1(d) {
		if offset, ok := matchedMoves(a, c); ok {
			return &Node{Kind: AddTo, Offset: offset}
		}
	}
	return nil
}

// PrettyPrint renders the tree one node per line, indenting loop bodies.
func PrettyPrint(nodes []*Node) string {
	var sb strings.Builder
	prettyPrint(&sb, nodes, 0)
	return sb.String()
}

func prettyPrint(sb *strings.Builder, nodes []*Node, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, n := range nodes {
		switch n.Kind {
		case IncDataPtr:
			fmt.Fprintf(sb, "%sIncDataPtr(%d)\n", indent, n.N)
		case DecDataPtr:
			fmt.Fprintf(sb, "%sDecDataPtr(%d)\n", indent, n.N)
		case IncValue:
			fmt.Fprintf(sb, "%sIncValue(%d)\n", indent, n.N)
		case DecValue:
			fmt.Fprintf(sb, "%sDecValue(%d)\n", indent, n.N)
		case Input:
			fmt.Fprintf(sb, "%sInput\n", indent)
		case Output:
			fmt.Fprintf(sb, "%sOutput\n", indent)
		case Set:
			fmt.Fprintf(sb, "%sSet(%d)\n", indent, n.N)
		case AddTo:
			fmt.Fprintf(sb, "%sAddTo(%d)\n", indent, n.Offset)
		case Loop:
			fmt.Fprintf(sb, "%sLoop {\n", indent)
			prettyPrint(sb, n.Children, depth+1)
			fmt.Fprintf(sb, "%s}\n", indent)
		}
	}
}

// Generate walks nodes and emits code through gen, wiring loop labels
// through gen's LoopStart/LoopEnd pair.
func Generate(gen codegen.CodeGenerator, nodes []*Node) error {
	for _, n := range nodes {
		if err := generateNode(gen, n); err != nil {
			return err
		}
	}
	return nil
}

func generateNode(gen codegen.CodeGenerator, n *Node) error {
	switch n.Kind {
	case IncDataPtr:
		return gen.UpdateMemoryPtr(n.N)
	case DecDataPtr:
		return gen.UpdateMemoryPtr(-n.N)
	case IncValue:
		return gen.UpdateValue(n.N)
	case DecValue:
		return gen.UpdateValue(-n.N)
	case Input:
		return gen.Input()
	case Output:
		return gen.Output()
	case Set:
		return gen.Set(byte(n.N))
	case AddTo:
		return gen.AddTo(n.Offset)
	case Loop:
		label, err := gen.LoopStart()
		if err != nil {
			return err
		}
		for _, child := range n.Children {
			if err := generateNode(gen, child); err != nil {
				return err
			}
		}
		return gen.LoopEnd(label)
	}
	return fmt.Errorf("ast: unhandled node kind %d", n.Kind)
}
