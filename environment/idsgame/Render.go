package idsgame

import (
	"fmt"
	"io"
	"strings"
)

// Render writes a text frame of the game to w. Each node is drawn on its
// own line, grouped by layer from the data node down to the start node,
// as
//
//	[A] node 3  a:0 0 1 ... d:2 2 0 ... det:2
//
// where [A] marks the attacker's position and [x] a compromised node.
func (g *IdsGame) Render(w io.Writer) error {
	var b strings.Builder

	fmt.Fprintf(&b, "--- step %d | %v ---\n", g.currentStep.Number(),
		g.outcome)

	layers, _ := g.network.Dims()
	for row := 0; row <= layers+1; row++ {
		for node := 0; node < g.network.NumNodes(); node++ {
			if g.network.Layer(node) != row {
				continue
			}
			g.renderNode(&b, node)
		}
	}

	_, err := io.WriteString(w, b.String())
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	return nil
}

func (g *IdsGame) renderNode(b *strings.Builder, node int) {
	marker := "[ ]"
	switch {
	case node == g.state.position:
		marker = "[A]"
	case g.state.compromised[node]:
		marker = "[x]"
	}

	name := fmt.Sprintf("node %d", node)
	switch node {
	case g.network.Start():
		name = "start"
	case g.network.Data():
		name = "data"
	}

	fmt.Fprintf(b, "%v %-7v a:%v", marker, name,
		joinInts(g.state.attack[node]))
	if g.network.Attackable(node) {
		fmt.Fprintf(b, "  d:%v  det:%d", joinInts(g.state.defense[node]),
			g.state.detection[node])
	}
	b.WriteString("\n")
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, " ")
}
