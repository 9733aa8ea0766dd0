package rgraph

import (
	"fmt"
	"os"
)

// writeDot dumps the compiled pass schedule as a Graphviz digraph to
// rgraph.dot in the working directory, for offline inspection of a
// frame's dependency structure. Grounded on the original's
// save_graph_to_dot: dark background, monospace rectangle nodes, one edge
// per recorded dependency.
func writeDot(components []*componentObj, order []*passObj) {
	f, err := os.Create("rgraph.dot")
	if err != nil {
		Logger.Printf("writeDot: %v", err)
		return
	}
	defer f.Close()

	fmt.Fprintln(f, "digraph rgraph {")
	fmt.Fprintln(f, `  bgcolor="#1e1e1e";`)
	fmt.Fprintln(f, `  node [fontname=Monospace shape=rectangle style=filled fillcolor="#2d2d2d" fontcolor=white color=white];`)
	fmt.Fprintln(f, `  edge [color=white fontcolor=white];`)

	index := make(map[Name]int, len(order))
	for i, p := range order {
		index[p.name] = i
		fmt.Fprintf(f, "  n%d [label=%q];\n", i, fmt.Sprintf("%s::%s", p.component.debugName, p.debugName))
	}
	for _, p := range order {
		for _, dst := range p.edges {
			if j, ok := index[dst.name]; ok {
				fmt.Fprintf(f, "  n%d -> n%d;\n", index[p.name], j)
			}
		}
	}

	fmt.Fprintln(f, "}")
}
