package idsgame

import "fmt"

// Network is the topology of an Ids-Game network. Nodes are enumerated
// as follows: node 0 is the attacker's start node, nodes 1 to
// layers*width are the servers, enumerated layer by layer, and the last
// node is the data node.
//
// The start node is connected to every server in the first layer, each
// server is connected to the server in the same column of the next
// layer, and every server in the last layer is connected to the data
// node. Edges are directed from the start node towards the data node.
type Network struct {
	layers int
	width  int
	adj    [][]bool
}

// NewNetwork returns a new Network with the given number of server
// layers, each containing width servers
func NewNetwork(layers, width int) (*Network, error) {
	if layers < 1 {
		return nil, fmt.Errorf("newNetwork: need at least 1 layer, got %d",
			layers)
	}
	if width < 1 {
		return nil, fmt.Errorf("newNetwork: need at least 1 server per "+
			"layer, got %d", width)
	}

	n := &Network{layers: layers, width: width}
	numNodes := n.NumNodes()
	n.adj = make([][]bool, numNodes)
	for i := range n.adj {
		n.adj[i] = make([]bool, numNodes)
	}

	for c := 0; c < width; c++ {
		n.adj[n.Start()][n.Server(0, c)] = true
		for l := 0; l < layers-1; l++ {
			n.adj[n.Server(l, c)][n.Server(l+1, c)] = true
		}
		n.adj[n.Server(layers-1, c)][n.Data()] = true
	}

	return n, nil
}

// NumNodes returns the total number of nodes, including the start and
// data nodes
func (n *Network) NumNodes() int {
	return n.layers*n.width + 2
}

// Dims returns the number of server layers and servers per layer
func (n *Network) Dims() (layers, width int) {
	return n.layers, n.width
}

// Start returns the id of the start node
func (n *Network) Start() int {
	return 0
}

// Data returns the id of the data node
func (n *Network) Data() int {
	return n.NumNodes() - 1
}

// Server returns the id of the server in column col of layer layer
func (n *Network) Server(layer, col int) int {
	return 1 + layer*n.width + col
}

// Attackable returns whether a node can be attacked. Every node except
// the start node can be attacked.
func (n *Network) Attackable(node int) bool {
	return node > n.Start() && node < n.NumNodes()
}

// Adjacent returns whether there is an edge from node a to node b
func (n *Network) Adjacent(a, b int) bool {
	if a < 0 || b < 0 || a >= n.NumNodes() || b >= n.NumNodes() {
		return false
	}
	return n.adj[a][b]
}

// Neighbours returns the nodes reachable from node in a single hop
func (n *Network) Neighbours(node int) []int {
	var neighbours []int
	for j := 0; j < n.NumNodes(); j++ {
		if n.Adjacent(node, j) {
			neighbours = append(neighbours, j)
		}
	}
	return neighbours
}

// Layer returns the row of a node when the network is drawn with the
// data node on top (row 0) and the start node at the bottom
func (n *Network) Layer(node int) int {
	switch {
	case node == n.Data():
		return 0
	case node == n.Start():
		return n.layers + 1
	default:
		return (node-1)/n.width + 1
	}
}
