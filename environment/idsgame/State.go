package idsgame

// State is the mutable state of a single Ids-Game episode. Each
// attackable node carries an attack value and a defense value for every
// attack type, plus a detection value.
type State struct {
	attack      [][]int
	defense     [][]int
	detection   []int
	compromised []bool
	position    int
}

// newState returns the starting state of an episode. Every attackable
// node receives the initial defense and detection values, except for
// its vulnerable attack type vulnerable[i], whose defense is 0.
func newState(n *Network, attackTypes, initialDefense,
	initialDetection int, vulnerable []int) State {
	numNodes := n.NumNodes()
	s := State{
		attack:      make([][]int, numNodes),
		defense:     make([][]int, numNodes),
		detection:   make([]int, numNodes),
		compromised: make([]bool, numNodes),
		position:    n.Start(),
	}

	for node := 0; node < numNodes; node++ {
		s.attack[node] = make([]int, attackTypes)
		s.defense[node] = make([]int, attackTypes)
		if !n.Attackable(node) {
			continue
		}

		for k := range s.defense[node] {
			s.defense[node][k] = initialDefense
		}
		s.detection[node] = initialDetection
		if v := vulnerable[node-1]; v >= 0 && v < attackTypes {
			s.defense[node][v] = 0
		}
	}
	s.compromised[n.Start()] = true

	return s
}

// AttackValue returns the attack value of attack type k on node
func (s *State) AttackValue(node, k int) int {
	return s.attack[node][k]
}

// DefenseValue returns the defense value of attack type k on node
func (s *State) DefenseValue(node, k int) int {
	return s.defense[node][k]
}

// DetectionValue returns the detection value of node
func (s *State) DetectionValue(node int) int {
	return s.detection[node]
}

// Position returns the node the attacker is currently at
func (s *State) Position() int {
	return s.position
}

// Compromised returns whether the attacker has compromised node
func (s *State) Compromised(node int) bool {
	return s.compromised[node]
}
