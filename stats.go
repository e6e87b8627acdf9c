package mtrie

import "fmt"

// Stats summarizes arena occupancy for a table instance (spec §4.5 /
// §6's print_stats), letting an operator see how close each fixed pool
// is to exhaustion without inspecting internal fields.
type Stats struct {
	SmallNodesLive, SmallNodesPeak, SmallNodesCapacity int
	LargeNodesLive, LargeNodesPeak, LargeNodesCapacity int
	Ipv6NodesLive, Ipv6NodesPeak, Ipv6NodesCapacity    int
	RulesLive, RulesCapacity                           int
}

// CollectStats gathers a snapshot across the shared arenas and shadow
// table backing a set of VRF trees.
func CollectStats[V4 comparable, V6 comparable](a4 *Arena4[V4], a6 *Arena6[V6], shadow *ShadowTable[V4]) Stats {
	var s Stats
	s.SmallNodesLive, s.SmallNodesPeak, s.SmallNodesCapacity = a4.Stats()
	s.LargeNodesLive, s.LargeNodesPeak, s.LargeNodesCapacity = a4.LargeStats()
	s.Ipv6NodesLive, s.Ipv6NodesPeak, s.Ipv6NodesCapacity = a6.Stats()
	s.RulesLive, s.RulesCapacity = shadow.RuleStats()
	return s
}

// String renders the snapshot the way the original's print_stats writes
// to its sink: one line per pool.
func (s Stats) String() string {
	return fmt.Sprintf(
		"ipv4 small nodes: %d/%d (peak %d)\n"+
			"ipv4 large nodes: %d/%d (peak %d)\n"+
			"ipv6 nodes: %d/%d (peak %d)\n"+
			"shadow rules: %d/%d\n",
		s.SmallNodesLive, s.SmallNodesCapacity, s.SmallNodesPeak,
		s.LargeNodesLive, s.LargeNodesCapacity, s.LargeNodesPeak,
		s.Ipv6NodesLive, s.Ipv6NodesCapacity, s.Ipv6NodesPeak,
		s.RulesLive, s.RulesCapacity,
	)
}
