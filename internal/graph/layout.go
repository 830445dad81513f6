package graph

// layout assigns ranks by longest path over resolved edges and places each
// rank on its own row, centered on the widest row. Ranks are capped at the
// node count so cycles terminate.
func layout(g *Graph, opts Options) {
	if len(g.Nodes) == 0 {
		return
	}
	at := make(map[string]int, len(g.Nodes))
	for i, n := range g.Nodes {
		at[n.ID] = i
	}
	type link struct{ from, to int }
	var links []link
	for _, e := range g.Edges {
		from, okFrom := at[e.Source]
		to, okTo := at[e.Target]
		if okFrom && okTo && from != to {
			links = append(links, link{from, to})
		}
	}

	rank := make([]int, len(g.Nodes))
	limit := len(g.Nodes) - 1
	for pass := 0; pass < len(g.Nodes); pass++ {
		changed := false
		for _, l := range links {
			if next := rank[l.from] + 1; next > rank[l.to] && next <= limit {
				rank[l.to] = next
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	rows := map[int][]int{}
	depth, widest := 0, 0
	for i, r := range rank {
		rows[r] = append(rows[r], i)
		depth = max(depth, r+1)
		widest = max(widest, len(rows[r]))
	}

	stepX := opts.NodeWidth + opts.NodeSep
	stepY := opts.NodeHeight + opts.RankSep
	for r, members := range rows {
		offset := float64(widest-len(members)) * stepX / 2
		for col, i := range members {
			g.Nodes[i].Rank = r
			g.Nodes[i].Position = Position{
				X: opts.Margin + offset + float64(col)*stepX,
				Y: opts.Margin + float64(r)*stepY,
			}
		}
	}
	g.Width = 2*opts.Margin + float64(widest)*stepX - opts.NodeSep
	g.Height = 2*opts.Margin + float64(depth)*stepY - opts.RankSep
}
