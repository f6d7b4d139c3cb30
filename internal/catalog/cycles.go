package catalog

// FindCycle returns a component path starting and ending at the first product
// found on a cycle reachable from id, or nil when the BOM below id is acyclic.
// Unknown IDs are treated as leaves.
func (c *Catalog) FindCycle(id string) []string {
	const (
		white = iota
		gray
		black
	)

	color := make(map[string]int)
	var stack []string
	var found []string

	var dfs func(node string) bool
	dfs = func(node string) bool {
		color[node] = gray
		stack = append(stack, node)
		for _, comp := range c.components(node) {
			if _, ok := c.products[comp.ProductID]; !ok {
				continue
			}
			switch color[comp.ProductID] {
			case white:
				if dfs(comp.ProductID) {
					return true
				}
			case gray:
				for i, s := range stack {
					if s == comp.ProductID {
						found = append(append([]string(nil), stack[i:]...), comp.ProductID)
						return true
					}
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[node] = black
		return false
	}

	if c == nil {
		return nil
	}
	if _, ok := c.products[id]; !ok {
		return nil
	}
	dfs(id)
	return found
}

// Cycles returns, for every product whose BOM reaches a cycle, the cycle path
// found from it. Products are visited in ID order.
func (c *Catalog) Cycles() map[string][]string {
	out := make(map[string][]string)
	for _, id := range c.IDs() {
		if path := c.FindCycle(id); path != nil {
			out[id] = path
		}
	}
	return out
}

// WouldCycle reports whether giving parent the components in comps would make
// parent reachable from itself.
func (c *Catalog) WouldCycle(parent string, comps []Component) bool {
	if c == nil {
		return false
	}
	for _, comp := range comps {
		if comp.ProductID == parent || c.reaches(comp.ProductID, parent) {
			return true
		}
	}
	return false
}

func (c *Catalog) reaches(from, target string) bool {
	seen := make(map[string]bool)
	stack := []string{from}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == target {
			return true
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		for _, comp := range c.components(id) {
			stack = append(stack, comp.ProductID)
		}
	}
	return false
}
