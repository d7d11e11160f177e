package names

// maxAliasHops bounds alias-chain resolution. Alias data is operator-edited
// and has contained cycles before; twelve hops is far deeper than any
// legitimate chain.
const maxAliasHops = 12

// AliasMap maps a normalized raw name to the name it should resolve to.
// Edges are recorded whenever an operator merges two identities or renames
// one, so chains (A→B, B→C) occur naturally over time.
type AliasMap map[string]string

// Resolve follows alias edges from raw until no further edge applies.
// It terminates on an empty target, a self-referencing edge, a revisited
// key, or after maxAliasHops, and returns the last good name.
func (m AliasMap) Resolve(raw string) string {
	if len(m) == 0 {
		return raw
	}

	current := raw
	visited := make(map[string]bool, 4)

	for hop := 0; hop < maxAliasHops; hop++ {
		key := Normalize(current)
		if key == "" || visited[key] {
			break
		}
		visited[key] = true

		target, ok := m[key]
		if !ok || target == "" || Normalize(target) == key {
			break
		}
		current = target
	}

	return current
}
