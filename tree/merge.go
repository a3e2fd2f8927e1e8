package tree

// Merge deep-merges patch into base. Branches present in both as maps are
// merged recursively; any other patch value replaces the base value. Subtrees
// the patch does not touch are shared with base, and base is returned as-is
// with changed == false when the patch is a no-op.
func Merge(base, patch map[string]any) (map[string]any, bool) {
	if len(patch) == 0 {
		return base, false
	}

	out := base
	changed := false
	for key, value := range patch {
		current, exists := base[key]
		next := value
		currentMap, currentIsMap := current.(map[string]any)
		patchMap, patchIsMap := value.(map[string]any)
		if currentIsMap && patchIsMap {
			merged, mergedChanged := Merge(currentMap, patchMap)
			if !mergedChanged {
				continue
			}
			next = merged
		} else if exists && Same(current, value) {
			continue
		}

		if !changed {
			out = make(map[string]any, len(base)+len(patch))
			for k, v := range base {
				out[k] = v
			}
			changed = true
		}
		out[key] = next
	}
	return out, changed
}

// MergeLayers composes maps ordered from strongest to weakest, returning a
// tree that keeps explicit values from stronger layers while filling missing
// data from weaker ones. Nil layers are skipped.
func MergeLayers(layers ...map[string]any) map[string]any {
	var merged map[string]any
	for i := len(layers) - 1; i >= 0; i-- {
		layer := layers[i]
		if layer == nil {
			continue
		}
		if merged == nil {
			merged = layer
			continue
		}
		merged, _ = Merge(merged, layer)
	}
	return merged
}
