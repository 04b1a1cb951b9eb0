package schemas

import "encoding/json"

// Load reads schemas/<name>/v1.json and decodes it into a generic
// document. A missing file is not an error: callers treat it as "no
// published schema doc for this tool" and fall back to the registry's
// own {properties, required} view.
func Load(name string) (map[string]any, bool) {
	raw, err := FS.ReadFile(name + "/v1.json")
	if err != nil {
		return nil, false
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, false
	}
	return doc, true
}
