package models

// DetectedTechnology is a single technology identified on the target site
// by the technology-detection collaborator. Records are produced once per
// analysis and read-only afterward.
type DetectedTechnology struct {
	Name       string   `json:"name"`
	Categories []string `json:"categories,omitempty"`
	Confidence int      `json:"confidence"` // 0-100
	Version    string   `json:"version,omitempty"`
	Vendor     string   `json:"vendor,omitempty"`
}

// TechnologyNames extracts the name list from a detection result.
func TechnologyNames(techs []DetectedTechnology) []string {
	names := make([]string, 0, len(techs))
	for _, t := range techs {
		names = append(names, t.Name)
	}
	return names
}
