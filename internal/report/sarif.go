package report

import (
	"encoding/json"
	"path/filepath"
	"sort"
	"strings"

	"starlint/internal/analysis"
	"starlint/internal/version"
)

// SARIF v2.1.0 schema – see https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json

const (
	sarifSchema  = "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json"
	sarifVersion = "2.1.0"

	ruleIDImportNaming = "SLNT001"
	ruleIDImportExists = "SLNT002"
	ruleIDCalls        = "SLNT003"
	ruleIDVisibility   = "SLNT004"
	ruleIDInternal     = "SLNT005"
)

type sarifReport struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Rules   []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string                 `json:"id"`
	Name             string                 `json:"name"`
	ShortDescription sarifMessage           `json:"shortDescription"`
	DefaultConfig    sarifRuleDefaultConfig `json:"defaultConfiguration"`
}

type sarifRuleDefaultConfig struct {
	Level string `json:"level"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           *sarifRegion          `json:"region,omitempty"`
}

type sarifArtifactLocation struct {
	URI       string `json:"uri"`
	URIBaseID string `json:"uriBaseId"`
}

type sarifRegion struct {
	StartLine int `json:"startLine,omitempty"`
}

type ruleMeta struct {
	id    string
	name  string
	desc  string
	level string
}

var rulesByCheck = map[string]ruleMeta{
	analysis.CheckImportNaming: {ruleIDImportNaming, "ImportNaming", "A variable holding an import_module result must be private.", "warning"},
	analysis.CheckImportExists: {ruleIDImportExists, "UnresolvedImport", "An imported module does not exist at its resolved path.", "error"},
	analysis.CheckCalls:        {ruleIDCalls, "CallCompatibility", "A call's argument list is incompatible with the callee's signature or its target cannot be resolved.", "error"},
	analysis.CheckVisibility:   {ruleIDVisibility, "FunctionVisibility", "A public function must be documented or made private.", "warning"},
	analysis.CheckInternal:     {ruleIDInternal, "AnalysisFailure", "A file could not be analyzed.", "error"},
}

// GenerateSARIF builds a SARIF v2.1.0 document from analysis results.
// All file URIs are made relative to projectRoot; absolute paths are never
// included so that reports are safe to share.
func GenerateSARIF(projectRoot string, results map[string][]analysis.Violation) ([]byte, error) {
	files := make([]string, 0, len(results))
	for file := range results {
		files = append(files, file)
	}
	sort.Strings(files)

	seenChecks := make(map[string]bool)
	sarifResults := make([]sarifResult, 0)

	for _, file := range files {
		for _, v := range results[file] {
			meta, ok := rulesByCheck[v.Check]
			if !ok {
				meta = rulesByCheck[analysis.CheckInternal]
			}
			seenChecks[v.Check] = true

			result := sarifResult{
				RuleID:  meta.id,
				Level:   meta.level,
				Message: sarifMessage{Text: v.Message},
			}
			loc := sarifLocation{
				PhysicalLocation: sarifPhysicalLocation{
					ArtifactLocation: sarifArtifactLocation{
						URI:       relativeURI(projectRoot, v.File),
						URIBaseID: "%SRCROOT%",
					},
				},
			}
			if v.Line > 0 {
				loc.PhysicalLocation.Region = &sarifRegion{StartLine: v.Line}
			}
			result.Locations = []sarifLocation{loc}
			sarifResults = append(sarifResults, result)
		}
	}

	report := sarifReport{
		Schema:  sarifSchema,
		Version: sarifVersion,
		Runs: []sarifRun{
			{
				Tool: sarifTool{
					Driver: sarifDriver{
						Name:    "starlint",
						Version: version.Version,
						Rules:   buildSARIFRules(seenChecks),
					},
				},
				Results: sarifResults,
			},
		},
	}

	return json.MarshalIndent(report, "", "  ")
}

// buildSARIFRules returns only the rules that are relevant for the given findings.
func buildSARIFRules(seenChecks map[string]bool) []sarifRule {
	checks := make([]string, 0, len(seenChecks))
	for check := range seenChecks {
		checks = append(checks, check)
	}
	sort.Strings(checks)

	rules := make([]sarifRule, 0, len(checks))
	for _, check := range checks {
		meta := rulesByCheck[check]
		rules = append(rules, sarifRule{
			ID:               meta.id,
			Name:             meta.name,
			ShortDescription: sarifMessage{Text: meta.desc},
			DefaultConfig:    sarifRuleDefaultConfig{Level: meta.level},
		})
	}
	return rules
}

func relativeURI(projectRoot, file string) string {
	if projectRoot != "" {
		if rel, err := filepath.Rel(projectRoot, file); err == nil && !strings.HasPrefix(rel, "..") {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.ToSlash(file)
}
