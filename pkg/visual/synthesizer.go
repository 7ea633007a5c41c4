package visual

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mattsolo1/grove-assets/pkg/config"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// GroupPlaceholder in the template's output paths is replaced by the group.
const GroupPlaceholder = "{group}"

// outputPathKeys are the template paths that are scoped per group.
var outputPathKeys = []string{"bitmaps_reference", "bitmaps_test", "html_report", "ci_report"}

// jsonObject keeps a JSON object's key order and its values as written.
type jsonObject = orderedmap.OrderedMap[string, json.RawMessage]

func decodeObject(data []byte) (*jsonObject, error) {
	obj := orderedmap.New[string, json.RawMessage]()
	if err := json.Unmarshal(data, obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// Synthesizer builds the ephemeral BackstopJS config for a run from the
// template and the scenario catalog.
type Synthesizer struct {
	TemplatePath string
	Catalog      *Catalog
	Group        string
}

// NewSynthesizer creates a synthesizer for the configured effective group.
func NewSynthesizer(cfg *config.Config) *Synthesizer {
	return &Synthesizer{
		TemplatePath: cfg.Backstop.TemplatePath(),
		Catalog:      NewCatalog(cfg),
		Group:        cfg.VisualRegression.EffectiveGroup(),
	}
}

// CreateTempConfig returns the serialized run config: the template with its
// scenarios replaced by the catalog's list and its output paths scoped to
// the group.
func (s *Synthesizer) CreateTempConfig() ([]byte, error) {
	group := s.Group
	if group == "" {
		group = config.AllGroups
	}

	list, err := s.Catalog.BuildScenariosList(group)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.TemplatePath)
	if err != nil {
		return nil, fmt.Errorf("reading config template: %w", err)
	}
	var raw json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config template %s: %w", s.TemplatePath, err)
	}
	content, err := decodeObject(raw)
	if err != nil {
		return nil, fmt.Errorf("config template %s is not an object", s.TemplatePath)
	}

	scenarios, err := json.Marshal(list)
	if err != nil {
		return nil, fmt.Errorf("marshal scenarios: %w", err)
	}
	content.Set("scenarios", scenarios)

	pathsRaw, ok := content.Get("paths")
	if !ok {
		return nil, fmt.Errorf("config template %s has no paths object", s.TemplatePath)
	}
	paths, err := decodeObject(pathsRaw)
	if err != nil {
		return nil, fmt.Errorf("config template %s has no paths object", s.TemplatePath)
	}
	for _, key := range outputPathKeys {
		var value string
		v, ok := paths.Get(key)
		if !ok || json.Unmarshal(v, &value) != nil {
			return nil, fmt.Errorf("config template %s: paths.%s must be a string", s.TemplatePath, key)
		}
		scoped, err := json.Marshal(strings.ReplaceAll(value, GroupPlaceholder, group))
		if err != nil {
			return nil, err
		}
		paths.Set(key, scoped)
	}
	pathsOut, err := json.Marshal(paths)
	if err != nil {
		return nil, fmt.Errorf("marshal paths: %w", err)
	}
	content.Set("paths", pathsOut)

	out, err := json.MarshalIndent(content, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal run config: %w", err)
	}
	return out, nil
}

// WriteTempConfig synthesizes the run config and writes it to path.
func (s *Synthesizer) WriteTempConfig(path string) error {
	content, err := s.CreateTempConfig()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("write run config: %w", err)
	}
	return nil
}

// ReportDir is the html_report path of the template, scoped to the group.
func (s *Synthesizer) ReportDir() (string, error) {
	data, err := os.ReadFile(s.TemplatePath)
	if err != nil {
		return "", fmt.Errorf("reading config template: %w", err)
	}
	var content struct {
		Paths map[string]interface{} `json:"paths"`
	}
	if err := json.Unmarshal(data, &content); err != nil {
		return "", fmt.Errorf("parse config template %s: %w", s.TemplatePath, err)
	}
	dir, ok := content.Paths["html_report"].(string)
	if !ok {
		return "", fmt.Errorf("config template %s: paths.html_report must be a string", s.TemplatePath)
	}
	group := s.Group
	if group == "" {
		group = config.AllGroups
	}
	return strings.ReplaceAll(dir, GroupPlaceholder, group), nil
}
