package export

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/vendor-pipeline/internal/model"
)

// YAML writes the report to w in block style. Keys and their order match
// the JSON representation served by the API.
func YAML(w io.Writer, r *model.Report) error {
	if r == nil {
		return eris.New("export: nil report")
	}
	raw, err := json.Marshal(r)
	if err != nil {
		return eris.Wrap(err, "export: marshal report")
	}

	// JSON is a YAML subset; decoding into a node keeps key order.
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return eris.Wrap(err, "export: decode report")
	}
	blockStyle(&doc)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return eris.Wrap(err, "export: encode yaml")
	}
	return eris.Wrap(enc.Close(), "export: flush yaml")
}

func blockStyle(n *yaml.Node) {
	switch n.Kind {
	case yaml.MappingNode, yaml.SequenceNode:
		n.Style = 0
	case yaml.ScalarNode:
		if n.Style == yaml.DoubleQuotedStyle {
			n.Style = 0
		}
	}
	for _, c := range n.Content {
		blockStyle(c)
	}
}
