package cli

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/kart-io/clovertg/pkg/message"
)

// parseStructured decodes a YAML document into values the message formatter
// understands. Mapping order is kept as written.
func parseStructured(text string) (any, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		return nil, fmt.Errorf("parse message: %w", err)
	}
	if doc.Kind == 0 {
		return "", nil
	}
	return fromNode(&doc)
}

func fromNode(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return "", nil
		}
		return fromNode(n.Content[0])
	case yaml.MappingNode:
		m := make(message.Map, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			v, err := fromNode(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			m = append(m, message.Entry{Key: n.Content[i].Value, Value: v})
		}
		return m, nil
	case yaml.SequenceNode:
		values := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := fromNode(c)
			if err != nil {
				return nil, err
			}
			values = append(values, v)
		}
		return message.List(values...), nil
	case yaml.AliasNode:
		return fromNode(n.Alias)
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return "", nil
		}
		return n.Value, nil
	default:
		return nil, fmt.Errorf("parse message: unsupported node at line %d", n.Line)
	}
}
