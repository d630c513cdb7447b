package schema

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// DuplicateKeys lists the mapping keys defined more than once in a YAML
// document. Documents that do not parse yield no problems here; the decoder
// reports those.
func DuplicateKeys(data []byte) []ValidationError {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil
	}
	var problems []ValidationError
	walk(&doc, "", &problems)
	return problems
}

func walk(node *yaml.Node, path string, problems *[]ValidationError) {
	switch node.Kind {
	case yaml.DocumentNode:
		for _, child := range node.Content {
			walk(child, path, problems)
		}
	case yaml.SequenceNode:
		for i, child := range node.Content {
			walk(child, path+"/"+strconv.Itoa(i), problems)
		}
	case yaml.MappingNode:
		lines := map[string]int{}
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, value := node.Content[i], node.Content[i+1]
			if key.Tag == "!!merge" {
				continue
			}
			if line, ok := lines[key.Value]; ok {
				*problems = append(*problems, ValidationError{
					Message: fmt.Sprintf("the key %s is defined multiple times (lines %d and %d)", key.Value, line, key.Line),
					Path:    path + "/" + key.Value,
				})
				continue
			}
			lines[key.Value] = key.Line
			walk(value, path+"/"+key.Value, problems)
		}
	}
}
