package schemas

import (
	"embed"
	"encoding/json"
	"fmt"
)

//go:embed *.json
var fs embed.FS

// Schema file names
const (
	VisionFactSchema = "vision_fact.json"
	GraphSpecSchema  = "graph_spec.json"
)

// GetSchema returns the content of a schema file by name
func GetSchema(name string) ([]byte, error) {
	return fs.ReadFile(name)
}

// GetSchemaMap returns a schema file decoded as a generic map, the form providers accept for structured output
func GetSchemaMap(name string) (map[string]interface{}, error) {
	data, err := GetSchema(name)
	if err != nil {
		return nil, fmt.Errorf("schema %s not found: %w", name, err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("schema %s is not valid JSON: %w", name, err)
	}
	return m, nil
}

// MustSchemaMap is GetSchemaMap for the embedded schemas, which are known to be valid
func MustSchemaMap(name string) map[string]interface{} {
	m, err := GetSchemaMap(name)
	if err != nil {
		panic(err)
	}
	return m
}
