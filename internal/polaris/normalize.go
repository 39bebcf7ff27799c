package polaris

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// Record is one flattened node of a connection field.
type Record map[string]any

// Normalize unwraps every connection field of env, in the given order, into
// a flat list of node records. Fields not listed are ignored. A listed field
// that is missing, has no edges array, or holds an edge without an object
// node yields a *SchemaMismatchError. No connections means no records.
func Normalize(env *Envelope, connections []string) ([]Record, error) {
	records := make([]Record, 0)
	if len(connections) == 0 {
		return records, nil
	}

	op := env.Operation()
	if !env.HasData() {
		return nil, &SchemaMismatchError{Operation: op, Message: "response has no data"}
	}

	data := gjson.ParseBytes(env.Data)
	if !data.IsObject() {
		return nil, &SchemaMismatchError{Operation: op, Message: "data is not an object"}
	}

	for _, field := range connections {
		conn := data.Get(field)
		if !conn.Exists() {
			return nil, &SchemaMismatchError{Operation: op, Field: field, Message: "missing from response"}
		}

		edges := conn.Get("edges")
		if !edges.Exists() {
			return nil, &SchemaMismatchError{Operation: op, Field: field, Message: "connection has no edges"}
		}
		if !edges.IsArray() {
			return nil, &SchemaMismatchError{Operation: op, Field: field, Message: "edges is not an array"}
		}

		for i, edge := range edges.Array() {
			node := edge.Get("node")
			if !node.IsObject() {
				return nil, &SchemaMismatchError{
					Operation: op,
					Field:     fmt.Sprintf("%s.edges.%d.node", field, i),
					Message:   "node is not an object",
				}
			}

			var rec Record
			if err := json.Unmarshal([]byte(node.Raw), &rec); err != nil {
				return nil, &SchemaMismatchError{Operation: op, Field: field, Message: err.Error()}
			}
			records = append(records, rec)
		}
	}

	return records, nil
}

// Normalize flattens env using the connection fields the catalog recorded
// for key.
func (c *Client) Normalize(env *Envelope, key string) ([]Record, error) {
	connections, err := c.catalog.Connections(key)
	if err != nil {
		return nil, err
	}
	return Normalize(env, connections)
}
