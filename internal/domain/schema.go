package domain

import (
	"strings"
	"time"
)

// Type tags stored in schema metadata and reported by the type consistency check.
const (
	TypeString = "string"
	TypeInt    = "int"
	TypeDouble = "double"
	TypeBool   = "bool"
)

// SchemaField documents one canonical field in the schema_metadata collection.
type SchemaField struct {
	FieldName   string    `json:"field_name" bson:"field_name"`
	Description string    `json:"description" bson:"description"`
	DataType    string    `json:"bsonType" bson:"bsonType"`
	Required    bool      `json:"required" bson:"required"`
	Indexed     bool      `json:"indexed" bson:"indexed"`
	AddedAt     time.Time `json:"added_at" bson:"added_at"`
}

var typeKeywords = []struct {
	tag      string
	keywords []string
}{
	{TypeString, []string{"string", "text"}},
	{TypeInt, []string{"int", "code"}},
	{TypeDouble, []string{"float", "double", "decimal"}},
	{TypeBool, []string{"bool"}},
	{TypeString, []string{"date", "timestamp"}},
}

// InferTypeTag picks a type tag from a free-text description. The first
// keyword group that matches wins; no match yields TypeDouble.
func InferTypeTag(description string) string {
	d := strings.ToLower(description)
	for _, group := range typeKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(d, kw) {
				return group.tag
			}
		}
	}
	return TypeDouble
}

// NewSchemaField builds the metadata document for a field.
func NewSchemaField(name, description string, now time.Time) SchemaField {
	return SchemaField{
		FieldName:   name,
		Description: description,
		DataType:    InferTypeTag(description),
		Required:    name == FieldStationID || name == FieldTimestamp,
		Indexed:     name == FieldStationID || name == FieldTimestamp || name == "city",
		AddedAt:     now.UTC(),
	}
}
