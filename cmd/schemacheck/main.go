// Command schemacheck loads an XSD schema and prints the model it produces.
package main

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/agentflare-ai/go-mapxsd"
	"github.com/samber/lo"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: schemacheck <schema.xsd>")
		os.Exit(1)
	}

	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read schema: %v\n", err)
		os.Exit(1)
	}

	schema, err := mapxsd.LoadSchema(string(data))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	printSchema(os.Stdout, schema)
	if len(schema.Warnings) > 0 {
		os.Exit(1)
	}
}

func printSchema(w io.Writer, schema *mapxsd.Schema) {
	if schema.Root != nil {
		fmt.Fprintf(w, "root <%s>\n", schema.Root.Name)
		printStructure(w, schema.Root.Structure, "  ")
	}

	for _, name := range sortedKeys(schema.SimpleTypes) {
		rule := schema.SimpleTypes[name]
		fmt.Fprintf(w, "simpleType %s (base %s)\n", name, rule.Base)
	}
	for _, name := range sortedKeys(schema.ComplexTypes) {
		fmt.Fprintf(w, "complexType %s\n", name)
		printStructure(w, schema.ComplexTypes[name], "  ")
	}

	if len(schema.Warnings) == 0 {
		fmt.Fprintln(w, "Schema has no warnings")
		return
	}
	fmt.Fprintf(w, "Schema has %d warnings:\n", len(schema.Warnings))
	for i, warning := range schema.Warnings {
		fmt.Fprintf(w, "%d. %s\n", i+1, warning)
	}
}

func printStructure(w io.Writer, cs *mapxsd.ComplexStructure, indent string) {
	for _, attr := range cs.Attributes {
		fmt.Fprintf(w, "%s@%s required=%t\n", indent, attr.Name, attr.Required)
	}
	for _, def := range cs.Elements {
		upper := fmt.Sprint(def.MaxOccurs)
		if def.MaxOccurs == mapxsd.Unbounded {
			upper = "unbounded"
		}
		typeName := "-"
		if def.Type != nil {
			typeName = def.Type.String()
		}
		fmt.Fprintf(w, "%s%s [%d..%s] %s\n", indent, def.Name, def.MinOccurs, upper, typeName)
		if inline, ok := def.Type.(mapxsd.InlineStructure); ok {
			printStructure(w, inline.Structure, indent+"  ")
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := lo.Keys(m)
	sort.Strings(keys)
	return keys
}
