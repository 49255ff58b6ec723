package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/EI94/Urbanova-sub017/internal/model"
)

func schemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "schema <name>",
		Short:     "Print the JSON Schema of an inbound payload",
		Long:      "Prints the JSON Schema of one of: " + strings.Join(model.SchemaNames(), ", "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: model.SchemaNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, ok := model.Schema(args[0])
			if !ok {
				return fmt.Errorf("unknown schema %q, expected one of %s", args[0], strings.Join(model.SchemaNames(), ", "))
			}
			return outputJSON(schema)
		},
	}
}
