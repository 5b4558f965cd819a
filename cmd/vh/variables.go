package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/varhub/internal/client"
	"github.com/alfredjeanlab/varhub/internal/idgen"
	"github.com/alfredjeanlab/varhub/internal/model"
)

// resolveVariable fetches a variable by id when ref looks like one, and by
// identifier otherwise.
func resolveVariable(ctx context.Context, c client.VariablesClient, ref string) (*model.Variable, error) {
	if idgen.IsVariableID(ref) {
		v, err := c.GetVariable(ctx, ref)
		if err == nil || !client.IsNotFound(err) {
			return v, err
		}
	}
	return c.GetVariableByIdentifier(ctx, ref)
}

var listCmd = &cobra.Command{
	Use:     "list",
	Short:   "List all variables",
	GroupID: "variables",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		vars, err := varsClient.ListVariables(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing variables: %w", err)
		}
		return printVariableList(cmd.OutOrStdout(), outputFormat, vars)
	},
}

var getCmd = &cobra.Command{
	Use:     "get <id-or-identifier>",
	Short:   "Show a variable",
	GroupID: "variables",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		byIdentifier, _ := cmd.Flags().GetBool("identifier")

		var (
			v   *model.Variable
			err error
		)
		if byIdentifier {
			v, err = varsClient.GetVariableByIdentifier(cmd.Context(), args[0])
		} else {
			v, err = resolveVariable(cmd.Context(), varsClient, args[0])
		}
		if err != nil {
			return fmt.Errorf("getting variable: %w", err)
		}
		return printVariable(cmd.OutOrStdout(), outputFormat, v)
	},
}

var createCmd = &cobra.Command{
	Use:     "create <identifier> <value>",
	Short:   "Create a variable",
	GroupID: "variables",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		typeStr, _ := cmd.Flags().GetString("type")
		vt, err := model.ParseVariableType(typeStr)
		if err != nil {
			return err
		}

		v, err := varsClient.CreateVariable(cmd.Context(), &client.CreateVariableRequest{
			Identifier: args[0],
			Type:       vt,
			Value:      args[1],
		})
		if err != nil {
			return fmt.Errorf("creating variable: %w", err)
		}
		return printVariable(cmd.OutOrStdout(), outputFormat, v)
	},
}

var setCmd = &cobra.Command{
	Use:     "set <id-or-identifier> <value>",
	Short:   "Replace a variable's value",
	GroupID: "variables",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := resolveVariable(cmd.Context(), varsClient, args[0])
		if err != nil {
			return fmt.Errorf("resolving variable: %w", err)
		}
		if err := varsClient.UpdateVariable(cmd.Context(), v.ID, args[1]); err != nil {
			return fmt.Errorf("updating variable: %w", err)
		}
		if outputFormat != formatTable {
			updated, err := varsClient.GetVariable(cmd.Context(), v.ID)
			if err != nil {
				return fmt.Errorf("getting variable: %w", err)
			}
			return printVariable(cmd.OutOrStdout(), outputFormat, updated)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s = %q\n", v.Identifier, args[1])
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:     "delete <id-or-identifier>...",
	Short:   "Delete one or more variables",
	GroupID: "variables",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, ref := range args {
			v, err := resolveVariable(cmd.Context(), varsClient, ref)
			if err != nil {
				return fmt.Errorf("resolving %s: %w", ref, err)
			}
			if err := varsClient.DeleteVariable(cmd.Context(), v.ID); err != nil {
				return fmt.Errorf("deleting %s: %w", ref, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s (%s)\n", v.Identifier, v.ID)
		}
		return nil
	},
}

func init() {
	getCmd.Flags().Bool("identifier", false, "treat the argument as an identifier, never an id")
	createCmd.Flags().StringP("type", "t", model.TypeString.String(), "variable type (String, Integer, Boolean, Double, DateTime or 0-4)")
}
