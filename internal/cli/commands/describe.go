package commands

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leaproute/internal/cli/output"
	"github.com/leapstack-labs/leaproute/internal/engine"
	"github.com/leapstack-labs/leaproute/internal/reducer"
)

// DescribeOutput is the JSON form of the describe command.
type DescribeOutput struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	Description reducer.Description `json:"description"`
	Reducer     json.RawMessage     `json:"reducer"`
}

// NewDescribeCommand creates the describe command.
func NewDescribeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "describe <node>",
		Short: "Describe a node's reducer",
		Long: `Print the three renderings of a node's reducer (a sentence, a formula
and a short label) along with its serialized envelope.`,
		Example: `  leaproute describe 1f2e3d4c`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			id, err := cmdCtx.ResolveKind(args[0], engine.KindNode)
			if err != nil {
				return err
			}
			n, err := cmdCtx.Engine.Node(id)
			if err != nil {
				return err
			}
			env, err := reducer.Marshal(n.Reducer)
			if err != nil {
				return err
			}

			out := DescribeOutput{
				ID:          id.String(),
				Title:       n.Title,
				Description: n.Reducer.Describe(),
				Reducer:     env,
			}
			r := cmdCtx.Renderer
			switch r.EffectiveMode() {
			case output.ModeJSON:
				return r.JSON(out)
			case output.ModeMarkdown:
				r.Println(output.FormatHeader(2, out.Title))
				r.Println()
				r.Println(output.FormatKeyValue("Description", out.Description.Full))
				r.Println(output.FormatKeyValue("Formula", "`"+out.Description.Abbreviation+"`"))
				r.Println(output.FormatKeyValue("Label", "`"+out.Description.Short+"`"))
				r.Println()
				r.Println("```json")
				r.Println(string(env))
				r.Println("```")
			default:
				styles := r.Styles()
				r.Header(1, out.Title)
				r.Println(out.Description.Full)
				r.Printf("%s %s\n", styles.Muted.Render("formula:"), out.Description.Abbreviation)
				r.Printf("%s %s\n", styles.Muted.Render("label:  "), out.Description.Short)
				r.Printf("%s %s\n", styles.Muted.Render("reducer:"), string(env))
			}
			return nil
		},
	}
}
