package commands

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapseed/internal/cli/output"
	"github.com/leapstack-labs/leapseed/internal/dag"
	"github.com/spf13/cobra"
)

// GraphQuerier provides read-only access to DAG structure.
type GraphQuerier interface {
	GetNode(string) (*dag.Node, bool)
	GetParents(string) []string
	GetUpstreamNodes(string) []string
	GetChildren(string) []string
	IsSelfReferencing(string) bool
	NodeCount() int
	EdgeCount() int
}

// NewDAGCommand creates the dag command.
func NewDAGCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dag",
		Short: "Show the insertion order of models",
		Long: `Display the required-relation graph of the data model.

Models are grouped by level: every model only requires rows from models
in earlier levels, so levels are inserted in order. Self-referencing
models are inserted in one level and linked as they go.

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format (agent-friendly)`,
		Example: `  # Show the insertion order
  leapseed dag

  # Output as JSON
  leapseed dag --output json`,
		Aliases: []string{"order"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDAG(cmd)
		},
	}

	return cmd
}

func runDAG(cmd *cobra.Command) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	eng := cmdCtx.Engine
	r := cmdCtx.Renderer
	graph := eng.Graph()

	levels, err := graph.GetExecutionLevels()
	if err != nil {
		return fmt.Errorf("failed to get execution levels: %w", err)
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return dagJSON(r, graph, levels)
	case output.ModeMarkdown:
		return dagMarkdown(r, graph, levels)
	default:
		return dagText(r, graph, levels)
	}
}

// dagText outputs DAG in styled text format.
func dagText(r *output.Renderer, graph GraphQuerier, levels [][]string) error {
	styles := r.Styles()

	r.Header(1, "Insertion Order")

	for i, level := range levels {
		r.Println(styles.Header2.Render(fmt.Sprintf("Level %d:", i)))
		for _, model := range level {
			name := model
			if graph.IsSelfReferencing(model) {
				name += " (self)"
			}
			r.Printf("  %s\n", styles.ID.Render(name))
			if deps := graph.GetParents(model); len(deps) > 0 {
				r.Printf("    %s %s\n", styles.Muted.Render("requires:"), strings.Join(deps, ", "))
			}
			if children := graph.GetChildren(model); len(children) > 0 {
				r.Printf("    %s %s\n", styles.Muted.Render("required by:"), strings.Join(children, ", "))
			}
		}
		r.Println("")
	}

	r.Muted(fmt.Sprintf("Total: %d models, %d required relations", graph.NodeCount(), graph.EdgeCount()))
	return nil
}

// dagMarkdown outputs DAG in markdown format.
func dagMarkdown(r *output.Renderer, graph GraphQuerier, levels [][]string) error {
	r.Println(output.FormatHeader(1, "Insertion Order"))
	r.Println("")

	for i, level := range levels {
		r.Println(output.FormatHeader(2, fmt.Sprintf("Level %d", i)))
		for _, model := range level {
			r.Printf("- %s\n", model)
			if graph.IsSelfReferencing(model) {
				r.Println("  - self-referencing")
			}
			if deps := graph.GetParents(model); len(deps) > 0 {
				r.Printf("  - requires: %s\n", strings.Join(deps, ", "))
			}
			if children := graph.GetChildren(model); len(children) > 0 {
				r.Printf("  - required by: %s\n", strings.Join(children, ", "))
			}
		}
		r.Println("")
	}

	r.Println(output.FormatHeader(2, "Summary"))
	r.Println(output.FormatKeyValue("Total Models", fmt.Sprintf("%d", graph.NodeCount())))
	r.Println(output.FormatKeyValue("Required Relations", fmt.Sprintf("%d", graph.EdgeCount())))
	return nil
}

// dagJSON outputs DAG in JSON format.
func dagJSON(r *output.Renderer, graph GraphQuerier, levels [][]string) error {
	out := output.DAGOutput{
		Levels:      make([]output.DAGLevel, 0, len(levels)),
		TotalModels: graph.NodeCount(),
		TotalEdges:  graph.EdgeCount(),
	}

	for i, level := range levels {
		dl := output.DAGLevel{
			Level:  i,
			Models: make([]output.DAGNode, 0, len(level)),
		}
		for _, model := range level {
			node := output.DAGNode{
				Model:     model,
				Table:     model,
				DependsOn: graph.GetParents(model),
				Requires:  graph.GetUpstreamNodes(model),
				UsedBy:    graph.GetChildren(model),
				SelfRef:   graph.IsSelfReferencing(model),
			}
			if n, ok := graph.GetNode(model); ok && n.Model != nil {
				node.Table = n.Model.TableName()
			}
			dl.Models = append(dl.Models, node)
		}
		out.Levels = append(out.Levels, dl)
	}

	return r.JSON(out)
}
