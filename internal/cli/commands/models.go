package commands

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapseed/internal/cli/output"
	"github.com/leapstack-labs/leapseed/internal/config"
	"github.com/leapstack-labs/leapseed/pkg/core"
	"github.com/spf13/cobra"
)

// NewModelsCommand creates the models command.
func NewModelsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "models [model]",
		Short: "List models and where their values come from",
		Long: `List the models of the data model with their fields.

For every field the source column shows the configured value source from
leapseed.yaml (value, null, builtin or starlark). Fields without one use
the generator derived from their type.`,
		Example: `  # List all models
  leapseed models

  # Show one model as JSON
  leapseed models users --output json`,
		Args: cobra.MaximumNArgs(1),
		RunE: runModels,
	}
}

// FieldInfo is the JSON form of one field.
type FieldInfo struct {
	Name     string   `json:"name"`
	Column   string   `json:"column,omitempty"`
	Type     string   `json:"type,omitempty"`
	Target   string   `json:"target,omitempty"`
	Flags    []string `json:"flags,omitempty"`
	Source   string   `json:"source"`
	Sequence string   `json:"sequence,omitempty"`
}

// ModelInfo is the JSON form of one model.
type ModelInfo struct {
	ID    string `json:"id"`
	Table string `json:"table"`
	// Requires lists the models whose rows are created first, transitively.
	Requires []string    `json:"requires,omitempty"`
	Fields   []FieldInfo `json:"fields"`
}

func runModels(cmd *cobra.Command, args []string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	dm := cmdCtx.Engine.DataModel()
	models := dm.Models()
	if len(args) == 1 {
		m, ok := dm.Model(args[0])
		if !ok {
			return fmt.Errorf("unknown model %q", args[0])
		}
		models = []*core.Model{m}
	}

	graph := cmdCtx.Engine.Graph()
	infos := make([]ModelInfo, 0, len(models))
	for _, m := range models {
		info := modelInfo(m, cmdCtx.Cfg.Models[m.ID])
		info.Requires = graph.GetUpstreamNodes(m.ID)
		infos = append(infos, info)
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(infos)
	}

	for i, info := range infos {
		if i > 0 {
			r.Println("")
		}
		r.Header(2, fmt.Sprintf("%s (%s)", info.ID, info.Table))
		if len(info.Requires) > 0 {
			r.Muted("requires: " + strings.Join(info.Requires, ", "))
			r.Println("")
		}
		rows := make([][]string, 0, len(info.Fields))
		for _, f := range info.Fields {
			kind := f.Type
			if f.Target != "" {
				kind = "-> " + f.Target
			}
			rows = append(rows, []string{f.Name, kind, strings.Join(f.Flags, ","), f.Source})
		}
		r.Table([]string{"Field", "Type", "Flags", "Source"}, rows)
	}
	return nil
}

func modelInfo(m *core.Model, mc config.ModelConfig) ModelInfo {
	info := ModelInfo{ID: m.ID, Table: m.TableName()}
	for _, f := range m.Fields {
		source, configured := fieldSource(mc.Fields, f.FieldName())
		fi := FieldInfo{Name: f.FieldName(), Source: source}
		switch f := f.(type) {
		case *core.ScalarField:
			fi.Column = f.Column()
			fi.Type = f.SQLType
			if f.IsID {
				fi.Flags = append(fi.Flags, "id")
			}
			if f.IsRequired {
				fi.Flags = append(fi.Flags, "required")
			}
			if f.IsGenerated {
				fi.Flags = append(fi.Flags, "generated")
			}
			if f.Sequence != nil {
				fi.Sequence = f.Sequence.Identifier
			}
			switch {
			case configured:
			case f.Omitted():
				fi.Source = "database"
			case f.Sequence != nil:
				fi.Source = "sequence " + f.Sequence.Identifier
			}
		case *core.RelationField:
			fi.Target = f.TargetModel
			if f.IsList {
				fi.Flags = append(fi.Flags, "list")
			}
			if f.IsRequired {
				fi.Flags = append(fi.Flags, "required")
			}
			if !configured {
				fi.Source = "connect"
			}
		}
		info.Fields = append(info.Fields, fi)
	}
	return info
}

// fieldSource describes the configured source of a field and reports
// whether one is configured.
func fieldSource(fields map[string]config.FieldConfig, name string) (string, bool) {
	fc, ok := fields[name]
	switch {
	case !ok:
		return "generated", false
	case fc.Null:
		return "null", true
	case fc.Builtin != "":
		return "builtin " + fc.Builtin, true
	case fc.Starlark != "":
		return "starlark " + fc.Starlark + "()", true
	default:
		return fmt.Sprintf("value %v", fc.Value), true
	}
}
