package output

// DAGOutput is the JSON form of the dependency graph.
type DAGOutput struct {
	Levels      []DAGLevel `json:"levels"`
	TotalModels int        `json:"total_models"`
	TotalEdges  int        `json:"total_edges"`
}

// DAGLevel holds models that only depend on earlier levels.
type DAGLevel struct {
	Level  int       `json:"level"`
	Models []DAGNode `json:"models"`
}

// DAGNode is one model in the graph.
type DAGNode struct {
	Model     string   `json:"model"`
	Table     string   `json:"table"`
	DependsOn []string `json:"depends_on"`
	// Requires lists every model inserted before this one, transitively.
	Requires []string `json:"requires"`
	UsedBy   []string `json:"used_by"`
	SelfRef  bool     `json:"self_referencing,omitempty"`
}

// RunInfo is the JSON form of a recorded run.
type RunInfo struct {
	ID          string           `json:"id"`
	Seed        string           `json:"seed"`
	Dialect     string           `json:"dialect"`
	Status      string           `json:"status"`
	Statements  int              `json:"statements"`
	Executed    bool             `json:"executed"`
	Rows        map[string]int   `json:"rows"`
	Sequences   map[string]int64 `json:"sequences,omitempty"`
	StartedAt   string           `json:"started_at"`
	CompletedAt string           `json:"completed_at,omitempty"`
	Error       string           `json:"error,omitempty"`
}
