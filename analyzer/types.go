package analyzer

// Diagnostic is one flagged call
type Diagnostic struct {
	FilePath  string `json:"file"`
	Line      int    `json:"line"`
	Column    int    `json:"column"`
	EndLine   int    `json:"endLine"`
	EndColumn int    `json:"endColumn"`
	Rule      string `json:"rule"`
	Reason    string `json:"reason"`
	Message   string `json:"message"`
}

// FileResult holds the outcome of analyzing a single source file
type FileResult struct {
	FilePath     string       `json:"file"`
	Language     string       `json:"language"`
	CallsChecked int          `json:"callsChecked"`
	Diagnostics  []Diagnostic `json:"diagnostics"`
	Suppressed   int          `json:"suppressed"`
	HasSyntaxErr bool         `json:"hasSyntaxErrors,omitempty"`
	Cached       bool         `json:"cached,omitempty"`
	Err          error        `json:"-"`
}

// Result aggregates the file results of one analysis run
type Result struct {
	Files        []FileResult
	CallsChecked int
	Flagged      int
	Suppressed   int
	Failed       int
}

// Diagnostics returns every diagnostic of the run in file order
func (r *Result) Diagnostics() []Diagnostic {
	var all []Diagnostic
	for _, f := range r.Files {
		all = append(all, f.Diagnostics...)
	}
	return all
}

// gitignoreRules holds the patterns read from a .gitignore file
type gitignoreRules struct {
	rootDir          string
	ignorePatterns   []string
	negationPatterns []string
}
