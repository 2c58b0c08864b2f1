package analyzer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"golang.org/x/sync/errgroup"

	"github.com/hannajonsd/await-analysis/asynccall"
	"github.com/hannajonsd/await-analysis/cache"
	"github.com/hannajonsd/await-analysis/config"
	"github.com/hannajonsd/await-analysis/knowledge"
	"github.com/hannajonsd/await-analysis/parser"
)

// Analyzer drives the call-site rule over source files. The knowledge base
// is resolved once in New and shared by every file, so AnalyzeFiles can
// work on several files at a time.
type Analyzer struct {
	cfg         *config.Config
	rule        *asynccall.Rule
	fingerprint string
	cache       *cache.DiskCache
	logger      *slog.Logger
}

// New creates an analyzer for cfg. A nil cfg uses config.DefaultConfig and
// a nil logger discards log output.
func New(cfg *config.Config, logger *slog.Logger) *Analyzer {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	kb := knowledge.Resolve(cfg.RuleOptions())
	logger.Debug("resolved knowledge base", slog.String("tables", kb.Summary()))

	return &Analyzer{
		cfg:         cfg,
		rule:        asynccall.NewRule(kb),
		fingerprint: kb.Fingerprint(),
		logger:      logger,
	}
}

// UseCache makes the analyzer reuse results for files whose content and
// rule tables are unchanged. A nil cache disables caching.
func (a *Analyzer) UseCache(c *cache.DiskCache) {
	a.cache = c
}

// AnalyzePaths finds the source files under paths and analyzes them
func (a *Analyzer) AnalyzePaths(ctx context.Context, paths []string) (*Result, error) {
	files, err := a.FindSourceFiles(paths)
	if err != nil {
		return nil, fmt.Errorf("failed to find source files: %w", err)
	}
	a.logger.Info("found source files", slog.Int("count", len(files)))

	return a.AnalyzeFiles(ctx, files)
}

// AnalyzeFiles analyzes files concurrently, up to the configured worker
// count. Results keep the order of files. A file that cannot be read or
// parsed is logged and counted as failed; only cancellation of ctx stops
// the run.
func (a *Analyzer) AnalyzeFiles(ctx context.Context, files []string) (*Result, error) {
	results := make([]FileResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, a.cfg.Analysis.MaxWorkers))

	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = a.AnalyzeFile(gctx, path)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analysis interrupted: %w", err)
	}

	result := &Result{Files: results}
	for _, fr := range results {
		if fr.Err != nil {
			result.Failed++
			continue
		}
		result.CallsChecked += fr.CallsChecked
		result.Flagged += len(fr.Diagnostics)
		result.Suppressed += fr.Suppressed
	}
	return result, nil
}

// AnalyzeFile reads and analyzes a single file. Errors are recorded on the
// returned FileResult.
func (a *Analyzer) AnalyzeFile(ctx context.Context, filePath string) FileResult {
	source, err := os.ReadFile(filePath)
	if err != nil {
		a.logger.Warn("skipping file", slog.String("file", filePath), slog.Any("error", err))
		return FileResult{FilePath: filePath, Err: fmt.Errorf("failed to read file %s: %w", filePath, err)}
	}

	fr, err := a.AnalyzeSource(ctx, source, filePath)
	if err != nil {
		a.logger.Warn("skipping file", slog.String("file", filePath), slog.Any("error", err))
		return FileResult{FilePath: filePath, Err: err}
	}
	return fr
}

// AnalyzeSource analyzes source held in memory; filePath selects the
// grammar and is recorded on diagnostics.
func (a *Analyzer) AnalyzeSource(ctx context.Context, source []byte, filePath string) (FileResult, error) {
	if a.cache == nil {
		return a.analyzeSource(ctx, source, filePath)
	}

	key := cache.Key(source, filePath, a.fingerprint)
	var payload cache.Payload
	hit, err := a.cache.Get(key, &payload)
	if err != nil {
		a.logger.Warn("ignoring unreadable cache entry", slog.String("file", filePath), slog.Any("error", err))
	}
	if hit {
		a.logger.Debug("cache hit", slog.String("file", filePath))
		return fromPayload(filePath, &payload), nil
	}

	fr, err := a.analyzeSource(ctx, source, filePath)
	if err != nil {
		return fr, err
	}
	if err := a.cache.Put(key, toPayload(&fr)); err != nil {
		a.logger.Warn("failed to write cache entry", slog.String("file", filePath), slog.Any("error", err))
	}
	return fr, nil
}

func (a *Analyzer) analyzeSource(ctx context.Context, source []byte, filePath string) (FileResult, error) {
	fileParser, err := parser.CreateParser(filePath)
	if err != nil {
		return FileResult{}, err
	}
	defer fileParser.Close()

	parseResult, err := fileParser.Parse(ctx, source, filePath)
	if err != nil {
		return FileResult{}, err
	}
	defer parseResult.Close()

	root := parseResult.Tree.RootNode()
	fr := FileResult{
		FilePath:     filePath,
		Language:     parseResult.Language,
		HasSyntaxErr: root.HasError(),
	}
	if fr.HasSyntaxErr {
		a.logger.Warn("file has syntax errors, results may be incomplete", slog.String("file", filePath))
	}

	sink := &collector{filePath: filePath}
	rctx := &asynccall.Context{
		Source:  parseResult.Source,
		Options: a.cfg.RuleOptions(),
		Sink:    sink,
	}

	for _, call := range fileParser.ExtractCalls(root) {
		fr.CallsChecked++
		v := a.rule.Check(rctx, call)
		msg := "allowed call"
		if v.Flagged {
			sink.annotate(v)
			msg = "flagged call"
		}
		line, _ := parser.Position(call.StartPoint())
		a.logger.Debug(msg,
			slog.String("file", filePath),
			slog.Int("line", line),
			slog.String("rule", v.Rule))
	}

	ignored := buildIgnoreLines(fileParser.ExtractComments(root, parseResult.Source))
	fr.Diagnostics, fr.Suppressed = filterSuppressed(sink.diags, ignored)
	return fr, nil
}

// collector is the diagnostic sink for one file
type collector struct {
	filePath string
	diags    []Diagnostic
}

func (c *collector) Report(node *sitter.Node, message string) {
	line, column := parser.Position(node.StartPoint())
	endLine, endColumn := parser.Position(node.EndPoint())
	c.diags = append(c.diags, Diagnostic{
		FilePath:  c.filePath,
		Line:      line,
		Column:    column,
		EndLine:   endLine,
		EndColumn: endColumn,
		Message:   message,
	})
}

// annotate records the verdict behind the most recent report
func (c *collector) annotate(v asynccall.Verdict) {
	if len(c.diags) == 0 {
		return
	}
	last := &c.diags[len(c.diags)-1]
	last.Rule = v.Rule
	last.Reason = v.Reason
}

func toPayload(fr *FileResult) *cache.Payload {
	p := &cache.Payload{
		Language:     fr.Language,
		CallsChecked: fr.CallsChecked,
		Suppressed:   fr.Suppressed,
		HasSyntaxErr: fr.HasSyntaxErr,
	}
	for _, d := range fr.Diagnostics {
		p.Diagnostics = append(p.Diagnostics, cache.Diagnostic{
			Line:      d.Line,
			Column:    d.Column,
			EndLine:   d.EndLine,
			EndColumn: d.EndColumn,
			Rule:      d.Rule,
			Reason:    d.Reason,
			Message:   d.Message,
		})
	}
	return p
}

func fromPayload(filePath string, p *cache.Payload) FileResult {
	fr := FileResult{
		FilePath:     filePath,
		Language:     p.Language,
		CallsChecked: p.CallsChecked,
		Suppressed:   p.Suppressed,
		HasSyntaxErr: p.HasSyntaxErr,
		Cached:       true,
	}
	for _, d := range p.Diagnostics {
		fr.Diagnostics = append(fr.Diagnostics, Diagnostic{
			FilePath:  filePath,
			Line:      d.Line,
			Column:    d.Column,
			EndLine:   d.EndLine,
			EndColumn: d.EndColumn,
			Rule:      d.Rule,
			Reason:    d.Reason,
			Message:   d.Message,
		})
	}
	return fr
}

// FindSourceFiles expands paths into the source files to analyze
func (a *Analyzer) FindSourceFiles(paths []string) ([]string, error) {
	var sourceFiles []string
	seen := make(map[string]bool)

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", root, err)
		}

		if !info.IsDir() {
			if !seen[root] {
				seen[root] = true
				sourceFiles = append(sourceFiles, root)
			}
			continue
		}

		files, err := a.walkDir(root)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			if !seen[f] {
				seen[f] = true
				sourceFiles = append(sourceFiles, f)
			}
		}
	}

	return sourceFiles, nil
}

func (a *Analyzer) walkDir(root string) ([]string, error) {
	var files []string

	var gitignore *gitignoreRules
	if a.cfg.Files.RespectGitignore {
		gitignore = newGitignoreRules(root)
	}

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if gitignore != nil && gitignore.shouldIgnore(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != root && SkipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		if a.Accepts(path) {
			files = append(files, path)
		}
		return nil
	})

	return files, err
}

// SkipDir reports whether a directory is never searched for sources
func SkipDir(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	switch name {
	case "node_modules", "bower_components", "vendor", "build", "dist", "coverage":
		return true
	}
	return false
}

// Accepts reports whether path has a configured extension, is supported by
// a parser and matches no exclude pattern
func (a *Analyzer) Accepts(path string) bool {
	if !parser.IsSupported(path) {
		return false
	}

	ext := strings.ToLower(filepath.Ext(path))
	allowed := false
	for _, e := range a.cfg.Files.Extensions {
		if strings.ToLower(e) == ext {
			allowed = true
			break
		}
	}
	if !allowed {
		return false
	}

	slashed := filepath.ToSlash(path)
	base := filepath.Base(path)
	for _, pattern := range a.cfg.Files.Exclude {
		if ok, _ := filepath.Match(pattern, base); ok {
			return false
		}
		if ok, _ := filepath.Match(pattern, slashed); ok {
			return false
		}
	}
	return true
}
