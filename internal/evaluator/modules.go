package evaluator

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/raccoon-lang/raccoon/internal/ast"
	"github.com/raccoon-lang/raccoon/internal/environment"
	"github.com/raccoon-lang/raccoon/internal/parser"
	"github.com/raccoon-lang/raccoon/internal/value"
)

// sourceExt is the extension user modules are resolved under: a bare
// import path tries itself, itself+sourceExt, and <path>/index<sourceExt>
// in that order, mirroring how most of the corpus resolves bare module
// specifiers to a directory's entry file.
const sourceExt = ".rac"

// loadUserModule is installed as the module registry's FileLoader so
// `import` of a non-"std:" path runs an actual Raccoon source file. It
// lives in the evaluator package (not internal/module) because running a
// module means lexing, parsing, and evaluating it, and internal/module
// can't import the evaluator without an import cycle.
func (ev *Evaluator) loadUserModule(path string) (map[string]value.Value, error) {
	resolved, err := resolveModulePath(path)
	if err != nil {
		return nil, err
	}
	src, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("reading module '%s': %w", path, err)
	}
	prog, errs := parser.Parse(string(src), resolved)
	if len(errs) > 0 {
		return nil, fmt.Errorf("parsing module '%s': %v", path, errs[0])
	}

	prevStd := ev.inStdlibModule
	ev.inStdlibModule = isStdlibPath(resolved)
	defer func() { ev.inStdlibModule = prevStd }()

	modEnv := environment.New(ev.Globals)
	exports := make(map[string]value.Value)
	for _, stmt := range prog.Statements {
		if err := ev.execModuleStmt(stmt, modEnv, exports); err != nil {
			if ts, ok := err.(throwSignal); ok {
				return nil, ts.err
			}
			return nil, err
		}
	}
	return exports, nil
}

// isStdlibPath reports whether resolved (an absolute or relative module
// file path, as returned by resolveModulePath) lies within a "std"
// directory segment, gating which modules may use internal (`_`-prefixed)
// decorators per spec.md's "Internal decorators are permitted only when
// the source file is within the standard-library directory" (§4.3/§4.9).
func isStdlibPath(resolved string) bool {
	for _, seg := range strings.Split(filepath.ToSlash(resolved), "/") {
		if seg == "std" {
			return true
		}
	}
	return false
}

// execModuleStmt runs one top-level statement of a loaded module,
// recording anything wrapped in `export` into exports as it goes (rather
// than evaluating the whole module first and reconciling exports after,
// since a later statement's initializer may reference an earlier export).
func (ev *Evaluator) execModuleStmt(s ast.Stmt, env *environment.Environment, exports map[string]value.Value) error {
	exp, isExport := s.(*ast.ExportDecl)
	if !isExport {
		_, err := ev.execStmt(s, env)
		return err
	}

	if exp.ReExportModule != "" {
		ns, err := ev.Modules.Load(exp.ReExportModule)
		if err != nil {
			return err
		}
		for _, spec := range exp.Specifiers {
			v, ok := ns.Exports[spec.Name]
			if !ok {
				return fmt.Errorf("module '%s' has no export '%s'", exp.ReExportModule, spec.Name)
			}
			exports[spec.Alias] = v.(value.Value)
		}
		return nil
	}

	if exp.Decl == nil {
		for _, spec := range exp.Specifiers {
			v, ok := env.Get(spec.Name)
			if !ok {
				return fmt.Errorf("export of undeclared name '%s'", spec.Name)
			}
			exports[spec.Alias] = v
		}
		return nil
	}

	if _, err := ev.execStmt(exp.Decl, env); err != nil {
		return err
	}
	name := declaredName(exp.Decl)
	if name == "" {
		return nil
	}
	v, _ := env.Get(name)
	if exp.Default {
		exports["default"] = v
	} else {
		exports[name] = v
	}
	return nil
}

func declaredName(s ast.Stmt) string {
	switch n := s.(type) {
	case *ast.FuncDecl:
		return n.Name
	case *ast.ClassDecl:
		return n.Name
	case *ast.VarDecl:
		if id, ok := n.Pattern.(*ast.IdentPattern); ok {
			return id.Name
		}
	}
	return ""
}

func resolveModulePath(path string) (string, error) {
	candidates := []string{path}
	if !strings.HasSuffix(path, sourceExt) {
		candidates = append(candidates, path+sourceExt)
		candidates = append(candidates, filepath.Join(path, "index"+sourceExt))
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c, nil
		}
	}
	return "", fmt.Errorf("module '%s' not found (tried %s)", path, strings.Join(candidates, ", "))
}
