package parser

import (
	"github.com/t14raptor/go-fast/ast"
	"github.com/t14raptor/go-fast/parser"
)

// candidateCallNames are the bare identifiers that any i18n call shape
// (direct t(), useTranslation(), Trans component factory, next-intl's
// useTranslations/getTranslations) must bottom out in. It is
// deliberately permissive: a false positive only costs a wasted query
// pass, a false negative would silently drop real usages.
var candidateCallNames = map[string]bool{
	"t":               true,
	"useTranslation":  true,
	"useTranslations": true,
	"getTranslations": true,
	"getTranslator":   true,
	"Trans":           true,
	"Translation":     true,
}

// MightContainI18nCalls is the go-fast pre-filter (spec.md §4.C):
// a cheap reject before the tree-sitter query pass runs. Grounded on
// the teacher's javascript_hybrid_analyzer.go "try the fast path, fall
// back" shape: go-fast only parses ES5/CommonJS syntax, so any parse
// failure (ES6 modules, JSX, TypeScript) is treated as "might contain
// calls" rather than silently skipped -- the tree-sitter pass is the
// source of truth, this only short-circuits the common case of a file
// with no i18n calls at all.
func MightContainI18nCalls(content []byte) bool {
	program, err := parser.ParseFile(string(content))
	if err != nil {
		return true
	}

	found := false
	for _, stmt := range program.Body {
		if stmt.Stmt == nil {
			continue
		}
		if scanStmtForCandidateCalls(stmt.Stmt) {
			found = true
			break
		}
	}
	return found
}

func scanStmtForCandidateCalls(stmt ast.Stmt) bool {
	switch s := stmt.(type) {
	case *ast.ExpressionStatement:
		if s.Expression.Expr != nil {
			return scanExprForCandidateCalls(s.Expression.Expr)
		}
	case *ast.BlockStatement:
		for _, bodyStmt := range s.List {
			if bodyStmt.Stmt != nil && scanStmtForCandidateCalls(bodyStmt.Stmt) {
				return true
			}
		}
	case *ast.FunctionDeclaration:
		if s.Function != nil && s.Function.Body != nil {
			for _, bodyStmt := range s.Function.Body.List {
				if bodyStmt.Stmt != nil && scanStmtForCandidateCalls(bodyStmt.Stmt) {
					return true
				}
			}
		}
	case *ast.VariableStatement:
		for _, decl := range s.List {
			if decl.Initializer != nil && decl.Initializer.Expr != nil && scanExprForCandidateCalls(decl.Initializer.Expr) {
				return true
			}
		}
	case *ast.ReturnStatement:
		if s.Argument != nil && s.Argument.Expr != nil {
			return scanExprForCandidateCalls(s.Argument.Expr)
		}
	case *ast.IfStatement:
		if s.Consequent.Stmt != nil && scanStmtForCandidateCalls(s.Consequent.Stmt) {
			return true
		}
		if s.Alternate.Stmt != nil && scanStmtForCandidateCalls(s.Alternate.Stmt) {
			return true
		}
	}
	return false
}

func scanExprForCandidateCalls(expr ast.Expr) bool {
	switch e := expr.(type) {
	case *ast.CallExpression:
		if candidateCallNames[calleeName(e.Callee)] {
			return true
		}
		for _, arg := range e.ArgumentList {
			if arg.Expr != nil && scanExprForCandidateCalls(arg.Expr) {
				return true
			}
		}
	case *ast.AwaitExpression:
		if e.Argument != nil && e.Argument.Expr != nil {
			return scanExprForCandidateCalls(e.Argument.Expr)
		}
	}
	return false
}

func calleeName(callee *ast.Expression) string {
	if callee == nil || callee.Expr == nil {
		return ""
	}
	switch c := callee.Expr.(type) {
	case *ast.Identifier:
		return c.Name
	case *ast.MemberExpression:
		if c.Property != nil && c.Property.Prop != nil {
			if ident, ok := c.Property.Prop.(*ast.Identifier); ok {
				return ident.Name
			}
		}
	}
	return ""
}
