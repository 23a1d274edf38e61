package ast

import (
	"fmt"
	"io"
	"strings"
)

// Dump writes a human-readable, indented rendering of prog to w, for
// debugging and golden-text tests. It recursively prints a node and
// its children, indenting each nesting level by passing a plain
// string prefix down the recursion.
func Dump(w io.Writer, prog *Program) {
	fmt.Fprintln(w, "Program")
	for _, imp := range prog.Imports {
		dumpImport(w, imp, "  ")
	}
	for _, decl := range prog.Decls {
		dumpDecl(w, decl, "  ")
	}
}

func dumpImport(w io.Writer, imp *Import, indent string) {
	fmt.Fprintf(w, "%simport %s\n", indent, strings.Join(imp.Segments, "."))
}

func dumpDecl(w io.Writer, decl Node, indent string) {
	switch n := decl.(type) {
	case *Function:
		vis := ""
		if n.IsPublic {
			vis = "pub "
		}
		fmt.Fprintf(w, "%s%sfunc %s -> %s\n", indent, vis, n.Name, n.ReturnType)
		for _, p := range n.Params {
			fmt.Fprintf(w, "%s  param %s: %s\n", indent, p.Name, p.TypeName)
		}
		dumpBlock(w, n.Body, indent+"  ")
	case *Struct:
		vis := ""
		if n.IsPublic {
			vis = "pub "
		}
		fmt.Fprintf(w, "%s%sstruct %s\n", indent, vis, n.Name)
		for _, f := range n.Fields {
			fmt.Fprintf(w, "%s  field %s: %s\n", indent, f.Name, f.TypeName)
		}
	}
}

func dumpBlock(w io.Writer, blk *Block, indent string) {
	for _, stmt := range blk.Stmts {
		dumpStmt(w, stmt, indent)
	}
}

func dumpStmt(w io.Writer, stmt Stmt, indent string) {
	switch n := stmt.(type) {
	case *VarDecl:
		mut := ""
		if n.IsMutable {
			mut = "mut "
		}
		fmt.Fprintf(w, "%s%s%s: %s = %s\n", indent, mut, n.Name, n.TypeName, dumpExpr(n.Initializer))
	case *Assign:
		fmt.Fprintf(w, "%s%s = %s\n", indent, n.Target, dumpExpr(n.Value))
	case *If:
		fmt.Fprintf(w, "%sif %s {\n", indent, dumpExpr(n.Cond))
		dumpBlock(w, n.Then, indent+"  ")
		fmt.Fprintf(w, "%s}\n", indent)
		if n.Else != nil {
			fmt.Fprintf(w, "%selse {\n", indent)
			dumpBlock(w, n.Else, indent+"  ")
			fmt.Fprintf(w, "%s}\n", indent)
		}
	case *For:
		fmt.Fprintf(w, "%sfor %s in %s {\n", indent, n.Iterator, dumpExpr(n.Iterable))
		dumpBlock(w, n.Body, indent+"  ")
		fmt.Fprintf(w, "%s}\n", indent)
	case *Return:
		if n.Value == nil {
			fmt.Fprintf(w, "%sreturn\n", indent)
		} else {
			fmt.Fprintf(w, "%sreturn %s\n", indent, dumpExpr(n.Value))
		}
	case *ExprStmt:
		fmt.Fprintf(w, "%s%s\n", indent, dumpExpr(n.X))
	}
}

func dumpExpr(e Expr) string {
	switch n := e.(type) {
	case *Literal:
		switch n.LitKind {
		case LitInt, LitFloat:
			return n.Text
		case LitString:
			return `"` + n.Text + `"`
		case LitBool:
			if n.BoolValue {
				return "true"
			}
			return "false"
		case LitNull:
			return "null"
		}
	case *Identifier:
		return n.Name
	case *Call:
		args := make([]string, len(n.Args))
		for i, a := range n.Args {
			args[i] = dumpExpr(a)
		}
		return dumpExpr(n.Callee) + "(" + strings.Join(args, ", ") + ")"
	case *Binary:
		return "(" + dumpExpr(n.Left) + " " + n.Op.String() + " " + dumpExpr(n.Right) + ")"
	}
	return "?"
}
