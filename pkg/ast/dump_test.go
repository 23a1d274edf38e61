package ast

import (
	"bytes"
	"strings"
	"testing"
)

func TestDumpRendersFunctionAndStruct(t *testing.T) {
	prog := &Program{
		Decls: []Node{
			&Struct{
				Name:   "Point",
				Fields: []Field{{Name: "x", TypeName: "int"}},
			},
			&Function{
				Name:       "main",
				ReturnType: "null",
				Body: &Block{
					Stmts: []Stmt{
						&ExprStmt{X: &Call{
							Callee: &Identifier{Name: "log"},
							Args:   []Expr{&Literal{LitKind: LitString, Text: "Hello"}},
						}},
					},
				},
			},
		},
	}

	var buf bytes.Buffer
	Dump(&buf, prog)
	out := buf.String()

	for _, want := range []string{"struct Point", "field x: int", "func main -> null", `log("Hello")`} {
		if !strings.Contains(out, want) {
			t.Errorf("dump missing %q; got:\n%s", want, out)
		}
	}
}
