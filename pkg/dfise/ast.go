package dfise

import "strings"

// InfoBody is the grammar root: the assignments between "Info {" and "}".
// Example:
//
//	version   = 1.0
//	type      = xyplot
//	datasets  = [ "time" "drain eCurrent" ]
//	functions = [ time eCurrent ]
type InfoBody struct {
	Assignments []*Assignment `@@*`
}

// Assignment is a single key = value entry.
type Assignment struct {
	Key   string `@Ident Assign`
	Value *Value `@@ Semicolon?`
}

// Value is a scalar or a bracketed list. Commas between list items are
// optional; simulators emit both forms.
type Value struct {
	String *string `  @String`
	Number *string `| @Number`
	Ident  *string `| @Ident`
	List   *List   `| @@`
}

// List is a bracketed sequence of values.
type List struct {
	Items []*Value `LBracket ( @@ Comma? )* RBracket`
}

// Text renders a scalar value. Lists are joined with spaces.
func (v *Value) Text() string {
	switch {
	case v == nil:
		return ""
	case v.String != nil:
		return *v.String
	case v.Number != nil:
		return *v.Number
	case v.Ident != nil:
		return *v.Ident
	case v.List != nil:
		return strings.Join(v.List.Strings(), " ")
	}
	return ""
}

// Strings returns the text of every item in the list.
func (l *List) Strings() []string {
	if l == nil {
		return nil
	}
	out := make([]string, 0, len(l.Items))
	for _, item := range l.Items {
		out = append(out, item.Text())
	}
	return out
}

// Lookup returns the value assigned to key, first assignment wins.
func (b *InfoBody) Lookup(key string) *Value {
	for _, a := range b.Assignments {
		if a.Key == key {
			return a.Value
		}
	}
	return nil
}
