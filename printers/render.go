package printers

import (
	"fmt"
	"strings"

	"github.com/visemet/gdb-mongodb-server/target"
)

// maxRenderDepth bounds recursion through nested children. Real server
// state never nests this deep; corrupted pointers can.
const maxRenderDepth = 16

// Render formats v through the registry. It never returns an error: a
// failure while decoding some part of the value is folded into the output
// at the node that failed, so the rest of the value still shows.
func Render(ctx *Context, v target.Value) string {
	return render(ctx, v, 0)
}

func render(ctx *Context, v target.Value, depth int) string {
	if !v.IsValid() {
		return "<invalid>"
	}
	if depth > maxRenderDepth {
		return "..."
	}

	p, err := PrinterFor(ctx, v)
	if err != nil {
		return fmt.Sprintf("<error: %v>", err)
	}
	if p == nil {
		return renderDefault(v)
	}

	var parts []string
	if ts, ok := p.(ToStringer); ok {
		s, err := ts.ToString()
		if err != nil {
			return fmt.Sprintf("<error: %v>", err)
		}
		if s != "" {
			parts = append(parts, s)
		}
	}
	if cl, ok := p.(ChildLister); ok {
		children, err := cl.Children()
		switch {
		case err != nil:
			parts = append(parts, fmt.Sprintf("<error: %v>", err))
		case len(children) == 0 && len(parts) > 0:
			// summary line only
		default:
			hint := ""
			if dh, ok := p.(DisplayHinter); ok {
				hint = dh.DisplayHint()
			}
			parts = append(parts, renderChildren(ctx, children, hint, depth))
		}
	}
	if len(parts) == 0 {
		return v.Type.Name()
	}
	return strings.Join(parts, " ")
}

func renderChildren(ctx *Context, children []Child, hint string, depth int) string {
	texts := make([]string, 0, len(children))
	for _, ch := range children {
		text := ch.Text
		if text == "" {
			text = render(ctx, ch.Value, depth+1)
		}
		switch hint {
		case "array", "string":
			texts = append(texts, text)
		default:
			texts = append(texts, ch.Name+" = "+text)
		}
	}
	switch hint {
	case "array":
		return "[" + strings.Join(texts, ", ") + "]"
	case "string":
		return strings.Join(texts, "")
	default:
		return "{" + strings.Join(texts, ", ") + "}"
	}
}

// renderDefault formats a value no printer claims.
func renderDefault(v target.Value) string {
	switch t := target.StripTypedefs(v.Type).(type) {
	case *target.NumericType:
		if t.Kind == target.NumericBool {
			b, err := v.ReadBool()
			if err != nil {
				return fmt.Sprintf("<error: %v>", err)
			}
			return fmt.Sprintf("%t", b)
		}
		if t.Kind.Signed() {
			n, err := v.ReadInt()
			if err != nil {
				return fmt.Sprintf("<error: %v>", err)
			}
			return fmt.Sprintf("%d", n)
		}
		n, err := v.ReadUint()
		if err != nil {
			return fmt.Sprintf("<error: %v>", err)
		}
		return fmt.Sprintf("%d", n)
	case *target.EnumType:
		n, err := v.ReadInt()
		if err != nil {
			return fmt.Sprintf("<error: %v>", err)
		}
		if name, ok := t.ValueName(n); ok {
			return name
		}
		return fmt.Sprintf("%d", n)
	case *target.PtrType:
		addr, err := v.ReadUint()
		if err != nil {
			return fmt.Sprintf("<error: %v>", err)
		}
		return fmt.Sprintf("0x%x", addr)
	default:
		return fmt.Sprintf("(%s) @ 0x%x", v.Type, v.Addr)
	}
}
