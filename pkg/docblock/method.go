package docblock

import "strings"

// Op is the accessor operation of a magic @method annotation.
type Op string

// Accessor operations recognized in @method annotations.
const (
	OpGet Op = "get"
	OpSet Op = "set"
	OpIs  Op = "is"
	OpAdd Op = "add"
)

// ops is tried in this order; none is a prefix of another.
var ops = [...]Op{OpSet, OpGet, OpIs, OpAdd}

// MethodTag is one "@method [returnType] (get|is|set|add)Suffix[(paramType ...)]" annotation.
type MethodTag struct {
	Op Op
	// Suffix is the property part of the method name, case preserved ("FooBar" in "getFooBar").
	Suffix string
	// ReturnType is the optional token between "@method" and the method name.
	ReturnType string
	// ParamType is the first token inside the parentheses; empty when absent
	// or when the parameter has no type ("($x)").
	ParamType string
	Line      int
}

// Method returns the synthesized method name, e.g. "setFoo".
func (mt MethodTag) Method() string {
	return string(mt.Op) + mt.Suffix
}

// Property returns the backing property name: the suffix with its first
// letter lower-cased, plus a trailing "s" for add operations.
func (mt MethodTag) Property() string {
	prop := strings.ToLower(mt.Suffix[:1]) + mt.Suffix[1:]
	if mt.Op == OpAdd {
		prop += "s"
	}

	return prop
}

// MethodTags scans a doc comment for magic accessor annotations.
// Lines that do not fit the grammar are skipped.
func MethodTags(text string) []MethodTag {
	var tags []MethodTag

	for _, tag := range Tags(text) {
		if tag.Name != "method" {
			continue
		}

		parsed, ok := parseMethodBody(tag.Body)
		if !ok {
			continue
		}

		parsed.Line = tag.Line
		tags = append(tags, parsed)
	}

	return tags
}

func parseMethodBody(body string) (MethodTag, bool) {
	rest := strings.TrimLeft(body, " \t")
	if len(rest) == len(body) {
		return MethodTag{}, false
	}

	// A leading return type wins when what follows it is an accessor.
	if returnType, after, ok := cutReturnType(rest); ok {
		if tag, found := parseAccessor(after); found {
			tag.ReturnType = returnType

			return tag, true
		}
	}

	return parseAccessor(rest)
}

func cutReturnType(s string) (returnType, rest string, ok bool) {
	end := 0
	for end < len(s) && !isSpace(s[end]) && s[end] != '(' {
		end++
	}

	if end == 0 || end == len(s) || !isBlank(s[end]) {
		return "", "", false
	}

	return s[:end], strings.TrimLeft(s[end:], " \t"), true
}

func parseAccessor(s string) (MethodTag, bool) {
	for _, op := range ops {
		name, ok := strings.CutPrefix(s, string(op))
		if !ok || name == "" || !isUpper(name[0]) {
			continue
		}

		end := 1
		for end < len(name) && isWordByte(name[end]) {
			end++
		}

		return MethodTag{
			Op:        op,
			Suffix:    name[:end],
			ParamType: paramType(name[end:]),
		}, true
	}

	return MethodTag{}, false
}

// paramType reads "[ \t]*([ \t]*TYPE" where TYPE stops at ")", "$" or whitespace.
func paramType(s string) string {
	s = strings.TrimLeft(s, " \t")

	inner, ok := strings.CutPrefix(s, "(")
	if !ok {
		return ""
	}

	inner = strings.TrimLeft(inner, " \t")

	end := 0
	for end < len(inner) && inner[end] != ')' && inner[end] != '$' && !isSpace(inner[end]) {
		end++
	}

	return inner[:end]
}
