// Package template splits `.template` sources into their import prelude and
// JSX body, and checks that a template holds nothing but those two parts.
package template

import "context"

// Split separates text at the first `<` that opens a JSX construct. Anything
// before it is the prelude (imports, comments), the rest is the body. A `<`
// inside a string, template literal or comment never splits. When there is no
// such `<` the prelude is empty and the whole text is body.
//
// A generic type argument such as `foo<T>()` in the prelude also looks like the
// start of JSX and splits early.
func Split(text string) (prelude, body string) {
	at := jsxStart(text)
	if at < 0 {
		return "", text
	}
	return text[:at], text[at:]
}

// Parts splits text for synthesis and validates it. A valid template with no
// JSX at all, such as one holding only imports, is all prelude so the imports
// keep their place in front of the class.
func Parts(ctx context.Context, text string) (prelude, body string, valid bool) {
	valid = IsBodyOnlyValid(ctx, text)
	if valid && jsxStart(text) < 0 {
		return text, "", true
	}
	prelude, body = Split(text)
	return prelude, body, valid
}

type scanState int

const (
	stateCode scanState = iota
	stateLineComment
	stateBlockComment
	stateSingle
	stateDouble
	stateTemplate
)

func jsxStart(text string) int {
	state := stateCode
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch state {
		case stateLineComment:
			if c == '\n' {
				state = stateCode
			}
		case stateBlockComment:
			if c == '*' && i+1 < len(text) && text[i+1] == '/' {
				state = stateCode
				i++
			}
		case stateSingle, stateDouble, stateTemplate:
			if c == '\\' {
				i++
				continue
			}
			if (state == stateSingle && (c == '\'' || c == '\n')) ||
				(state == stateDouble && (c == '"' || c == '\n')) ||
				(state == stateTemplate && c == '`') {
				state = stateCode
			}
		default:
			switch c {
			case '/':
				if i+1 < len(text) {
					switch text[i+1] {
					case '/':
						state = stateLineComment
						i++
					case '*':
						state = stateBlockComment
						i++
					}
				}
			case '\'':
				state = stateSingle
			case '"':
				state = stateDouble
			case '`':
				state = stateTemplate
			case '<':
				if i+1 < len(text) && opensJSX(text[i+1]) {
					return i
				}
			}
		}
	}
	return -1
}

func opensJSX(c byte) bool {
	return c == '>' || c == '/' || c == '_' || c == '$' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}
