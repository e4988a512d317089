package htmlutil

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

// ScriptText concatenates the contents of every inline <script> in the document.
func ScriptText(doc *goquery.Document) string {
	var out strings.Builder
	for _, script := range doc.Find("script").Nodes {
		out.WriteString(GetText(script))
		out.WriteString("\n")
	}
	return out.String()
}

// Input is a single <input> element of a form.
type Input struct {
	Name  string
	Type  string
	Value string
}

// Form is a <form> element and the inputs nested in it.
type Form struct {
	Action string
	Method string
	Inputs []Input
}

// ParseForms returns every form in the document in document order. Input types are
// lowercased and default to "text".
func ParseForms(doc *goquery.Document) []Form {
	var forms []Form
	doc.Find("form").Each(func(_ int, sel *goquery.Selection) {
		form := Form{
			Action: strings.TrimSpace(sel.AttrOr("action", "")),
			Method: strings.ToUpper(strings.TrimSpace(sel.AttrOr("method", "GET"))),
		}
		sel.Find("input").Each(func(_ int, input *goquery.Selection) {
			inputType := strings.ToLower(strings.TrimSpace(input.AttrOr("type", "text")))
			if inputType == "" {
				inputType = "text"
			}
			form.Inputs = append(form.Inputs, Input{
				Name:  input.AttrOr("name", ""),
				Type:  inputType,
				Value: input.AttrOr("value", ""),
			})
		})
		forms = append(forms, form)
	})
	return forms
}

// Find returns the first input matching the predicate.
func (f Form) Find(match func(Input) bool) (Input, bool) {
	for _, input := range f.Inputs {
		if match(input) {
			return input, true
		}
	}
	return Input{}, false
}

// OfType returns every named input with the given type.
func (f Form) OfType(inputType string) []Input {
	var out []Input
	for _, input := range f.Inputs {
		if input.Type == inputType && input.Name != "" {
			out = append(out, input)
		}
	}
	return out
}
