package medicover

import (
	"fmt"
	"io"

	"golang.org/x/net/html"
)

// hiddenInputValue scans an HTML document for <input name="..."> and returns
// its value attribute. The login flow needs exactly one field this way, the
// anti-forgery token. A missing field is fatal: it means the portal changed
// its login page, not a transient condition.
func hiddenInputValue(r io.Reader, name string) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("medicover: parse login page: %w", err)
	}

	var value string
	var found bool
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found {
			return
		}
		if n.Type == html.ElementNode && n.Data == "input" {
			var inputName, inputValue string
			for _, attr := range n.Attr {
				switch attr.Key {
				case "name":
					inputName = attr.Val
				case "value":
					inputValue = attr.Val
				}
			}
			if inputName == name {
				value = inputValue
				found = true
				return
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	if !found {
		return "", fmt.Errorf("medicover: login page is missing input %q", name)
	}
	return value, nil
}
