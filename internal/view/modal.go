package view

import (
	"bytes"
	"net/http"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const modalTitleID = "modal-title"

type Modal struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Error bool   `json:"error"`
}

// RenderModal turns a fetched partial into modal content. Error statuses
// show the raw response body under the title "Error"; otherwise the inner
// HTML of the element with id "modal-title" becomes the title and that
// element is removed from the body.
func RenderModal(status int, body []byte) Modal {
	if isModalError(status) {
		return Modal{Title: "Error", Body: string(body), Error: true}
	}

	content := string(body)
	container := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(content), container)
	if err != nil {
		return Modal{Body: content}
	}

	var title *html.Node
	for _, n := range nodes {
		if title = findByID(n, modalTitleID); title != nil {
			break
		}
	}
	if title == nil {
		return Modal{Body: content}
	}

	var inner bytes.Buffer
	for c := title.FirstChild; c != nil; c = c.NextSibling {
		html.Render(&inner, c)
	}
	if title.Parent != nil {
		title.Parent.RemoveChild(title)
	}

	var rest bytes.Buffer
	for _, n := range nodes {
		if n != title {
			html.Render(&rest, n)
		}
	}
	return Modal{
		Title: strings.TrimSpace(inner.String()),
		Body:  rest.String(),
	}
}

func findByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode {
		for _, a := range n.Attr {
			if a.Namespace == "" && a.Key == "id" && a.Val == id {
				return n
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByID(c, id); found != nil {
			return found
		}
	}
	return nil
}

// The backend answers 403, 404 and 500 with a readable body; any other
// client or server error is treated the same way.
func isModalError(status int) bool {
	return status >= http.StatusBadRequest
}
